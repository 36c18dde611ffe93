package types

import "time"

// UploadConfig holds the effective settings for one queue or one transfer.
// Zero values mean "unset"; Merged fills unset fields from a base layer,
// so the layering is built-in defaults < config file < instance < call-site.
type UploadConfig struct {
	URL               string            `yaml:"url"`
	Method            string            `yaml:"method"`
	Alias             string            `yaml:"alias"` // multipart form field name
	AutoUpload        bool              `yaml:"autoUpload"`
	QueueLimit        int               `yaml:"queueLimit"`
	MaxFileSize       int64             `yaml:"maxFileSize"`
	AllowedMimeType   []string          `yaml:"allowedMimeType"`
	AllowedFileType   []string          `yaml:"allowedFileType"`
	Params            map[string]string `yaml:"params"`
	Headers           map[string]string `yaml:"headers"`
	WithCredentials   bool              `yaml:"withCredentials"`
	DisableMultipart  bool              `yaml:"disableMultipart"`
	RemoveAfterUpload bool              `yaml:"removeAfterUpload"`
	InsecureTLS       bool              `yaml:"insecureTLS"`
	Timeout           time.Duration     `yaml:"timeout"`
	RateLimitBPS      int               `yaml:"rateLimitBPS"` // bytes per second, 0 = unlimited
	Preflight         bool              `yaml:"preflight"`    // ping target host before dispatch
}

// Clone returns a deep copy so per-item configs never alias queue maps.
func (c *UploadConfig) Clone() *UploadConfig {
	if c == nil {
		return nil
	}
	out := *c
	if c.AllowedMimeType != nil {
		out.AllowedMimeType = append([]string(nil), c.AllowedMimeType...)
	}
	if c.AllowedFileType != nil {
		out.AllowedFileType = append([]string(nil), c.AllowedFileType...)
	}
	if c.Params != nil {
		out.Params = make(map[string]string, len(c.Params))
		for k, v := range c.Params {
			out.Params[k] = v
		}
	}
	if c.Headers != nil {
		out.Headers = make(map[string]string, len(c.Headers))
		for k, v := range c.Headers {
			out.Headers[k] = v
		}
	}
	return &out
}

// Merged overlays override on top of base and returns a new config.
// String, numeric, slice and map fields of override win when set; bool
// fields win when true (false is the default for every bool here, so a
// lower layer can only be switched on, never silently switched off).
func Merged(base, override *UploadConfig) *UploadConfig {
	if base == nil {
		return override.Clone()
	}
	out := base.Clone()
	if override == nil {
		return out
	}
	if override.URL != "" {
		out.URL = override.URL
	}
	if override.Method != "" {
		out.Method = override.Method
	}
	if override.Alias != "" {
		out.Alias = override.Alias
	}
	if override.QueueLimit != 0 {
		out.QueueLimit = override.QueueLimit
	}
	if override.MaxFileSize != 0 {
		out.MaxFileSize = override.MaxFileSize
	}
	if override.AllowedMimeType != nil {
		out.AllowedMimeType = append([]string(nil), override.AllowedMimeType...)
	}
	if override.AllowedFileType != nil {
		out.AllowedFileType = append([]string(nil), override.AllowedFileType...)
	}
	if override.Params != nil {
		out.Params = make(map[string]string, len(override.Params))
		for k, v := range override.Params {
			out.Params[k] = v
		}
	}
	if override.Headers != nil {
		out.Headers = make(map[string]string, len(override.Headers))
		for k, v := range override.Headers {
			out.Headers[k] = v
		}
	}
	if override.Timeout != 0 {
		out.Timeout = override.Timeout
	}
	if override.RateLimitBPS != 0 {
		out.RateLimitBPS = override.RateLimitBPS
	}
	out.AutoUpload = out.AutoUpload || override.AutoUpload
	out.WithCredentials = out.WithCredentials || override.WithCredentials
	out.DisableMultipart = out.DisableMultipart || override.DisableMultipart
	out.RemoveAfterUpload = out.RemoveAfterUpload || override.RemoveAfterUpload
	out.InsecureTLS = out.InsecureTLS || override.InsecureTLS
	out.Preflight = out.Preflight || override.Preflight
	return out
}
