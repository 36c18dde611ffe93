package tool

import "flag"

// Flags holds runtime overrides from CLI flags.
type Flags struct {
	Log               string
	UseConfigPath     string
	UseURL            string
	UseMethod         string
	UseAlias          string
	UseMaxFileSize    int64
	UseAllowedMime    string
	UseQueueLimit     int
	UseRateLimitBPS   int
	UseDisableMulti   bool
	UseRemoveAfterUp  bool
	UseInsecureTLS    bool
	UsePreflight      bool
	UseServeAddr      string // e.g. ":53320"; empty disables the status API
	DoNotStartUploads bool   // queue only, let the API trigger uploads
}

// SetFlags parses CLI flags and returns the override config.
func SetFlags() Flags {
	var cfg Flags
	flag.StringVar(&cfg.Log, "log", "", "log mode: dev|prod")
	flag.StringVar(&cfg.UseConfigPath, "useConfigPath", "", "override config file path")
	flag.StringVar(&cfg.UseURL, "url", "", "upload target URL")
	flag.StringVar(&cfg.UseMethod, "method", "", "HTTP method (default POST)")
	flag.StringVar(&cfg.UseAlias, "alias", "", "multipart form field name (default file)")
	flag.Int64Var(&cfg.UseMaxFileSize, "maxFileSize", 0, "reject files larger than this many bytes")
	flag.StringVar(&cfg.UseAllowedMime, "allowedMime", "", "comma-separated mime type allow-list")
	flag.IntVar(&cfg.UseQueueLimit, "queueLimit", 0, "max number of queued files")
	flag.IntVar(&cfg.UseRateLimitBPS, "rateLimit", 0, "upload throttle in bytes per second")
	flag.BoolVar(&cfg.UseDisableMulti, "disableMultipart", false, "send raw file bytes instead of multipart/form-data")
	flag.BoolVar(&cfg.UseRemoveAfterUp, "removeAfterUpload", false, "drop items from the queue once uploaded")
	flag.BoolVar(&cfg.UseInsecureTLS, "insecureTLS", false, "skip TLS certificate verification (self-signed receivers)")
	flag.BoolVar(&cfg.UsePreflight, "preflight", false, "ping the target host before each transfer")
	flag.StringVar(&cfg.UseServeAddr, "serve", "", "serve the status/progress API on this address (e.g. :53320)")
	flag.BoolVar(&cfg.DoNotStartUploads, "noAutoStart", false, "queue files but do not start uploading")
	flag.Parse()
	return cfg
}

// FlagArgs returns the non-flag arguments: the file paths to queue.
func FlagArgs() []string {
	return flag.Args()
}
