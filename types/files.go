package types

import "time"

// FileDescriptor is a read-only snapshot of a candidate file, taken when the
// file is proposed for admission. It stays valid even if the file on disk is
// later renamed or truncated; the transport re-checks the handle at dispatch.
type FileDescriptor struct {
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	MimeType string    `json:"mimeType"`
	Path     string    `json:"path,omitempty"`
	Modified time.Time `json:"modified,omitempty"`
}
