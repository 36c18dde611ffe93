package filter

import (
	"github.com/moyoez/uploadqueue-go/tool"
	"github.com/moyoez/uploadqueue-go/types"
)

// Built-in filter names. The queue-length filter ("queueLimit") also
// belongs to this set but is synthesized by the queue, since it needs the
// live queue length.
const (
	NameQueueLimit = "queueLimit"
	NameFileSize   = "fileSize"
	NameMimeType   = "mimeType"
	NameFileType   = "fileType"
)

// FileSize passes when no size limit is configured or the candidate does
// not exceed it.
func FileSize() Filter {
	return Filter{Name: NameFileSize, Fn: func(fd types.FileDescriptor, cfg *types.UploadConfig) bool {
		return cfg.MaxFileSize <= 0 || fd.Size <= cfg.MaxFileSize
	}}
}

// MimeType passes when no allow-list is configured or the candidate's mime
// type is on it.
func MimeType() Filter {
	return Filter{Name: NameMimeType, Fn: func(fd types.FileDescriptor, cfg *types.UploadConfig) bool {
		if len(cfg.AllowedMimeType) == 0 {
			return true
		}
		for _, mt := range cfg.AllowedMimeType {
			if mt == fd.MimeType {
				return true
			}
		}
		return false
	}}
}

// FileType passes when no type-class allow-list is configured or the
// candidate's derived class (image, video, pdf, ...) is on it.
func FileType() Filter {
	return Filter{Name: NameFileType, Fn: func(fd types.FileDescriptor, cfg *types.UploadConfig) bool {
		if len(cfg.AllowedFileType) == 0 {
			return true
		}
		class := tool.MimeClass(fd.MimeType)
		for _, ft := range cfg.AllowedFileType {
			if ft == class {
				return true
			}
		}
		return false
	}}
}
