package tool

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/moyoez/uploadqueue-go/types"
)

// DescribeFile builds the admission-time snapshot for a file on disk.
// The descriptor stays fixed after this point even if the file changes;
// the transport re-validates the handle when the transfer is dispatched.
func DescribeFile(path string) (types.FileDescriptor, error) {
	info, err := os.Stat(path)
	if err != nil {
		return types.FileDescriptor{}, fmt.Errorf("failed to stat file: %v", err)
	}
	if info.IsDir() {
		return types.FileDescriptor{}, fmt.Errorf("path is a directory, not a file: %s", path)
	}

	fileType := mime.TypeByExtension(filepath.Ext(path))
	if fileType == "" {
		fileType = "application/octet-stream" // Default MIME type
	}
	// strip parameters like "; charset=utf-8" so filters compare clean types
	if idx := strings.IndexByte(fileType, ';'); idx >= 0 {
		fileType = strings.TrimSpace(fileType[:idx])
	}

	return types.FileDescriptor{
		Name:     filepath.Base(path),
		Size:     info.Size(),
		MimeType: fileType,
		Path:     path,
		Modified: info.ModTime(),
	}, nil
}

var mimeClassPrefixes = map[string]string{
	"image/": "image",
	"video/": "video",
	"audio/": "audio",
}

var mimeClassExact = map[string]string{
	"application/pdf":    "pdf",
	"application/zip":    "compress",
	"application/x-zip":  "compress",
	"application/gzip":   "compress",
	"application/x-gzip": "compress",
	"application/x-tar":  "compress",
	"application/x-7z-compressed":  "compress",
	"application/x-rar-compressed": "compress",
	"application/msword": "doc",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": "doc",
	"application/vnd.ms-excel": "xls",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": "xls",
	"application/vnd.ms-powerpoint": "ppt",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": "ppt",
}

// MimeClass derives the coarse type class used by the fileType filter:
// image, video, audio, pdf, compress, doc, xls, ppt, or "application"
// for anything unrecognized.
func MimeClass(mimeType string) string {
	mt := strings.ToLower(mimeType)
	if idx := strings.IndexByte(mt, ';'); idx >= 0 {
		mt = strings.TrimSpace(mt[:idx])
	}
	for prefix, class := range mimeClassPrefixes {
		if strings.HasPrefix(mt, prefix) {
			return class
		}
	}
	if class, ok := mimeClassExact[mt]; ok {
		return class
	}
	return "application"
}
