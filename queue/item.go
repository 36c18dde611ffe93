package queue

import (
	"github.com/moyoez/uploadqueue-go/transport"
	"github.com/moyoez/uploadqueue-go/types"
)

// Item is one file's lifecycle from queued to a terminal state. Items are
// owned by their Uploader; the back pointer exists only for the Upload /
// Cancel / Remove conveniences and never outlives the queue membership.
//
// State flags follow the queued -> uploading -> {success, error, cancelled}
// machine. Error and cancelled items stay retryable: re-invoking Upload
// clears the terminal flags.
type Item struct {
	ID     string
	Index  int // insertion index, monotonic, never reused
	File   types.FileDescriptor
	Config *types.UploadConfig

	IsReady     bool
	IsUploading bool
	IsUploaded  bool
	IsSuccess   bool
	IsCancel    bool
	IsError     bool
	Progress    int
	Response    types.Response

	uploader *Uploader
	handle   transport.Handle
}

// Upload marks the item ready and starts it (or defers it behind the
// current in-flight transfer).
func (it *Item) Upload() error {
	return it.uploader.UploadItem(ByID(it.ID))
}

// Cancel aborts the item's transport when it is in flight.
func (it *Item) Cancel() error {
	return it.uploader.CancelItem(ByID(it.ID))
}

// Remove takes the item out of the queue, aborting first if in flight.
func (it *Item) Remove() error {
	return it.uploader.RemoveFromQueue(ByID(it.ID))
}

// markUploading clears any prior terminal flags so a retried item starts
// from a clean slate.
func (it *Item) markUploading() {
	it.IsReady = true
	it.IsUploading = true
	it.IsUploaded = false
	it.IsSuccess = false
	it.IsCancel = false
	it.IsError = false
	it.Progress = 0
}

// ItemView is a copy-safe snapshot for the status API.
type ItemView struct {
	ID          string               `json:"id"`
	Index       int                  `json:"index"`
	File        types.FileDescriptor `json:"file"`
	IsReady     bool                 `json:"isReady"`
	IsUploading bool                 `json:"isUploading"`
	IsUploaded  bool                 `json:"isUploaded"`
	IsSuccess   bool                 `json:"isSuccess"`
	IsCancel    bool                 `json:"isCancel"`
	IsError     bool                 `json:"isError"`
	Progress    int                  `json:"progress"`
}

func (it *Item) view() ItemView {
	return ItemView{
		ID:          it.ID,
		Index:       it.Index,
		File:        it.File,
		IsReady:     it.IsReady,
		IsUploading: it.IsUploading,
		IsUploaded:  it.IsUploaded,
		IsSuccess:   it.IsSuccess,
		IsCancel:    it.IsCancel,
		IsError:     it.IsError,
		Progress:    it.Progress,
	}
}
