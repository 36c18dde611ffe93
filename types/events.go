package types

// Event types pushed to the websocket feed.
const (
	EventFileQueued      = "file_queued"
	EventFileDequeued    = "file_dequeued"
	EventFileRejected    = "file_rejected"
	EventUploadStart     = "upload_start"
	EventUploadProgress  = "upload_progress"
	EventUploadSuccess   = "upload_success"
	EventUploadError     = "upload_error"
	EventUploadCancelled = "upload_cancelled"
	EventQueueFinished   = "queue_finished"
)

// Event is one queue notification for external observers.
type Event struct {
	Type    string         `json:"type"`
	Message string         `json:"message,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}
