// Package transport performs the network half of a transfer: it sends one
// file and reports progress plus exactly one terminal result back to the
// queue. Implementations may run on their own goroutines; the queue
// serializes everything behind its single-in-flight invariant.
package transport

import (
	"errors"

	"github.com/moyoez/uploadqueue-go/types"
)

// ErrInvalidFileHandle means the file became unreadable between admission
// and dispatch. This is the only failure surfaced synchronously from Send;
// network failures and aborts arrive through Events.Done.
var ErrInvalidFileHandle = errors.New("transport: invalid file handle")

// Kind tags the terminal result of a transfer.
type Kind int

const (
	KindSuccess Kind = iota
	KindError
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindError:
		return "error"
	case KindCancelled:
		return "cancelled"
	}
	return "unknown"
}

// Result is the single terminal notification for one send.
type Result struct {
	Kind     Kind
	Response types.Response
}

// Payload is everything a transport needs to send one item.
type Payload struct {
	ItemID string
	File   types.FileDescriptor
	Config *types.UploadConfig
}

// Events receives progress and the terminal result for one send.
// Done is called exactly once per successful Send.
type Events interface {
	Progress(pct int)
	Done(Result)
}

// Handle lets the queue abort an in-flight send. Abort is asynchronous:
// the cancelled result arrives later through Events.Done.
type Handle interface {
	Abort()
}

// Transport dispatches one transfer. A non-nil error means the send never
// started (invalid file handle); otherwise the returned Handle is live
// until Events.Done fires.
type Transport interface {
	Send(p Payload, ev Events) (Handle, error)
}
