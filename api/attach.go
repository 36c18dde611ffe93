package api

import (
	"github.com/moyoez/uploadqueue-go/api/eventhub"
	"github.com/moyoez/uploadqueue-go/queue"
	"github.com/moyoez/uploadqueue-go/share"
	"github.com/moyoez/uploadqueue-go/types"
)

// Attach installs a callback surface on the uploader that feeds the event
// hub and the result cache, chaining into next so the embedding caller
// keeps its own hooks. hub and results may each be nil.
func Attach(u *queue.Uploader, hub *eventhub.Hub, results *share.Results, next queue.Callbacks) {
	broadcast := func(event *types.Event) {
		if hub != nil {
			hub.Broadcast(event)
		}
	}
	record := func(it *queue.Item, state string, resp types.Response) {
		if results != nil {
			results.Put(share.TransferResult{
				ItemID:   it.ID,
				File:     it.File,
				State:    state,
				Response: resp,
			})
		}
	}
	itemData := func(it *queue.Item) map[string]any {
		return map[string]any{
			"id":    it.ID,
			"index": it.Index,
			"name":  it.File.Name,
			"size":  it.File.Size,
		}
	}

	u.SetCallbacks(queue.Callbacks{
		OnFileQueued: func(it *queue.Item) {
			broadcast(&types.Event{Type: types.EventFileQueued, Message: it.File.Name, Data: itemData(it)})
			if next.OnFileQueued != nil {
				next.OnFileQueued(it)
			}
		},
		OnFileDequeued: func(it *queue.Item) {
			ev := &types.Event{Type: types.EventFileDequeued}
			if it != nil {
				ev.Message = it.File.Name
				ev.Data = itemData(it)
			}
			broadcast(ev)
			if next.OnFileDequeued != nil {
				next.OnFileDequeued(it)
			}
		},
		OnStart: func() {
			broadcast(&types.Event{Type: types.EventUploadStart})
			if next.OnStart != nil {
				next.OnStart()
			}
		},
		OnCancel: func() {
			if next.OnCancel != nil {
				next.OnCancel()
			}
		},
		OnFinished: func() {
			broadcast(&types.Event{Type: types.EventQueueFinished})
			if next.OnFinished != nil {
				next.OnFinished()
			}
		},
		OnAddFailed: func(fd types.FileDescriptor, filterName string, cfg *types.UploadConfig) {
			broadcast(&types.Event{
				Type:    types.EventFileRejected,
				Message: fd.Name,
				Data:    map[string]any{"name": fd.Name, "size": fd.Size, "filter": filterName},
			})
			if next.OnAddFailed != nil {
				next.OnAddFailed(fd, filterName, cfg)
			}
		},
		OnItemProgress: func(it *queue.Item, pct int) {
			if next.OnItemProgress != nil {
				next.OnItemProgress(it, pct)
			}
		},
		OnProgress: func(total int) {
			broadcast(&types.Event{Type: types.EventUploadProgress, Data: map[string]any{"progress": total}})
			if next.OnProgress != nil {
				next.OnProgress(total)
			}
		},
		OnItemSuccess: func(it *queue.Item, resp types.Response) {
			record(it, "success", resp)
			broadcast(&types.Event{Type: types.EventUploadSuccess, Message: it.File.Name, Data: itemData(it)})
			if next.OnItemSuccess != nil {
				next.OnItemSuccess(it, resp)
			}
		},
		OnItemError: func(it *queue.Item, resp types.Response) {
			record(it, "error", resp)
			broadcast(&types.Event{Type: types.EventUploadError, Message: it.File.Name, Data: itemData(it)})
			if next.OnItemError != nil {
				next.OnItemError(it, resp)
			}
		},
		OnItemCancel: func(it *queue.Item, resp types.Response) {
			record(it, "cancelled", resp)
			broadcast(&types.Event{Type: types.EventUploadCancelled, Message: it.File.Name, Data: itemData(it)})
			if next.OnItemCancel != nil {
				next.OnItemCancel(it, resp)
			}
		},
		OnItemComplete: func(it *queue.Item, resp types.Response) {
			if next.OnItemComplete != nil {
				next.OnItemComplete(it, resp)
			}
		},
	})
}
