// Package queue implements the transfer queue: admission through the
// filter chain, strictly sequential single-in-flight dispatch, per-item
// and aggregate progress, and the completion cascade that advances the
// queue on every terminal transport event.
package queue

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/moyoez/uploadqueue-go/filter"
	"github.com/moyoez/uploadqueue-go/tool"
	"github.com/moyoez/uploadqueue-go/transport"
	"github.com/moyoez/uploadqueue-go/types"
)

// Callbacks is the observer surface. All callbacks are optional and are
// invoked outside the uploader's lock, in cascade order, so re-entrant
// control calls (retry from OnItemError, for example) are legal.
type Callbacks struct {
	OnFileQueued   func(*Item)
	OnFileDequeued func(*Item) // nil item marks the end of ClearQueue
	OnStart        func()
	OnCancel       func()
	OnFinished     func()
	// OnAddFailed reports an admission rejection: the candidate, the name
	// of the first failing filter, and the config the chain evaluated.
	OnAddFailed    func(types.FileDescriptor, string, *types.UploadConfig)
	OnItemProgress func(*Item, int)
	OnProgress     func(int) // aggregate
	OnItemSuccess  func(*Item, types.Response)
	OnItemError    func(*Item, types.Response)
	OnItemCancel   func(*Item, types.Response)
	OnItemComplete func(*Item, types.Response)
}

// Uploader owns the ordered item sequence and the single-in-flight
// invariant: never more than one active transport per uploader, no matter
// how many items are marked ready.
type Uploader struct {
	mu          sync.Mutex
	cfg         *types.UploadConfig
	queue       []*Item
	filters     []filter.Filter // synthesized built-ins + custom, in order
	custom      []filter.Filter
	transport   transport.Transport
	callbacks   Callbacks
	progress    int
	isUploading bool
	nextIndex   int
}

// New builds an uploader. cfg is merged over the global defaults; a nil
// transport selects the default HTTP transport. Custom filters run after
// the synthesized built-ins.
func New(cfg *types.UploadConfig, tr transport.Transport, custom ...filter.Filter) *Uploader {
	defaults := tool.DefaultUploadConfig()
	if tr == nil {
		tr = &transport.HTTP{}
	}
	u := &Uploader{
		cfg:       types.Merged(&defaults, cfg),
		transport: tr,
		custom:    custom,
	}
	u.rebuildFiltersLocked()
	return u
}

// SetCallbacks installs the observer surface. Call before queueing files.
func (u *Uploader) SetCallbacks(cb Callbacks) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.callbacks = cb
}

// rebuildFiltersLocked synthesizes the threshold-driven built-in filters
// and prepends them so the cheapest rejects run first: queueLimit,
// fileSize, mimeType, fileType, then the custom filters.
func (u *Uploader) rebuildFiltersLocked() {
	var fs []filter.Filter
	if u.cfg.QueueLimit > 0 {
		fs = append(fs, filter.Filter{Name: filter.NameQueueLimit, Fn: u.queueLimitFilter})
	}
	if u.cfg.MaxFileSize > 0 {
		fs = append(fs, filter.FileSize())
	}
	if len(u.cfg.AllowedMimeType) > 0 {
		fs = append(fs, filter.MimeType())
	}
	if len(u.cfg.AllowedFileType) > 0 {
		fs = append(fs, filter.FileType())
	}
	u.filters = append(fs, u.custom...)
}

// queueLimitFilter is evaluated before the candidate is added, so the
// current length is compared strictly against the limit.
func (u *Uploader) queueLimitFilter(_ types.FileDescriptor, cfg *types.UploadConfig) bool {
	return cfg.QueueLimit <= 0 || len(u.queue) < cfg.QueueLimit
}

// AddToQueue runs each candidate through the filter chain and appends the
// admitted ones. cfg (may be nil) is the call-site override layer merged
// over the uploader's config; filterSpec selects filters by name
// (whitespace/comma separated, empty = all).
//
// Admission never starts a transfer, even with AutoUpload set: the flag is
// metadata for the embedding caller.
func (u *Uploader) AddToQueue(files []types.FileDescriptor, cfg *types.UploadConfig, filterSpec string) {
	u.mu.Lock()
	selected := filter.Resolve(filterSpec, u.filters)
	u.addLocked(files, cfg, selected)
}

// AddToQueueWithFilters is AddToQueue with an explicit ordered filter list.
func (u *Uploader) AddToQueueWithFilters(files []types.FileDescriptor, cfg *types.UploadConfig, filters []filter.Filter) {
	u.mu.Lock()
	u.addLocked(files, cfg, filters)
}

// addLocked is entered with the lock held and releases it before firing
// callbacks.
func (u *Uploader) addLocked(files []types.FileDescriptor, cfg *types.UploadConfig, selected []filter.Filter) {
	effective := u.cfg
	if cfg != nil {
		effective = types.Merged(u.cfg, cfg)
	}

	type admitted struct{ item *Item }
	type rejected struct {
		fd     types.FileDescriptor
		filter string
	}
	var events []any
	for _, fd := range files {
		failed, ok := filter.Evaluate(fd, selected, effective)
		if !ok {
			tool.DefaultLogger.Debugf("Rejected %s: filter %s", fd.Name, failed)
			events = append(events, rejected{fd: fd, filter: failed})
			continue
		}
		item := &Item{
			ID:       tool.GenerateRandomUUID(),
			Index:    u.nextIndex,
			File:     fd,
			Config:   effective.Clone(),
			uploader: u,
		}
		u.nextIndex++
		u.queue = append(u.queue, item)
		tool.DefaultLogger.Debugf("Queued %s (index %d)", fd.Name, item.Index)
		events = append(events, admitted{item: item})
	}
	cb := u.callbacks
	u.mu.Unlock()

	for _, ev := range events {
		switch e := ev.(type) {
		case admitted:
			if cb.OnFileQueued != nil {
				cb.OnFileQueued(e.item)
			}
		case rejected:
			if cb.OnAddFailed != nil {
				cb.OnAddFailed(e.fd, e.filter, effective)
			}
		}
	}
}

// UploadItem marks the referenced item ready. If a transfer is already in
// flight the item waits its turn (it is picked up by the cascade, earliest
// insertion index first); otherwise it is dispatched immediately.
//
// The only error besides an unknown ref is the fatal invalid-handle
// condition from the transport, surfaced synchronously.
func (u *Uploader) UploadItem(ref ItemRef) error {
	u.mu.Lock()
	item, err := u.resolveLocked(ref)
	if err != nil {
		u.mu.Unlock()
		return err
	}
	item.IsReady = true
	if u.isUploading {
		u.mu.Unlock()
		tool.DefaultLogger.Debugf("Transfer in flight, deferring %s", item.File.Name)
		return nil
	}
	u.isUploading = true
	u.mu.Unlock()
	return u.send(item)
}

// UploadAll marks every not-yet-uploaded, not-uploading item ready, fires
// OnStart and dispatches the lowest-index ready item. Calling it again
// while a transfer is in flight never double-sends.
func (u *Uploader) UploadAll() error {
	u.mu.Lock()
	var marked []*Item
	for _, it := range u.queue {
		if !it.IsUploaded && !it.IsUploading {
			it.IsReady = true
			marked = append(marked, it)
		}
	}
	if len(marked) == 0 {
		u.mu.Unlock()
		return nil
	}
	already := u.isUploading
	if !already {
		u.isUploading = true
	}
	first := marked[0]
	cbStart := u.callbacks.OnStart
	u.mu.Unlock()

	if cbStart != nil {
		cbStart()
	}
	if already {
		return nil
	}
	return u.send(first)
}

// CancelItem aborts the referenced item's transport when it is in flight.
// The Cancelled transition is observed later, when the abort completes and
// flows through the terminal cascade.
func (u *Uploader) CancelItem(ref ItemRef) error {
	u.mu.Lock()
	item, err := u.resolveLocked(ref)
	if err != nil {
		u.mu.Unlock()
		return err
	}
	var h transport.Handle
	if item.IsUploading {
		h = item.handle
	}
	u.mu.Unlock()
	if h != nil {
		tool.DefaultLogger.Infof("Aborting transfer of %s", item.File.Name)
		h.Abort()
	}
	return nil
}

// CancelAll aborts every in-flight transport.
func (u *Uploader) CancelAll() {
	u.mu.Lock()
	var handles []transport.Handle
	for _, it := range u.queue {
		if it.IsUploading && it.handle != nil {
			handles = append(handles, it.handle)
		}
	}
	u.mu.Unlock()
	for _, h := range handles {
		h.Abort()
	}
}

// RemoveFromQueue aborts the item if in flight, splices it out and
// recomputes aggregate progress synchronously. Removal is caller-initiated
// and immediate; only the abort's Cancelled event goes through the async
// cascade.
func (u *Uploader) RemoveFromQueue(ref ItemRef) error {
	u.mu.Lock()
	item, err := u.resolveLocked(ref)
	if err != nil {
		u.mu.Unlock()
		return err
	}
	var h transport.Handle
	if item.IsUploading {
		h = item.handle
	}
	if h != nil {
		u.mu.Unlock()
		h.Abort()
		u.mu.Lock()
	}
	u.spliceLocked(item)
	u.progress = u.totalProgressLocked(0)
	cb := u.callbacks.OnFileDequeued
	u.mu.Unlock()

	tool.DefaultLogger.Debugf("Removed %s from queue", item.File.Name)
	if cb != nil {
		cb(item)
	}
	return nil
}

// ClearQueue removes every item through the same removal path, then resets
// aggregate progress to 0 and fires OnFileDequeued(nil) once.
func (u *Uploader) ClearQueue() {
	for {
		u.mu.Lock()
		if len(u.queue) == 0 {
			u.mu.Unlock()
			break
		}
		id := u.queue[0].ID
		u.mu.Unlock()
		_ = u.RemoveFromQueue(ByID(id))
	}
	u.mu.Lock()
	u.progress = 0
	cb := u.callbacks.OnFileDequeued
	u.mu.Unlock()
	if cb != nil {
		cb(nil)
	}
}

// SetOptions merges cfg into the uploader's configuration and rebuilds the
// synthesized filters. With includeExistingQueue, items that are neither
// uploaded nor in flight adopt the new effective config.
func (u *Uploader) SetOptions(cfg *types.UploadConfig, includeExistingQueue bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.cfg = types.Merged(u.cfg, cfg)
	u.rebuildFiltersLocked()
	if includeExistingQueue {
		for _, it := range u.queue {
			if !it.IsUploaded && !it.IsUploading {
				it.Config = u.cfg.Clone()
			}
		}
	}
}

// Queue returns the ordered item sequence.
func (u *Uploader) Queue() []*Item {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]*Item(nil), u.queue...)
}

// Snapshot returns copy-safe views for the status API.
func (u *Uploader) Snapshot() []ItemView {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([]ItemView, 0, len(u.queue))
	for _, it := range u.queue {
		out = append(out, it.view())
	}
	return out
}

// Progress returns the aggregate progress, 0-100.
func (u *Uploader) Progress() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.progress
}

// IsUploading reports whether a transfer is in flight.
func (u *Uploader) IsUploading() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.isUploading
}

// NotUploadedCount counts items not yet uploaded.
func (u *Uploader) NotUploadedCount() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.notUploadedLocked()
}

// UploadedCount counts uploaded items.
func (u *Uploader) UploadedCount() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.queue) - u.notUploadedLocked()
}

// ReadyItems returns the ready set (ready, not uploading) ascending by
// insertion index.
func (u *Uploader) ReadyItems() []*Item {
	u.mu.Lock()
	defer u.mu.Unlock()
	var out []*Item
	for _, it := range u.queue {
		if it.IsReady && !it.IsUploading {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

func (u *Uploader) notUploadedLocked() int {
	n := 0
	for _, it := range u.queue {
		if !it.IsUploaded {
			n++
		}
	}
	return n
}

func (u *Uploader) resolveLocked(ref ItemRef) (*Item, error) {
	if ref.byIndex {
		if ref.index < 0 || ref.index >= len(u.queue) {
			return nil, fmt.Errorf("queue: no item at %s", ref)
		}
		return u.queue[ref.index], nil
	}
	for _, it := range u.queue {
		if it.ID == ref.id {
			return it, nil
		}
	}
	return nil, fmt.Errorf("queue: no %s", ref)
}

func (u *Uploader) containsLocked(item *Item) bool {
	for _, it := range u.queue {
		if it == item {
			return true
		}
	}
	return false
}

func (u *Uploader) spliceLocked(item *Item) {
	for i, it := range u.queue {
		if it == item {
			u.queue = append(u.queue[:i], u.queue[i+1:]...)
			return
		}
	}
}

func (u *Uploader) firstReadyLocked() *Item {
	var best *Item
	for _, it := range u.queue {
		if it.IsReady && !it.IsUploading && (best == nil || it.Index < best.Index) {
			best = it
		}
	}
	return best
}

// totalProgressLocked is the aggregate formula. With RemoveAfterUpload set
// it degenerates to the raw per-call value: uploaded items no longer
// occupy a queue slot, so the weighted average would be meaningless.
func (u *Uploader) totalProgressLocked(value int) int {
	if u.cfg.RemoveAfterUpload {
		return value
	}
	n := len(u.queue)
	if n == 0 {
		return 100
	}
	notUploaded := u.notUploadedLocked()
	uploaded := n
	if notUploaded > 0 {
		uploaded = n - notUploaded
	}
	ratio := 100.0 / float64(n)
	current := float64(value) * ratio / 100.0
	return int(math.Round(float64(uploaded)*ratio + current))
}

// send dispatches one item on the transport. Entered with u.isUploading
// already claimed. A synchronous transport error (invalid file handle)
// releases the in-flight claim and marks the item errored.
func (u *Uploader) send(item *Item) error {
	u.mu.Lock()
	if !u.containsLocked(item) {
		// removed between selection and dispatch
		u.mu.Unlock()
		u.advance()
		return nil
	}
	item.markUploading()
	payload := transport.Payload{
		ItemID: item.ID,
		File:   item.File,
		Config: item.Config,
	}
	u.mu.Unlock()

	tool.DefaultLogger.Infof("Uploading %s (%d bytes) to %s", item.File.Name, item.File.Size, payload.Config.URL)
	handle, err := u.transport.Send(payload, &itemEvents{u: u, item: item})
	if err != nil {
		u.mu.Lock()
		item.IsUploading = false
		item.IsReady = false
		item.IsError = true
		u.isUploading = false
		u.mu.Unlock()
		return err
	}
	u.mu.Lock()
	if item.IsUploading { // a synchronous Done may already have landed
		item.handle = handle
	}
	u.mu.Unlock()
	return nil
}

// advance picks the next ready item, or finishes the run: clear the
// in-flight flag, recompute aggregate progress and fire OnFinished.
func (u *Uploader) advance() {
	for {
		u.mu.Lock()
		next := u.firstReadyLocked()
		if next == nil {
			u.isUploading = false
			u.progress = u.totalProgressLocked(0)
			cb := u.callbacks.OnFinished
			u.mu.Unlock()
			tool.DefaultLogger.Debugf("Queue drained, no ready items left")
			if cb != nil {
				cb()
			}
			return
		}
		u.isUploading = true
		u.mu.Unlock()
		if err := u.send(next); err != nil {
			tool.DefaultLogger.Errorf("Dispatch failed for %s: %v", next.File.Name, err)
			continue
		}
		return
	}
}

// itemEvents routes one transport's notifications back into the uploader.
type itemEvents struct {
	u    *Uploader
	item *Item
}

func (e *itemEvents) Progress(pct int) {
	e.u.onItemProgress(e.item, pct)
}

func (e *itemEvents) Done(r transport.Result) {
	e.u.onItemDone(e.item, r)
}

func (u *Uploader) onItemProgress(item *Item, pct int) {
	u.mu.Lock()
	if !item.IsUploading {
		u.mu.Unlock()
		return // late event after a terminal result
	}
	item.Progress = pct
	total := u.totalProgressLocked(pct)
	u.progress = total
	cb := u.callbacks
	u.mu.Unlock()

	if cb.OnItemProgress != nil {
		cb.OnItemProgress(item, pct)
	}
	if cb.OnProgress != nil {
		cb.OnProgress(total)
	}
}

// onItemDone runs the completion cascade: the item's terminal callback,
// then the complete callback, then either the next ready dispatch or the
// finished path. The next item is dispatched only after the cascade for
// this one has fully fired.
func (u *Uploader) onItemDone(item *Item, r transport.Result) {
	u.mu.Lock()
	item.handle = nil
	item.IsUploading = false
	item.IsReady = false
	switch r.Kind {
	case transport.KindSuccess:
		item.IsUploaded = true
		item.IsSuccess = true
		item.Progress = 100
	case transport.KindError:
		item.IsError = true
		item.Progress = 0
	case transport.KindCancelled:
		item.IsCancel = true
		item.Progress = 0
	}
	item.Response = r.Response
	removeAfter := r.Kind == transport.KindSuccess && item.Config.RemoveAfterUpload
	cb := u.callbacks
	u.mu.Unlock()

	tool.DefaultLogger.Infof("Transfer of %s finished: %s (status %d)", item.File.Name, r.Kind, r.Response.Status)

	switch r.Kind {
	case transport.KindSuccess:
		if cb.OnItemSuccess != nil {
			cb.OnItemSuccess(item, r.Response)
		}
	case transport.KindError:
		if cb.OnItemError != nil {
			cb.OnItemError(item, r.Response)
		}
	case transport.KindCancelled:
		if cb.OnItemCancel != nil {
			cb.OnItemCancel(item, r.Response)
		}
		if cb.OnCancel != nil {
			cb.OnCancel()
		}
	}

	if removeAfter {
		u.mu.Lock()
		u.spliceLocked(item)
		u.mu.Unlock()
		if cb.OnFileDequeued != nil {
			cb.OnFileDequeued(item)
		}
	}

	if cb.OnItemComplete != nil {
		cb.OnItemComplete(item, r.Response)
	}

	u.advance()
}
