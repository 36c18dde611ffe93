package queue_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moyoez/uploadqueue-go/filter"
	"github.com/moyoez/uploadqueue-go/queue"
	"github.com/moyoez/uploadqueue-go/transport"
	"github.com/moyoez/uploadqueue-go/types"
)

// fakeSend is one dispatched transfer the test completes by hand.
type fakeSend struct {
	payload transport.Payload
	ev      transport.Events
	aborted bool
}

func (s *fakeSend) Abort() { s.aborted = true }

func (s *fakeSend) succeed(status int, body string) {
	s.ev.Done(transport.Result{Kind: transport.KindSuccess, Response: types.Response{
		Body: body, Status: status, Headers: map[string]string{},
	}})
}

func (s *fakeSend) fail(status int) {
	s.ev.Done(transport.Result{Kind: transport.KindError, Response: types.Response{
		Status: status, Headers: map[string]string{},
	}})
}

func (s *fakeSend) cancelled() {
	s.ev.Done(transport.Result{Kind: transport.KindCancelled, Response: types.Response{
		Headers: map[string]string{},
	}})
}

type fakeTransport struct {
	mu       sync.Mutex
	sends    []*fakeSend
	failNext error
}

func (f *fakeTransport) Send(p transport.Payload, ev transport.Events) (transport.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		return nil, err
	}
	s := &fakeSend{payload: p, ev: ev}
	f.sends = append(f.sends, s)
	return s, nil
}

func (f *fakeTransport) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sends)
}

func (f *fakeTransport) last() *fakeSend {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sends[len(f.sends)-1]
}

func fd(name string, size int64) types.FileDescriptor {
	return types.FileDescriptor{Name: name, Size: size, MimeType: "text/plain"}
}

// events records callback firings in order; everything runs on the test
// goroutine since the fake transport completes synchronously.
type events struct {
	log []string
}

func (e *events) record(format string, args ...any) {
	e.log = append(e.log, fmt.Sprintf(format, args...))
}

func (e *events) callbacks() queue.Callbacks {
	return queue.Callbacks{
		OnFileQueued:   func(it *queue.Item) { e.record("queued:%s", it.File.Name) },
		OnFileDequeued: func(it *queue.Item) { e.record("dequeued:%s", name(it)) },
		OnStart:        func() { e.record("start") },
		OnCancel:       func() { e.record("cancelAll") },
		OnFinished:     func() { e.record("finished") },
		OnAddFailed: func(f types.FileDescriptor, filterName string, _ *types.UploadConfig) {
			e.record("rejected:%s:%s", f.Name, filterName)
		},
		OnItemSuccess:  func(it *queue.Item, _ types.Response) { e.record("success:%s", it.File.Name) },
		OnItemError:    func(it *queue.Item, _ types.Response) { e.record("error:%s", it.File.Name) },
		OnItemCancel:   func(it *queue.Item, _ types.Response) { e.record("cancel:%s", it.File.Name) },
		OnItemComplete: func(it *queue.Item, _ types.Response) { e.record("complete:%s", it.File.Name) },
	}
}

func name(it *queue.Item) string {
	if it == nil {
		return "none"
	}
	return it.File.Name
}

func newUploader(cfg *types.UploadConfig, custom ...filter.Filter) (*queue.Uploader, *fakeTransport, *events) {
	ft := &fakeTransport{}
	u := queue.New(cfg, ft, custom...)
	ev := &events{}
	u.SetCallbacks(ev.callbacks())
	return u, ft, ev
}

func TestQueueLimitRejectsThirdFile(t *testing.T) {
	u, _, ev := newUploader(&types.UploadConfig{URL: "http://x/upload", QueueLimit: 2})

	u.AddToQueue([]types.FileDescriptor{fd("a", 1), fd("b", 1), fd("c", 1)}, nil, "")

	assert.Len(t, u.Queue(), 2)
	assert.Equal(t, []string{"queued:a", "queued:b", "rejected:c:queueLimit"}, ev.log)
}

func TestFileSizeRejection(t *testing.T) {
	u, _, ev := newUploader(&types.UploadConfig{URL: "http://x/upload", MaxFileSize: 100})

	u.AddToQueue([]types.FileDescriptor{fd("big", 101)}, nil, "")

	assert.Empty(t, u.Queue())
	assert.Equal(t, []string{"rejected:big:fileSize"}, ev.log)
}

func TestMimeTypeRejection(t *testing.T) {
	u, _, ev := newUploader(&types.UploadConfig{URL: "http://x/upload", AllowedMimeType: []string{"image/png"}})

	u.AddToQueue([]types.FileDescriptor{fd("doc.txt", 1)}, nil, "")

	assert.Empty(t, u.Queue())
	assert.Equal(t, []string{"rejected:doc.txt:mimeType"}, ev.log)
}

func TestCallSiteConfigOverride(t *testing.T) {
	u, _, _ := newUploader(&types.UploadConfig{URL: "http://x/upload", Alias: "file"})

	u.AddToQueue([]types.FileDescriptor{fd("a", 1)}, &types.UploadConfig{Alias: "attachment"}, "")
	u.AddToQueue([]types.FileDescriptor{fd("b", 1)}, nil, "")

	items := u.Queue()
	require.Len(t, items, 2)
	assert.Equal(t, "attachment", items[0].Config.Alias)
	assert.Equal(t, "file", items[1].Config.Alias)
	// call-site layer still inherits the instance URL
	assert.Equal(t, "http://x/upload", items[0].Config.URL)
}

func TestCustomFilterSelection(t *testing.T) {
	noTxt := filter.Filter{Name: "noTxt", Fn: func(f types.FileDescriptor, _ *types.UploadConfig) bool {
		return f.MimeType != "text/plain"
	}}
	u, _, ev := newUploader(&types.UploadConfig{URL: "http://x/upload"}, noTxt)

	// explicit name selection applies the custom filter
	u.AddToQueue([]types.FileDescriptor{fd("a.txt", 1)}, nil, "noTxt")
	// unknown names are silently ignored, so nothing filters this one
	u.AddToQueue([]types.FileDescriptor{fd("b.txt", 1)}, nil, "doesNotExist")

	assert.Equal(t, []string{"rejected:a.txt:noTxt", "queued:b.txt"}, ev.log)
	assert.Len(t, u.Queue(), 1)
}

func TestSingleUploadSuccessCascade(t *testing.T) {
	u, ft, ev := newUploader(&types.UploadConfig{URL: "http://x/upload"})
	u.AddToQueue([]types.FileDescriptor{fd("a", 10)}, nil, "")

	require.NoError(t, u.UploadAll())
	require.Equal(t, 1, ft.count())
	assert.True(t, u.IsUploading())

	ft.last().succeed(200, `{"ok":true}`)

	assert.Equal(t, []string{
		"queued:a", "start", "success:a", "complete:a", "finished",
	}, ev.log)
	assert.Equal(t, 1, u.UploadedCount())
	assert.Equal(t, 0, u.NotUploadedCount())
	assert.Equal(t, 100, u.Progress())
	assert.False(t, u.IsUploading())

	item := u.Queue()[0]
	assert.True(t, item.IsUploaded)
	assert.True(t, item.IsSuccess)
	assert.Equal(t, 200, item.Response.Status)
	assert.Equal(t, `{"ok":true}`, item.Response.Body)
}

func TestErrorAdvancesToNextItem(t *testing.T) {
	u, ft, ev := newUploader(&types.UploadConfig{URL: "http://x/upload"})
	u.AddToQueue([]types.FileDescriptor{fd("first", 1), fd("second", 1)}, nil, "")

	require.NoError(t, u.UploadAll())
	require.Equal(t, 1, ft.count())

	// first errors with 500, second must dispatch automatically
	ft.last().fail(500)
	require.Equal(t, 2, ft.count())
	assert.Equal(t, "second", ft.last().payload.File.Name)

	ft.last().succeed(200, "done")

	assert.Equal(t, []string{
		"queued:first", "queued:second", "start",
		"error:first", "complete:first",
		"success:second", "complete:second", "finished",
	}, ev.log)

	first := u.Queue()[0]
	assert.True(t, first.IsError)
	assert.False(t, first.IsUploaded)
	assert.Equal(t, 500, first.Response.Status)
	assert.Equal(t, 1, u.UploadedCount())
}

func TestCancelInFlightAdvances(t *testing.T) {
	u, ft, ev := newUploader(&types.UploadConfig{URL: "http://x/upload"})
	u.AddToQueue([]types.FileDescriptor{fd("first", 1), fd("second", 1)}, nil, "")
	require.NoError(t, u.UploadAll())

	require.NoError(t, u.CancelItem(queue.ByIndex(0)))
	assert.True(t, ft.sends[0].aborted)

	// abort completion arrives asynchronously; only then is Cancelled observed
	ft.sends[0].cancelled()

	first := u.Queue()[0]
	assert.True(t, first.IsCancel)
	assert.False(t, first.IsUploaded)
	require.Equal(t, 2, ft.count())
	assert.Equal(t, "second", ft.last().payload.File.Name)

	ft.last().succeed(204, "")
	assert.Equal(t, []string{
		"queued:first", "queued:second", "start",
		"cancel:first", "cancelAll", "complete:first",
		"success:second", "complete:second", "finished",
	}, ev.log)
}

func TestCancelIdleItemIsNoop(t *testing.T) {
	u, ft, _ := newUploader(&types.UploadConfig{URL: "http://x/upload"})
	u.AddToQueue([]types.FileDescriptor{fd("a", 1)}, nil, "")

	require.NoError(t, u.CancelItem(queue.ByIndex(0)))
	assert.Zero(t, ft.count())
	assert.False(t, u.Queue()[0].IsCancel)
}

func TestSingleInFlightInvariant(t *testing.T) {
	u, ft, _ := newUploader(&types.UploadConfig{URL: "http://x/upload"})
	u.AddToQueue([]types.FileDescriptor{fd("a", 1), fd("b", 1), fd("c", 1)}, nil, "")

	require.NoError(t, u.UploadAll())
	assert.Equal(t, 1, ft.count(), "only one transport may be active")

	// a second UploadAll mid-flight must not double-send
	require.NoError(t, u.UploadAll())
	assert.Equal(t, 1, ft.count())

	uploading := 0
	for _, it := range u.Queue() {
		if it.IsUploading {
			uploading++
		}
	}
	assert.Equal(t, 1, uploading)

	ft.last().succeed(200, "")
	assert.Equal(t, 2, ft.count())
	ft.last().succeed(200, "")
	assert.Equal(t, 3, ft.count())
	ft.last().succeed(200, "")

	assert.Equal(t, 3, u.UploadedCount())
	assert.False(t, u.IsUploading())
}

func TestDispatchFollowsInsertionOrder(t *testing.T) {
	u, ft, _ := newUploader(&types.UploadConfig{URL: "http://x/upload"})
	u.AddToQueue([]types.FileDescriptor{fd("a", 1), fd("b", 1), fd("c", 1)}, nil, "")

	require.NoError(t, u.UploadAll())
	var order []string
	order = append(order, ft.last().payload.File.Name)
	ft.last().succeed(200, "")
	order = append(order, ft.last().payload.File.Name)
	ft.last().succeed(200, "")
	order = append(order, ft.last().payload.File.Name)
	ft.last().succeed(200, "")

	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestUploadItemDeferredBehindInFlight(t *testing.T) {
	u, ft, _ := newUploader(&types.UploadConfig{URL: "http://x/upload"})
	u.AddToQueue([]types.FileDescriptor{fd("a", 1), fd("b", 1)}, nil, "")

	require.NoError(t, u.UploadItem(queue.ByIndex(0)))
	require.Equal(t, 1, ft.count())

	// marking b ready while a is in flight defers it
	require.NoError(t, u.UploadItem(queue.ByIndex(1)))
	assert.Equal(t, 1, ft.count())
	assert.Len(t, u.ReadyItems(), 1)

	ft.last().succeed(200, "")
	require.Equal(t, 2, ft.count())
	assert.Equal(t, "b", ft.last().payload.File.Name)
	ft.last().succeed(200, "")
}

func TestReadyItemsAscendingByIndex(t *testing.T) {
	u, _, _ := newUploader(&types.UploadConfig{URL: "http://x/upload"})
	u.AddToQueue([]types.FileDescriptor{fd("a", 1), fd("b", 1), fd("c", 1)}, nil, "")

	require.NoError(t, u.UploadItem(queue.ByIndex(2)))
	// c is now uploading; mark the earlier two ready
	require.NoError(t, u.UploadItem(queue.ByIndex(1)))
	require.NoError(t, u.UploadItem(queue.ByIndex(0)))

	ready := u.ReadyItems()
	require.Len(t, ready, 2)
	assert.Equal(t, "a", ready[0].File.Name)
	assert.Equal(t, "b", ready[1].File.Name)
}

func TestAggregateProgress(t *testing.T) {
	u, ft, _ := newUploader(&types.UploadConfig{URL: "http://x/upload"})
	u.AddToQueue([]types.FileDescriptor{fd("a", 100), fd("b", 100)}, nil, "")

	require.NoError(t, u.UploadAll())
	ft.last().ev.Progress(50)
	// round(0*50 + 50*50/100) = 25
	assert.Equal(t, 25, u.Progress())

	ft.last().succeed(200, "")
	ft.last().ev.Progress(50)
	// round(1*50 + 50*50/100) = 75
	assert.Equal(t, 75, u.Progress())

	ft.last().succeed(200, "")
	assert.Equal(t, 100, u.Progress())
}

func TestRemoveInFlightAbortsFirst(t *testing.T) {
	u, ft, ev := newUploader(&types.UploadConfig{URL: "http://x/upload"})
	u.AddToQueue([]types.FileDescriptor{fd("a", 1), fd("b", 1)}, nil, "")
	require.NoError(t, u.UploadItem(queue.ByIndex(0)))

	require.NoError(t, u.RemoveFromQueue(queue.ByIndex(0)))
	assert.True(t, ft.sends[0].aborted)
	assert.Len(t, u.Queue(), 1)
	assert.Contains(t, ev.log, "dequeued:a")

	// the abort completion still cascades and drains the run
	ft.sends[0].cancelled()
	assert.Contains(t, ev.log, "finished")
	assert.False(t, u.IsUploading())
}

func TestClearQueueResetsProgress(t *testing.T) {
	u, _, ev := newUploader(&types.UploadConfig{URL: "http://x/upload"})
	u.AddToQueue([]types.FileDescriptor{fd("a", 1), fd("b", 1)}, nil, "")

	u.ClearQueue()

	assert.Empty(t, u.Queue())
	assert.Equal(t, 0, u.Progress())
	assert.Equal(t, []string{
		"queued:a", "queued:b",
		"dequeued:a", "dequeued:b", "dequeued:none",
	}, ev.log)
}

func TestRemoveAfterUploadSplicesOnSuccess(t *testing.T) {
	u, ft, ev := newUploader(&types.UploadConfig{URL: "http://x/upload", RemoveAfterUpload: true})
	u.AddToQueue([]types.FileDescriptor{fd("a", 1)}, nil, "")

	require.NoError(t, u.UploadAll())
	ft.last().succeed(200, "")

	assert.Empty(t, u.Queue())
	// splice happens after the success callback, before complete
	assert.Equal(t, []string{
		"queued:a", "start", "success:a", "dequeued:a", "complete:a", "finished",
	}, ev.log)
}

func TestRemoveAfterUploadProgressIsRawValue(t *testing.T) {
	u, ft, _ := newUploader(&types.UploadConfig{URL: "http://x/upload", RemoveAfterUpload: true})
	u.AddToQueue([]types.FileDescriptor{fd("a", 100), fd("b", 100)}, nil, "")

	require.NoError(t, u.UploadAll())
	ft.last().ev.Progress(37)
	// the weighted formula degenerates to the per-item value
	assert.Equal(t, 37, u.Progress())
}

func TestRetryAfterError(t *testing.T) {
	u, ft, _ := newUploader(&types.UploadConfig{URL: "http://x/upload"})
	u.AddToQueue([]types.FileDescriptor{fd("a", 1)}, nil, "")

	require.NoError(t, u.UploadAll())
	ft.last().fail(500)
	assert.True(t, u.Queue()[0].IsError)

	// retry is caller-initiated
	require.NoError(t, u.UploadItem(queue.ByIndex(0)))
	require.Equal(t, 2, ft.count())
	item := u.Queue()[0]
	assert.True(t, item.IsUploading)
	assert.False(t, item.IsError, "terminal flags reset on retry")

	ft.last().succeed(201, "")
	assert.True(t, u.Queue()[0].IsSuccess)
	assert.Equal(t, 1, u.UploadedCount())
}

func TestInvalidHandleSurfacesSynchronously(t *testing.T) {
	u, ft, ev := newUploader(&types.UploadConfig{URL: "http://x/upload"})
	u.AddToQueue([]types.FileDescriptor{fd("a", 1)}, nil, "")

	ft.failNext = fmt.Errorf("%w: gone", transport.ErrInvalidFileHandle)
	err := u.UploadItem(queue.ByIndex(0))
	require.Error(t, err)
	assert.ErrorIs(t, err, transport.ErrInvalidFileHandle)

	assert.False(t, u.IsUploading())
	assert.True(t, u.Queue()[0].IsError)
	// no cascade events: the failure did not go through callbacks
	assert.Equal(t, []string{"queued:a"}, ev.log)
}

func TestUploadAllOnEmptyQueueIsNoop(t *testing.T) {
	u, ft, ev := newUploader(&types.UploadConfig{URL: "http://x/upload"})
	require.NoError(t, u.UploadAll())
	assert.Zero(t, ft.count())
	assert.Empty(t, ev.log)
}

func TestUnknownRefErrors(t *testing.T) {
	u, _, _ := newUploader(&types.UploadConfig{URL: "http://x/upload"})
	assert.Error(t, u.UploadItem(queue.ByIndex(3)))
	assert.Error(t, u.CancelItem(queue.ByID("nope")))
	assert.Error(t, u.RemoveFromQueue(queue.ByIndex(-1)))
}

func TestItemConvenienceMethods(t *testing.T) {
	u, ft, _ := newUploader(&types.UploadConfig{URL: "http://x/upload"})
	u.AddToQueue([]types.FileDescriptor{fd("a", 1)}, nil, "")

	item := u.Queue()[0]
	require.NoError(t, item.Upload())
	require.Equal(t, 1, ft.count())
	require.NoError(t, item.Cancel())
	assert.True(t, ft.sends[0].aborted)
	ft.sends[0].cancelled()
	require.NoError(t, item.Remove())
	assert.Empty(t, u.Queue())
}

func TestSetOptionsIncludeExistingQueue(t *testing.T) {
	u, _, _ := newUploader(&types.UploadConfig{URL: "http://x/upload", Alias: "file"})
	u.AddToQueue([]types.FileDescriptor{fd("a", 1)}, nil, "")

	u.SetOptions(&types.UploadConfig{Alias: "attachment"}, true)
	assert.Equal(t, "attachment", u.Queue()[0].Config.Alias)

	u.SetOptions(&types.UploadConfig{Alias: "third"}, false)
	assert.Equal(t, "attachment", u.Queue()[0].Config.Alias, "existing queue untouched")
}

func TestSetOptionsRebuildsSynthesizedFilters(t *testing.T) {
	u, _, ev := newUploader(&types.UploadConfig{URL: "http://x/upload"})

	// no size limit yet, big file passes
	u.AddToQueue([]types.FileDescriptor{fd("big1", 1000)}, nil, "")
	u.SetOptions(&types.UploadConfig{MaxFileSize: 100}, false)
	u.AddToQueue([]types.FileDescriptor{fd("big2", 1000)}, nil, "")

	assert.Equal(t, []string{"queued:big1", "rejected:big2:fileSize"}, ev.log)
}

func TestIndexesAreStableAndNeverReused(t *testing.T) {
	u, _, _ := newUploader(&types.UploadConfig{URL: "http://x/upload"})
	u.AddToQueue([]types.FileDescriptor{fd("a", 1), fd("b", 1)}, nil, "")
	require.NoError(t, u.RemoveFromQueue(queue.ByIndex(0)))
	u.AddToQueue([]types.FileDescriptor{fd("c", 1)}, nil, "")

	items := u.Queue()
	require.Len(t, items, 2)
	assert.Equal(t, 1, items[0].Index)
	assert.Equal(t, 2, items[1].Index)
}
