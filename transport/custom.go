package transport

import (
	"context"

	"github.com/moyoez/uploadqueue-go/tool"
	"github.com/moyoez/uploadqueue-go/types"
)

// Func is the escape hatch for caller-supplied transports. It must return
// exactly once: the body on success, or an error. Implementations should
// honor ctx for abort support.
type Func func(ctx context.Context, p Payload) (string, error)

type funcTransport struct {
	fn Func
}

// UseFunc wraps a caller-supplied transfer function as a Transport. Its
// single result is routed through the success cascade with status 0 and
// empty headers; an error routes to the error cascade, a context
// cancellation to the cancel cascade.
func UseFunc(fn Func) Transport {
	return &funcTransport{fn: fn}
}

func (t *funcTransport) Send(p Payload, ev Events) (Handle, error) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		body, err := t.fn(ctx, p)
		if err != nil {
			ev.Done(terminal(ctx, err))
			return
		}
		tool.DefaultLogger.Debugf("Custom transport finished for %s", p.File.Name)
		ev.Done(Result{Kind: KindSuccess, Response: types.Response{
			Body:    body,
			Status:  0,
			Headers: map[string]string{},
		}})
	}()
	return &httpHandle{cancel: cancel}, nil
}
