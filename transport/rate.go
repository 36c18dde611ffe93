package transport

import (
	"context"
	"io"

	"golang.org/x/time/rate"
)

// minBurst keeps WaitN happy for the chunk sizes the HTTP client reads in.
const minBurst = 64 * 1024

// throttledReader caps the upload at roughly bps bytes per second.
type throttledReader struct {
	r   io.Reader
	lim *rate.Limiter
	ctx context.Context
}

func newThrottledReader(ctx context.Context, r io.Reader, bps int) *throttledReader {
	burst := bps
	if burst < minBurst {
		burst = minBurst
	}
	return &throttledReader{
		r:   r,
		lim: rate.NewLimiter(rate.Limit(bps), burst),
		ctx: ctx,
	}
}

func (t *throttledReader) Read(b []byte) (int, error) {
	n, err := t.r.Read(b)
	if n > 0 {
		if waitErr := t.lim.WaitN(t.ctx, n); waitErr != nil {
			return n, waitErr
		}
	}
	return n, err
}
