package transport

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"

	"github.com/moyoez/uploadqueue-go/tool"
	"github.com/moyoez/uploadqueue-go/types"
)

// HTTP is the default transport: one HTTP request per item, multipart by
// default, raw file bytes when multipart is disabled.
type HTTP struct {
	// Client overrides the lazily built client. Leave nil to get one
	// derived from the first payload's config (timeout, credentials, TLS).
	Client *http.Client

	mu     sync.Mutex
	client *http.Client
}

type httpHandle struct {
	cancel context.CancelFunc
}

func (h *httpHandle) Abort() {
	h.cancel()
}

func (t *HTTP) clientFor(cfg *types.UploadConfig) *http.Client {
	if t.Client != nil {
		return t.Client
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.client == nil {
		t.client = tool.NewHTTPClient(cfg.Timeout, cfg.WithCredentials, cfg.InsecureTLS)
	}
	return t.client
}

// Send validates the file handle, builds the request body and fires the
// transfer on its own goroutine. Progress and the terminal result arrive
// through ev; the returned handle aborts via context cancellation.
func (t *HTTP) Send(p Payload, ev Events) (Handle, error) {
	cfg := p.Config
	if p.File.Size < 0 {
		return nil, fmt.Errorf("%w: negative size for %s", ErrInvalidFileHandle, p.File.Name)
	}
	info, err := os.Stat(p.File.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFileHandle, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrInvalidFileHandle, p.File.Path)
	}
	f, err := os.Open(p.File.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFileHandle, err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	// progress tracks the file bytes, not the multipart envelope
	var src io.Reader = newProgressReader(f, info.Size(), ev.Progress)
	if cfg.RateLimitBPS > 0 {
		src = newThrottledReader(ctx, src, cfg.RateLimitBPS)
	}

	var body io.Reader
	var contentType string
	var closeBody func(error)
	if cfg.DisableMultipart {
		body = src
		contentType = p.File.MimeType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		closeBody = func(error) {}
	} else {
		pr, pw := io.Pipe()
		mw := multipart.NewWriter(pw)
		go func() {
			for k, v := range cfg.Params {
				if err := mw.WriteField(k, v); err != nil {
					pw.CloseWithError(err)
					return
				}
			}
			part, err := mw.CreateFormFile(cfg.Alias, p.File.Name)
			if err != nil {
				pw.CloseWithError(err)
				return
			}
			if _, err := io.Copy(part, src); err != nil {
				pw.CloseWithError(err)
				return
			}
			pw.CloseWithError(mw.Close())
		}()
		body = pr
		contentType = mw.FormDataContentType()
		closeBody = func(err error) { _ = pr.CloseWithError(err) }
	}

	method := cfg.Method
	if method == "" {
		method = http.MethodPost
	}
	req, err := http.NewRequestWithContext(ctx, method, cfg.URL, body)
	if err != nil {
		closeBody(err)
		_ = f.Close()
		cancel()
		return nil, fmt.Errorf("failed to create upload request: %v", err)
	}
	req.Header.Set("Content-Type", contentType)
	for k, v := range cfg.Headers {
		req.Header.Set(k, v)
	}
	if cfg.DisableMultipart {
		req.ContentLength = info.Size()
	}

	client := t.clientFor(cfg)

	go func() {
		defer func() {
			if err := f.Close(); err != nil {
				tool.DefaultLogger.Errorf("Failed to close file %s: %v", p.File.Name, err)
			}
		}()

		if cfg.Preflight {
			host := ""
			if u, parseErr := url.Parse(cfg.URL); parseErr == nil {
				host = u.Hostname()
			}
			if err := preflightProbe(ctx, host); err != nil {
				closeBody(err)
				ev.Done(terminal(ctx, err))
				return
			}
		}

		resp, err := client.Do(req)
		if err != nil {
			ev.Done(terminal(ctx, err))
			return
		}
		defer func() {
			if err := resp.Body.Close(); err != nil {
				tool.DefaultLogger.Errorf("Failed to close response body: %v", err)
			}
		}()

		data, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			tool.DefaultLogger.Warnf("Failed to read response body: %v", readErr)
		}
		result := Result{
			Kind: KindError,
			Response: types.Response{
				Body:    string(data),
				Status:  resp.StatusCode,
				Headers: flattenHeaders(resp.Header),
			},
		}
		if result.Response.OK() {
			result.Kind = KindSuccess
		}
		ev.Done(result)
	}()

	return &httpHandle{cancel: cancel}, nil
}

// terminal classifies a network-level failure: a cancelled context means
// the caller aborted, anything else is a transfer error with status 0.
func terminal(ctx context.Context, err error) Result {
	if ctx.Err() != nil {
		tool.DefaultLogger.Debugf("Transfer aborted: %v", ctx.Err())
		return Result{Kind: KindCancelled, Response: types.Response{Headers: map[string]string{}}}
	}
	tool.DefaultLogger.Errorf("Transfer failed: %v", err)
	return Result{Kind: KindError, Response: types.Response{Headers: map[string]string{}}}
}

// flattenHeaders reassembles response headers as a flat name->value map.
// Keys keep Go's canonical casing; multi-valued headers join with ", ".
func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, vs := range h {
		out[k] = strings.Join(vs, ", ")
	}
	return out
}
