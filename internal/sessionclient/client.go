// Package sessionclient is an HTTP client for the marketplace API that renews an expired
// session once, however many requests fail on it at the same time, and then replays them.
package sessionclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// ErrRefreshFailed is returned to every request waiting on a refresh that did not succeed.
var ErrRefreshFailed = errors.New("session refresh failed")

type result struct {
	resp *http.Response
	err  error
}

// waiter is a request parked while a refresh is in flight.
type waiter struct {
	ctx    context.Context
	replay func() (*http.Response, error)
	done   chan result
}

// Client sends requests with an underlying *http.Client, which should carry a cookie jar.
// A 401 response makes the client call the refresh endpoint and retry the request once.
type Client struct {
	http           *http.Client
	refreshURL     string
	refreshTimeout time.Duration
	onEnded        func()

	mu         sync.Mutex
	refreshing bool
	queue      []*waiter
}

// Option configures a Client.
type Option func(*Client)

// WithSessionEndedHandler registers fn to run after a failed refresh, e.g. to send the user to the login page.
func WithSessionEndedHandler(fn func()) Option {
	return func(c *Client) { c.onEnded = fn }
}

// WithRefreshTimeout bounds a single refresh call. The default is 15 seconds.
func WithRefreshTimeout(d time.Duration) Option {
	return func(c *Client) { c.refreshTimeout = d }
}

// New returns a Client that renews sessions by POSTing to refreshURL.
func New(hc *http.Client, refreshURL string, opts ...Option) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	c := &Client{http: hc, refreshURL: refreshURL, refreshTimeout: 15 * time.Second}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Do sends req. The body is buffered so the request can be sent again after a refresh.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	var body []byte
	if req.Body != nil && req.Body != http.NoBody {
		b, err := io.ReadAll(req.Body)
		_ = req.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("buffer request body: %w", err)
		}
		body = b
	}
	// The jar adds cookies to the request it is given, so every attempt gets its own copy.
	base := req.Clone(ctx)
	send := func(ctx context.Context) (*http.Response, error) {
		r := base.Clone(ctx)
		if body != nil {
			r.Body = io.NopCloser(bytes.NewReader(body))
			r.GetBody = func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(body)), nil }
			r.ContentLength = int64(len(body))
		}
		return c.http.Do(r)
	}

	resp, err := send(ctx)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}
	drain(resp)

	c.mu.Lock()
	if c.refreshing {
		w := &waiter{ctx: ctx, replay: func() (*http.Response, error) { return send(ctx) }, done: make(chan result, 1)}
		c.queue = append(c.queue, w)
		c.mu.Unlock()
		return c.wait(w)
	}
	c.refreshing = true
	c.mu.Unlock()

	// The refresh serves everyone queued behind it, so the trigger giving up only
	// abandons its own request.
	done := make(chan error, 1)
	go func() { done <- c.refreshAndReplay(ctx) }()
	select {
	case err := <-done:
		if err != nil {
			return nil, err
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	// Replays are not retried again, even on another 401.
	return send(ctx)
}

// refreshAndReplay runs the refresh detached from the trigger's cancellation, then
// settles every queued request in arrival order.
func (c *Client) refreshAndReplay(ctx context.Context) error {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.refreshTimeout)
	refreshErr := c.refresh(rctx)
	cancel()

	c.mu.Lock()
	queued := c.queue
	c.queue = nil
	c.refreshing = false
	c.mu.Unlock()

	if refreshErr != nil {
		for _, w := range queued {
			w.done <- result{err: refreshErr}
		}
		slog.Warn("session ended", "err", refreshErr, "rejected", len(queued))
		if c.onEnded != nil {
			c.onEnded()
		}
		return refreshErr
	}

	for _, w := range queued {
		resp, err := w.replay()
		w.done <- result{resp: resp, err: err}
	}
	return nil
}

func (c *Client) wait(w *waiter) (*http.Response, error) {
	select {
	case res := <-w.done:
		return res.resp, res.err
	case <-w.ctx.Done():
		if c.remove(w) {
			return nil, w.ctx.Err()
		}
		// Already handed to the refresher; its replay runs on the cancelled context.
		res := <-w.done
		return res.resp, res.err
	}
}

func (c *Client) remove(w *waiter) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, q := range c.queue {
		if q == w {
			c.queue = append(c.queue[:i], c.queue[i+1:]...)
			return true
		}
	}
	return false
}

func (c *Client) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.refreshURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}
	defer drain(resp)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: status %d", ErrRefreshFailed, resp.StatusCode)
	}
	return nil
}

func (c *Client) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
