package sessionclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type upstream struct {
	srv      *httptest.Server
	refreshs atomic.Int32
	entered  chan struct{}
	release  chan struct{}
	refuse   bool

	mu    sync.Mutex
	order []int
}

func newUpstream(t *testing.T, refuse bool) *upstream {
	t.Helper()
	u := &upstream{entered: make(chan struct{}, 1), release: make(chan struct{}), refuse: refuse}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/refresh-token", func(w http.ResponseWriter, r *http.Request) {
		u.refreshs.Add(1)
		u.entered <- struct{}{}
		<-u.release
		if u.refuse {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "access_token", Value: "fresh", Path: "/"})
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("/api/data", func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("access_token"); err != nil || c.Value != "fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		seq, _ := strconv.Atoi(r.Header.Get("X-Seq"))
		u.mu.Lock()
		u.order = append(u.order, seq)
		u.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})
	u.srv = httptest.NewServer(mux)
	t.Cleanup(u.srv.Close)
	return u
}

func newClient(t *testing.T, u *upstream, opts ...Option) *Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return New(&http.Client{Jar: jar}, u.srv.URL+"/api/refresh-token", opts...)
}

func get(ctx context.Context, t *testing.T, c *Client, u *upstream, seq int) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.srv.URL+"/api/data", nil)
	require.NoError(t, err)
	req.Header.Set("X-Seq", strconv.Itoa(seq))
	return c.Do(req)
}

type outcome struct {
	status int
	err    error
}

func TestDo_SingleRefreshReplaysInOrder(t *testing.T) {
	u := newUpstream(t, false)
	c := newClient(t, u)
	const queued = 3

	results := make([]outcome, queued+1)
	var wg sync.WaitGroup
	run := func(seq int) {
		defer wg.Done()
		resp, err := get(context.Background(), t, c, u, seq)
		results[seq] = outcome{err: err}
		if resp != nil {
			results[seq].status = resp.StatusCode
			resp.Body.Close()
		}
	}

	wg.Add(1)
	go run(0)
	<-u.entered
	for i := 1; i <= queued; i++ {
		wg.Add(1)
		go run(i)
		want := i
		require.Eventually(t, func() bool { return c.pending() == want }, 2*time.Second, time.Millisecond)
	}
	close(u.release)
	wg.Wait()

	assert.Equal(t, int32(1), u.refreshs.Load())
	for seq, r := range results {
		require.NoError(t, r.err, "request %d", seq)
		assert.Equal(t, http.StatusOK, r.status, "request %d", seq)
	}
	assert.Equal(t, []int{1, 2, 3, 0}, u.order)
	assert.Zero(t, c.pending())
}

func TestDo_FailedRefreshRejectsQueue(t *testing.T) {
	u := newUpstream(t, true)
	var ended atomic.Int32
	c := newClient(t, u, WithSessionEndedHandler(func() { ended.Add(1) }))

	errs := make([]error, 3)
	var wg sync.WaitGroup
	run := func(seq int) {
		defer wg.Done()
		resp, err := get(context.Background(), t, c, u, seq)
		if resp != nil {
			resp.Body.Close()
		}
		errs[seq] = err
	}

	wg.Add(1)
	go run(0)
	<-u.entered
	for i := 1; i < 3; i++ {
		wg.Add(1)
		go run(i)
		want := i
		require.Eventually(t, func() bool { return c.pending() == want }, 2*time.Second, time.Millisecond)
	}
	close(u.release)
	wg.Wait()

	for seq, err := range errs {
		assert.True(t, errors.Is(err, ErrRefreshFailed), "request %d: %v", seq, err)
	}
	assert.Equal(t, int32(1), u.refreshs.Load())
	assert.Equal(t, int32(1), ended.Load())
	assert.Empty(t, u.order)
}

func TestDo_CancelledWaiterLeavesQueue(t *testing.T) {
	u := newUpstream(t, false)
	c := newClient(t, u)

	triggered := make(chan error, 1)
	go func() {
		resp, err := get(context.Background(), t, c, u, 0)
		if resp != nil {
			resp.Body.Close()
		}
		triggered <- err
	}()
	<-u.entered

	ctx, cancel := context.WithCancel(context.Background())
	waited := make(chan error, 1)
	go func() {
		_, err := get(ctx, t, c, u, 1)
		waited <- err
	}()
	require.Eventually(t, func() bool { return c.pending() == 1 }, 2*time.Second, time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-waited, context.Canceled)
	assert.Zero(t, c.pending())

	close(u.release)
	require.NoError(t, <-triggered)
	assert.Equal(t, []int{0}, u.order)
}

func TestDo_CancelledTriggerKeepsRefreshForQueue(t *testing.T) {
	u := newUpstream(t, false)
	var ended atomic.Int32
	c := newClient(t, u, WithSessionEndedHandler(func() { ended.Add(1) }))

	ctx, cancel := context.WithCancel(context.Background())
	triggered := make(chan error, 1)
	go func() {
		_, err := get(ctx, t, c, u, 0)
		triggered <- err
	}()
	<-u.entered

	queued := make(chan outcome, 1)
	go func() {
		resp, err := get(context.Background(), t, c, u, 1)
		o := outcome{err: err}
		if resp != nil {
			o.status = resp.StatusCode
			resp.Body.Close()
		}
		queued <- o
	}()
	require.Eventually(t, func() bool { return c.pending() == 1 }, 2*time.Second, time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-triggered, context.Canceled)

	close(u.release)
	got := <-queued
	require.NoError(t, got.err)
	assert.Equal(t, http.StatusOK, got.status)
	assert.Equal(t, int32(1), u.refreshs.Load())
	assert.Zero(t, ended.Load())
	assert.Equal(t, []int{1}, u.order)
}

func TestDo_PassesThroughSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer srv.Close()

	c := New(srv.Client(), srv.URL+"/refresh")
	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	resp, err := c.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusTeapot, resp.StatusCode)
}
