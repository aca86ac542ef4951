// ABOUTME: Tests for the shared-flight helper
// ABOUTME: Verifies concurrent callers collapse and a cancelled caller leaves the others running

package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/sync/singleflight"
)

// newGatedServer answers every request with body once release is called.
// arrived receives one value per request as it comes in.
func newGatedServer(t *testing.T, body string) (server *httptest.Server, calls *int32, arrived <-chan struct{}, release func()) {
	t.Helper()
	var n int32
	gate := make(chan struct{})
	in := make(chan struct{}, 16)
	var once sync.Once

	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&n, 1)
		in <- struct{}{}
		<-gate
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	release = func() { once.Do(func() { close(gate) }) }
	t.Cleanup(func() {
		release()
		server.Close()
	})
	return server, &n, in, release
}

func waitArrived(t *testing.T, arrived <-chan struct{}) {
	t.Helper()
	select {
	case <-arrived:
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for the upstream request")
	}
}

func TestShareCall_CallerCancelDoesNotFailOthers(t *testing.T) {
	var g singleflight.Group
	started := make(chan struct{})
	finish := make(chan struct{})
	var runs int32

	fn := func(ctx context.Context) (interface{}, error) {
		if atomic.AddInt32(&runs, 1) == 1 {
			close(started)
		}
		select {
		case <-finish:
			return "done", nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	leadCtx, cancelLead := context.WithCancel(context.Background())
	leadErr := make(chan error, 1)
	go func() {
		_, err := shareCall(leadCtx, &g, "k", time.Second, fn)
		leadErr <- err
	}()
	<-started

	type result struct {
		v   interface{}
		err error
	}
	follower := make(chan result, 1)
	go func() {
		v, err := shareCall(context.Background(), &g, "k", time.Second, fn)
		follower <- result{v, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelLead()
	if err := <-leadErr; !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected leader to see context.Canceled, got %v", err)
	}

	close(finish)
	got := <-follower
	if got.err != nil || got.v != "done" {
		t.Errorf("Expected follower to get the shared result, got %v, %v", got.v, got.err)
	}
	if n := atomic.LoadInt32(&runs); n != 1 {
		t.Errorf("Expected one shared run, got %d", n)
	}
}

func TestShareCall_BoundedByTimeout(t *testing.T) {
	var g singleflight.Group
	_, err := shareCall(context.Background(), &g, "slow", 20*time.Millisecond, func(ctx context.Context) (interface{}, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected context.DeadlineExceeded, got %v", err)
	}
}
