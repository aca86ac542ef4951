// ABOUTME: Shared-flight helper that decouples the shared upstream call from any single caller
// ABOUTME: Each caller waits on its own context while the call runs under a detached, bounded one

package services

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"
)

const defaultFlightTimeout = 30 * time.Second

// shareCall runs fn once per key for concurrent callers. fn gets a context
// that keeps ctx's values but not its cancellation, bounded by timeout, so
// one caller leaving never fails the others. Each caller returns as soon as
// its own ctx is done.
func shareCall(ctx context.Context, g *singleflight.Group, key string, timeout time.Duration, fn func(context.Context) (interface{}, error)) (interface{}, error) {
	if timeout <= 0 {
		timeout = defaultFlightTimeout
	}

	ch := g.DoChan(key, func() (interface{}, error) {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		return fn(callCtx)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		return res.Val, res.Err
	}
}

func clientTimeout(c *http.Client) time.Duration {
	if c == nil {
		return 0
	}
	return c.Timeout
}
