// Package runner tracks background goroutines so shutdown can wait for all
// of them instead of racing process exit.
package runner

import (
	"context"
	"sync"
)

type Group struct {
	wg sync.WaitGroup
}

// Go runs fn in a tracked goroutine and returns a channel that yields its
// terminal error exactly once.
func (g *Group) Go(ctx context.Context, fn func(ctx context.Context) error) <-chan error {
	done := make(chan error, 1)
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		done <- fn(ctx)
		close(done)
	}()
	return done
}

// Wait blocks until every tracked goroutine has returned.
func (g *Group) Wait() { g.wg.Wait() }
