package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunsSubmittedTasks(t *testing.T) {
	pool := NewWorkerPool(2)

	var ran atomic.Int32
	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		pool.Submit(func(ctx context.Context) error {
			ran.Add(1)
			wg.Done()
			return nil
		})
	}
	wg.Wait()
	pool.Shutdown()

	assert.Equal(t, int32(5), ran.Load())
}

func TestSubmitAfterShutdown(t *testing.T) {
	pool := NewWorkerPool(1)
	pool.Shutdown()

	assert.NotPanics(t, func() {
		pool.Submit(func(ctx context.Context) error { return nil })
	})
}

func TestSubmitDuringShutdown(t *testing.T) {
	pool := NewWorkerPool(4)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for range 500 {
			pool.Submit(func(ctx context.Context) error { return nil })
		}
	}()

	pool.Shutdown()
	<-done
}
