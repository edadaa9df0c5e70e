package worker

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWorkerPool(t *testing.T) {
	wp := NewPool(15)
	defer wp.Stop()

	var done atomic.Int32
	for range 30 {
		wp.Enqueue(func() {
			time.Sleep(20 * time.Millisecond)
			done.Add(1)
		})
	}

	wp.Wait()
	assert.Equal(t, int32(30), done.Load())
	assert.Zero(t, wp.Running())
}

func TestWorkerPoolBound(t *testing.T) {
	const workers = 3
	wp := NewPool(workers)
	defer wp.Stop()

	var current, peak atomic.Int32
	for range 12 {
		wp.Enqueue(func() {
			n := current.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			current.Add(-1)
		})
	}

	wp.Wait()
	assert.LessOrEqual(t, peak.Load(), int32(workers))
}

func TestWorkerPoolMinimumOne(t *testing.T) {
	wp := NewPool(0)
	defer wp.Stop()

	ran := false
	wp.Enqueue(func() { ran = true })
	wp.Wait()
	assert.True(t, ran)
}
