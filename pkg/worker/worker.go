package worker

import (
	"sync"
	"sync/atomic"
)

type WorkerFun func()

// Pool runs enqueued jobs on a fixed number of goroutines.
type Pool struct {
	jobs chan WorkerFun

	wg      sync.WaitGroup
	running atomic.Int32
}

// NewPool starts maxWorkers workers. Values below one start a single worker.
func NewPool(maxWorkers int) *Pool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	pool := &Pool{
		jobs: make(chan WorkerFun, maxWorkers),
	}

	// start workers
	for range maxWorkers {
		go pool.worker()
	}

	return pool
}

func (p *Pool) worker() {
	for j := range p.jobs {
		p.running.Add(1)
		j()
		p.running.Add(-1)
		p.wg.Done()
	}
}

// Running returns the number of jobs executing right now
func (p *Pool) Running() int {
	return int(p.running.Load())
}

// Wait blocks until every enqueued job has returned
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Stop terminates the workers once the queue drains. Enqueue must not be
// called afterwards.
func (p *Pool) Stop() {
	close(p.jobs)
}

// Enqueue schedules a job, blocking while the queue is full
func (p *Pool) Enqueue(job WorkerFun) {
	p.wg.Add(1)
	p.jobs <- job
}
