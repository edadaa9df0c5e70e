//go:build linux || darwin

package session

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/ferama/ptyrun/pkg/conf"
	"github.com/ferama/ptyrun/pkg/worker"
)

// Result reports how a batch session ended.
type Result struct {
	Name     string
	ExitCode int
	Bytes    int64
	Duration time.Duration
	Err      error
}

// OK reports whether the session ran and exited with code 0.
func (r *Result) OK() bool {
	return r.Err == nil && r.ExitCode == 0
}

// OutputFunc opens the sink receiving the terminal output of a session.
type OutputFunc func(cfg *conf.SessionConf) (io.WriteCloser, error)

// ProgressFunc observes the output of a session. It runs on its own goroutine
// and must drain progressCh until it is closed.
type ProgressFunc func(name string, progressCh chan int64)

// RunBatch runs every configured session on a pool of cfg.Workers workers and
// returns one result per session, in configuration order. Cancelling ctx kills
// the running sessions and skips the ones not started yet.
func RunBatch(ctx context.Context, cfg *conf.Config, m *Manager, output OutputFunc, progressFn ProgressFunc) []*Result {
	results := make([]*Result, len(cfg.Sessions))

	stop := context.AfterFunc(ctx, m.KillAll)
	defer stop()

	pool := worker.NewPool(cfg.Workers)
	defer pool.Stop()

	for i, sc := range cfg.Sessions {
		pool.Enqueue(func() {
			log.Printf("starting %s (%d of %d workers busy)", sc.Name, pool.Running(), cfg.Workers)
			results[i] = runOne(ctx, sc, m, output, progressFn)
		})
	}
	pool.Wait()
	return results
}

func runOne(ctx context.Context, sc *conf.SessionConf, m *Manager, output OutputFunc, progressFn ProgressFunc) *Result {
	res := &Result{Name: sc.Name, ExitCode: -1}
	start := time.Now()
	defer func() {
		res.Duration = time.Since(start)
	}()

	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}

	out, err := output(sc)
	if err != nil {
		res.Err = err
		return res
	}
	defer out.Close()

	_, s, err := m.Start(sc)
	if err != nil {
		res.Err = err
		return res
	}
	defer s.Close()
	// also covers a cancellation that KillAll missed while the session started
	stop := context.AfterFunc(ctx, func() {
		s.Kill()
		s.drain()
	})
	defer stop()

	var progressCh chan int64
	var progressWG sync.WaitGroup
	if progressFn != nil {
		progressCh = make(chan int64, 16)
		progressWG.Add(1)
		go func() {
			defer progressWG.Done()
			progressFn(sc.Name, progressCh)
		}()
	}

	res.Bytes, err = s.CopyOutput(out, progressCh)
	if progressCh != nil {
		close(progressCh)
		progressWG.Wait()
	}

	res.ExitCode, res.Err = s.Wait()
	if res.Err == nil && err != nil {
		res.Err = err
	}
	return res
}
