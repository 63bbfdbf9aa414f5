package server

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
)

// ErrPoolStopped is returned by Do after Stop.
var ErrPoolStopped = errors.New("worker pool stopped")

// job is a unit of work run on one of the pool's goroutines.
type job struct {
	fn   func() any
	done chan jobResult
}

// jobResult holds the return value of a job.
type jobResult struct {
	value any
	err   error
}

// WorkerPool bounds how many evaluations run at once. Every job builds its
// own VM and chunk, so jobs never share interpreter state; the pool only
// limits concurrency and turns panics into errors.
type WorkerPool struct {
	jobs chan job
	quit chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// NewWorkerPool starts n worker goroutines. n <= 0 means one per CPU.
func NewWorkerPool(n int) *WorkerPool {
	if n <= 0 {
		n = runtime.NumCPU()
	}
	p := &WorkerPool{
		jobs: make(chan job, 64),
		quit: make(chan struct{}),
	}
	p.wg.Add(n)
	for i := 0; i < n; i++ {
		go p.loop()
	}
	return p
}

// loop processes jobs until the pool is stopped.
func (p *WorkerPool) loop() {
	defer p.wg.Done()
	for {
		select {
		case j := <-p.jobs:
			j.done <- p.execute(j.fn)
		case <-p.quit:
			return
		}
	}
}

// execute runs fn, recovering from panics.
func (p *WorkerPool) execute(fn func() any) jobResult {
	var result jobResult
	func() {
		defer func() {
			if r := recover(); r != nil {
				result.err = fmt.Errorf("%v", r)
			}
		}()
		result.value = fn()
	}()
	return result
}

// Do submits fn and blocks until it completes or ctx is done. Returns the
// result and any error (including panics).
func (p *WorkerPool) Do(ctx context.Context, fn func() any) (any, error) {
	select {
	case <-p.quit:
		return nil, ErrPoolStopped
	default:
	}

	j := job{
		fn:   fn,
		done: make(chan jobResult, 1),
	}
	select {
	case p.jobs <- j:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.quit:
		return nil, ErrPoolStopped
	}
	select {
	case result := <-j.done:
		return result.value, result.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.quit:
		return nil, ErrPoolStopped
	}
}

// Stop shuts down the worker goroutines and waits for them to exit.
func (p *WorkerPool) Stop() {
	p.once.Do(func() { close(p.quit) })
	p.wg.Wait()
}
