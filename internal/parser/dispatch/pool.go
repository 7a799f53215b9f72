// Package dispatch runs chunk scans on a shared worker pool and joins their
// results. A parse either gets every chunk's result or fails as a whole.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/article-parser/internal/parser/index"
)

// ErrPoolClosed is returned by Submit after Close.
var ErrPoolClosed = errors.New("worker pool closed")

// Task scans one chunk.
type Task func() (index.Occurrences, error)

// Result is the outcome of one Task. Seq is the position the task was
// submitted at; Err is set when the task failed or panicked.
type Result struct {
	Seq         int
	Occurrences index.Occurrences
	Err         error
}

type job struct {
	seq     int
	task    Task
	results chan<- Result
}

// Pool is a fixed set of workers fed from one job channel. It is created
// once, shared by all parses, and shut down with Close.
type Pool struct {
	size   int
	jobs   chan job
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
	logger *slog.Logger
}

// NewPool starts size workers. size is clamped to at least one.
func NewPool(size int) *Pool {
	if size < 1 {
		size = 1
	}
	p := &Pool{
		size:   size,
		jobs:   make(chan job),
		logger: slog.Default().With("component", "scan-pool"),
	}
	p.wg.Add(size)
	for i := 0; i < size; i++ {
		go p.worker()
	}
	p.logger.Debug("worker pool started", "workers", size)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return p.size
}

// Submit hands task to the next free worker. Its Result is delivered on
// results, which must have room for it so workers never block on delivery.
// Submit blocks until a worker accepts the task or ctx is done.
func (p *Pool) Submit(ctx context.Context, seq int, task Task, results chan<- Result) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.jobs <- job{seq: seq, task: task, results: results}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting work and waits for running tasks to finish.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()
	p.wg.Wait()
	p.logger.Debug("worker pool stopped")
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for j := range p.jobs {
		j.results <- p.run(j)
	}
}

// run executes one job, turning a panic into a failed Result.
func (p *Pool) run(j job) (res Result) {
	res.Seq = j.seq
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("scan task panicked",
				"seq", j.seq,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			res.Occurrences = nil
			res.Err = fmt.Errorf("task %d panicked: %v", j.seq, r)
		}
	}()
	res.Occurrences, res.Err = j.task()
	return res
}
