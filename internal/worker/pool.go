package worker

import (
	"context"
	"sync"
)

// Job represents a unit of work to be executed
type Job interface {
	Execute(ctx context.Context) Result
}

// Result represents the result of a job execution
type Result interface {
	GetError() error
}

// indexed carries a job's submission position through the pool
type indexed struct {
	pos    int
	job    Job
	result Result
}

// Pool runs jobs on a fixed number of workers. Wait returns results in
// submission order regardless of completion order.
type Pool struct {
	workers    int
	jobQueue   chan indexed
	results    chan indexed
	submitted  int
	started    bool
	collected  map[int]Result
	done       chan struct{}
	wg         sync.WaitGroup
	ctx        context.Context
	cancelFunc context.CancelFunc
	closeOnce  sync.Once
}

// NewPool creates a pool bound to ctx with the specified number of workers
func NewPool(ctx context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(ctx)

	return &Pool{
		workers:    workers,
		jobQueue:   make(chan indexed, workers*2),
		results:    make(chan indexed, workers*2),
		collected:  make(map[int]Result),
		done:       make(chan struct{}),
		ctx:        ctx,
		cancelFunc: cancel,
	}
}

// Start starts the worker goroutines and the result collector
func (p *Pool) Start() {
	if p.started {
		return
	}
	p.started = true
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	go p.collect()
}

// collect drains results while jobs are still being submitted
func (p *Pool) collect() {
	defer close(p.done)
	for item := range p.results {
		p.collected[item.pos] = item.result
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case item, ok := <-p.jobQueue:
			if !ok {
				return
			}
			item.result = item.job.Execute(p.ctx)
			select {
			case p.results <- item:
			case <-p.ctx.Done():
				return
			}
		}
	}
}

// Submit queues a job. It reports false if the pool was cancelled first.
// Submit must not be called concurrently with itself or after Wait.
func (p *Pool) Submit(job Job) bool {
	select {
	case <-p.ctx.Done():
		return false
	case p.jobQueue <- indexed{pos: p.submitted, job: job}:
		p.submitted++
		return true
	}
}

// Wait closes the queue, waits for the workers, and returns one slot per
// submitted job. Slots of jobs lost to cancellation are nil.
func (p *Pool) Wait() []Result {
	p.Start()
	close(p.jobQueue)
	p.wg.Wait()
	p.closeResults()
	<-p.done

	results := make([]Result, p.submitted)
	for pos, r := range p.collected {
		results[pos] = r
	}
	p.cancelFunc()
	return results
}

// Shutdown stops the pool immediately
func (p *Pool) Shutdown() {
	p.cancelFunc()
	p.wg.Wait()
	p.closeResults()
	if p.started {
		<-p.done
	}
}

func (p *Pool) closeResults() {
	p.closeOnce.Do(func() {
		close(p.results)
	})
}
