package parallel

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
)

// ErrPoolClosed is reported by Batch.Wait when the pool shut down before
// every work item of the batch was queued.
var ErrPoolClosed = errors.New("parallel: pool closed")

// WorkerPool is a pool of goroutines executing independent work items.
//
// Each worker owns a queue and steals from the other queues when its own is
// empty, which balances load when some items run much longer than others
// (escape-time rows near the set take far longer than rows outside it).
//
// Thread safety: WorkerPool is safe for concurrent use.
type WorkerPool struct {
	// workers is the number of worker goroutines.
	workers int

	// workQueues holds per-worker work queues.
	workQueues []chan func()

	// done signals workers to stop.
	done chan struct{}

	// wg waits for all workers to finish.
	wg sync.WaitGroup

	// running indicates whether the pool is accepting work.
	running atomic.Bool
}

// NewWorkerPool creates a pool with the given number of workers.
// If workers is 0 or negative, GOMAXPROCS is used.
// Workers start immediately and wait for work.
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	// 4x workers of buffering hides submission latency.
	queueSize := max(workers*4, 8)

	p := &WorkerPool{
		workers:    workers,
		workQueues: make([]chan func(), workers),
		done:       make(chan struct{}),
	}
	for i := range workers {
		p.workQueues[i] = make(chan func(), queueSize)
	}

	p.running.Store(true)

	p.wg.Add(workers)
	for i := range workers {
		go p.worker(i)
	}

	return p
}

// worker is the main loop of one worker goroutine.
func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	myQueue := p.workQueues[id]

	for {
		select {
		case <-p.done:
			p.drainQueue(myQueue)
			return

		case work := <-myQueue:
			work()

		default:
			if stolen := p.steal(id); stolen != nil {
				stolen()
				continue
			}
			// Nothing anywhere: block on own queue.
			select {
			case <-p.done:
				p.drainQueue(myQueue)
				return
			case work := <-myQueue:
				work()
			}
		}
	}
}

// drainQueue executes all remaining work in a queue.
func (p *WorkerPool) drainQueue(queue chan func()) {
	for {
		select {
		case work := <-queue:
			work()
		default:
			return
		}
	}
}

// steal takes one item from another worker's queue, or returns nil.
func (p *WorkerPool) steal(myID int) func() {
	for i := range p.workers {
		if i == myID {
			continue
		}
		select {
		case work := <-p.workQueues[i]:
			return work
		default:
		}
	}
	return nil
}

// Batch tracks completion of the work items of one Dispatch.
type Batch struct {
	wg      sync.WaitGroup
	total   int
	dropped atomic.Int64
}

// Len returns the number of work items in the batch.
func (b *Batch) Len() int {
	return b.total
}

// Wait blocks until every queued item of the batch has run. It returns
// ErrPoolClosed if the pool closed before all items were queued.
func (b *Batch) Wait() error {
	b.wg.Wait()
	if n := b.dropped.Load(); n > 0 {
		return fmt.Errorf("%w: %d of %d work items not run", ErrPoolClosed, n, b.total)
	}
	return nil
}

// Dispatch queues every item of work round-robin across the workers and
// returns without waiting for them to run. Dispatch blocks only while
// worker queues are full. Use the returned Batch to wait for completion.
func (p *WorkerPool) Dispatch(work []func()) *Batch {
	b := &Batch{total: len(work)}
	if len(work) == 0 {
		return b
	}
	b.wg.Add(len(work))

	if !p.running.Load() {
		b.dropped.Add(int64(len(work)))
		b.wg.Add(-len(work))
		return b
	}

	for i, fn := range work {
		wrapped := func() {
			defer b.wg.Done()
			fn()
		}
		select {
		case p.workQueues[i%p.workers] <- wrapped:
		case <-p.done:
			rest := len(work) - i
			b.dropped.Add(int64(rest))
			b.wg.Add(-rest)
			return b
		}
	}
	return b
}

// ExecuteAll runs every item of work and waits for all of them.
func (p *WorkerPool) ExecuteAll(work []func()) error {
	return p.Dispatch(work).Wait()
}

// Close stops accepting work, runs what is already queued and stops the
// workers. Close is safe to call multiple times.
func (p *WorkerPool) Close() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	close(p.done)
	p.wg.Wait()
}

// Workers returns the number of workers in the pool.
func (p *WorkerPool) Workers() int {
	return p.workers
}

// IsRunning returns true if the pool is still accepting work.
func (p *WorkerPool) IsRunning() bool {
	return p.running.Load()
}

// QueuedWork returns an approximate count of queued work items.
func (p *WorkerPool) QueuedWork() int {
	total := 0
	for _, q := range p.workQueues {
		total += len(q)
	}
	return total
}
