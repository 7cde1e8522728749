package parallel

import (
	"errors"
	"runtime"
	"sync/atomic"
	"testing"
	"time"
)

// =============================================================================
// WorkerPool Creation Tests
// =============================================================================

func TestWorkerPool_Create(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	if pool.Workers() != 4 {
		t.Errorf("Workers() = %d, want 4", pool.Workers())
	}
	if !pool.IsRunning() {
		t.Error("Pool should be running after creation")
	}
}

func TestWorkerPool_CreateDefaultWorkers(t *testing.T) {
	for _, n := range []int{0, -5} {
		pool := NewWorkerPool(n)
		if pool.Workers() != runtime.GOMAXPROCS(0) {
			t.Errorf("NewWorkerPool(%d).Workers() = %d, want GOMAXPROCS", n, pool.Workers())
		}
		pool.Close()
	}
}

// =============================================================================
// Dispatch / ExecuteAll Tests
// =============================================================================

func TestWorkerPool_ExecuteAll(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	var counter atomic.Int64
	work := make([]func(), 100)
	for i := range work {
		work[i] = func() { counter.Add(1) }
	}
	if err := pool.ExecuteAll(work); err != nil {
		t.Fatalf("ExecuteAll: %v", err)
	}
	if counter.Load() != 100 {
		t.Errorf("counter = %d, want 100", counter.Load())
	}
}

func TestWorkerPool_ExecuteAllEmpty(t *testing.T) {
	pool := NewWorkerPool(2)
	defer pool.Close()

	if err := pool.ExecuteAll(nil); err != nil {
		t.Errorf("ExecuteAll(nil) = %v", err)
	}
}

func TestWorkerPool_DispatchDoesNotWait(t *testing.T) {
	pool := NewWorkerPool(2)
	defer pool.Close()

	release := make(chan struct{})
	var done atomic.Int64
	work := []func(){
		func() { <-release; done.Add(1) },
		func() { <-release; done.Add(1) },
	}

	batch := pool.Dispatch(work)
	if batch.Len() != 2 {
		t.Errorf("Len() = %d, want 2", batch.Len())
	}
	if done.Load() != 0 {
		t.Fatal("work finished before release")
	}
	close(release)
	if err := batch.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if done.Load() != 2 {
		t.Errorf("done = %d after Wait, want 2", done.Load())
	}
}

func TestWorkerPool_DisjointWrites(t *testing.T) {
	pool := NewWorkerPool(3)
	defer pool.Close()

	out := make([]int, 1000)
	bands := Split(len(out), pool.Workers()*BandsPerWorker)
	work := make([]func(), len(bands))
	for i, b := range bands {
		work[i] = func() {
			for j := b.Start; j < b.End; j++ {
				out[j] = j * 2
			}
		}
	}
	if err := pool.ExecuteAll(work); err != nil {
		t.Fatal(err)
	}
	for j, v := range out {
		if v != j*2 {
			t.Fatalf("out[%d] = %d, want %d", j, v, j*2)
		}
	}
}

func TestWorkerPool_WorkStealing(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	// The first item is slow; the others are stolen around it.
	var done atomic.Int64
	work := make([]func(), 40)
	for i := range work {
		if i == 0 {
			work[i] = func() { time.Sleep(50 * time.Millisecond); done.Add(1) }
			continue
		}
		work[i] = func() { done.Add(1) }
	}
	if err := pool.ExecuteAll(work); err != nil {
		t.Fatal(err)
	}
	if done.Load() != 40 {
		t.Errorf("done = %d, want 40", done.Load())
	}
}

// =============================================================================
// Close Tests
// =============================================================================

func TestWorkerPool_CloseIdempotent(t *testing.T) {
	pool := NewWorkerPool(2)
	pool.Close()
	pool.Close()
	if pool.IsRunning() {
		t.Error("pool still running after Close")
	}
}

func TestWorkerPool_DispatchAfterClose(t *testing.T) {
	pool := NewWorkerPool(2)
	pool.Close()

	var ran atomic.Bool
	batch := pool.Dispatch([]func(){func() { ran.Store(true) }})
	err := batch.Wait()
	if !errors.Is(err, ErrPoolClosed) {
		t.Errorf("Wait() = %v, want ErrPoolClosed", err)
	}
	if ran.Load() {
		t.Error("work ran on a closed pool")
	}
}

func TestWorkerPool_CloseRunsQueuedWork(t *testing.T) {
	pool := NewWorkerPool(1)

	var counter atomic.Int64
	work := make([]func(), 5)
	for i := range work {
		work[i] = func() { counter.Add(1) }
	}
	batch := pool.Dispatch(work)
	pool.Close()
	if err := batch.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if counter.Load() != 5 {
		t.Errorf("counter = %d, want 5", counter.Load())
	}
}

func TestWorkerPool_QueuedWork(t *testing.T) {
	pool := NewWorkerPool(2)
	defer pool.Close()
	if pool.QueuedWork() != 0 {
		t.Errorf("QueuedWork() = %d on idle pool", pool.QueuedWork())
	}
}

// =============================================================================
// Benchmarks
// =============================================================================

func BenchmarkWorkerPool_ExecuteAll(b *testing.B) {
	pool := NewWorkerPool(0)
	defer pool.Close()

	work := make([]func(), pool.Workers()*BandsPerWorker)
	for i := range work {
		work[i] = func() {}
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = pool.ExecuteAll(work)
	}
}
