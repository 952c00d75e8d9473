package utils

import (
	"context"
	"sync"
	"sync/atomic"
)

// WorkerPool runs submitted jobs on a fixed number of goroutines.
type WorkerPool struct {
	jobs chan func()
	wg   sync.WaitGroup
	once sync.Once
}

// NewWorkerPool starts maxWorkers goroutines. Values below 1 mean 1.
func NewWorkerPool(maxWorkers int) *WorkerPool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	wp := &WorkerPool{jobs: make(chan func())}
	wp.wg.Add(maxWorkers)
	for i := 0; i < maxWorkers; i++ {
		go func() {
			defer wp.wg.Done()
			for job := range wp.jobs {
				job()
			}
		}()
	}
	return wp
}

// Submit hands a job to the next idle worker, blocking while all are busy.
// Submit must not be called after Wait.
func (wp *WorkerPool) Submit(job func()) {
	wp.jobs <- job
}

// Wait blocks until all submitted jobs have completed and stops the workers.
func (wp *WorkerPool) Wait() {
	wp.once.Do(func() { close(wp.jobs) })
	wp.wg.Wait()
}

// Semaphore is a counting gate bounding in-flight operations.
type Semaphore struct {
	slots    chan struct{}
	inFlight atomic.Int64
	peak     atomic.Int64
}

// NewSemaphore creates a Semaphore with n permits. Values below 1 mean 1.
func NewSemaphore(n int) *Semaphore {
	if n < 1 {
		n = 1
	}
	return &Semaphore{slots: make(chan struct{}, n)}
}

// Acquire takes a permit or returns ctx.Err().
func (s *Semaphore) Acquire(ctx context.Context) error {
	select {
	case s.slots <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	cur := s.inFlight.Add(1)
	for {
		p := s.peak.Load()
		if cur <= p || s.peak.CompareAndSwap(p, cur) {
			break
		}
	}
	return nil
}

// Release returns a permit.
func (s *Semaphore) Release() {
	s.inFlight.Add(-1)
	<-s.slots
}

// Capacity is the number of permits.
func (s *Semaphore) Capacity() int { return cap(s.slots) }

// Peak is the highest number of permits held at once.
func (s *Semaphore) Peak() int { return int(s.peak.Load()) }

// IDSet is a thread-safe set of listing ids.
type IDSet struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewIDSet creates an empty IDSet.
func NewIDSet() *IDSet {
	return &IDSet{seen: make(map[string]struct{})}
}

// Add returns true if the id was newly added, false if already present.
func (s *IDSet) Add(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.seen[id]; exists {
		return false
	}
	s.seen[id] = struct{}{}
	return true
}
