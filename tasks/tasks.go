package tasks

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Task is one unit of background work submitted fire-and-forget.
type Task struct {
	ID         string
	Name       string
	Run        func(ctx context.Context) error
	EnqueuedAt time.Time
}

// Dispatcher runs submitted tasks on a fixed worker pool. Completion is not
// awaited by callers and a failed task never propagates back; it is logged.
type Dispatcher struct {
	queue chan Task
	wg    sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

func NewDispatcher(workers, buffer int) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if buffer <= 0 {
		buffer = 64
	}
	d := &Dispatcher{queue: make(chan Task, buffer)}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

// Submit enqueues a task and returns its id. When the queue is full the task
// is dropped with a log line rather than blocking the request path.
func (d *Dispatcher) Submit(name string, run func(ctx context.Context) error) string {
	t := Task{ID: uuid.NewString(), Name: name, Run: run, EnqueuedAt: time.Now()}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		log.Printf("[TASKS] dispatcher closed, dropping %s (%s)", name, t.ID)
		return t.ID
	}
	select {
	case d.queue <- t:
	default:
		log.Printf("[TASKS] queue full, dropping %s (%s)", name, t.ID)
	}
	return t.ID
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for t := range d.queue {
		d.run(t)
	}
}

func (d *Dispatcher) run(t Task) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("[TASKS] %s (%s) panic: %v", t.Name, t.ID, rec)
		}
	}()
	if err := t.Run(context.Background()); err != nil {
		log.Printf("[TASKS] %s (%s) failed: %v", t.Name, t.ID, err)
		return
	}
	log.Printf("[TASKS] %s (%s) done", t.Name, t.ID)
}

// Shutdown stops intake and waits for in-flight tasks, up to ctx.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
