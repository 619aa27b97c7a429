package hg

import (
	"context"
	"fmt"
	"sync"
	"time"

	cmap "github.com/orcaman/concurrent-map"
	"golang.org/x/sync/semaphore"

	"github.com/gerunddev/hgazy/hg/internal/trace"
)

// Default scheduling parameters.
const (
	DefaultRefreshDelay = 300 * time.Millisecond
	DefaultRescanDelay  = 300 * time.Millisecond
	DefaultWorkers      = 2
)

// Task is one unit of scheduled work.
type Task func(ctx context.Context)

// Queue is a debounced, keyed work queue. Enqueueing a key that is
// already pending coalesces into the pending task and restarts its quiet
// period. A key never runs twice at once: events for a running key are
// folded into a single follow-up run.
type Queue struct {
	name  string
	delay time.Duration
	sem   *semaphore.Weighted
	tasks cmap.ConcurrentMap // key -> *pending

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex // guards closed and wg.Add
	closed bool
	wg     sync.WaitGroup
}

type pending struct {
	mu        sync.Mutex
	timer     *time.Timer
	task      Task
	scheduled bool // timer armed
	running   bool
	dirty     bool // enqueued while running
	removed   bool // dropped from the map by Cancel
	runs      int
}

// NewQueue returns a queue that waits delay after the last event of a key
// and runs at most workers tasks at once.
func NewQueue(name string, delay time.Duration, workers int) *Queue {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Queue{
		name:   name,
		delay:  delay,
		sem:    semaphore.NewWeighted(int64(workers)),
		tasks:  cmap.New(),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (q *Queue) entry(key string) *pending {
	v := q.tasks.Upsert(key, nil, func(exist bool, inMap, _ interface{}) interface{} {
		if exist {
			return inMap
		}
		return &pending{}
	})
	return v.(*pending)
}

// Enqueue schedules task under key. The latest task given for a key is
// the one that runs. It returns false once the queue is closed.
func (q *Queue) Enqueue(key string, task Task) bool {
	if q.isClosed() {
		return false
	}
	e := q.entry(key)
	e.mu.Lock()
	for e.removed {
		e.mu.Unlock()
		e = q.entry(key)
		e.mu.Lock()
	}
	defer e.mu.Unlock()

	e.task = task
	switch {
	case e.running:
		e.dirty = true
	case e.scheduled:
		// Stop fails when the timer already fired and fire is waiting on
		// e.mu; it will pick up this task.
		if e.timer.Stop() {
			e.timer.Reset(q.delay)
		}
	default:
		e.arm(q.delay, func() { q.fire(key, e) })
	}
	return true
}

func (e *pending) arm(d time.Duration, f func()) {
	e.scheduled = true
	if e.timer == nil {
		e.timer = time.AfterFunc(d, f)
		return
	}
	e.timer.Reset(d)
}

func (q *Queue) fire(key string, e *pending) {
	e.mu.Lock()
	if !e.scheduled || e.running {
		e.mu.Unlock()
		return
	}
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		e.mu.Unlock()
		return
	}
	q.wg.Add(1)
	q.mu.Unlock()

	e.scheduled = false
	e.running = true
	task := e.task
	e.mu.Unlock()

	defer q.wg.Done()
	if err := q.sem.Acquire(q.ctx, 1); err != nil {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
		return
	}
	q.run(key, task)
	q.sem.Release(1)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.running = false
	e.runs++
	if e.dirty && !q.isClosed() {
		e.dirty = false
		e.arm(q.delay, func() { q.fire(key, e) })
	}
}

// run executes one task. A panic ends only that task.
func (q *Queue) run(key string, task Task) {
	done := trace.Op("queue."+q.name, "key", key)
	var err error
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
		done(err)
	}()
	task(q.ctx)
}

// Pending reports whether key has a task waiting or running.
func (q *Queue) Pending(key string) bool {
	v, ok := q.tasks.Get(key)
	if !ok {
		return false
	}
	e := v.(*pending)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scheduled || e.running || e.dirty
}

// Runs returns how many times the task of key has completed.
func (q *Queue) Runs(key string) int {
	v, ok := q.tasks.Get(key)
	if !ok {
		return 0
	}
	e := v.(*pending)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.runs
}

// Cancel drops the pending work of key. A running task is allowed to
// finish but gets no follow-up. Its entry stays until then, so a task
// enqueued after Cancel waits for it instead of running alongside.
func (q *Queue) Cancel(key string) {
	q.tasks.RemoveCb(key, func(_ string, v interface{}, exists bool) bool {
		if !exists {
			return false
		}
		e := v.(*pending)
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.timer != nil {
			e.timer.Stop()
		}
		e.scheduled = false
		e.dirty = false
		e.removed = !e.running
		return e.removed
	})
}

// Close cancels all pending work, signals running tasks through their
// context and waits for them to return. It must not be called from a task.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	for key := range q.tasks.Items() {
		q.Cancel(key)
	}
	q.cancel()
	q.wg.Wait()
}

func (q *Queue) isClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Scheduler groups the queues of the repositories it serves: metadata
// refresh, ignored-file rescans and config reloads each get their own
// queue so a slow rescan never delays a refresh.
type Scheduler struct {
	refresh *Queue
	rescan  *Queue
	config  *Queue
}

// NewScheduler builds a scheduler. Zero durations and worker counts take
// the defaults.
func NewScheduler(refreshDelay, rescanDelay time.Duration, workers int) *Scheduler {
	if refreshDelay <= 0 {
		refreshDelay = DefaultRefreshDelay
	}
	if rescanDelay <= 0 {
		rescanDelay = DefaultRescanDelay
	}
	return &Scheduler{
		refresh: NewQueue("refresh", refreshDelay, workers),
		rescan:  NewQueue("rescan", rescanDelay, workers),
		config:  NewQueue("config", refreshDelay, 1),
	}
}

// Refresh schedules a metadata refresh for key.
func (s *Scheduler) Refresh(key string, task Task) bool { return s.refresh.Enqueue(key, task) }

// Rescan schedules an ignored-file rescan for key.
func (s *Scheduler) Rescan(key string, task Task) bool { return s.rescan.Enqueue(key, task) }

// Config schedules a config reload for key.
func (s *Scheduler) Config(key string, task Task) bool { return s.config.Enqueue(key, task) }

// Cancel drops everything pending for key on all queues.
func (s *Scheduler) Cancel(key string) {
	s.refresh.Cancel(key)
	s.rescan.Cancel(key)
	s.config.Cancel(key)
}

// Close shuts all queues down.
func (s *Scheduler) Close() {
	s.refresh.Close()
	s.rescan.Close()
	s.config.Close()
}
