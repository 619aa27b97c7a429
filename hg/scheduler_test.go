package hg

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	quiet   = 20 * time.Millisecond
	settle  = 150 * time.Millisecond
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

func TestQueue_CoalescesBurst(t *testing.T) {
	q := NewQueue("test", quiet, 2)
	defer q.Close()

	var runs atomic.Int32
	for i := 0; i < 25; i++ {
		require.True(t, q.Enqueue("repo", func(context.Context) { runs.Add(1) }))
	}

	assert.Eventually(t, func() bool { return runs.Load() == 1 }, waitFor, tick)
	time.Sleep(settle)
	assert.Equal(t, int32(1), runs.Load())
	assert.Equal(t, 1, q.Runs("repo"))
	assert.False(t, q.Pending("repo"))
}

func TestQueue_SingleFollowUp(t *testing.T) {
	q := NewQueue("test", quiet, 4)
	defer q.Close()

	var runs, active, maxActive atomic.Int32
	started := make(chan struct{}, 8)
	release := make(chan struct{})

	task := func(context.Context) {
		n := active.Add(1)
		if n > maxActive.Load() {
			maxActive.Store(n)
		}
		defer active.Add(-1)
		if runs.Add(1) == 1 {
			started <- struct{}{}
			<-release
		}
	}

	q.Enqueue("repo", task)
	select {
	case <-started:
	case <-time.After(waitFor):
		t.Fatal("first run never started")
	}

	for i := 0; i < 10; i++ {
		q.Enqueue("repo", task)
	}
	time.Sleep(settle)
	assert.Equal(t, int32(1), runs.Load(), "no second run while the first is active")
	assert.True(t, q.Pending("repo"))

	close(release)
	assert.Eventually(t, func() bool { return runs.Load() == 2 }, waitFor, tick)
	time.Sleep(settle)
	assert.Equal(t, int32(2), runs.Load())
	assert.Equal(t, int32(1), maxActive.Load())
}

func TestQueue_LatestTaskWins(t *testing.T) {
	q := NewQueue("test", quiet, 1)
	defer q.Close()

	var got atomic.Value
	q.Enqueue("repo", func(context.Context) { got.Store("first") })
	q.Enqueue("repo", func(context.Context) { got.Store("second") })

	assert.Eventually(t, func() bool { return got.Load() != nil }, waitFor, tick)
	time.Sleep(settle)
	assert.Equal(t, "second", got.Load())
}

func TestQueue_KeysAreIndependent(t *testing.T) {
	q := NewQueue("test", quiet, 2)
	defer q.Close()

	var a, b atomic.Int32
	for i := 0; i < 5; i++ {
		q.Enqueue("a", func(context.Context) { a.Add(1) })
		q.Enqueue("b", func(context.Context) { b.Add(1) })
	}
	assert.Eventually(t, func() bool { return a.Load() == 1 && b.Load() == 1 }, waitFor, tick)
}

func TestQueue_Cancel(t *testing.T) {
	q := NewQueue("test", quiet, 1)
	defer q.Close()

	var runs atomic.Int32
	q.Enqueue("repo", func(context.Context) { runs.Add(1) })
	q.Cancel("repo")

	time.Sleep(settle)
	assert.Equal(t, int32(0), runs.Load())
	assert.False(t, q.Pending("repo"))
}

func TestQueue_EnqueueAfterCancelWaitsForRunningTask(t *testing.T) {
	q := NewQueue("test", quiet, 4)
	defer q.Close()

	var runs, active, maxActive atomic.Int32
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	task := func(context.Context) {
		n := active.Add(1)
		if n > maxActive.Load() {
			maxActive.Store(n)
		}
		defer active.Add(-1)
		if runs.Add(1) == 1 {
			started <- struct{}{}
			<-release
		}
	}

	q.Enqueue("repo", task)
	select {
	case <-started:
	case <-time.After(waitFor):
		t.Fatal("first run never started")
	}
	q.Cancel("repo")
	assert.True(t, q.Pending("repo"), "the running task is still tracked")

	q.Enqueue("repo", task)
	time.Sleep(settle)
	assert.Equal(t, int32(1), runs.Load(), "no second run while the first is active")

	close(release)
	assert.Eventually(t, func() bool { return runs.Load() == 2 }, waitFor, tick)
	assert.Equal(t, int32(1), maxActive.Load())
	assert.Eventually(t, func() bool { return !q.Pending("repo") }, waitFor, tick)
}

func TestQueue_PanicEndsOnlyThatTask(t *testing.T) {
	q := NewQueue("test", quiet, 1)
	defer q.Close()

	q.Enqueue("repo", func(context.Context) { panic("metadata vanished") })
	assert.Eventually(t, func() bool { return q.Runs("repo") == 1 }, waitFor, tick)

	var runs atomic.Int32
	q.Enqueue("repo", func(context.Context) { runs.Add(1) })
	assert.Eventually(t, func() bool { return runs.Load() == 1 }, waitFor, tick)
}

func TestQueue_Close(t *testing.T) {
	q := NewQueue("test", time.Hour, 1)

	var runs atomic.Int32
	q.Enqueue("repo", func(context.Context) { runs.Add(1) })
	q.Close()
	q.Close()

	assert.False(t, q.Enqueue("repo", func(context.Context) { runs.Add(1) }))
	assert.Equal(t, int32(0), runs.Load())
}

func TestQueue_CloseCancelsRunningContext(t *testing.T) {
	q := NewQueue("test", quiet, 1)

	started := make(chan struct{})
	var sawCancel atomic.Bool
	q.Enqueue("repo", func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		sawCancel.Store(true)
	})
	<-started
	q.Close()
	assert.True(t, sawCancel.Load())
}

func TestScheduler_SeparateQueues(t *testing.T) {
	s := NewScheduler(quiet, quiet, 1)
	defer s.Close()

	block := make(chan struct{})
	var refreshed atomic.Int32
	s.Rescan("repo", func(context.Context) { <-block })
	s.Refresh("repo", func(context.Context) { refreshed.Add(1) })

	assert.Eventually(t, func() bool { return refreshed.Load() == 1 }, waitFor, tick,
		"a running rescan must not hold up refresh")
	close(block)
}

func TestScheduler_Cancel(t *testing.T) {
	s := NewScheduler(quiet, quiet, 1)
	defer s.Close()

	var runs atomic.Int32
	s.Refresh("repo", func(context.Context) { runs.Add(1) })
	s.Rescan("repo", func(context.Context) { runs.Add(1) })
	s.Config("repo", func(context.Context) { runs.Add(1) })
	s.Cancel("repo")

	time.Sleep(settle)
	assert.Equal(t, int32(0), runs.Load())
}
