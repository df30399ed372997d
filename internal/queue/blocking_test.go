package queue

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushPopFIFO(t *testing.T) {
	q := NewBlocking[int](0)
	for i := 0; i < 5; i++ {
		q.Push(i)
	}
	require.Equal(t, 5, q.Len())
	for i := 0; i < 5; i++ {
		v, st := q.TryPop()
		require.Equal(t, PopOK, st)
		require.Equal(t, i, v)
	}
	_, st := q.TryPop()
	assert.Equal(t, PopEmpty, st)
}

func TestCloseDrainsThenReportsClosed(t *testing.T) {
	q := NewBlocking[string](0)
	q.Push("a")
	q.Push("b")
	q.Close()

	v, st := q.WaitPop()
	require.Equal(t, PopOK, st)
	require.Equal(t, "a", v)

	v, st = q.TryPop()
	require.Equal(t, PopOK, st)
	require.Equal(t, "b", v)

	_, st = q.WaitPop()
	assert.Equal(t, PopClosed, st)
	_, st = q.TryPop()
	assert.Equal(t, PopClosed, st)

	// Push after close is a silent drop.
	q.Push("c")
	_, st = q.TryPop()
	assert.Equal(t, PopClosed, st)
}

func TestWaitPopBlocksUntilPush(t *testing.T) {
	q := NewBlocking[int](0)
	done := make(chan int, 1)
	go func() {
		v, st := q.WaitPop()
		if st == PopOK {
			done <- v
		}
	}()

	time.Sleep(10 * time.Millisecond)
	q.Push(42)

	select {
	case v := <-done:
		assert.Equal(t, 42, v)
	case <-time.After(time.Second):
		t.Fatal("WaitPop did not wake")
	}
}

func TestBoundedPushBlocksUntilSpace(t *testing.T) {
	q := NewBlocking[int](1)
	q.Push(1)

	pushed := make(chan struct{})
	go func() {
		q.Push(2)
		close(pushed)
	}()

	select {
	case <-pushed:
		t.Fatal("push should block while full")
	case <-time.After(20 * time.Millisecond):
	}

	v, st := q.WaitPop()
	require.Equal(t, PopOK, st)
	require.Equal(t, 1, v)

	select {
	case <-pushed:
	case <-time.After(time.Second):
		t.Fatal("push did not unblock after pop")
	}
}

func TestCloseWakesBlockedProducer(t *testing.T) {
	q := NewBlocking[int](1)
	q.Push(1)

	released := make(chan struct{})
	go func() {
		q.Push(2) // dropped on close
		close(released)
	}()

	time.Sleep(10 * time.Millisecond)
	q.Close()

	select {
	case <-released:
	case <-time.After(time.Second):
		t.Fatal("close did not wake blocked producer")
	}

	v, st := q.WaitPop()
	require.Equal(t, PopOK, st)
	require.Equal(t, 1, v)
	_, st = q.WaitPop()
	assert.Equal(t, PopClosed, st)
}

func TestTimedPopDeadline(t *testing.T) {
	q := NewBlocking[int](0)

	start := time.Now()
	_, st := q.TimedPop(30 * time.Millisecond)
	require.Equal(t, PopEmpty, st)
	assert.GreaterOrEqual(t, time.Since(start), 25*time.Millisecond)

	q.Push(7)
	v, st := q.TimedPop(time.Second)
	require.Equal(t, PopOK, st)
	assert.Equal(t, 7, v)
}

func TestConcurrentProducersPreserveItems(t *testing.T) {
	q := NewBlocking[int](64)
	const producers = 4
	const perProducer = 500

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Push(base + i)
			}
		}(p * perProducer)
	}

	seen := make(map[int]bool, producers*perProducer)
	var consumer sync.WaitGroup
	consumer.Add(1)
	go func() {
		defer consumer.Done()
		for {
			v, st := q.WaitPop()
			if st != PopOK {
				return
			}
			seen[v] = true
		}
	}()

	wg.Wait()
	q.Close()
	consumer.Wait()

	require.Len(t, seen, producers*perProducer)
}

func BenchmarkPushPop(b *testing.B) {
	q := NewBlocking[int](0)
	for b.Loop() {
		q.Push(1)
		q.TryPop()
	}
}
