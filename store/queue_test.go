package store

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestWriteQueue_ReturnsOperationError(t *testing.T) {
	q := NewWriteQueue("test")
	defer q.Close()

	want := errors.New("disk full")
	if err := q.Do(func() error { return want }); !errors.Is(err, want) {
		t.Errorf("Do() error = %v, want %v", err, want)
	}

	if err := q.Do(func() error { return nil }); err != nil {
		t.Errorf("Do() after failure error = %v, want nil", err)
	}
}

func TestWriteQueue_SurvivesPanic(t *testing.T) {
	q := NewWriteQueue("test")
	defer q.Close()

	err := q.Do(func() error { panic("boom") })
	if err == nil {
		t.Fatal("Expected an error from a panicking operation")
	}

	ran := false
	if err := q.Do(func() error { ran = true; return nil }); err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if !ran {
		t.Error("Operation after a panic did not run")
	}
}

func TestWriteQueue_NeverOverlaps(t *testing.T) {
	q := NewWriteQueue("test")
	defer q.Close()

	var active, maxActive int32
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.Do(func() error {
				n := atomic.AddInt32(&active, 1)
				for {
					m := atomic.LoadInt32(&maxActive)
					if n <= m || atomic.CompareAndSwapInt32(&maxActive, m, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&active, -1)
				return nil
			})
		}()
	}
	wg.Wait()

	if maxActive != 1 {
		t.Errorf("Expected at most 1 concurrent operation, saw %d", maxActive)
	}
}

func TestWriteQueue_RunsInEnqueueOrder(t *testing.T) {
	q := NewWriteQueue("test")
	defer q.Close()

	var mu sync.Mutex
	var order []int

	// Each Do returns before the next is issued, so enqueue order is fixed
	for i := 0; i < 20; i++ {
		i := i
		q.Do(func() error {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return nil
		})
	}

	for i, got := range order {
		if got != i {
			t.Fatalf("order[%d] = %d, want %d", i, got, i)
		}
	}
}

func TestWriteQueue_LaterOperationWaitsForEarlier(t *testing.T) {
	q := NewWriteQueue("test")
	defer q.Close()

	release := make(chan struct{})
	started := make(chan struct{})
	firstDone := make(chan struct{})

	go func() {
		q.Do(func() error {
			close(started)
			<-release
			return errors.New("first failed")
		})
		close(firstDone)
	}()
	<-started

	secondRan := make(chan struct{})
	go func() {
		q.Do(func() error {
			close(secondRan)
			return nil
		})
	}()

	select {
	case <-secondRan:
		t.Fatal("Second operation ran while the first was still in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	<-firstDone

	select {
	case <-secondRan:
	case <-time.After(time.Second):
		t.Fatal("Second operation did not run after the first failed")
	}
}

func TestWriteQueue_Close(t *testing.T) {
	q := NewWriteQueue("test")
	q.Close()
	q.Close() // Should not panic

	if err := q.Do(func() error { return nil }); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("Do() after Close error = %v, want ErrQueueClosed", err)
	}
}
