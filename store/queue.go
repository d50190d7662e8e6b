package store

import (
	"fmt"
	"sync"

	"github.com/CharlesToronto/brotherstudio/metrics"
	"github.com/rs/zerolog/log"
)

const defaultQueueBuffer = 256

type queuedOp struct {
	run    func() error
	result chan error
}

// WriteQueue runs operations one at a time in the order they were
// enqueued. An operation starts only after every earlier operation has
// returned, whether it succeeded, failed or panicked.
type WriteQueue struct {
	name  string
	ops   chan queuedOp
	done  chan struct{}
	mu    sync.RWMutex
	once  sync.Once

	closed bool
}

// NewWriteQueue starts the worker goroutine. Call Close to stop it.
func NewWriteQueue(name string) *WriteQueue {
	q := &WriteQueue{
		name: name,
		ops:  make(chan queuedOp, defaultQueueBuffer),
		done: make(chan struct{}),
	}
	go q.worker()
	return q
}

func (q *WriteQueue) worker() {
	defer close(q.done)

	for op := range q.ops {
		metrics.WriteQueueDepth.WithLabelValues(q.name).Set(float64(len(q.ops)))
		op.result <- q.execute(op.run)
	}
}

func (q *WriteQueue) execute(run func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("queue", q.name).
				Interface("panic", r).
				Msg("Queued write panicked")
			err = fmt.Errorf("queued write panicked: %v", r)
		}
	}()
	return run()
}

// Do enqueues op and blocks until it has run, returning its error.
func (q *WriteQueue) Do(op func() error) error {
	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		return ErrQueueClosed
	}

	result := make(chan error, 1)
	q.ops <- queuedOp{run: op, result: result}
	metrics.WriteQueueDepth.WithLabelValues(q.name).Set(float64(len(q.ops)))
	q.mu.RUnlock()

	return <-result
}

// Close stops accepting operations, lets pending ones finish and waits
// for the worker to exit. It is safe to call more than once.
func (q *WriteQueue) Close() {
	q.once.Do(func() {
		q.mu.Lock()
		q.closed = true
		close(q.ops)
		q.mu.Unlock()
		<-q.done
	})
}
