// Package queue implements the bounded FIFO transformation queue that
// bridges the metadata ingester and the transformation worker pool.
package queue

import (
	"context"
	"sync/atomic"

	"github.com/aborroy/alfresco-lake-bridge/internal/ingest"
)

// Queue is a bounded FIFO of transformation tasks with atomic
// pending/completed/failed counters.
type Queue struct {
	ch        chan ingest.TransformationTask
	pending   int64
	completed int64
	failed    int64
}

// New constructs a Queue with the given capacity.
func New(capacity int) *Queue {
	return &Queue{ch: make(chan ingest.TransformationTask, capacity)}
}

// Enqueue blocks when the queue is full, or until ctx is done.
func (q *Queue) Enqueue(ctx context.Context, task ingest.TransformationTask) error {
	select {
	case q.ch <- task:
		atomic.AddInt64(&q.pending, 1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dequeue blocks until a task is available, the queue is closed, or ctx is
// done. ok is false when the queue is closed and drained.
func (q *Queue) Dequeue(ctx context.Context) (ingest.TransformationTask, bool, error) {
	select {
	case task, ok := <-q.ch:
		if !ok {
			return ingest.TransformationTask{}, false, nil
		}
		return task, true, nil
	case <-ctx.Done():
		return ingest.TransformationTask{}, false, ctx.Err()
	}
}

// MarkCompleted atomically moves a task from pending to completed.
func (q *Queue) MarkCompleted() {
	atomic.AddInt64(&q.pending, -1)
	atomic.AddInt64(&q.completed, 1)
}

// MarkFailed atomically moves a task from pending to failed.
func (q *Queue) MarkFailed() {
	atomic.AddInt64(&q.pending, -1)
	atomic.AddInt64(&q.failed, 1)
}

// Counters is a snapshot of the queue's state.
type Counters struct {
	Pending   int64
	Completed int64
	Failed    int64
	QueueSize int
}

// Snapshot returns the current counters and the queue's buffered length.
func (q *Queue) Snapshot() Counters {
	return Counters{
		Pending:   atomic.LoadInt64(&q.pending),
		Completed: atomic.LoadInt64(&q.completed),
		Failed:    atomic.LoadInt64(&q.failed),
		QueueSize: len(q.ch),
	}
}

// Clear drains any buffered, not-yet-dequeued tasks and resets pending to
// zero; historical completed/failed counts are preserved. Idempotent.
func (q *Queue) Clear() {
	for {
		select {
		case <-q.ch:
		default:
			atomic.StoreInt64(&q.pending, 0)
			return
		}
	}
}
