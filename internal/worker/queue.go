// Package worker runs evaluation tasks off an in-memory bounded queue.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lshigami/fluency/internal/metrics"
)

const defaultQueueSize = 256

// Task asks for one recording to be pushed through the evaluation pipeline.
type Task struct {
	ID          string
	RecordingID uint
	EnqueuedAt  time.Time
}

func NewTask(recordingID uint) Task {
	return Task{ID: uuid.NewString(), RecordingID: recordingID, EnqueuedAt: time.Now()}
}

// Queue is a bounded FIFO. Enqueue never blocks: a full or closed queue
// rejects the task and the caller is expected to re-trigger later.
type Queue struct {
	tasks  chan Task
	mu     sync.RWMutex
	closed bool
}

func NewQueue(size int) *Queue {
	if size < 1 {
		size = defaultQueueSize
	}
	return &Queue{tasks: make(chan Task, size)}
}

func (q *Queue) Enqueue(ctx context.Context, t Task) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordRejectedTask()
		return false
	}

	select {
	case q.tasks <- t:
		metrics.SetQueueDepth(len(q.tasks))
		return true
	case <-ctx.Done():
		metrics.RecordRejectedTask()
		return false
	default:
		metrics.RecordRejectedTask()
		return false
	}
}

// Tasks is closed once the queue is closed and drained.
func (q *Queue) Tasks() <-chan Task {
	return q.tasks
}

func (q *Queue) Len() int {
	return len(q.tasks)
}

func (q *Queue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.tasks)
	q.closed = true
	return nil
}

func (q *Queue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
