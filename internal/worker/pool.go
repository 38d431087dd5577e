package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/lshigami/fluency/internal/metrics"
	"github.com/rs/zerolog/log"
)

const poolShutdownTimeout = 30 * time.Second

// Handler processes one task. Failures are the handler's to log; the task
// is not retried by the pool.
type Handler func(ctx context.Context, task Task)

// Pool runs a fixed number of goroutines consuming the queue.
type Pool struct {
	queue   *Queue
	handler Handler
	size    int

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewPool(size int, queue *Queue, handler Handler) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{queue: queue, handler: handler, size: size}
}

// Start launches the workers. The context bounds the lifetime of every
// task they run.
func (p *Pool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go p.run(ctx, "worker-"+strconv.Itoa(i))
	}
	log.Info().Int("workers", p.size).Msg("Evaluation worker pool started")
}

func (p *Pool) run(ctx context.Context, name string) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case task, ok := <-p.queue.Tasks():
			if !ok {
				return
			}
			metrics.SetQueueDepth(p.queue.Len())
			p.handle(ctx, name, task)
		}
	}
}

func (p *Pool) handle(ctx context.Context, name string, task Task) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("worker", name).
				Str("taskID", task.ID).
				Uint("recordingID", task.RecordingID).
				Interface("panic", r).
				Msg("Evaluation task panicked")
		}
	}()
	log.Debug().
		Str("worker", name).
		Str("taskID", task.ID).
		Uint("recordingID", task.RecordingID).
		Dur("waited", time.Since(task.EnqueuedAt)).
		Msg("Processing evaluation task")
	p.handler(ctx, task)
}

// Shutdown stops accepting tasks, lets workers drain what is already
// queued and waits for them, bounded by ctx.
func (p *Pool) Shutdown(ctx context.Context) error {
	if err := p.queue.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing evaluation queue")
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	select {
	case <-done:
		if p.cancel != nil {
			p.cancel()
		}
		return nil
	case <-shutdownCtx.Done():
		if p.cancel != nil {
			p.cancel()
		}
		return fmt.Errorf("worker pool shutdown timed out: %w", shutdownCtx.Err())
	}
}
