// Package worker runs transcription jobs against the speech-to-text backend.
//
// The number of workers is the number of transcriptions that may be in flight
// at once; a backend that is not safe for concurrent use runs with one worker.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/okian/parrot/internal/domain/model"
	"github.com/okian/parrot/pkg/logger"
	"github.com/okian/parrot/pkg/metrics"
	"github.com/okian/parrot/pkg/provider/stt"
)

// Default worker configuration constants.
const (
	defaultWorkerCount  = 1
	poolShutdownTimeout = 30 * time.Second
)

// Job abstracts what workers read off the queue.
type Job = model.TranscriptionJob

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Job
}

// Worker processes transcription jobs.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker after its current job.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker for processing jobs.
type InMemoryWorker struct {
	queue       Queue
	transcriber stt.Transcriber
	name        string
	jobTimeout  time.Duration
	processed   *atomic.Int64

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, transcriber stt.Transcriber, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:       queue,
		transcriber: transcriber,
		name:        "worker",
		processed:   new(atomic.Int64),
		shutdown:    make(chan struct{}),
		done:        make(chan struct{}),
		logger:      logger.Get().Named("worker"),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}

	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			w.processJob(ctx, job)
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Processed returns how many jobs this worker has answered.
func (w *InMemoryWorker) Processed() int64 {
	return w.processed.Load()
}

// processJob transcribes one job and replies on its channel.
func (w *InMemoryWorker) processJob(ctx context.Context, job Job) { //nolint:gocritic // hugeParam: Job is passed by value for channel semantics
	metrics.RecordQueueDequeue(float64(time.Since(job.EnqueuedAt).Milliseconds()))

	if job.Abandoned() {
		w.logger.Debug(ctx, "skipping abandoned job", logger.String("job_id", job.ID))
		metrics.RecordErrorByComponent("worker", "abandoned")
		job.Respond(model.TranscriptionResult{Err: context.Canceled})
		return
	}

	jobCtx, cancel := w.jobContext(ctx, job)
	defer cancel()

	metrics.WorkerBusy(1)
	defer metrics.WorkerBusy(-1)

	start := time.Now()
	text, err := w.transcriber.Transcribe(jobCtx, stt.Request{
		Audio:       job.Audio,
		Language:    job.Language,
		Hint:        job.Hint,
		Temperature: job.Temperature,
	})
	elapsed := time.Since(start)

	metrics.RecordWorkerProcessingLatency(float64(elapsed.Milliseconds()))
	metrics.RecordTranscription(job.Language, float64(elapsed.Milliseconds()), err != nil)

	if err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "transcription_error")
		metrics.RecordErrorByType("transcription_error", "high")
		w.logger.Error(ctx, "transcription failed",
			logger.String("job_id", job.ID),
			logger.String("language", job.Language),
			logger.Error(err),
		)
	} else {
		w.logger.Debug(ctx, "transcription done",
			logger.String("job_id", job.ID),
			logger.Duration("took", elapsed),
		)
	}

	w.processed.Add(1)
	job.Respond(model.TranscriptionResult{Text: text, Err: err, Duration: elapsed})
}

// jobContext derives a context that ends with the worker, the requester or
// the job timeout, whichever comes first.
func (w *InMemoryWorker) jobContext(ctx context.Context, job Job) (context.Context, context.CancelFunc) { //nolint:gocritic // hugeParam
	var (
		jobCtx context.Context
		cancel context.CancelFunc
	)
	if w.jobTimeout > 0 {
		jobCtx, cancel = context.WithTimeout(ctx, w.jobTimeout)
	} else {
		jobCtx, cancel = context.WithCancel(ctx)
	}
	if job.Done != nil {
		go func() {
			select {
			case <-job.Done:
				cancel()
			case <-jobCtx.Done():
			}
		}()
	}
	return jobCtx, cancel
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	logger logger.Logger
}

// NewPool creates a new worker pool.
func NewPool(workerCount int, queue Queue, transcriber stt.Transcriber, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = defaultWorkerCount
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   queue,
		logger:  logger.Get().Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		workerOpts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		pool.workers[i] = NewInMemoryWorker(queue, transcriber, workerOpts...)
	}

	metrics.UpdateWorkerCount(workerCount)

	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, worker := range p.workers {
		go worker.Run(ctx)
	}
	p.logger.Info(ctx, "worker pool started", logger.Int("workers", len(p.workers)))
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Processed returns the total number of jobs answered by the pool.
func (p *Pool) Processed() int64 {
	var total int64
	for _, w := range p.workers {
		total += w.Processed()
	}
	return total
}

// Shutdown closes the queue, lets workers drain it and waits for them.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, worker := range p.workers {
		select {
		case <-worker.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			return fmt.Errorf("worker pool shutdown: %w", shutdownCtx.Err())
		}
	}

	p.logger.Info(ctx, "worker pool stopped", logger.Int64("processed", p.Processed()))
	return nil
}
