// Package service provides the pronunciation coach: it turns an uploaded
// recording and the sentence the learner meant to say into an accuracy
// score, feedback and a reference recording.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	eventqueue "github.com/okian/parrot/internal/adapters/mq/queue"
	workerpool "github.com/okian/parrot/internal/adapters/mq/worker"
	"github.com/okian/parrot/internal/adapters/repository"
	"github.com/okian/parrot/internal/domain/model"
	"github.com/okian/parrot/internal/domain/scoring"
	"github.com/okian/parrot/internal/domain/types"
	"github.com/okian/parrot/pkg/logger"
	"github.com/okian/parrot/pkg/metrics"
	"github.com/okian/parrot/pkg/provider/stt"
	"github.com/okian/parrot/pkg/provider/tts"
)

// Default service configuration constants.
const (
	defaultWorkerCount      = 1
	defaultQueueSize        = 32
	defaultRetention        = 24 * time.Hour
	defaultCleanupInterval  = time.Hour
	defaultTemperature      = 0.2
	defaultPropDecrease     = 0.9
	defaultTranscribeRate   = 16000
	defaultShutdownTimeout  = 10 * time.Second
	defaultSTTJobTimeout    = 0
	defaultRequestTimeout   = 3 * time.Minute
	storagePrefixUpload     = "uploaded"
	storagePrefixCleaned    = "cleaned"
	storagePrefixReference  = "tts"
	audioURLPrefix          = "/get_audio/"
	assessmentStatusSuccess = "success"
)

// Service implements the API dependencies for the pronunciation coach.
type Service struct {
	mu sync.RWMutex

	// Collaborators
	engine      *scoring.Engine
	store       repository.Store
	transcriber stt.Transcriber
	synthesizer tts.Synthesizer
	jobQueue    eventqueue.Queue
	workerPool  *workerpool.Pool

	// Configuration
	workerCount     int
	queueSize       int
	retention       time.Duration
	cleanupInterval time.Duration
	temperature     float64
	propDecrease    map[scoring.Language]float64
	sttJobTimeout   time.Duration
	requestTimeout  time.Duration

	// State
	started     bool
	stopCh      chan struct{}
	janitorDone chan struct{}
	cancel      context.CancelFunc

	assessments atomic.Int64
	failures    atomic.Int64
	purged      atomic.Int64

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithEngine replaces the scoring engine.
func WithEngine(engine *scoring.Engine) Option {
	return func(s *Service) {
		if engine != nil {
			s.engine = engine
		}
	}
}

// WithWorkerCount sets how many transcriptions may run at once.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets how many transcriptions may wait for a worker.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithRetention sets how long stored audio is kept.
func WithRetention(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.retention = d
		}
	}
}

// WithCleanupInterval sets the period of the expired-file sweep.
func WithCleanupInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.cleanupInterval = d
		}
	}
}

// WithTemperature sets the transcription temperature.
func WithTemperature(t float64) Option {
	return func(s *Service) {
		if t >= 0 && t <= 1 {
			s.temperature = t
		}
	}
}

// WithNoiseReduction sets the proportion of noise removed for a language.
func WithNoiseReduction(lang scoring.Language, prop float64) Option {
	return func(s *Service) {
		if prop >= 0 && prop <= 1 {
			s.propDecrease[lang] = prop
		}
	}
}

// WithTranscriptionTimeout bounds one transcription on a worker.
func WithTranscriptionTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.sttJobTimeout = d
		}
	}
}

// WithRequestTimeout bounds a whole assessment.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.requestTimeout = d
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a Service around its collaborators.
func New(store repository.Store, transcriber stt.Transcriber, synthesizer tts.Synthesizer, opts ...Option) *Service {
	s := &Service{
		engine:          scoring.New(),
		store:           store,
		transcriber:     transcriber,
		synthesizer:     synthesizer,
		workerCount:     defaultWorkerCount,
		queueSize:       defaultQueueSize,
		retention:       defaultRetention,
		cleanupInterval: defaultCleanupInterval,
		temperature:     defaultTemperature,
		propDecrease: map[scoring.Language]float64{
			scoring.English: 0.9,
			scoring.Arabic:  0.8,
		},
		sttJobTimeout:  defaultSTTJobTimeout,
		requestTimeout: defaultRequestTimeout,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start launches the transcription workers, purges expired audio and
// starts the periodic sweep.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.store == nil || s.transcriber == nil || s.synthesizer == nil {
		return errors.New("service: store, transcriber and synthesizer are required")
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("coach")
	}

	s.logger.Info(ctx, "starting pronunciation service...")

	// Workers outlive the start-up context.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel

	s.jobQueue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.workerPool = workerpool.NewPool(s.workerCount, s.jobQueue, s.transcriber,
		workerpool.WithJobTimeout(s.sttJobTimeout),
	)
	s.workerPool.Start(runCtx)

	s.purgeExpired(ctx)

	s.stopCh = make(chan struct{})
	s.janitorDone = make(chan struct{})
	go s.runJanitor(runCtx, s.stopCh, s.janitorDone)

	s.started = true
	s.logger.Info(ctx, "pronunciation service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Duration("retention", s.retention),
		logger.Any("languages", s.engine.Languages()),
	)

	return nil
}

// Stop drains in-flight transcriptions and stops background work.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()

	s.logger.Info(ctx, "stopping pronunciation service...")

	close(s.stopCh)
	<-s.janitorDone

	if err := s.workerPool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool did not stop cleanly", logger.Error(err))
	}
	s.cancel()

	s.started = false
	s.logger.Info(ctx, "pronunciation service stopped")
}

// Languages lists the supported languages in code order.
func (s *Service) Languages() []types.LanguageInfo {
	langs := s.engine.Languages()
	out := make([]types.LanguageInfo, len(langs))
	for i, l := range langs {
		out[i] = types.LanguageInfo{Code: l.String()}
	}
	return out
}

// SupportsLanguage reports whether raw names a supported language.
func (s *Service) SupportsLanguage(raw string) bool {
	return s.engine.Supports(scoring.ParseLanguage(raw))
}

// OpenAudio returns a stored recording by its public ID.
func (s *Service) OpenAudio(ctx context.Context, id string) (io.ReadSeekCloser, model.Object, error) {
	rc, obj, err := s.store.Open(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.Object{}, ErrNotFound
		}
		return nil, model.Object{}, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return rc, obj, nil
}

// PurgeExpired deletes audio older than the retention window.
func (s *Service) PurgeExpired(ctx context.Context) (int, error) {
	n, err := s.store.Purge(ctx, s.retention)
	s.purged.Add(int64(n))
	if err != nil {
		return n, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return n, nil
}

func (s *Service) purgeExpired(ctx context.Context) {
	n, err := s.PurgeExpired(ctx)
	if err != nil {
		metrics.RecordErrorByComponent("janitor", "purge_failed")
		s.logger.Warn(ctx, "purging expired audio failed", logger.Error(err))
	}
	if n > 0 {
		s.logger.Info(ctx, "purged expired audio", logger.Int("files", n))
	}
}

func (s *Service) runJanitor(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			s.purgeExpired(ctx)
		}
	}
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	langs := make([]string, 0)
	for _, l := range s.engine.Languages() {
		langs = append(langs, l.String())
	}
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"languages":   langs,
		"retention":   s.retention.String(),
		"assessments": s.assessments.Load(),
		"failures":    s.failures.Load(),
		"purged":      s.purged.Load(),
	}

	if s.started {
		stats["queueLength"] = s.jobQueue.Len(ctx)
		stats["transcribed"] = s.workerPool.Processed()
		stats["storedFiles"] = s.store.Count(ctx)
	}

	return stats
}
