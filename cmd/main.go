package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/parrot/internal/adapters/http/api"
	"github.com/okian/parrot/internal/adapters/http/swagger"
	"github.com/okian/parrot/internal/adapters/repository"
	app "github.com/okian/parrot/internal/app"
	"github.com/okian/parrot/internal/config"
	"github.com/okian/parrot/internal/domain/scoring"
	"github.com/okian/parrot/pkg/logger"
	"github.com/okian/parrot/pkg/metrics"
	"github.com/okian/parrot/pkg/provider/stt/whisper"
	"github.com/okian/parrot/pkg/provider/tts/coqui"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTP server timeout constants.
const (
	readTimeout               = 30 * time.Second
	writeTimeoutSlack         = 15 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	if err := run(); err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

func run() error {
	// Disable default Go metrics collection to avoid duplicate metrics
	// We collect our own custom system metrics instead
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		return err
	}
	log := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	svc, err := newService(cfg, log)
	if err != nil {
		return err
	}
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, svc)

	mux := newMux(ctx, cfg, svc, log)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      cfg.RequestTimeout() + writeTimeoutSlack,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			log.Error(ctx, "HTTP server failed", logger.Error(err))
			return err
		}
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
	return nil
}

// newService builds the storage, the speech backends, the scoring engine
// and the service that ties them together.
func newService(cfg *config.Config, log logger.Logger) (*app.Service, error) {
	store, err := repository.NewFileStore(cfg.UploadDir)
	if err != nil {
		return nil, err
	}

	sttOpts := []whisper.Option{whisper.WithTimeout(cfg.STTTimeout())}
	ttsOpts := []coqui.Option{coqui.WithTimeout(cfg.TTSTimeout())}
	svcOpts := []app.Option{
		app.WithLogger(log),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithRetention(cfg.Retention()),
		app.WithCleanupInterval(cfg.CleanupInterval()),
		app.WithTemperature(cfg.STTTemperature),
		app.WithTranscriptionTimeout(cfg.STTTimeout()),
		app.WithRequestTimeout(cfg.RequestTimeout()),
	}
	for code, lc := range cfg.Languages {
		lang := scoring.ParseLanguage(code)
		if lc.STTModel != "" {
			sttOpts = append(sttOpts, whisper.WithLanguageModel(lang.String(), lc.STTModel))
		}
		if lc.TTSSpeaker != "" {
			ttsOpts = append(ttsOpts, coqui.WithSpeaker(lang.String(), lc.TTSSpeaker))
		}
		svcOpts = append(svcOpts, app.WithNoiseReduction(lang, lc.NoiseReduction))
	}

	transcriber, err := whisper.New(cfg.STTURL, sttOpts...)
	if err != nil {
		return nil, err
	}
	synthesizer, err := coqui.New(cfg.TTSURL, ttsOpts...)
	if err != nil {
		return nil, err
	}

	engineOpts := make([]scoring.Option, 0, len(cfg.Languages)+1)
	engineOpts = append(engineOpts, scoring.WithFallbackLanguage(scoring.ParseLanguage(cfg.FallbackLanguage)))
	for lang, profile := range cfg.Profiles() {
		engineOpts = append(engineOpts, scoring.WithProfile(lang, profile))
	}
	svcOpts = append(svcOpts, app.WithEngine(scoring.New(engineOpts...)))

	return app.New(store, transcriber, synthesizer, svcOpts...), nil
}

// newMux registers the docs and business routes.
func newMux(ctx context.Context, cfg *config.Config, svc *app.Service, log logger.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)

	apiServer := api.NewServer(svc, svc,
		api.WithMaxUploadBytes(cfg.MaxUploadBytes()),
		api.WithLogger(log.Named("api")),
	)
	apiServer.Register(ctx, mux)
	return mux
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater starts a background goroutine that updates service metrics.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

// updateServiceMetrics copies service gauges into Prometheus.
func updateServiceMetrics(svc *app.Service) {
	stats := svc.GetStats()

	queueCap, _ := stats["queueSize"].(int)
	if queueLen, ok := stats["queueLength"].(int); ok {
		metrics.UpdateQueueSize(queueLen, queueCap)
	}
	if stored, ok := stats["storedFiles"].(int); ok {
		metrics.UpdateStorageObjects(stored)
	}
	if workerCount, ok := stats["workerCount"].(int); ok {
		metrics.UpdateWorkerCount(workerCount)
	}
}
