package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/okian/wrinkles/internal/adapters/capture"
	"github.com/okian/wrinkles/internal/adapters/detect"
	"github.com/okian/wrinkles/internal/adapters/http/api"
	"github.com/okian/wrinkles/internal/adapters/http/swagger"
	"github.com/okian/wrinkles/internal/adapters/render"
	app "github.com/okian/wrinkles/internal/app"
	"github.com/okian/wrinkles/internal/config"
	"github.com/okian/wrinkles/internal/domain/model"
	"github.com/okian/wrinkles/internal/domain/pipeline"
	"github.com/okian/wrinkles/pkg/logger"
	"github.com/okian/wrinkles/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 30 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}
	if err := logger.Init(logger.WithJSON(strings.EqualFold(cfg.LogFormat, "json"))); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "wrinkle detection stopped", logger.Error(err))
		os.Exit(1)
	}
	log.Info(ctx, "wrinkle detection finished")
}

// run wires the service, the operational HTTP server and the live loop and
// blocks until the loop ends or ctx is cancelled.
func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	svc, err := newService(cfg, log)
	if err != nil {
		return err
	}
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop()

	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go startSystemMetricsUpdater(loopCtx, metrics.RefreshInterval())
	go startServiceMetricsUpdater(loopCtx, svc, metrics.RefreshInterval())

	srv := newHTTPServer(loopCtx, cfg, svc)
	go func() {
		log.Info(loopCtx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(loopCtx, "HTTP server failed", logger.Error(err))
		}
	}()
	defer func() {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error(ctx, "server shutdown failed", logger.Error(err))
		}
	}()

	src, err := newSource(cfg, log)
	if err != nil {
		return err
	}
	det, err := detect.NewCascade(cfg.CascadePath,
		detect.WithScaleFactor(cfg.DetectorScaleFactor),
		detect.WithMinNeighbors(cfg.DetectorMinNeighbors),
	)
	if err != nil {
		_ = src.Close()
		return err
	}
	sink, err := newSink(cfg, log)
	if err != nil {
		_ = src.Close()
		_ = det.Close()
		return err
	}

	err = svc.Run(loopCtx, src, det, sink)
	if errors.Is(err, model.ErrSourceExhausted) && len(cfg.Images) > 0 {
		// A finite image list ends the loop normally.
		log.Info(ctx, "all images processed", logger.Any("stats", svc.GetStats()))
		return nil
	}
	return err
}

func newService(cfg *config.Config, log logger.Logger) (*app.Service, error) {
	thresholds, err := cfg.ThresholdList()
	if err != nil {
		return nil, err
	}
	analyzer := pipeline.New(
		pipeline.WithCanonicalSize(cfg.CanonicalWidth, cfg.CanonicalHeight),
		pipeline.WithThresholds(thresholds),
		pipeline.WithLogger(log.Named("pipeline")),
	)
	return app.New(
		app.WithLogger(log),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithFrameDeadline(cfg.FrameDeadline()),
		app.WithAnalyzer(analyzer),
	), nil
}

func newHTTPServer(ctx context.Context, cfg *config.Config, svc *app.Service) *http.Server {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc, svc).Register(ctx, mux)

	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

// newSource opens the still images when configured, the camera otherwise.
func newSource(cfg *config.Config, log logger.Logger) (app.FrameSource, error) {
	opts := []capture.Option{capture.WithLogger(log.Named("capture"))}
	if len(cfg.Images) > 0 {
		return capture.NewImages(cfg.Images, opts...)
	}
	return capture.OpenCamera(cfg.CameraDevice, opts...)
}

// newSink chains the window and the file writer; with neither it only
// annotates.
func newSink(cfg *config.Config, log logger.Logger) (app.Sink, error) {
	var sinks []render.Sink
	if cfg.OutputDir != "" {
		files, err := render.NewFiles(cfg.OutputDir, ".png", log.Named("render"))
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, files)
	}
	if cfg.WindowTitle != "" {
		sinks = append(sinks, render.NewWindow(cfg.WindowTitle, quitKey(cfg.QuitKey)))
	}
	return render.NewChain(render.Options{Edges: cfg.RenderEdges}, sinks...), nil
}

func quitKey(s string) rune {
	for _, r := range s {
		return r
	}
	return 0
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
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
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service, interval time.Duration) {
	ticker := time.NewTicker(interval)
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

// updateServiceMetrics updates service-level metrics.
func updateServiceMetrics(svc *app.Service) {
	stats := svc.GetStats()
	if queueLen, ok := stats["queueLength"].(int); ok {
		metrics.UpdateQueueSize(queueLen)
	}
	if workerCount, ok := stats["workerCount"].(int); ok {
		metrics.UpdateWorkerActiveCount(workerCount)
	}
}
