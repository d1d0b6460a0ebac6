// Package app wires the vocalharmony subsystems into a running application.
//
// The App struct owns the full lifecycle: New creates and connects the audio
// device, the capture source, the harmony engine, and the metrics endpoint;
// Shutdown tears everything down in order.
//
// For testing, inject mock implementations via functional options
// (WithDevice, WithSource, WithMetrics). When an option is not provided, New
// creates real implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bli0428/vocalharmony/internal/config"
	"github.com/bli0428/vocalharmony/internal/harmony"
	"github.com/bli0428/vocalharmony/internal/health"
	"github.com/bli0428/vocalharmony/internal/observe"
	"github.com/bli0428/vocalharmony/pkg/audio"
	otodevice "github.com/bli0428/vocalharmony/pkg/audio/oto"
	padevice "github.com/bli0428/vocalharmony/pkg/audio/portaudio"
)

// App owns all subsystem lifetimes.
type App struct {
	cfg *config.Config

	device  audio.Device
	source  audio.Source
	engine  *harmony.Engine
	metrics *observe.Metrics

	metricsSrv *http.Server

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithDevice injects a playback device instead of opening the default one.
func WithDevice(d audio.Device) Option {
	return func(a *App) { a.device = d }
}

// WithSource injects a capture source instead of opening the microphone.
func WithSource(s audio.Source) Option {
	return func(a *App) { a.source = s }
}

// WithMetrics injects a metrics instance instead of the package default.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// New creates an App by wiring all subsystems together. Use Option functions
// to inject test doubles for any subsystem.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{cfg: cfg}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}

	if a.device == nil {
		dev, err := otodevice.New(cfg.Audio.SampleRate)
		if err != nil {
			return nil, fmt.Errorf("app: open playback device: %w", err)
		}
		a.device = dev
		a.closers = append(a.closers, dev.Close)
	}

	if a.source == nil {
		a.source = padevice.New(cfg.Audio.SampleRate,
			padevice.WithFramesPerBuffer(cfg.Audio.FramesPerBuffer),
		)
	}

	eng, err := harmony.NewEngine(harmony.EngineConfig{
		Device: a.device,
		Source: a.source,
		Params: harmony.ChainParams{
			WindowMs: cfg.Harmony.WindowMs,
			DelayMs:  cfg.Harmony.DelayMs,
		},
		StartLead: time.Duration(cfg.Harmony.StartLeadMs * float64(time.Millisecond)),
		Metrics:   a.metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("app: build engine: %w", err)
	}
	a.engine = eng
	a.closers = append([]func() error{eng.Close}, a.closers...)

	if cfg.Server.MetricsAddr != "" {
		a.startMetricsServer(cfg.Server.MetricsAddr)
	}

	return a, nil
}

// Engine returns the harmony engine.
func (a *App) Engine() *harmony.Engine { return a.engine }

// startMetricsServer serves the Prometheus /metrics endpoint plus health and
// readiness probes in a background goroutine and registers its shutdown with
// the closers.
func (a *App) startMetricsServer(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	health.New(
		health.PlaybackChecker(a.device),
		health.CaptureChecker(a.source),
	).Register(mux)
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	a.metricsSrv = srv

	go func() {
		slog.Info("metrics endpoint listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", "err", err)
		}
	}()

	a.closers = append(a.closers, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	})
}

// Shutdown tears down all subsystems in order. It respects the context
// deadline: if ctx expires before all closers finish, remaining closers are
// skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}
