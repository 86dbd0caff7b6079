package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/wildfire-risk-console/internal/circuitbreaker"
	"github.com/kjstillabower/wildfire-risk-console/internal/client"
	"github.com/kjstillabower/wildfire-risk-console/internal/config"
	"github.com/kjstillabower/wildfire-risk-console/internal/console"
	"github.com/kjstillabower/wildfire-risk-console/internal/controller"
	httphandler "github.com/kjstillabower/wildfire-risk-console/internal/http"
	"github.com/kjstillabower/wildfire-risk-console/internal/lifecycle"
	"github.com/kjstillabower/wildfire-risk-console/internal/mode"
	"github.com/kjstillabower/wildfire-risk-console/internal/models"
	"github.com/kjstillabower/wildfire-risk-console/internal/observability"
	"github.com/kjstillabower/wildfire-risk-console/internal/render"
	"github.com/kjstillabower/wildfire-risk-console/internal/request"
	"github.com/kjstillabower/wildfire-risk-console/internal/ui"
)

func main() {
	bootLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		bootLogger.Fatal("config", zap.Error(err))
	}
	_ = bootLogger.Sync()

	logger, err := observability.NewLoggerAt(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	predictionClient, err := client.NewPredictionClient(cfg.PredictionAPIURL, cfg.PredictionAPITimeout)
	if err != nil {
		logger.Fatal("prediction client", zap.Error(err))
	}
	predictionClient.SetLogger(logger)
	predictionClient.SetHealthPath(cfg.HealthPath)

	if cfg.CircuitBreakerEnabled {
		cb := circuitbreaker.New(circuitbreaker.Config{
			FailureThreshold: cfg.CircuitBreakerFailureThreshold,
			SuccessThreshold: cfg.CircuitBreakerSuccessThreshold,
			Timeout:          cfg.CircuitBreakerTimeout,
			IsFailure:        client.IsServiceFailure,
			OnStateChange: func(from, to circuitbreaker.State) {
				observability.RecordCircuitBreakerTransition(from.String(), to.String(), int(to))
				logger.Warn("prediction circuit breaker", zap.Stringer("from", from), zap.Stringer("to", to))
			},
		})
		predictionClient.SetCircuitBreaker(cb)
		logger.Info("circuit breaker enabled", zap.Int("failure_threshold", cfg.CircuitBreakerFailureThreshold), zap.Duration("timeout", cfg.CircuitBreakerTimeout))
	}
	if cfg.SubmitRateLimitRPS > 0 {
		predictionClient.SetRateLimiter(rate.NewLimiter(rate.Limit(cfg.SubmitRateLimitRPS), cfg.SubmitRateLimitBurst))
	}

	doc := ui.NewDocument()
	widget := ui.NewMarkerMap(models.Coordinate{Latitude: cfg.MapCenterLat, Longitude: cfg.MapCenterLon}, cfg.MapZoom)
	widget.SetResizeHook(func() { logger.Debug("map resized") })
	state := mode.New(doc, widget, cfg.MapResizeDelay, logger)
	defer state.Stop()

	predictionClient.SetTrigger(controller.NewTrigger(doc))
	builder := request.NewBuilder(request.Endpoints{Standard: cfg.PredictPath, Manual: cfg.ManualPredictPath})
	renderer := render.NewRenderer(doc, time.Local, cfg.TimestampLayout, logger)
	ctrl := controller.New(doc, widget, state, builder, predictionClient, renderer, logger)

	var srv *http.Server
	if cfg.DiagnosticsPort != "" {
		healthConfig := &httphandler.HealthConfig{
			DegradedWindow:   cfg.DegradedWindow,
			DegradedErrorPct: cfg.DegradedErrorPct,
			StartTime:        time.Now(),
			ServiceProbe:     predictionClient.CheckHealth,
		}
		srv = &http.Server{
			Addr:         ":" + cfg.DiagnosticsPort,
			Handler:      httphandler.NewRouter(httphandler.NewHandler(healthConfig, logger), logger),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("diagnostics server starting", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("diagnostics server", zap.Error(err))
			}
		}()
	}

	cons := console.New(ctrl, doc, widget, predictionClient, os.Stdout, logger)
	cons.SetPrompt(console.Interactive(os.Stdin))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	logger.Info("console started", zap.String("prediction_api", cfg.PredictionAPIURL))
	if err := cons.Run(ctx, os.Stdin); err != nil {
		logger.Error("console", zap.Error(err))
	}
	reason := lifecycle.ReasonConsoleExit
	if ctx.Err() != nil {
		reason = lifecycle.ReasonSignal
	}
	stop()

	logger.Info("shutdown triggered", zap.String("reason", reason))
	lifecycle.SetShuttingDown(reason)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if srv != nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("diagnostics server shutdown", zap.Error(err))
		}
	}
	if err := predictionClient.WaitIdle(shutdownCtx, 50*time.Millisecond); err != nil {
		logger.Warn("submission still in flight at shutdown", zap.Error(err))
	}

	if err := observability.FlushTelemetry(context.Background(), logger); err != nil {
		logger.Error("telemetry flush", zap.Error(err))
	}
	logger.Info("shutdown complete")
}
