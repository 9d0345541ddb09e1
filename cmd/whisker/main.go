// whisker: multi-modal cat presence engine.
// Fuses visual and acoustic detections from connected hosts, debounces
// presence state, and fans committed transitions out to notifications,
// deep analysis and the monitor dashboard.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"github.com/purrlab/go-whisker/internal/config"
	"github.com/purrlab/go-whisker/internal/log"
	"github.com/purrlab/go-whisker/internal/observe"
	"github.com/purrlab/go-whisker/pkg/deepsight"
	"github.com/purrlab/go-whisker/pkg/engine"
	"github.com/purrlab/go-whisker/pkg/hostlink"
	"github.com/purrlab/go-whisker/pkg/monitor"
	"github.com/purrlab/go-whisker/pkg/react"
)

var version = "1.0.0"

// Observer priorities: notifications first, then the dashboard, deep
// analysis, and diagnostics last.
const (
	priorityNotifier    = 100
	priorityDashboard   = 80
	priorityDeepTrigger = 60
	priorityDiagnostics = 10
)

var (
	configPath = flag.String("config", "", "Path to YAML config file")
	listenAddr = flag.String("listen", "", "Monitor server address (overrides config)")
)

func main() {
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "whisker: %v\n", err)
		os.Exit(1)
	}
	if *listenAddr != "" {
		cfg.Server.ListenAddr = *listenAddr
	}

	log.Init(cfg.Server.LogLevel)
	logger := log.With("service", "whisker")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "whisker",
		ServiceVersion: version,
	})
	if err != nil {
		logger.Error("telemetry init failed", "error", err)
		os.Exit(1)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(sctx); err != nil {
			logger.Warn("telemetry shutdown", "error", err)
		}
	}()

	metrics, err := observe.NewMetrics(otel.GetMeterProvider())
	if err != nil {
		logger.Error("metrics init failed", "error", err)
		os.Exit(1)
	}

	resultLock := deepsight.NewResultLock()

	eng := engine.New(engine.Config{
		WindowInterval:    cfg.Engine.WindowInterval.Std(),
		DebounceInterval:  cfg.Engine.DebounceInterval.Std(),
		VisualThreshold:   cfg.Engine.VisualThreshold,
		AcousticThreshold: cfg.Engine.AcousticThreshold,
		TrustCapacity:     cfg.Engine.TrustCapacity,
		TrustDepth:        cfg.Engine.TrustDepth,
		ResultLock:        resultLock,
		Logger:            log.L(),
		Metrics:           metrics,
	})

	// Notifications go to the host link when one is configured, otherwise
	// to the log.
	var emitter react.Emitter
	if url := config.HostURL(cfg); url != "" {
		link, err := hostlink.Dial(url, log.L())
		if err != nil {
			logger.Error("host link dial failed", "url", url, "error", err)
			os.Exit(1)
		}
		defer link.Close()
		emitter = link
		logger.Info("host link connected", "url", url)
	} else {
		emitter = logEmitter{}
	}
	eng.Register(react.NewNotifier(emitter, priorityNotifier))

	srv := monitor.NewServer(eng, log.L(), metrics)
	dash := monitor.NewDashboard(srv, priorityDashboard)
	go dash.Run()
	eng.Register(dash)

	if cfg.DeepSight.BaseURL != "" {
		client, err := deepsight.NewClient(
			deepsight.WithBaseURL(cfg.DeepSight.BaseURL),
			deepsight.WithAPIKey(cfg.DeepSightKey()),
			deepsight.WithTimeout(cfg.DeepSight.Timeout.Std()),
			deepsight.WithLogger(log.L()),
		)
		if err != nil {
			logger.Error("deepsight client init failed", "error", err)
			os.Exit(1)
		}

		minInterval := cfg.DeepSight.MinInterval.Std()
		if minInterval <= 0 {
			minInterval = deepsight.DefaultMinInterval
		}
		maxPerMin := cfg.DeepSight.MaxPerMin
		if maxPerMin <= 0 {
			maxPerMin = deepsight.DefaultMaxPerMinute
		}

		eng.Register(react.NewDeepTrigger(react.DeepTriggerConfig{
			Analyzer: client,
			Frames:   eng,
			Limiter:  deepsight.NewLimiter(minInterval, maxPerMin),
			Slot:     &deepsight.Slot{},
			Lock:     resultLock,
			LockTTL:  cfg.DeepSight.LockTTL.Std(),
			Prompt:   cfg.DeepSight.Prompt,
			Logger:   log.L(),
			Metrics:  metrics,
			Priority: priorityDeepTrigger,
			OnResult: func(a *deepsight.Analysis) {
				if err := dash.BroadcastAnalysis(a); err != nil {
					logger.Warn("analysis broadcast failed", "error", err)
				}
			},
		}))
		logger.Info("deep analysis enabled", "base_url", cfg.DeepSight.BaseURL)
	}

	diag := react.NewDiagnostics(256, priorityDiagnostics)
	eng.Register(diag)

	app := fiber.New(fiber.Config{
		AppName:               "whisker",
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type,Authorization",
	}))

	srv.RegisterRoutes(app)
	dash.RegisterRoutes(app)
	srv.RegisterAPIRoutes(app.Group("/api"), diag)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"version": version,
			"state":   eng.State().String(),
			"hosts":   srv.HostCount(),
		})
	})

	metricsSrv := &http.Server{
		Addr:    cfg.Server.MetricsAddr,
		Handler: promhttp.Handler(),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := eng.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		logger.Info("monitor server listening", "addr", cfg.Server.ListenAddr)
		return app.Listen(cfg.Server.ListenAddr)
	})

	g.Go(func() error {
		err := dash.RunStatsLoop(gctx, monitor.DefaultStatsInterval)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		logger.Info("metrics endpoint listening", "addr", cfg.Server.MetricsAddr)
		if err := metricsSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		dash.Stop()

		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(sctx); err != nil {
			logger.Warn("server shutdown", "error", err)
		}
		if err := metricsSrv.Shutdown(sctx); err != nil {
			logger.Warn("metrics shutdown", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("goodbye")
}

// loadConfig reads the config file when a path is given, otherwise returns
// an all-defaults config.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	cfg := &config.Config{}
	cfg.ApplyDefaults()
	return cfg, nil
}

// logEmitter writes notification records to the log when no host link is
// configured.
type logEmitter struct{}

func (logEmitter) Emit(rec *react.Record) error {
	log.Info("notification",
		"text", rec.Text,
		"state", rec.State,
		"source_tag", rec.SourceTag,
	)
	return nil
}
