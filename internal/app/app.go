package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"retailanalytics/internal/config"
	"retailanalytics/internal/logger"
	"retailanalytics/internal/models"
	"retailanalytics/internal/repository"
	"retailanalytics/internal/repository/store"
	"retailanalytics/internal/routes"
	"retailanalytics/internal/service/ai"
	"retailanalytics/internal/service/emitter"
	"retailanalytics/internal/service/pipeline"
	"retailanalytics/internal/service/report"
	"retailanalytics/internal/service/stream"
	"retailanalytics/internal/service/video"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config    *config.Config
	logger    *logger.Logger
	db        *store.DB
	mqtt      *emitter.MQTTSink
	publisher *stream.FramePublisher
	hub       *stream.HubService
	mjpeg     *stream.MJPEGRelay
	processor *pipeline.VideoProcessor
	query     *store.QueryRepository
	gender    *ai.GenderService
}

func NewApp() (*App, error) {
	cfg := config.Load()
	log := logger.NewLogger(cfg)

	if cfg.DBDriver == store.DriverSQLite {
		if err := os.MkdirAll(filepath.Dir(cfg.DBDSN), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := store.New(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return nil, err
	}

	sinks := repository.FanOut{store.NewAnalyticsRepository(db)}
	a := &App{config: cfg, logger: log, db: db}

	if cfg.MQTTBroker != "" {
		sink, err := emitter.Connect(cfg.MQTTBroker, cfg.MQTTTopic, log.With("component", "mqtt"))
		if err != nil {
			// bez brokera dalej zapisujemy do bazy
			log.Warning("MQTT disabled: %v", err)
		} else {
			a.mqtt = sink
			sinks = append(sinks, sink)
		}
	}

	a.publisher = stream.NewFramePublisher()
	a.hub = stream.NewHubService(log.With("component", "hub"))
	a.mjpeg = stream.NewMJPEGRelay(a.publisher, cfg.StreamInterval, log.With("component", "mjpeg"))
	a.gender = ai.NewGenderService(cfg, log.With("component", "gender"))
	a.query = store.NewQueryRepository(db)

	// osobna sieć na źródło, zamykana razem ze źródłem
	a.processor = pipeline.NewVideoProcessor(pipeline.Deps{
		Open:      video.Open,
		Detectors: ai.NewDetectorFactory(cfg, log),
		Gender:    a.gender,
		Renderer:  ai.NewRenderer(log.With("component", "renderer")),
		Sink:      sinks,
		Publisher: a.publisher,
	}, cfg, log)

	return a, nil
}

// bootstrap registers and starts the configured sources. A source that fails
// to open is logged and skipped.
func (a *App) bootstrap() {
	specs, err := config.ParseSources(a.config.Sources)
	if err != nil {
		a.logger.Error("Invalid SOURCES, falling back to defaults: %v", err)
		specs = nil
	}
	if len(specs) == 0 {
		if specs, err = a.config.DefaultSources(); err != nil {
			a.logger.Warning("Video discovery failed: %v", err)
		}
	}

	started := 0
	for _, spec := range specs {
		if err := a.startSource(spec); err != nil {
			a.logger.Warning("Skipping source %s: %v", spec.Name, err)
			continue
		}
		started++
	}
	a.logger.Info("Processing started for %d of %d source(s)", started, len(specs))
}

func (a *App) startSource(spec models.SourceSpec) error {
	if err := a.processor.AddSource(spec); err != nil {
		return err
	}
	if err := a.processor.StartProcessing(spec.Name); err != nil {
		return err
	}
	a.logger.Info("Added %s source %s (%s)", spec.Role, spec.Name, spec.Origin)
	return nil
}

func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start background services
	go a.hub.Run(ctx)
	go a.hub.Relay(ctx, a.publisher, a.config.StreamInterval)
	go a.mjpeg.Run(ctx)

	a.bootstrap()

	router := routes.SetupRoutes(routes.Services{
		Controller: a.processor,
		Query:      a.query,
		Aggregator: report.NewAggregator(a.query, time.Now),
		Publisher:  a.publisher,
		Hub:        a.hub,
		MJPEG:      a.mjpeg,
		Now:        time.Now,
	}, a.config, a.logger)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.config.Port),
		Handler: router,
	}

	fmt.Printf("🛒 Retail Analytics Server\n")
	fmt.Printf("📍 URL: http://localhost:%d\n", a.config.Port)
	fmt.Printf("🗄️  Database: %s (%s)\n", a.config.DBDSN, a.config.DBDriver)
	fmt.Printf("🤖 AI Model: %s\n", a.config.ModelPath)

	serveErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("Shutting down")
	case runErr = <-serveErr:
		a.logger.Error("HTTP server failed: %v", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		a.logger.Warning("HTTP shutdown: %v", err)
	}
	stop()

	return errors.Join(runErr, a.Close())
}

// Close stops every source (which closes its detector) and releases the gender
// model, the broker connection and the database.
func (a *App) Close() error {
	err := a.processor.StopAll()
	if err != nil {
		a.logger.Warning("Some processing loops did not stop: %v", err)
	}

	a.gender.Close()

	if a.mqtt != nil {
		a.mqtt.Close()
	}
	if dbErr := a.db.Close(); dbErr != nil {
		err = errors.Join(err, fmt.Errorf("failed to close database: %w", dbErr))
	}
	_ = a.logger.Sync()
	return err
}
