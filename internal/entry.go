// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/ansuz/internal/analysis"
	"github.com/starford/ansuz/internal/api"
	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/capture"
	"github.com/starford/ansuz/internal/mcpserver"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/notesvc"
	"github.com/starford/ansuz/internal/pipeline"
	"github.com/starford/ansuz/internal/sse"
	"github.com/starford/ansuz/internal/storage"
	"github.com/starford/ansuz/internal/store"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger. MCP mode must keep stdout
	// clean for the protocol, so logs go to stderr there.
	logOut := os.Stdout
	if app.mcp {
		logOut = os.Stderr
	}
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("uploads_dir", cfg.Uploads.Dir),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("datasource", cfg.DataSource.Mode),
		slog.Bool("openai_enabled", cfg.OpenAI.Enabled()),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Uploads directory.
	uploads, err := storage.NewFS(cfg.Uploads.Dir)
	if err != nil {
		return fmt.Errorf("init uploads storage: %w", err)
	}

	// Note/task store: live SQLite or the fixture demo dataset.
	var st store.Store
	if cfg.DataSource.Fixture() {
		st = store.NewFixture(time.Now())
		logger.Info("Serving fixture dataset")
	} else {
		db, err := store.Open(cfg.SQLite.Path)
		if err != nil {
			return fmt.Errorf("init store: %w", err)
		}
		defer db.Close()
		st = db
	}

	// Analysis engine.
	var engine analysis.Engine = disabledEngine{}
	if cfg.OpenAI.Enabled() {
		oa, err := analysis.NewOpenAIEngine(
			cfg.OpenAI.APIKey,
			cfg.OpenAI.ChatModel,
			cfg.OpenAI.TranscribeModel,
			cfg.OpenAI.SpeechVoice,
			logger,
		)
		if err != nil {
			return fmt.Errorf("init analysis engine: %w", err)
		}
		engine = oa
	}

	svc := notesvc.NewService(st, uploads, engine, logger)

	if app.mcp {
		logger.Info("Starting MCP server on stdio")
		return mcpserver.New(svc).ServeStdio()
	}

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	// Recording pipeline. The processor posts back into our own
	// transcribe endpoint so processing follows the same path as a
	// manual upload.
	processor := analysis.NewClient(
		fmt.Sprintf("http://127.0.0.1%s/api/transcribe", cfg.App.HTTP.Address()),
		selfClient(cfg.Auth),
	)
	gateway := capture.NewGateway()
	session := capture.NewSession(gateway, logger)
	orch := pipeline.NewOrchestrator(session, processor, logger, func(snap pipeline.Snapshot) {
		broker.Publish(sse.Event{Type: "pipeline.state", Data: snap})
	})
	bus := pipeline.NewBus()

	// The spoken answer path is available only when the engine can
	// synthesize speech; the voice session degrades to text otherwise.
	speech, _ := engine.(analysis.SpeechOutput)

	apiRouter := api.NewRouter(api.RouterDeps{
		Service:      svc,
		Uploads:      uploads,
		Logger:       logger,
		Orchestrator: orch,
		Bus:          bus,
		Gateway:      gateway,
		VoiceBrain:   engine,
		Capture:      gateway,
		Speech:       speech,
		Broker:       broker,
	}, cfg.Auth.AuthEnabled(), cfg.Auth.Token)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Drive the recording pipeline from the request bus.
	g.Go(func() error {
		return orch.Serve(gCtx, bus, logger)
	})

	// Watch the uploads directory and publish SSE events.
	g.Go(func() error {
		if err := storage.Watch(gCtx, cfg.Uploads.Dir, logger, func(kind, filename string) {
			broker.PublishMeetingEvent(kind, filename)
		}); err != nil {
			logger.Warn("uploads watcher stopped", slog.String("error", err.Error()))
		}
		return nil
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// selfClient builds the HTTP client the pipeline processor uses to call
// back into this server, carrying the Bearer token when auth is on.
func selfClient(auth AuthConfig) *http.Client {
	if !auth.AuthEnabled() {
		return nil
	}
	return &http.Client{
		Timeout: 10 * time.Minute,
		Transport: &bearerTransport{
			token: auth.Token,
			base:  http.DefaultTransport,
		},
	}
}

type bearerTransport struct {
	token string
	base  http.RoundTripper
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", "Bearer "+t.token)
	return t.base.RoundTrip(clone)
}

// disabledEngine answers every analysis call with a configuration
// error. Used when no OpenAI key is set so endpoints fail fast instead
// of deep in the pipeline.
type disabledEngine struct{}

var errEngineDisabled = fmt.Errorf("analysis engine is not configured (set OPENAI_API_KEY): %w", apperr.ErrAnalysisFailed)

func (disabledEngine) Transcribe(context.Context, *models.AudioBlob) (string, error) {
	return "", errEngineDisabled
}

func (disabledEngine) Summarize(context.Context, string) (string, []string, error) {
	return "", nil, errEngineDisabled
}

func (disabledEngine) ExtractTasks(context.Context, string) ([]models.Task, error) {
	return nil, errEngineDisabled
}

func (disabledEngine) Sentiment(context.Context, string) (*models.Sentiment, error) {
	return nil, errEngineDisabled
}

func (disabledEngine) Language(context.Context, string) (*string, error) {
	return nil, errEngineDisabled
}

func (disabledEngine) Translate(context.Context, string, string) (string, error) {
	return "", errEngineDisabled
}

func (disabledEngine) Interpret(context.Context, string, string) (string, error) {
	return "", errEngineDisabled
}
