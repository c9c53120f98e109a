package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/tablebite/ordering/internal/api/handlers"
	"github.com/tablebite/ordering/internal/api/middleware"
	"github.com/tablebite/ordering/internal/config"
	"github.com/tablebite/ordering/internal/jobs"
	"github.com/tablebite/ordering/internal/messaging"
	"github.com/tablebite/ordering/internal/models"
	"github.com/tablebite/ordering/internal/observability"
	"github.com/tablebite/ordering/internal/providers"
	"github.com/tablebite/ordering/internal/repository"
	"github.com/tablebite/ordering/internal/service"
	"github.com/tablebite/ordering/internal/vectorstore"
	"github.com/tablebite/ordering/internal/workers"
	"github.com/tablebite/ordering/pkg/database"
)

const serviceName = "ordering-api"

// App holds all server dependencies and coordinates startup and shutdown.
type App struct {
	cfg            *config.Config
	server         *http.Server
	river          *river.Client[pgx.Tx]
	message        *service.MessagePublisherManager
	broker         *messaging.RabbitMQPublisher
	menuIndex      *service.MenuIndexService
	indexOnStart   bool
	meterProvider  *sdkmetric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
}

// appMetrics unpacks the optional metric collectors into the interfaces components take.
type appMetrics struct {
	http   observability.HTTPMetrics
	llm    observability.LLMMetrics
	cache  observability.CacheMetrics
	events observability.EventMetrics
}

func setupObservability(ctx context.Context, cfg *config.Config) (
	*sdkmetric.MeterProvider, http.Handler, *sdktrace.TracerProvider, appMetrics, error,
) {
	var (
		meterProvider  *sdkmetric.MeterProvider
		metricsHandler http.Handler
		metrics        appMetrics
	)

	if cfg.MetricsEnabled {
		mp, handler, err := observability.NewMeterProvider(serviceName)
		if err != nil {
			return nil, nil, nil, metrics, fmt.Errorf("create meter provider: %w", err)
		}

		all, err := observability.NewMetrics(mp.Meter(observability.MeterScope))
		if err != nil {
			if err2 := observability.ShutdownMeterProvider(ctx, mp); err2 != nil {
				slog.Error("shutdown meter provider after metrics error", "error", err2)
			}

			return nil, nil, nil, metrics, fmt.Errorf("create metrics: %w", err)
		}

		meterProvider, metricsHandler = mp, handler
		metrics = appMetrics{http: all.HTTP, llm: all.LLM, cache: all.Cache, events: all.Events}
		otel.SetMeterProvider(mp)
	} else {
		slog.Info("metrics not enabled (METRICS_ENABLED=false)")
	}

	tracerProvider, err := observability.NewTracerProvider(ctx, cfg.OtelTracesExporter, serviceName)
	if err != nil {
		if err2 := observability.ShutdownMeterProvider(ctx, meterProvider); err2 != nil {
			slog.Error("shutdown meter provider after tracer provider error", "error", err2)
		}

		return nil, nil, nil, metrics, fmt.Errorf("create tracer provider: %w", err)
	}

	if tracerProvider != nil {
		otel.SetTracerProvider(tracerProvider)
	}

	return meterProvider, metricsHandler, tracerProvider, metrics, nil
}

// NewApp builds and wires all components. It does not start the HTTP server or River;
// call Run to start and block until shutdown or failure.
func NewApp(ctx context.Context, cfg *config.Config, db *pgxpool.Pool, schema database.SchemaResult) (*App, error) {
	meterProvider, metricsHandler, tracerProvider, metrics, err := setupObservability(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{cfg: cfg, meterProvider: meterProvider, tracerProvider: tracerProvider}

	fail := func(err error) (*App, error) {
		if obsErr := shutdownObservability(ctx, tracerProvider, meterProvider); obsErr != nil {
			slog.Error("shutdown observability after startup error", "error", obsErr)
		}

		if app.broker != nil {
			if closeErr := app.broker.Close(); closeErr != nil {
				slog.Error("close broker after startup error", "error", closeErr)
			}
		}

		return nil, err
	}

	completion, err := providers.NewCompletionClient(ctx, cfg)
	if err != nil {
		return fail(err)
	}

	embedder, err := providers.NewEmbedder(ctx, cfg)
	if err != nil {
		return fail(err)
	}

	storeOpts := vectorstore.Options{
		Embedder:     embedder,
		CacheMetrics: metrics.cache,
		LLMMetrics:   metrics.llm,
		Logger:       slog.Default(),
	}

	if schema.EmbeddingCache {
		storeOpts.Cache = repository.NewMenuEmbeddingsRepository(db)
	}

	store, err := vectorstore.New(storeOpts)
	if err != nil {
		return fail(err)
	}

	menuService := service.NewMenuService(service.MenuServiceParams{
		Completion:         completion,
		Timeout:            cfg.LLMTimeout,
		Metrics:            metrics.llm,
		PerformanceLogging: cfg.PerformanceLogging,
	})

	ragService := service.NewRAGService(service.RAGServiceParams{
		Completion:         completion,
		APIKey:             cfg.LLMAPIKey(),
		Retriever:          store,
		Timeout:            cfg.LLMTimeout,
		Metrics:            metrics.llm,
		PerformanceLogging: cfg.PerformanceLogging,
	})
	ragService.Initialize(ctx)

	app.message = service.NewMessagePublisherManager(
		cfg.MessagePublisherBufferSize, cfg.MessagePublisherPerEventTimeout, metrics.events)

	if cfg.RabbitMQURL != "" {
		broker, brokerErr := messaging.NewRabbitMQPublisher(cfg.RabbitMQURL, cfg.OrderEventsExchange)
		if brokerErr != nil {
			// Orders must not depend on the broker; run without kitchen notifications.
			slog.Error("RabbitMQ unavailable, order events disabled", "error", brokerErr)
		} else {
			app.broker = broker
			app.message.RegisterProvider(service.NewOrderEventsProvider(broker, metrics.events))
			slog.Info("Order events enabled", "exchange", cfg.OrderEventsExchange)
		}
	}

	// The worker only rebuilds the index; enqueueing goes through app.menuIndex below.
	riverWorkers := river.NewWorkers()
	river.AddWorker(riverWorkers, workers.NewMenuReindexWorker(service.NewMenuIndexService(menuService, store, nil)))

	riverClient, err := river.NewClient(riverpgxv5.New(db), &river.Config{
		Queues: map[string]river.QueueConfig{
			service.MenuIndexQueueName: {MaxWorkers: cfg.MenuIndexWorkers},
		},
		Workers:      riverWorkers,
		ErrorHandler: &jobs.ErrorHandler{},
		Logger:       slog.Default(),
	})
	if err != nil {
		app.message.Shutdown()

		return fail(fmt.Errorf("create River client: %w", err))
	}

	app.river = riverClient
	app.menuIndex = service.NewMenuIndexService(menuService, store, riverClient)
	app.indexOnStart = embedder != nil

	var ordersOpts []repository.OrdersOption
	if cfg.PerformanceLogging {
		ordersOpts = append(ordersOpts, repository.WithPerformanceLogging(slog.Default()))
	}

	ordersService := service.NewOrderService(repository.NewOrdersRepository(db, ordersOpts...), app.message)

	app.server = newHTTPServer(cfg, routes{
		menu:      handlers.NewMenuHandler(menuService),
		orders:    handlers.NewOrdersHandler(ordersService),
		assistant: handlers.NewAssistantHandler(ragService, app.menuIndex),
		health:    handlers.NewHealthHandler(db),
		metrics:   metricsHandler,
	}, metrics.http, meterProvider, tracerProvider)

	return app, nil
}

type routes struct {
	menu      *handlers.MenuHandler
	orders    *handlers.OrdersHandler
	assistant *handlers.AssistantHandler
	health    *handlers.HealthHandler
	metrics   http.Handler
}

// newHTTPServer builds the router. Chain: RequestID -> otelhttp -> chi (Recoverer, Metrics,
// Logging, CORS, MaxBody) so access logs carry request_id and trace_id.
func newHTTPServer(
	cfg *config.Config,
	rt routes,
	httpMetrics observability.HTTPMetrics,
	meterProvider *sdkmetric.MeterProvider,
	tracerProvider *sdktrace.TracerProvider,
) *http.Server {
	r := chi.NewRouter()
	r.Use(
		chimiddleware.RealIP,
		chimiddleware.Recoverer,
		middleware.Metrics(httpMetrics),
		middleware.Logging,
		middleware.CORS(cfg.FrontendURL),
	)

	var bodyRecorder middleware.RequestBodyTooLargeRecorder
	if httpMetrics != nil {
		bodyRecorder = httpMetrics
	}

	r.Get("/api/health", rt.health.Check)

	r.Group(func(r chi.Router) {
		r.Use(middleware.MaxBody(cfg.MaxRequestBodyBytes, bodyRecorder))

		r.Get("/api/menu", rt.menu.Get)

		r.Get("/api/orders", rt.orders.List)
		r.Post("/api/orders", rt.orders.Create)
		r.Get("/api/orders/{id}", rt.orders.Get)

		r.Get("/api/assistant/status", rt.assistant.Status)
		r.Post("/api/assistant/chat", rt.assistant.Chat)
		r.Post("/api/assistant/ask", rt.assistant.Ask)
		r.Post("/api/assistant/reindex", rt.assistant.Reindex)
	})

	if rt.metrics != nil {
		r.Method(http.MethodGet, "/metrics", rt.metrics)
	}

	otelOpts := []otelhttp.Option{
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/api/health" && r.URL.Path != "/metrics"
		}),
	}
	if meterProvider != nil {
		otelOpts = append(otelOpts, otelhttp.WithMeterProvider(meterProvider))
	}

	if tracerProvider != nil {
		otelOpts = append(otelOpts, otelhttp.WithTracerProvider(tracerProvider))
	}

	handler := otelhttp.NewHandler(r, serviceName, otelOpts...)
	handler = middleware.RequestID(handler)

	const (
		readTimeout = 15 * time.Second
		idleTimeout = 60 * time.Second
	)

	return &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     handler,
		ReadTimeout: readTimeout,
		// Live menu and assistant calls wait up to LLMTimeout.
		WriteTimeout: cfg.LLMTimeout + 15*time.Second,
		IdleTimeout:  idleTimeout,
	}
}

// Run starts the HTTP server and River, indexes the static menu in the background, then
// blocks until ctx is cancelled or a component fails. Caller should then call Shutdown.
func (a *App) Run(ctx context.Context) error {
	runErr := make(chan error, 1)

	riverCtx, cancelRiver := context.WithCancel(ctx)
	defer cancelRiver()

	if err := a.river.Start(riverCtx); err != nil {
		return fmt.Errorf("river: %w", err)
	}

	if a.indexOnStart {
		go func() {
			if _, err := a.menuIndex.Reindex(riverCtx, models.MenuSourceStatic); err != nil {
				slog.Error("Initial menu index failed, assistant answers without sources until reindexed", "error", err)
			}
		}()
	} else {
		slog.Warn("Vector store disabled: no embedding provider configured")
	}

	go func() {
		slog.Info("Starting server", "port", a.cfg.Port)

		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case runErr <- fmt.Errorf("server: %w", err):
			default:
			}
		}
	}()

	select {
	case err := <-runErr:
		cancelRiver()

		return err
	case <-ctx.Done():
		cancelRiver()

		return nil
	}
}

// shutdownObservability shuts down tracer and meter providers. Logs secondary errors, returns the first.
func shutdownObservability(ctx context.Context, tracer *sdktrace.TracerProvider, meter *sdkmetric.MeterProvider) error {
	var first error

	if err := observability.ShutdownTracerProvider(ctx, tracer); err != nil {
		first = err
	}

	if err := observability.ShutdownMeterProvider(ctx, meter); err != nil {
		if first == nil {
			first = err
		} else {
			slog.Error("shutdown meter provider", "error", err)
		}
	}

	return first
}

// Shutdown stops, in order: HTTP server, River, message publisher (drains queued order events),
// broker connection, observability. Call after Run returns.
func (a *App) Shutdown(ctx context.Context) (err error) {
	defer func() {
		obsErr := shutdownObservability(ctx, a.tracerProvider, a.meterProvider)
		if err == nil {
			err = obsErr
		} else if obsErr != nil {
			slog.Error("shutdown observability", "error", obsErr)
		}
	}()

	defer func() {
		a.message.Shutdown()

		if a.broker == nil {
			return
		}

		if closeErr := a.broker.Close(); closeErr != nil {
			slog.Error("close broker", "error", closeErr)
		}
	}()

	if err = a.server.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		if stopErr := a.river.Stop(ctx); stopErr != nil {
			slog.Error("river stop during server shutdown", "error", stopErr)
		}

		return fmt.Errorf("server shutdown: %w", err)
	}

	if err = a.river.Stop(ctx); err != nil {
		return fmt.Errorf("river stop: %w", err)
	}

	return nil
}
