package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"roombook/internal/booking"
	customerhandler "roombook/internal/customers/handler"
	customerservice "roombook/internal/customers/service"
	customervalidator "roombook/internal/customers/validator"
	"roombook/internal/events"
	"roombook/internal/health"
	reservationhandler "roombook/internal/reservations/handler"
	reservationservice "roombook/internal/reservations/service"
	reservationvalidator "roombook/internal/reservations/validator"
	roomhandler "roombook/internal/rooms/handler"
	roomservice "roombook/internal/rooms/service"
	roomvalidator "roombook/internal/rooms/validator"
	"roombook/internal/storage"
	"roombook/pkg/config"
	"roombook/pkg/contracts"
	"roombook/pkg/kafka"
	kafka_config "roombook/pkg/kafka/config"
	kafkamiddleware "roombook/pkg/kafka/middleware"
	"roombook/pkg/middleware"
)

type Application struct {
	cfg              *config.Config
	store            storage.Store
	engine           *booking.Engine
	producer         *kafka.Producer
	server           *http.Server
	idempotencyStore middleware.IdempotencyStore
	rateLimiter      *middleware.ClientRateLimiter
	healthHandler    http.Handler
	appHTTPHandler   http.Handler
	bookingOpts      []booking.Option
}

func NewApplication(cfg *config.Config, store storage.Store, opts ...booking.Option) *Application {
	return &Application{cfg: cfg, store: store, bookingOpts: opts}
}

// SetApp wires the engine, the services and both HTTP stacks. It must run
// before Run or Handler.
func (a *Application) SetApp() error {
	if err := a.setEngine(); err != nil {
		return err
	}
	a.setHealthHandler()
	a.setAppHandler(a.handlers()...)
	a.setAppServer()
	return nil
}

func (a *Application) setEngine() error {
	opts := append([]booking.Option(nil), a.bookingOpts...)
	if a.cfg.KafkaEnabled {
		kcfg, err := kafka_config.Load()
		if err != nil {
			return err
		}
		kcfg.LogConfiguration(a.cfg.Log)

		producer, err := kafka.NewProducer(kcfg, a.cfg.KafkaReservationsTopic, a.cfg.KafkaDLQTopic, a.cfg.Log)
		if err != nil {
			return fmt.Errorf("kafka producer: %w", err)
		}
		if kcfg.EnableMiddleware {
			producer.Use(kafkamiddleware.LoggingProducerMiddleware(a.cfg.Log))
		}
		a.producer = producer
		opts = append(opts, booking.WithEventPublisher(events.NewKafkaPublisher(producer)))
		a.cfg.Log.Info("Reservation events enabled", "topic", a.cfg.KafkaReservationsTopic)
	}

	a.engine = booking.NewEngine(a.store, a.cfg, opts...)
	return nil
}

func (a *Application) handlers() []contracts.Handler {
	log := a.cfg.Log

	rooms := roomservice.NewRoomService(a.store, a.engine, roomvalidator.NewRoomValidator(log), a.cfg)
	customers := customerservice.NewCustomerService(a.store, a.engine, customervalidator.NewCustomerValidator(log), a.cfg)
	reservations := reservationservice.NewReservationService(a.engine, reservationvalidator.NewReservationValidator(log), a.cfg)

	return []contracts.Handler{
		roomhandler.NewRoomHandler(rooms, log),
		customerhandler.NewCustomerHandler(customers, log),
		reservationhandler.NewReservationHandler(reservations, log),
	}
}

func (a *Application) setHealthHandler() {
	healthHandler := health.NewHandler(a.cfg.Log).Register("storage", a.store)
	if a.cfg.Client != nil && a.cfg.Client.Redis != nil {
		rdb := a.cfg.Client.Redis
		healthHandler.Register("redis", health.PingFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}))
	}
	var healthHTTPHandler http.Handler = contracts.NewRouter(healthHandler)
	healthHTTPHandler = middleware.RequestLogging(a.cfg.Log)(healthHTTPHandler)
	healthHTTPHandler = middleware.Recovery(a.cfg.Log)(healthHTTPHandler)
	a.healthHandler = healthHTTPHandler
	a.cfg.Log.Info("Health endpoints configured with minimal middleware (Recovery + Logging only)")
}

func (a *Application) setAppHandler(handlers ...contracts.Handler) {
	appRouter := contracts.NewRouter(handlers...)

	if a.cfg.Client != nil && a.cfg.Client.Redis != nil {
		a.idempotencyStore = middleware.NewRedisIdempotencyStore(a.cfg.Client.Redis, a.cfg.IdempotencyTTL, a.cfg.Log)
		a.cfg.Log.Info("Idempotency cache backed by Redis")
	} else {
		a.idempotencyStore = middleware.NewInMemoryIdempotencyStore(a.cfg.IdempotencyTTL)
	}
	a.rateLimiter = middleware.NewClientRateLimiter(
		a.cfg.RateLimitRequests,
		a.cfg.RateLimitWindow,
		middleware.ClientIPExtractor,
		a.cfg.Log,
	)

	// Middleware order: Recovery → Logging → MaxSize → ContentType → RateLimit → Timeout → Idempotency → Router
	var appHTTPHandler http.Handler = appRouter
	appHTTPHandler = middleware.Idempotency(a.idempotencyStore, middleware.DefaultIdempotencyHeader, a.cfg.Log)(appHTTPHandler)
	appHTTPHandler = middleware.RequestTimeout(a.cfg.RequestTimeout)(appHTTPHandler)
	appHTTPHandler = middleware.RateLimit(a.rateLimiter)(appHTTPHandler)
	appHTTPHandler = middleware.ContentTypeValidation(a.cfg.Log)(appHTTPHandler)
	appHTTPHandler = middleware.MaxRequestSize(int64(a.cfg.MaxRequestSize))(appHTTPHandler)
	appHTTPHandler = middleware.RequestLogging(a.cfg.Log)(appHTTPHandler)
	appHTTPHandler = middleware.Recovery(a.cfg.Log)(appHTTPHandler)
	a.appHTTPHandler = appHTTPHandler
	a.cfg.Log.Info("Application endpoints configured with full middleware stack")
}

func (a *Application) setAppServer() {
	a.server = &http.Server{
		Addr:         ":" + a.cfg.Port,
		Handler:      a.Handler(),
		ReadTimeout:  a.cfg.ReadTimeout,
		WriteTimeout: a.cfg.WriteTimeout,
		IdleTimeout:  a.cfg.IdleTimeout,
	}
	a.cfg.Log.Info("HTTP server configured", "port", a.cfg.Port)
}

// Handler is the full HTTP surface: health probes plus the API.
func (a *Application) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/health", a.healthHandler)
	mux.Handle("/ready", a.healthHandler)
	mux.Handle("/", a.appHTTPHandler)
	return mux
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (a *Application) Run(ctx context.Context) error {
	serverErrors := make(chan error, 1)

	go func() {
		a.cfg.Log.Info("Starting HTTP server", "address", a.server.Addr)
		serverErrors <- a.server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		a.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("HTTP server failed: %w", err)

	case <-ctx.Done():
		a.cfg.Log.Info("Shutdown signal received", "cause", context.Cause(ctx))
		return a.gracefulShutdown()
	}
}

func (a *Application) gracefulShutdown() error {
	a.cfg.Log.Info("Starting graceful shutdown...")

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	var shutdownErr error
	if err := a.server.Shutdown(ctx); err != nil {
		a.cfg.Log.Error("Server shutdown failed", "error", err)
		if err := a.server.Close(); err != nil {
			shutdownErr = fmt.Errorf("could not stop server gracefully: %w", err)
		}
	}

	a.Close()
	a.cfg.Log.Info("Server stopped gracefully")
	return shutdownErr
}

// Close stops background workers and flushes the event producer. Connections
// owned by cfg.Client are closed by its GracefulShutdown.
func (a *Application) Close() {
	a.cfg.Log.Info("Stopping background workers...")
	if a.idempotencyStore != nil {
		a.idempotencyStore.Stop()
	}
	if a.rateLimiter != nil {
		a.rateLimiter.Stop()
	}
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.cfg.Log.Error("Failed to close Kafka producer", "error", err)
		}
	}
	a.cfg.Log.Info("Background workers stopped")
}
