package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/vaidashi/order-admin/internal/config"
	"github.com/vaidashi/order-admin/internal/database"
	"github.com/vaidashi/order-admin/internal/models"
	"github.com/vaidashi/order-admin/internal/outbox"
	"github.com/vaidashi/order-admin/internal/repository"
	"github.com/vaidashi/order-admin/internal/service"
	"github.com/vaidashi/order-admin/internal/session"
	apperrors "github.com/vaidashi/order-admin/pkg/errors"
	"github.com/vaidashi/order-admin/pkg/kafka"
	"github.com/vaidashi/order-admin/pkg/logger"
	"github.com/vaidashi/order-admin/pkg/retry"
)

// OrderFetcher returns orders joined with their items, newest first
type OrderFetcher interface {
	FetchOrders(ctx context.Context) ([]*models.Order, error)
}

// SettingManager loads and saves key/value settings
type SettingManager interface {
	Load(ctx context.Context, key string) (string, bool)
	Save(ctx context.Context, key, value string) error
}

type Server struct {
	config     *config.Config
	logger     logger.Logger
	router     *mux.Router
	httpServer *http.Server
	orders     OrderFetcher
	settings   SettingManager
	sessions   session.Store
	processor  *outbox.Processor
	closers    []io.Closer

	sessionLocks [sessionLockStripes]sync.Mutex
}

// NewServer creates the HTTP server around already built dependencies
func NewServer(cfg *config.Config, logger logger.Logger, orders OrderFetcher, settings SettingManager, sessions session.Store) *Server {
	r := mux.NewRouter()

	server := &Server{
		config: cfg,
		logger: logger,
		router: r,
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      r,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		orders:   orders,
		settings: settings,
		sessions: sessions,
	}

	server.setupRoutes()
	return server
}

// Bootstrap connects to the database, Kafka and the session backend, wires
// the services and starts the outbox processor
func Bootstrap(ctx context.Context, cfg *config.Config, logger logger.Logger) (*Server, error) {
	db, err := database.New(cfg, logger)

	if err != nil {
		return nil, err
	}

	closers := []io.Closer{db}

	fail := func(err error) (*Server, error) {
		closeAll(closers, logger)
		return nil, err
	}

	if err := db.RunMigrations(ctx); err != nil {
		return fail(err)
	}

	orderRepo := repository.NewOrderRepository(db, logger)
	settingRepo := repository.NewSettingRepository(db, logger)
	outboxRepo := repository.NewOutboxRepository(db, logger)

	orderService := service.NewOrderService(orderRepo, logger)
	settingService := service.NewSettingService(settingRepo, outboxRepo, logger)

	var sessions session.Store

	switch cfg.Session.Backend {
	case config.SessionBackendRedis:
		client := session.NewRedisClient(cfg.Session.RedisAddr, cfg.Session.RedisPassword, cfg.Session.RedisDB)

		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return fail(fmt.Errorf("failed to connect to redis: %w", err))
		}

		closers = append(closers, client)
		sessions = session.NewRedisStore(client, cfg.Session.TTL)
		logger.Info("Using redis session store", "addr", cfg.Session.RedisAddr)
	default:
		sessions = session.NewMemoryStore(cfg.Session.TTL)
	}

	var handler outbox.MessageHandler = outbox.NewLoggingHandler(logger)

	if cfg.KafkaEnabled() {
		producer, err := kafka.NewProducer(cfg.Kafka.Brokers, logger)

		if err != nil {
			return fail(err)
		}

		// closed before the database so in-flight publishes can finish
		closers = append([]io.Closer{producer}, closers...)
		handler = outbox.NewKafkaHandler(producer, cfg.Kafka.SettingsTopic, &retry.RetryConfig{
			MaxAttempts:     3,
			BackoffStrategy: retry.NewDefaultExponentialBackoff(),
			Logger:          logger,
			ShouldRetry:     apperrors.IsRetryable,
		}, logger)
	} else {
		logger.Warn("KAFKA_BROKERS not set, setting events will only be logged")
	}

	processor := outbox.NewProcessor(outboxRepo, outbox.ProcessorConfig{
		PollingInterval: cfg.Outbox.PollingInterval,
		BatchSize:       cfg.Outbox.BatchSize,
		MaxRetries:      cfg.Outbox.MaxRetries,
	}, logger)
	processor.RegisterHandler(models.EventTypeSettingSaved, handler)

	server := NewServer(cfg, logger, orderService, settingService, sessions)
	server.processor = processor
	server.closers = closers

	processor.Start()

	return server, nil
}

func closeAll(closers []io.Closer, logger logger.Logger) {
	for _, c := range closers {
		if err := c.Close(); err != nil {
			logger.Error("Error closing resource", "error", err)
		}
	}
}

// Handler exposes the router
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown stops accepting requests, then stops the processor and closes connections
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)

	if s.processor != nil {
		s.processor.Stop()
	}

	closeAll(s.closers, s.logger)

	return err
}

// setupRoutes configures all the routes for our API
func (s *Server) setupRoutes() {
	s.router.Use(s.loggingMiddleware)

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/health", s.healthCheckHandler).Methods(http.MethodGet)

	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(s.sessionMiddleware)
	admin.HandleFunc("/orders", s.getOrdersHandler).Methods(http.MethodGet)
	admin.HandleFunc("/orders/{id}/toggle", s.toggleOrderHandler).Methods(http.MethodPost)
	admin.HandleFunc("/settings/{key}", s.getSettingHandler).Methods(http.MethodGet)
	admin.HandleFunc("/settings/{key}", s.saveSettingHandler).Methods(http.MethodPut)
}

// loggingMiddleware logs method, path, status and duration of every request
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		s.logger.Info("Request processed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"duration", time.Since(start),
			"remoteAddr", r.RemoteAddr,
		)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
