// FilePath: internal/server/server.go
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/airflowiq/hub/api"
	"github.com/airflowiq/hub/api/middleware"
	"github.com/airflowiq/hub/api/resources"
	"github.com/airflowiq/hub/internal/cache"
	"github.com/airflowiq/hub/internal/config"
	"github.com/airflowiq/hub/internal/database"
	"github.com/airflowiq/hub/internal/fetcher"
	"github.com/airflowiq/hub/internal/monitoring"
	"github.com/airflowiq/hub/internal/repository"
	"github.com/airflowiq/hub/internal/repository/postgres"
	"github.com/airflowiq/hub/internal/repository/postgrest"
	"github.com/airflowiq/hub/internal/service"
	"github.com/gorilla/handlers"
	"github.com/redis/go-redis/v9"
	nuts "github.com/vaudience/go-nuts"
)

// Server represents our HTTP server
type Server struct {
	config   *config.Config
	srv      *http.Server
	db       database.DB
	redis    *redis.Client
	averages *cache.AveragesCache
	fetcher  *fetcher.Fetcher
	service  *service.Service
}

// New creates a new server instance
func New(cfg *config.Config) *Server {
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return &Server{
		config: cfg,
		srv:    srv,
	}
}

// Start begins listening for requests
func (s *Server) Start() error {
	monitoring.Init()

	// Initialize services
	if err := s.initialize(); err != nil {
		return err
	}

	// Set up device event handlers
	if err := setupDeviceEventHandlers(s.service, s.averages); err != nil {
		return err
	}

	s.srv.Handler = NewHandler(s.config, s.fetcher, s.service, s.checkHealth)

	// Start server
	go func() {
		nuts.L.Infof("[Server] Starting server on %s (backend %s)", s.srv.Addr, s.config.Backend.Kind)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			nuts.L.Errorf("[Server] Error starting server: %v", err)
			os.Exit(1)
		}
	}()

	return s.waitForShutdown()
}

// NewHandler assembles routes and the middleware chain. health may be nil.
func NewHandler(cfg *config.Config, f resources.ReadingFetcher, svc *service.Service, health func(ctx context.Context) error) http.Handler {
	res := resources.NewResources(f, svc)
	res.SetHealthCheck(handleHealth(cfg.Backend.Kind, health))
	res.SetMetrics(monitoring.Handler().ServeHTTP)

	router := api.NewRouter(res, middleware.NewJWTMiddleware(cfg.Auth.JWTSecret))

	var h http.Handler = router
	h = handlers.CORS(
		handlers.AllowedOrigins(cfg.Server.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
	)(h)
	h = handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(h)
	return handlers.CombinedLoggingHandler(os.Stdout, h)
}

// waitForShutdown waits for interrupt signal and gracefully shuts down the server
func (s *Server) waitForShutdown() error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	nuts.L.Infof("[Server] Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()

	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			nuts.L.Warnf("[Server] Error closing redis: %v", err)
		}
	}
	if err := s.db.Close(); err != nil {
		nuts.L.Warnf("[Server] Error closing database: %v", err)
	}

	nuts.L.Infof("[Server] Server shut down successfully")
	return nil
}

// handleHealth reports ok, or degraded when the database does not answer
func handleHealth(backend string, check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, code := "ok", http.StatusOK
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				nuts.L.Warnf("[Server] Health check failed: %v", err)
				status, code = "degraded", http.StatusServiceUnavailable
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(map[string]string{
			"status":  status,
			"version": nuts.GetVersion(),
			"backend": backend,
		})
	}
}

func (s *Server) checkHealth(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return err
	}
	if s.redis != nil {
		return s.redis.Ping(ctx).Err()
	}
	return nil
}

// setupDeviceEventHandlers keeps metrics and the averages cache in step
// with ownership changes
func setupDeviceEventHandlers(svc *service.Service, averages *cache.AveragesCache) error {
	for _, event := range service.DeviceEvents {
		event := event
		err := svc.OnDeviceEvent(event, "metrics", func(id string) {
			nuts.L.Infof("[Devices] %s: %s", event, id)
			monitoring.IncDeviceEvent(event)
		})
		if err != nil {
			return err
		}
		if averages == nil {
			continue
		}
		err = svc.OnDeviceEvent(event, "averages_cache", func(id string) {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			averages.InvalidateDevice(ctx, id)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// initialize connects the database, the reading backend and the cache, and
// builds the fetcher and services on top
func (s *Server) initialize() error {
	s.db = initAppDB(s.config.Database)

	devices := postgres.NewDeviceRepository(s.db, s.config.Backend.DevicesTable)
	s.service = service.New(
		devices,
		postgres.NewProductRepository(s.db),
		postgres.NewOrderRepository(s.db),
		postgres.NewProfileRepository(s.db),
	)
	if err := s.service.Validate(); err != nil {
		return err
	}

	var readings repository.ReadingStore
	var owners repository.OwnershipStore
	switch s.config.Backend.Kind {
	case config.BackendPostgREST:
		client := postgrest.New(s.config.PostgREST, s.config.Backend)
		readings, owners = client, client
		nuts.L.Infof("[Server] Reading backend: PostgREST at %s", s.config.PostgREST.URL)
	default:
		readings = postgres.NewReadingRepository(s.db, s.config.Backend.ReadingsTable)
		owners = devices
		nuts.L.Infof("[Server] Reading backend: PostgreSQL table %s", s.config.Backend.ReadingsTable)
	}

	var opts []fetcher.Option
	if s.config.Redis.Enabled {
		s.redis = initRedis(s.config.Redis)
		s.averages = cache.NewAveragesCache(cache.NewRedisKV(s.redis), s.config.Redis.AveragesTTL)
		opts = append(opts, fetcher.WithAveragesCache(s.averages))
	}
	s.fetcher = fetcher.New(readings, owners, opts...)
	return nil
}

func initAppDB(cfg config.PostgresConfig) database.DB {
	wrappedDB, err := database.NewPostgresDB(cfg)
	if err != nil {
		nuts.L.Fatalf("[Server] Failed to connect to AppDB: %v", err)
	}
	// Set up connection timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := wrappedDB.Ping(ctx); err != nil {
		nuts.L.Fatalf("[Server] Failed to ping database: %v", err)
	}
	return wrappedDB
}

func initRedis(cfg config.RedisConfig) *redis.Client {
	client := cache.NewRedisClient(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		// the cache is optional; averages are computed uncached while redis is down
		nuts.L.Warnf("[Server] Redis at %s:%d not reachable: %v", cfg.Host, cfg.Port, err)
	}
	return client
}
