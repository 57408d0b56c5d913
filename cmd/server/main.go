package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/pesio-ai/be-brand-navigator/internal/client"
	"github.com/pesio-ai/be-brand-navigator/internal/config"
	"github.com/pesio-ai/be-brand-navigator/internal/database"
	"github.com/pesio-ai/be-brand-navigator/internal/handler"
	"github.com/pesio-ai/be-brand-navigator/internal/logger"
	"github.com/pesio-ai/be-brand-navigator/internal/middleware"
	"github.com/pesio-ai/be-brand-navigator/internal/repository"
	"github.com/pesio-ai/be-brand-navigator/internal/service"
	"github.com/pesio-ai/be-brand-navigator/internal/telemetry"
)

func main() {
	// Load configuration
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Environment: cfg.Service.Environment,
		ServiceName: cfg.Service.Name,
		Version:     cfg.Service.Version,
	})

	log.Info().
		Str("service", cfg.Service.Name).
		Str("version", cfg.Service.Version).
		Str("environment", cfg.Service.Environment).
		Bool("dev_mode", cfg.Service.DevMode).
		Msg("Starting Brand Navigator Service")

	// Create context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize tracing
	tracerProvider, shutdownTracing, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName: cfg.Service.Name,
		Version:     cfg.Service.Version,
		Environment: cfg.Service.Environment,
		Endpoint:    cfg.Tracing.Endpoint,
		SampleRatio: cfg.Tracing.SampleRatio,
		Insecure:    cfg.Tracing.Insecure,
	}, log.Component("telemetry").Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize tracing")
	}

	// Initialize repositories
	var (
		brands  service.BrandStore
		history service.HistoryStore
	)
	switch cfg.Database.Driver {
	case "memory":
		repo := repository.NewMemoryRepository()
		brands, history = repo, repo
		log.Warn().Msg("Using in-memory brand store, data will not survive a restart")
	default:
		db, err := database.New(ctx, database.Config{
			DSN:         cfg.Database.DSN(),
			MaxConns:    cfg.Database.MaxConns,
			MinConns:    cfg.Database.MinConns,
			MaxConnTime: cfg.Database.MaxConnTime,
			MaxIdleTime: cfg.Database.MaxIdleTime,
			HealthCheck: cfg.Database.HealthCheck,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer db.Close()
		log.Info().Msg("Database connection established")

		if cfg.Database.MigrateOnStart {
			if err := db.Migrate(); err != nil {
				log.Fatal().Err(err).Msg("Failed to run migrations")
			}
			log.Info().Msg("Database migrations applied")
		}

		tracer := tracerProvider.Tracer("brand-navigator/repository")
		brands = repository.NewBrandRepository(db, tracer)
		history = repository.NewStatusHistoryRepository(db, tracer)
	}

	// Initialize event publisher
	var publisher service.EventPublisherInterface
	if cfg.NATS.URL != "" {
		pub, nc, err := client.Connect(cfg.NATS.URL, cfg.NATS.SubjectPrefix, cfg.Service.Name, log.Component("events").Logger)
		if err != nil {
			log.Warn().Err(err).Msg("NATS unavailable, lifecycle events disabled")
		} else {
			defer nc.Drain()
			publisher = pub
			log.Info().Str("url", cfg.NATS.URL).Msg("NATS event publisher initialized")
		}
	}

	// Initialize services
	brandService := service.NewBrandService(brands, history, publisher, cfg.Service.DevMode, log.Component("brand_service"))

	// Setup HTTP routes
	mux := http.NewServeMux()
	handler.NewHTTPHandler(brandService, log).Register(mux)

	// Apply middleware
	var h http.Handler = mux
	h = middleware.RequestID(h)
	h = middleware.Logger(&log.Logger)(h)
	h = middleware.Recovery(&log.Logger)(h)
	h = middleware.CORS(cfg.Server.CORSOrigins)(h)
	h = middleware.Timeout(cfg.Server.RequestTimeout)(h)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      h,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("HTTP server failed")
		}
	}()

	// Start gRPC server
	grpcHandler := handler.NewGRPCHandler(brandService, log.Logger)

	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(
		handler.UnaryRecovery(log.Logger),
		handler.UnaryLogging(log.Logger),
	))
	handler.RegisterNavigatorServer(grpcServer, grpcHandler)

	healthServer := health.NewServer()
	healthServer.SetServingStatus(handler.NavigatorServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer) // Enable reflection for debugging

	grpcListener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.GRPCPort))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create gRPC listener")
	}

	go func() {
		log.Info().Int("port", cfg.Server.GRPCPort).Msg("Starting gRPC server")
		if err := grpcServer.Serve(grpcListener); err != nil {
			log.Error().Err(err).Msg("gRPC server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	healthServer.Shutdown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	// Stop gRPC server gracefully
	grpcServer.GracefulStop()

	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Tracer provider shutdown failed")
	}

	log.Info().Msg("Server stopped")
}
