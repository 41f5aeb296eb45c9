package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	grpc_logging "github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	grpc_recovery "github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"

	"github.com/KirkDiggler/rpg-codex/internal/app"
	"github.com/KirkDiggler/rpg-codex/internal/config"
	"github.com/KirkDiggler/rpg-codex/internal/handlers/web"
	"github.com/KirkDiggler/rpg-codex/internal/store"
)

const shutdownTimeout = 30 * time.Second

var (
	configPath  string
	httpAddr    string
	adminPort   int
	dataURL     string
	storageType string
	redisAddr   string
	wikiEnabled bool
	logFormat   string
	logLevel    string
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the codex server",
	Long: `Start the HTTP app shell and the gRPC admin health service. Essential data
types are loaded before the server reports ready; the rest load in the
background.`,
	RunE: runServer,
}

func init() {
	serverCmd.Flags().StringVar(&configPath, "config", "", "path to a YAML config file")
	serverCmd.Flags().StringVar(&httpAddr, "http-addr", "", "HTTP listen address")
	serverCmd.Flags().IntVar(&adminPort, "admin-port", 0, "gRPC admin port")
	serverCmd.Flags().StringVar(&dataURL, "data-url", "", "base URL of the live data source")
	serverCmd.Flags().StringVar(&storageType, "storage", "", "storage driver (memory or redis)")
	serverCmd.Flags().StringVar(&redisAddr, "redis-addr", "", "redis address when --storage=redis")
	serverCmd.Flags().BoolVar(&wikiEnabled, "wiki", false, "use the wiki as a secondary source")
	serverCmd.Flags().StringVar(&logFormat, "log-format", "", "log format (text or json)")
	serverCmd.Flags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
}

func loadSettings(cmd *cobra.Command) (*config.Config, error) {
	settings := config.Default()
	if configPath != "" {
		loaded, err := config.LoadFile(configPath)
		if err != nil {
			return nil, err
		}
		settings = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("http-addr") {
		settings.Server.HTTPAddr = httpAddr
	}
	if flags.Changed("admin-port") {
		settings.Server.AdminPort = adminPort
	}
	if flags.Changed("data-url") {
		settings.Data.SourceURL = dataURL
	}
	if flags.Changed("storage") {
		settings.Storage.Driver = storageType
	}
	if flags.Changed("redis-addr") {
		settings.Storage.RedisAddr = redisAddr
	}
	if flags.Changed("wiki") {
		settings.Data.WikiEnabled = wikiEnabled
	}
	if flags.Changed("log-format") {
		settings.Log.Format = logFormat
	}
	if flags.Changed("log-level") {
		settings.Log.Level = logLevel
	}

	return settings, settings.Validate()
}

func runServer(cmd *cobra.Command, _ []string) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	logger := newLogger(os.Stderr, settings.Log)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(&app.Config{Settings: settings, Logger: logger})
	if err != nil {
		return fmt.Errorf("failed to create app: %w", err)
	}
	defer a.Close()

	handler, err := web.NewHandler(&web.HandlerConfig{
		Router:         a.Router,
		Store:          a.Store,
		Gateway:        a.Gateway,
		Sync:           a.Sync,
		SiteName:       settings.Server.SiteName,
		BootstrapError: a.BootstrapError,
	})
	if err != nil {
		return fmt.Errorf("failed to create web handler: %w", err)
	}
	defer handler.Close()

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", settings.Server.AdminPort))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			grpc_logging.UnaryServerInterceptor(interceptorLogger(logger)),
			grpc_recovery.UnaryServerInterceptor(),
		),
		grpc.ChainStreamInterceptor(
			grpc_logging.StreamServerInterceptor(interceptorLogger(logger)),
			grpc_recovery.StreamServerInterceptor(),
		),
	)

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)
	unsubscribe := watchReadiness(a.Store, healthServer)
	defer unsubscribe()

	httpServer := &http.Server{
		Addr:              settings.Server.HTTPAddr,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("gRPC admin server starting", "port", settings.Server.AdminPort)
		if err := grpcServer.Serve(lis); err != nil {
			return fmt.Errorf("failed to serve gRPC: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		slog.Info("HTTP server starting", "addr", settings.Server.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve HTTP: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		// A failed bootstrap keeps serving so pages can show the error screen
		if _, err := a.Bootstrap(gctx); err == nil {
			a.Start(gctx)
		}
		<-gctx.Done()
		shutdown(httpServer, grpcServer, healthServer)
		return nil
	})

	return g.Wait()
}

// watchReadiness reports NOT_SERVING until the store marks the app ready
func watchReadiness(st store.Store, healthServer *health.Server) func() {
	setStatus := func(state store.State) {
		status := grpc_health_v1.HealthCheckResponse_NOT_SERVING
		if state.App.Ready {
			status = grpc_health_v1.HealthCheckResponse_SERVING
		}
		healthServer.SetServingStatus("", status)
	}
	setStatus(st.GetState())
	return st.Subscribe(setStatus)
}

func shutdown(httpServer *http.Server, grpcServer *grpc.Server, healthServer *health.Server) {
	slog.Info("shutting down servers")
	healthServer.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("HTTP shutdown failed", "error", err)
	}

	stopped := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stopped)
	}()

	select {
	case <-ctx.Done():
		slog.Warn("graceful shutdown timeout exceeded, forcing stop")
		grpcServer.Stop()
	case <-stopped:
		slog.Info("servers stopped gracefully")
	}
}
