package main

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
	"github.com/spf13/cobra"

	"github.com/KirkDiggler/rpg-codex/internal/fallback"
	"github.com/KirkDiggler/rpg-codex/internal/handlers/web"
)

var dataPort int

var serveDataCmd = &cobra.Command{
	Use:   "serve-data",
	Short: "Serve the bundled data set as a local data source",
	Long: `Serve the bundled sample data under /data/<type>.json so the server can be
run against a live source during development.`,
	RunE: runServeData,
}

func init() {
	serveDataCmd.Flags().IntVar(&dataPort, "port", 8081, "HTTP port")
}

func runServeData(_ *cobra.Command, _ []string) error {
	set, err := fallback.Load()
	if err != nil {
		return fmt.Errorf("failed to load bundled data: %w", err)
	}

	r := chi.NewRouter()
	r.Mount("/data", web.DataRoutes(set))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", dataPort),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		slog.Info("data server starting", "port", dataPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("failed to serve: %w", err)
	}
}
