package commands

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"staffplan/internal/api"
	"staffplan/internal/buildinfo"
	"staffplan/internal/webhooks"
	"staffplan/internal/worker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and the schedule worker",
	Long: `Start the staffplan API server. A background worker polls the run queue
and builds queued schedules; run events stream to SSE and WebSocket
subscribers. SIGINT or SIGTERM triggers a graceful shutdown.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := api.NewServer(cfg)
	if err != nil {
		return err
	}

	// The worker lives below the API package, so run events reach stream
	// subscribers and the webhook queue through this callback instead of
	// a direct import.
	wrk := worker.New(srv.Store, cfg.WorkerInterval())
	wrk.Notify = srv.Publish

	httpSrv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Info().
		Str("addr", httpSrv.Addr).
		Str("version", buildinfo.Version).
		Msg("staffplan starting")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		wrk.Run(ctx)
		return nil
	})
	if cfg.WebhookURL != "" {
		whk := webhooks.NewWorker(srv.Store, cfg.WebhookSecret)
		g.Go(func() error {
			whk.Run(ctx)
			return nil
		})
	}
	g.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
