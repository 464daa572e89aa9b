package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/japaniel/eldamo/pkg/api"
	"github.com/japaniel/eldamo/pkg/source"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON query API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd.Context())
		},
	}
}

func (a *app) serve(parent context.Context) error {
	// Setup context for graceful shutdown
	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	rt, err := a.open(ctx, reg)
	if err != nil {
		return err
	}
	defer rt.Close()

	if _, err := rt.cache.Snapshot(ctx); err != nil {
		a.log.Warn("initial load failed, lookups return 503 until the source recovers", "error", err)
	}

	if w, ok := rt.src.(*source.WatchedFileSource); ok {
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case <-w.Changes():
					if _, err := rt.cache.RefreshIfStale(ctx); err != nil {
						a.log.Warn("reload after change failed", "error", err)
					}
				}
			}
		}()
	}

	srv := &http.Server{
		Addr:              a.cfg.Listen,
		Handler:           api.NewServer(rt.cache, rt.history, reg, a.log),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		a.log.Info("listening", "addr", a.cfg.Listen, "source", a.cfg.Source)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	a.log.Info("shutting down")
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	return srv.Shutdown(shutdownCtx)
}
