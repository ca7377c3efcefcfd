package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-faster/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/spektr-org/immistat/internal/metrics"
	"github.com/spektr-org/immistat/internal/server"
	"github.com/spektr-org/immistat/loader"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the query views as a JSON API",
		Long: `Serve the query views over HTTP. The source is loaded once at startup
and again on POST /v1/reload; a failed load keeps the previous dataset.
If the first load fails the server still starts and answers 503 until a
reload succeeds.`,
		Example: `  immistat serve --addr :9090
  IMMISTAT_SOURCE=s3://census/leb.csv immistat serve`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("addr") {
				a.cfg.HTTPAddr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default $IMMISTAT_HTTP_ADDR)")
	return cmd
}

// serve runs the HTTP server until ctx is cancelled, then drains it.
func (a *app) serve(ctx context.Context) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	holder := server.NewHolder(func(ctx context.Context) (*loader.Result, error) {
		return a.load(ctx)
	}, m, a.log)
	if _, err := holder.Reload(ctx); err != nil {
		a.log.WithError(err).Warn("initial load failed; serving without a dataset")
	}

	srv := server.New(holder, server.Options{
		TopN:        a.cfg.TopN,
		MetricsPath: a.cfg.MetricsPath,
		Gatherer:    reg,
		Metrics:     m,
		Logger:      a.log,
	})
	httpSrv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.log.WithField("addr", a.cfg.HTTPAddr).Info("listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "listen")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "graceful shutdown")
		}
		return nil
	})
	return g.Wait()
}
