package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/quill/internal/cli"
	httpAdapter "github.com/aretw0/quill/pkg/adapters/http"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Serves the run entry points as a JSON API over HTTP, and Prometheus metrics
on a separate address. Stops gracefully on SIGINT or SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

		app, err := openApp(ctx, cmd, false, cli.AppOptions{Registry: reg})
		if err != nil {
			return err
		}
		defer app.Close()

		addr := app.Config.HTTP.Addr
		if cmd.Flags().Changed("addr") {
			addr, _ = cmd.Flags().GetString("addr")
		}
		metricsAddr := app.Config.Metrics.Addr
		if cmd.Flags().Changed("metrics-addr") {
			metricsAddr, _ = cmd.Flags().GetString("metrics-addr")
		}

		servers := []*http.Server{{
			Addr:              addr,
			Handler:           httpAdapter.NewHandler(app.Engine, httpAdapter.WithLogger(app.Logger)),
			ReadHeaderTimeout: 10 * time.Second,
		}}
		if metricsAddr != "" {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
			servers = append(servers, &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second})
		}

		g, gctx := errgroup.WithContext(ctx)
		for _, srv := range servers {
			g.Go(func() error {
				app.Logger.Info("Listening", "addr", srv.Addr)
				if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		}
		g.Go(func() error {
			<-gctx.Done()
			app.Logger.Info("Shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
			defer cancel()

			var errs []error
			for _, srv := range servers {
				if err := srv.Shutdown(shutdownCtx); err != nil {
					errs = append(errs, err, srv.Close())
				}
			}
			return errors.Join(errs...)
		})

		if err := g.Wait(); err != nil {
			return err
		}
		app.Logger.Info("Server stopped gracefully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", ":8080", "Address of the HTTP API")
	serveCmd.Flags().String("metrics-addr", ":2112", "Address of the metrics endpoint (empty disables it)")
}
