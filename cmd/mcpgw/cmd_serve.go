package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/mcp-gateway/pkg/catalog"
	"github.com/ajitpratap0/mcp-gateway/pkg/logging"
	"github.com/ajitpratap0/mcp-gateway/pkg/server"
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("addr", "a", "", "server address")
	serveCmd.Flags().String("catalog", "", "catalog file or glob (catalogs/**/*.yaml)")
	serveCmd.Flags().String("access-key", "", "shared access key required on every request")
	serveCmd.Flags().Bool("metrics", false, "serve Prometheus metrics on /metrics")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", true, "reload the catalog when its files change")
}

var serveWatch bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gateway HTTP server",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := newServices()
	if err != nil {
		return err
	}
	defer svc.Close()

	source, err := catalog.NewWatchedSource(conf.Server.Catalog, catalog.NewHandlerRegistry(), logger)
	if err != nil {
		return err
	}
	if serveWatch {
		if err := source.Start(ctx); err != nil {
			return err
		}
		defer source.Close()
	}

	tieBreak, err := conf.Server.TieBreakPolicy()
	if err != nil {
		return err
	}
	opts := []server.RouterOption{
		server.WithAccessKey(conf.Server.AccessKey),
		server.WithUseLock(conf.Server.UseLock),
		server.WithLockTimeout(conf.Server.LockTimeout),
		server.WithTieBreak(tieBreak),
		server.WithPayloadLimit(conf.Diagnostics.MaxPayload),
		server.WithLogger(logger),
		server.WithMetrics(svc.metrics),
		server.WithTracing(svc.tracer),
	}
	if svc.sink != nil {
		opts = append(opts, server.WithSink(svc.sink))
	}
	router, err := server.NewRouter(source, opts...)
	if err != nil {
		return err
	}

	handler := server.NewHTTPHandler(router,
		server.WithHTTPLogger(logger),
		server.WithHTTPMetrics(svc.metrics),
		server.WithHTTPTracing(svc.tracer),
		server.WithMaxBodyBytes(conf.Server.MaxBodyBytes),
		server.WithAllowedOrigins(conf.Server.AllowedOrigins...),
	)
	srv := &http.Server{
		Addr:              conf.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("gateway listening",
			logging.String("addr", conf.Server.Addr),
			logging.Int("catalogFiles", len(source.Files())),
			logging.Bool("accessKey", conf.Server.AccessKey != ""))
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

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
