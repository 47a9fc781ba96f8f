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

	"github.com/owtf/exporter/internal/api"
	"github.com/owtf/exporter/internal/log"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func doServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	attrs := slog.Group("exporter",
		slog.String("cmd", "serve"),
		slog.Int("pid", os.Getpid()),
	)
	ctx = log.ContextAttrs(ctx, attrs)

	a, err := openApp(ctx, config)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			slog.WarnContext(ctx, "closing resources failed", "error", err)
		}
	}()

	a.warm(ctx)

	handler, err := api.New(a.reporter, a.store)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", config.ListenAddr())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", config.ListenAddr(), err)
	}

	srv := &http.Server{
		Handler:      handler,
		ReadTimeout:  config.ReadTimeout(),
		WriteTimeout: config.WriteTimeout(),
		BaseContext: func(net.Listener) context.Context {
			// in-flight requests survive the shutdown signal
			return context.WithoutCancel(ctx)
		},
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.InfoContext(ctx, "listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.InfoContext(ctx, "shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
