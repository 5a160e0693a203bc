package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Manty2503/demo-final/internal/errors"
)

// defaultTimeout bounds reads and writes of ordinary requests. Long-running routes extend their own deadlines.
const defaultTimeout = 5 * time.Second

func (app *application) configureAndStartServer(ctx context.Context, addr string) error {
	handler, err := app.routes()
	if err != nil {
		return errors.Wrap(err, "routes")
	}
	shutdownComplete := make(chan struct{})
	idleTimeout := time.Minute
	srv := &http.Server{
		ErrorLog:          slog.NewLogLogger(app.logger.Handler(), slog.LevelError),
		Handler:           handler,
		IdleTimeout:       idleTimeout,
		ReadTimeout:       defaultTimeout,
		WriteTimeout:      defaultTimeout,
		ReadHeaderTimeout: time.Second,
		// Live interviews and status streams stop when the server shuts down.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	go func() {
		signalCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()

		<-signalCtx.Done()
		app.logger.LogAttrs(ctx, slog.LevelInfo, "shutting down server")

		// We received an interrupt signal or the parent context was cancelled, shut down.
		shutdownContext, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultTimeout)
		defer cancel()
		if shutdownErr := srv.Shutdown(shutdownContext); shutdownErr != nil {
			shutdownErr = errors.Wrap(shutdownErr, "shutdown server")
			app.logger.LogAttrs(ctx, slog.LevelError, "error shutting down server", errors.SlogError(shutdownErr))
		}
		close(shutdownComplete)
	}()

	var listener net.Listener
	if listener, err = net.Listen("tcp", addr); err != nil {
		return errors.Wrap(err, "TCP listen")
	}
	// Tests read the dynamically allocated port from the "addr" attribute.
	app.logger.LogAttrs(ctx, slog.LevelInfo, "starting server", slog.String("addr", listener.Addr().String()))
	if err = srv.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server serve")
	}
	<-shutdownComplete

	return nil
}
