// Package pprofserver exposes the runtime profiler on the loopback interface only.
package pprofserver

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/Manty2503/demo-final/internal/errors"
)

func Handle(mux *http.ServeMux) {
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
}

func newServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	Handle(mux)
	return mux
}

// Launch starts a pprof server on the IPv6 loopback address ::1 with the given port, for example ":6060".
// The server stops when ctx is done. The returned channel receives the listening address once the server is up.
func Launch(ctx context.Context, port string, logger *slog.Logger) (<-chan string, error) {
	listener, err := net.Listen("tcp", net.JoinHostPort("::1", trimColon(port)))
	if err != nil {
		return nil, errors.Wrap(err, "pprof listen", slog.String("port", port))
	}
	srv := &http.Server{
		Handler:           newServeMux(),
		ReadHeaderTimeout: time.Second,
	}
	addrCh := make(chan string, 1)
	addrCh <- listener.Addr().String()
	logger.LogAttrs(ctx, slog.LevelInfo, "starting pprof server", slog.String("pprof_addr", listener.Addr().String()))

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	go func() {
		if serveErr := srv.Serve(listener); !errors.Is(serveErr, http.ErrServerClosed) {
			logger.LogAttrs(ctx, slog.LevelError, "pprof server failed",
				errors.SlogError(errors.Wrap(serveErr, "pprof serve")))
		}
	}()
	return addrCh, nil
}

func trimColon(port string) string {
	if len(port) > 0 && port[0] == ':' {
		return port[1:]
	}
	return port
}
