package e2etest

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/Manty2503/demo-final/internal/errors"
	"github.com/Manty2503/demo-final/internal/logging"
)

// LogAddrKey is the key used to log the address the server is listening on.
const LogAddrKey = "addr"

// readyPath answers 200 once the server accepts requests.
const readyPath = "/api/healthy"

type Server struct {
	url    string
	client *Client
}

// RunFunc has the signature of the web server's run function.
type RunFunc func(ctx context.Context, logger *slog.Logger, lookupEnv func(string) (string, bool)) error

// StartServer runs the web server in the background and returns once it answers on its health endpoint.
//
// logSink receives the server logs, usually [io.Discard]. lookupEnv has the same signature as [os.LookupEnv] and
// should choose a dynamic port with localhost:0. run must log the listening address under [LogAddrKey]. The server
// stops when ctx is cancelled.
func StartServer(ctx context.Context, logSink io.Writer, lookupEnv func(string) (string, bool), run RunFunc) (
	*Server, error) {
	ctx, cancel := context.WithCancelCause(ctx)
	logger, addrCh := addrCapturingLogger(logSink)

	go func() {
		if err := run(ctx, logger, lookupEnv); err != nil {
			cancel(err)
		}
	}()

	var addr string
	select {
	case <-ctx.Done():
		return nil, errors.Wrap(context.Cause(ctx), "server stopped before listening")
	case addr = <-addrCh:
	}

	serverURL := fmt.Sprintf("http://%s", addr)
	client, err := NewClient(serverURL)
	if err != nil {
		return nil, errors.Wrap(err, "new client")
	}
	if err = client.WaitForReady(ctx, readyPath); err != nil {
		return nil, errors.Wrap(err, "wait for ready", slog.String("url", serverURL))
	}
	return &Server{url: serverURL, client: client}, nil
}

// addrCapturingLogger returns a debug logger writing to logSink and a channel receiving the first logged address.
func addrCapturingLogger(logSink io.Writer) (*slog.Logger, <-chan string) {
	addrCh := make(chan string, 1)
	handler := slog.NewTextHandler(logSink, &slog.HandlerOptions{
		Level: slog.LevelDebug,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == LogAddrKey {
				select {
				case addrCh <- a.Value.String():
				default:
				}
			}
			return a
		},
	})
	return slog.New(logging.NewContextHandler(handler)), addrCh
}

// Client returns a client that shares cookies across calls, like a single browser.
func (s *Server) Client() *Client {
	return s.client
}

func (s *Server) URL() string {
	return s.url
}
