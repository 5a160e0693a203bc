package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/Manty2503/demo-final/internal/e2etest"
	"github.com/Manty2503/demo-final/internal/errors"
	"github.com/Manty2503/demo-final/internal/logging"
)

// TestHome checks that the home page offers at least one interview topic and carries a CSRF token for the page
// scripts.
func TestHome(client *e2etest.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second) //nolint:mnd // 10 seconds
	defer cancel()

	if err := client.WaitForReady(ctx, "/api/healthy"); err != nil {
		return errors.Wrap(err, "wait for ready")
	}
	doc, err := client.GetDoc(ctx, "/")
	if err != nil {
		return errors.Wrap(err, "get home page")
	}
	if n := doc.Find("#topic option").Length(); n == 0 {
		return errors.New("no interview topics offered")
	}
	if _, err = client.CSRFToken(ctx, "/"); err != nil {
		return errors.Wrap(err, "csrf token")
	}

	resp, err := client.Get(ctx, "/static/interview.js")
	if err != nil {
		return errors.Wrap(err, "get relay script")
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.New("relay script not served", slog.Int("status", resp.StatusCode))
	}
	return nil
}

func main() {
	logger := logging.NewLogger(os.Stdout, slog.LevelDebug)
	ctx := context.Background()

	if len(os.Args) != 2 { //nolint:mnd // we expect only hostname to be passed as argument.
		logger.LogAttrs(ctx, slog.LevelError, "usage: smoketest <hostname>")
		os.Exit(1)
	}

	var (
		hostname = os.Args[1]
		url      = "https://" + hostname
		client   *e2etest.Client
		err      error
	)
	ctx = logging.WithAttrs(ctx, slog.String("hostname", url))

	if client, err = e2etest.NewClient(url); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error creating client", errors.SlogError(err))
		os.Exit(1)
	}
	if err = TestHome(client); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error testing home page", errors.SlogError(err))
		os.Exit(1)
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "Smoke test successful")
	os.Exit(0)
}
