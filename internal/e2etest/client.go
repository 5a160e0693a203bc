package e2etest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Manty2503/demo-final/internal/errors"
	"github.com/PuerkitoBio/goquery"
	"github.com/gorilla/websocket"
	"github.com/justinas/nosurf"
)

// Client is an HTTP client holding the session cookies of one browser.
type Client struct {
	client *http.Client
	jar    *unsafeCookieJar
	url    string
}

func NewClient(url string) (*Client, error) {
	jar, err := newUnsafeCookieJar()
	if err != nil {
		return nil, errors.Wrap(err, "create unsafe cookie jar")
	}
	return &Client{
		client: &http.Client{Jar: jar},
		jar:    jar,
		url:    url,
	}, nil
}

// WaitForReady calls the specified endpoint until it gets a HTTP 200 Success
// response or until the context is cancelled or the 1-second timeout is reached.
func (c *Client) WaitForReady(ctx context.Context, urlPath string) error {
	timeout := 1 * time.Second
	startTime := time.Now()
	var (
		err  error
		req  *http.Request
		resp *http.Response
	)
	for {
		if req, err = http.NewRequestWithContext(
			ctx,
			http.MethodGet,
			c.url+urlPath,
			nil,
		); err != nil {
			return errors.Wrap(err, "create request")
		}

		if resp, err = c.client.Do(req); err == nil {
			if resp.StatusCode == http.StatusOK {
				if err = resp.Body.Close(); err != nil {
					return errors.Wrap(err, "close response body")
				}
				return nil
			}
			if err = resp.Body.Close(); err != nil {
				return errors.Wrap(err, "close response body")
			}
		}
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "context cancelled")
		default:
			if time.Since(startTime) >= timeout {
				return errors.New("timeout waiting for endpoint to be ready")
			}
			time.Sleep(100 * time.Millisecond) //nolint:mnd // 100ms
		}
	}
}

// Get fetches a URL and returns the response.
func (c *Client) Get(ctx context.Context, urlPath string) (*http.Response, error) {
	var (
		err  error
		req  *http.Request
		resp *http.Response
	)
	if req, err = c.newRequestWithContext(ctx, http.MethodGet, urlPath, nil); err != nil {
		return nil, errors.Wrap(err, "create request with context")
	}
	if resp, err = c.client.Do(req); err != nil {
		return nil, errors.Wrap(err, "do request")
	}
	return resp, nil
}

// GetDoc fetches a URL and returns a goquery document.
func (c *Client) GetDoc(ctx context.Context, urlPath string) (*goquery.Document, error) {
	var (
		err  error
		resp *http.Response
		doc  *goquery.Document
	)
	if resp, err = c.Get(ctx, urlPath); err != nil {
		return nil, errors.Wrap(err, "client get")
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if http.StatusOK != resp.StatusCode {
		return nil, errors.New("unexpected status code", slog.Int("status", resp.StatusCode))
	}
	if doc, err = goquery.NewDocumentFromReader(resp.Body); err != nil {
		return nil, errors.Wrap(err, "create document from reader")
	}
	return doc, nil
}

// CSRFToken loads the page at urlPath and returns the token the page scripts send with API calls.
func (c *Client) CSRFToken(ctx context.Context, urlPath string) (string, error) {
	doc, err := c.GetDoc(ctx, urlPath)
	if err != nil {
		return "", errors.Wrap(err, "get document")
	}
	token, ok := doc.Find("meta[name=csrf-token]").Attr("content")
	if !ok || token == "" {
		return "", errors.New("csrf-token meta tag not found", slog.String("path", urlPath))
	}
	return token, nil
}

// PostJSON sends body as JSON with the CSRF token header and returns the response.
func (c *Client) PostJSON(ctx context.Context, urlPath string, body any, csrfToken string) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(err, "marshal body")
	}
	return c.Post(ctx, urlPath, "application/json", bytes.NewReader(payload), csrfToken)
}

// Post sends a raw body with the CSRF token header and returns the response.
func (c *Client) Post(
	ctx context.Context, urlPath, contentType string, body io.Reader, csrfToken string) (*http.Response, error) {
	req, err := c.newRequestWithContext(ctx, http.MethodPost, urlPath, body)
	if err != nil {
		return nil, errors.Wrap(err, "create request with context")
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(nosurf.HeaderName, csrfToken)
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "do request")
	}
	return resp, nil
}

// DialWebSocket opens a WebSocket to urlPath carrying the client's session cookies.
func (c *Client) DialWebSocket(ctx context.Context, urlPath string) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		Jar:              c.jar,
		HandshakeTimeout: 5 * time.Second, //nolint:mnd // 5 seconds
	}
	wsURL := "ws" + strings.TrimPrefix(c.url, "http") + urlPath
	conn, resp, err := dialer.DialContext(ctx, wsURL, nil)
	if resp != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, errors.Wrap(err, "dial websocket", slog.String("url", wsURL))
	}
	return conn, nil
}

// newRequestWithContext creates a new HTTP request to the server that respects the given context.
func (c *Client) newRequestWithContext(
	ctx context.Context,
	method, urlPath string,
	body io.Reader,
) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.url+urlPath, body)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	return req, nil
}
