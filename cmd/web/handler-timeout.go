package main

import (
	"net/http"
	"time"
)

const timeoutPage = `<!doctype html>
<html lang="en">
<head><meta charset="utf-8"><title>Timeout</title></head>
<body>
<h1>The server took too long to respond</h1>
<p>Your interviews are safe. <a href="">Reload the page</a> or <a href="/">go back to the start</a>.</p>
</body>
</html>
`

const timeoutJSON = `{"error":"request timed out"}`

// timeoutHandler responds with 503 Service Unavailable when h does not finish within d. API routes get a JSON body
// and pages get an HTML body.
func timeoutHandler(h http.Handler, d time.Duration, api bool) http.Handler {
	// Respond a little before the server's write deadline so that the client still receives the response.
	d -= 500 * time.Millisecond //nolint:mnd // 500ms
	body := timeoutPage
	if api {
		body = timeoutJSON
	}
	timeout := http.TimeoutHandler(h, d, body)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if api {
			w.Header().Set("Content-Type", "application/json")
		}
		timeout.ServeHTTP(w, r)
	})
}
