package main

import (
	"io/fs"
	"net/http"
	"time"

	"github.com/Manty2503/demo-final/internal/errors"
	"github.com/Manty2503/demo-final/ui"
	"github.com/justinas/alice"
)

const (
	// upstreamTimeout covers routes that wait for the realtime service.
	upstreamTimeout = 30 * time.Second
	// evaluationTimeout covers routes that wait for the scoring model.
	evaluationTimeout = 60 * time.Second
)

func (app *application) routes() (http.Handler, error) {
	mux := http.NewServeMux()

	static, err := fs.Sub(ui.Files, "static")
	if err != nil {
		return nil, errors.Wrap(err, "sub static files")
	}
	mux.Handle("GET /static/", cacheForeverHeaders(http.StripPrefix("/static", http.FileServerFS(static))))

	session := alice.New(app.sessionManager.LoadAndSave, app.candidate, app.noSurf, commonContext)
	// Hijacked and streaming responses only load the session. See serverSentEventMiddleware.
	live := alice.New(app.serverSentEventMiddleware, app.requireCandidate, app.withDeadline(0))

	page := func(h http.HandlerFunc) http.Handler {
		return timeoutHandler(session.ThenFunc(h), defaultTimeout, false)
	}
	api := func(h http.HandlerFunc, d time.Duration) http.Handler {
		handler := timeoutHandler(session.ThenFunc(h), d, true)
		if d > defaultTimeout {
			handler = app.withDeadline(d)(handler)
		}
		return handler
	}

	mux.Handle("GET /{$}", page(app.home))
	mux.Handle("GET /interviews/{id}", page(app.interviewPage))
	mux.Handle("GET /api/healthy", timeoutHandler(http.HandlerFunc(app.healthy), defaultTimeout, true))

	mux.Handle("POST /api/session", api(app.createSession, upstreamTimeout))
	mux.Handle("POST /api/sdp", api(app.negotiateSDP, upstreamTimeout))
	mux.Handle("POST /api/webrtc", api(app.negotiateWebRTC, upstreamTimeout))

	mux.Handle("GET /api/interviews", api(app.listInterviews, defaultTimeout))
	mux.Handle("POST /api/interviews", api(app.saveInterview, defaultTimeout))
	mux.Handle("GET /api/interviews/{id}", api(app.getInterview, defaultTimeout))
	mux.Handle("POST /api/interviews/evaluate", api(app.evaluate, evaluationTimeout))

	mux.Handle("GET /api/interviews/live", live.ThenFunc(app.liveInterview))
	mux.Handle("GET /api/interviews/live/{id}/events", live.ThenFunc(app.interviewEvents))

	return app.recoverPanic(app.logRequest(app.secureHeaders(mux))), nil
}
