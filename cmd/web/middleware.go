package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Manty2503/demo-final/internal/contexthelpers"
	"github.com/Manty2503/demo-final/internal/errors"
	"github.com/Manty2503/demo-final/internal/random"
	"github.com/google/uuid"
	"github.com/justinas/nosurf"
)

const (
	candidateIDSessionKey = "candidateID"
	nonceLength           = 24
)

func (app *application) secureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nonce, err := random.Letters(nonceLength)
		if err != nil {
			app.serverError(w, r, errors.Wrap(err, "generate nonce"))
			return
		}
		w.Header().Set("Content-Security-Policy",
			fmt.Sprintf(`script-src 'nonce-%s' 'strict-dynamic' https: http:; object-src 'none'; base-uri 'none';`,
				nonce))

		w.Header().Set("Referrer-Policy", "origin-when-cross-origin")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "deny")
		w.Header().Set("X-XSS-Protection", "0")
		w.Header().Set("Permissions-Policy", "microphone=(self)")

		next.ServeHTTP(w, contexthelpers.SetCSPNonce(r, nonce))
	})
}

func cacheForeverHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")

		next.ServeHTTP(w, r)
	})
}

func (app *application) logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var (
			proto  = r.Proto
			method = r.Method
			uri    = r.URL.RequestURI()
		)

		app.logger.LogAttrs(r.Context(), slog.LevelDebug, "received request",
			slog.String("proto", proto), slog.String("method", method), slog.String("uri", uri))

		next.ServeHTTP(w, r)
	})
}

func (app *application) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				w.Header().Set("Connection", "close")
				app.serverError(w, r, errors.New("recovered panic", slog.Any("panic", err)))
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// candidate assigns an anonymous candidate identity to the session on first visit.
// It must run inside sessionManager.LoadAndSave.
func (app *application) candidate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		candidateID := app.sessionManager.GetString(r.Context(), candidateIDSessionKey)
		if candidateID == "" {
			candidateID = uuid.NewString()
			app.sessionManager.Put(r.Context(), candidateIDSessionKey, candidateID)
			app.logger.LogAttrs(r.Context(), slog.LevelDebug, "new candidate", slog.String("candidate_id", candidateID))
		}

		next.ServeHTTP(w, contexthelpers.SetCandidateID(r, candidateID))
	})
}

// requireCandidate rejects requests from sessions without a candidate identity. It is used on routes that only load
// the session, such as the live interview WebSocket and the status stream.
func (app *application) requireCandidate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		candidateID := app.sessionManager.GetString(r.Context(), candidateIDSessionKey)
		if candidateID == "" {
			app.clientError(w, r, http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, contexthelpers.SetCandidateID(r, candidateID))
	})
}

// serverSentEventMiddleware makes our session library scs work with Server Sent Events (SSE) and WebSockets.
// Use this instead of app.sessionManager.LoadAndSave.
// See https://github.com/alexedwards/scs/issues/141#issuecomment-1807075358
func (app *application) serverSentEventMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var token string
		cookie, err := r.Cookie(app.sessionManager.Cookie.Name)
		if err == nil {
			token = cookie.Value
		}
		ctx, err := app.sessionManager.Load(r.Context(), token)
		if err != nil {
			app.serverError(w, r, errors.Wrap(err, "load session"))
			return
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// withDeadline replaces the server write deadline for routes that legitimately run longer. Zero removes the deadline.
func (app *application) withDeadline(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var deadline time.Time
			if d > 0 {
				deadline = time.Now().Add(d)
			}
			rc := http.NewResponseController(w)
			if err := rc.SetWriteDeadline(deadline); err != nil {
				app.logger.LogAttrs(r.Context(), slog.LevelDebug, "could not extend write deadline",
					errors.SlogError(errors.Wrap(err, "set write deadline")))
			}

			next.ServeHTTP(w, r)
		})
	}
}

func commonContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r = contexthelpers.SetCurrentPath(r, r.URL.Path)
		r = contexthelpers.SetCSRFToken(r, nosurf.Token(r))
		next.ServeHTTP(w, r)
	})
}

// noSurf implements CSRF protection using https://github.com/justinas/nosurf. The page scripts send the token in
// the X-CSRF-Token header.
func (app *application) noSurf(next http.Handler) http.Handler {
	csrfHandler := nosurf.New(next)
	csrfHandler.SetBaseCookie(http.Cookie{
		HttpOnly: true,
		Path:     "/",
		Secure:   true,
	})
	csrfHandler.SetFailureHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		app.logger.LogAttrs(r.Context(), slog.LevelWarn, "csrf check failed",
			slog.String("reason", fmt.Sprint(nosurf.Reason(r))))
		app.clientError(w, r, http.StatusBadRequest)
	}))

	return csrfHandler
}
