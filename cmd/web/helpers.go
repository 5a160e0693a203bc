package main

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/Manty2503/demo-final/internal/errors"
)

// maxJSONBody limits request bodies of the JSON API.
const maxJSONBody = 1 << 20

func (app *application) serverError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		method = r.Method
		uri    = r.URL.RequestURI()
	)

	app.logger.LogAttrs(r.Context(), slog.LevelError, "server error",
		slog.String("method", method), slog.String("uri", uri), errors.SlogError(err))
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func (app *application) clientError(w http.ResponseWriter, r *http.Request, status int) {
	var (
		method = r.Method
		uri    = r.URL.RequestURI()
	)

	app.logger.LogAttrs(r.Context(), slog.LevelDebug, http.StatusText(status),
		slog.String("method", method), slog.String("uri", uri))
	http.Error(w, http.StatusText(status), status)
}

func (app *application) notFound(w http.ResponseWriter, r *http.Request) {
	app.clientError(w, r, http.StatusNotFound)
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// writeJSON encodes data as the JSON response body with the given status.
func (app *application) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		app.serverError(w, r, errors.Wrap(err, "marshal response"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err = w.Write(body); err != nil {
		app.logger.LogAttrs(r.Context(), slog.LevelDebug, "failed to write response", errors.SlogError(err))
	}
}

// jsonError responds with {"error": msg} and logs the cause.
func (app *application) jsonError(w http.ResponseWriter, r *http.Request, status int, msg string, err error) {
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError && status != http.StatusBadGateway {
		level = slog.LevelError
	}
	app.logger.LogAttrs(r.Context(), level, msg, slog.Int("status", status), errors.SlogError(err))
	app.writeJSON(w, r, status, errorResponse{Error: msg})
}

// readJSON decodes a bounded JSON request body into dst and rejects unknown fields.
func readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return errors.Wrap(err, "decode json body")
	}
	return nil
}
