package main

import (
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Manty2503/demo-final/internal/errors"
	"github.com/Manty2503/demo-final/internal/realtime"
)

// maxSDPBody limits the size of a raw SDP offer.
const maxSDPBody = 64 << 10

// createSession issues a short-lived realtime credential for a browser that connects to the realtime service itself.
func (app *application) createSession(w http.ResponseWriter, r *http.Request) {
	credential, err := app.realtime.RequestCredential(r.Context())
	if err != nil {
		var credentialErr *realtime.CredentialError
		details := ""
		if errors.As(err, &credentialErr) {
			details = credentialErr.Body
		}
		app.logger.LogAttrs(r.Context(), slog.LevelWarn, "could not create realtime session", errors.SlogError(err))
		app.writeJSON(w, r, http.StatusBadGateway, errorResponse{Error: "could not create realtime session",
			Details: details})
		return
	}
	app.writeJSON(w, r, http.StatusOK, credential)
}

// negotiateSDP relays a raw SDP offer with the trusted key and responds with the raw answer.
func (app *application) negotiateSDP(w http.ResponseWriter, r *http.Request) {
	offer, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxSDPBody))
	if err != nil {
		app.clientError(w, r, http.StatusRequestEntityTooLarge)
		return
	}

	answer, err := app.realtime.Exchange(r.Context(), string(offer), "", "")
	if err != nil {
		status, text := http.StatusBadGateway, "negotiation failed"
		var negotiationErr *realtime.NegotiationError
		if errors.As(err, &negotiationErr) && negotiationErr.StatusCode != 0 {
			status = negotiationErr.StatusCode
			if negotiationErr.Status != "" {
				text = negotiationErr.Status
			}
		}
		app.logger.LogAttrs(r.Context(), slog.LevelWarn, "sdp negotiation failed",
			slog.Int("status", status), errors.SlogError(err))
		http.Error(w, text, status)
		return
	}

	w.Header().Set("Content-Type", "application/sdp")
	w.WriteHeader(answer.StatusCode)
	_, _ = io.WriteString(w, answer.SDP)
}

type webRTCRequest struct {
	SDP          string `json:"sdp"`
	Model        string `json:"model"`
	EphemeralKey string `json:"ephemeralKey"`
}

type webRTCResponse struct {
	SDP string `json:"sdp"`
}

// negotiateWebRTC relays an offer wrapped in JSON using the browser's short-lived credential.
func (app *application) negotiateWebRTC(w http.ResponseWriter, r *http.Request) {
	var req webRTCRequest
	if err := readJSON(w, r, &req); err != nil {
		app.jsonError(w, r, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if strings.TrimSpace(req.EphemeralKey) == "" {
		app.jsonError(w, r, http.StatusBadRequest, "ephemeral key is required", errors.New("missing ephemeral key"))
		return
	}

	answer, err := app.realtime.Negotiate(r.Context(), req.SDP, req.EphemeralKey, req.Model)
	if err != nil {
		app.jsonError(w, r, http.StatusBadGateway, "could not connect to the realtime service", err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, webRTCResponse{SDP: answer})
}
