// Package realtime talks to the OpenAI realtime API on behalf of the browser so that the long-lived API key never
// leaves the server.
package realtime

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Manty2503/demo-final/internal/errors"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	betaHeader     = "realtime=v1"
	// maxErrorBody limits how much of an upstream error body is kept.
	maxErrorBody = 64 << 10
)

type Config struct {
	BaseURL    string
	APIKey     string
	Model      string
	Voice      string
	Modalities []string
	// TranscriptionModel transcribes the candidate's audio. Empty disables input transcription.
	TranscriptionModel string
	// VADSilence is the silence that ends the candidate's turn. Zero leaves turn detection to the service default.
	VADSilence time.Duration
}

// Credential is a short-lived session descriptor the browser uses to connect directly to the realtime service.
type Credential struct {
	ID           string       `json:"id"`
	Object       string       `json:"object,omitempty"`
	Model        string       `json:"model"`
	Voice        string       `json:"voice,omitempty"`
	Modalities   []string     `json:"modalities,omitempty"`
	ExpiresAt    int64        `json:"expires_at,omitempty"`
	ClientSecret ClientSecret `json:"client_secret"`
}

type ClientSecret struct {
	Value     string `json:"value"`
	ExpiresAt int64  `json:"expires_at"`
}

type Client struct {
	httpClient *http.Client
	cfg        Config
	logger     *slog.Logger
}

func NewClient(cfg Config, httpClient *http.Client, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second} //nolint:mnd // generous for a single upstream call
	}
	return &Client{
		httpClient: httpClient,
		cfg:        cfg,
		logger:     logger.With(slog.String("source", "realtime")),
	}
}

// Model returns the realtime model sessions are created for.
func (c *Client) Model() string {
	return c.cfg.Model
}

type sessionRequest struct {
	Model                   string         `json:"model"`
	Voice                   string         `json:"voice,omitempty"`
	Modalities              []string       `json:"modalities,omitempty"`
	InputAudioTranscription *Transcription `json:"input_audio_transcription,omitempty"`
	TurnDetection           *TurnDetection `json:"turn_detection,omitempty"`
}

// RequestCredential creates a realtime session and returns its short-lived credential.
//
// A non-success upstream status results in a [*CredentialError] carrying the upstream body.
func (c *Client) RequestCredential(ctx context.Context) (Credential, error) {
	body := sessionRequest{
		Model:      c.cfg.Model,
		Voice:      c.cfg.Voice,
		Modalities: c.cfg.Modalities,
	}
	if c.cfg.TranscriptionModel != "" {
		body.InputAudioTranscription = &Transcription{Model: c.cfg.TranscriptionModel}
	}
	if c.cfg.VADSilence > 0 {
		body.TurnDetection = &TurnDetection{
			Type:              "server_vad",
			SilenceDurationMS: int(c.cfg.VADSilence / time.Millisecond),
		}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return Credential{}, &CredentialError{Err: errors.Wrap(err, "marshal session request")}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/realtime/sessions",
		bytes.NewReader(payload))
	if err != nil {
		return Credential{}, &CredentialError{Err: errors.Wrap(err, "create request")}
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("OpenAI-Beta", betaHeader)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Credential{}, &CredentialError{Err: errors.Wrap(err, "do request")}
	}
	defer c.closeBody(ctx, resp.Body)

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return Credential{}, &CredentialError{StatusCode: resp.StatusCode, Err: errors.Wrap(err, "read response")}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.LogAttrs(ctx, slog.LevelWarn, "credential request rejected",
			slog.Int("status", resp.StatusCode), slog.String("body", string(respBody)))
		return Credential{}, &CredentialError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var credential Credential
	if err = json.Unmarshal(respBody, &credential); err != nil {
		return Credential{}, &CredentialError{
			StatusCode: resp.StatusCode,
			Body:       string(respBody),
			Err:        errors.Wrap(err, "decode credential"),
		}
	}
	if credential.ClientSecret.Value == "" {
		return Credential{}, &CredentialError{
			StatusCode: resp.StatusCode,
			Body:       string(respBody),
			Err:        errors.New("credential without client secret"),
		}
	}
	c.logger.LogAttrs(ctx, slog.LevelDebug, "issued credential",
		slog.String("session_id", credential.ID), slog.Duration("duration", time.Since(start)))
	return credential, nil
}

// Answer is the realtime service's reply to an SDP offer.
type Answer struct {
	SDP string
	// StatusCode is the upstream success status, forwarded by the raw SDP endpoint.
	StatusCode int
}

// Negotiate exchanges a local SDP offer for the realtime service's SDP answer. See [Client.Exchange].
func (c *Client) Negotiate(ctx context.Context, offer, bearer, model string) (string, error) {
	answer, err := c.Exchange(ctx, offer, bearer, model)
	if err != nil {
		return "", err
	}
	return answer.SDP, nil
}

// Exchange posts a local SDP offer and returns the answer together with the upstream status.
//
// bearer is the short-lived client secret from [Client.RequestCredential]; when empty the trusted API key is used.
// model overrides the configured model when set. The call is never retried because a repeated offer creates a
// duplicate session.
func (c *Client) Exchange(ctx context.Context, offer, bearer, model string) (Answer, error) {
	if strings.TrimSpace(offer) == "" {
		return Answer{}, &NegotiationError{StatusCode: http.StatusBadRequest, Status: "empty offer",
			Err: errors.New("empty SDP offer")}
	}
	if model == "" {
		model = c.cfg.Model
	}
	query := url.Values{}
	query.Set("model", model)
	if bearer == "" {
		bearer = c.cfg.APIKey
		if c.cfg.Voice != "" {
			query.Set("voice", c.cfg.Voice)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/realtime?"+query.Encode(),
		strings.NewReader(offer))
	if err != nil {
		return Answer{}, &NegotiationError{Err: errors.Wrap(err, "create request")}
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Content-Type", "application/sdp")
	req.Header.Set("OpenAI-Beta", betaHeader)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Answer{}, &NegotiationError{Err: errors.Wrap(err, "do request")}
	}
	defer c.closeBody(ctx, resp.Body)

	answer, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return Answer{}, &NegotiationError{StatusCode: resp.StatusCode, Status: resp.Status,
			Err: errors.Wrap(err, "read answer")}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.LogAttrs(ctx, slog.LevelWarn, "negotiation rejected",
			slog.Int("status", resp.StatusCode), slog.String("body", string(answer)))
		return Answer{}, &NegotiationError{StatusCode: resp.StatusCode, Status: resp.Status, Body: string(answer)}
	}
	return Answer{SDP: string(answer), StatusCode: resp.StatusCode}, nil
}

// EndSession deletes the realtime session with the given ID using the trusted key.
func (c *Client) EndSession(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("end session without session id")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		c.cfg.BaseURL+"/realtime/sessions/"+url.PathEscape(id), nil)
	if err != nil {
		return errors.Wrap(err, "create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("OpenAI-Beta", betaHeader)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "do request", slog.String("session_id", id))
	}
	defer c.closeBody(ctx, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.New("end session rejected",
			slog.String("session_id", id), slog.Int("status", resp.StatusCode))
	}
	c.logger.LogAttrs(ctx, slog.LevelDebug, "ended session", slog.String("session_id", id))
	return nil
}

func (c *Client) closeBody(ctx context.Context, body io.Closer) {
	if err := body.Close(); err != nil {
		err = errors.Wrap(err, "close response body")
		c.logger.LogAttrs(ctx, slog.LevelWarn, "failed to close response body", errors.SlogError(err))
	}
}
