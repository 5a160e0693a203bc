package realtime_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/Manty2503/demo-final/internal/errors"
	"github.com/Manty2503/demo-final/internal/realtime"
	"github.com/Manty2503/demo-final/internal/testhelpers"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T, fake *testhelpers.FakeOpenAI) *realtime.Client {
	t.Helper()
	return realtime.NewClient(realtime.Config{
		BaseURL:            fake.URL(),
		APIKey:             "sk-trusted",
		Model:              "gpt-4o-realtime-preview-2024-12-17",
		Voice:              "alloy",
		Modalities:         []string{"audio", "text"},
		TranscriptionModel: "whisper-1",
		VADSilence:         500 * time.Millisecond,
	}, nil, testhelpers.NewLogger(io.Discard))
}

func TestClient_RequestCredential(t *testing.T) {
	t.Parallel()
	fake := testhelpers.NewFakeOpenAI(t)
	client := newClient(t, fake)

	credential, err := client.RequestCredential(context.Background())
	require.NoError(t, err)
	require.Equal(t, "ek_fake", credential.ClientSecret.Value)
	require.Equal(t, "gpt-4o-realtime-preview-2024-12-17", credential.Model)

	requests := fake.SessionRequests()
	require.Len(t, requests, 1)
	var body struct {
		Model                   string   `json:"model"`
		Voice                   string   `json:"voice"`
		Modalities              []string `json:"modalities"`
		InputAudioTranscription struct {
			Model string `json:"model"`
		} `json:"input_audio_transcription"`
		TurnDetection struct {
			Type              string `json:"type"`
			SilenceDurationMS int    `json:"silence_duration_ms"`
		} `json:"turn_detection"`
	}
	require.NoError(t, json.Unmarshal(requests[0], &body))
	require.Equal(t, "alloy", body.Voice)
	require.Equal(t, []string{"audio", "text"}, body.Modalities)
	require.Equal(t, "whisper-1", body.InputAudioTranscription.Model)
	require.Equal(t, "server_vad", body.TurnDetection.Type)
	require.Equal(t, 500, body.TurnDetection.SilenceDurationMS)
}

func TestClient_RequestCredential_upstreamFailure(t *testing.T) {
	t.Parallel()
	fake := testhelpers.NewFakeOpenAI(t)
	fake.SetSessionStatus(http.StatusUnauthorized)
	client := newClient(t, fake)

	_, err := client.RequestCredential(context.Background())
	var credentialErr *realtime.CredentialError
	require.True(t, errors.As(err, &credentialErr))
	require.Equal(t, http.StatusUnauthorized, credentialErr.StatusCode)
	require.Contains(t, credentialErr.Body, "fake failure 401", "upstream body is propagated")
}

func TestClient_Negotiate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		bearer     string
		model      string
		status     int
		wantAuth   string
		wantModel  string
		wantVoice  string
		wantStatus int
	}{
		{
			name:      "trusted key",
			status:    http.StatusCreated,
			wantAuth:  "Bearer sk-trusted",
			wantModel: "gpt-4o-realtime-preview-2024-12-17",
			wantVoice: "alloy",
		},
		{
			name:      "short-lived credential",
			bearer:    "ek_fake",
			model:     "gpt-4o-mini-realtime-preview",
			status:    http.StatusCreated,
			wantAuth:  "Bearer ek_fake",
			wantModel: "gpt-4o-mini-realtime-preview",
		},
		{
			name:       "upstream rejects",
			bearer:     "ek_expired",
			status:     http.StatusUnauthorized,
			wantAuth:   "Bearer ek_expired",
			wantModel:  "gpt-4o-realtime-preview-2024-12-17",
			wantStatus: http.StatusUnauthorized,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			fake := testhelpers.NewFakeOpenAI(t)
			fake.SetNegotiationStatus(tt.status)
			client := newClient(t, fake)

			answer, err := client.Negotiate(context.Background(), "v=0 offer", tt.bearer, tt.model)

			negotiations := fake.Negotiations()
			require.Len(t, negotiations, 1, "negotiation is attempted exactly once")
			require.Equal(t, tt.wantAuth, negotiations[0].Authorization)
			require.Equal(t, tt.wantModel, negotiations[0].Model)
			require.Equal(t, tt.wantVoice, negotiations[0].Voice)
			require.Equal(t, "application/sdp", negotiations[0].ContentType)
			require.Equal(t, "v=0 offer", negotiations[0].Offer)

			if tt.wantStatus != 0 {
				var negotiationErr *realtime.NegotiationError
				require.True(t, errors.As(err, &negotiationErr))
				require.Equal(t, tt.wantStatus, negotiationErr.StatusCode)
				require.Contains(t, negotiationErr.Error(), "401 Unauthorized")
				return
			}
			require.NoError(t, err)
			require.Equal(t, testhelpers.FakeAnswerSDP, answer)
		})
	}
}

func TestClient_Negotiate_emptyOffer(t *testing.T) {
	t.Parallel()
	fake := testhelpers.NewFakeOpenAI(t)
	client := newClient(t, fake)

	_, err := client.Negotiate(context.Background(), "  ", "", "")
	var negotiationErr *realtime.NegotiationError
	require.True(t, errors.As(err, &negotiationErr))
	require.Empty(t, fake.Negotiations())
}

func TestEvents(t *testing.T) {
	update, err := json.Marshal(realtime.SessionUpdate("whisper-1"))
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"session.update","session":{"modalities":["audio","text"],`+
		`"input_audio_transcription":{"model":"whisper-1"}}}`, string(update))

	item, err := json.Marshal(realtime.UserText("Begin now."))
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"conversation.item.create","item":{"type":"message","role":"user",`+
		`"content":[{"type":"input_text","text":"Begin now."}]}}`, string(item))

	trigger, err := json.Marshal(realtime.ResponseCreate())
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"response.create"}`, string(trigger))
}

func TestClient_Exchange_status(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		status int
	}{
		{name: "created", status: http.StatusCreated},
		{name: "ok", status: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			fake := testhelpers.NewFakeOpenAI(t)
			fake.SetNegotiationStatus(tt.status)
			client := newClient(t, fake)

			answer, err := client.Exchange(context.Background(), "v=0 offer", "", "")
			require.NoError(t, err)
			require.Equal(t, tt.status, answer.StatusCode)
			require.Equal(t, testhelpers.FakeAnswerSDP, answer.SDP)
		})
	}
}

func TestClient_EndSession(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		id        string
		status    int
		wantEnded []string
		wantErr   bool
	}{
		{name: "deleted", id: "sess_fake", status: http.StatusOK, wantEnded: []string{"sess_fake"}},
		{name: "rejected", id: "sess_gone", status: http.StatusNotFound, wantEnded: []string{"sess_gone"},
			wantErr: true},
		{name: "missing id", status: http.StatusOK, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			fake := testhelpers.NewFakeOpenAI(t)
			fake.SetEndSessionStatus(tt.status)
			client := newClient(t, fake)

			err := client.EndSession(context.Background(), tt.id)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			require.Equal(t, tt.wantEnded, fake.EndedSessions())
		})
	}
}

func TestServerEvent_error(t *testing.T) {
	var event realtime.ServerEvent
	require.NoError(t, json.Unmarshal([]byte(`{"type":"error","event_id":"evt_1",`+
		`"error":{"type":"invalid_request_error","code":"session_expired","message":"Session expired"}}`), &event))
	require.Equal(t, realtime.EventError, event.Type)
	require.NotNil(t, event.Error)
	require.Equal(t, "session_expired", event.Error.Code)
	require.Equal(t, "Session expired", event.Error.Message)
}
