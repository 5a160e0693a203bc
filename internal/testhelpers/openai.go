package testhelpers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// FakeAnswerSDP is the SDP answer returned by [FakeOpenAI] for every accepted offer.
const FakeAnswerSDP = "v=0\r\no=- 0 0 IN IP4 127.0.0.1\r\ns=fake answer\r\n"

// FakeOpenAI serves the parts of the OpenAI API used by the interview flow.
type FakeOpenAI struct {
	server *httptest.Server

	mu                sync.Mutex
	sessionStatus     int
	negotiationStatus int
	chatStatus        int
	endSessionStatus  int
	evaluation        string
	sessionRequests   []json.RawMessage
	negotiations      []Negotiation
	chatRequests      []json.RawMessage
	endedSessions     []string
}

// Negotiation records one SDP offer received by [FakeOpenAI].
type Negotiation struct {
	Authorization string
	Model         string
	Voice         string
	ContentType   string
	Offer         string
}

// DefaultEvaluation is a valid structured evaluation.
const DefaultEvaluation = `{"summary":"Clear and structured answers.","scores":{"communication":8,` +
	`"problemSolving":7,"technicalDepth":6.5,"cultureFit":9,"clarityBrevity":7}}`

// NewFakeOpenAI starts a fake API server that is closed when the test finishes.
func NewFakeOpenAI(t testing.TB) *FakeOpenAI {
	t.Helper()
	f := &FakeOpenAI{ //nolint:exhaustruct // zero values are valid
		sessionStatus:     http.StatusOK,
		negotiationStatus: http.StatusCreated,
		chatStatus:        http.StatusOK,
		endSessionStatus:  http.StatusOK,
		evaluation:        DefaultEvaluation,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/realtime/sessions", f.createSession)
	mux.HandleFunc("DELETE /v1/realtime/sessions/{id}", f.endSession)
	mux.HandleFunc("POST /v1/realtime", f.negotiate)
	mux.HandleFunc("POST /v1/chat/completions", f.chatCompletion)
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

// URL is the API base URL including the version prefix.
func (f *FakeOpenAI) URL() string {
	return f.server.URL + "/v1"
}

func (f *FakeOpenAI) SetSessionStatus(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessionStatus = status
}

func (f *FakeOpenAI) SetNegotiationStatus(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.negotiationStatus = status
}

func (f *FakeOpenAI) SetChatStatus(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chatStatus = status
}

func (f *FakeOpenAI) SetEndSessionStatus(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.endSessionStatus = status
}

// SetEvaluation sets the assistant message content returned by chat completions.
func (f *FakeOpenAI) SetEvaluation(content string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.evaluation = content
}

func (f *FakeOpenAI) SessionRequests() []json.RawMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]json.RawMessage(nil), f.sessionRequests...)
}

func (f *FakeOpenAI) Negotiations() []Negotiation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Negotiation(nil), f.negotiations...)
}

func (f *FakeOpenAI) ChatRequests() []json.RawMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]json.RawMessage(nil), f.chatRequests...)
}

// EndedSessions returns the IDs of deleted realtime sessions in request order.
func (f *FakeOpenAI) EndedSessions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.endedSessions...)
}

func (f *FakeOpenAI) endSession(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.endedSessions = append(f.endedSessions, r.PathValue("id"))
	status := f.endSessionStatus
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if status != http.StatusOK {
		_, _ = w.Write([]byte(`{"error":{"message":"fake end session failure","type":"invalid_request_error"}}`))
		return
	}
	_, _ = fmt.Fprintf(w, `{"id":%q,"object":"realtime.session.deleted","deleted":true}`, r.PathValue("id"))
}

func (f *FakeOpenAI) createSession(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.sessionRequests = append(f.sessionRequests, body)
	status := f.sessionStatus
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if status != http.StatusOK {
		w.WriteHeader(status)
		_, _ = fmt.Fprintf(w, `{"error":{"message":"fake failure %d","type":"invalid_request_error"}}`, status)
		return
	}
	var req struct {
		Model string `json:"model"`
	}
	_ = json.Unmarshal(body, &req)
	_, _ = fmt.Fprintf(w, `{"id":"sess_fake","object":"realtime.session","model":%q,`+
		`"client_secret":{"value":"ek_fake","expires_at":1893456000}}`, req.Model)
}

func (f *FakeOpenAI) negotiate(w http.ResponseWriter, r *http.Request) {
	offer, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.negotiations = append(f.negotiations, Negotiation{
		Authorization: r.Header.Get("Authorization"),
		Model:         r.URL.Query().Get("model"),
		Voice:         r.URL.Query().Get("voice"),
		ContentType:   r.Header.Get("Content-Type"),
		Offer:         string(offer),
	})
	status := f.negotiationStatus
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/sdp")
	w.WriteHeader(status)
	if status >= http.StatusBadRequest {
		_, _ = w.Write([]byte("negotiation failed"))
		return
	}
	_, _ = w.Write([]byte(FakeAnswerSDP))
}

func (f *FakeOpenAI) chatCompletion(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.chatRequests = append(f.chatRequests, body)
	status := f.chatStatus
	content := f.evaluation
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if status != http.StatusOK {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"error":{"message":"fake completion failure","type":"server_error"}}`))
		return
	}
	resp := map[string]any{
		"id":      "chatcmpl-fake",
		"object":  "chat.completion",
		"created": 0,
		"model":   "gpt-4o",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": content},
			"finish_reason": "stop",
		}},
		"usage": map[string]any{"prompt_tokens": 1, "completion_tokens": 1, "total_tokens": 2},
	}
	_ = json.NewEncoder(w).Encode(resp)
}
