package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/Manty2503/demo-final/internal/e2etest"
	"github.com/Manty2503/demo-final/internal/interview"
	"github.com/Manty2503/demo-final/internal/models"
	"github.com/Manty2503/demo-final/internal/realtime"
	"github.com/Manty2503/demo-final/internal/relay"
	"github.com/Manty2503/demo-final/internal/testhelpers"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// fakeBrowser plays the browser side of the relay protocol.
type fakeBrowser struct {
	t    *testing.T
	conn *websocket.Conn
	seen []relay.Message
}

func dialLive(t *testing.T, client *e2etest.Client, topic string) *fakeBrowser {
	t.Helper()
	_ = csrfToken(t, client)
	conn, err := client.DialWebSocket(context.Background(), "/api/interviews/live?topic="+topic)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return &fakeBrowser{t: t, conn: conn}
}

// await reads messages until one satisfies want.
func (b *fakeBrowser) await(want func(relay.Message) bool) relay.Message {
	b.t.Helper()
	for {
		require.NoError(b.t, b.conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		var msg relay.Message
		require.NoError(b.t, b.conn.ReadJSON(&msg))
		b.seen = append(b.seen, msg)
		if want(msg) {
			return msg
		}
	}
}

func (b *fakeBrowser) awaitType(typ string) relay.Message {
	b.t.Helper()
	return b.await(func(msg relay.Message) bool { return msg.Type == typ })
}

// awaitClosed drains messages until the server closes the connection.
func (b *fakeBrowser) awaitClosed() {
	b.t.Helper()
	for {
		require.NoError(b.t, b.conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		var msg relay.Message
		if err := b.conn.ReadJSON(&msg); err != nil {
			require.True(b.t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "unexpected error: %v", err)
			return
		}
		b.seen = append(b.seen, msg)
	}
}

func (b *fakeBrowser) send(msg relay.Message) {
	b.t.Helper()
	require.NoError(b.t, b.conn.WriteJSON(msg))
}

func (b *fakeBrowser) forward(events ...realtime.ServerEvent) {
	b.t.Helper()
	for _, event := range events {
		data, err := json.Marshal(event)
		require.NoError(b.t, err)
		b.send(relay.Message{Type: relay.TypeChannelMessage, Event: data})
	}
}

func (b *fakeBrowser) seenTypes(typ string) []relay.Message {
	var msgs []relay.Message
	for _, msg := range b.seen {
		if msg.Type == typ {
			msgs = append(msgs, msg)
		}
	}
	return msgs
}

func Test_liveInterview(t *testing.T) {
	t.Parallel()
	fake := testhelpers.NewFakeOpenAI(t)
	server := startTestServer(t, fake)
	client := server.Client()
	browser := dialLive(t, client, "machine-learning")

	started := browser.awaitType(relay.TypeInterviewStarted)
	require.Len(t, started.InterviewID, 36)

	browser.awaitType(relay.TypeMediaAcquire)
	browser.send(relay.Message{Type: relay.TypeMediaAcquired, TrackIDs: []string{"mic-1"}})

	connect := browser.awaitType(relay.TypePeerConnect)
	require.NotEmpty(t, connect.Model)
	browser.send(relay.Message{Type: relay.TypePeerOffer, SDP: "v=0 browser offer"})

	answer := browser.awaitType(relay.TypePeerAnswer)
	require.Equal(t, testhelpers.FakeAnswerSDP, answer.SDP)
	negotiations := fake.Negotiations()
	require.Len(t, negotiations, 1)
	require.Equal(t, "Bearer ek_fake", negotiations[0].Authorization, "browser offer uses the short-lived credential")

	browser.send(relay.Message{Type: relay.TypeChannelOpen})
	var configured []string
	for range 3 {
		msg := browser.awaitType(relay.TypeChannelSend)
		var event realtime.ClientEvent
		require.NoError(t, json.Unmarshal(msg.Event, &event))
		configured = append(configured, event.Type)
	}
	require.Equal(t, []string{realtime.EventSessionUpdate, realtime.EventConversationCreate,
		realtime.EventResponseCreate}, configured)

	answers := []string{"Labels.", "Regularisation.", "Simpler models underfit.", "Precision and recall."}
	for i, text := range answers {
		browser.forward(
			realtime.ServerEvent{Type: realtime.EventQuestionSpoken, Transcript: "Question " + string(rune('1'+i))},
			realtime.ServerEvent{Type: realtime.EventTurnEnded},
			realtime.ServerEvent{Type: realtime.EventAnswerDelta, Delta: text[:3]},
			realtime.ServerEvent{Type: realtime.EventAnswerCompleted, Transcript: text},
		)
	}

	final := browser.await(func(msg relay.Message) bool {
		return msg.Type == relay.TypeStatus && msg.Status.Saved
	})
	require.Equal(t, interview.StateComplete, final.Status.State)
	require.Equal(t, 4, final.Status.Answered)
	require.NotNil(t, final.Status.Evaluation)
	browser.awaitClosed()
	require.Equal(t, []string{"sess_fake"}, fake.EndedSessions(), "realtime session is ended on teardown")

	stops := browser.seenTypes(relay.TypeMediaStop)
	require.Len(t, stops, 1)
	require.Equal(t, []string{"mic-1"}, stops[0].TrackIDs)
	require.Len(t, browser.seenTypes(relay.TypePeerClose), 1)

	var states []interview.State
	for _, msg := range browser.seenTypes(relay.TypeStatus) {
		if len(states) == 0 || states[len(states)-1] != msg.Status.State {
			states = append(states, msg.Status.State)
		}
	}
	require.Equal(t, []interview.State{
		interview.StateConnecting, interview.StateAwaitingChannel,
		interview.StateAsking, interview.StateListening,
		interview.StateAsking, interview.StateListening,
		interview.StateAsking, interview.StateListening,
		interview.StateAsking, interview.StateListening,
		interview.StateComplete,
	}, states)
	require.Len(t, fake.ChatRequests(), 1, "evaluation is requested once")

	ctx := context.Background()
	resp, err := client.Get(ctx, "/api/interviews/"+started.InterviewID)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stored := decode[models.Interview](t, resp)
	require.Len(t, stored.Answers, 4)
	for i, text := range answers {
		require.Equal(t, text, stored.Answers[i].Text)
		require.Equal(t, stored.Questions[i], stored.Answers[i].Question)
	}

	resp, err = client.Get(ctx, "/api/interviews/live/"+started.InterviewID+"/events")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(body), "event: status\ndata: "))
	require.Contains(t, string(body), `"state":"complete"`)
}

func Test_offerLatest(t *testing.T) {
	t.Parallel()
	statuses := make(chan interview.Status, statusBuffer)
	for i := range 18 {
		offerLatest(statuses, interview.Status{State: interview.StateAsking, Question: i})
	}
	offerLatest(statuses, interview.Status{State: interview.StateComplete, Saved: true})
	close(statuses)

	var got []interview.Status
	for status := range statuses {
		got = append(got, status)
	}
	require.Len(t, got, statusBuffer)
	require.Equal(t, 3, got[0].Question, "oldest updates are evicted")
	last := got[len(got)-1]
	require.Equal(t, interview.StateComplete, last.State)
	require.True(t, last.Saved, "terminal status is kept")
}

func Test_liveInterview_credentialRejected(t *testing.T) {
	t.Parallel()
	fake := testhelpers.NewFakeOpenAI(t)
	fake.SetSessionStatus(http.StatusUnauthorized)
	server := startTestServer(t, fake)
	browser := dialLive(t, server.Client(), "")

	failed := browser.await(func(msg relay.Message) bool {
		return msg.Type == relay.TypeStatus && msg.Status.State == interview.StateError
	})
	require.Equal(t, interview.StepCredential, failed.Status.Step)
	require.Equal(t, interview.UserMessage(interview.StepCredential), failed.Status.Message)
	browser.awaitClosed()

	require.Empty(t, browser.seenTypes(relay.TypeMediaAcquire), "no media is requested")
	require.Empty(t, browser.seenTypes(relay.TypePeerConnect), "no connection is attempted")
	require.Empty(t, fake.Negotiations())
}

func Test_liveInterview_endEarly(t *testing.T) {
	t.Parallel()
	fake := testhelpers.NewFakeOpenAI(t)
	server := startTestServer(t, fake)
	browser := dialLive(t, server.Client(), "go-backend")

	browser.awaitType(relay.TypeMediaAcquire)
	browser.send(relay.Message{Type: relay.TypeMediaAcquired, TrackIDs: []string{"mic-1"}})
	browser.awaitType(relay.TypePeerConnect)
	browser.send(relay.Message{Type: relay.TypePeerOffer, SDP: "v=0 browser offer"})
	browser.awaitType(relay.TypePeerAnswer)
	browser.send(relay.Message{Type: relay.TypeChannelOpen})
	browser.forward(
		realtime.ServerEvent{Type: realtime.EventTurnEnded},
		realtime.ServerEvent{Type: realtime.EventAnswerCompleted, Transcript: "Goroutines are cheap."},
	)
	browser.await(func(msg relay.Message) bool {
		return msg.Type == relay.TypeStatus && msg.Status.Answered == 1
	})
	browser.send(relay.Message{Type: relay.TypeInterviewEnd})

	final := browser.await(func(msg relay.Message) bool {
		return msg.Type == relay.TypeStatus && msg.Status.Saved
	})
	require.Equal(t, interview.StateComplete, final.Status.State)
	require.Equal(t, 1, final.Status.Answered)
	browser.awaitClosed()
	require.Len(t, browser.seenTypes(relay.TypeMediaStop), 1)
}

func Test_liveInterview_rejectsUnknownTopic(t *testing.T) {
	t.Parallel()
	server := startTestServer(t, testhelpers.NewFakeOpenAI(t))
	client := server.Client()
	_ = csrfToken(t, client)

	_, err := client.DialWebSocket(context.Background(), "/api/interviews/live?topic=astrology")
	require.Error(t, err)
}

func Test_liveInterview_requiresCandidate(t *testing.T) {
	t.Parallel()
	server := startTestServer(t, testhelpers.NewFakeOpenAI(t))
	client, err := e2etest.NewClient(server.URL())
	require.NoError(t, err)

	resp, err := client.Get(context.Background(), "/api/interviews/live/some-id/events")
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
