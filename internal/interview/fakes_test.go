package interview_test

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/Manty2503/demo-final/internal/errors"
	"github.com/Manty2503/demo-final/internal/interview"
	"github.com/Manty2503/demo-final/internal/models"
	"github.com/Manty2503/demo-final/internal/realtime"
)

type fakeIssuer struct {
	err    error
	endErr error
	calls  atomic.Int32

	mu    sync.Mutex
	ended []string
}

func (f *fakeIssuer) RequestCredential(context.Context) (realtime.Credential, error) {
	f.calls.Add(1)
	if f.err != nil {
		return realtime.Credential{}, f.err
	}
	return realtime.Credential{
		ID:           "sess_1",
		Model:        "gpt-4o-realtime-preview-2024-12-17",
		ClientSecret: realtime.ClientSecret{Value: "ek_test"},
	}, nil
}

func (f *fakeIssuer) EndSession(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ended = append(f.ended, id)
	return f.endErr
}

func (f *fakeIssuer) endedSessions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ended...)
}

type fakeTrack struct {
	id      string
	stopped atomic.Bool
}

func (t *fakeTrack) ID() string { return t.id }

func (t *fakeTrack) Stop() error {
	t.stopped.Store(true)
	return nil
}

type fakeStream struct {
	tracks []*fakeTrack
}

func (s *fakeStream) Tracks() []interview.Track {
	tracks := make([]interview.Track, len(s.tracks))
	for i, t := range s.tracks {
		tracks[i] = t
	}
	return tracks
}

func (s *fakeStream) active() int {
	var n int
	for _, t := range s.tracks {
		if !t.stopped.Load() {
			n++
		}
	}
	return n
}

type fakeMedia struct {
	err    error
	calls  atomic.Int32
	stream *fakeStream

	// pending, when set, is closed on entry and Acquire then waits for ctx like an open permission prompt.
	pending chan struct{}
}

func newFakeMedia() *fakeMedia {
	return &fakeMedia{stream: &fakeStream{tracks: []*fakeTrack{{id: "mic"}}}}
}

func (f *fakeMedia) Acquire(ctx context.Context) (interview.MediaStream, error) {
	f.calls.Add(1)
	if f.pending != nil {
		close(f.pending)
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.stream, nil
}

type fakeChannel struct {
	opened chan struct{}
	events chan realtime.ServerEvent

	mu     sync.Mutex
	sent   []realtime.ClientEvent
	closed bool
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{
		opened: make(chan struct{}),
		events: make(chan realtime.ServerEvent, 64),
	}
}

func (c *fakeChannel) Opened() <-chan struct{} { return c.opened }
func (c *fakeChannel) Events() <-chan realtime.ServerEvent { return c.events }

func (c *fakeChannel) Send(_ context.Context, event realtime.ClientEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("send on closed channel")
	}
	c.sent = append(c.sent, event)
	return nil
}

func (c *fakeChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeChannel) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeChannel) sentTypes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	types := make([]string, len(c.sent))
	for i, e := range c.sent {
		types[i] = e.Type
	}
	return types
}

func (c *fakeChannel) emit(events ...realtime.ServerEvent) {
	for _, e := range events {
		c.events <- e
	}
}

type fakeTransport struct {
	channel *fakeChannel
	err     error
	calls   atomic.Int32
}

func (f *fakeTransport) Connect(
	_ context.Context, _ realtime.Credential, _ interview.MediaStream) (interview.Channel, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.channel, nil
}

type fakeEvaluator struct {
	err     error
	calls   atomic.Int32
	answers []models.Answer
}

func (f *fakeEvaluator) Evaluate(_ context.Context, _ []string, answers []models.Answer) (models.Evaluation, error) {
	f.calls.Add(1)
	f.answers = answers
	if f.err != nil {
		return models.Evaluation{}, f.err
	}
	return models.Evaluation{
		Summary: "Solid.",
		Scores:  models.Scores{Communication: 8, ProblemSolving: 7, TechnicalDepth: 6, CultureFit: 9, ClarityBrevity: 7},
	}, nil
}

type fakeStore struct {
	err   error
	calls atomic.Int32
	saved models.Interview
}

func (f *fakeStore) Save(_ context.Context, iv models.Interview) (models.Interview, error) {
	f.calls.Add(1)
	f.saved = iv
	if f.err != nil {
		return models.Interview{}, f.err
	}
	iv.ID = "00000000-0000-0000-0000-000000000001"
	return iv, nil
}

// statusLog records every status the coordinator reports.
type statusLog struct {
	mu       sync.Mutex
	statuses []interview.Status
	changed  chan struct{}
}

func newStatusLog() *statusLog {
	return &statusLog{changed: make(chan struct{}, 1024)}
}

func (l *statusLog) observe(s interview.Status) {
	l.mu.Lock()
	l.statuses = append(l.statuses, s)
	l.mu.Unlock()
	l.changed <- struct{}{}
}

func (l *statusLog) all() []interview.Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]interview.Status(nil), l.statuses...)
}

// transitions returns the distinct consecutive states reported.
func (l *statusLog) transitions() []string {
	var states []string
	for _, s := range l.all() {
		label := string(s.State)
		if s.State == interview.StateAsking || s.State == interview.StateListening {
			label += "(" + string(rune('0'+s.Question)) + ")"
		}
		if len(states) == 0 || states[len(states)-1] != label {
			states = append(states, label)
		}
	}
	return states
}

func (l *statusLog) waitFor(state interview.State) {
	l.waitUntil(func(s interview.Status) bool { return s.State == state })
}

func (l *statusLog) waitUntil(match func(interview.Status) bool) {
	for {
		for _, s := range l.all() {
			if match(s) {
				return
			}
		}
		<-l.changed
	}
}
