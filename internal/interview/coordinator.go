// Package interview drives one voice interview from credential issuance to the persisted record.
//
// A Coordinator is a state machine owned by the goroutine calling [Coordinator.Run]. Every external event (channel
// open, realtime server events, end command, open timeout, context cancellation) is a labeled transition handled in
// a single select loop so question advances are strictly serialised.
package interview

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Manty2503/demo-final/internal/errors"
	"github.com/Manty2503/demo-final/internal/logging"
	"github.com/Manty2503/demo-final/internal/models"
	"github.com/Manty2503/demo-final/internal/questions"
	"github.com/Manty2503/demo-final/internal/realtime"
)

const (
	DefaultChannelOpenTimeout = 10 * time.Second
	DefaultFinishTimeout      = 2 * time.Minute
	endSessionTimeout         = 5 * time.Second
)

var (
	ErrAlreadyStarted       = errors.NewSentinel("interview already started")
	ErrChannelClosedEarly   = errors.NewSentinel("channel closed before opening")
	ErrIncompleteDependency = errors.NewSentinel("missing interview dependency")
)

type CredentialIssuer interface {
	RequestCredential(ctx context.Context) (realtime.Credential, error)
}

// SessionCloser is implemented by credential issuers that can end the realtime session a credential was issued for.
type SessionCloser interface {
	EndSession(ctx context.Context, id string) error
}

// Track is a local media track, typically the candidate's microphone.
type Track interface {
	ID() string
	Stop() error
}

type MediaStream interface {
	Tracks() []Track
}

type MediaSource interface {
	Acquire(ctx context.Context) (MediaStream, error)
}

// Transport completes the peer connection for the acquired stream and returns its data channel.
type Transport interface {
	Connect(ctx context.Context, credential realtime.Credential, stream MediaStream) (Channel, error)
}

// Channel is the bidirectional message channel to the realtime service.
//
// Opened is closed once the channel is usable. Events is closed when the channel goes away.
type Channel interface {
	Opened() <-chan struct{}
	Events() <-chan realtime.ServerEvent
	Send(ctx context.Context, event realtime.ClientEvent) error
	Close() error
}

type Evaluator interface {
	Evaluate(ctx context.Context, questions []string, answers []models.Answer) (models.Evaluation, error)
}

type Store interface {
	Save(ctx context.Context, interview models.Interview) (models.Interview, error)
}

type Deps struct {
	Credentials CredentialIssuer
	Media       MediaSource
	Transport   Transport
	Evaluator   Evaluator
	Store       Store
}

type Config struct {
	InterviewID string
	CandidateID string
	QuestionSet questions.Set
	// TranscriptionModel transcribes the candidate's answers inside the realtime service.
	TranscriptionModel string
	ChannelOpenTimeout time.Duration
	// FinishTimeout bounds evaluation and persistence after the interview completed.
	FinishTimeout time.Duration
	// Observer receives every status change. It is called from the coordinator goroutine and must not block.
	Observer func(Status)
	Now      func() time.Time
}

// Outcome is the result of a finished attempt. EvaluationErr and PersistenceErr are reported without failing the
// interview.
type Outcome struct {
	Interview      models.Interview
	EvaluationErr  error
	PersistenceErr error
}

type Coordinator struct {
	cfg      Config
	deps     Deps
	logger   *slog.Logger
	recorder *Recorder

	started atomic.Bool
	end     chan struct{}
	endOnce sync.Once

	// Fields below are owned by the goroutine running Run.
	status     Status
	credential realtime.Credential
	stream     MediaStream
	channel    Channel
	released   bool
	pending    []realtime.ServerEvent
}

func New(cfg Config, deps Deps, logger *slog.Logger) (*Coordinator, error) {
	if deps.Credentials == nil || deps.Media == nil || deps.Transport == nil || deps.Evaluator == nil ||
		deps.Store == nil {
		return nil, errors.Wrap(ErrIncompleteDependency, "new coordinator")
	}
	if len(cfg.QuestionSet.Questions) == 0 {
		return nil, errors.New("question set without questions", slog.String("set", cfg.QuestionSet.Name))
	}
	if cfg.ChannelOpenTimeout <= 0 {
		cfg.ChannelOpenTimeout = DefaultChannelOpenTimeout
	}
	if cfg.FinishTimeout <= 0 {
		cfg.FinishTimeout = DefaultFinishTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Coordinator{
		cfg:      cfg,
		deps:     deps,
		logger:   logger.With(slog.String("source", "interview")),
		recorder: NewRecorder(cfg.QuestionSet.Questions),
		end:      make(chan struct{}),
		status: Status{
			InterviewID:   cfg.InterviewID,
			State:         StateIdle,
			QuestionCount: len(cfg.QuestionSet.Questions),
		},
	}, nil
}

// End asks a running interview to stop and complete with the answers captured so far. It is safe to call from any
// goroutine and more than once.
func (c *Coordinator) End() {
	c.endOnce.Do(func() { close(c.end) })
}

// Run starts the interview and blocks until it completes or fails.
//
// A returned error means the attempt ended in the error state. Failures of evaluation or persistence after a
// completed interview are reported in the Outcome instead.
func (c *Coordinator) Run(ctx context.Context) (Outcome, error) {
	if !c.started.CompareAndSwap(false, true) {
		return Outcome{}, ErrAlreadyStarted
	}
	ctx = logging.WithAttrs(ctx,
		slog.String("interview_id", c.cfg.InterviewID),
		slog.String("question_set", c.cfg.QuestionSet.Name))
	defer c.release(ctx)

	c.transition(ctx, StateConnecting)
	if step, err := c.connect(ctx); err != nil {
		if c.endRequested() {
			c.logger.LogAttrs(ctx, slog.LevelInfo, "interview ended while connecting", slog.String("step", step))
			return c.complete(ctx), nil
		}
		return c.fail(ctx, step, err)
	}

	c.transition(ctx, StateAwaitingChannel)
	if ended, step, err := c.awaitChannel(ctx); err != nil {
		return c.fail(ctx, step, err)
	} else if ended {
		return c.complete(ctx), nil
	}

	if err := c.configure(ctx); err != nil {
		return c.fail(ctx, StepConfigure, err)
	}
	c.status.QuestionText = c.cfg.QuestionSet.Questions[0]
	c.transition(ctx, StateAsking)
	if err := c.process(ctx, c.takePending()); err != nil {
		return c.fail(ctx, StepTranscript, err)
	}

	events := c.channel.Events()
	for !c.status.State.Terminal() {
		select {
		case event, ok := <-events:
			if !ok {
				c.logger.LogAttrs(ctx, slog.LevelInfo, "channel closed before the last answer",
					slog.Int("answered", c.recorder.Len()))
				return c.complete(ctx), nil
			}
			if err := c.process(ctx, []realtime.ServerEvent{event}); err != nil {
				return c.fail(ctx, StepTranscript, err)
			}
		case <-c.end:
			c.logger.LogAttrs(ctx, slog.LevelInfo, "interview ended early", slog.Int("answered", c.recorder.Len()))
			return c.complete(ctx), nil
		case <-ctx.Done():
			return c.fail(ctx, StepCanceled, ctx.Err())
		}
	}
	return c.complete(ctx), nil
}

// connect requests the credential, acquires the microphone and negotiates the peer connection in that order. End
// cancels whichever step is in flight.
func (c *Coordinator) connect(ctx context.Context) (string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-c.end:
			cancel()
		case <-ctx.Done():
		}
	}()

	var err error
	if c.credential, err = c.deps.Credentials.RequestCredential(ctx); err != nil {
		return StepCredential, err
	}
	if c.stream, err = c.deps.Media.Acquire(ctx); err != nil {
		return StepMedia, err
	}
	if c.channel, err = c.deps.Transport.Connect(ctx, c.credential, c.stream); err != nil {
		return StepNegotiation, err
	}
	return "", nil
}

func (c *Coordinator) endRequested() bool {
	select {
	case <-c.end:
		return true
	default:
		return false
	}
}

// awaitChannel waits for the data channel to open. Events arriving before that are kept for replay.
func (c *Coordinator) awaitChannel(ctx context.Context) (bool, string, error) {
	timer := time.NewTimer(c.cfg.ChannelOpenTimeout)
	defer timer.Stop()
	events := c.channel.Events()
	for {
		select {
		case <-c.channel.Opened():
			return false, "", nil
		case event, ok := <-events:
			if !ok {
				return false, StepChannel, ErrChannelClosedEarly
			}
			c.pending = append(c.pending, event)
		case <-timer.C:
			return false, StepChannel, &ChannelTimeoutError{Timeout: c.cfg.ChannelOpenTimeout}
		case <-c.end:
			return true, "", nil
		case <-ctx.Done():
			return false, StepCanceled, ctx.Err()
		}
	}
}

// configure sends the session update, the interview instructions and the response trigger in that order.
func (c *Coordinator) configure(ctx context.Context) error {
	messages := []realtime.ClientEvent{
		realtime.SessionUpdate(c.cfg.TranscriptionModel),
		realtime.UserText(c.cfg.QuestionSet.Instructions()),
		realtime.ResponseCreate(),
	}
	for _, message := range messages {
		if err := c.channel.Send(ctx, message); err != nil {
			return errors.Wrap(err, "send configuration", slog.String("type", message.Type))
		}
	}
	return nil
}

// process handles events in arrival order. Events deferred by the current state are replayed after the next
// transition, ahead of the events that have not been handled yet.
func (c *Coordinator) process(ctx context.Context, queue []realtime.ServerEvent) error {
	for len(queue) > 0 && !c.status.State.Terminal() {
		event := queue[0]
		queue = queue[1:]
		advanced, err := c.handle(ctx, event)
		if err != nil {
			return err
		}
		if advanced && len(c.pending) > 0 {
			queue = append(c.takePending(), queue...)
		}
	}
	return nil
}

func (c *Coordinator) takePending() []realtime.ServerEvent {
	pending := c.pending
	c.pending = nil
	return pending
}

// handle applies one event to the current state and reports whether the state advanced.
func (c *Coordinator) handle(ctx context.Context, event realtime.ServerEvent) (bool, error) {
	switch event.Type {
	case realtime.EventError:
		msg := "realtime service error"
		if event.Error != nil {
			msg = event.Error.Message
		}
		c.logger.LogAttrs(ctx, slog.LevelWarn, "realtime error event", slog.String("message", msg))
		return false, nil
	case realtime.EventQuestionSpoken, realtime.EventTurnEnded:
		if c.status.State != StateAsking {
			c.pending = append(c.pending, event)
			return false, nil
		}
		if event.Type == realtime.EventQuestionSpoken {
			if text := strings.TrimSpace(event.Transcript); text != "" {
				c.status.QuestionText = text
				c.notify()
			}
			return false, nil
		}
		c.status.Transcript = ""
		c.transition(ctx, StateListening)
		return true, nil
	case realtime.EventAnswerDelta, realtime.EventAnswerCompleted:
		if c.status.State != StateListening {
			c.pending = append(c.pending, event)
			return false, nil
		}
		if event.Type == realtime.EventAnswerDelta {
			c.status.Transcript += event.Delta
			c.notify()
			return false, nil
		}
		return true, c.recordAnswer(ctx, strings.TrimSpace(event.Transcript))
	default:
		c.logger.LogAttrs(ctx, slog.LevelDebug, "ignored realtime event", slog.String("type", event.Type))
		return false, nil
	}
}

func (c *Coordinator) recordAnswer(ctx context.Context, text string) error {
	i := c.status.Question
	answer := models.Answer{
		Question:  c.cfg.QuestionSet.Questions[i],
		Text:      text,
		Timestamp: c.cfg.Now().UTC(),
	}
	if err := c.recorder.Append(answer); err != nil {
		return errors.Wrap(err, "record answer", slog.Int("question", i))
	}
	c.status.Answered = c.recorder.Len()
	c.status.Transcript = text
	c.logger.LogAttrs(ctx, slog.LevelDebug, "recorded answer", slog.Int("question", i), slog.Int("length", len(text)))

	if i+1 == len(c.cfg.QuestionSet.Questions) {
		c.release(ctx)
		c.transition(ctx, StateComplete)
		return nil
	}
	c.status.Question = i + 1
	c.status.QuestionText = c.cfg.QuestionSet.Questions[i+1]
	c.status.Transcript = ""
	c.transition(ctx, StateAsking)
	return nil
}

// complete tears down the media and the channel, then evaluates and stores the captured answers.
func (c *Coordinator) complete(ctx context.Context) Outcome {
	c.release(ctx)
	if c.status.State != StateComplete {
		c.transition(ctx, StateComplete)
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.FinishTimeout)
	defer cancel()

	var outcome Outcome
	interview := c.record()
	evaluation, err := c.deps.Evaluator.Evaluate(ctx, interview.Questions, interview.Answers)
	if err != nil {
		outcome.EvaluationErr = err
		c.logger.LogAttrs(ctx, slog.LevelWarn, "evaluation failed", errors.SlogError(err))
		c.status.Step = StepEvaluation
		c.status.Message = UserMessage(StepEvaluation)
	} else {
		interview.Evaluation = &evaluation
		c.status.Evaluation = &evaluation
	}
	c.notify()

	saved, err := c.deps.Store.Save(ctx, interview)
	if err != nil {
		outcome.PersistenceErr = err
		c.logger.LogAttrs(ctx, slog.LevelError, "saving interview failed", errors.SlogError(err))
		c.status.Step = StepPersistence
		c.status.Message = UserMessage(StepPersistence)
	} else {
		interview = saved
		c.status.InterviewID = saved.ID
		c.status.Saved = true
	}
	c.notify()

	outcome.Interview = interview
	c.logger.LogAttrs(ctx, slog.LevelInfo, "interview complete",
		slog.Int("answered", len(interview.Answers)),
		slog.Bool("evaluated", interview.Evaluation != nil),
		slog.Bool("saved", outcome.PersistenceErr == nil))
	return outcome
}

func (c *Coordinator) fail(ctx context.Context, step string, err error) (Outcome, error) {
	c.release(ctx)
	c.status.Step = step
	c.status.Message = UserMessage(step)
	c.logger.LogAttrs(ctx, slog.LevelWarn, "interview failed", slog.String("step", step), errors.SlogError(err))
	c.transition(ctx, StateError)
	return Outcome{Interview: c.record()}, errors.Wrap(err, "run interview", slog.String("step", step))
}

func (c *Coordinator) record() models.Interview {
	return models.Interview{
		ID:          c.cfg.InterviewID,
		CandidateID: c.cfg.CandidateID,
		Topic:       c.cfg.QuestionSet.Topic,
		Questions:   c.cfg.QuestionSet.Questions,
		Answers:     c.recorder.Snapshot(),
	}
}

// release stops every media track and closes the channel. Only the first call has an effect.
func (c *Coordinator) release(ctx context.Context) {
	if c.released {
		return
	}
	c.released = true
	if c.stream != nil {
		for _, track := range c.stream.Tracks() {
			if err := track.Stop(); err != nil {
				c.logger.LogAttrs(ctx, slog.LevelWarn, "failed to stop track",
					slog.String("track_id", track.ID()), errors.SlogError(err))
			}
		}
	}
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			c.logger.LogAttrs(ctx, slog.LevelWarn, "failed to close channel", errors.SlogError(err))
		}
	}
	c.endSession(ctx)
}

// endSession ends the realtime session when the issuer supports it. Failures are logged only.
func (c *Coordinator) endSession(ctx context.Context) {
	closer, ok := c.deps.Credentials.(SessionCloser)
	if !ok || c.credential.ID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), endSessionTimeout)
	defer cancel()
	if err := closer.EndSession(ctx, c.credential.ID); err != nil {
		c.logger.LogAttrs(ctx, slog.LevelWarn, "failed to end realtime session",
			slog.String("session_id", c.credential.ID), errors.SlogError(err))
	}
}

func (c *Coordinator) transition(ctx context.Context, state State) {
	c.logger.LogAttrs(ctx, slog.LevelDebug, "transition",
		slog.String("from", string(c.status.State)),
		slog.String("to", string(state)),
		slog.Int("question", c.status.Question))
	c.status.State = state
	c.notify()
}

func (c *Coordinator) notify() {
	if c.cfg.Observer != nil {
		c.cfg.Observer(c.status)
	}
}
