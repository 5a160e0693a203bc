package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Manty2503/demo-final/internal/contexthelpers"
	"github.com/Manty2503/demo-final/internal/errors"
	"github.com/Manty2503/demo-final/internal/interview"
	"github.com/Manty2503/demo-final/internal/logging"
	"github.com/Manty2503/demo-final/internal/models"
	"github.com/Manty2503/demo-final/internal/relay"
	"github.com/google/uuid"
)

// statusBuffer holds status updates for a slow status stream subscriber. When it is full the oldest update is
// dropped.
const statusBuffer = 16

// liveInterview runs one interview. The browser owns the microphone and the WebRTC connection and relays everything
// over the WebSocket while the coordinator drives the interview.
func (app *application) liveInterview(w http.ResponseWriter, r *http.Request) {
	set, err := app.catalog.Get(r.URL.Query().Get("topic"))
	if err != nil {
		app.clientError(w, r, http.StatusBadRequest)
		return
	}

	conn, err := app.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already responded.
		app.logger.LogAttrs(r.Context(), slog.LevelDebug, "websocket upgrade failed", errors.SlogError(err))
		return
	}

	interviewID := uuid.NewString()
	candidateID := contexthelpers.CandidateID(r.Context())
	ctx := logging.WithAttrs(r.Context(), slog.String("interview_id", interviewID))
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	peer := relay.NewPeer(conn, app.realtime, app.logger)
	defer func() {
		if closeErr := peer.Close(); closeErr != nil {
			app.logger.LogAttrs(ctx, slog.LevelDebug, "close relay", errors.SlogError(closeErr))
		}
	}()
	go peer.Listen(ctx)

	statuses := make(chan interview.Status, statusBuffer)
	if err = app.statuses.Publish(ctx, interviewID, statuses); err != nil {
		app.logger.LogAttrs(ctx, slog.LevelError, "publish status stream", errors.SlogError(err))
		_ = peer.Write(relay.Message{Type: relay.TypeError, Message: interview.UserMessage(interview.StepCanceled)})
		return
	}
	defer func() {
		close(statuses)
		if unpublishErr := app.statuses.Unpublish(context.WithoutCancel(ctx), interviewID); unpublishErr != nil {
			app.logger.LogAttrs(ctx, slog.LevelDebug, "unpublish status stream", errors.SlogError(unpublishErr))
		}
	}()

	observer := func(status interview.Status) {
		if writeErr := peer.Write(relay.Message{Type: relay.TypeStatus, Status: &status}); writeErr != nil {
			app.logger.LogAttrs(ctx, slog.LevelDebug, "write status", errors.SlogError(writeErr))
		}
		offerLatest(statuses, status)
	}

	if err = peer.Write(relay.Message{Type: relay.TypeInterviewStarted, InterviewID: interviewID,
		Model: app.realtime.Model()}); err != nil {
		app.logger.LogAttrs(ctx, slog.LevelDebug, "write interview started", errors.SlogError(err))
		return
	}

	coordinator, err := interview.New(interview.Config{
		InterviewID:        interviewID,
		CandidateID:        candidateID,
		QuestionSet:        set,
		TranscriptionModel: app.cfg.TranscriptionModel,
		ChannelOpenTimeout: app.cfg.ChannelOpenTimeout,
		Observer:           observer,
	}, interview.Deps{
		Credentials: app.realtime,
		Media:       peer,
		Transport:   peer,
		Evaluator:   app.evaluator,
		Store:       app.interviews,
	}, app.logger)
	if err != nil {
		app.logger.LogAttrs(ctx, slog.LevelError, "new coordinator", errors.SlogError(err))
		return
	}

	go func() {
		select {
		case <-peer.Ended():
			coordinator.End()
		case <-peer.Done():
			// A vanished browser cannot answer anymore. Stop waiting and keep what was recorded.
			coordinator.End()
		case <-ctx.Done():
		}
	}()

	outcome, err := coordinator.Run(ctx)
	if err != nil {
		app.logger.LogAttrs(ctx, slog.LevelWarn, "interview failed", errors.SlogError(err))
		return
	}
	app.logger.LogAttrs(ctx, slog.LevelInfo, "interview finished",
		slog.Int("answers", len(outcome.Interview.Answers)),
		slog.Bool("evaluated", outcome.Interview.Evaluation != nil),
		slog.Bool("saved", outcome.PersistenceErr == nil))
}

// offerLatest sends status without blocking, evicting the oldest buffered update while the buffer is full. The
// coordinator is the only sender, so the newest status, including the terminal one, always stays buffered.
func offerLatest(statuses chan interview.Status, status interview.Status) {
	for {
		select {
		case statuses <- status:
			return
		default:
		}
		select {
		case <-statuses:
		default:
		}
	}
}

// interviewEvents streams status updates of a live interview as Server-Sent Events. A finished interview yields its
// stored result as a single final status.
func (app *application) interviewEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")

	subscription, err := app.statuses.Subscribe(ctx, id)
	if err != nil {
		app.serverError(w, r, errors.Wrap(err, "subscribe to status stream"))
		return
	}
	var statuses chan interview.Status
	select {
	case statuses = <-subscription:
	case <-ctx.Done():
		return
	}

	var stored models.Interview
	if statuses == nil {
		var ok bool
		if stored, ok = app.candidateInterview(w, r); !ok {
			return
		}
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	rc := http.NewResponseController(w)

	if statuses == nil {
		status := interview.Status{
			InterviewID:   stored.ID,
			State:         interview.StateComplete,
			QuestionCount: len(stored.Questions),
			Answered:      len(stored.Answers),
			Evaluation:    stored.Evaluation,
			Saved:         true,
		}
		app.writeEvent(w, r, rc, status)
		return
	}

	for {
		select {
		case status, ok := <-statuses:
			if !ok {
				return
			}
			if !app.writeEvent(w, r, rc, status) {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (app *application) writeEvent(w http.ResponseWriter, r *http.Request, rc *http.ResponseController,
	status interview.Status) bool {
	data, err := json.Marshal(status)
	if err != nil {
		app.logger.LogAttrs(r.Context(), slog.LevelError, "marshal status", errors.SlogError(err))
		return false
	}
	if _, err = fmt.Fprintf(w, "event: status\ndata: %s\n\n", data); err != nil {
		app.logger.LogAttrs(r.Context(), slog.LevelDebug, "write event", errors.SlogError(err))
		return false
	}
	if err = rc.Flush(); err != nil {
		app.logger.LogAttrs(r.Context(), slog.LevelDebug, "flush event", errors.SlogError(err))
		return false
	}
	return true
}
