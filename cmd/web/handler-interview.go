package main

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Manty2503/demo-final/internal/contexthelpers"
	"github.com/Manty2503/demo-final/internal/errors"
	"github.com/Manty2503/demo-final/internal/models"
	"github.com/Manty2503/demo-final/internal/repositories"
)

// candidateInterview loads the interview with the path ID if it belongs to the requesting candidate.
// It writes the error response and returns false otherwise.
func (app *application) candidateInterview(w http.ResponseWriter, r *http.Request) (models.Interview, bool) {
	interview, err := app.interviews.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			app.notFound(w, r)
			return models.Interview{}, false
		}
		app.serverError(w, r, errors.Wrap(err, "get interview"))
		return models.Interview{}, false
	}
	if interview.CandidateID != contexthelpers.CandidateID(r.Context()) {
		app.notFound(w, r)
		return models.Interview{}, false
	}
	return interview, true
}

type transcriptRow struct {
	Question string
	Answer   string
}

type interviewTemplateData struct {
	BaseTemplateData
	Interview models.Interview
	Rows      []transcriptRow
}

func (app *application) interviewPage(w http.ResponseWriter, r *http.Request) {
	interview, ok := app.candidateInterview(w, r)
	if !ok {
		return
	}
	rows := make([]transcriptRow, len(interview.Questions))
	for i, question := range interview.Questions {
		rows[i] = transcriptRow{Question: question, Answer: interview.AnswerText(i)}
	}
	app.render(w, r, http.StatusOK, "interview", interviewTemplateData{
		BaseTemplateData: newBaseTemplateData(r),
		Interview:        interview,
		Rows:             rows,
	})
}

func (app *application) getInterview(w http.ResponseWriter, r *http.Request) {
	interview, ok := app.candidateInterview(w, r)
	if !ok {
		return
	}
	app.writeJSON(w, r, http.StatusOK, interview)
}

func (app *application) listInterviews(w http.ResponseWriter, r *http.Request) {
	interviews, err := app.interviews.ListByCandidate(r.Context(), contexthelpers.CandidateID(r.Context()))
	if err != nil {
		app.jsonError(w, r, http.StatusInternalServerError, "could not list interviews", err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, interviews)
}

type answerInput struct {
	Question  string    `json:"question"`
	Text      string    `json:"text"`
	AudioURL  string    `json:"audioUrl"`
	Timestamp time.Time `json:"timestamp"`
}

type saveInterviewRequest struct {
	Topic     string         `json:"topic"`
	Questions []string       `json:"questions"`
	Answers   []answerInput  `json:"answers"`
	Summary   string         `json:"summary"`
	Scores    *models.Scores `json:"scores"`
}

type saveInterviewResponse struct {
	ID      string    `json:"id"`
	Created time.Time `json:"created"`
}

// saveInterview stores an interview recorded by a client that ran the interview flow itself.
func (app *application) saveInterview(w http.ResponseWriter, r *http.Request) {
	var req saveInterviewRequest
	if err := readJSON(w, r, &req); err != nil {
		app.jsonError(w, r, http.StatusBadRequest, "invalid request body", err)
		return
	}
	interview, err := app.interviewFromRequest(r, req)
	if err != nil {
		app.jsonError(w, r, http.StatusBadRequest, err.Error(), err)
		return
	}

	saved, err := app.interviews.Save(r.Context(), interview)
	if err != nil {
		app.jsonError(w, r, http.StatusInternalServerError, "could not save interview", err)
		return
	}
	app.writeJSON(w, r, http.StatusCreated, saveInterviewResponse{ID: saved.ID, Created: saved.Created})
}

func (app *application) interviewFromRequest(r *http.Request, req saveInterviewRequest) (models.Interview, error) {
	if strings.TrimSpace(req.Topic) == "" {
		return models.Interview{}, errors.New("topic is required")
	}
	if len(req.Questions) == 0 {
		return models.Interview{}, errors.New("questions are required")
	}
	if len(req.Answers) > len(req.Questions) {
		return models.Interview{}, errors.New("more answers than questions",
			slog.Int("answers", len(req.Answers)), slog.Int("questions", len(req.Questions)))
	}

	interview := models.Interview{
		CandidateID: contexthelpers.CandidateID(r.Context()),
		Topic:       req.Topic,
		Questions:   req.Questions,
		Answers:     make([]models.Answer, len(req.Answers)),
	}
	for i, answer := range req.Answers {
		if answer.Question != "" && answer.Question != req.Questions[i] {
			return models.Interview{}, errors.New("answer does not match its question", slog.Int("index", i))
		}
		timestamp := answer.Timestamp
		if timestamp.IsZero() {
			timestamp = time.Now()
		}
		interview.Answers[i] = models.Answer{
			Question:  req.Questions[i],
			Text:      answer.Text,
			AudioURL:  answer.AudioURL,
			Timestamp: timestamp.UTC(),
		}
	}
	if req.Scores != nil {
		evaluation := models.Evaluation{Summary: req.Summary, Scores: *req.Scores}
		if err := evaluation.Validate(app.cfg.MaxSummaryLength); err != nil {
			return models.Interview{}, errors.Wrap(err, "invalid evaluation")
		}
		interview.Evaluation = &evaluation
	}
	return interview, nil
}
