package main

import (
	"net/http"

	"github.com/Manty2503/demo-final/internal/ai"
	"github.com/Manty2503/demo-final/internal/errors"
	"github.com/Manty2503/demo-final/internal/models"
)

type evaluateRequest struct {
	Questions []string        `json:"questions"`
	Answers   []models.Answer `json:"answers"`
}

// evaluate scores a transcript. Scoring failures are reported as 502 so the client can keep the raw transcript.
func (app *application) evaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := readJSON(w, r, &req); err != nil {
		app.jsonError(w, r, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if len(req.Questions) == 0 {
		app.jsonError(w, r, http.StatusBadRequest, "questions are required", errors.New("no questions"))
		return
	}

	evaluation, err := app.evaluator.Evaluate(r.Context(), req.Questions, req.Answers)
	if err != nil {
		msg := "evaluation failed"
		var evaluationErr *ai.EvaluationError
		if errors.As(err, &evaluationErr) && evaluationErr.Message != "" {
			msg = evaluationErr.Message
		}
		app.jsonError(w, r, http.StatusBadGateway, msg, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, evaluation)
}
