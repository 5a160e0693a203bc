package main

import (
	"net/http"

	"github.com/Manty2503/demo-final/internal/contexthelpers"
	"github.com/Manty2503/demo-final/internal/errors"
	"github.com/Manty2503/demo-final/internal/models"
	"github.com/Manty2503/demo-final/internal/questions"
)

type homeTemplateData struct {
	BaseTemplateData
	Sets       []questions.Set
	Interviews []models.Interview
}

func (app *application) home(w http.ResponseWriter, r *http.Request) {
	interviews, err := app.interviews.ListByCandidate(r.Context(), contexthelpers.CandidateID(r.Context()))
	if err != nil {
		app.serverError(w, r, errors.Wrap(err, "list interviews"))
		return
	}

	data := homeTemplateData{
		BaseTemplateData: newBaseTemplateData(r),
		Sets:             app.catalog.Sets,
		Interviews:       interviews,
	}

	app.render(w, r, http.StatusOK, "home", data)
}
