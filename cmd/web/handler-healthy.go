package main

import (
	"net/http"

	"github.com/Manty2503/demo-final/internal/errors"
)

type healthResponse struct {
	Status string `json:"status"`
	Topics int    `json:"topics"`
}

// healthy reports whether the server can reach its database and has interview topics to offer.
func (app *application) healthy(w http.ResponseWriter, r *http.Request) {
	if err := app.interviews.Ping(r.Context()); err != nil {
		app.jsonError(w, r, http.StatusServiceUnavailable, "database unavailable", errors.Wrap(err, "ping"))
		return
	}
	app.writeJSON(w, r, http.StatusOK, healthResponse{Status: "ok", Topics: len(app.catalog.Sets)})
}
