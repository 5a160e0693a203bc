package main

import (
	"bytes"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/Manty2503/demo-final/internal/contexthelpers"
	"github.com/Manty2503/demo-final/internal/errors"
	"github.com/Manty2503/demo-final/ui"
)

type BaseTemplateData struct {
	CSRFToken   string
	CurrentPath string
}

func newBaseTemplateData(r *http.Request) BaseTemplateData {
	return BaseTemplateData{
		CSRFToken:   contexthelpers.CSRFToken(r.Context()),
		CurrentPath: contexthelpers.CurrentPath(r.Context()),
	}
}

// pageTemplate returns a template for the given page name.
//
// pageName corresponds to directory inside ui/templates/pages folder. It has to include a template named "page".
func (app *application) pageTemplate(pageName string) (*template.Template, error) {
	patterns := []string{
		"templates/base.gohtml",
		fmt.Sprintf("templates/pages/%s/*.gohtml", pageName),
	}

	// We need to initialize the FuncMap before parsing the files. These will be overridden in the render function.
	t, err := template.New(pageName).Funcs(template.FuncMap{
		"nonce": func() string {
			panic("not implemented")
		},
		"csrf": func() string {
			panic("not implemented")
		},
		"score": formatScore,
		"inc":   func(i int) int { return i + 1 },
	}).ParseFS(ui.Files, patterns...)
	if err != nil {
		return nil, errors.Wrap(err, "parse page templates", slog.String("page", pageName))
	}
	return t, nil
}

func (app *application) render(w http.ResponseWriter, r *http.Request, status int, file string, data any) {
	var (
		err error
		t   *template.Template
	)

	if t, err = app.pageTemplate(file); err != nil {
		app.serverError(w, r, errors.Wrap(err, "parse template", slog.String("template", file)))
		return
	}

	buf := new(bytes.Buffer)
	ctx := r.Context()
	nonce := fmt.Sprintf("nonce=\"%s\"", contexthelpers.CSPNonce(ctx))
	csrf := fmt.Sprintf("<input type=\"hidden\" name=\"csrf_token\" value=\"%s\"/>", contexthelpers.CSRFToken(ctx))
	t.Funcs(template.FuncMap{
		"nonce": func() template.HTMLAttr {
			return template.HTMLAttr(nonce) //nolint:gosec // we trust the nonce since it's not provided by user.
		},
		"csrf": func() template.HTML {
			return template.HTML(csrf) //nolint:gosec // we trust the csrf since it's not provided by user.
		},
	})
	if err = t.ExecuteTemplate(buf, "base", data); err != nil {
		app.serverError(w, r, errors.Wrap(err, "execute template", slog.String("template", file)))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)

	_, _ = buf.WriteTo(w)
}

func formatScore(score float64) string {
	return fmt.Sprintf("%.1f", score)
}
