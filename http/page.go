package http

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"loanwise/logger"
	"loanwise/ml"
)

//go:embed templates/* static/*
var embeddedFiles embed.FS

type formOptions struct {
	Gender        []string
	Married       []string
	Dependents    []string
	Education     []string
	SelfEmployed  []string
	PropertyArea  []string
	LoanTerm      []float64
	CreditHistory []float64
}

var widgetOptions = formOptions{
	Gender:        ml.GenderOptions,
	Married:       ml.MarriedOptions,
	Dependents:    ml.DependentsOptions,
	Education:     ml.EducationOptions,
	SelfEmployed:  ml.SelfEmployedOptions,
	PropertyArea:  ml.PropertyAreaOptions,
	LoanTerm:      ml.LoanTermOptions,
	CreditHistory: ml.CreditHistoryOptions,
}

// pageData is everything index.html renders. Result and Failure are mutually
// exclusive; both are empty on a fresh form.
type pageData struct {
	Record    ml.ApplicantRecord
	Options   formOptions
	Result    *ml.PredictionResult
	Failure   string
	Errors    validationErrors
	ModelType string
}

func parseTemplates(printer *message.Printer) (*template.Template, error) {
	funcMap := template.FuncMap{
		"number": func(v float64) string { return printer.Sprintf("%.2f", v) },
		"whole":  func(v float64) string { return printer.Sprintf("%.0f", v) },
		"option": func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) },
	}
	t, err := template.New("").Funcs(funcMap).ParseFS(embeddedFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return t, nil
}

func newPrinter() *message.Printer {
	return message.NewPrinter(language.English)
}

func staticHandler() http.Handler {
	static, err := fs.Sub(embeddedFiles, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(static)))
}

// render executes the page into a buffer so a template failure becomes a
// clean 500 instead of a half-written page.
func (h *handlers) render(w http.ResponseWriter, status int, data pageData) {
	data.Options = widgetOptions
	data.ModelType = h.engine.ModelType()

	var buf bytes.Buffer
	if err := h.pages.ExecuteTemplate(&buf, "index.html", data); err != nil {
		h.log.Error("render page failed", logger.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
