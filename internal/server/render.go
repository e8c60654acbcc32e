package server

import (
	"html/template"
	"net/http"

	"github.com/knu-cse/dept-front/internal/log"
)

func renderPage(w http.ResponseWriter, tmpl *template.Template, name string, data any) {
	renderPageStatus(w, http.StatusOK, tmpl, name, data)
}

func renderPageStatus(w http.ResponseWriter, status int, tmpl *template.Template, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.Execute(w, data); err != nil {
		log.LogErrorWithFields("server", "Failed to render page", map[string]any{
			"page":  name,
			"error": err.Error(),
		})
	}
}
