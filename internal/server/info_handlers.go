package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/knu-cse/dept-front/internal/config"
	"github.com/knu-cse/dept-front/internal/gateway"
	jsonwriter "github.com/knu-cse/dept-front/internal/json"
	"github.com/knu-cse/dept-front/internal/log"
)

// InfoHandlers owns the first-login flow where an OAuth account gets
// linked to a student number. The upstream hands out a one-time linking
// token that travels through the form unchanged.
type InfoHandlers struct {
	gateway *gateway.Client
	config  config.Config
}

func NewInfoHandlers(gw *gateway.Client, cfg config.Config) *InfoHandlers {
	return &InfoHandlers{gateway: gw, config: cfg}
}

// AdditionalInfoPageHandler renders the linking form
func (h *InfoHandlers) AdditionalInfoPageHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonwriter.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
		return
	}

	renderPage(w, additionalInfoTemplate, "additional_info", AdditionalInfoPageData{
		Token:       r.URL.Query().Get("token"),
		RedirectURL: r.URL.Query().Get("redirectUrl"),
	})
}

// InfoCheckHandler looks up the entered student number and shows the
// matching name for confirmation before linking
func (h *InfoHandlers) InfoCheckHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonwriter.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
		return
	}
	if err := r.ParseForm(); err != nil {
		jsonwriter.WriteBadRequest(w, "Bad request")
		return
	}

	data := AdditionalInfoPageData{
		Token:       r.FormValue("token"),
		RedirectURL: r.FormValue("redirectUrl"),
	}

	studentNumber := r.FormValue("studentNumber")
	if !studentNumberRe.MatchString(studentNumber) {
		data.Message = "Student number must be 7 to 10 digits"
		data.MessageType = "error"
		renderPage(w, additionalInfoTemplate, "additional_info", data)
		return
	}

	info, err := h.gateway.CheckStudentNumber(r.Context(), studentNumber)
	if err != nil || info == nil {
		if err != nil && !errors.Is(err, gateway.ErrNotFound) {
			log.LogErrorWithFields("info", "Student number check failed", map[string]any{
				"error": err.Error(),
			})
			data.Message = "Lookup failed. Please try again."
		} else {
			data.Message = "No student found with that number"
		}
		data.MessageType = "error"
		renderPage(w, additionalInfoTemplate, "additional_info", data)
		return
	}

	data.Student = info
	renderPage(w, additionalInfoTemplate, "additional_info", data)
}

// InfoConnectHandler links the confirmed student number to the account
// and sends the browser back to where the flow started
func (h *InfoHandlers) InfoConnectHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonwriter.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
		return
	}
	if err := r.ParseForm(); err != nil {
		jsonwriter.WriteBadRequest(w, "Bad request")
		return
	}

	token := r.FormValue("token")
	studentNumber := r.FormValue("studentNumber")
	redirectURL := r.FormValue("redirectUrl")

	data := AdditionalInfoPageData{Token: token, RedirectURL: redirectURL}

	if token == "" || !studentNumberRe.MatchString(studentNumber) {
		data.Message = "Invalid linking request"
		data.MessageType = "error"
		renderPage(w, additionalInfoTemplate, "additional_info", data)
		return
	}

	if err := h.gateway.ConnectStudentNumber(r.Context(), token, studentNumber, redirectURL); err != nil {
		if errors.Is(err, gateway.ErrConflict) {
			data.Message = "That student number is already linked to another account"
		} else {
			log.LogErrorWithFields("info", "Student number connect failed", map[string]any{
				"error": err.Error(),
			})
			data.Message = "Linking failed. Please try again."
		}
		data.MessageType = "error"
		renderPage(w, additionalInfoTemplate, "additional_info", data)
		return
	}

	if !h.safeRedirect(redirectURL) {
		redirectURL = "/login?message=" + "Account+linked" + "&type=success"
	}
	http.Redirect(w, r, redirectURL, http.StatusFound)
}

func (h *InfoHandlers) safeRedirect(target string) bool {
	if target == "" {
		return false
	}
	if strings.HasPrefix(target, "/") && !strings.HasPrefix(target, "//") {
		return true
	}
	return strings.HasPrefix(target, h.config.Server.BaseURL) ||
		strings.HasPrefix(target, h.config.Gateway.BaseURL)
}
