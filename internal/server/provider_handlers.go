package server

import (
	"net/http"
	"strconv"

	"github.com/knu-cse/dept-front/internal/authstate"
	"github.com/knu-cse/dept-front/internal/emailutil"
	"github.com/knu-cse/dept-front/internal/gateway"
	jsonwriter "github.com/knu-cse/dept-front/internal/json"
	"github.com/knu-cse/dept-front/internal/log"
)

// ProvidersPageHandler renders the provider bindings list
func (h *AdminHandlers) ProvidersPageHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonwriter.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
		return
	}

	state := authstate.FromContext(r.Context())
	query := pageQueryFromRequest(r)

	page, err := h.gateway.ListProviders(r.Context(), state.Token, query)
	if err != nil {
		if h.expireOnUnauthorized(w, r, err) {
			return
		}
		log.LogErrorWithFields("admin", "Failed to list providers", map[string]any{
			"error": err.Error(),
		})
		page = &gateway.Page[gateway.Provider]{}
	}

	csrfToken, ok := h.csrfToken(w)
	if !ok {
		return
	}

	data := ProvidersPageData{
		UserName:    state.User.Name,
		CSRFToken:   csrfToken,
		Providers:   page.Content,
		Query:       query,
		Pagination:  newPagination(query, page.First, page.Last, page.TotalPages, page.TotalElements),
		Message:     r.URL.Query().Get("message"),
		MessageType: r.URL.Query().Get("type"),
		FieldError:  r.URL.Query().Get("fieldError"),
	}
	if err != nil && data.Message == "" {
		data.Message = "Failed to load providers"
		data.MessageType = "error"
	}

	renderPage(w, providersTemplate, "providers", data)
}

// providerFromForm builds a provider binding from the admin form
func providerFromForm(r *http.Request) (gateway.Provider, string) {
	studentID, err := strconv.ParseInt(r.FormValue("studentId"), 10, 64)
	if err != nil || studentID <= 0 {
		return gateway.Provider{}, "Student ID must be a positive number"
	}

	p := gateway.Provider{
		Email:        emailutil.Normalize(r.FormValue("email")),
		ProviderName: r.FormValue("providerName"),
		ProviderKey:  r.FormValue("providerKey"),
		StudentID:    studentID,
	}
	if !emailutil.Valid(p.Email) {
		return gateway.Provider{}, "A valid email is required"
	}
	if p.ProviderName == "" || p.ProviderKey == "" {
		return gateway.Provider{}, "Provider name and key are required"
	}
	return p, ""
}

// ProviderCreateHandler links an identity to a student account
func (h *AdminHandlers) ProviderCreateHandler(w http.ResponseWriter, r *http.Request) {
	if !h.checkedForm(w, r) {
		return
	}
	state := authstate.FromContext(r.Context())

	provider, fieldError := providerFromForm(r)
	if fieldError != "" {
		redirectWithFieldError(w, r, "/admin/providers", fieldError)
		return
	}

	if _, err := h.gateway.CreateProvider(r.Context(), state.Token, provider); err != nil {
		h.actionError(w, r, "/admin/providers", err)
		return
	}

	log.LogInfoWithFields("admin", "Provider binding created", map[string]any{
		"admin":    state.User.StudentNumber,
		"provider": provider.ProviderName,
	})
	redirectWithMessage(w, r, "/admin/providers", "Binding added", "success")
}

// ProviderUpdateHandler patches a provider binding
func (h *AdminHandlers) ProviderUpdateHandler(w http.ResponseWriter, r *http.Request) {
	if !h.checkedForm(w, r) {
		return
	}
	state := authstate.FromContext(r.Context())

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonwriter.WriteBadRequest(w, "Invalid provider id")
		return
	}

	provider, fieldError := providerFromForm(r)
	if fieldError != "" {
		redirectWithFieldError(w, r, "/admin/providers", fieldError)
		return
	}

	if _, err := h.gateway.UpdateProvider(r.Context(), state.Token, id, provider); err != nil {
		h.actionError(w, r, "/admin/providers", err)
		return
	}

	log.LogInfoWithFields("admin", "Provider binding updated", map[string]any{
		"admin":       state.User.StudentNumber,
		"provider_id": id,
	})
	redirectWithMessage(w, r, "/admin/providers", "Binding updated", "success")
}

// ProviderDeleteHandler unlinks identities
func (h *AdminHandlers) ProviderDeleteHandler(w http.ResponseWriter, r *http.Request) {
	if !h.checkedForm(w, r) {
		return
	}
	state := authstate.FromContext(r.Context())

	ids, err := parseIDs(r.FormValue("ids"))
	if err != nil {
		jsonwriter.WriteBadRequest(w, "Invalid ids")
		return
	}

	if err := h.gateway.DeleteProviders(r.Context(), state.Token, ids); err != nil {
		h.actionError(w, r, "/admin/providers", err)
		return
	}

	log.LogInfoWithFields("admin", "Provider bindings deleted", map[string]any{
		"admin": state.User.StudentNumber,
		"count": len(ids),
	})
	redirectWithMessage(w, r, "/admin/providers", "Deleted", "success")
}
