package server

import (
	"net/http"
	"strconv"

	"github.com/knu-cse/dept-front/internal/authstate"
	"github.com/knu-cse/dept-front/internal/gateway"
	jsonwriter "github.com/knu-cse/dept-front/internal/json"
	"github.com/knu-cse/dept-front/internal/log"
)

// QRLogsPageHandler renders the scan audit log
func (h *AdminHandlers) QRLogsPageHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonwriter.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
		return
	}

	state := authstate.FromContext(r.Context())
	query := pageQueryFromRequest(r)

	page, err := h.gateway.ListQRLogs(r.Context(), state.Token, query)
	if err != nil {
		if h.expireOnUnauthorized(w, r, err) {
			return
		}
		log.LogErrorWithFields("admin", "Failed to list QR logs", map[string]any{
			"error": err.Error(),
		})
		page = &gateway.Page[gateway.QrAuthLog]{}
	}

	csrfToken, ok := h.csrfToken(w)
	if !ok {
		return
	}

	data := QRLogsPageData{
		UserName:    state.User.Name,
		CSRFToken:   csrfToken,
		Logs:        page.Content,
		Query:       query,
		Pagination:  newPagination(query, page.First, page.Last, page.TotalPages, page.TotalElements),
		Message:     r.URL.Query().Get("message"),
		MessageType: r.URL.Query().Get("type"),
	}
	if err != nil && data.Message == "" {
		data.Message = "Failed to load QR logs"
		data.MessageType = "error"
	}

	renderPage(w, qrLogsTemplate, "qr_logs", data)
}

// QRLogDeleteHandler removes one scan record
func (h *AdminHandlers) QRLogDeleteHandler(w http.ResponseWriter, r *http.Request) {
	if !h.checkedForm(w, r) {
		return
	}
	state := authstate.FromContext(r.Context())

	id, err := strconv.ParseInt(r.FormValue("id"), 10, 64)
	if err != nil {
		jsonwriter.WriteBadRequest(w, "Invalid log id")
		return
	}

	if err := h.gateway.DeleteQRLog(r.Context(), state.Token, id); err != nil {
		h.actionError(w, r, "/admin/qr-logs", err)
		return
	}

	log.LogInfoWithFields("admin", "QR log deleted", map[string]any{
		"admin":  state.User.StudentNumber,
		"log_id": id,
	})
	redirectWithMessage(w, r, "/admin/qr-logs", "Deleted", "success")
}
