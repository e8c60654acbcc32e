package server

import (
	"net/http"
	"strconv"

	"github.com/knu-cse/dept-front/internal/authstate"
	"github.com/knu-cse/dept-front/internal/gateway"
	jsonwriter "github.com/knu-cse/dept-front/internal/json"
	"github.com/knu-cse/dept-front/internal/log"
)

// maxCSVUpload caps dues CSV imports at 5 MiB
const maxCSVUpload = 5 << 20

// DuesPageHandler renders the dues record list
func (h *AdminHandlers) DuesPageHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonwriter.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
		return
	}

	state := authstate.FromContext(r.Context())
	query := pageQueryFromRequest(r)

	page, err := h.gateway.ListDues(r.Context(), state.Token, query)
	if err != nil {
		if h.expireOnUnauthorized(w, r, err) {
			return
		}
		log.LogErrorWithFields("admin", "Failed to list dues", map[string]any{
			"error": err.Error(),
		})
		page = &gateway.Page[gateway.Dues]{}
	}

	csrfToken, ok := h.csrfToken(w)
	if !ok {
		return
	}

	data := DuesPageData{
		UserName:    state.User.Name,
		CSRFToken:   csrfToken,
		Dues:        page.Content,
		Query:       query,
		Pagination:  newPagination(query, page.First, page.Last, page.TotalPages, page.TotalElements),
		Message:     r.URL.Query().Get("message"),
		MessageType: r.URL.Query().Get("type"),
		FieldError:  r.URL.Query().Get("fieldError"),
	}
	if err != nil && data.Message == "" {
		data.Message = "Failed to load dues records"
		data.MessageType = "error"
	}

	renderPage(w, duesTemplate, "dues", data)
}

// duesFromForm builds a dues record from the admin form, validating
// before anything reaches the upstream
func duesFromForm(r *http.Request) (gateway.Dues, string) {
	amount, err := strconv.ParseInt(r.FormValue("amount"), 10, 64)
	if err != nil || amount <= 0 {
		return gateway.Dues{}, "Amount must be a positive number"
	}
	semesters, _ := strconv.Atoi(r.FormValue("remainingSemesters"))

	d := gateway.Dues{
		StudentNumber:      r.FormValue("studentNumber"),
		StudentName:        r.FormValue("studentName"),
		DepositorName:      r.FormValue("depositorName"),
		Amount:             amount,
		RemainingSemesters: semesters,
	}
	if !studentNumberRe.MatchString(d.StudentNumber) {
		return gateway.Dues{}, "Student number must be 7 to 10 digits"
	}
	if d.StudentName == "" {
		return gateway.Dues{}, "Name is required"
	}
	return d, ""
}

// DuesCreateHandler records a single dues payment
func (h *AdminHandlers) DuesCreateHandler(w http.ResponseWriter, r *http.Request) {
	if !h.checkedForm(w, r) {
		return
	}
	state := authstate.FromContext(r.Context())

	dues, fieldError := duesFromForm(r)
	if fieldError != "" {
		redirectWithFieldError(w, r, "/admin/dues", fieldError)
		return
	}

	if _, err := h.gateway.CreateDues(r.Context(), state.Token, dues); err != nil {
		h.actionError(w, r, "/admin/dues", err)
		return
	}

	log.LogInfoWithFields("admin", "Dues record created", map[string]any{
		"admin":          state.User.StudentNumber,
		"student_number": dues.StudentNumber,
		"amount":         dues.Amount,
	})
	redirectWithMessage(w, r, "/admin/dues", "Dues record added", "success")
}

// DuesUpdateHandler patches a dues record
func (h *AdminHandlers) DuesUpdateHandler(w http.ResponseWriter, r *http.Request) {
	if !h.checkedForm(w, r) {
		return
	}
	state := authstate.FromContext(r.Context())

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonwriter.WriteBadRequest(w, "Invalid dues id")
		return
	}

	dues, fieldError := duesFromForm(r)
	if fieldError != "" {
		redirectWithFieldError(w, r, "/admin/dues", fieldError)
		return
	}

	if _, err := h.gateway.UpdateDues(r.Context(), state.Token, id, dues); err != nil {
		h.actionError(w, r, "/admin/dues", err)
		return
	}

	log.LogInfoWithFields("admin", "Dues record updated", map[string]any{
		"admin":   state.User.StudentNumber,
		"dues_id": id,
	})
	redirectWithMessage(w, r, "/admin/dues", "Dues record updated", "success")
}

// DuesDeleteHandler removes dues records
func (h *AdminHandlers) DuesDeleteHandler(w http.ResponseWriter, r *http.Request) {
	if !h.checkedForm(w, r) {
		return
	}
	state := authstate.FromContext(r.Context())

	ids, err := parseIDs(r.FormValue("ids"))
	if err != nil {
		jsonwriter.WriteBadRequest(w, "Invalid ids")
		return
	}

	if err := h.gateway.DeleteDues(r.Context(), state.Token, ids); err != nil {
		h.actionError(w, r, "/admin/dues", err)
		return
	}

	log.LogInfoWithFields("admin", "Dues records deleted", map[string]any{
		"admin": state.User.StudentNumber,
		"count": len(ids),
	})
	redirectWithMessage(w, r, "/admin/dues", "Deleted", "success")
}

// DuesUploadHandler forwards a CSV import to the upstream without parsing
// its contents; the upstream owns the format
func (h *AdminHandlers) DuesUploadHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonwriter.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
		return
	}
	if err := r.ParseMultipartForm(maxCSVUpload); err != nil {
		jsonwriter.WriteBadRequest(w, "Bad request")
		return
	}
	if !h.csrf.Validate(r.FormValue("csrf_token")) {
		jsonwriter.WriteForbidden(w, "Invalid CSRF token")
		return
	}
	state := authstate.FromContext(r.Context())

	file, header, err := r.FormFile("file")
	if err != nil {
		redirectWithMessage(w, r, "/admin/dues", "No file uploaded", "error")
		return
	}
	defer file.Close()

	if err := h.gateway.UploadDuesCSV(r.Context(), state.Token, header.Filename, file); err != nil {
		h.actionError(w, r, "/admin/dues", err)
		return
	}

	log.LogInfoWithFields("admin", "Dues CSV imported", map[string]any{
		"admin":    state.User.StudentNumber,
		"filename": header.Filename,
		"bytes":    header.Size,
	})
	redirectWithMessage(w, r, "/admin/dues", "CSV imported", "success")
}
