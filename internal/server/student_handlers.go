package server

import (
	"net/http"
	"strconv"

	"github.com/knu-cse/dept-front/internal/authstate"
	"github.com/knu-cse/dept-front/internal/gateway"
	jsonwriter "github.com/knu-cse/dept-front/internal/json"
	"github.com/knu-cse/dept-front/internal/log"
	"github.com/knu-cse/dept-front/internal/roles"
)

// StudentsPageHandler renders the roster list
func (h *AdminHandlers) StudentsPageHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonwriter.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
		return
	}

	state := authstate.FromContext(r.Context())
	query := pageQueryFromRequest(r)

	page, err := h.gateway.ListStudents(r.Context(), state.Token, query)
	if err != nil {
		if h.expireOnUnauthorized(w, r, err) {
			return
		}
		log.LogErrorWithFields("admin", "Failed to list students", map[string]any{
			"error": err.Error(),
		})
		page = &gateway.Page[gateway.Student]{}
	}

	csrfToken, ok := h.csrfToken(w)
	if !ok {
		return
	}

	data := StudentsPageData{
		UserName:    state.User.Name,
		CSRFToken:   csrfToken,
		Students:    page.Content,
		Query:       query,
		Pagination:  newPagination(query, page.First, page.Last, page.TotalPages, page.TotalElements),
		Message:     r.URL.Query().Get("message"),
		MessageType: r.URL.Query().Get("type"),
		FieldError:  r.URL.Query().Get("fieldError"),
	}
	if err != nil && data.Message == "" {
		data.Message = "Failed to load students"
		data.MessageType = "error"
	}

	renderPage(w, studentsTemplate, "students", data)
}

// StudentCreateHandler adds a roster entry from the admin form
func (h *AdminHandlers) StudentCreateHandler(w http.ResponseWriter, r *http.Request) {
	if !h.checkedForm(w, r) {
		return
	}
	state := authstate.FromContext(r.Context())

	student := gateway.Student{
		StudentNumber: r.FormValue("studentNumber"),
		Name:          r.FormValue("name"),
		Major:         r.FormValue("major"),
		Role:          roles.Role(r.FormValue("role")),
	}

	// Validate before any upstream call
	if !studentNumberRe.MatchString(student.StudentNumber) {
		redirectWithFieldError(w, r, "/admin/students", "Student number must be 7 to 10 digits")
		return
	}
	if student.Name == "" {
		redirectWithFieldError(w, r, "/admin/students", "Name is required")
		return
	}
	if student.Role == "" {
		student.Role = roles.Student
	}

	if _, err := h.gateway.CreateStudent(r.Context(), state.Token, student); err != nil {
		h.actionError(w, r, "/admin/students", err)
		return
	}

	log.LogInfoWithFields("admin", "Student created", map[string]any{
		"admin":          state.User.StudentNumber,
		"student_number": student.StudentNumber,
	})
	redirectWithMessage(w, r, "/admin/students", "Student "+student.Name+" added", "success")
}

// StudentUpdateHandler patches a roster entry
func (h *AdminHandlers) StudentUpdateHandler(w http.ResponseWriter, r *http.Request) {
	if !h.checkedForm(w, r) {
		return
	}
	state := authstate.FromContext(r.Context())

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonwriter.WriteBadRequest(w, "Invalid student id")
		return
	}

	student := gateway.Student{
		StudentNumber: r.FormValue("studentNumber"),
		Name:          r.FormValue("name"),
		Major:         r.FormValue("major"),
		Role:          roles.Role(r.FormValue("role")),
	}
	if student.StudentNumber != "" && !studentNumberRe.MatchString(student.StudentNumber) {
		redirectWithFieldError(w, r, "/admin/students", "Student number must be 7 to 10 digits")
		return
	}

	if _, err := h.gateway.UpdateStudent(r.Context(), state.Token, id, student); err != nil {
		h.actionError(w, r, "/admin/students", err)
		return
	}

	log.LogInfoWithFields("admin", "Student updated", map[string]any{
		"admin":      state.User.StudentNumber,
		"student_id": id,
	})
	redirectWithMessage(w, r, "/admin/students", "Student updated", "success")
}

// StudentDeleteHandler removes roster entries
func (h *AdminHandlers) StudentDeleteHandler(w http.ResponseWriter, r *http.Request) {
	if !h.checkedForm(w, r) {
		return
	}
	state := authstate.FromContext(r.Context())

	ids, err := parseIDs(r.FormValue("ids"))
	if err != nil {
		jsonwriter.WriteBadRequest(w, "Invalid ids")
		return
	}

	if err := h.gateway.DeleteStudents(r.Context(), state.Token, ids); err != nil {
		h.actionError(w, r, "/admin/students", err)
		return
	}

	log.LogInfoWithFields("admin", "Students deleted", map[string]any{
		"admin": state.User.StudentNumber,
		"count": len(ids),
	})
	redirectWithMessage(w, r, "/admin/students", "Deleted", "success")
}
