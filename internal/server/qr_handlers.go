package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/knu-cse/dept-front/internal/authstate"
	"github.com/knu-cse/dept-front/internal/gateway"
	jsonwriter "github.com/knu-cse/dept-front/internal/json"
	"github.com/knu-cse/dept-front/internal/log"
)

// QRHandlers owns the kiosk check-in flow: resolve a scanned student
// number and record the scan in the audit log
type QRHandlers struct {
	gateway *gateway.Client
}

func NewQRHandlers(gw *gateway.Client) *QRHandlers {
	return &QRHandlers{gateway: gw}
}

// QRAuthPageHandler renders the kiosk scan page
func (h *QRHandlers) QRAuthPageHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonwriter.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
		return
	}
	renderPage(w, qrAuthTemplate, "qr_auth", QRAuthPageData{
		Message:     r.URL.Query().Get("message"),
		MessageType: r.URL.Query().Get("type"),
	})
}

// QRScanHandler looks up the scanned student and records the scan. The
// result is rendered inline so the kiosk shows it immediately.
func (h *QRHandlers) QRScanHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonwriter.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
		return
	}
	if err := r.ParseForm(); err != nil {
		jsonwriter.WriteBadRequest(w, "Bad request")
		return
	}

	studentNumber := r.FormValue("studentNumber")
	if !studentNumberRe.MatchString(studentNumber) {
		renderPage(w, qrAuthTemplate, "qr_auth", QRAuthPageData{
			Message:     "Student number must be 7 to 10 digits",
			MessageType: "error",
		})
		return
	}

	// A logged-in browser scan carries the user's bearer token upstream.
	// Kiosk service scans have no user; their credential only authenticates
	// them to this server, so the upstream call goes out without one.
	token := authstate.FromContext(r.Context()).Token

	student, err := h.gateway.StudentByQR(r.Context(), token, studentNumber)
	if err != nil || student == nil {
		if err != nil && !errors.Is(err, gateway.ErrNotFound) {
			log.LogErrorWithFields("qr", "Student lookup failed", map[string]any{
				"error": err.Error(),
			})
			renderPage(w, qrAuthTemplate, "qr_auth", QRAuthPageData{
				Message:     "Lookup failed. Please try again.",
				MessageType: "error",
			})
			return
		}
		renderPage(w, qrAuthTemplate, "qr_auth", QRAuthPageData{
			Message:     "Student not found",
			MessageType: "error",
		})
		return
	}

	// The scan is recorded date-only; the audit log does not track times
	entry := gateway.QRLogEntry{
		StudentNumber: student.StudentNumber,
		StudentName:   student.Name,
		DuesPaid:      student.DuesPaid,
		ScanDate:      time.Now().Format("2006-01-02"),
	}
	if err := h.gateway.SaveQRLog(r.Context(), token, entry); err != nil {
		// The lookup result still matters to the person at the kiosk,
		// so show it even if the audit write failed
		log.LogErrorWithFields("qr", "Failed to save scan log", map[string]any{
			"student_number": student.StudentNumber,
			"error":          err.Error(),
		})
	}

	renderPage(w, qrAuthTemplate, "qr_auth", QRAuthPageData{Student: student})
}
