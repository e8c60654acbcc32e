package gateway

import "github.com/knu-cse/dept-front/internal/roles"

// UserProfile is the account behind a bearer token, as reported by the
// token-info endpoint
type UserProfile struct {
	StudentID     int64      `json:"studentId"`
	StudentNumber string     `json:"studentNumber"`
	Name          string     `json:"name"`
	Major         string     `json:"major"`
	Role          roles.Role `json:"role"`
	Email         string     `json:"email"`
}

// TokenResponse is the result of exchanging an OAuth code
type TokenResponse struct {
	AccessToken string `json:"accessToken"`
	TokenType   string `json:"tokenType"`
	ExpiresIn   int64  `json:"expiresIn"`
}

// StudentInfo is the lookup result when checking whether a student number
// exists in the department roster
type StudentInfo struct {
	Name          string `json:"name"`
	StudentNumber string `json:"studentNumber"`
}

// Student is a roster entry
type Student struct {
	StudentID     int64      `json:"studentId,omitempty"`
	StudentNumber string     `json:"studentNumber"`
	Name          string     `json:"name"`
	Major         string     `json:"major"`
	Role          roles.Role `json:"role"`
}

// Dues is a dues payment record
type Dues struct {
	DuesID             int64  `json:"duesId,omitempty"`
	StudentName        string `json:"studentName"`
	StudentNumber      string `json:"studentNumber"`
	DepositorName      string `json:"depositorName"`
	Amount             int64  `json:"amount"`
	RemainingSemesters int    `json:"remainingSemesters"`
	SubmittedAt        string `json:"submittedAt,omitempty"`
}

// QRStudent is what a kiosk scan resolves a student number to
type QRStudent struct {
	StudentNumber string `json:"studentNumber"`
	Name          string `json:"name"`
	DuesPaid      bool   `json:"duesPaid"`
}

// QRLogEntry is a scan event to record. ScanDate is a date-only ISO string.
type QRLogEntry struct {
	StudentNumber string `json:"studentNumber"`
	StudentName   string `json:"studentName"`
	DuesPaid      bool   `json:"duesPaid"`
	ScanDate      string `json:"scanDate"`
}

// QrAuthLog is a recorded scan event
type QrAuthLog struct {
	ID            int64  `json:"id"`
	StudentNumber string `json:"studentNumber"`
	StudentName   string `json:"studentName"`
	DuesPaid      bool   `json:"duesPaid"`
	ScanDate      string `json:"scanDate"`
}

// Provider is an OAuth identity linked to a student account
type Provider struct {
	ID           int64  `json:"id,omitempty"`
	Email        string `json:"email"`
	ProviderName string `json:"providerName"`
	ProviderKey  string `json:"providerKey"`
	StudentID    int64  `json:"studentId"`
}
