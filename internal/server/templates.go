package server

import (
	_ "embed"
	"html/template"

	"github.com/knu-cse/dept-front/internal/gateway"
)

//go:embed templates/login.html
var loginPageTemplateHTML string

//go:embed templates/callback_error.html
var callbackErrorTemplateHTML string

//go:embed templates/dashboard.html
var dashboardTemplateHTML string

//go:embed templates/students.html
var studentsTemplateHTML string

//go:embed templates/dues.html
var duesTemplateHTML string

//go:embed templates/qr_logs.html
var qrLogsTemplateHTML string

//go:embed templates/providers.html
var providersTemplateHTML string

//go:embed templates/qr_auth.html
var qrAuthTemplateHTML string

//go:embed templates/additional_info.html
var additionalInfoTemplateHTML string

//go:embed templates/my_dues.html
var myDuesTemplateHTML string

var (
	loginPageTemplate      = template.Must(template.New("login").Parse(loginPageTemplateHTML))
	callbackErrorTemplate  = template.Must(template.New("callback_error").Parse(callbackErrorTemplateHTML))
	dashboardTemplate      = template.Must(template.New("dashboard").Parse(dashboardTemplateHTML))
	studentsTemplate       = template.Must(template.New("students").Parse(studentsTemplateHTML))
	duesTemplate           = template.Must(template.New("dues").Parse(duesTemplateHTML))
	qrLogsTemplate         = template.Must(template.New("qr_logs").Parse(qrLogsTemplateHTML))
	providersTemplate      = template.Must(template.New("providers").Parse(providersTemplateHTML))
	qrAuthTemplate         = template.Must(template.New("qr_auth").Parse(qrAuthTemplateHTML))
	additionalInfoTemplate = template.Must(template.New("additional_info").Parse(additionalInfoTemplateHTML))
	myDuesTemplate         = template.Must(template.New("my_dues").Parse(myDuesTemplateHTML))
)

// LoginPageData is the data for the login page
type LoginPageData struct {
	AuthorizeURL string
	Message      string
	MessageType  string // "success" or "error"
}

// CallbackErrorData is the data for a failed OAuth callback
type CallbackErrorData struct {
	Message string
}

// AdminStatistics are the dashboard counters
type AdminStatistics struct {
	TotalStudents int64
	PaidDues      int64
	QRScans       int64
	Providers     int64
}

// DashboardPageData is the data for the admin dashboard
type DashboardPageData struct {
	UserName    string
	Role        string
	Stats       AdminStatistics
	Message     string
	MessageType string
}

// Pagination carries the page window state for list pages
type Pagination struct {
	Page          int
	TotalPages    int
	TotalElements int64
	HasPrev       bool
	HasNext       bool
	PrevLink      string
	NextLink      string
}

func newPagination(q gateway.PageQuery, first, last bool, totalPages int, totalElements int64) Pagination {
	p := Pagination{
		Page:          q.Page,
		TotalPages:    totalPages,
		TotalElements: totalElements,
		HasPrev:       !first,
		HasNext:       !last,
	}
	if p.HasPrev {
		prev := q
		prev.Page = q.Page - 1
		p.PrevLink = "?" + prev.Values().Encode()
	}
	if p.HasNext {
		next := q
		next.Page = q.Page + 1
		p.NextLink = "?" + next.Values().Encode()
	}
	return p
}

// StudentsPageData is the data for the student management page
type StudentsPageData struct {
	UserName    string
	CSRFToken   string
	Students    []gateway.Student
	Query       gateway.PageQuery
	Pagination  Pagination
	Message     string
	MessageType string
	FieldError  string
}

// DuesPageData is the data for the dues management page
type DuesPageData struct {
	UserName    string
	CSRFToken   string
	Dues        []gateway.Dues
	Query       gateway.PageQuery
	Pagination  Pagination
	Message     string
	MessageType string
	FieldError  string
}

// QRLogsPageData is the data for the scan audit log page
type QRLogsPageData struct {
	UserName    string
	CSRFToken   string
	Logs        []gateway.QrAuthLog
	Query       gateway.PageQuery
	Pagination  Pagination
	Message     string
	MessageType string
}

// ProvidersPageData is the data for the provider bindings page
type ProvidersPageData struct {
	UserName    string
	CSRFToken   string
	Providers   []gateway.Provider
	Query       gateway.PageQuery
	Pagination  Pagination
	Message     string
	MessageType string
	FieldError  string
}

// QRAuthPageData is the data for the kiosk scan page
type QRAuthPageData struct {
	Student     *gateway.QRStudent
	Message     string
	MessageType string
}

// AdditionalInfoPageData is the data for the student-number linking page
type AdditionalInfoPageData struct {
	Token       string
	RedirectURL string
	Student     *gateway.StudentInfo
	Message     string
	MessageType string
}
