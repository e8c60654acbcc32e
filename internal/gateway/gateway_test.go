package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knu-cse/dept-front/internal/config"
	"github.com/knu-cse/dept-front/internal/roles"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(config.GatewayConfig{BaseURL: server.URL, Timeout: 5 * time.Second})
}

func writeEnvelope(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{"status": "OK", "data": data})
}

func TestExchangeToken(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/token", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "auth-code", body["code"])
		assert.Equal(t, "https://front.example.com/admin", body["redirectUrl"])

		writeEnvelope(w, http.StatusOK, TokenResponse{
			AccessToken: "jwt-token",
			TokenType:   "Bearer",
			ExpiresIn:   3600,
		})
	})

	resp, err := client.ExchangeToken(context.Background(), "auth-code", "https://front.example.com/admin")
	require.NoError(t, err)
	assert.Equal(t, "jwt-token", resp.AccessToken)
	assert.Equal(t, "Bearer", resp.TokenType)
}

func TestTokenInfo(t *testing.T) {
	t.Run("sends bearer token", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/token-info", r.URL.Path)
			assert.Equal(t, "Bearer jwt-token", r.Header.Get("Authorization"))
			writeEnvelope(w, http.StatusOK, UserProfile{
				StudentID:     7,
				StudentNumber: "2021012345",
				Name:          "Kim",
				Role:          roles.Admin,
			})
		})

		profile, err := client.TokenInfo(context.Background(), "jwt-token")
		require.NoError(t, err)
		assert.Equal(t, roles.Admin, profile.Role)
		assert.Equal(t, "2021012345", profile.StudentNumber)
	})

	t.Run("null data yields nil profile", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeEnvelope(w, http.StatusOK, nil)
		})

		profile, err := client.TokenInfo(context.Background(), "jwt-token")
		require.NoError(t, err)
		assert.Nil(t, profile)
	})

	t.Run("expired token maps to ErrUnauthorized", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]any{"status": "UNAUTHORIZED", "msg": "token expired"})
		})

		_, err := client.TokenInfo(context.Background(), "stale")
		assert.ErrorIs(t, err, ErrUnauthorized)

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, "token expired", apiErr.Msg)
	})
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		sentinel error
	}{
		{"not found", http.StatusNotFound, ErrNotFound},
		{"conflict", http.StatusConflict, ErrConflict},
		{"unauthorized", http.StatusUnauthorized, ErrUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})
			_, err := client.CheckStudentNumber(context.Background(), "2021012345")
			assert.ErrorIs(t, err, tt.sentinel)
		})
	}

	t.Run("server error carries upstream message", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]any{"status": "ERROR", "msg": "boom"})
		})
		_, err := client.CheckStudentNumber(context.Background(), "2021012345")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrUnauthorized)
		assert.Contains(t, err.Error(), "boom")
	})

	t.Run("non-JSON error body", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte("<html>Bad Gateway</html>"))
		})
		_, err := client.CheckStudentNumber(context.Background(), "2021012345")
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	})
}

func TestListStudents(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/students", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "2", q.Get("page"))
		assert.Equal(t, "20", q.Get("size"))
		assert.Equal(t, "name", q.Get("sortBy"))
		assert.Equal(t, "asc", q.Get("direction"))
		assert.Equal(t, "studentNumber", q.Get("searchColumn"))
		assert.Equal(t, "2021", q.Get("searchKeyword"))

		writeEnvelope(w, http.StatusOK, Page[Student]{
			Content:       []Student{{StudentID: 1, Name: "Lee"}},
			TotalElements: 41,
			TotalPages:    3,
			Last:          true,
		})
	})

	page, err := client.ListStudents(context.Background(), "tok", PageQuery{
		Page:          2,
		Size:          20,
		SortBy:        "name",
		Direction:     "asc",
		SearchColumn:  "studentNumber",
		SearchKeyword: "2021",
	})
	require.NoError(t, err)
	assert.Len(t, page.Content, 1)
	assert.Equal(t, int64(41), page.TotalElements)
	assert.True(t, page.Last)
}

func TestPageQueryDefaults(t *testing.T) {
	values := PageQuery{}.Values()
	assert.Equal(t, "0", values.Get("page"))
	assert.Equal(t, "10", values.Get("size"))
	assert.Empty(t, values.Get("sortBy"))

	// a keyword without a column is not sent
	values = PageQuery{SearchKeyword: "kim"}.Values()
	assert.Empty(t, values.Get("searchKeyword"))
}

func TestCreateStudentStripsID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.NotContains(t, body, "studentId")
		writeEnvelope(w, http.StatusCreated, Student{StudentID: 9, Name: "Park"})
	})

	created, err := client.CreateStudent(context.Background(), "tok", Student{
		StudentID:     123,
		StudentNumber: "2021012345",
		Name:          "Park",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(9), created.StudentID)
}

func TestDeleteStudents(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "DELETE", r.Method)
		assert.Equal(t, "1,2,3", r.URL.Query().Get("ids"))
		writeEnvelope(w, http.StatusOK, nil)
	})

	require.NoError(t, client.DeleteStudents(context.Background(), "tok", []int64{1, 2, 3}))
}

func TestUploadDuesCSV(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/dues", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()

		assert.Equal(t, "dues.csv", header.Filename)
		writeEnvelope(w, http.StatusOK, nil)
	})

	err := client.UploadDuesCSV(context.Background(), "tok", "dues.csv", strings.NewReader("studentNumber,amount\n2021012345,30000\n"))
	require.NoError(t, err)
}

func TestQRFlow(t *testing.T) {
	t.Run("student lookup", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/qr/student", r.URL.Path)
			assert.Equal(t, "2021012345", r.URL.Query().Get("studentNumber"))
			assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
			writeEnvelope(w, http.StatusOK, QRStudent{StudentNumber: "2021012345", Name: "Choi", DuesPaid: true})
		})

		student, err := client.StudentByQR(context.Background(), "tok", "2021012345")
		require.NoError(t, err)
		assert.True(t, student.DuesPaid)
	})

	t.Run("save log", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/qr-auth", r.URL.Path)
			assert.Empty(t, r.Header.Get("Authorization"), "kiosk scans carry no user token")
			var entry QRLogEntry
			require.NoError(t, json.NewDecoder(r.Body).Decode(&entry))
			assert.Equal(t, "2026-08-29", entry.ScanDate)
			writeEnvelope(w, http.StatusOK, nil)
		})

		err := client.SaveQRLog(context.Background(), "", QRLogEntry{
			StudentNumber: "2021012345",
			StudentName:   "Choi",
			DuesPaid:      true,
			ScanDate:      "2026-08-29",
		})
		require.NoError(t, err)
	})

	t.Run("delete log", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "DELETE", r.Method)
			assert.Equal(t, "/qr-auth-logs/42", r.URL.Path)
			writeEnvelope(w, http.StatusOK, nil)
		})

		require.NoError(t, client.DeleteQRLog(context.Background(), "tok", 42))
	})
}

func TestProviderConflict(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]any{"status": "CONFLICT", "msg": "provider already linked"})
	})

	_, err := client.CreateProvider(context.Background(), "tok", Provider{
		Email:        "kim@example.com",
		ProviderName: "google",
		ProviderKey:  "sub-123",
		StudentID:    7,
	})
	assert.ErrorIs(t, err, ErrConflict)
}
