package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jmehdipour/contact-desk/internal/config"
	"github.com/jmehdipour/contact-desk/internal/model"
	"github.com/jmehdipour/contact-desk/internal/repository"
	"github.com/jmehdipour/contact-desk/internal/service/contact"
	"github.com/jmehdipour/contact-desk/internal/testutil"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

const adminKey = "test-admin-key"

type testServer struct {
	h   http.Handler
	svc *contact.Service
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	svc := contact.New(repository.NewContactsRepository(db), nil, nil, time.Second)

	cfg := config.Config{Version: "1.2.3"}
	cfg.Notifier.Brand = "Contact Desk"
	cfg.Admin.APIKeys = []string{adminKey}
	cfg.RateLimit.ContactMax = 5
	cfg.RateLimit.APIMax = 100

	srv := NewServer(Deps{Config: cfg, DB: db, Contacts: svc, Notifies: true})
	return &testServer{h: srv.Handler(), svc: svc}
}

func (s *testServer) do(t *testing.T, method, path, body string, admin bool) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if admin {
		req.Header.Set("X-API-Key", adminKey)
	}
	req.Header.Set("User-Agent", "desk-test/1.0")
	rec := httptest.NewRecorder()
	s.h.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec.Code, out
}

const rahul = `{"name":"Rahul Sharma","email":"Rahul@Test.COM","subject":"Moving Services Inquiry",
	"message":"Hi, I need to move my 2BHK apartment from Mumbai to Pune next month. This is urgent."}`

func TestSubmitContact(t *testing.T) {
	s := newTestServer(t)

	code, body := s.do(t, http.MethodPost, "/contact", rahul, false)
	require.Equal(t, http.StatusCreated, code)
	require.Equal(t, true, body["success"])

	data := body["data"].(map[string]any)
	require.Equal(t, true, data["confirmationSent"])
	id := data["id"].(string)

	got, err := s.svc.Get(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, "rahul@test.com", got.Email)
	require.Equal(t, model.PriorityUrgent, got.Priority)
	require.Equal(t, model.StatusNew, got.Status)
	require.Equal(t, "desk-test/1.0", *got.UserAgent)
	require.NotNil(t, got.IPAddress)
}

func TestSubmitContactValidation(t *testing.T) {
	s := newTestServer(t)

	code, body := s.do(t, http.MethodPost, "/contact", `{"name":"R","phone":"abc"}`, false)
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, false, body["success"])

	var fields []string
	for _, v := range body["errors"].([]any) {
		fields = append(fields, v.(map[string]any)["field"].(string))
	}
	require.Equal(t, []string{"name", "email", "phone", "subject", "message"}, fields)

	code, _ = s.do(t, http.MethodPost, "/contact", `{"name":`, false)
	require.Equal(t, http.StatusBadRequest, code)
}

func TestAdminRequiresKey(t *testing.T) {
	s := newTestServer(t)

	code, _ := s.do(t, http.MethodGet, "/api/contacts", "", false)
	require.Equal(t, http.StatusUnauthorized, code)

	code, body := s.do(t, http.MethodGet, "/api", "", false)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "1.2.3", body["version"])
}

func TestAdminListAndPagination(t *testing.T) {
	s := newTestServer(t)
	for i := 0; i < 12; i++ {
		_, err := s.svc.Submit(context.Background(), contact.Submission{
			Name: "Customer", Email: "c@example.com", Subject: "Quote request", Message: "Need a moving quote please.",
		})
		require.NoError(t, err)
	}

	code, body := s.do(t, http.MethodGet, "/api/contacts?page=2&limit=5", "", true)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, body["data"].([]any), 5)
	require.Equal(t, map[string]any{"current": 2.0, "pages": 3.0, "total": 12.0, "limit": 5.0}, body["pagination"])

	code, body = s.do(t, http.MethodGet, "/api/contacts", "", true)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, body["data"].([]any), 10)

	code, _ = s.do(t, http.MethodGet, "/api/contacts?status=deleted", "", true)
	require.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodGet, "/api/contacts?page=-1", "", true)
	require.Equal(t, http.StatusBadRequest, code)
}

func TestAdminGetMarksRead(t *testing.T) {
	s := newTestServer(t)
	_, body := s.do(t, http.MethodPost, "/contact", rahul, false)
	id := body["data"].(map[string]any)["id"].(string)

	code, body := s.do(t, http.MethodGet, "/api/contacts/"+id, "", true)
	require.Equal(t, http.StatusOK, code)
	data := body["data"].(map[string]any)
	require.Equal(t, "read", data["status"])
	require.Nil(t, data["responseTimeHours"])

	code, body = s.do(t, http.MethodGet, "/api/contacts/01HXXXXXXXXXXXXXXXXXXXXXXX", "", true)
	require.Equal(t, http.StatusNotFound, code)
	require.Equal(t, "Contact not found", body["message"])
}

func TestAdminTransitions(t *testing.T) {
	s := newTestServer(t)
	_, body := s.do(t, http.MethodPost, "/contact", rahul, false)
	id := body["data"].(map[string]any)["id"].(string)
	path := "/api/contacts/" + id

	code, body := s.do(t, http.MethodPatch, path, `{"action":"markAsReplied"}`, true)
	require.Equal(t, http.StatusOK, code)
	data := body["data"].(map[string]any)
	require.Equal(t, "replied", data["status"])
	require.NotNil(t, data["responseTime"])
	require.NotNil(t, data["responseTimeHours"])

	code, body = s.do(t, http.MethodPatch, path, `{"action":"setPriority","priority":"critical"}`, true)
	require.Equal(t, http.StatusBadRequest, code)
	require.Contains(t, body["message"], "Invalid priority level")

	code, body = s.do(t, http.MethodPatch, path, `{"action":"setPriority","priority":"low"}`, true)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "low", body["data"].(map[string]any)["priority"])

	code, body = s.do(t, http.MethodPatch, path, `{"action":"addNote","note":"Quote sent by phone"}`, true)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "Quote sent by phone", body["data"].(map[string]any)["notes"])

	code, _ = s.do(t, http.MethodPatch, path, `{"action":"delete"}`, true)
	require.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodPatch, "/api/contacts/missing", `{"action":"archive"}`, true)
	require.Equal(t, http.StatusNotFound, code)
}

func TestAdminQueries(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/contact", rahul, false)
	s.do(t, http.MethodPost, "/contact",
		`{"name":"Asha Rao","email":"asha@example.com","subject":"Office relocation","message":"Moving our office within Bengaluru."}`, false)

	code, body := s.do(t, http.MethodGet, "/api/contacts/search?q=pune", "", true)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, 1.0, body["count"])

	code, body = s.do(t, http.MethodGet, "/api/contacts/recent?limit=1", "", true)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, 1.0, body["count"])

	code, body = s.do(t, http.MethodGet, "/api/contacts/unread", "", true)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, 2.0, body["count"])

	code, body = s.do(t, http.MethodGet, "/api/contacts/stats", "", true)
	require.Equal(t, http.StatusOK, code)
	stats := body["data"].(map[string]any)
	require.Equal(t, 2.0, stats["total"])
	require.Equal(t, map[string]any{"new": 2.0}, stats["byStatus"])

	code, _ = s.do(t, http.MethodGet, "/api/contacts/reports/daily", "", true)
	require.Equal(t, http.StatusServiceUnavailable, code)
}

func TestSystemRoutes(t *testing.T) {
	s := newTestServer(t)

	code, body := s.do(t, http.MethodGet, "/health", "", false)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "Connected", body["database"])
	require.Equal(t, "1.2.3", body["version"])

	code, body = s.do(t, http.MethodGet, "/nowhere", "", false)
	require.Equal(t, http.StatusNotFound, code)
	require.Equal(t, false, body["success"])
	require.Equal(t, "Route not found", body["message"])
}

func TestSecurityHeaders(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/health", "/nowhere"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		s.h.ServeHTTP(rec, req)

		h := rec.Header()
		require.Equal(t, "nosniff", h.Get("X-Content-Type-Options"), path)
		require.Equal(t, "SAMEORIGIN", h.Get("X-Frame-Options"), path)
		require.Equal(t, "0", h.Get("X-XSS-Protection"), path)
		require.Equal(t, "no-referrer", h.Get("Referrer-Policy"), path)
		require.Empty(t, h.Get("Strict-Transport-Security"), path)
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(echo.HeaderXForwardedProto, "https")
	rec := httptest.NewRecorder()
	s.h.ServeHTTP(rec, req)
	require.Equal(t, "max-age=15552000; includeSubdomains", rec.Header().Get("Strict-Transport-Security"))
}
