package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/airsial/opshub/internal/archive"
	"github.com/airsial/opshub/internal/assistant"
	"github.com/airsial/opshub/internal/config"
	"github.com/airsial/opshub/internal/metrics"
	"github.com/airsial/opshub/internal/records"
	"github.com/airsial/opshub/internal/session"
	"github.com/airsial/opshub/internal/stats"
	"github.com/airsial/opshub/internal/storage/sqlite"
	"github.com/airsial/opshub/internal/users"
	"github.com/airsial/opshub/pkg/logger"
)

type testEnv struct {
	server *httptest.Server
	cfg    *config.Config
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	log := logger.NewNop()

	cfg := config.Default()
	cfg.Storage.DataDir = dir
	cfg.Auth.UsersFile = filepath.Join(dir, "users.json")
	cfg.Auth.BcryptCost = bcrypt.MinCost
	cfg.Archive.Driver = "memory"

	recordStore, err := records.NewStore(records.Config{
		Dir:           dir,
		ImportMaxRows: cfg.Records.ImportMaxRows,
		ImportOnError: cfg.Records.ImportOnError,
		ImportRoles:   cfg.Records.ImportRoles,
	}, log)
	require.NoError(t, err)

	userStore, err := users.NewStore(users.Config{
		Path:          cfg.Auth.UsersFile,
		BcryptCost:    cfg.Auth.BcryptCost,
		AdminUsername: cfg.Auth.AdminUsername,
		AdminPassword: cfg.Auth.AdminPassword,
	}, log)
	require.NoError(t, err)

	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	chat, err := sqlite.NewChatStorage(db, log)
	require.NoError(t, err)
	audit, err := sqlite.NewAuditStorage(db, log)
	require.NoError(t, err)

	sessions := session.NewManager(time.Hour, log)
	statsSvc := stats.NewService(recordStore, 0, log)
	assistantSvc := assistant.NewService(statsSvc, chat, nil, 5, 10, log)

	router := NewRouter(cfg, recordStore, userStore, sessions, statsSvc, assistantSvc,
		archive.NewMemoryStore(), audit, metrics.New(), log)

	srv := httptest.NewServer(router.Routes())
	t.Cleanup(srv.Close)
	return &testEnv{server: srv, cfg: cfg}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body io.Reader, contentType string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, e.server.URL+path, body)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := e.server.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func (e *testEnv) doJSON(t *testing.T, method, path, token string, payload any) *http.Response {
	t.Helper()
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(data)
	}
	return e.do(t, method, path, token, body, "application/json")
}

func decodeJSON(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func drain(resp *http.Response) {
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

func (e *testEnv) login(t *testing.T, username, password string) string {
	t.Helper()
	resp := e.doJSON(t, http.MethodPost, "/api/v1/auth/login", "", LoginRequest{
		Username: username,
		Password: password,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out LoginResponse
	decodeJSON(t, resp, &out)
	require.NotEmpty(t, out.Token)
	return out.Token
}

func (e *testEnv) createUser(t *testing.T, adminToken, username, password, role string) {
	t.Helper()
	resp := e.doJSON(t, http.MethodPost, "/api/v1/users", adminToken, CreateUserRequest{
		Username: username,
		Password: password,
		Role:     role,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	drain(resp)
}

func TestLoginFlow(t *testing.T) {
	env := newTestEnv(t)

	resp := env.doJSON(t, http.MethodPost, "/api/v1/auth/login", "", LoginRequest{
		Username: "admin",
		Password: "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	drain(resp)

	token := env.login(t, "admin", "admin123")

	resp = env.do(t, http.MethodGet, "/api/v1/auth/me", token, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var me SessionResponse
	decodeJSON(t, resp, &me)
	assert.Equal(t, "admin", me.Username)
	assert.Equal(t, records.RoleAdministrator, me.Role)

	resp = env.do(t, http.MethodPost, "/api/v1/auth/logout", token, nil, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	drain(resp)

	resp = env.do(t, http.MethodGet, "/api/v1/auth/me", token, nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	drain(resp)
}

func TestRequestsRequireSession(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/api/v1/records/maintenance", "", nil, "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	var out ErrorResponse
	decodeJSON(t, resp, &out)
	assert.Equal(t, "authentication required", out.Error)
}

func TestRecordLifecycle(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "admin", "admin123")

	resp := env.doJSON(t, http.MethodPost, "/api/v1/records/maintenance", token, map[string]any{
		"aircraft":        "AP-BOC",
		"type":            "A-Check",
		"status":          "Pending",
		"estimated_hours": 8.5,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created records.Record
	decodeJSON(t, resp, &created)
	assert.Equal(t, int64(1), created.ID)
	assert.Equal(t, "admin", created.CreatedBy)
	assert.Equal(t, "8.5", created.Field("estimated_hours"))

	resp = env.do(t, http.MethodGet, "/api/v1/records/maintenance", token, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list RecordsResponse
	decodeJSON(t, resp, &list)
	assert.Equal(t, 1, list.Count)
	assert.Equal(t, "maintenance", list.Collection)

	resp = env.do(t, http.MethodGet, "/api/v1/records/maintenance/1", token, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got records.Record
	decodeJSON(t, resp, &got)
	assert.Equal(t, "A-Check", got.Field("type"))

	resp = env.do(t, http.MethodGet, "/api/v1/records/maintenance/99", token, nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	drain(resp)

	resp = env.do(t, http.MethodGet, "/api/v1/records/cargo", token, nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	drain(resp)
}

func TestRecordFilters(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "admin", "admin123")

	for i, status := range []string{"Pending", "Completed", "Pending"} {
		resp := env.doJSON(t, http.MethodPost, "/api/v1/records/maintenance", token, map[string]any{
			"aircraft": fmt.Sprintf("AP-B%02d", i),
			"type":     "A-Check",
			"status":   status,
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		drain(resp)
	}

	resp := env.do(t, http.MethodGet, "/api/v1/records/maintenance?field=status&value=Pending", token, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list RecordsResponse
	decodeJSON(t, resp, &list)
	assert.Equal(t, 2, list.Count)

	resp = env.do(t, http.MethodGet, "/api/v1/records/maintenance?search=b01", token, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeJSON(t, resp, &list)
	assert.Equal(t, 1, list.Count)

	resp = env.do(t, http.MethodGet, "/api/v1/records/maintenance?field=bogus&value=x", token, nil, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	drain(resp)
}

func TestCreateRecordValidation(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "admin", "admin123")

	resp := env.doJSON(t, http.MethodPost, "/api/v1/records/safety", token, map[string]any{
		"date": "2025-02-01",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "missing required fields")
	drain(resp)

	resp = env.doJSON(t, http.MethodPost, "/api/v1/records/safety", token, map[string]any{
		"date":     "2025-02-01",
		"type":     "Bird Strike",
		"severity": "Low",
		"altitude": "3000",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "unknown field")
	drain(resp)

	resp = env.do(t, http.MethodPost, "/api/v1/records/safety", token, strings.NewReader("not json"), "application/json")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	drain(resp)
}

func TestImportAndExportCSV(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "admin", "admin123")

	csvBody := "date,type,severity\n" +
		"2025-02-01,Bird Strike,Low\n" +
		"2025-02-02,Technical Failure,High\n" +
		"2025-02-03,Runway Incursion,Medium\n"
	resp := env.do(t, http.MethodPost, "/api/v1/records/safety/import", token, strings.NewReader(csvBody), "text/csv")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var imported ImportResponse
	decodeJSON(t, resp, &imported)
	assert.Equal(t, 3, imported.Inserted)

	resp = env.do(t, http.MethodGet, "/api/v1/records/safety/export", token, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/csv", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), ".csv")
	data, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(data), "Technical Failure")
	assert.Contains(t, string(data), "bulk import")
}

func TestImportMultipartUpload(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "admin", "admin123")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "upload.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte("date,flight_number,aircraft\n2025-02-01,PK-300,AP-BOC\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp := env.do(t, http.MethodPost, "/api/v1/records/flight/import", token, &buf, mw.FormDataContentType())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var imported ImportResponse
	decodeJSON(t, resp, &imported)
	assert.Equal(t, 1, imported.Inserted)
}

func TestImportRejectsMalformedCSV(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "admin", "admin123")

	resp := env.do(t, http.MethodPost, "/api/v1/records/safety/import", token,
		strings.NewReader("this is not, a \"csv"), "text/csv")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	drain(resp)

	resp = env.do(t, http.MethodGet, "/api/v1/records/safety", token, nil, "")
	var list RecordsResponse
	decodeJSON(t, resp, &list)
	assert.Equal(t, 0, list.Count, "nothing inserted from a rejected import")
}

func TestImportDeniedForViewer(t *testing.T) {
	env := newTestEnv(t)
	admin := env.login(t, "admin", "admin123")
	env.createUser(t, admin, "vis", "viewer123", records.RoleViewer)
	viewer := env.login(t, "vis", "viewer123")

	resp := env.do(t, http.MethodPost, "/api/v1/records/safety/import", viewer,
		strings.NewReader("date,type,severity\n2025-02-01,Bird Strike,Low\n"), "text/csv")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	drain(resp)
}

func TestTemplateDownload(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "admin", "admin123")

	resp := env.do(t, http.MethodGet, "/api/v1/records/maintenance/template", token, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/csv", resp.Header.Get("Content-Type"))
	data, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(data), "maintenance_date,aircraft,type")
	assert.Contains(t, string(data), "AP-BOC")

	resp = env.do(t, http.MethodGet, "/api/v1/records/cargo/template", token, nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	drain(resp)
}

func TestDeleteRange(t *testing.T) {
	env := newTestEnv(t)
	admin := env.login(t, "admin", "admin123")
	env.createUser(t, admin, "eng", "engine123", records.RoleEngineer)
	engineer := env.login(t, "eng", "engine123")

	for i := 0; i < 5; i++ {
		resp := env.doJSON(t, http.MethodPost, "/api/v1/records/maintenance", admin, map[string]any{
			"aircraft": fmt.Sprintf("AP-B%02d", i),
			"type":     "A-Check",
			"status":   "Pending",
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		drain(resp)
	}

	resp := env.do(t, http.MethodDelete, "/api/v1/records/maintenance/range?from=2&to=4", engineer, nil, "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	drain(resp)

	resp = env.do(t, http.MethodDelete, "/api/v1/records/maintenance/range?from=4&to=2", admin, nil, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "inverted range")
	drain(resp)

	resp = env.do(t, http.MethodDelete, "/api/v1/records/maintenance/range?from=2&to=4", admin, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out DeleteRangeResponse
	decodeJSON(t, resp, &out)
	assert.Equal(t, 3, out.Removed)

	resp = env.do(t, http.MethodGet, "/api/v1/records/maintenance", admin, nil, "")
	var list RecordsResponse
	decodeJSON(t, resp, &list)
	require.Equal(t, 2, list.Count)
	assert.Equal(t, int64(1), list.Records[0].ID)
	assert.Equal(t, int64(5), list.Records[1].ID)
}

func TestDashboard(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "admin", "admin123")

	resp := env.doJSON(t, http.MethodPost, "/api/v1/records/maintenance", token, map[string]any{
		"aircraft": "AP-BOC", "type": "A-Check", "status": "Pending", "estimated_hours": "8",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	drain(resp)
	resp = env.doJSON(t, http.MethodPost, "/api/v1/records/safety", token, map[string]any{
		"date": "2025-02-01", "type": "Bird Strike", "severity": "Critical",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	drain(resp)

	resp = env.do(t, http.MethodGet, "/api/v1/dashboard", token, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out DashboardResponse
	decodeJSON(t, resp, &out)
	require.NotNil(t, out.Summary)
	assert.Equal(t, 1, out.Summary.TotalMaintenance)
	assert.Equal(t, 1, out.Summary.CriticalIncidents)
	assert.Equal(t, 90, out.Summary.SafetyScore)
	assert.Contains(t, out.Alerts, "1 critical safety incidents need review")
	assert.NotEmpty(t, out.RecentActivities)
}
