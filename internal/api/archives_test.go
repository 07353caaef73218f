package api

import (
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airsial/opshub/internal/records"
)

func TestExportPackage(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "admin", "admin123")

	resp := env.doJSON(t, http.MethodPost, "/api/v1/records/maintenance", token, map[string]any{
		"aircraft": "AP-BOC", "type": "A-Check", "status": "Pending",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	drain(resp)

	resp = env.do(t, http.MethodGet, "/api/v1/export/package", token, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "airsial_complete_export_")

	var pkg map[string]any
	decodeJSON(t, resp, &pkg)
	assert.Equal(t, "admin", pkg["exported_by"])
	assert.NotEmpty(t, pkg["export_date"])
	statistics, ok := pkg["statistics"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(1), statistics["maintenance_records"])
	assert.Equal(t, float64(0), statistics["safety_records"])
	maintData, ok := pkg["maintenance_data"].([]any)
	require.True(t, ok)
	assert.Len(t, maintData, 1)
}

func TestArchiveLifecycle(t *testing.T) {
	env := newTestEnv(t)
	admin := env.login(t, "admin", "admin123")

	resp := env.doJSON(t, http.MethodPost, "/api/v1/records/flight", admin, map[string]any{
		"date": "2025-02-01", "flight_number": "PK-300", "aircraft": "AP-BOC",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	drain(resp)

	resp = env.do(t, http.MethodPost, "/api/v1/export/archive", admin, nil, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created ArchiveCreatedResponse
	decodeJSON(t, resp, &created)
	require.NotEmpty(t, created.Archive.Key)
	assert.Greater(t, created.Archive.Size, int64(0))

	resp = env.do(t, http.MethodGet, "/api/v1/archives", admin, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list ArchivesResponse
	decodeJSON(t, resp, &list)
	assert.Equal(t, "memory", list.Driver)
	require.Equal(t, 1, list.Count)
	assert.Equal(t, created.Archive.Key, list.Archives[0].Key)

	resp = env.do(t, http.MethodGet, "/api/v1/archives/"+created.Archive.Key, admin, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	var pkg map[string]any
	require.NoError(t, json.Unmarshal(data, &pkg))
	assert.Equal(t, "admin", pkg["exported_by"])

	resp = env.do(t, http.MethodDelete, "/api/v1/archives/"+created.Archive.Key, admin, nil, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	drain(resp)

	resp = env.do(t, http.MethodGet, "/api/v1/archives/"+created.Archive.Key, admin, nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	drain(resp)

	resp = env.do(t, http.MethodDelete, "/api/v1/archives/"+created.Archive.Key, admin, nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	drain(resp)
}

func TestArchivesRequireManagerRole(t *testing.T) {
	env := newTestEnv(t)
	admin := env.login(t, "admin", "admin123")
	env.createUser(t, admin, "vis", "viewer123", records.RoleViewer)
	env.createUser(t, admin, "mgr", "manage123", records.RoleManager)
	viewer := env.login(t, "vis", "viewer123")
	manager := env.login(t, "mgr", "manage123")

	resp := env.do(t, http.MethodPost, "/api/v1/export/archive", viewer, nil, "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	drain(resp)

	resp = env.do(t, http.MethodPost, "/api/v1/export/archive", manager, nil, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created ArchiveCreatedResponse
	decodeJSON(t, resp, &created)

	// Snapshots hold the full data set, so reads carry the same gate as
	// writes.
	resp = env.do(t, http.MethodGet, "/api/v1/archives", viewer, nil, "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	drain(resp)

	resp = env.do(t, http.MethodGet, "/api/v1/archives/"+created.Archive.Key, viewer, nil, "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	drain(resp)

	resp = env.do(t, http.MethodDelete, "/api/v1/archives/"+created.Archive.Key, viewer, nil, "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	drain(resp)

	resp = env.do(t, http.MethodGet, "/api/v1/archives", manager, nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	drain(resp)

	resp = env.do(t, http.MethodGet, "/api/v1/archives/"+created.Archive.Key, manager, nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	drain(resp)
}
