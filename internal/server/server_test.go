package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "bitor-console/internal/errors"
	"bitor-console/internal/settings"
	"bitor-console/internal/types"
)

// ScanSourceMock returns canned scan progress
type ScanSourceMock struct {
	GetScanProgressFunc func(ctx context.Context, scanID string) (*types.ScanProgress, error)
}

func (m *ScanSourceMock) GetScanProgress(ctx context.Context, scanID string) (*types.ScanProgress, error) {
	return m.GetScanProgressFunc(ctx, scanID)
}

func newTestRouter(t *testing.T, s *settings.Store, scans ScanSource) http.Handler {
	t.Helper()
	return NewRouter(Options{
		Settings: s,
		Scans:    scans,
		Stream: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, types.ApiResponse[types.AppSettings]) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp types.ApiResponse[types.AppSettings]
	if rec.Code != http.StatusTeapot {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	}
	return rec, resp
}

func TestHealth(t *testing.T) {
	h := newTestRouter(t, settings.NewStore(), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)
	assert.Contains(t, rec.Body.String(), `"settingsLoaded":false`)
}

func TestGetSettings_Unset(t *testing.T) {
	h := newTestRouter(t, settings.NewStore(), nil)

	rec, resp := do(t, h, http.MethodGet, "/api/settings", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
	assert.Nil(t, resp.Data)
	assert.Equal(t, "settings not loaded", resp.Message)
}

func TestPutSettings_ReplacesValue(t *testing.T) {
	s := settings.NewStore()
	s.Set(&types.AppSettings{Language: "de", Notifications: types.Bool(true)})
	h := newTestRouter(t, s, nil)

	rec, resp := do(t, h, http.MethodPut, "/api/settings", `{"theme":"dark"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, &types.AppSettings{Theme: types.ThemeDark}, resp.Data)
	assert.Equal(t, &types.AppSettings{Theme: types.ThemeDark}, s.Get())
}

func TestPatchSettings_MergesOverCurrent(t *testing.T) {
	s := settings.NewStore()
	s.Set(&types.AppSettings{Theme: types.ThemeDark})
	h := newTestRouter(t, s, nil)

	rec, resp := do(t, h, http.MethodPatch, "/api/settings", `{"notifications":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	want := &types.AppSettings{Theme: types.ThemeDark, Notifications: types.Bool(true)}
	assert.Equal(t, want, resp.Data)
	assert.Equal(t, want, s.Get())
}

func TestPatchSettings_FromUnset(t *testing.T) {
	s := settings.NewStore()
	h := newTestRouter(t, s, nil)

	_, resp := do(t, h, http.MethodPatch, "/api/settings", `{"refreshInterval":15,"timezone":"UTC"}`)
	assert.Equal(t, &types.AppSettings{RefreshInterval: types.Int(15), Timezone: "UTC"}, resp.Data)
}

func TestDeleteSettings_Resets(t *testing.T) {
	s := settings.NewStore()
	s.Set(&types.AppSettings{Theme: types.ThemeLight})
	h := newTestRouter(t, s, nil)

	rec, resp := do(t, h, http.MethodDelete, "/api/settings", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, resp.Data)
	assert.False(t, s.Loaded())
}

func TestPutSettings_Rejected(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"malformed json", `{"theme":`, http.StatusBadRequest},
		{"null body", `null`, http.StatusBadRequest},
		{"empty body", ``, http.StatusBadRequest},
		{"wrong field type", `{"notifications":"yes"}`, http.StatusBadRequest},
		{"array body", `[1,2]`, http.StatusBadRequest},
		{"trailing garbage", `{"theme":"dark"}garbage`, http.StatusBadRequest},
		{"two documents", `{"theme":"dark"} {"theme":"light"}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := settings.NewStore()
			s.Set(&types.AppSettings{Theme: types.ThemeAuto})
			h := newTestRouter(t, s, nil)

			rec, resp := do(t, h, http.MethodPut, "/api/settings", tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.False(t, resp.Success)
			assert.NotEmpty(t, resp.Error)
			assert.Equal(t, &types.AppSettings{Theme: types.ThemeAuto}, s.Get(), "store is untouched")
		})
	}
}

func TestPutSettings_TrailingWhitespaceAccepted(t *testing.T) {
	s := settings.NewStore()
	h := newTestRouter(t, s, nil)

	rec, _ := do(t, h, http.MethodPut, "/api/settings", "{\"theme\":\"dark\"}\n  ")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, types.ThemeDark, s.Get().Theme)
}

func TestPutSettings_StoresValuesAsSent(t *testing.T) {
	s := settings.NewStore()
	h := newTestRouter(t, s, nil)

	rec, resp := do(t, h, http.MethodPut, "/api/settings", `{"theme":"sepia","refreshInterval":-5}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, types.Theme("sepia"), resp.Data.Theme)
	assert.Equal(t, types.Int(-5), s.Get().RefreshInterval)
}

func TestSettings_EmptyStringIsAbsent(t *testing.T) {
	s := settings.NewStore()
	s.Set(&types.AppSettings{Language: "de", Theme: types.ThemeDark})
	h := newTestRouter(t, s, nil)

	_, resp := do(t, h, http.MethodPatch, "/api/settings", `{"language":""}`)
	assert.Equal(t, "de", resp.Data.Language, "patch keeps the current language")

	rec, resp := do(t, h, http.MethodPut, "/api/settings", `{"language":""}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, &types.AppSettings{}, resp.Data)
	assert.NotContains(t, rec.Body.String(), `"language"`)
}

func TestStreamRoute(t *testing.T) {
	h := newTestRouter(t, settings.NewStore(), nil)

	rec, _ := do(t, h, http.MethodGet, "/api/settings/stream", "")
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestScanProgress(t *testing.T) {
	scans := &ScanSourceMock{GetScanProgressFunc: func(ctx context.Context, scanID string) (*types.ScanProgress, error) {
		if scanID != "scan1" {
			return nil, apperrors.ErrNotFound
		}
		return &types.ScanProgress{Percentage: 40, Status: types.ScanRunning}, nil
	}}
	h := newTestRouter(t, settings.NewStore(), scans)

	req := httptest.NewRequest(http.MethodGet, "/api/scans/scan1/progress", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp types.ApiResponse[types.ScanProgress]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 40, resp.Data.Percentage)
	assert.Equal(t, types.ScanRunning, resp.Data.Status)

	req = httptest.NewRequest(http.MethodGet, "/api/scans/missing/progress", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), apperrors.ErrNotFound.Message)
}
