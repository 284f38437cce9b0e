package settings_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"policydesk-backend/internal/bootstrap"
	"policydesk-backend/internal/settings"
	"policydesk-backend/internal/shared/config"
)

func buildApp(t *testing.T) *bootstrap.App {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Config{
		Port:            "0",
		CORSAllowOrigin: []string{"http://localhost:5173"},
		LocalStoreDir:   t.TempDir(),
		Env:             "dev",
		ObjectStoreType: "local",
	}

	app, err := bootstrap.Build(cfg)
	if err != nil {
		t.Fatalf("bootstrap build: %v", err)
	}
	return app
}

func getSettings(t *testing.T, router http.Handler, agentID string) settings.Settings {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/settings", nil)
	req.Header.Set("X-Agent-Id", agentID)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var st settings.Settings
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatalf("decode settings: %v", err)
	}
	return st
}

func TestGetSettingsReturnsDefaults(t *testing.T) {
	app := buildApp(t)

	st := getSettings(t, app.Router, "agent-1")
	if st.ExportFormat != "pdf" {
		t.Fatalf("expected default export format pdf, got %q", st.ExportFormat)
	}
	if st.Theme != "system" {
		t.Fatalf("expected default theme system, got %q", st.Theme)
	}
	if st.DefaultOptions.DetailLevel != "standard" {
		t.Fatalf("expected standard detail level, got %q", st.DefaultOptions.DetailLevel)
	}
}

func TestPutSettingsRoundTrip(t *testing.T) {
	app := buildApp(t)

	body := bytes.NewBufferString(`{
		"defaultOptions": {"detailLevel": "COMPREHENSIVE", "format": "bullets"},
		"agentName": " Jordan Reyes ",
		"agencyName": "Reyes Insurance Group",
		"agencyEmail": "jordan@reyesinsurance.example",
		"footerNote": "Confidential",
		"exportFormat": "XLSX",
		"theme": "dark"
	}`)
	req := httptest.NewRequest(http.MethodPut, "/api/v1/settings", body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Agent-Id", "agent-1")
	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var saved settings.Settings
	if err := json.NewDecoder(resp.Body).Decode(&saved); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if saved.AgentName != "Jordan Reyes" {
		t.Fatalf("expected trimmed agent name, got %q", saved.AgentName)
	}
	if saved.ExportFormat != "xlsx" {
		t.Fatalf("expected export format folded to xlsx, got %q", saved.ExportFormat)
	}
	if saved.DefaultOptions.DetailLevel != "comprehensive" {
		t.Fatalf("expected detail level folded, got %q", saved.DefaultOptions.DetailLevel)
	}

	fetched := getSettings(t, app.Router, "agent-1")
	if fetched.AgencyName != "Reyes Insurance Group" || fetched.Theme != "dark" {
		t.Fatalf("expected persisted settings, got %+v", fetched)
	}
}

func TestSettingsScopedToAgent(t *testing.T) {
	app := buildApp(t)

	body := bytes.NewBufferString(`{"agencyName": "Reyes Insurance Group"}`)
	req := httptest.NewRequest(http.MethodPut, "/api/v1/settings", body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Agent-Id", "agent-1")
	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	other := getSettings(t, app.Router, "agent-2")
	if other.AgencyName != "" {
		t.Fatalf("expected untouched settings for another agent, got %q", other.AgencyName)
	}
}
