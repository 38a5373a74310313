package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOverallStatus(t *testing.T) {
	tests := []struct {
		name     string
		statuses []string
		want     string
	}{
		{"все ok", []string{"ok", "ok"}, "ok"},
		{"один degraded", []string{"ok", "degraded"}, "degraded"},
		{"один fail", []string{"degraded", "fail"}, "fail"},
		{"без зависимостей", nil, "ok"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := overallStatus(tt.statuses...); got != tt.want {
				t.Errorf("overallStatus() = %q, ожидается %q", got, tt.want)
			}
		})
	}
}

func TestHealthReady(t *testing.T) {
	tests := []struct {
		name       string
		deps       []Dependency
		wantStatus int
		wantBody   string
	}{
		{
			name: "всё доступно",
			deps: []Dependency{
				{Name: "postgresql", Checker: stubChecker{status: "ok"}},
				{Name: "keycloak", Checker: stubChecker{status: "ok"}},
			},
			wantStatus: http.StatusOK,
			wantBody:   "ok",
		},
		{
			name: "деградация",
			deps: []Dependency{
				{Name: "mail_api", Checker: stubChecker{status: "degraded", message: "медленный ответ"}},
			},
			wantStatus: http.StatusOK,
			wantBody:   "degraded",
		},
		{
			name: "БД недоступна",
			deps: []Dependency{
				{Name: "postgresql", Checker: stubChecker{status: "fail", message: "connection refused"}},
				{Name: "keycloak", Checker: stubChecker{status: "ok"}},
			},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   "fail",
		},
		{
			name:       "не инициализирован",
			deps:       []Dependency{{Name: "postgresql"}},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   "fail",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler("account-provisioner", tt.deps...)
			w := httptest.NewRecorder()
			h.HealthReady(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

			if w.Code != tt.wantStatus {
				t.Errorf("статус = %d, ожидается %d", w.Code, tt.wantStatus)
			}
			var resp healthReadyResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("декодирование: %v", err)
			}
			if resp.Status != tt.wantBody {
				t.Errorf("status = %q, ожидается %q", resp.Status, tt.wantBody)
			}
			if len(resp.Checks) != len(tt.deps) {
				t.Errorf("проверок = %d, ожидается %d", len(resp.Checks), len(tt.deps))
			}
		})
	}
}

func TestHealthLive(t *testing.T) {
	h := NewHealthHandler("notification-dispatcher")
	w := httptest.NewRecorder()
	h.HealthLive(w, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("статус = %d", w.Code)
	}
	var resp healthLiveResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("декодирование: %v", err)
	}
	if resp.Status != "ok" || resp.Service != "notification-dispatcher" {
		t.Errorf("ответ = %+v", resp)
	}
}
