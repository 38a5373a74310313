package keycloak

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/solescopeai/site-backend/internal/domain/model"
)

// testLogger создаёт logger для тестов.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// setupMockKeycloak создаёт mock HTTP-сервер Keycloak.
// tokenHandler обрабатывает запросы на получение токена.
// adminHandler обрабатывает запросы к Admin REST API.
func setupMockKeycloak(t *testing.T, tokenHandler, adminHandler http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()

	mux := http.NewServeMux()

	mux.HandleFunc("/realms/site/protocol/openid-connect/token", func(w http.ResponseWriter, r *http.Request) {
		if tokenHandler != nil {
			tokenHandler(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(TokenResponse{
			AccessToken: "test-access-token",
			TokenType:   "Bearer",
			ExpiresIn:   300,
		})
	})

	mux.HandleFunc("/admin/realms/site", func(w http.ResponseWriter, r *http.Request) {
		if adminHandler != nil {
			adminHandler(w, r)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/admin/realms/site/", func(w http.ResponseWriter, r *http.Request) {
		if adminHandler != nil {
			adminHandler(w, r)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client := New(server.URL, "site", "site-provisioner", "test-secret", server.Client(), testLogger())
	return server, client
}

func testIdentity() model.Identity {
	return model.Identity{
		Email:    "Jane@Example.com",
		Password: "s3cret!",
		FullName: "Jane Q Doe",
		UserType: model.UserTypeAdmin,
		Role:     "owner",
	}
}

// TestClient_TokenCaching проверяет кэширование токена.
func TestClient_TokenCaching(t *testing.T) {
	tokenRequests := 0

	_, client := setupMockKeycloak(t,
		func(w http.ResponseWriter, r *http.Request) {
			tokenRequests++
			if err := r.ParseForm(); err != nil || r.PostForm.Get("grant_type") != "client_credentials" {
				t.Errorf("ожидался grant_type=client_credentials")
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(TokenResponse{AccessToken: "cached-token", ExpiresIn: 300})
		},
		nil,
	)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		token, err := client.getToken(ctx)
		if err != nil {
			t.Fatalf("Ошибка получения токена: %v", err)
		}
		if token != "cached-token" {
			t.Errorf("ожидался cached-token, получен %s", token)
		}
	}

	if tokenRequests != 1 {
		t.Errorf("ожидался 1 запрос токена, было %d", tokenRequests)
	}
}

// TestClient_TokenRefresh проверяет обновление токена, истекающего в ближайшие 30s.
func TestClient_TokenRefresh(t *testing.T) {
	tokenRequests := 0

	_, client := setupMockKeycloak(t,
		func(w http.ResponseWriter, r *http.Request) {
			tokenRequests++
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(TokenResponse{AccessToken: "short-token", ExpiresIn: 10})
		},
		nil,
	)

	ctx := context.Background()
	if _, err := client.getToken(ctx); err != nil {
		t.Fatalf("Ошибка получения токена: %v", err)
	}
	if _, err := client.getToken(ctx); err != nil {
		t.Fatalf("Ошибка получения токена: %v", err)
	}

	if tokenRequests != 2 {
		t.Errorf("ожидалось 2 запроса токена, было %d", tokenRequests)
	}
}

// TestClient_TokenError проверяет ошибку получения токена.
func TestClient_TokenError(t *testing.T) {
	_, client := setupMockKeycloak(t,
		func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"unauthorized_client","error_description":"Invalid client secret"}`))
		},
		nil,
	)

	_, err := client.CreateUser(context.Background(), testIdentity())
	if err == nil {
		t.Fatal("ожидалась ошибка")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("ожидался *APIError, получено %T", err)
	}
	if apiErr.Message != "Invalid client secret" {
		t.Errorf("Message = %q", apiErr.Message)
	}
}

func TestClient_CreateUser(t *testing.T) {
	var received userCreateRequest

	_, client := setupMockKeycloak(t, nil,
		func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || r.URL.Path != "/admin/realms/site/users" {
				t.Errorf("неожиданный запрос %s %s", r.Method, r.URL.Path)
			}
			if got := r.Header.Get("Authorization"); got != "Bearer test-access-token" {
				t.Errorf("Authorization = %q", got)
			}
			if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
				t.Errorf("декодирование тела: %v", err)
			}
			w.Header().Set("Location", "http://kc/admin/realms/site/users/5f1c2d3e-0000-4000-8000-000000000001")
			w.WriteHeader(http.StatusCreated)
		},
	)

	id, err := client.CreateUser(context.Background(), testIdentity())
	if err != nil {
		t.Fatalf("CreateUser() ошибка: %v", err)
	}
	if id != "5f1c2d3e-0000-4000-8000-000000000001" {
		t.Errorf("id = %q", id)
	}

	if received.Username != "jane@example.com" {
		t.Errorf("Username = %q, ожидается email в нижнем регистре", received.Username)
	}
	if !received.Enabled || !received.EmailVerified {
		t.Error("пользователь должен быть включён и с подтверждённым email")
	}
	if received.FirstName != "Jane" || received.LastName != "Q Doe" {
		t.Errorf("FirstName/LastName = %q/%q", received.FirstName, received.LastName)
	}
	if got := received.Attributes[AttrUserType]; len(got) != 1 || got[0] != "admin" {
		t.Errorf("атрибут user_type = %v", got)
	}
	if got := received.Attributes[AttrRole]; len(got) != 1 || got[0] != "owner" {
		t.Errorf("атрибут role = %v", got)
	}
	if len(received.Credentials) != 1 || received.Credentials[0].Value != "s3cret!" || received.Credentials[0].Temporary {
		t.Errorf("Credentials = %+v", received.Credentials)
	}
}

func TestClient_CreateUser_ClientWithoutRole(t *testing.T) {
	var received userCreateRequest

	_, client := setupMockKeycloak(t, nil,
		func(w http.ResponseWriter, r *http.Request) {
			json.NewDecoder(r.Body).Decode(&received)
			w.Header().Set("Location", "/admin/realms/site/users/u-2")
			w.WriteHeader(http.StatusCreated)
		},
	)

	identity := testIdentity()
	identity.UserType = model.UserTypeClient
	identity.Role = ""

	if _, err := client.CreateUser(context.Background(), identity); err != nil {
		t.Fatalf("CreateUser() ошибка: %v", err)
	}
	if _, ok := received.Attributes[AttrRole]; ok {
		t.Error("атрибут role не должен передаваться для клиента")
	}
}

func TestClient_CreateUser_Conflict(t *testing.T) {
	_, client := setupMockKeycloak(t, nil,
		func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusConflict)
			w.Write([]byte(`{"errorMessage":"User exists with same username"}`))
		},
	)

	_, err := client.CreateUser(context.Background(), testIdentity())

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("ожидался *APIError, получено %v", err)
	}
	if !apiErr.IsConflict() {
		t.Errorf("Status = %d, ожидается 409", apiErr.Status)
	}
	if apiErr.Message != "User exists with same username" {
		t.Errorf("Message = %q", apiErr.Message)
	}
}

func TestClient_CreateUser_MissingLocation(t *testing.T) {
	_, client := setupMockKeycloak(t, nil,
		func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusCreated)
		},
	)

	_, err := client.CreateUser(context.Background(), testIdentity())
	if err == nil || !strings.Contains(err.Error(), "Location") {
		t.Errorf("ожидалась ошибка об отсутствии Location, получено %v", err)
	}
}

func TestClient_DeleteUser(t *testing.T) {
	var deletedPath string

	_, client := setupMockKeycloak(t, nil,
		func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodDelete {
				t.Errorf("метод = %s, ожидается DELETE", r.Method)
			}
			deletedPath = r.URL.Path
			w.WriteHeader(http.StatusNoContent)
		},
	)

	if err := client.DeleteUser(context.Background(), "u-1"); err != nil {
		t.Fatalf("DeleteUser() ошибка: %v", err)
	}
	if deletedPath != "/admin/realms/site/users/u-1" {
		t.Errorf("путь = %q", deletedPath)
	}
}

func TestClient_DeleteUser_NotFound(t *testing.T) {
	_, client := setupMockKeycloak(t, nil,
		func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"User not found"}`))
		},
	)

	err := client.DeleteUser(context.Background(), "missing")

	var apiErr *APIError
	if !errors.As(err, &apiErr) || !apiErr.IsNotFound() {
		t.Fatalf("ожидался APIError 404, получено %v", err)
	}
	if apiErr.Message != "User not found" {
		t.Errorf("Message = %q", apiErr.Message)
	}
}

func TestClient_CheckReady(t *testing.T) {
	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantStatus string
	}{
		{
			name: "realm включён",
			handler: func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(RealmRepresentation{Realm: "site", Enabled: true})
			},
			wantStatus: "ok",
		},
		{
			name: "realm отключён",
			handler: func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(RealmRepresentation{Realm: "site", Enabled: false})
			},
			wantStatus: "degraded",
		},
		{
			name: "ошибка Keycloak",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusForbidden)
			},
			wantStatus: "fail",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, client := setupMockKeycloak(t, nil, tt.handler)
			status, msg := client.CheckReady()
			if status != tt.wantStatus {
				t.Errorf("CheckReady() = %s (%s), ожидается %s", status, msg, tt.wantStatus)
			}
		})
	}
}

func TestReadAPIError_PlainBody(t *testing.T) {
	rec := httptest.NewRecorder()
	rec.WriteHeader(http.StatusBadGateway)
	rec.WriteString("upstream down")

	apiErr := readAPIError(rec.Result())
	if apiErr.Status != http.StatusBadGateway || apiErr.Message != "upstream down" {
		t.Errorf("readAPIError() = %+v", apiErr)
	}
}

func TestIDFromLocation(t *testing.T) {
	tests := []struct {
		location string
		want     string
		wantErr  bool
	}{
		{"https://kc/admin/realms/site/users/abc", "abc", false},
		{"/users/abc/", "abc", false},
		{"", "", true},
		{"abc", "", true},
	}

	for _, tt := range tests {
		got, err := idFromLocation(tt.location)
		if (err != nil) != tt.wantErr {
			t.Errorf("idFromLocation(%q) ошибка = %v, wantErr %v", tt.location, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("idFromLocation(%q) = %q, ожидается %q", tt.location, got, tt.want)
		}
	}
}
