package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// setupMockMailAPI создаёт mock почтового API с указанным обработчиком.
func setupMockMailAPI(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewWithHTTPClient(server.URL+"/", "re_test_key", server.Client(), testLogger())
}

func testMessage() Message {
	return Message{
		From:    "Site <noreply@example.com>",
		To:      []string{"owner@example.com"},
		Subject: "New contact from Jo",
		HTML:    "<p>hi</p>",
		ReplyTo: "jo@x.com",
	}
}

func TestClient_Send(t *testing.T) {
	var received Message
	requests := 0

	client := setupMockMailAPI(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
		if r.Method != http.MethodPost || r.URL.Path != "/emails" {
			t.Errorf("неожиданный запрос %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer re_test_key" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("Content-Type = %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("декодирование тела: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"49a3999c-0ce1-4ea6-ab68-afcd6dc2e794"}`))
	})

	id, err := client.Send(context.Background(), testMessage())
	if err != nil {
		t.Fatalf("Send() ошибка: %v", err)
	}
	if id != "49a3999c-0ce1-4ea6-ab68-afcd6dc2e794" {
		t.Errorf("id = %q", id)
	}
	if requests != 1 {
		t.Errorf("ожидался 1 запрос, было %d", requests)
	}
	if received.Subject != "New contact from Jo" || received.ReplyTo != "jo@x.com" || received.HTML != "<p>hi</p>" {
		t.Errorf("получено письмо %+v", received)
	}
}

func TestClient_Send_APIErrorPassthrough(t *testing.T) {
	client := setupMockMailAPI(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"statusCode":422,"name":"validation_error","message":"The example.com domain is not verified."}`))
	})

	_, err := client.Send(context.Background(), testMessage())

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("ожидался *APIError, получено %v", err)
	}
	if apiErr.Error() != "The example.com domain is not verified." {
		t.Errorf("сообщение изменено: %q", apiErr.Error())
	}
	if apiErr.Status != http.StatusUnprocessableEntity || apiErr.Name != "validation_error" {
		t.Errorf("APIError = %+v", apiErr)
	}
}

func TestClient_Send_PlainTextError(t *testing.T) {
	client := setupMockMailAPI(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("bad gateway"))
	})

	_, err := client.Send(context.Background(), testMessage())
	if err == nil || err.Error() != "bad gateway" {
		t.Errorf("ожидалась ошибка 'bad gateway', получено %v", err)
	}
}

func TestClient_Send_NoRecipients(t *testing.T) {
	requests := 0
	client := setupMockMailAPI(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
	})

	msg := testMessage()
	msg.To = nil
	if _, err := client.Send(context.Background(), msg); err == nil {
		t.Fatal("ожидалась ошибка без получателей")
	}
	if requests != 0 {
		t.Errorf("запрос не должен отправляться, было %d", requests)
	}
}

func TestClient_Send_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := NewWithHTTPClient(url, "k", http.DefaultClient, testLogger())
	_, err := client.Send(context.Background(), testMessage())
	if err == nil {
		t.Fatal("ожидалась сетевая ошибка")
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		t.Error("сетевая ошибка не должна быть APIError")
	}
}

func TestClient_CheckReady(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   string
	}{
		{"доступен", http.StatusOK, "ok"},
		{"неверный ключ", http.StatusUnauthorized, "degraded"},
		{"ошибка сервера", http.StatusInternalServerError, "fail"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := setupMockMailAPI(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})
			if got, msg := client.CheckReady(); got != tt.want {
				t.Errorf("CheckReady() = %s (%s), ожидается %s", got, msg, tt.want)
			}
		})
	}
}
