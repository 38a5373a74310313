package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/solescopeai/site-backend/internal/mailer"
)

func newTestNotificationService(sender *fakeSender, throttle *Throttle) *NotificationService {
	return NewNotificationService(sender, "Site <noreply@example.com>", []string{"owner@example.com"}, throttle, testLogger())
}

func dispatchBody(t *testing.T, svc *NotificationService, body string) (*DispatchResult, error) {
	t.Helper()
	n, err := DecodeNotification([]byte(body))
	if err != nil {
		return nil, err
	}
	return svc.Dispatch(context.Background(), "203.0.113.7", n)
}

func TestDispatch_Contact(t *testing.T) {
	sender := &fakeSender{}
	svc := newTestNotificationService(sender, nil)

	res, err := dispatchBody(t, svc, `{"type":"contact","data":{"name":"Jo","email":"jo@x.com","message":"hi"}}`)
	if err != nil {
		t.Fatalf("Dispatch() ошибка: %v", err)
	}
	if res.ID != "email-id-1" {
		t.Errorf("ID = %q", res.ID)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("отправлено %d писем, ожидалось 1", len(sender.sent))
	}

	msg := sender.sent[0]
	if !strings.Contains(msg.Subject, "Jo") {
		t.Errorf("тема не содержит имя: %q", msg.Subject)
	}
	if msg.From != "Site <noreply@example.com>" {
		t.Errorf("From = %q", msg.From)
	}
	if len(msg.To) != 1 || msg.To[0] != "owner@example.com" {
		t.Errorf("To = %v", msg.To)
	}
	if msg.ReplyTo != "jo@x.com" {
		t.Errorf("ReplyTo = %q", msg.ReplyTo)
	}
	if strings.Contains(msg.HTML, "Business") || strings.Contains(msg.HTML, "Phone") {
		t.Error("пустые необязательные блоки попали в письмо")
	}
}

func TestDispatch_ProposalSubject(t *testing.T) {
	sender := &fakeSender{}
	svc := newTestNotificationService(sender, nil)

	_, err := dispatchBody(t, svc,
		`{"type":"proposal","data":{"name":"Ann\r\nBcc: evil@x.com","email":"ann@acme.test","company":"Acme","tools":["HubSpot"]}}`)
	if err != nil {
		t.Fatalf("Dispatch() ошибка: %v", err)
	}

	subject := sender.sent[0].Subject
	if subject != "New proposal request from Ann Bcc: evil@x.com (Acme)" {
		t.Errorf("тема = %q", subject)
	}
	if strings.ContainsAny(subject, "\r\n") {
		t.Error("тема содержит перевод строки")
	}
}

func TestDispatch_Newsletter(t *testing.T) {
	sender := &fakeSender{}
	svc := newTestNotificationService(sender, nil)

	if _, err := dispatchBody(t, svc, `{"type":"newsletter","data":{"email":"sub@x.com"}}`); err != nil {
		t.Fatalf("Dispatch() ошибка: %v", err)
	}
	msg := sender.sent[0]
	if msg.Subject != "New newsletter subscriber: sub@x.com" {
		t.Errorf("тема = %q", msg.Subject)
	}
	if msg.ReplyTo != "" {
		t.Errorf("ReplyTo = %q, ожидалось пусто", msg.ReplyTo)
	}
}

func TestDispatch_RejectedWithoutSending(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{"неизвестный тип", `{"type":"sms","data":{"email":"a@b.c"}}`, "unknown notification type"},
		{"нет типа", `{"data":{"email":"a@b.c"}}`, "unknown notification type"},
		{"некорректный JSON", `{"type":`, "invalid JSON body"},
		{"data не объект", `{"type":"contact","data":"hello"}`, "invalid notification data"},
		{"contact без сообщения", `{"type":"contact","data":{"name":"Jo","email":"jo@x.com"}}`, "message is required"},
		{"contact без имени", `{"type":"contact","data":{"email":"jo@x.com","message":"hi"}}`, "name is required"},
		{"proposal без email", `{"type":"proposal","data":{"name":"Ann"}}`, "email is required"},
		{"newsletter без data", `{"type":"newsletter"}`, "email is required"},
		{"некорректный email", `{"type":"newsletter","data":{"email":"nope"}}`, "email is invalid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &fakeSender{}
			svc := newTestNotificationService(sender, nil)

			_, err := dispatchBody(t, svc, tt.body)
			assertKind(t, err, ErrValidation)
			if err.Error() != tt.wantMsg {
				t.Errorf("сообщение = %q, ожидается %q", err.Error(), tt.wantMsg)
			}
			if len(sender.sent) != 0 {
				t.Errorf("транспорт вызван %d раз", len(sender.sent))
			}
		})
	}
}

func TestDispatch_TransportErrorPassthrough(t *testing.T) {
	sender := &fakeSender{err: &mailer.APIError{Status: 403, Name: "validation_error", Message: "The example.com domain is not verified."}}
	svc := newTestNotificationService(sender, nil)

	_, err := dispatchBody(t, svc, `{"type":"newsletter","data":{"email":"sub@x.com"}}`)

	assertKind(t, err, ErrTransport)
	if err.Error() != "The example.com domain is not verified." {
		t.Errorf("сообщение изменено: %q", err.Error())
	}
	var apiErr *mailer.APIError
	if !errors.As(err, &apiErr) {
		t.Error("причина должна сохраняться")
	}
}

func TestDispatch_Deterministic(t *testing.T) {
	sender := &fakeSender{}
	svc := newTestNotificationService(sender, nil)
	body := `{"type":"contact","data":{"name":"Jo","email":"jo@x.com","message":"hi","phone":"+1","callbackRequested":true,"callbackTime":"9am"}}`

	for i := 0; i < 2; i++ {
		if _, err := dispatchBody(t, svc, body); err != nil {
			t.Fatalf("Dispatch() ошибка: %v", err)
		}
	}
	a, b := sender.sent[0], sender.sent[1]
	if a.HTML != b.HTML || a.Subject != b.Subject {
		t.Error("одинаковый ввод дал разные письма")
	}
}

func TestDispatch_Throttled(t *testing.T) {
	sender := &fakeSender{}
	svc := newTestNotificationService(sender, NewThrottle(1, time.Minute, 100))
	body := `{"type":"newsletter","data":{"email":"sub@x.com"}}`

	if _, err := dispatchBody(t, svc, body); err != nil {
		t.Fatalf("первая отправка: %v", err)
	}
	_, err := dispatchBody(t, svc, body)
	assertKind(t, err, ErrThrottled)
	if len(sender.sent) != 1 {
		t.Errorf("транспорт вызван %d раз, ожидался 1", len(sender.sent))
	}

	// Лимит считается отдельно для каждого клиента
	n, _ := DecodeNotification([]byte(`{"type":"newsletter","data":{"email":"other@x.com"}}`))
	if _, err := svc.Dispatch(context.Background(), "198.51.100.1", n); err != nil {
		t.Errorf("другой клиент ограничен: %v", err)
	}
}
