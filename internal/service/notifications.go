// notifications.go — варианты уведомлений с публичных форм сайта.
// Каждый вариант задаёт проверку полей, тему, reply-to и шаблон письма.
package service

import (
	"encoding/json"
	"strings"

	"github.com/a-h/templ"

	"github.com/solescopeai/site-backend/internal/mailtmpl"
)

// Типы уведомлений.
const (
	NotificationContact    = "contact"
	NotificationProposal   = "proposal"
	NotificationNewsletter = "newsletter"
)

// Notification — уведомление владельцу сайта. Набор вариантов закрыт.
type Notification interface {
	Type() string
	validate() error
	subject() string
	// replyTo — адрес отправителя формы или пусто.
	replyTo() string
	body() templ.Component
}

var notificationTypes = map[string]func() Notification{
	NotificationContact:    func() Notification { return &ContactNotification{} },
	NotificationProposal:   func() Notification { return &ProposalNotification{} },
	NotificationNewsletter: func() Notification { return &NewsletterNotification{} },
}

// DecodeNotification разбирает тело {type, data} в вариант уведомления.
func DecodeNotification(body []byte) (Notification, error) {
	var envelope struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, validationError("invalid JSON body")
	}

	newNotification, ok := notificationTypes[envelope.Type]
	if !ok {
		return nil, validationError("unknown notification type")
	}

	n := newNotification()
	if len(envelope.Data) > 0 && string(envelope.Data) != "null" {
		if err := json.Unmarshal(envelope.Data, n); err != nil {
			return nil, validationError("invalid notification data")
		}
	}
	return n, nil
}

// ContactNotification — заявка с контактной формы.
type ContactNotification struct {
	Name              string `json:"name"`
	Email             string `json:"email"`
	Message           string `json:"message"`
	Business          string `json:"business"`
	Phone             string `json:"phone"`
	Service           string `json:"service"`
	CallbackRequested bool   `json:"callbackRequested"`
	CallbackTime      string `json:"callbackTime"`
}

func (n *ContactNotification) Type() string { return NotificationContact }

func (n *ContactNotification) validate() error {
	n.Name = strings.TrimSpace(n.Name)
	n.Email = strings.TrimSpace(n.Email)
	if err := requireFields(
		requiredField{"name", n.Name},
		requiredField{"email", n.Email},
		requiredField{"message", n.Message},
	); err != nil {
		return err
	}
	return validateEmail(n.Email)
}

func (n *ContactNotification) subject() string {
	return "New contact form submission from " + headerText(n.Name)
}

func (n *ContactNotification) replyTo() string { return n.Email }

func (n *ContactNotification) body() templ.Component {
	return mailtmpl.Contact(mailtmpl.ContactView{
		Name:              n.Name,
		Email:             n.Email,
		Message:           n.Message,
		Business:          n.Business,
		Phone:             n.Phone,
		Service:           n.Service,
		CallbackRequested: n.CallbackRequested,
		CallbackTime:      n.CallbackTime,
	})
}

// ProposalNotification — запрос коммерческого предложения.
type ProposalNotification struct {
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	Company     string   `json:"company"`
	Website     string   `json:"website"`
	Tools       []string `json:"tools"`
	Automations []string `json:"automations"`
	Description string   `json:"description"`
}

func (n *ProposalNotification) Type() string { return NotificationProposal }

func (n *ProposalNotification) validate() error {
	n.Name = strings.TrimSpace(n.Name)
	n.Email = strings.TrimSpace(n.Email)
	if err := requireFields(
		requiredField{"name", n.Name},
		requiredField{"email", n.Email},
	); err != nil {
		return err
	}
	return validateEmail(n.Email)
}

func (n *ProposalNotification) subject() string {
	subject := "New proposal request from " + headerText(n.Name)
	if company := headerText(n.Company); company != "" {
		subject += " (" + company + ")"
	}
	return subject
}

func (n *ProposalNotification) replyTo() string { return n.Email }

func (n *ProposalNotification) body() templ.Component {
	return mailtmpl.Proposal(mailtmpl.ProposalView{
		Name:        n.Name,
		Email:       n.Email,
		Company:     n.Company,
		Website:     n.Website,
		Tools:       n.Tools,
		Automations: n.Automations,
		Description: n.Description,
	})
}

// NewsletterNotification — подписка на рассылку.
type NewsletterNotification struct {
	Email string `json:"email"`
}

func (n *NewsletterNotification) Type() string { return NotificationNewsletter }

func (n *NewsletterNotification) validate() error {
	n.Email = strings.TrimSpace(n.Email)
	if err := requireFields(requiredField{"email", n.Email}); err != nil {
		return err
	}
	return validateEmail(n.Email)
}

func (n *NewsletterNotification) subject() string {
	return "New newsletter subscriber: " + headerText(n.Email)
}

func (n *NewsletterNotification) replyTo() string { return "" }

func (n *NewsletterNotification) body() templ.Component {
	return mailtmpl.Newsletter(mailtmpl.NewsletterView{Email: n.Email})
}

// headerText сворачивает пробельные символы, включая переводы строк, в один пробел.
func headerText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
