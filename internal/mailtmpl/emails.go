package mailtmpl

import (
	"context"

	"github.com/a-h/templ"
)

// ContactView — данные письма о заявке с контактной формы.
type ContactView struct {
	Name              string
	Email             string
	Message           string
	Business          string
	Phone             string
	Service           string
	CallbackRequested bool
	CallbackTime      string
}

// ProposalView — данные письма о запросе коммерческого предложения.
type ProposalView struct {
	Name        string
	Email       string
	Company     string
	Website     string
	Tools       []string
	Automations []string
	Description string
}

// NewsletterView — данные письма о новой подписке.
type NewsletterView struct {
	Email string
}

// Contact — письмо владельцу о новой заявке с контактной формы.
func Contact(v ContactView) templ.Component {
	return layout("New contact form submission", group(
		field("Name", v.Name),
		linkField("Email", "mailto:", v.Email),
		field("Business", v.Business),
		linkField("Phone", "tel:", v.Phone),
		field("Service", v.Service),
		callback(v.CallbackRequested, v.CallbackTime),
		section("Message", v.Message),
	))
}

// callback — блок запроса обратного звонка. Без запроса блок отсутствует.
func callback(requested bool, preferredTime string) templ.Component {
	if !requested {
		return noop
	}
	return component(func(ctx context.Context, h *htmlWriter) {
		h.raw(`<p style="margin:0 0 8px;color:#b45309"><strong>Callback requested</strong></p>`)
		h.render(ctx, field("Preferred time", preferredTime))
	})
}

// Proposal — письмо владельцу о запросе предложения.
func Proposal(v ProposalView) templ.Component {
	return layout("New proposal request", group(
		field("Name", v.Name),
		linkField("Email", "mailto:", v.Email),
		field("Company", v.Company),
		field("Website", v.Website),
		list("Current tools", v.Tools),
		list("Automations of interest", v.Automations),
		section("Project description", v.Description),
	))
}

// Newsletter — письмо владельцу о новой подписке на рассылку.
func Newsletter(v NewsletterView) templ.Component {
	return layout("New newsletter subscriber", group(
		linkField("Email", "mailto:", v.Email),
	))
}
