// Пакет mailtmpl — HTML-шаблоны транзакционных писем.
// Шаблоны собраны из компонентов templ; пустые необязательные поля
// не порождают разметку. В шаблонах нет времени и случайных значений,
// поэтому одинаковые данные дают побайтно одинаковый HTML.
package mailtmpl

import (
	"context"
	"io"
	"strings"

	"github.com/a-h/templ"
)

// htmlWriter накапливает первую ошибку записи.
type htmlWriter struct {
	w   io.Writer
	err error
}

func (h *htmlWriter) raw(s string) {
	if h.err == nil {
		_, h.err = io.WriteString(h.w, s)
	}
}

func (h *htmlWriter) text(s string) {
	h.raw(templ.EscapeString(s))
}

// multiline экранирует текст и переводит переводы строк в <br>.
func (h *htmlWriter) multiline(s string) {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	for i, line := range lines {
		if i > 0 {
			h.raw("<br>")
		}
		h.text(line)
	}
}

// render выполняет дочерний компонент в тот же поток.
func (h *htmlWriter) render(ctx context.Context, c templ.Component) {
	if h.err == nil {
		h.err = c.Render(ctx, h.w)
	}
}

// component оборачивает функцию записи в templ.Component.
func component(fn func(ctx context.Context, h *htmlWriter)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		fn(ctx, h)
		return h.err
	})
}

// noop — пустой компонент.
var noop = templ.ComponentFunc(func(context.Context, io.Writer) error { return nil })

// layout — общая обёртка письма с заголовком.
func layout(heading string, body templ.Component) templ.Component {
	return component(func(ctx context.Context, h *htmlWriter) {
		h.raw(`<!DOCTYPE html><html><head><meta charset="utf-8"><title>`)
		h.text(heading)
		h.raw(`</title></head><body style="font-family:Arial,sans-serif;color:#1a1a1a;line-height:1.5">`)
		h.raw(`<div style="max-width:600px;margin:0 auto;padding:24px">`)
		h.raw(`<h2 style="margin:0 0 16px">`)
		h.text(heading)
		h.raw(`</h2>`)
		h.render(ctx, body)
		h.raw(`</div></body></html>`)
	})
}

// field — строка «метка: значение». Пустое значение — блок отсутствует.
func field(label, value string) templ.Component {
	value = strings.TrimSpace(value)
	if value == "" {
		return noop
	}
	return component(func(_ context.Context, h *htmlWriter) {
		h.raw(`<p style="margin:0 0 8px"><strong>`)
		h.text(label)
		h.raw(`:</strong> `)
		h.text(value)
		h.raw(`</p>`)
	})
}

// linkField — строка со ссылкой (mailto:, tel:, https:).
func linkField(label, scheme, value string) templ.Component {
	value = strings.TrimSpace(value)
	if value == "" {
		return noop
	}
	return component(func(_ context.Context, h *htmlWriter) {
		h.raw(`<p style="margin:0 0 8px"><strong>`)
		h.text(label)
		h.raw(`:</strong> <a href="`)
		h.text(scheme + value)
		h.raw(`">`)
		h.text(value)
		h.raw(`</a></p>`)
	})
}

// section — многострочный текстовый блок. Пустой текст — блок отсутствует.
func section(title, body string) templ.Component {
	if strings.TrimSpace(body) == "" {
		return noop
	}
	return component(func(_ context.Context, h *htmlWriter) {
		h.raw(`<h3 style="margin:16px 0 8px">`)
		h.text(title)
		h.raw(`</h3><div style="padding:12px;background:#f5f5f5;border-radius:4px">`)
		h.multiline(strings.TrimSpace(body))
		h.raw(`</div>`)
	})
}

// list — маркированный список. Пустые элементы пропускаются,
// без элементов блок отсутствует.
func list(title string, items []string) templ.Component {
	var clean []string
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			clean = append(clean, item)
		}
	}
	if len(clean) == 0 {
		return noop
	}
	return component(func(_ context.Context, h *htmlWriter) {
		h.raw(`<h3 style="margin:16px 0 8px">`)
		h.text(title)
		h.raw(`</h3><ul style="margin:0;padding-left:20px">`)
		for _, item := range clean {
			h.raw(`<li>`)
			h.text(item)
			h.raw(`</li>`)
		}
		h.raw(`</ul>`)
	})
}

// group выводит компоненты подряд.
func group(children ...templ.Component) templ.Component {
	return component(func(ctx context.Context, h *htmlWriter) {
		for _, c := range children {
			h.render(ctx, c)
		}
	})
}

// Render возвращает HTML компонента строкой.
func Render(ctx context.Context, c templ.Component) (string, error) {
	var b strings.Builder
	if err := c.Render(ctx, &b); err != nil {
		return "", err
	}
	return b.String(), nil
}
