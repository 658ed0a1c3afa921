package notification

import (
	"bytes"
	htmltemplate "html/template"
	"strings"
	"text/template"

	"github.com/lgcert/indigene-certificate/internal/event"
)

type messageTemplate struct {
	title    *template.Template
	body     *template.Template
	category string
}

func mustTemplate(title, body, category string) messageTemplate {
	return messageTemplate{
		title:    template.Must(template.New("title").Funcs(funcs).Parse(title)),
		body:     template.Must(template.New("body").Funcs(funcs).Parse(body)),
		category: category,
	}
}

var funcs = template.FuncMap{
	"label": recordLabel,
	"title": func(s string) string {
		return strings.ToUpper(s[:1]) + strings.ReplaceAll(s[1:], "_", " ")
	},
	"words": func(s string) string { return strings.ReplaceAll(s, "_", " ") },
}

var templates = map[event.Type]messageTemplate{
	event.ApplicationSubmitted: mustTemplate(
		`{{title (label .RecordType)}} received`,
		`Your {{label .RecordType}} {{.Reference}} has been received and is awaiting payment and review.`,
		"submission",
	),
	event.StatusChanged: mustTemplate(
		`{{title (label .RecordType)}} {{words .Status}}`,
		`Your {{label .RecordType}} {{.Reference}} is now {{words .Status}}.{{if .Note}} Note from the reviewer: {{.Note}}{{end}}`,
		"status",
	),
	event.PaymentVerified: mustTemplate(
		`Payment received`,
		`We received your payment of {{printf "%.2f" .Amount}} for {{label .RecordType}} {{.Reference}}.`,
		"payment",
	),
	event.CertificateIssued: mustTemplate(
		`Certificate issued`,
		`Your indigene certificate {{.CertificateID}} has been issued{{if .HolderName}} to {{.HolderName}}{{end}}. You can download it from your dashboard.`,
		"certificate",
	),
}

var adminTemplate = mustTemplate(
	`New {{label .RecordType}} {{.Reference}}`,
	`{{if .HolderName}}{{.HolderName}} submitted{{else}}A resident submitted{{end}} {{label .RecordType}} {{.Reference}} for review.`,
	"review",
)

var emailLayout = htmltemplate.Must(htmltemplate.New("email").Parse(`<!doctype html>
<html><body style="font-family:Arial,sans-serif">
<h2>{{.Title}}</h2>
<p>{{.Body}}</p>
<p style="color:#666;font-size:12px">Local Government Indigene Certificate Portal</p>
</body></html>`))

func recordLabel(recordType string) string {
	if recordType == "digitization" {
		return "digitization request"
	}
	return "application"
}

// Render builds the message for e, or false when the event type is not announced.
func Render(e event.Event) (Message, bool) {
	t, ok := templates[e.Type]
	if !ok {
		return Message{}, false
	}
	return t.render(e)
}

func renderAdmin(e event.Event) (Message, bool) {
	return adminTemplate.render(e)
}

func (t messageTemplate) render(e event.Event) (Message, bool) {
	var title, body bytes.Buffer
	if err := t.title.Execute(&title, e); err != nil {
		return Message{}, false
	}
	if err := t.body.Execute(&body, e); err != nil {
		return Message{}, false
	}
	msg := Message{Title: title.String(), Body: body.String(), Category: t.category}

	var html bytes.Buffer
	if err := emailLayout.Execute(&html, msg); err == nil {
		msg.HTML = html.String()
	}
	return msg, true
}
