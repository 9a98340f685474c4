// Package mailer renders the account emails and hands them to a Sender.
package mailer

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"strings"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

const (
	SubjectConfirm         = "Confirm your email"
	SubjectPasswordChanged = "Your information was updated"
)

type Message struct {
	To      string
	Subject string
	HTML    string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type Mailer struct {
	sender Sender
}

func New(sender Sender) *Mailer {
	return &Mailer{sender: sender}
}

type templateData struct {
	Username string
	BaseURL  string
	Token    string
}

// SendConfirmation mails a link to the email confirmation endpoint.
func (m *Mailer) SendConfirmation(ctx context.Context, to, username, baseURL, token string) error {
	body, err := render("confirm_email.html", templateData{
		Username: username,
		BaseURL:  strings.TrimRight(baseURL, "/"),
		Token:    token,
	})
	if err != nil {
		return err
	}
	return m.sender.Send(ctx, Message{To: to, Subject: SubjectConfirm, HTML: body})
}

func (m *Mailer) SendPasswordChanged(ctx context.Context, to, username, baseURL string) error {
	body, err := render("password_changed.html", templateData{
		Username: username,
		BaseURL:  strings.TrimRight(baseURL, "/"),
	})
	if err != nil {
		return err
	}
	return m.sender.Send(ctx, Message{To: to, Subject: SubjectPasswordChanged, HTML: body})
}

func render(name string, data templateData) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
