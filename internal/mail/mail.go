// Package mail renders transactional e-mails and hands them to a delivery provider.
package mail

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"strings"

	"github.com/Masterminds/sprig/v3"
)

const TemplateForgotPassword = "forgot_password.html"

//go:embed templates/*.html
var templateFS embed.FS

type Contact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (c Contact) String() string {
	if c.Name == "" {
		return c.Email
	}
	return fmt.Sprintf("%s <%s>", c.Name, c.Email)
}

type Template struct {
	Name      string
	Variables map[string]any
}

type Message struct {
	To       Contact
	From     Contact
	Subject  string
	Template Template
}

// Envelope is a rendered message ready for delivery.
type Envelope struct {
	To      Contact `json:"to"`
	From    Contact `json:"from"`
	Subject string  `json:"subject"`
	HTML    string  `json:"html"`
}

type Provider interface {
	Send(ctx context.Context, msg Message) error
}

type EnvelopeSender interface {
	Deliver(ctx context.Context, env Envelope) error
}

type Renderer struct {
	tmpl        *template.Template
	defaultFrom Contact
}

func NewRenderer(defaultFrom Contact) (*Renderer, error) {
	tmpl, err := template.New("mail").Funcs(sprig.FuncMap()).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse mail templates: %w", err)
	}
	return &Renderer{tmpl: tmpl, defaultFrom: defaultFrom}, nil
}

func (r *Renderer) Render(msg Message) (Envelope, error) {
	if strings.TrimSpace(msg.To.Email) == "" {
		return Envelope{}, errors.New("mail recipient is required")
	}

	var sb strings.Builder
	if err := r.tmpl.ExecuteTemplate(&sb, msg.Template.Name, msg.Template.Variables); err != nil {
		return Envelope{}, fmt.Errorf("render %q: %w", msg.Template.Name, err)
	}

	from := msg.From
	if from.Email == "" {
		from = r.defaultFrom
	}
	return Envelope{To: msg.To, From: from, Subject: msg.Subject, HTML: sb.String()}, nil
}
