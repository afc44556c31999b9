package email

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
)

// TemplateElement is used by a renderer to identify the different parts of an email template.
type TemplateElement string

const (
	ElementSubject TemplateElement = "subject"
	ElementBody    TemplateElement = "body"
)

// Renderer is responsible for rendering email templates.
type Renderer interface {
	Render(w io.Writer, name string, element TemplateElement, data any) error
}

// Sender is responsible for actually sending an email.
type Sender interface {
	Send(ctx context.Context, sender, recipient Address, subject, body string) error
}

// ServiceConfig is the configuration for the Service.
type ServiceConfig struct {
	// From is the sender address used for all outgoing email.
	From Address
	// BaseURL is the public base URL of the app, used to construct
	// links inside emails.
	BaseURL *url.URL
}

// Service provides the main functionality for sending emails.
type Service struct {
	renderer Renderer
	sender   Sender
	cfg      ServiceConfig
}

func NewService(renderer Renderer, sender Sender, cfg ServiceConfig) *Service {
	return &Service{
		renderer: renderer,
		sender:   sender,
		cfg:      cfg,
	}
}

// envelope is the root data passed to email templates.
type envelope struct {
	BaseURL *url.URL
	Data    any
}

// Send renders the named template and sends the result to the recipient.
func (s *Service) Send(ctx context.Context, name string, recipient Address, data any) error {
	env := envelope{
		BaseURL: s.cfg.BaseURL,
		Data:    data,
	}

	var subject strings.Builder
	if err := s.renderer.Render(&subject, name, ElementSubject, env); err != nil {
		return fmt.Errorf("failed to render subject of %q: %w", name, err)
	}

	var body strings.Builder
	if err := s.renderer.Render(&body, name, ElementBody, env); err != nil {
		return fmt.Errorf("failed to render body of %q: %w", name, err)
	}

	err := s.sender.Send(ctx, s.cfg.From, recipient, strings.TrimSpace(subject.String()), body.String())
	if err != nil {
		return fmt.Errorf("failed to send %q email: %w", name, err)
	}

	return nil
}
