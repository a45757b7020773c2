// Package mail sends transactional email through Resend. When no API key is
// configured the noop mailer stands in so invites never block membership
// creation.
package mail

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog/log"

	"github.com/promptdeck/promptdeck/internal/domain"
)

const defaultFromAddress = "PromptDeck <noreply@promptdeck.dev>"

type ResendMailer struct {
	client *resend.Client
	from   string
}

type ResendMailerConfig struct {
	APIKey string
	From   string
}

func NewResendMailer(cfg ResendMailerConfig) *ResendMailer {
	from := cfg.From
	if from == "" {
		from = defaultFromAddress
	}

	return &ResendMailer{
		client: resend.NewClient(cfg.APIKey),
		from:   from,
	}
}

func (m *ResendMailer) SendInvite(ctx context.Context, params domain.InviteParams) error {
	subject := fmt.Sprintf("You've been invited to %s on PromptDeck", params.OrganizationName)

	html := fmt.Sprintf(
		"<p>%s invited you to join <strong>%s</strong> on PromptDeck.</p>"+
			"<p>Sign in with this email address to accept the invitation.</p>",
		params.InviterName, params.OrganizationName,
	)

	text := fmt.Sprintf(
		"%s invited you to join %s on PromptDeck. Sign in with this email address to accept the invitation.",
		params.InviterName, params.OrganizationName,
	)

	sendEmailRequest := &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{params.Email},
		Subject: subject,
		Html:    html,
		Text:    text,
	}

	if _, err := m.client.Emails.SendWithContext(ctx, sendEmailRequest); err != nil {
		return fmt.Errorf("failed to send invite email: %w", err)
	}

	return nil
}

// NoopMailer logs invites instead of sending them.
type NoopMailer struct{}

func NewNoopMailer() *NoopMailer {
	return &NoopMailer{}
}

func (m *NoopMailer) SendInvite(ctx context.Context, params domain.InviteParams) error {
	log.Info().
		Str("email", params.Email).
		Str("organization", params.OrganizationName).
		Msg("Mail delivery disabled, skipping invite email")

	return nil
}
