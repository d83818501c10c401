package email

import (
	"context"
	"fmt"
	"html"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

var (
	host     = "https://api.sendgrid.com"
	endpoint = "/v3/mail/send"
)

// EmailService defines the interface for email operations
type EmailService interface {
	// Enabled reports whether messages actually leave the process
	Enabled() bool
	SendNotificationEmail(ctx context.Context, toEmail, toName, subject, message string) error
}

// SendGridConfig holds configuration for the SendGrid API
type SendGridConfig struct {
	APIKey    string
	FromName  string
	FromEmail string
	// SubjectPrefix is prepended to every subject, e.g. "[Assignment Hub] "
	SubjectPrefix string
}

// EmailServiceImpl implements EmailService on top of SendGrid
type EmailServiceImpl struct {
	config SendGridConfig
	from   *sgmail.Email
	logger zerolog.Logger
}

// NewEmailService creates a new EmailService
func NewEmailService(config SendGridConfig, logger zerolog.Logger) EmailService {
	return &EmailServiceImpl{
		config: config,
		from:   sgmail.NewEmail(config.FromName, config.FromEmail),
		logger: logger.With().Str("component", "email").Logger(),
	}
}

func (s *EmailServiceImpl) Enabled() bool {
	return s.config.APIKey != ""
}

// SendNotificationEmail mails a notification. Without an API key the
// message is only logged.
func (s *EmailServiceImpl) SendNotificationEmail(ctx context.Context, toEmail, toName, subject, message string) error {
	if !s.Enabled() {
		s.logger.Debug().
			Str("toEmail", toEmail).
			Str("subject", subject).
			Msg("SendGrid API key not configured - notification email not sent")
		return nil
	}

	body := fmt.Sprintf(`<html>
<body>
	<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
		<h2 style="color: #333;">%s</h2>
		<p>Hello %s,</p>
		<p>%s</p>
		<p>Best regards,<br>%s</p>
	</div>
</body>
</html>`, html.EscapeString(subject), html.EscapeString(toName), html.EscapeString(message), html.EscapeString(s.config.FromName))

	return s.send(ctx, toEmail, toName, subject, message, body)
}

func (s *EmailServiceImpl) prepare(toEmail, toName, subject, text, htmlBody string) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = s.config.SubjectPrefix + subject
	p.AddTos(sgmail.NewEmail(toName, toEmail))

	m := sgmail.NewV3Mail()
	m.SetFrom(s.from)
	m.AddPersonalizations(p)
	m.AddContent(
		sgmail.NewContent("text/plain", text),
		sgmail.NewContent("text/html", htmlBody),
	)
	return m
}

func (s *EmailServiceImpl) send(ctx context.Context, toEmail, toName, subject, text, htmlBody string) error {
	req := sendgrid.GetRequest(s.config.APIKey, endpoint, host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(s.prepare(toEmail, toName, subject, text, htmlBody))

	if err := ctx.Err(); err != nil {
		return err
	}
	res, err := sendgrid.API(req)
	if err != nil {
		s.logger.Error().Err(err).Str("toEmail", toEmail).Msg("Failed to send email")
		return fmt.Errorf("failed to send email: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		s.logger.Error().Int("status", res.StatusCode).Str("body", res.Body).Msg("SendGrid rejected email")
		return fmt.Errorf("sendgrid returned status %d", res.StatusCode)
	}
	return nil
}
