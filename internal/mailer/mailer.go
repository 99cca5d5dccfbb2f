package mailer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SayaAndy/image-gallery/config"
	"github.com/SayaAndy/image-gallery/internal/templatemanager"
	"github.com/SayaAndy/image-gallery/internal/warmer"
	"github.com/SayaAndy/image-gallery/views"
	"github.com/gofiber/fiber/v2"
	"github.com/wneessen/go-mail"
)

const reportTemplate = "warmup-report"

// ReportMailer tells the gallery maintainers which images the scheduled
// warm-up could not probe.
type ReportMailer struct {
	mailClient  *mail.Client
	tm          *templatemanager.TemplateManager
	clientHost  string
	mailAddress string
	publicName  string
	recipients  []string
}

func NewReportMailer(cfg *config.MailConfig) (*ReportMailer, error) {
	tm, err := templatemanager.NewTemplateManager(views.FS, templatemanager.TemplateManagerTemplates{
		Name:  reportTemplate,
		Files: []string{"layouts/general-mail.html", "messages/warmup-report.html"},
	})
	if err != nil {
		return nil, fmt.Errorf("fail to initialize template manager for message templating: %w", err)
	}

	opts := []mail.Option{
		mail.WithSMTPAuth(mail.SMTPAuthAutoDiscover), mail.WithTLSPortPolicy(mail.TLSMandatory),
		mail.WithUsername(cfg.Username), mail.WithPassword(cfg.Password),
	}
	if cfg.MailPort > 0 {
		opts = append(opts, mail.WithPort(cfg.MailPort))
	}

	mailClient, err := mail.NewClient(cfg.MailHost, opts...)
	if err != nil {
		return nil, fmt.Errorf("fail to initialize mail client: %w", err)
	}

	return &ReportMailer{
		mailClient:  mailClient,
		tm:          tm,
		clientHost:  cfg.ClientHost,
		mailAddress: cfg.MailAddress,
		publicName:  cfg.PublicName,
		recipients:  cfg.Recipients,
	}, nil
}

// SendReport mails the report when some images failed. A clean run sends nothing.
func (m *ReportMailer) SendReport(ctx context.Context, report warmer.Report) error {
	if report.Failed == 0 {
		slog.Debug("warm-up report has no failures, not sending it")
		return nil
	}

	message, err := m.Message(report)
	if err != nil {
		return err
	}

	if err = m.mailClient.DialAndSendWithContext(ctx, message); err != nil {
		return fmt.Errorf("failed to send warm-up report: %w", err)
	}
	slog.Debug("warm-up report successfully delivered", slog.Int("recipients", len(m.recipients)), slog.Int("failed", report.Failed))
	return nil
}

func (m *ReportMailer) Message(report warmer.Report) (*mail.Msg, error) {
	message := mail.NewMsg()

	if err := message.EnvelopeFrom(m.mailAddress); err != nil {
		return nil, fmt.Errorf("failed to set ENVELOPE FROM address: %w", err)
	}
	if err := message.FromFormat(m.publicName, m.mailAddress); err != nil {
		return nil, fmt.Errorf("failed to set formatted FROM address: %w", err)
	}
	if err := message.To(m.recipients...); err != nil {
		return nil, fmt.Errorf("failed to set TO address: %w", err)
	}

	message.SetMessageID()
	message.SetDate()
	message.Subject(fmt.Sprintf("Gallery warm-up: %d of %d images failed", report.Failed, report.Images))

	body, err := m.render(report)
	if err != nil {
		return nil, err
	}
	message.SetBodyString(mail.TypeTextHTML, string(body))
	return message, nil
}

func (m *ReportMailer) render(report warmer.Report) ([]byte, error) {
	body, err := m.tm.Render(reportTemplate, fiber.Map{
		"Report":     report,
		"ClientHost": m.clientHost,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render message body: %w", err)
	}
	return body, nil
}
