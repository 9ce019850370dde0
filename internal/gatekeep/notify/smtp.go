package notify

import (
	"context"
	"fmt"
	htmltemplate "html/template"
	"log/slog"
	"text/template"
	"time"

	"github.com/wneessen/go-mail"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// TLS requires STARTTLS when true and disables it otherwise.
	TLS     bool
	Timeout time.Duration
}

type codeData struct {
	Code    string
	Minutes int
}

var (
	textBody = template.Must(template.New("text").Parse(
		"Your verification code is {{.Code}}.\n\n" +
			"It expires in {{.Minutes}} minutes. If you did not request it you can ignore this email.\n"))

	htmlBody = htmltemplate.Must(htmltemplate.New("html").Parse(
		`<p>Your verification code is <strong>{{.Code}}</strong>.</p>` +
			`<p>It expires in {{.Minutes}} minutes. If you did not request it you can ignore this email.</p>`))
)

// SMTPDispatcher sends codes by email through go-mail.
type SMTPDispatcher struct {
	cfg    SMTPConfig
	client *mail.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewSMTPDispatcher builds the mail client. No connection is made until
// the first SendCode. ttl is only used to tell the recipient how long the
// code lasts.
func NewSMTPDispatcher(cfg SMTPConfig, ttl time.Duration, logger *slog.Logger) (*SMTPDispatcher, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTimeout(cfg.Timeout),
	}
	if cfg.Username != "" && cfg.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	if cfg.TLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail client: %w", err)
	}
	return &SMTPDispatcher{cfg: cfg, client: client, ttl: ttl, logger: logger}, nil
}

func (d *SMTPDispatcher) SendCode(ctx context.Context, email, code string) error {
	msg, err := d.message(email, code)
	if err != nil {
		return err
	}

	if err := d.client.DialAndSendWithContext(ctx, msg); err != nil {
		d.logger.ErrorContext(ctx, "failed to send code email",
			slog.String("to", MaskEmail(email)),
			slog.Any("error", err),
		)
		return fmt.Errorf("failed to send email: %w", err)
	}

	d.logger.InfoContext(ctx, "code email sent", slog.String("to", MaskEmail(email)))
	return nil
}

func (d *SMTPDispatcher) message(email, code string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(d.cfg.From); err != nil {
		return nil, fmt.Errorf("invalid from address: %w", err)
	}
	if err := msg.To(email); err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject("Your verification code")

	data := codeData{Code: code, Minutes: int(d.ttl / time.Minute)}
	if err := msg.SetBodyTextTemplate(textBody, data); err != nil {
		return nil, fmt.Errorf("failed to render text body: %w", err)
	}
	if err := msg.AddAlternativeHTMLTemplate(htmlBody, data); err != nil {
		return nil, fmt.Errorf("failed to render html body: %w", err)
	}
	return msg, nil
}
