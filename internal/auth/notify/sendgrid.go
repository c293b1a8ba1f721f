package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/aussiebroadwan/roomstay/internal/auth/domain"
)

// ErrDelivery is returned when the email provider rejects a message.
var ErrDelivery = errors.New("notify: delivery failed")

// SendGridConfig configures the SendGrid sender. Sandbox mode validates
// messages without delivering them.
type SendGridConfig struct {
	APIKey    string `env:"API_KEY"`
	FromEmail string `env:"FROM_EMAIL"`
	FromName  string `env:"FROM_NAME" envDefault:"Roomstay"`
	Sandbox   bool   `env:"SANDBOX"`
}

type mailSender interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// SendGridNotifier delivers email through the SendGrid v3 API.
type SendGridNotifier struct {
	cfg    SendGridConfig
	client mailSender
	now    func() time.Time
}

// NewSendGridNotifier builds a notifier from cfg. APIKey and FromEmail are
// required.
func NewSendGridNotifier(cfg SendGridConfig) (*SendGridNotifier, error) {
	if cfg.APIKey == "" || cfg.FromEmail == "" {
		return nil, errors.New("notify: sendgrid api key and from email are required")
	}
	if cfg.FromName == "" {
		cfg.FromName = "Roomstay"
	}
	return &SendGridNotifier{
		cfg:    cfg,
		client: sendgrid.NewSendClient(cfg.APIKey),
		now:    time.Now,
	}, nil
}

func (n *SendGridNotifier) SendCode(ctx context.Context, email, code, displayName string, purpose domain.Purpose) error {
	msg, err := RenderCode(n.cfg.FromName, displayName, code, purpose, n.now())
	if err != nil {
		return err
	}
	return n.send(ctx, email, displayName, msg)
}

func (n *SendGridNotifier) SendWelcome(ctx context.Context, email, displayName string) error {
	msg, err := RenderWelcome(n.cfg.FromName, displayName, n.now())
	if err != nil {
		return err
	}
	return n.send(ctx, email, displayName, msg)
}

func (n *SendGridNotifier) send(ctx context.Context, email, displayName string, msg Message) error {
	from := mail.NewEmail(n.cfg.FromName, n.cfg.FromEmail)
	to := mail.NewEmail(displayName, email)
	m := mail.NewSingleEmail(from, msg.Subject, to, msg.Text, msg.HTML)

	if n.cfg.Sandbox {
		ms := mail.NewMailSettings()
		ms.SetSandboxMode(mail.NewSetting(true))
		m.MailSettings = ms
	}

	resp, err := n.client.SendWithContext(ctx, m)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%w: sendgrid status %d", ErrDelivery, resp.StatusCode)
	}
	return nil
}
