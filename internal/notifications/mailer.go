package notifications

import (
	"context"
	"errors"
	"fmt"
	"strings"

	mail "github.com/wneessen/go-mail"

	"github.com/neomercado/api/internal/domain"
)

// Logger defines the logging contract for mail delivery.
type Logger func(ctx context.Context, event string, fields map[string]any)

// MailerConfig configures the SMTP mailer. An empty Host disables delivery.
type MailerConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Logger   Logger
}

// Mailer sends transactional order email over SMTP. When no host is
// configured every send is a logged no-op, so checkout keeps working in
// environments without mail credentials.
type Mailer struct {
	client *mail.Client
	from   string
	logger Logger
}

// NewMailer constructs a Mailer. It returns a disabled mailer when Host is
// empty.
func NewMailer(cfg MailerConfig) (*Mailer, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		return &Mailer{logger: logger}, nil
	}

	from := strings.TrimSpace(cfg.From)
	if from == "" {
		from = strings.TrimSpace(cfg.Username)
	}
	if from == "" {
		return nil, errors.New("notifications: sender address is required")
	}

	port := cfg.Port
	if port <= 0 {
		port = 587
	}

	opts := []mail.Option{
		mail.WithPort(port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
	}
	if port == 465 {
		opts = append(opts, mail.WithSSL())
	}

	client, err := mail.NewClient(host, opts...)
	if err != nil {
		return nil, fmt.Errorf("notifications: smtp client: %w", err)
	}

	return &Mailer{client: client, from: from, logger: logger}, nil
}

// Enabled reports whether SMTP delivery is configured.
func (m *Mailer) Enabled() bool {
	return m != nil && m.client != nil
}

// OrderReceived emails the order summary with the payment link.
func (m *Mailer) OrderReceived(ctx context.Context, order domain.Order) error {
	return m.send(ctx, order, orderReceivedSubject(order), orderReceivedBody(order))
}

// PaymentConfirmed emails the settlement confirmation.
func (m *Mailer) PaymentConfirmed(ctx context.Context, order domain.Order) error {
	return m.send(ctx, order, paymentConfirmedSubject(order), paymentConfirmedBody(order))
}

func (m *Mailer) send(ctx context.Context, order domain.Order, subject, body string) error {
	if !m.Enabled() {
		m.logger(ctx, "notifications.skipped", map[string]any{
			"orderCode": order.Code,
			"reason":    "smtp not configured",
		})
		return nil
	}

	to := strings.TrimSpace(order.Customer.Email)
	if to == "" {
		return errors.New("notifications: order has no customer email")
	}

	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("notifications: sender: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("notifications: recipient: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, body)

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("notifications: send: %w", err)
	}

	m.logger(ctx, "notifications.sent", map[string]any{
		"orderCode": order.Code,
		"subject":   subject,
	})
	return nil
}
