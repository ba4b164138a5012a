// AngelaMos | 2026
// mailer.go

package mail

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/carterperez-dev/examprep/internal/config"
)

type Message struct {
	To      string
	ToName  string
	Subject string
	Text    string
	HTML    string
}

// Mailer delivers a single message synchronously and returns the provider's
// message id. Callers depend on the error to decide whether to roll back.
type Mailer interface {
	Send(ctx context.Context, msg Message) (string, error)
}

func New(cfg config.MailConfig, logger *slog.Logger) (Mailer, error) {
	switch cfg.Provider {
	case ProviderSendgrid:
		return NewSendgridMailer(cfg), nil
	case ProviderLog:
		return NewLogMailer(logger), nil
	default:
		return nil, fmt.Errorf("unknown mail provider %q", cfg.Provider)
	}
}

const (
	ProviderSendgrid = "sendgrid"
	ProviderLog      = "log"
)

// LogMailer writes messages to the log instead of sending them. Only meant
// for local development.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) (string, error) {
	id := "log-" + uuid.New().String()
	m.logger.InfoContext(ctx, "email captured",
		"message_id", id,
		"to", msg.To,
		"subject", msg.Subject,
		"body", msg.Text,
	)
	return id, nil
}
