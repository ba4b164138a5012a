// AngelaMos | 2026
// sendgrid.go

package mail

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/carterperez-dev/examprep/internal/config"
)

type SendgridMailer struct {
	client *sendgrid.Client
	from   *sgmail.Email
}

var _ Mailer = (*SendgridMailer)(nil)

func NewSendgridMailer(cfg config.MailConfig) *SendgridMailer {
	return &SendgridMailer{
		client: sendgrid.NewSendClient(cfg.SendgridAPIKey),
		from:   sgmail.NewEmail(cfg.FromName, cfg.FromEmail),
	}
}

func (m *SendgridMailer) Send(ctx context.Context, msg Message) (string, error) {
	res, err := m.client.SendWithContext(ctx, m.prepare(msg))
	if err != nil {
		return "", fmt.Errorf("sendgrid send: %w", err)
	}

	if res.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("sendgrid send: status %d: %s", res.StatusCode, res.Body)
	}

	return messageID(res.Headers), nil
}

func (m *SendgridMailer) prepare(msg Message) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = msg.Subject
	p.AddTos(sgmail.NewEmail(msg.ToName, msg.To))

	v3 := sgmail.NewV3Mail()
	v3.SetFrom(m.from)
	v3.AddPersonalizations(p)

	v3.AddContent(sgmail.NewContent("text/plain", msg.Text))
	if msg.HTML != "" {
		v3.AddContent(sgmail.NewContent("text/html", msg.HTML))
	}

	return v3
}

func messageID(headers map[string][]string) string {
	for _, key := range []string{"X-Message-Id", "X-Message-ID"} {
		if values := headers[key]; len(values) > 0 {
			return values[0]
		}
	}
	return ""
}
