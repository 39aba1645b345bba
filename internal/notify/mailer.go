package notify

import (
	"context"

	"go.uber.org/zap"
)

// EmailMessage is a composed, ready-to-send email.
type EmailMessage struct {
	To       string `json:"to"`
	Subject  string `json:"subject"`
	HTMLBody string `json:"html_body"`
}

// Mailer delivers composed emails. Implementations must treat delivery as
// best-effort; callers log failures and move on.
type Mailer interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// LogMailer writes the composed email to the log instead of delivering it.
// Deployments plug a real transport behind the Mailer interface.
type LogMailer struct {
	from   string
	logger *zap.Logger
}

// NewLogMailer constructs the mailer.
func NewLogMailer(from string, logger *zap.Logger) *LogMailer {
	return &LogMailer{from: from, logger: logger}
}

// Send logs the message.
func (m *LogMailer) Send(_ context.Context, msg EmailMessage) error {
	m.logger.Info("email",
		zap.String("from", m.from),
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
	)
	return nil
}
