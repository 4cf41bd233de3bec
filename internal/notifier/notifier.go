package notifier

import (
	"fmt"
	"time"

	"github.com/ibeckermayer/selectbot/internal/config"
	"github.com/ibeckermayer/selectbot/internal/notifier/providers"
)

// Notifier emails the user when the bot needs them
type Notifier struct {
	sender Sender
	to     string
}

// Sender defines the interface for email sending
type Sender interface {
	Send(to, subject, htmlBody, plainBody string) error
}

// New creates a new notifier with the given sender
func New(sender Sender, to string) *Notifier {
	return &Notifier{sender: sender, to: to}
}

// NewFromConfig creates a notifier based on configuration. It returns nil
// when notifications are disabled.
func NewFromConfig(cfg config.NotifyConfig) (*Notifier, error) {
	var sender Sender

	switch cfg.Provider {
	case "":
		return nil, nil
	case "smtp":
		if cfg.SMTPHost == "" || cfg.ToAddr == "" {
			return nil, fmt.Errorf("smtp notifications need smtp_host and to_addr")
		}
		sender = providers.NewSMTPSender(
			cfg.SMTPHost,
			cfg.SMTPPort,
			cfg.SMTPUser,
			cfg.SMTPPass,
			cfg.FromAddr,
		)
	default:
		return nil, fmt.Errorf("unknown email provider: %s", cfg.Provider)
	}

	return New(sender, cfg.ToAddr), nil
}

// SessionExpired tells the user the X session for username was lost and the
// dashboard needs a new login
func (n *Notifier) SessionExpired(username string, at time.Time) error {
	msg, err := buildMessage(sessionExpiredData{
		Username: username,
		Time:     at.Format("Mon Jan 2 15:04 MST"),
	})
	if err != nil {
		return err
	}
	return n.sender.Send(n.to, msg.Subject, msg.HTMLBody, msg.PlainBody)
}
