// Package alert notifies operators when ingestion or embedding degrades.
package alert

import (
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"

	"github.com/soundprediction/studygraph/pkg/config"
	"github.com/soundprediction/studygraph/pkg/utils"
)

// Alerter defines an interface for sending alerts
type Alerter interface {
	Alert(subject, message string) error
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailAlerter implements Alerter using SMTP
type EmailAlerter struct {
	cfg  config.AlertConfig
	send sendFunc
}

// New returns an EmailAlerter when alerting is enabled and has recipients,
// and a NoOpAlerter otherwise.
func New(cfg config.AlertConfig) Alerter {
	if !cfg.Enabled || cfg.SMTPHost == "" || len(cfg.To) == 0 {
		return NoOpAlerter{}
	}
	return NewEmailAlerter(cfg)
}

// NewEmailAlerter creates a new email alerter
func NewEmailAlerter(cfg config.AlertConfig) *EmailAlerter {
	return &EmailAlerter{cfg: cfg, send: smtp.SendMail}
}

// Alert sends an email with the given subject and message
func (a *EmailAlerter) Alert(subject, message string) error {
	if !a.cfg.Enabled {
		return nil
	}

	var auth smtp.Auth
	if a.cfg.Username != "" {
		auth = smtp.PlainAuth("", a.cfg.Username, a.cfg.Password, a.cfg.SMTPHost)
	}

	msg := []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: [studygraph] %s\r\n\r\n%s\r\n",
		a.cfg.From, strings.Join(a.cfg.To, ","), subject, message))

	addr := fmt.Sprintf("%s:%d", a.cfg.SMTPHost, a.cfg.SMTPPort)
	if err := a.send(addr, auth, a.cfg.From, a.cfg.To, msg); err != nil {
		return fmt.Errorf("failed to send alert email: %w", err)
	}
	return nil
}

// NoOpAlerter drops every alert.
type NoOpAlerter struct{}

func (NoOpAlerter) Alert(subject, message string) error {
	return nil
}

// Async sends an alert on its own goroutine and logs delivery failures.
func Async(a Alerter, logger *slog.Logger, subject, message string) {
	if a == nil {
		return
	}
	if _, ok := a.(NoOpAlerter); ok {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	utils.SafeGo(func() {
		if err := a.Alert(subject, message); err != nil {
			logger.Warn("Alert delivery failed", "subject", subject, "error", err)
		}
	}, nil)
}
