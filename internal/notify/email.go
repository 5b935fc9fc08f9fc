package notify

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/loan-crm/internal/config"
	"github.com/Dan9191/loan-crm/internal/migration"
)

// Sender handles sending emails via SMTP
type Sender struct {
	cfg    *config.Config
	logger *logrus.Logger
	send   func(e *email.Email) error
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, logger *logrus.Logger) *Sender {
	s := &Sender{cfg: cfg, logger: logger}
	s.send = s.sendSMTP
	return s
}

func (s *Sender) sendSMTP(e *email.Email) error {
	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	var auth smtp.Auth
	if s.cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	}
	return e.Send(addr, auth)
}

// SendMigrationReport mails the lead migration summary to REPORT_EMAIL.
// Recipients may be comma separated.
func (s *Sender) SendMigrationReport(report *migration.Report) error {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	for _, to := range strings.Split(s.cfg.ReportEmail, ",") {
		if to = strings.TrimSpace(to); to != "" {
			e.To = append(e.To, to)
		}
	}
	if len(e.To) == 0 {
		return fmt.Errorf("no report recipients configured")
	}

	e.Subject = fmt.Sprintf("Lead migration: %d migrated, %d skipped", report.LeadsMigrated, len(report.Skipped))
	if len(report.Skipped) > 0 || report.UnlinkedDisbursals > 0 {
		e.Subject += " - attention needed"
	}

	body := "Hello,\n\n" + report.Summary()
	body += "\nBest regards,\nLoan CRM"
	e.Text = []byte(body)

	if err := s.send(e); err != nil {
		s.logger.Errorf("Failed to send migration report to %s: %v", s.cfg.ReportEmail, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Infof("Email sent to %s: %s", s.cfg.ReportEmail, e.Subject)
	return nil
}
