// Package notifier sends statement and overdue notices over SMTP.
package notifier

import (
	"fmt"
	"net/smtp"

	"github.com/jordan-wright/email"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/cardcore/billing-service/internal/config"
	"github.com/cardcore/billing-service/internal/models"
)

// Sender handles sending emails via SMTP
type Sender struct {
	cfg    *config.Config
	logger *logrus.Logger
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, logger *logrus.Logger) *Sender {
	return &Sender{
		cfg:    cfg,
		logger: logger,
	}
}

// StatementClosed sends the end-of-cycle statement notice.
func (s *Sender) StatementClosed(to string, cycle *models.BillingCycle) error {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{to}
	e.Subject = fmt.Sprintf("Your Statement for Billing Cycle %d", cycle.CycleNumber)

	body := fmt.Sprintf(
		"Your billing cycle %s - %s has closed.\n\n"+
			"Statement balance: %s\n"+
			"Interest charged:  %s\n"+
			"Fees charged:      %s\n"+
			"Minimum payment:   %s\n"+
			"Payment due:       %s\n",
		cycle.StartDate.Format("2006-01-02"),
		cycle.EndDate.AddDate(0, 0, -1).Format("2006-01-02"),
		cycle.EndingBalance.StringFixed(2),
		cycle.InterestCharged.StringFixed(2),
		cycle.FeesCharged.StringFixed(2),
		cycle.MinimumPayment.StringFixed(2),
		cycle.DueDate.Format("2006-01-02"),
	)
	if cycle.IsPaid() {
		body += "\nNo payment is due this cycle.\n"
	}
	body += "\nBest regards,\nCard Services"
	e.Text = []byte(body)

	return s.send(e, to)
}

// PaymentOverdue sends the past-due notice, including the late fee that was
// applied.
func (s *Sender) PaymentOverdue(to string, cycle *models.BillingCycle, lateFee decimal.Decimal) error {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{to}
	e.Subject = "Overdue Payment Notification"

	body := fmt.Sprintf(
		"Your minimum payment of %s was due on %s and is now overdue.\n",
		cycle.RemainingMinimum().StringFixed(2),
		cycle.DueDate.Format("2006-01-02"),
	)
	if lateFee.IsPositive() {
		body += fmt.Sprintf("A late fee of %s has been applied to your account.\n", lateFee.StringFixed(2))
	}
	body += "Please make the payment as soon as possible to avoid further charges.\n" +
		"\nBest regards,\nCard Services"
	e.Text = []byte(body)

	return s.send(e, to)
}

func (s *Sender) send(e *email.Email, to string) error {
	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	auth := smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	if err := e.Send(addr, auth); err != nil {
		s.logger.Errorf("Failed to send email to %s: %v", to, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Infof("Email sent to %s: %s", to, e.Subject)
	return nil
}
