package email

import (
	"fmt"
	"net/smtp"
	"time"

	"github.com/jordan-wright/email"
	"github.com/peerfund/lending-service/internal/config"
	"github.com/sirupsen/logrus"
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

func (s *Sender) send(to, subject, body string) error {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{to}
	e.Subject = subject
	e.Text = []byte(body)

	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	auth := smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	if err := e.Send(addr, auth); err != nil {
		s.logger.Errorf("Failed to send email to %s: %v", to, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Infof("Email sent to %s: %s", to, subject)
	return nil
}

// LoanClaimed notifies the borrower that a lender claimed their request
func (s *Sender) LoanClaimed(to, username string, agreementID int64, amount float64) error {
	body := fmt.Sprintf(
		"Dear %s,\n\n"+
			"A lender has claimed your loan request #%d for %.2f INR.\n"+
			"Review and sign the agreement terms to move forward.\n"+
			"\nBest regards,\n%s",
		username, agreementID, amount, s.cfg.PlatformName,
	)
	return s.send(to, "Your Loan Request Has Been Claimed", body)
}

// LoanActivated notifies the borrower that the loan is live
func (s *Sender) LoanActivated(to, username string, agreementID int64, endDate time.Time) error {
	body := fmt.Sprintf(
		"Dear %s,\n\n"+
			"Loan agreement #%d is now active.\n"+
			"Full repayment is due by %s.\n"+
			"\nBest regards,\n%s",
		username, agreementID, endDate.Format("2006-01-02"), s.cfg.PlatformName,
	)
	return s.send(to, "Loan Agreement Activated", body)
}

// LoanCompleted notifies a party that the loan is fully repaid
func (s *Sender) LoanCompleted(to, username string, agreementID int64) error {
	body := fmt.Sprintf(
		"Dear %s,\n\n"+
			"Loan agreement #%d has been repaid in full and is now closed.\n"+
			"You can now rate your counterparty.\n"+
			"\nBest regards,\n%s",
		username, agreementID, s.cfg.PlatformName,
	)
	return s.send(to, "Loan Completed", body)
}

// LoanDefaulted notifies a party that the loan defaulted
func (s *Sender) LoanDefaulted(to, username string, agreementID int64, remaining float64) error {
	body := fmt.Sprintf(
		"Dear %s,\n\n"+
			"Loan agreement #%d has been marked as defaulted with %.2f INR outstanding.\n"+
			"\nBest regards,\n%s",
		username, agreementID, remaining, s.cfg.PlatformName,
	)
	return s.send(to, "Loan Defaulted", body)
}

// PaymentReminder reminds the borrower of an upcoming repayment deadline
func (s *Sender) PaymentReminder(to, username string, agreementID int64, remaining float64, endDate time.Time) error {
	body := fmt.Sprintf(
		"Dear %s,\n\n"+
			"This is a reminder that %.2f INR is still due on loan agreement #%d.\n"+
			"The repayment deadline is %s. Loans not repaid in full by the deadline\n"+
			"may be marked as defaulted, which lowers your trust score.\n"+
			"\nBest regards,\n%s",
		username, remaining, agreementID, endDate.Format("2006-01-02"), s.cfg.PlatformName,
	)
	return s.send(to, "Upcoming Loan Repayment Reminder", body)
}
