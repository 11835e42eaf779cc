// Package mailer sends the lifecycle notification emails. Delivery
// failures are logged and never fail the triggering request.
package mailer

import (
	"fmt"
	"net/smtp"

	"go.uber.org/zap"

	"trentora-system/config"
	"trentora-system/internal/logger"
)

type Mailer struct {
	cfg config.SMTPConfig
}

func New(cfg config.SMTPConfig) *Mailer {
	return &Mailer{cfg: cfg}
}

func (m *Mailer) send(to, subject, body string) {
	addr := fmt.Sprintf("%s:%s", m.cfg.Host, m.cfg.Port)
	msg := []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		m.cfg.From, to, subject, body))

	var auth smtp.Auth
	if m.cfg.Username != "" && m.cfg.Password != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{to}, msg); err != nil {
		logger.Get().Error("Failed to send email",
			zap.String("to", to),
			zap.String("subject", subject),
			zap.Error(err))
		return
	}

	logger.Get().Info("Email sent",
		zap.String("to", to),
		zap.String("subject", subject))
}

// SendRegistrationNotice tells the site administrator that a new
// company registration is waiting for review.
func (m *Mailer) SendRegistrationNotice(adminEmail, companyName, applicantEmail string) {
	if adminEmail == "" {
		return
	}
	subject := "New company registration pending approval"
	body := fmt.Sprintf(
		"A new company has registered and is awaiting approval.\n\nCompany: %s\nApplicant: %s\n\nPlease review the registration in the back office.",
		companyName, applicantEmail)
	m.send(adminEmail, subject, body)
}

func (m *Mailer) SendApprovalNotice(to, companyName string) {
	subject := fmt.Sprintf("Your company registration for %s has been approved", companyName)
	body := fmt.Sprintf(
		"Congratulations!\n\nYour company registration for %s has been approved. You can now log in and start placing orders.",
		companyName)
	m.send(to, subject, body)
}

func (m *Mailer) SendRejectionNotice(to, companyName, reason string) {
	subject := fmt.Sprintf("Your company registration for %s has been rejected", companyName)
	body := fmt.Sprintf("We are sorry, but your company registration for %s has been rejected.", companyName)
	if reason != "" {
		body += fmt.Sprintf("\n\nReason: %s", reason)
	}
	body += "\n\nPlease contact the site administrator if you believe this is a mistake."
	m.send(to, subject, body)
}

// SendChildWelcome delivers the generated credentials to a new child
// account. The password travels in plaintext, so the message asks for
// an immediate change.
func (m *Mailer) SendChildWelcome(to, companyName, password string) {
	subject := fmt.Sprintf("Welcome to %s - Your Account", companyName)
	body := fmt.Sprintf(
		"Welcome to %s!\n\nYour account has been created with the following details:\n\nUsername: %s\nPassword: %s\n\nPlease change your password after first login.",
		companyName, to, password)
	m.send(to, subject, body)
}

// SendChildOrderNotice tells a company admin that one of the company's
// child accounts placed an order.
func (m *Mailer) SendChildOrderNotice(adminEmail, childEmail string, orderID int64, total string) {
	subject := fmt.Sprintf("New order #%d from your company account", orderID)
	body := fmt.Sprintf(
		"A new order has been placed by a member of your company.\n\nOrder: #%d\nPlaced by: %s\nTotal: %s",
		orderID, childEmail, total)
	m.send(adminEmail, subject, body)
}
