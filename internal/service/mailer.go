// Package service holds outbound integrations: SMTP mail delivery and the
// broker publisher.
package service

import (
	"fmt"
	"log"

	gomail "gopkg.in/gomail.v2"
)

// Mailer sends OTP emails over SMTP. When SMTP is not configured the code is
// logged instead, which is the local-development path; never run that way in
// production.
type Mailer struct {
	dialer *gomail.Dialer
	from   string
}

// NewMailer builds a Mailer. host may be empty to select the log-only
// fallback.
func NewMailer(host string, port int, user, pass, from string) *Mailer {
	m := &Mailer{from: from}
	if m.from == "" {
		m.from = "no-reply@example.com"
	}
	if host != "" && user != "" {
		m.dialer = gomail.NewDialer(host, port, user, pass)
	}
	return m
}

// SendOTP delivers a sign-in code to the address.
func (m *Mailer) SendOTP(email, code string, ttlMinutes int) error {
	if m.dialer == nil {
		log.Printf("[DEV] OTP for %s: %s", email, code)
		return nil
	}
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", email)
	msg.SetHeader("Subject", "Your OTP code")
	msg.SetBody("text/plain", fmt.Sprintf("Your OTP is %s. It expires in %d minutes.", code, ttlMinutes))
	return m.dialer.DialAndSend(msg)
}
