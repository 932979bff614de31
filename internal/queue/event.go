// Package queue defines message payloads exchanged over the message broker
// and the background consumer that turns them into outbound mail.
package queue

// OTPIssuedEvent is published when a sign-in code is generated. Delivery
// happens off the request path: the consumer picks the event up and sends
// the email, so a slow SMTP server never delays the /auth/request-otp
// response.
type OTPIssuedEvent struct {
	Email      string `json:"email"`
	Code       string `json:"code"`
	TTLMinutes int    `json:"ttl_minutes"`
	IssuedAt   string `json:"issued_at"`
}
