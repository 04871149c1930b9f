// Package queue defines the delivery events exchanged over the message
// broker and the background consumer that hands them to the SMS/email
// gateways. The request path only ever publishes; it never waits on a
// third-party provider.
package queue

// DeliveryQueueName is the durable queue carrying OTP and transactional
// mail deliveries.
const DeliveryQueueName = "auth.otp.delivery"

// Delivery channels.
const (
	ChannelSMS   = "sms"
	ChannelEmail = "email"
)

// DeliveryEvent is published whenever the auth layer needs to reach a user
// out-of-band: OTP codes, email verification links, password reset links.
type DeliveryEvent struct {
	Channel     string `json:"channel"` // sms | email
	Recipient   string `json:"recipient"`
	Subject     string `json:"subject,omitempty"` // email only
	Body        string `json:"body"`
	Purpose     string `json:"purpose"` // REGISTRATION, PASSWORD_RESET, EMAIL_VERIFICATION
	RequestedAt string `json:"requested_at"`
}
