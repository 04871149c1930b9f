// Package gateway adapts delivery events to concrete providers. The SMS
// side talks to a generic HTTP JSON gateway; email is handed to the
// environment's mailer and logged when none is configured.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mypharma/pharma-backend/internal/queue"
)

// HTTPSMSGateway posts {api_key, sender_id, to, message} to a generic SMS
// provider endpoint. Non-2xx responses are errors so the consumer's retry
// policy applies.
type HTTPSMSGateway struct {
	URL      string
	APIKey   string
	SenderID string
	Client   *http.Client
}

func (g *HTTPSMSGateway) Send(ctx context.Context, ev queue.DeliveryEvent) error {
	payload := map[string]string{
		"api_key":   g.APIKey,
		"sender_id": g.SenderID,
		"to":        ev.Recipient,
		"message":   ev.Body,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	client := g.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sms gateway returned status %d", resp.StatusCode)
	}
	return nil
}

// HTTPEmailGateway posts {api_key, to, subject, body} to a transactional
// mail provider endpoint. Same error contract as the SMS gateway.
type HTTPEmailGateway struct {
	URL    string
	APIKey string
	Client *http.Client
}

func (g *HTTPEmailGateway) Send(ctx context.Context, ev queue.DeliveryEvent) error {
	payload := map[string]string{
		"api_key": g.APIKey,
		"to":      ev.Recipient,
		"subject": ev.Subject,
		"body":    ev.Body,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	client := g.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("email gateway returned status %d", resp.StatusCode)
	}
	return nil
}

// LogSender writes the delivery to the log instead of sending it. Used for
// either channel when no gateway is configured (the code must still be
// reachable in dev environments).
type LogSender struct {
	Log *zap.Logger
}

func (s *LogSender) Send(_ context.Context, ev queue.DeliveryEvent) error {
	s.Log.Info("delivery (log sender)",
		zap.String("channel", ev.Channel),
		zap.String("recipient", ev.Recipient),
		zap.String("purpose", ev.Purpose),
		zap.String("subject", ev.Subject),
		zap.String("body", ev.Body))
	return nil
}

// Dispatcher routes events to a per-channel sender.
type Dispatcher struct {
	sms   queue.Sender
	email queue.Sender
}

// NewDispatcher builds the production dispatcher. A channel whose gateway
// URL is empty falls back to the log sender.
func NewDispatcher(smsURL, smsAPIKey, senderID, emailURL, emailAPIKey string, log *zap.Logger) *Dispatcher {
	var sms queue.Sender = &LogSender{Log: log}
	if smsURL != "" {
		sms = &HTTPSMSGateway{URL: smsURL, APIKey: smsAPIKey, SenderID: senderID}
	}
	var email queue.Sender = &LogSender{Log: log}
	if emailURL != "" {
		email = &HTTPEmailGateway{URL: emailURL, APIKey: emailAPIKey}
	}
	return &Dispatcher{sms: sms, email: email}
}

func (d *Dispatcher) Send(ctx context.Context, ev queue.DeliveryEvent) error {
	switch ev.Channel {
	case queue.ChannelSMS:
		return d.sms.Send(ctx, ev)
	case queue.ChannelEmail:
		return d.email.Send(ctx, ev)
	default:
		return fmt.Errorf("unknown delivery channel %q", ev.Channel)
	}
}
