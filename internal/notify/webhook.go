package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/backend-quotes/internal/resilience"
)

// WebhookNotifier posts signed notifications to an HTTP endpoint.
type WebhookNotifier struct {
	URL    string
	Secret string
	HTTP   *resilience.HTTPClient
	Now    func() time.Time
}

type webhookPayload struct {
	ID         string    `json:"id"`
	Level      Level     `json:"level"`
	Message    string    `json:"message"`
	OccurredAt time.Time `json:"occurredAt"`
}

// NewWebhookNotifier validates the endpoint URL and builds a notifier.
func NewWebhookNotifier(rawURL, secret string, client *resilience.HTTPClient) (*WebhookNotifier, error) {
	if err := validateURL(rawURL); err != nil {
		return nil, err
	}
	if client == nil {
		return nil, errors.New("notify: http client required")
	}
	return &WebhookNotifier{URL: rawURL, Secret: secret, HTTP: client}, nil
}

// Notify implements Notifier.
func (n *WebhookNotifier) Notify(ctx context.Context, level Level, message string) error {
	if n == nil || n.HTTP == nil {
		return nil
	}
	ctx, span := otel.Tracer("notify.Webhook").Start(ctx, "WebhookNotifier.Notify")
	defer span.End()

	now := time.Now
	if n.Now != nil {
		now = n.Now
	}
	occurred := now().UTC()
	id := uuid.NewString()
	body, err := json.Marshal(webhookPayload{ID: id, Level: level, Message: message, OccurredAt: occurred})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	ts := occurred.Unix()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "quotes-api-notify/1.0")
	req.Header.Set("X-Notification-ID", id)
	req.Header.Set("X-Timestamp", strconv.FormatInt(ts, 10))
	req.Header.Set("X-Signature", ComputeSignature(n.Secret, ts, id, body))

	resp, err := n.HTTP.Do(ctx, req)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("notify webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("notify webhook: unexpected status %s", resp.Status)
	}
	return nil
}

// ComputeSignature calculates the webhook signature: HMAC-SHA256 over
// "<ts>.<id>.<body>" keyed with the shared secret.
func ComputeSignature(secret string, ts int64, id string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(strconv.FormatInt(ts, 10)))
	_, _ = mac.Write([]byte("."))
	_, _ = mac.Write([]byte(id))
	_, _ = mac.Write([]byte("."))
	_, _ = mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func validateURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid webhook url: %w", err)
	}
	if parsed.Scheme != "https" && parsed.Scheme != "http" {
		return errors.New("webhook url must be http or https")
	}
	if parsed.Host == "" {
		return errors.New("webhook url must include host")
	}
	if parsed.Scheme == "http" {
		host := parsed.Hostname()
		if host != "localhost" && host != "127.0.0.1" {
			return errors.New("http webhook only allowed for localhost")
		}
	}
	return nil
}
