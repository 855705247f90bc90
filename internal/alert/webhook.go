package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/reimagine/reimagine/internal/webhook"
)

const (
	// clientTimeout is the total request timeout per delivery attempt.
	clientTimeout = 10 * time.Second
	// dialTimeout is the connection timeout.
	dialTimeout = 5 * time.Second

	// maxAttempts bounds retries per event. Alerts are urgent; long backoff
	// schedules belong to durable queues, not an in-process notifier.
	maxAttempts = 3
	// jitterFactor is the ±percentage of jitter applied to delays.
	jitterFactor = 0.2
)

// retryDelays between delivery attempts.
var retryDelays = []time.Duration{
	2 * time.Second,
	10 * time.Second,
}

// WebhookAlerter posts signed alert events to an operator endpoint.
type WebhookAlerter struct {
	url    string
	secret string
	client *http.Client
	logger *slog.Logger
}

// NewWebhook creates a WebhookAlerter for the given endpoint.
func NewWebhook(url, secret string, logger *slog.Logger) *WebhookAlerter {
	return &WebhookAlerter{
		url:    url,
		secret: secret,
		client: newHTTPClient(),
		logger: logger,
	}
}

// newHTTPClient creates an HTTP client configured for alert delivery.
// It has tight timeouts and does not follow redirects.
func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: clientTimeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   dialTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   5 * time.Second,
			ResponseHeaderTimeout: 5 * time.Second,
			MaxIdleConns:          10,
			IdleConnTimeout:       90 * time.Second,
		},
		// Don't follow redirects - security measure
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// Notify delivers the event asynchronously with bounded retries.
// The caller's context is deliberately not propagated: the triggering
// request finishes long before delivery does.
func (a *WebhookAlerter) Notify(_ context.Context, event Event) {
	go a.deliver(event)
}

func (a *WebhookAlerter) deliver(event Event) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	payload, err := json.Marshal(event)
	if err != nil {
		a.logger.Error("alert payload marshal failed",
			slog.String("kind", event.Kind),
			slog.String("error", err.Error()),
		)
		return
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(nextRetryDelay(attempt - 1)):
			case <-ctx.Done():
				lastErr = ctx.Err()
				a.logFailure(event, maxAttempts, lastErr)
				return
			}
		}

		if lastErr = a.post(ctx, payload); lastErr == nil {
			return
		}
	}

	a.logFailure(event, maxAttempts, lastErr)
}

func (a *WebhookAlerter) post(ctx context.Context, payload []byte) error {
	now := time.Now().Unix()
	signature := webhook.GenerateSignature(a.secret, now, payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build alert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(webhook.HeaderSignature, signature)
	req.Header.Set(webhook.HeaderTimestamp, strconv.FormatInt(now, 10))
	req.Header.Set("User-Agent", "Reimagine-Alert/1.0")

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver alert: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("alert endpoint returned status %d", resp.StatusCode)
	}

	return nil
}

func (a *WebhookAlerter) logFailure(event Event, attempts int, err error) {
	a.logger.Error("alert delivery exhausted",
		slog.String("kind", event.Kind),
		slog.String("user_id", event.UserID),
		slog.String("edit_id", event.EditID),
		slog.Int("attempts", attempts),
		slog.String("error", err.Error()),
	)
}

// nextRetryDelay returns the delay before the given 0-indexed retry, with
// ±20% jitter to avoid synchronized retries across instances.
func nextRetryDelay(attemptCount int) time.Duration {
	if attemptCount < 0 {
		attemptCount = 0
	}
	if attemptCount >= len(retryDelays) {
		attemptCount = len(retryDelays) - 1
	}

	base := retryDelays[attemptCount]
	jitterRange := float64(base) * jitterFactor
	jitter := (rand.Float64()*2 - 1) * jitterRange

	return time.Duration(float64(base) + jitter)
}
