package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hazyhaar/ingestkit/retry"
)

// Webhook POSTs records as JSON to a URL. Transient failures (network
// errors, 5xx, 429) are retried through the shared executor; other HTTP
// errors fail the delivery immediately.
type Webhook struct {
	url      string
	client   *http.Client
	exec     *retry.Executor
	strategy *retry.Strategy
	wait     retry.Wait
	logger   *slog.Logger
}

// WebhookOption configures a Webhook sink.
type WebhookOption func(*Webhook)

// WithWebhookClient sets a custom HTTP client.
func WithWebhookClient(c *http.Client) WebhookOption {
	return func(w *Webhook) { w.client = c }
}

// WithWebhookStrategy sets the retry budget. Pass nil to disable retries.
func WithWebhookStrategy(s *retry.Strategy) WebhookOption {
	return func(w *Webhook) { w.strategy = s }
}

// WithWebhookWait sets the backoff schedule between delivery attempts.
func WithWebhookWait(wait retry.Wait) WebhookOption {
	return func(w *Webhook) { w.wait = wait }
}

// WithWebhookLogger sets a custom logger.
func WithWebhookLogger(l *slog.Logger) WebhookOption {
	return func(w *Webhook) { w.logger = l }
}

// NewWebhook creates a Webhook sink targeting the given URL.
func NewWebhook(url string, opts ...WebhookOption) *Webhook {
	w := &Webhook{
		url:      url,
		client:   &http.Client{Timeout: 10 * time.Second},
		strategy: &retry.Strategy{MaxTries: 4},
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(w)
	}
	if w.wait == nil {
		w.wait = retry.Expo(time.Second, 30*time.Second)
	}
	w.exec = retry.New(
		retry.WithWait(w.wait),
		retry.RetryIf(isTransient),
		retry.WithLogger(w.logger),
	)
	return w
}

// statusError marks an HTTP status worth retrying or not.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("webhook: status %d", e.code)
}

func isTransient(err error) bool {
	if se, ok := err.(*statusError); ok {
		return se.code >= 500 || se.code == http.StatusTooManyRequests
	}
	// Network-level failures are retryable.
	return true
}

func (w *Webhook) Deliver(ctx context.Context, rec Record) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("webhook: marshal: %w", err)
	}

	return w.exec.Run(ctx, w.strategy, "sink.webhook", func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("webhook: new request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := w.client.Do(req)
		if err != nil {
			return err
		}
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}
		return &statusError{code: resp.StatusCode}
	})
}

func (w *Webhook) Close() error { return nil }
