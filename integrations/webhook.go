package integrations

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/chxlky/lichtrinh/internal/reminder"
	"go.uber.org/zap"
)

// WebhookNotifier posts each reminder as JSON to a fixed URL.
type WebhookNotifier struct {
	Client   *http.Client
	URL      string
	Attempts uint
	Delay    time.Duration
}

func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		Client:   &http.Client{Timeout: 10 * time.Second},
		URL:      url,
		Attempts: 3,
		Delay:    500 * time.Millisecond,
	}
}

func (w *WebhookNotifier) Notify(ctx context.Context, n reminder.Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to encode reminder: %w", err)
	}

	err = retry.Do(
		func() error { return w.post(ctx, body) },
		retry.Context(ctx),
		retry.Attempts(w.Attempts),
		retry.Delay(w.Delay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(attempt uint, err error) {
			zap.L().Warn("Retrying reminder webhook", zap.Uint("attempt", attempt+1), zap.Uint("eventID", n.EventID), zap.Error(err))
		}),
	)
	if err != nil {
		return fmt.Errorf("reminder webhook failed: %w", err)
	}

	zap.L().Debug("Reminder delivered to webhook", zap.Uint("eventID", n.EventID), zap.String("url", w.URL))
	return nil
}

func (w *WebhookNotifier) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(body))
	if err != nil {
		return retry.Unrecoverable(fmt.Errorf("failed to create post request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.Client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send post request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		err := fmt.Errorf("webhook returned non-2xx status: %s, body: %s", resp.Status, string(bodyBytes))
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return retry.Unrecoverable(err)
		}
		return err
	}
	return nil
}
