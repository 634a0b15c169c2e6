// Package notify implements notification delivery sinks.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/Sebdysart/hustlexp-ai-backend-sub009/internal/domain/model"
)

const maxResponseBodyBytes = 4 * 1024

// WebhookSinkOptions groups dependencies for WebhookSink.
type WebhookSinkOptions struct {
	URL        string       // Required: webhook endpoint
	HTTPClient *http.Client // Optional
	Logger     *slog.Logger // Optional
}

// WebhookSink delivers notifications as JSON POSTs to a configured webhook.
type WebhookSink struct {
	url    string
	http   *http.Client
	logger *slog.Logger
}

// NewWebhookSink constructs a WebhookSink.
func NewWebhookSink(opts WebhookSinkOptions) (*WebhookSink, error) {
	if opts.URL == "" {
		return nil, errors.New("webhook URL is required")
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "webhook_sink")
	}

	return &WebhookSink{
		url:    opts.URL,
		http:   hc,
		logger: logger,
	}, nil
}

// Deliver posts one notification to the webhook endpoint.
func (s *WebhookSink) Deliver(ctx context.Context, payload *model.NotificationPayload) error {
	if payload == nil {
		return errors.New("notification payload is required")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyBytes))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	if s.logger != nil {
		s.logger.DebugContext(ctx, "notification delivered",
			"recipient_id", payload.RecipientID,
			"kind", payload.Kind,
		)
	}
	return nil
}

// LogSink is a NotificationSink that only logs. Used when no webhook is
// configured.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink constructs a LogSink.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger.With("component", "log_sink")}
}

// Deliver logs the notification and succeeds.
func (s *LogSink) Deliver(ctx context.Context, payload *model.NotificationPayload) error {
	if payload == nil {
		return errors.New("notification payload is required")
	}

	s.logger.InfoContext(ctx, "notification",
		"recipient_id", payload.RecipientID,
		"kind", payload.Kind,
	)
	return nil
}
