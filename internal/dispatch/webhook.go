package dispatch

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"log/slog"

	"github.com/dikshakatiyar/alerting-system/internal/config"
	"github.com/dikshakatiyar/alerting-system/pkg/models"
)

// WebhookChannel posts notifications as JSON to a configured endpoint.
type WebhookChannel struct {
	url    string
	client *http.Client
	log    *slog.Logger
}

type webhookPayload struct {
	AlertID   int64      `json:"alert_id"`
	Kind      string     `json:"kind"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	Severity  string     `json:"severity"`
	UserID    int64      `json:"user_id"`
	UserEmail string     `json:"user_email"`
	UserName  string     `json:"user_name"`
	StartAt   time.Time  `json:"start_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// NewWebhookChannel constructs the webhook channel.
func NewWebhookChannel(cfg config.WebhookChannelConfig, logger *slog.Logger) *WebhookChannel {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: cfg.SkipTLSVerify}, // #nosec G402
	}
	return &WebhookChannel{
		url:    cfg.URL,
		client: &http.Client{Timeout: timeout, Transport: transport},
		log:    logger.With("channel", string(models.ChannelWebhook)),
	}
}

// Name implements Channel.
func (c *WebhookChannel) Name() models.ChannelName {
	return models.ChannelWebhook
}

// Deliver implements Channel by posting one JSON payload per recipient.
func (c *WebhookChannel) Deliver(ctx context.Context, alert *models.Alert, user *models.User, kind models.NotificationKind) error {
	if c.url == "" {
		return fmt.Errorf("webhook url is not configured")
	}
	payload := webhookPayload{
		AlertID:   int64(alert.ID),
		Kind:      string(kind),
		Title:     alert.Title,
		Message:   alert.Message,
		Severity:  string(alert.Severity),
		UserID:    int64(user.ID),
		UserEmail: user.Email,
		UserName:  user.FullName,
		StartAt:   alert.StartAt,
		ExpiresAt: alert.ExpiresAt,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := c.client.Do(request)
	if err != nil {
		return err
	}
	responseBody, readErr := io.ReadAll(response.Body)
	_ = response.Body.Close()
	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		if readErr != nil {
			return fmt.Errorf("webhook returned status %d (body read error: %v)", response.StatusCode, readErr)
		}
		trimmed := strings.TrimSpace(string(responseBody))
		if trimmed == "" {
			trimmed = response.Status
		}
		return fmt.Errorf("webhook returned status %d (%s)", response.StatusCode, trimmed)
	}
	return nil
}
