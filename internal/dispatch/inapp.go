package dispatch

import (
	"context"
	"fmt"

	"log/slog"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"github.com/dikshakatiyar/alerting-system/internal/sqlite"
	"github.com/dikshakatiyar/alerting-system/pkg/models"
)

// InAppChannel writes notifications into the recipient's inbox table.
type InAppChannel struct {
	db    *sqlite.DB
	clock clock.Clock
	log   *slog.Logger
}

// NewInAppChannel constructs the in-app inbox channel.
func NewInAppChannel(db *sqlite.DB, clk clock.Clock, logger *slog.Logger) *InAppChannel {
	return &InAppChannel{
		db:    db,
		clock: clk,
		log:   logger.With("channel", string(models.ChannelInApp)),
	}
}

// Name implements Channel.
func (c *InAppChannel) Name() models.ChannelName {
	return models.ChannelInApp
}

// Deliver implements Channel by persisting an inbox entry for the user.
func (c *InAppChannel) Deliver(ctx context.Context, alert *models.Alert, user *models.User, kind models.NotificationKind) error {
	notification := &models.Notification{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		AlertID:   alert.ID,
		Kind:      kind,
		Title:     alert.Title,
		Message:   alert.Message,
		Severity:  alert.Severity,
		CreatedAt: c.clock.Now().UTC(),
	}
	if err := c.db.InsertNotification(ctx, notification); err != nil {
		return fmt.Errorf("failed to store in-app notification: %w", err)
	}
	return nil
}
