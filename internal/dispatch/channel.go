// Package dispatch fans alert notifications out to the configured
// delivery channels. Delivery is best effort: every attempt is recorded,
// failures are logged and never propagate to the caller.
package dispatch

import (
	"context"

	"github.com/dikshakatiyar/alerting-system/pkg/models"
)

// Channel delivers one notification to one recipient. Implementations
// must honor ctx cancellation; the dispatcher bounds every attempt with
// a deadline.
type Channel interface {
	Name() models.ChannelName
	Deliver(ctx context.Context, alert *models.Alert, user *models.User, kind models.NotificationKind) error
}
