package dispatch

import (
	"context"
	"io"
	"sync"
	"time"

	"log/slog"

	"github.com/benbjohnson/clock"

	"github.com/dikshakatiyar/alerting-system/internal/config"
	"github.com/dikshakatiyar/alerting-system/internal/metrics"
	"github.com/dikshakatiyar/alerting-system/internal/sqlite"
	"github.com/dikshakatiyar/alerting-system/pkg/models"
)

// Options encapsulates the dependencies required to build a Dispatcher.
type Options struct {
	DB       *sqlite.DB
	Clock    clock.Clock
	Logger   *slog.Logger
	Channels config.ChannelsConfig
	// Timeout bounds each channel delivery attempt.
	Timeout time.Duration
}

// Dispatcher fans notifications out to every enabled channel. Channels
// run concurrently and independently; a hung or failing channel never
// blocks the others, and no delivery outcome propagates to the caller.
type Dispatcher struct {
	db       *sqlite.DB
	clock    clock.Clock
	log      *slog.Logger
	channels []Channel
	timeout  time.Duration

	wg sync.WaitGroup
}

// New constructs a Dispatcher with the channels enabled in configuration.
func New(opts Options) (*Dispatcher, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	logger = logger.With("component", "dispatcher")

	clk := opts.Clock
	if clk == nil {
		clk = clock.New()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	var channels []Channel
	if opts.Channels.InApp.Enabled {
		channels = append(channels, NewInAppChannel(opts.DB, clk, logger))
	}
	if opts.Channels.Email.Enabled {
		email, err := NewEmailChannel(opts.Channels.Email, logger)
		if err != nil {
			return nil, err
		}
		channels = append(channels, email)
	}
	if opts.Channels.Webhook.Enabled {
		channels = append(channels, NewWebhookChannel(opts.Channels.Webhook, logger))
	}
	if len(channels) == 0 {
		logger.Warn("no delivery channels enabled; notifications will not be delivered")
	}

	return &Dispatcher{
		db:       opts.DB,
		clock:    clk,
		log:      logger,
		channels: channels,
		timeout:  timeout,
	}, nil
}

// Dispatch sends one notification per (channel, target) pair. It returns
// as soon as the recipients are resolved; deliveries continue in the
// background and outlive the caller's request context.
func (d *Dispatcher) Dispatch(ctx context.Context, alert *models.Alert, targets []models.UserID, kind models.NotificationKind) {
	if len(targets) == 0 || len(d.channels) == 0 {
		return
	}

	users := make([]*models.User, 0, len(targets))
	for _, userID := range targets {
		user, err := d.db.GetUser(ctx, userID)
		if err != nil {
			d.log.Warn("skipping delivery for unresolvable user", "alert_id", alert.ID, "user_id", userID, "error", err)
			continue
		}
		users = append(users, user)
	}
	if len(users) == 0 {
		return
	}
	d.log.Debug("dispatching notification", "alert_id", alert.ID, "kind", kind, "recipients", len(users), "channels", len(d.channels))

	for _, ch := range d.channels {
		d.wg.Add(1)
		go func(ch Channel) {
			defer d.wg.Done()
			d.deliverAll(ch, alert, users, kind)
		}(ch)
	}
}

// Drain blocks until all in-flight deliveries have finished. Called
// during shutdown.
func (d *Dispatcher) Drain() {
	d.wg.Wait()
}

func (d *Dispatcher) deliverAll(ch Channel, alert *models.Alert, users []*models.User, kind models.NotificationKind) {
	for _, user := range users {
		attemptCtx, cancel := context.WithTimeout(context.Background(), d.timeout)
		err := ch.Deliver(attemptCtx, alert, user, kind)
		cancel()
		d.recordAttempt(alert, user, ch.Name(), kind, err)
	}
}

func (d *Dispatcher) recordAttempt(alert *models.Alert, user *models.User, channel models.ChannelName, kind models.NotificationKind, deliverErr error) {
	attempt := &models.DeliveryAttempt{
		AlertID:   alert.ID,
		UserID:    user.ID,
		Channel:   channel,
		Kind:      kind,
		Status:    models.DeliveryStatusSent,
		CreatedAt: d.clock.Now().UTC(),
	}
	if deliverErr != nil {
		attempt.Status = models.DeliveryStatusFailed
		attempt.Error = deliverErr.Error()
		d.log.Warn("delivery failed", "alert_id", alert.ID, "user_id", user.ID, "channel", channel, "kind", kind, "error", deliverErr)
	}
	metrics.RecordDispatchAttempt(string(channel), string(kind), string(attempt.Status))

	recordCtx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	if err := d.db.InsertDeliveryAttempt(recordCtx, attempt); err != nil {
		d.log.Error("failed to record delivery attempt", "alert_id", alert.ID, "user_id", user.ID, "channel", channel, "error", err)
	}
}
