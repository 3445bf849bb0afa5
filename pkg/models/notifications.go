package models

import "time"

// NotificationKind distinguishes the first fan-out send from recurring
// reminders.
type NotificationKind string

const (
	NotificationKindInitial  NotificationKind = "initial"
	NotificationKindReminder NotificationKind = "reminder"
)

// ChannelName enumerates the built-in delivery channels.
type ChannelName string

const (
	ChannelInApp   ChannelName = "inapp"
	ChannelEmail   ChannelName = "email"
	ChannelWebhook ChannelName = "webhook"
)

// Notification is an in-app inbox entry written by the in-app channel and
// served by the user-facing read API.
type Notification struct {
	ID        string           `json:"id"`
	UserID    UserID           `json:"user_id"`
	AlertID   AlertID          `json:"alert_id"`
	Kind      NotificationKind `json:"kind"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Severity  AlertSeverity    `json:"severity"`
	CreatedAt time.Time        `json:"created_at"`
}

// DeliveryStatus is the outcome of a single channel attempt.
type DeliveryStatus string

const (
	DeliveryStatusSent   DeliveryStatus = "sent"
	DeliveryStatusFailed DeliveryStatus = "failed"
)

// DeliveryAttempt records one channel delivery attempt for one
// (alert, user) pair. Attempts are bookkeeping only; failures never
// propagate into scheduler results.
type DeliveryAttempt struct {
	ID        int64            `json:"id"`
	AlertID   AlertID          `json:"alert_id"`
	UserID    UserID           `json:"user_id"`
	Channel   ChannelName      `json:"channel"`
	Kind      NotificationKind `json:"kind"`
	Status    DeliveryStatus   `json:"status"`
	Error     string           `json:"error,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}
