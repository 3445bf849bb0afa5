package models

import "time"

// AlertID identifies an alert.
type AlertID int64

// AlertSeverity indicates how urgent an alert is.
type AlertSeverity string

const (
	AlertSeverityInfo     AlertSeverity = "info"
	AlertSeverityWarning  AlertSeverity = "warning"
	AlertSeverityCritical AlertSeverity = "critical"
)

// AlertStatus captures the lifecycle state of an alert. Alerts are never
// deleted; archiving is the single terminal transition.
type AlertStatus string

const (
	AlertStatusActive   AlertStatus = "active"
	AlertStatusArchived AlertStatus = "archived"
)

// VisibilityKind selects which audience rule an alert uses.
type VisibilityKind string

const (
	VisibilityOrganization VisibilityKind = "organization"
	VisibilityTeam         VisibilityKind = "team"
	VisibilityUser         VisibilityKind = "user"
)

// Visibility describes who an alert targets. Kind selects the rule;
// TeamIDs/UserIDs carry the payload for the team and user kinds.
type Visibility struct {
	Kind    VisibilityKind `json:"kind"`
	TeamIDs []TeamID       `json:"team_ids,omitempty"`
	UserIDs []UserID       `json:"user_ids,omitempty"`
}

// DefaultReminderInterval is applied when an alert is created without an
// explicit reminder interval.
const DefaultReminderInterval = 2 * time.Hour

// Alert represents an announcement targeted at part of the organization.
type Alert struct {
	ID               AlertID       `json:"id"`
	Title            string        `json:"title"`
	Message          string        `json:"message"`
	Severity         AlertSeverity `json:"severity"`
	CreatedBy        UserID        `json:"created_by"`
	Visibility       Visibility    `json:"visibility"`
	StartAt          time.Time     `json:"start_at"`
	ExpiresAt        *time.Time    `json:"expires_at,omitempty"`
	RemindersEnabled bool          `json:"reminders_enabled"`
	ReminderInterval time.Duration `json:"reminder_interval"`
	Status           AlertStatus   `json:"status"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// IsActiveAt reports whether the alert is live at the given instant:
// not archived and not past its expiry. StartAt is scheduling metadata
// and does not gate activity.
func (a *Alert) IsActiveAt(now time.Time) bool {
	if a.Status != AlertStatusActive {
		return false
	}
	if a.ExpiresAt != nil && !now.Before(*a.ExpiresAt) {
		return false
	}
	return true
}

// CreateAlertRequest defines the payload required to create a new alert.
// StartAt defaults to the creation instant and ReminderInterval to the
// configured default when omitted.
type CreateAlertRequest struct {
	Title            string        `json:"title" validate:"required"`
	Message          string        `json:"message" validate:"required"`
	Severity         AlertSeverity `json:"severity" validate:"required,oneof=info warning critical"`
	CreatedBy        UserID        `json:"created_by" validate:"required"`
	Visibility       Visibility    `json:"visibility"`
	StartAt          *time.Time    `json:"start_at"`
	ExpiresAt        *time.Time    `json:"expires_at"`
	RemindersEnabled bool          `json:"reminders_enabled"`
	ReminderInterval time.Duration `json:"reminder_interval"`
}

// UpdateAlertRequest defines updatable fields for an alert. Nil fields are
// left unchanged; ID, CreatedBy and CreatedAt are immutable.
type UpdateAlertRequest struct {
	Title            *string        `json:"title"`
	Message          *string        `json:"message"`
	Severity         *AlertSeverity `json:"severity"`
	Visibility       *Visibility    `json:"visibility"`
	StartAt          *time.Time     `json:"start_at"`
	ExpiresAt        *time.Time     `json:"expires_at"`
	RemindersEnabled *bool          `json:"reminders_enabled"`
	ReminderInterval *time.Duration `json:"reminder_interval"`
}

// AlertFilter narrows an alert listing. Zero values match everything; Expr
// holds an optional filter expression parsed by the query layer.
type AlertFilter struct {
	Severity       AlertSeverity
	Status         AlertStatus
	VisibilityKind VisibilityKind
	Expr           string
}
