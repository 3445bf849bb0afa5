package models

import "time"

// ReadState tracks whether a user has acknowledged an alert.
type ReadState string

const (
	ReadStateUnread ReadState = "unread"
	ReadStateRead   ReadState = "read"
)

// UserAlertState is the per-(user, alert) notification record. Rows are
// materialized lazily on first resolution or first read/snooze action and
// never destroyed; they become inert once the alert is archived or expired.
type UserAlertState struct {
	UserID         UserID     `json:"user_id"`
	AlertID        AlertID    `json:"alert_id"`
	Read           ReadState  `json:"read"`
	ReadAt         *time.Time `json:"read_at,omitempty"`
	SnoozedUntil   *time.Time `json:"snoozed_until,omitempty"`
	LastNotifiedAt *time.Time `json:"last_notified_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// IsSnoozedAt reports whether reminders are suppressed at the given
// instant. The stored timestamp is the first instant of the day after the
// snooze was set, so crossing it re-activates eligibility implicitly.
func (s *UserAlertState) IsSnoozedAt(now time.Time) bool {
	return s.SnoozedUntil != nil && now.Before(*s.SnoozedUntil)
}

// UserAlert pairs an alert with the viewing user's state for the
// user-facing listing.
type UserAlert struct {
	Alert *Alert          `json:"alert"`
	State *UserAlertState `json:"state"`
}
