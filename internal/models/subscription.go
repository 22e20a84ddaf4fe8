package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentState tracks whether a subscription's paid window is open.
type PaymentState string

const (
	PaymentPending PaymentState = "Pending"
	PaymentPaid    PaymentState = "Paid"
	PaymentExpired PaymentState = "Expired"
)

// State is the derived lifecycle state of a subscription. It is computed
// from the record's flags, never stored, so it cannot drift from them.
type State string

const (
	StateRegistered           State = "REGISTERED"
	StateAwaitingVerification State = "AWAITING_VERIFICATION"
	StateVerified             State = "VERIFIED"
	StateActive               State = "ACTIVE"
	StateExpired              State = "EXPIRED"
)

// InviteUnset is the invite_link sentinel before any link has been issued.
const InviteUnset = "UNSET"

// Subscription is one user's paid, time-bounded right to channel access.
// SessionKey holds the Telegram chat id of the verification conversation and
// ChannelMemberID the Telegram user id of the joined member. These are
// different namespaces on the platform and must never share a field.
type Subscription struct {
	ID       uuid.UUID `json:"id" db:"id"`
	FullName string    `json:"full_name" db:"full_name"`
	Email    string    `json:"email" db:"email"`
	Phone    string    `json:"phone" db:"phone"`
	PANCard  string    `json:"pan_card" db:"pan_card"`
	GSTIN    *string   `json:"gstin,omitempty" db:"gstin"`
	State    string    `json:"state" db:"state"`
	DOB      time.Time `json:"dob" db:"dob"`

	PlanName            string  `json:"plan_name" db:"plan_name"`
	PlanPrice           float64 `json:"plan_price" db:"plan_price"`
	PlanDurationMinutes int     `json:"plan_duration_minutes" db:"plan_duration_minutes"`
	AmountPaid          float64 `json:"amount_paid" db:"amount_paid"`

	PaymentState PaymentState `json:"payment_state" db:"payment_state"`
	WindowStart  time.Time    `json:"window_start" db:"window_start"`
	WindowEnd    time.Time    `json:"window_end" db:"window_end"`

	SessionKey      *string `json:"session_key,omitempty" db:"session_key"`
	InviteLink      string  `json:"invite_link" db:"invite_link"`
	InviteConsumed  bool    `json:"invite_consumed" db:"invite_consumed"`
	ChannelMemberID *string `json:"channel_member_id,omitempty" db:"channel_member_id"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// HasLiveInvite reports whether an issued, not yet consumed link is bound.
func (s *Subscription) HasLiveInvite() bool {
	return s.InviteLink != InviteUnset && s.InviteLink != "" && !s.InviteConsumed
}

// DerivedState maps the record's flags to exactly one lifecycle state. The
// derivation is total: every flag combination, including ones the normal
// transitions never produce, resolves deterministically.
func (s *Subscription) DerivedState() State {
	if s.PaymentState == PaymentExpired {
		return StateExpired
	}
	if s.ChannelMemberID != nil && *s.ChannelMemberID != "" {
		return StateActive
	}
	if s.HasLiveInvite() {
		return StateVerified
	}
	if s.SessionKey != nil && *s.SessionKey != "" {
		return StateAwaitingVerification
	}
	return StateRegistered
}

// PlanDuration returns the paid-access window length.
func (s *Subscription) PlanDuration() time.Duration {
	return time.Duration(s.PlanDurationMinutes) * time.Minute
}
