// Package models provides data structures for the matchday platform.
package models

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// ActivityStatus represents where an activity is in its lifecycle.
type ActivityStatus string

const (
	// ActivityStatusOpen accepts join requests.
	ActivityStatusOpen ActivityStatus = "Open"
	// ActivityStatusFull indicates the joined count reached capacity.
	ActivityStatusFull ActivityStatus = "Full"
	// ActivityStatusClosed indicates the organizer closed the activity.
	ActivityStatusClosed ActivityStatus = "Closed"
	// ActivityStatusCancelled is terminal.
	ActivityStatusCancelled ActivityStatus = "Cancelled"
)

// Capacity limits enforced when an activity is created.
const (
	MinTotalPlayers   = 2
	MaxTotalPlayers   = 50
	MinLocationLength = 3
)

// String returns the string representation of the status.
func (s ActivityStatus) String() string {
	return string(s)
}

// IsValid returns true if the status is one of the known statuses.
func (s ActivityStatus) IsValid() bool {
	switch s {
	case ActivityStatusOpen, ActivityStatusFull, ActivityStatusClosed, ActivityStatusCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal returns true if no further transitions are possible.
func (s ActivityStatus) IsTerminal() bool {
	return s == ActivityStatusCancelled
}

// ChatEnabled returns true if participants may use the group chat in this status.
func (s ActivityStatus) ChatEnabled() bool {
	return s == ActivityStatusFull || s == ActivityStatusClosed
}

// CanTransitionTo reports whether moving from s to next is a legal forward transition.
//
//	Open   -> Full | Closed | Cancelled
//	Full   -> Closed | Cancelled
//	Closed -> Cancelled
func (s ActivityStatus) CanTransitionTo(next ActivityStatus) bool {
	switch s {
	case ActivityStatusOpen:
		return next == ActivityStatusFull || next == ActivityStatusClosed || next == ActivityStatusCancelled
	case ActivityStatusFull:
		return next == ActivityStatusClosed || next == ActivityStatusCancelled
	case ActivityStatusClosed:
		return next == ActivityStatusCancelled
	default:
		return false
	}
}

// ParseActivityStatus converts a stored string into an ActivityStatus.
func ParseActivityStatus(raw string) (ActivityStatus, error) {
	s := ActivityStatus(raw)
	if !s.IsValid() {
		return "", fmt.Errorf("unknown activity status %q", raw)
	}
	return s, nil
}

// Validation errors for activities.
var (
	ErrSportRequired          = errors.New("sport is required")
	ErrLocationTooShort       = errors.New("location must be at least 3 characters")
	ErrScheduledTimeRequired  = errors.New("scheduled time is required")
	ErrTotalPlayersOutOfRange = errors.New("total players must be between 2 and 50")
	ErrPlayersNeededInvalid   = errors.New("players needed must be at least 1 and less than total players")
	ErrOrganizerRequired      = errors.New("organizer is required")
	ErrInvalidActivityStatus  = errors.New("invalid activity status")
)

// Activity is one organized sports event with a participant capacity.
type Activity struct {
	ID                string         `json:"id"`
	OrganizerID       string         `json:"organizer_id"`
	OrganizerName     string         `json:"organizer_name"`
	OrganizerPhotoURL string         `json:"organizer_photo_url,omitempty"`
	Sport             string         `json:"sport"`
	Location          string         `json:"location"`
	ScheduledAt       time.Time      `json:"scheduled_at"`
	TotalPlayers      int            `json:"total_players"`
	PlayersNeeded     int            `json:"players_needed"`
	Status            ActivityStatus `json:"status"`
	ParticipantIDs    []string       `json:"participant_ids"`
	Version           int            `json:"version"` // Optimistic locking version
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// Validate checks the activity fields that must hold for every stored activity.
// It reports every failing field as FieldErrors.
func (a *Activity) Validate() error {
	var errs FieldErrors
	if a.OrganizerID == "" {
		errs.add("organizer_id", ErrOrganizerRequired)
	}
	if strings.TrimSpace(a.Sport) == "" {
		errs.add("sport", ErrSportRequired)
	}
	if len(strings.TrimSpace(a.Location)) < MinLocationLength {
		errs.add("location", ErrLocationTooShort)
	}
	if a.ScheduledAt.IsZero() {
		errs.add("scheduled_at", ErrScheduledTimeRequired)
	}
	if a.TotalPlayers < MinTotalPlayers || a.TotalPlayers > MaxTotalPlayers {
		errs.add("total_players", ErrTotalPlayersOutOfRange)
	}
	if a.PlayersNeeded < 1 || a.PlayersNeeded >= a.TotalPlayers {
		errs.add("players_needed", ErrPlayersNeededInvalid)
	}
	if !a.Status.IsValid() {
		errs.add("status", ErrInvalidActivityStatus)
	}
	return errs.orNil()
}

// IsOrganizer returns true if userID organized the activity.
func (a *Activity) IsOrganizer(userID string) bool {
	return userID != "" && a.OrganizerID == userID
}

// HasParticipant returns true if userID is part of the activity.
// The organizer always counts as a participant.
func (a *Activity) HasParticipant(userID string) bool {
	if userID == "" {
		return false
	}
	return a.IsOrganizer(userID) || slices.Contains(a.ParticipantIDs, userID)
}

// AddParticipant adds userID to the participant set. It returns false if the
// user was already present.
func (a *Activity) AddParticipant(userID string) bool {
	if slices.Contains(a.ParticipantIDs, userID) {
		return false
	}
	a.ParticipantIDs = append(a.ParticipantIDs, userID)
	return true
}

// Clone returns a deep copy of the activity.
func (a *Activity) Clone() *Activity {
	if a == nil {
		return nil
	}
	c := *a
	c.ParticipantIDs = slices.Clone(a.ParticipantIDs)
	return &c
}

// NormalizeSport folds a sport name for comparison.
func NormalizeSport(sport string) string {
	return strings.ToLower(strings.TrimSpace(sport))
}
