package models

import (
	"errors"
	"fmt"
	"time"
)

// JoinRequestStatus represents the decision state of a join request.
type JoinRequestStatus string

const (
	// JoinRequestStatusPending awaits an organizer decision.
	JoinRequestStatusPending JoinRequestStatus = "pending"
	// JoinRequestStatusAccepted means the respondent is part of the activity.
	JoinRequestStatusAccepted JoinRequestStatus = "accepted"
	// JoinRequestStatusRejected means the organizer declined the request.
	JoinRequestStatusRejected JoinRequestStatus = "rejected"
)

// IsValid returns true if the status is a known join request status.
func (s JoinRequestStatus) IsValid() bool {
	switch s {
	case JoinRequestStatusPending, JoinRequestStatusAccepted, JoinRequestStatusRejected:
		return true
	default:
		return false
	}
}

// IsTerminal returns true once a decision has been recorded.
func (s JoinRequestStatus) IsTerminal() bool {
	return s == JoinRequestStatusAccepted || s == JoinRequestStatusRejected
}

// Decision is the organizer's verdict on a pending join request.
type Decision string

const (
	DecisionAccept Decision = "accept"
	DecisionReject Decision = "reject"
)

// IsValid returns true if the decision is accept or reject.
func (d Decision) IsValid() bool {
	return d == DecisionAccept || d == DecisionReject
}

// ResultingStatus returns the request status a decision produces.
func (d Decision) ResultingStatus() JoinRequestStatus {
	if d == DecisionAccept {
		return JoinRequestStatusAccepted
	}
	return JoinRequestStatusRejected
}

// ParseDecision converts user input into a Decision.
func ParseDecision(raw string) (Decision, error) {
	d := Decision(raw)
	if !d.IsValid() {
		return "", fmt.Errorf("unknown decision %q", raw)
	}
	return d, nil
}

// Validation errors for join requests.
var (
	ErrParticipantCountInvalid = errors.New("number of participants must be at least 1")
	ErrRespondentRequired      = errors.New("respondent is required")
	ErrActivityRequired        = errors.New("activity is required")
	ErrInvalidJoinStatus       = errors.New("invalid join request status")
)

// JoinRequest is one user's request to participate in an activity.
type JoinRequest struct {
	ID                   string            `json:"id"`
	ActivityID           string            `json:"activity_id"`
	RespondentID         string            `json:"respondent_id"`
	RespondentName       string            `json:"respondent_name"`
	RespondentPhotoURL   string            `json:"respondent_photo_url,omitempty"`
	NumberOfParticipants int               `json:"number_of_participants"` // The requester plus guests
	Status               JoinRequestStatus `json:"status"`
	CreatedAt            time.Time         `json:"created_at"`
	DecidedAt            *time.Time        `json:"decided_at,omitempty"`
}

// Validate checks the invariants every stored join request satisfies.
func (r *JoinRequest) Validate() error {
	var errs FieldErrors
	if r.ActivityID == "" {
		errs.add("activity_id", ErrActivityRequired)
	}
	if r.RespondentID == "" {
		errs.add("respondent_id", ErrRespondentRequired)
	}
	if r.NumberOfParticipants < 1 {
		errs.add("number_of_participants", ErrParticipantCountInvalid)
	}
	if !r.Status.IsValid() {
		errs.add("status", ErrInvalidJoinStatus)
	}
	return errs.orNil()
}

// IsPending returns true if no decision has been made yet.
func (r *JoinRequest) IsPending() bool {
	return r.Status == JoinRequestStatusPending
}

// IsAccepted returns true if the organizer accepted the request.
func (r *JoinRequest) IsAccepted() bool {
	return r.Status == JoinRequestStatusAccepted
}

// Clone returns a copy of the request.
func (r *JoinRequest) Clone() *JoinRequest {
	if r == nil {
		return nil
	}
	c := *r
	if r.DecidedAt != nil {
		t := *r.DecidedAt
		c.DecidedAt = &t
	}
	return &c
}
