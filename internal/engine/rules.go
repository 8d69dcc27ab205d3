// Package engine enforces the capacity and participation rules of activities.
//
// The functions in this file are pure: they take already loaded records and
// either validate an operation or compute its outcome. Service wraps them in
// store transactions.
package engine

import (
	"fmt"
	"time"

	"github.com/narvanalabs/matchday/internal/models"
	"github.com/narvanalabs/matchday/internal/projection"
)

// DefaultMaxParticipantsPerRequest caps how many people a single request may bring.
const DefaultMaxParticipantsPerRequest = 10

// JoinedCount returns the number of people in the activity: the organizer's own
// seat plus the participant counts of all accepted requests. An accepted request
// from the organizer replaces the implicit seat instead of adding to it.
func JoinedCount(activity *models.Activity, accepted []*models.JoinRequest) int {
	return projection.JoinedCount(projection.Participants(activity, accepted))
}

// RecomputeStatus returns Full when an open activity has reached capacity and
// the current status otherwise. It is idempotent.
func RecomputeStatus(activity *models.Activity, joinedCount int) models.ActivityStatus {
	if activity.Status == models.ActivityStatusOpen && joinedCount >= activity.TotalPlayers {
		return models.ActivityStatusFull
	}
	return activity.Status
}

// CanChat reports whether userID may read and post in the activity's group chat.
func CanChat(activity *models.Activity, userID string) bool {
	if activity == nil || userID == "" {
		return false
	}
	return activity.Status.ChatEnabled() && activity.HasParticipant(userID)
}

// CheckSubmit validates a join request before it is stored.
func CheckSubmit(activity *models.Activity, requesterID string, count, maxPerRequest int, hasPending bool) error {
	if activity.Status != models.ActivityStatusOpen {
		return fmt.Errorf("%w: activity is %s", ErrInvalidState, activity.Status)
	}
	if activity.HasParticipant(requesterID) {
		return ErrAlreadyParticipant
	}
	if hasPending {
		return ErrDuplicatePending
	}
	if maxPerRequest <= 0 {
		maxPerRequest = DefaultMaxParticipantsPerRequest
	}
	if count < 1 || count > maxPerRequest {
		return fmt.Errorf("%w: number of participants must be between 1 and %d", ErrInvalidInput, maxPerRequest)
	}
	return nil
}

// CheckDecide validates an organizer decision on a join request.
func CheckDecide(activity *models.Activity, request *models.JoinRequest, callerID string, decision models.Decision) error {
	if !activity.IsOrganizer(callerID) {
		return ErrUnauthorized
	}
	if !decision.IsValid() {
		return fmt.Errorf("%w: unknown decision %q", ErrInvalidInput, decision)
	}
	if request.ActivityID != activity.ID {
		return fmt.Errorf("%w: request does not belong to activity", ErrNotFound)
	}
	if !request.IsPending() {
		return fmt.Errorf("%w: request is already %s", ErrInvalidState, request.Status)
	}
	if activity.Status.IsTerminal() {
		return fmt.Errorf("%w: activity is %s", ErrInvalidState, activity.Status)
	}
	if decision == models.DecisionAccept && activity.Status != models.ActivityStatusOpen {
		return fmt.Errorf("%w: activity is %s", ErrInvalidState, activity.Status)
	}
	return nil
}

// CheckTransition validates an organizer-initiated status change.
func CheckTransition(activity *models.Activity, callerID string, target models.ActivityStatus) error {
	if !activity.IsOrganizer(callerID) {
		return ErrUnauthorized
	}
	if !activity.Status.CanTransitionTo(target) {
		return fmt.Errorf("%w: cannot move from %s to %s", ErrInvalidState, activity.Status, target)
	}
	return nil
}

// Outcome is the result of applying a decision.
type Outcome struct {
	Activity       *models.Activity
	Request        *models.JoinRequest
	JoinedCount    int
	PreviousStatus models.ActivityStatus
}

// StatusChanged reports whether the decision moved the activity to a new status.
func (o *Outcome) StatusChanged() bool {
	return o.Activity.Status != o.PreviousStatus
}

// ApplyDecision computes the new request and activity state for a validated
// decision. accepted must hold the activity's currently accepted requests in
// acceptance order. The inputs are not modified.
func ApplyDecision(activity *models.Activity, request *models.JoinRequest, decision models.Decision, accepted []*models.JoinRequest, now time.Time) *Outcome {
	act := activity.Clone()
	req := request.Clone()
	req.Status = decision.ResultingStatus()
	req.DecidedAt = &now

	out := &Outcome{
		Activity:       act,
		Request:        req,
		PreviousStatus: activity.Status,
	}

	if decision != models.DecisionAccept {
		out.JoinedCount = JoinedCount(act, accepted)
		return out
	}

	act.AddParticipant(req.RespondentID)
	all := make([]*models.JoinRequest, 0, len(accepted)+1)
	all = append(all, accepted...)
	all = append(all, req)

	out.JoinedCount = JoinedCount(act, all)
	act.Status = RecomputeStatus(act, out.JoinedCount)
	return out
}
