package engine

import "errors"

// Domain errors returned by engine operations. Callers match them with errors.Is.
var (
	// ErrInvalidState is returned when an operation is not valid for the current status.
	ErrInvalidState = errors.New("operation not valid in current state")
	// ErrUnauthorized is returned when the caller lacks the required role.
	ErrUnauthorized = errors.New("caller is not allowed to perform this operation")
	// ErrAlreadyParticipant is returned when the requester is already part of the activity.
	ErrAlreadyParticipant = errors.New("user is already a participant")
	// ErrDuplicatePending is returned when the requester already has a pending request.
	ErrDuplicatePending = errors.New("user already has a pending request")
	// ErrExternalService is returned when the store or another collaborator fails.
	ErrExternalService = errors.New("external service failure")
	// ErrNotFound is returned when the activity or request does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput is returned when arguments fail validation.
	ErrInvalidInput = errors.New("invalid input")
)

// isDomainError reports whether err already carries one of the engine errors.
func isDomainError(err error) bool {
	for _, target := range []error{
		ErrInvalidState, ErrUnauthorized, ErrAlreadyParticipant,
		ErrDuplicatePending, ErrExternalService, ErrNotFound, ErrInvalidInput,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
