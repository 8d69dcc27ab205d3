package models

// Suggestion pairs an open activity with a short reason to join it.
type Suggestion struct {
	ActivityID string    `json:"activity_id"`
	Reason     string    `json:"reason"`
	Activity   *Activity `json:"activity,omitempty"`
}
