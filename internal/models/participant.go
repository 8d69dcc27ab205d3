package models

// Participant is a derived view of one accepted member of an activity.
// A single participant may stand for several people via ParticipantCount.
type Participant struct {
	UserID           string `json:"user_id"`
	DisplayName      string `json:"display_name"`
	PhotoURL         string `json:"photo_url,omitempty"`
	ParticipantCount int    `json:"participant_count"`
	IsOrganizer      bool   `json:"is_organizer"`
}
