// Package projection derives read-side views from activity records.
package projection

import (
	"github.com/narvanalabs/matchday/internal/models"
)

// Participants builds the ordered participant list for an activity.
//
// Only accepted requests contribute. Rows keep the order in which requests are
// supplied. If the organizer has no accepted request of their own, a synthetic
// organizer row with a count of 1 is placed first. If the organizer has several
// accepted requests, only the first one is kept.
func Participants(activity *models.Activity, requests []*models.JoinRequest) []models.Participant {
	if activity == nil {
		return nil
	}

	participants := make([]models.Participant, 0, len(requests)+1)
	organizerSeen := false

	for _, r := range requests {
		if r == nil || !r.IsAccepted() {
			continue
		}
		isOrganizer := r.RespondentID == activity.OrganizerID
		if isOrganizer {
			if organizerSeen {
				continue
			}
			organizerSeen = true
		}
		participants = append(participants, models.Participant{
			UserID:           r.RespondentID,
			DisplayName:      r.RespondentName,
			PhotoURL:         r.RespondentPhotoURL,
			ParticipantCount: r.NumberOfParticipants,
			IsOrganizer:      isOrganizer,
		})
	}

	if !organizerSeen {
		organizer := models.Participant{
			UserID:           activity.OrganizerID,
			DisplayName:      activity.OrganizerName,
			PhotoURL:         activity.OrganizerPhotoURL,
			ParticipantCount: 1,
			IsOrganizer:      true,
		}
		participants = append([]models.Participant{organizer}, participants...)
	}

	return participants
}

// JoinedCount sums the participant counts of a projection.
func JoinedCount(participants []models.Participant) int {
	total := 0
	for _, p := range participants {
		total += p.ParticipantCount
	}
	return total
}
