// Package suggestions picks open activities that match a user's favorite
// sports and attaches a short pitch for each one.
package suggestions

import (
	"context"
	"log/slog"
	"strings"

	"github.com/narvanalabs/matchday/internal/models"
)

// MaxSuggestions is the most suggestions returned for one user.
const MaxSuggestions = 3

// Candidate is the part of an activity shared with the text generator.
type Candidate struct {
	ID            string `json:"id"`
	Sport         string `json:"sport"`
	Location      string `json:"location"`
	PlayersNeeded int    `json:"players_needed"`
}

// Pick is one generated suggestion.
type Pick struct {
	ActivityID string `json:"activity_id"`
	Reason     string `json:"reason"`
}

// Generator writes a reason for up to MaxSuggestions of the candidates.
// Implementations may fail; the ranker treats failures as "no suggestions".
type Generator interface {
	Generate(ctx context.Context, preferredSports []string, candidates []Candidate) ([]Pick, error)
}

// Ranker selects candidates and asks a Generator for the reasons.
type Ranker struct {
	generator Generator
	logger    *slog.Logger
}

// NewRanker creates a new Ranker.
func NewRanker(generator Generator, logger *slog.Logger) *Ranker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ranker{
		generator: generator,
		logger:    logger.With("component", "suggestions"),
	}
}

// SelectCandidates returns the open activities whose sport is one of the
// preferred sports, in input order, capped at limit. Sports compare
// case-insensitively.
func SelectCandidates(preferredSports []string, activities []*models.Activity, limit int) []*models.Activity {
	if len(preferredSports) == 0 || len(activities) == 0 || limit <= 0 {
		return nil
	}

	wanted := make(map[string]struct{}, len(preferredSports))
	for _, s := range preferredSports {
		if n := models.NormalizeSport(s); n != "" {
			wanted[n] = struct{}{}
		}
	}

	var out []*models.Activity
	for _, a := range activities {
		if a == nil || a.Status != models.ActivityStatusOpen {
			continue
		}
		if _, ok := wanted[models.NormalizeSport(a.Sport)]; !ok {
			continue
		}
		out = append(out, a)
		if len(out) == limit {
			break
		}
	}
	return out
}

// Suggest returns at most MaxSuggestions suggestions. The generator is not
// called when there are no preferences or no matching activities, and its
// errors degrade to an empty result.
func (r *Ranker) Suggest(ctx context.Context, preferredSports []string, activities []*models.Activity) []models.Suggestion {
	selected := SelectCandidates(preferredSports, activities, MaxSuggestions)
	if len(selected) == 0 || r.generator == nil {
		return []models.Suggestion{}
	}

	known := make(map[string]struct{}, len(selected))
	candidates := make([]Candidate, len(selected))
	for i, a := range selected {
		known[a.ID] = struct{}{}
		candidates[i] = Candidate{
			ID:            a.ID,
			Sport:         a.Sport,
			Location:      a.Location,
			PlayersNeeded: a.PlayersNeeded,
		}
	}

	picks, err := r.generator.Generate(ctx, preferredSports, candidates)
	if err != nil {
		r.logger.Warn("suggestion generator failed", "error", err, "candidates", len(candidates))
		return []models.Suggestion{}
	}

	// The first non-blank reason per candidate wins.
	reasons := make(map[string]string, len(picks))
	for _, p := range picks {
		if _, ok := known[p.ActivityID]; !ok {
			r.logger.Debug("dropping suggestion for unknown activity", "activity_id", p.ActivityID)
			continue
		}
		if _, dup := reasons[p.ActivityID]; dup {
			continue
		}
		if reason := strings.TrimSpace(p.Reason); reason != "" {
			reasons[p.ActivityID] = reason
		}
	}

	// Output follows candidate order, not the generator's.
	out := make([]models.Suggestion, 0, MaxSuggestions)
	for _, a := range selected {
		reason, ok := reasons[a.ID]
		if !ok {
			continue
		}
		out = append(out, models.Suggestion{ActivityID: a.ID, Reason: reason, Activity: a})
		if len(out) == MaxSuggestions {
			break
		}
	}
	return out
}
