package suggestions

import (
	"context"
	"fmt"
	"strings"
)

// TemplateGenerator writes reasons from a fixed template. It is used when no
// text generation endpoint is configured.
type TemplateGenerator struct{}

// Generate returns one templated reason per candidate, up to MaxSuggestions.
func (TemplateGenerator) Generate(ctx context.Context, preferredSports []string, candidates []Candidate) ([]Pick, error) {
	picks := make([]Pick, 0, min(len(candidates), MaxSuggestions))
	for _, c := range candidates {
		if len(picks) == MaxSuggestions {
			break
		}
		picks = append(picks, Pick{
			ActivityID: c.ID,
			Reason:     templateReason(c),
		})
	}
	return picks, nil
}

func templateReason(c Candidate) string {
	sport := strings.ToLower(strings.TrimSpace(c.Sport))
	switch {
	case c.PlayersNeeded == 1:
		return fmt.Sprintf("One spot left for %s at %s, grab it before someone else does.", sport, c.Location)
	case c.PlayersNeeded > 1:
		return fmt.Sprintf("A %s game at %s still needs %d players.", sport, c.Location, c.PlayersNeeded)
	default:
		return fmt.Sprintf("There's a %s game at %s you might like.", sport, c.Location)
	}
}
