package suggestions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const systemPrompt = `You recommend pickup sports games. Given a user's favorite sports and a list of open activities, ` +
	`choose at most 3 activities the user would enjoy and write one short, upbeat sentence for each explaining why they should join. ` +
	`Only use activity ids from the list. If nothing matches, return an empty list. ` +
	`Respond with JSON of the form {"suggestions":[{"activity_id":"...","reason":"..."}]}.`

// HTTPGenerator calls an OpenAI-compatible chat completions endpoint.
type HTTPGenerator struct {
	endpoint string
	apiKey   string
	model    string
	hc       *http.Client
}

// NewHTTPGenerator creates a generator for the given chat completions URL.
func NewHTTPGenerator(endpoint, apiKey, model string, timeout time.Duration) *HTTPGenerator {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPGenerator{
		endpoint: endpoint,
		apiKey:   apiKey,
		model:    model,
		hc: &http.Client{
			Timeout: timeout,
		},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
	Temperature    float64           `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type generatedPicks struct {
	Suggestions []Pick `json:"suggestions"`
}

// Generate asks the model for suggestions.
func (g *HTTPGenerator) Generate(ctx context.Context, preferredSports []string, candidates []Candidate) ([]Pick, error) {
	input, err := json.Marshal(struct {
		PreferredSports []string    `json:"preferred_sports"`
		Activities      []Candidate `json:"activities"`
	}{preferredSports, candidates})
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(chatRequest{
		Model: g.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: string(input)},
		},
		ResponseFormat: map[string]string{"type": "json_object"},
		Temperature:    0.7,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling generator: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var completion chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return nil, fmt.Errorf("decoding completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("completion has no choices")
	}

	return parsePicks(completion.Choices[0].Message.Content)
}

// parsePicks reads the model output, tolerating a fenced code block around it.
func parsePicks(content string) ([]Pick, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var out generatedPicks
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &out); err != nil {
		return nil, fmt.Errorf("parsing suggestions: %w", err)
	}
	return out.Suggestions, nil
}
