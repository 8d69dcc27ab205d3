package suggestions

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPGenerator(t *testing.T) {
	var gotAuth string
	var gotReq chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"` +
			"```json\\n" + `{\"suggestions\":[{\"activity_id\":\"a1\",\"reason\":\"Great court.\"}]}` + "\\n```" +
			`"}}]}`))
	}))
	defer srv.Close()

	g := NewHTTPGenerator(srv.URL, "secret", "test-model", time.Second)
	picks, err := g.Generate(context.Background(), []string{"tennis"}, []Candidate{{ID: "a1", Sport: "Tennis", Location: "Club", PlayersNeeded: 1}})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if gotAuth != "Bearer secret" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotReq.Model != "test-model" || len(gotReq.Messages) != 2 {
		t.Errorf("unexpected request: %+v", gotReq)
	}
	if len(picks) != 1 || picks[0].ActivityID != "a1" || picks[0].Reason != "Great court." {
		t.Errorf("picks = %+v", picks)
	}
}

func TestHTTPGeneratorErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{"error":"boom"}`},
		{"no choices", http.StatusOK, `{"choices":[]}`},
		{"bad content", http.StatusOK, `{"choices":[{"message":{"role":"assistant","content":"not json"}}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			g := NewHTTPGenerator(srv.URL, "", "m", time.Second)
			if _, err := g.Generate(context.Background(), []string{"x"}, []Candidate{{ID: "a1"}}); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestTemplateGeneratorCaps(t *testing.T) {
	candidates := []Candidate{
		{ID: "a1", Sport: "Soccer", Location: "Park", PlayersNeeded: 1},
		{ID: "a2", Sport: "Soccer", Location: "Park", PlayersNeeded: 4},
		{ID: "a3", Sport: "Soccer", Location: "Park"},
		{ID: "a4", Sport: "Soccer", Location: "Park", PlayersNeeded: 2},
	}
	picks, err := TemplateGenerator{}.Generate(context.Background(), nil, candidates)
	if err != nil {
		t.Fatal(err)
	}
	if len(picks) != MaxSuggestions {
		t.Fatalf("picks = %d, want %d", len(picks), MaxSuggestions)
	}
	for _, p := range picks {
		if p.Reason == "" {
			t.Errorf("empty reason for %s", p.ActivityID)
		}
	}
}
