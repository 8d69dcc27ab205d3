package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/narvanalabs/matchday/pkg/logger"
)

// ActivityContext copies the {activityID} route parameter into the request
// context so log lines written while serving it carry activity_id.
func ActivityContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := chi.URLParam(r, "activityID"); id != "" {
			r = r.WithContext(logger.ContextWithActivityID(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}
