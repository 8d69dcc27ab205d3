package middleware

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	apierrors "github.com/narvanalabs/matchday/internal/api/errors"
	"github.com/narvanalabs/matchday/pkg/logger"
)

// Recovery returns a middleware that recovers from panics and logs the error.
func Recovery(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					requestID := middleware.GetReqID(r.Context())

					entry := apierrors.NewErrorLogEntry(
						requestID,
						apierrors.CodeInternalError,
						fmt.Sprint(rec),
					)
					attrs := append(entry.ToSlogAttrs(), "method", r.Method, "path", r.URL.Path)
					logger.FromContext(r.Context(), log).Error("panic recovered", attrs...)

					err := apierrors.NewInternalError("An unexpected error occurred").WithRequestID(requestID)
					apierrors.WriteError(w, err)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
