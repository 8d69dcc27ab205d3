package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	apierrors "github.com/narvanalabs/matchday/internal/api/errors"
	"github.com/narvanalabs/matchday/internal/api/middleware"
	"github.com/narvanalabs/matchday/internal/engine"
)

func TestWriteDomainErrorLogsRequestContext(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.RequestLogger(slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))))
	r.With(middleware.ActivityContext).Get("/activities/{activityID}", func(w http.ResponseWriter, r *http.Request) {
		WriteDomainError(w, r, log, "failed to load activity", errors.New("connection reset"))
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/activities/act-42", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status %d", rr.Code)
	}
	var line map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if line["activity_id"] != "act-42" {
		t.Errorf("activity_id = %v", line["activity_id"])
	}
	if id, _ := line["request_id"].(string); id == "" {
		t.Errorf("request_id missing: %v", line)
	}
	if line["error_code"] != apierrors.CodeInternalError {
		t.Errorf("error_code = %v", line["error_code"])
	}
}

func TestWriteDomainErrorSkipsClientErrors(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))

	rr := httptest.NewRecorder()
	WriteDomainError(rr, httptest.NewRequest(http.MethodGet, "/", nil), log, "decide", engine.ErrUnauthorized)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("status %d", rr.Code)
	}
	if buf.Len() != 0 {
		t.Fatalf("client error logged: %s", buf.String())
	}
}
