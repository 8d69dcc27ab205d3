package errors

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

var allCodes = []any{
	CodeValidationError,
	CodeNotFound,
	CodeUnauthorized,
	CodeForbidden,
	CodeInternalError,
	CodeConflict,
	CodeInvalidState,
	CodeAlreadyParticipant,
	CodeDuplicatePending,
	CodeExternalService,
	CodeRateLimited,
	CodeUnavailable,
}

// Every error body carries code, message and request_id, and the status
// written matches HTTPStatusCode.
func TestPropertyErrorResponseFormat(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	genMessage := gen.AlphaString().SuchThat(func(s string) bool { return len(s) > 0 })
	genRequestID := gen.RegexMatch("[a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12}")

	properties.Property("body round-trips code, message and request id", prop.ForAll(
		func(code, message, requestID string) bool {
			rr := httptest.NewRecorder()
			WriteErrorWithRequestID(rr, New(code, message), requestID)

			var body map[string]any
			if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
				t.Logf("decode: %v", err)
				return false
			}
			return body["code"] == code &&
				body["message"] == message &&
				body["request_id"] == requestID &&
				rr.Header().Get("Content-Type") == "application/json"
		},
		gen.OneConstOf(allCodes...),
		genMessage,
		genRequestID,
	))

	properties.Property("status matches code", prop.ForAll(
		func(code string) bool {
			err := New(code, "x")
			rr := httptest.NewRecorder()
			WriteError(rr, err)
			return rr.Code == err.HTTPStatusCode() && rr.Code >= 400
		},
		gen.OneConstOf(allCodes...),
	))

	properties.TestingRun(t)
}

func TestPropertyValidationErrorFieldDetails(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	genField := gen.RegexMatch("[a-z][a-z_]{0,12}")
	genMessage := gen.AlphaString().SuchThat(func(s string) bool { return len(s) > 0 })

	properties.Property("fields listed in order under details", prop.ForAll(
		func(fields, messages []string) bool {
			n := min(len(fields), len(messages))
			if n == 0 {
				return true
			}
			var errs ValidationErrors
			for i := 0; i < n; i++ {
				errs.Add(fields[i], messages[i])
			}

			rr := httptest.NewRecorder()
			WriteError(rr, errs.ToAPIError())

			var body struct {
				Code    string `json:"code"`
				Details struct {
					Fields []ValidationError `json:"fields"`
				} `json:"details"`
			}
			if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
				return false
			}
			if body.Code != CodeValidationError || len(body.Details.Fields) != n {
				return false
			}
			for i := 0; i < n; i++ {
				if body.Details.Fields[i].Field != fields[i] || body.Details.Fields[i].Message != messages[i] {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(4, genField),
		gen.SliceOfN(4, genMessage),
	))

	properties.TestingRun(t)
}

func TestErrorLogEntryCarriesStackTrace(t *testing.T) {
	entry := NewErrorLogEntry("req-1", CodeInternalError, "boom")
	if entry.StackTrace == "" {
		t.Fatal("expected a stack trace")
	}
	attrs := entry.ToSlogAttrs()
	if len(attrs) != 8 || attrs[1] != "req-1" {
		t.Fatalf("unexpected attrs %v", attrs)
	}
}
