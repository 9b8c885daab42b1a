// Package respond writes JSON responses and keeps internal error detail out
// of them.
package respond

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"pipehub/internal/domain/entity"
)

// safePhrases mark plain 4xx errors written by handlers themselves, such as
// "invalid request body". Anything else is replaced by the status text.
var safePhrases = []string{
	"required",
	"invalid",
	"not found",
	"already exists",
	"must be",
	"cannot be",
	"too long",
	"too short",
	"rate limit",
}

// JSON writes v as the response body with the given status code. A nil v
// writes headers only.
func JSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are gone; all that is left is to log.
		slog.Default().Error("failed to encode JSON response",
			slog.Int("status_code", code),
			slog.Any("error", err))
	}
}

// SafeError writes {"error": msg} where msg is safe to show the caller:
//   - 5xx: always "internal server error"; the sanitised error is logged.
//   - entity.UserError and entity.ValidationError: their own message.
//   - other 4xx: the error text when it reads like input validation,
//     otherwise the lower-cased status text.
func SafeError(w http.ResponseWriter, code int, err error) {
	if err == nil {
		return
	}
	JSON(w, code, map[string]string{"error": publicMessage(code, err)})
}

func publicMessage(code int, err error) string {
	if code >= http.StatusInternalServerError {
		slog.Default().Error("internal server error",
			slog.Int("code", code),
			slog.String("error", SanitizeError(err)))
		return "internal server error"
	}

	var userErr *entity.UserError
	if errors.As(err, &userErr) {
		return userErr.Message
	}
	var validationErr *entity.ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Error()
	}

	msg := err.Error()
	lower := strings.ToLower(msg)
	for _, phrase := range safePhrases {
		if strings.Contains(lower, phrase) {
			return msg
		}
	}
	return strings.ToLower(http.StatusText(code))
}
