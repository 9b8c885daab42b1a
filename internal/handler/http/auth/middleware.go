package auth

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"pipehub/internal/handler/http/requestid"
	"pipehub/internal/handler/http/respond"
)

type ctxKey string

const ctxSession ctxKey = "session"

// WithSession stores s in ctx.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, ctxSession, s)
}

// SessionFromContext returns the session stored by RequireSession.
func SessionFromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(ctxSession).(Session)
	return s, ok
}

// RequireSession rejects requests without a valid session cookie with 401 and
// a Location header pointing at loginURL, so the settings UI can redirect.
func RequireSession(m *SessionManager, loginURL string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			session, err := m.FromRequest(r)
			RecordAuthzCheckDuration(time.Since(start).Seconds())

			if err != nil {
				RecordSessionRejected(r.Method)
				slog.DebugContext(r.Context(), "session rejected",
					slog.String("request_id", requestid.FromContext(r.Context())),
					slog.String("reason", err.Error()))
				w.Header().Set("Location", loginURL)
				respond.JSON(w, http.StatusUnauthorized, map[string]string{"error": ErrUnauthorized.Error()})
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
		})
	}
}
