// Package send serves the per-tenant callback URL /send/{key}.
package send

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"pipehub/internal/domain/entity"
	"pipehub/internal/handler/http/requestid"
	"pipehub/internal/handler/http/respond"
	"pipehub/internal/usecase/dispatch"
)

// Dispatcher delivers one inbound message.
type Dispatcher interface {
	Dispatch(ctx context.Context, req dispatch.Request) (dispatch.Outcome, error)
}

// Response is the body of every /send reply.
type Response struct {
	Success      bool   `json:"success"`
	ErrorMessage string `json:"error_message"`
}

// Handler serves GET and POST /send/{key}.
//
// A request rejected by the tenant's configuration or content policy gets 400
// with the reason in error_message. Channel failures are never HTTP errors:
// the reply is 200 with success=false when no channel delivered.
type Handler struct {
	Svc Dispatcher
}

// Register registers the send routes with the given mux.
func Register(mux *http.ServeMux, svc Dispatcher) {
	h := Handler{Svc: svc}
	mux.Handle("GET /send/{key}", h)
	mux.Handle("POST /send/{key}", h)
}

func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	req := dispatch.Request{
		Key:     r.PathValue("key"),
		ToParty: query.Get("to_party"),
	}
	if query.Has("text") {
		text := query.Get("text")
		req.Text = &text
	} else if r.Body != nil {
		payload, err := io.ReadAll(r.Body)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				respond.JSON(w, http.StatusRequestEntityTooLarge, Response{ErrorMessage: "Message is too large."})
				return
			}
			respond.JSON(w, http.StatusBadRequest, Response{ErrorMessage: "Failed to read request body."})
			return
		}
		req.Payload = payload
	}

	outcome, err := h.Svc.Dispatch(ctx, req)
	if err != nil {
		var userErr *entity.UserError
		if errors.As(err, &userErr) {
			respond.JSON(w, http.StatusBadRequest, Response{ErrorMessage: userErr.Message})
			return
		}
		slog.ErrorContext(ctx, "dispatch failed",
			slog.String("request_id", requestid.FromContext(ctx)),
			slog.String("error", respond.SanitizeError(err)))
		respond.JSON(w, http.StatusInternalServerError, Response{ErrorMessage: "internal server error"})
		return
	}

	respond.JSON(w, http.StatusOK, Response{Success: outcome.Success})
}
