package utilities

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/ovaphlow/pitchfork/service-credit-go/internal/apperr"
)

type requestIDKey struct{}

// WithRequestID stores the request id on ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the request id stored on ctx, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Code      apperr.Code `json:"code"`
	Message   string      `json:"message"`
	Details   string      `json:"details,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// WriteError maps err to its status code and writes an ErrorResponse.
// Errors outside the apperr taxonomy are reported as INTERNAL without detail.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	e := apperr.As(err)
	WriteJSON(w, apperr.HTTPStatus(e), ErrorResponse{
		Code:      e.Code,
		Message:   e.Message,
		Details:   e.Details,
		RequestID: RequestID(r.Context()),
	})
}
