package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"mealsnap/internal/auth"
)

type contextKey string

const userIDKey contextKey = "userID"

// requireAuth validates the bearer token and stashes the user id in the
// request context.
func (h *Handlers) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeMessage(w, http.StatusUnauthorized, auth.MsgInvalidCredentials)
			return
		}
		userID, err := h.tokens.Parse(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			writeMessage(w, http.StatusUnauthorized, auth.MsgInvalidCredentials)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
	})
}

func userIDFrom(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(userIDKey).(uuid.UUID)
	return id
}
