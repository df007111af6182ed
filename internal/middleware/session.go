package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/cateradmin/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type contextKey string

const sessionKey contextKey = "session"

// SessionLookup finds an open editing session. Satisfied by *service.Manager.
type SessionLookup interface {
	Get(id uuid.UUID) (*service.Session, error)
}

// SessionCtx resolves the {sid} URL parameter to an open session and puts
// it in the request context.
func SessionCtx(sessions SessionLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sid, err := uuid.Parse(chi.URLParam(r, "sid"))
			if err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid session ID"})
				return
			}

			session, err := sessions.Get(sid)
			if err != nil {
				if errors.Is(err, service.ErrSessionNotFound) {
					writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
					return
				}
				log.Printf("ERROR: lookup session %s: %v", sid, err)
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
				return
			}

			ctx := context.WithValue(r.Context(), sessionKey, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionFromContext returns the session resolved by SessionCtx, or nil.
func SessionFromContext(ctx context.Context) *service.Session {
	session, _ := ctx.Value(sessionKey).(*service.Session)
	return session
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
