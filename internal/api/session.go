package api

import (
	"context"
	"net/http"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	"github.com/vaidashi/order-admin/internal/session"
)

const (
	sessionCookieName  = "admin_session"
	sessionLockStripes = 64
)

type sessionKey struct{}

// sessionMiddleware makes sure every admin request carries a session id,
// issuing a new cookie when the request has none or an invalid one
func (s *Server) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string

		if cookie, err := r.Cookie(sessionCookieName); err == nil {
			if parsed, err := uuid.Parse(cookie.Value); err == nil {
				id = parsed.String()
			}
		}

		if id == "" {
			id = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     sessionCookieName,
				Value:    id,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
				Secure:   s.config.Env == "production",
				MaxAge:   int(s.config.Session.TTL.Seconds()),
			})
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, id)))
	})
}

func sessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}

// loadSession never fails; a broken store degrades to a fresh state
func (s *Server) loadSession(ctx context.Context) *session.State {
	state, err := s.sessions.Get(ctx, sessionID(ctx))

	if err != nil {
		s.logger.Warn("Failed to load session, starting fresh", "error", err)
		return session.NewState()
	}

	return state
}

// updateSession applies fn to the stored state of the request's session and
// saves the result. Updates to one session are serialized within this
// process, and each starts from the latest stored state, so a slow orders
// fetch cannot overwrite a toggle made while it ran.
func (s *Server) updateSession(ctx context.Context, fn func(state *session.State)) *session.State {
	id := sessionID(ctx)
	mu := &s.sessionLocks[xxhash.Sum64String(id)%sessionLockStripes]

	mu.Lock()
	defer mu.Unlock()

	state := s.loadSession(ctx)
	fn(state)
	s.saveSession(ctx, state)

	return state
}

func (s *Server) saveSession(ctx context.Context, state *session.State) {
	if err := s.sessions.Save(ctx, sessionID(ctx), state); err != nil {
		s.logger.Warn("Failed to save session", "error", err)
	}
}
