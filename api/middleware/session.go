package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/asala-storefront/internal/storefront"
	"github.com/angelmondragon/asala-storefront/pkg/config"
	"github.com/angelmondragon/asala-storefront/pkg/logger"
)

const sessionHeader = "X-Session-Id"

type sessionRegistry interface {
	GetOrCreate(id string) (*storefront.Session, bool)
}

// Session resolves the visitor session from the cookie or X-Session-Id
// header, creating one when neither names a known session. Client-supplied
// ids must be UUIDs; anything else gets a fresh session.
func Session(registry sessionRegistry, cfg config.SessionConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	cookieName := strings.TrimSpace(cfg.CookieName)
	if cookieName == "" {
		cookieName = "asala_session"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requested := requestedSessionID(r, cookieName)
			session, created := registry.GetOrCreate(requested)

			if created || requested != session.ID() {
				http.SetCookie(w, &http.Cookie{
					Name:     cookieName,
					Value:    session.ID(),
					Path:     "/",
					HttpOnly: true,
					Secure:   cfg.SecureCookie,
					SameSite: http.SameSiteLaxMode,
					MaxAge:   int(cfg.IdleTTL.Seconds()),
				})
			}
			w.Header().Set(sessionHeader, session.ID())

			ctx := WithSession(r.Context(), session)
			if logg != nil {
				ctx = logg.WithSessionID(ctx, session.ID())
				if created {
					logg.Debug(ctx, "session.created")
				}
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func requestedSessionID(r *http.Request, cookieName string) string {
	candidate := strings.TrimSpace(r.Header.Get(sessionHeader))
	if candidate == "" {
		if c, err := r.Cookie(cookieName); err == nil {
			candidate = strings.TrimSpace(c.Value)
		}
	}
	if candidate == "" {
		return ""
	}
	if _, err := uuid.Parse(candidate); err != nil {
		return ""
	}
	return candidate
}
