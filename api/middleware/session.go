package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/harvestlink/agrimarket/pkg/logger"
)

// SessionCookie names the cookie carrying the marketplace session id.
const SessionCookie = "agm_session"

// SessionOptions configure the session cookie.
type SessionOptions struct {
	TTL    time.Duration
	Secure bool
}

// Session ensures every request carries a session id, issuing a cookie when
// the browser has none. The id keys the per-session listing engine.
func Session(opts SessionOptions, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := ""
			if c, err := r.Cookie(SessionCookie); err == nil {
				if parsed, err := uuid.Parse(c.Value); err == nil {
					id = parsed.String()
				}
			}
			if id == "" {
				id = uuid.NewString()
			}
			cookie := &http.Cookie{
				Name:     SessionCookie,
				Value:    id,
				Path:     "/",
				HttpOnly: true,
				Secure:   opts.Secure,
				SameSite: http.SameSiteLaxMode,
			}
			if opts.TTL > 0 {
				cookie.MaxAge = int(opts.TTL.Seconds())
			}
			http.SetCookie(w, cookie)

			ctx := WithSessionID(r.Context(), id)
			if logg != nil {
				ctx = logg.WithSessionID(ctx, id)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
