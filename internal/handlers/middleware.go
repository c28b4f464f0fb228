package handlers

import (
	"net"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/contactsbook/apiserver/internal/ratelimit"
	"github.com/contactsbook/apiserver/internal/services"
)

// RequireAuth resolves the access token to a user record and injects it
// into the request context. Requests without a valid token, or whose
// user no longer exists, are rejected with 401.
func RequireAuth(authService *services.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			user, err := authService.CurrentUser(r.Context(), token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			next.ServeHTTP(w, r.WithContext(contextWithUser(r.Context(), user)))
		})
	}
}

// RequireRoles permits the request only when the resolved user's role
// is in the allowed set. It must run after RequireAuth.
func RequireRoles(allowed ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := userFromContext(r.Context())
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			for _, role := range allowed {
				if strings.EqualFold(user.Role, role) {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, http.StatusForbidden, "forbidden")
		})
	}
}

var bannedUserAgents = []*regexp.Regexp{
	regexp.MustCompile(`bot-Yandex`),
	regexp.MustCompile(`Googlebot`),
	regexp.MustCompile(`Python-urllib`),
}

// BanUserAgents rejects requests whose User-Agent matches the banned
// patterns before any other processing.
func BanUserAgents(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent := r.UserAgent()
		for _, pattern := range bannedUserAgents {
			if pattern.MatchString(userAgent) {
				writeError(w, http.StatusForbidden, msgBanned)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// RateLimit rejects requests beyond the limiter's per-client cap with
// 429 and a Retry-After hint. The client is identified by its network
// address; the RealIP middleware runs upstream so proxies don't collapse
// all clients into one bucket.
func RateLimit(limiter *ratelimit.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, retryAfter := limiter.Allow(r.Context(), clientAddr(r))
			if !allowed {
				seconds := int(retryAfter.Seconds())
				if seconds < 1 {
					seconds = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(seconds))
				writeError(w, http.StatusTooManyRequests, "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientAddr strips the port from RemoteAddr. RealIP may have rewritten
// it to a bare IP already, in which case it passes through unchanged so
// IPv6 addresses keep their full form.
func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
