package authapi

import (
	"context"
	"net/http"

	"finapp/cmd/internal/auth/authsvc"
)

type principalKey struct{}

// publicRoutes authenticate through their request body and ignore any
// bearer header.
var publicRoutes = map[string]bool{
	"POST /auth/register": true,
	"POST /auth/login":    true,
	"POST /auth/refresh":  true,
}

func isPublic(r *http.Request) bool {
	return publicRoutes[r.Method+" "+r.URL.Path]
}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p authsvc.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the authenticated caller stored by Authenticate.
func PrincipalFrom(ctx context.Context) (authsvc.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(authsvc.Principal)
	return p, ok
}

// Authenticate resolves a bearer access token into a Principal.
//
// Requests without a Bearer credential, and the public register, login and
// refresh routes, pass through unauthenticated. A present but unusable
// token is rejected (INVALID_ACCESS_TOKEN or EXPIRED_SESSION). An
// authenticated principal is then charged against the rate limiter.
func (h *Handler) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, present := bearerToken(r)
		if !present || isPublic(r) {
			next.ServeHTTP(w, r)
			return
		}
		if raw == "" {
			writeError(w, http.StatusUnauthorized, CodeInvalidAccessToken, "invalid access token")
			return
		}

		now := h.now()
		p, err := h.svc.Authenticate(r.Context(), raw, now)
		if err != nil {
			h.writeServiceError(w, "auth.authenticate.fail", err)
			return
		}

		if ok, retryAfter := h.limiter.Admit(p.AccountID, now); !ok {
			h.metrics.observeRateLimited()
			h.log.Warn("auth.rate_limited", "account_id", p.AccountID, "path", r.URL.Path)
			setRetryAfter(w, retryAfter, 1)
			writeError(w, http.StatusTooManyRequests, CodeTooManyRequests, "too many requests")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

// RequireAuth rejects requests that carry no Principal.
func RequireAuth(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := PrincipalFrom(r.Context()); !ok {
			writeError(w, http.StatusUnauthorized, CodeUnauthorized, "authentication required")
			return
		}
		next(w, r)
	})
}
