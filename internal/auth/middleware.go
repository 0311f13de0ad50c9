package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/sakif/poetry-share/internal/model"
)

// contextKey is an unexported type used for context keys in this package.
// Only this package can create a key of type contextKey, so no other
// package can read or shadow the identity stored in the request context.
type contextKey string

const identityKey contextKey = "identity"

// The three access gates, each a superset of the previous:
//
//	RequireAuth        any validly-signed, unexpired token
//	RequireAdmin       role rank >= admin (admin or super-admin)
//	RequireSuperAdmin  role == super-admin exactly
//
// Failure taxonomy (distinct even where the status code is shared):
//
//	missing token           → 401 "unauthorized"
//	malformed/expired token → 401 "invalid_credential"
//	role below the gate     → 403 "forbidden"

// RequireAuth enforces authentication on protected routes.
//
// It reads the token from the Authorization header ("Bearer <token>"),
// falling back to the "token" HttpOnly cookie for browser clients, then
// validates it and stores the caller's Identity in the request context.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return requireRank(tokens, model.RoleUser, false)
}

// RequireAdmin admits admins and super-admins only.
func RequireAdmin(tokens *TokenService) func(http.Handler) http.Handler {
	return requireRank(tokens, model.RoleAdmin, false)
}

// RequireSuperAdmin admits super-admins only. This is an exact-match gate,
// not a rank comparison — there is no tier above super-admin, but keeping
// the policies separate means adding one later can't silently widen this
// gate.
func RequireSuperAdmin(tokens *TokenService) func(http.Handler) http.Handler {
	return requireRank(tokens, model.RoleSuperAdmin, true)
}

func requireRank(tokens *TokenService, required model.Role, exact bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				writeAuthError(w, http.StatusUnauthorized,
					"unauthorized", "access denied: no token provided")
				return
			}

			id, err := tokens.Validate(raw)
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized,
					"invalid_credential", "invalid or expired token")
				return
			}

			if exact {
				if id.Role != required {
					writeAuthError(w, http.StatusForbidden,
						"forbidden", "access denied: super-admin role required")
					return
				}
			} else if !id.Role.AtLeast(required) {
				writeAuthError(w, http.StatusForbidden,
					"forbidden", "access denied: insufficient role")
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth extracts the caller identity if a valid token is present but
// never blocks the request. Public read routes use it so logged-in readers
// can be recognised without forcing anonymous ones away.
func OptionalAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if raw, ok := bearerToken(r); ok {
				if id, err := tokens.Validate(raw); err == nil {
					ctx := context.WithValue(r.Context(), identityKey, id)
					r = r.WithContext(ctx)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// IdentityFromContext retrieves the authenticated caller from the request
// context. Returns (zero, false) if the request is anonymous.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok && id.UserID != ""
}

// bearerToken pulls the raw token string from the request: the standard
// Authorization header first, then the "token" cookie set by the login and
// OAuth handlers.
func bearerToken(r *http.Request) (string, bool) {
	if h := r.Header.Get("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") && parts[1] != "" {
			return parts[1], true
		}
		return "", false
	}

	cookie, err := r.Cookie("token")
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

// writeAuthError emits the same error envelope the handler package uses.
// Inlined here (rather than importing handler) to keep the middleware free
// of a dependency on the HTTP layer it guards.
func writeAuthError(w http.ResponseWriter, status int, kind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(`{"error":"` + kind + `","message":"` + message + `"}`))
}
