package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/hostelworks/authcore"
)

type authResultContextKey struct{}

// AuthResultFromContext returns the identity injected by a guard.
func AuthResultFromContext(ctx context.Context) (*authcore.AuthResult, bool) {
	res, ok := ctx.Value(authResultContextKey{}).(*authcore.AuthResult)
	return res, ok
}

// Guard validates the bearer token under the given mode and injects the
// resulting identity into the request context.
func Guard(engine *authcore.Engine, routeMode authcore.ValidationMode) func(http.Handler) http.Handler {
	return guard(engine, routeMode, nil)
}

// RequireRoles is [Guard] plus an exact role allow-list.
func RequireRoles(engine *authcore.Engine, routeMode authcore.ValidationMode, allowed ...authcore.Role) func(http.Handler) http.Handler {
	return guard(engine, routeMode, func(res *authcore.AuthResult) (*authcore.AuthResult, error) {
		return authcore.Authorize(res, allowed...)
	})
}

// RequireLevel is [Guard] plus a minimum role level: any role at or above
// min passes.
func RequireLevel(engine *authcore.Engine, routeMode authcore.ValidationMode, min authcore.Role) func(http.Handler) http.Handler {
	return guard(engine, routeMode, func(res *authcore.AuthResult) (*authcore.AuthResult, error) {
		return authcore.AuthorizeLevel(res, min)
	})
}

func guard(
	engine *authcore.Engine,
	routeMode authcore.ValidationMode,
	check func(*authcore.AuthResult) (*authcore.AuthResult, error),
) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := clientContext(r)
			res, err := engine.Validate(ctx, token, routeMode)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			if check != nil {
				res, err = check(res)
				if err != nil {
					http.Error(w, "forbidden", http.StatusForbidden)
					return
				}
			}

			ctx = context.WithValue(ctx, authResultContextKey{}, res)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func clientContext(r *http.Request) context.Context {
	ctx := r.Context()
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		ctx = authcore.WithClientIP(ctx, host)
	}
	if ua := r.Header.Get("User-Agent"); ua != "" {
		ctx = authcore.WithUserAgent(ctx, ua)
	}
	return ctx
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
