package auth

import (
	"context"
	"net/http"

	"github.com/zishang520/socket.io/servers/socket/v3"
)

type contextKey struct{}

// RequireAuth passes requests with a valid session to next and hands
// every other request to deny together with the failed result.
func RequireAuth(v *Validator, deny func(http.ResponseWriter, *http.Request, AuthResult)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			result := v.Validate(r)
			if !result.OK {
				deny(w, r, result)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), contextKey{}, result)))
		})
	}
}

// ResultFromContext returns the AuthResult stored by RequireAuth
func ResultFromContext(ctx context.Context) (AuthResult, bool) {
	result, ok := ctx.Value(contextKey{}).(AuthResult)
	return result, ok
}

// RequireAuthSocketIO returns a Socket.IO middleware that rejects
// handshakes without a valid session cookie.
func RequireAuthSocketIO(v *Validator) func(*socket.Socket, func(*socket.ExtendedError)) {
	return func(client *socket.Socket, next func(*socket.ExtendedError)) {
		token, _ := TokenFromHandshake(client.Handshake().Headers)
		if result := v.ValidateToken(token); !result.OK {
			next(socket.NewExtendedError("Unauthorized", result.Detail))
			return
		}
		next(nil)
	}
}

// TokenFromHandshake reads the session token from Socket.IO handshake
// headers. Header values may be a string or a string slice.
func TokenFromHandshake[V any, M ~map[string]V](headers M) (string, bool) {
	var raw any
	for _, name := range []string{"Cookie", "cookie"} {
		if v, ok := headers[name]; ok {
			raw = v
			break
		}
	}

	switch cookies := raw.(type) {
	case string:
		return TokenFromCookieHeader(cookies)
	case []string:
		for _, header := range cookies {
			if token, ok := TokenFromCookieHeader(header); ok {
				return token, true
			}
		}
	case []any:
		for _, header := range cookies {
			if s, ok := header.(string); ok {
				if token, ok := TokenFromCookieHeader(s); ok {
					return token, true
				}
			}
		}
	}
	return "", false
}
