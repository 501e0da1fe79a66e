package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/InnersoftTecnologia/chama-ja/internal/store"
)

type authContextKey struct{}

// AuthMiddleware resolves the caller's session and binds it to the request
// context. Every entity lookup downstream is scoped by the session's tenant.
func AuthMiddleware(st store.TicketStore, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isPublicEndpoint(r) {
			next.ServeHTTP(w, r)
			return
		}
		token := TokenFromRequest(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing session")
			return
		}
		session, err := st.GetSession(r.Context(), token)
		if err != nil {
			if errors.Is(err, store.ErrSessionNotFound) {
				writeError(w, http.StatusUnauthorized, "unauthorized", "invalid session")
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
			return
		}
		ctx := context.WithValue(r.Context(), authContextKey{}, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionFromContext(ctx context.Context) (store.Session, bool) {
	value := ctx.Value(authContextKey{})
	if value == nil {
		return store.Session{}, false
	}
	session, ok := value.(store.Session)
	return session, ok
}

// TokenFromRequest accepts the token as a bearer header, a session header,
// or a query parameter. The query form exists for clients that cannot set
// headers: the SockJS stream and <audio> elements fetching announcements.
func TokenFromRequest(r *http.Request) string {
	if r == nil {
		return ""
	}
	if token := bearerToken(r.Header.Get("Authorization")); token != "" {
		return token
	}
	if token := strings.TrimSpace(r.Header.Get("X-Session-Token")); token != "" {
		return token
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.Fields(header)
	if len(parts) != 2 {
		return ""
	}
	if strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return parts[1]
}

func isPublicEndpoint(r *http.Request) bool {
	switch r.URL.Path {
	case "/healthz", "/debug/vars":
		return true
	}
	// The SockJS mount authenticates inside the session callback; its
	// bootstrap requests (/info and friends) must pass through.
	if strings.HasPrefix(r.URL.Path, "/rt/") {
		return true
	}
	return r.Method == http.MethodOptions
}
