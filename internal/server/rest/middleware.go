package rest

import (
	"context"
	"net/http"
	"strings"

	"github.com/pdfvault/pdfvault/internal/server/auth"
)

type ctxKey string

const ownerIDKey ctxKey = "ownerID"

// ownerID extracts the authenticated owner id stored by the auth middleware.
func ownerID(ctx context.Context) string {
	if v, ok := ctx.Value(ownerIDKey).(string); ok {
		return v
	}
	return ""
}

// authMiddleware verifies the bearer token and stashes the owner id in the
// request context. Requests without a valid session are rejected; the client
// is expected to redirect to sign-in.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := strings.TrimSpace(r.Header.Get("Authorization"))
		if header == "" {
			writeJSONError(w, http.StatusUnauthorized, "missing authorization header")
			return
		}

		const prefix = "Bearer "
		if !strings.HasPrefix(header, prefix) {
			writeJSONError(w, http.StatusUnauthorized, "invalid authorization scheme")
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
		owner, err := auth.OwnerIDFromToken(token, s.secretKey)
		if err != nil {
			writeJSONError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), ownerIDKey, owner)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
