package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/avolkovs/authcore/internal/common"
	"github.com/avolkovs/authcore/internal/server/auth"
)

type ctxKey int

const userIDKey ctxKey = iota

// requireToken verifies a bearer token of the given kind and stores the
// subject's user ID in the request context. A token of any other kind fails
// verification because every kind is signed with its own secret.
func (s *Server) requireToken(kind auth.TokenKind) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				s.writeError(w, r, common.ErrorInvalidToken)
				return
			}

			userID, err := s.tokens.Verify(kind, token)
			if err != nil {
				s.logger.Info(r.Context(), "request rejected", "kind", kind.String(), "err", err)
				s.writeError(w, r, common.ErrorInvalidToken)
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken extracts the credential from "Authorization: Bearer <token>".
func bearerToken(r *http.Request) string {
	header := r.Header.Get(common.AccessTokenHeaderName)
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// userIDFromContext returns the user ID stored by requireToken.
func userIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}
