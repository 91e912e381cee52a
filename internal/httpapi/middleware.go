package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/pkarasev/exchange-api/internal/auth"
)

type contextKey struct{}

var identityKey contextKey

// identityFrom returns the authenticated identity placed in ctx by
// requireAuth.
func identityFrom(ctx context.Context) (auth.Identity, bool) {
	ident, ok := ctx.Value(identityKey).(auth.Identity)
	return ident, ok
}

// requireAuth verifies the bearer credential before the handler runs. The
// resolved identity travels in the request context; handlers never see the
// raw token.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			writeError(w, http.StatusUnauthorized, "Token not found.")
			return
		}

		tokenStr, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenStr == "" {
			writeError(w, http.StatusBadRequest, "Invalid token format.")
			return
		}

		ident, err := s.tokens.Verify(tokenStr)
		if err != nil {
			if errors.Is(err, auth.ErrTokenExpired) {
				writeError(w, http.StatusUnauthorized, "Token has expired. Please log in again.")
				return
			}
			writeError(w, http.StatusUnauthorized, "Token is invalid.")
			return
		}

		// The subject must still exist; a token outliving its user is no
		// longer a credential.
		if _, err := s.users.GetUserByID(r.Context(), ident.ID); err != nil {
			writeError(w, http.StatusUnauthorized, "User not found for this token.")
			return
		}

		ctx := context.WithValue(r.Context(), identityKey, ident)
		next(w, r.WithContext(ctx))
	}
}
