package handler

import (
	"net/http"
	"strings"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/bookbazaar/internal/domain/auth"
)

// Authenticate verifies the bearer token and stores the caller identity in
// the request context. Requests without a valid token get 401.
func Authenticate(verifier *auth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				writeMessage(w, http.StatusUnauthorized, "Not authorized, no token")
				return
			}

			id, err := verifier.Verify(raw)
			if err != nil {
				zctx.From(r.Context()).Debug("Reject bearer token", zap.Error(err))
				writeMessage(w, http.StatusUnauthorized, "Not authorized, token failed")
				return
			}

			ctx := auth.WithIdentity(r.Context(), id)
			ctx = zctx.With(ctx, zap.String("user_id", id.UserID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func identity(r *http.Request) auth.Identity {
	id, _ := auth.FromContext(r.Context())
	return id
}
