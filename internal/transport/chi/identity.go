package chi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/silverline/internal/domain"
	"github.com/kailas-cloud/silverline/internal/domain/tier"
	logpkg "github.com/kailas-cloud/silverline/internal/logger"
)

// Identity headers set by the client app.
const (
	HeaderUserID = "X-User-ID"
	HeaderTier   = "X-User-Tier"
)

const maxUserIDLen = 128

// IdentityMiddleware resolves the caller from request headers.
// A missing user id becomes domain.AnonymousUser; a missing or unknown tier becomes free.
func IdentityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get(HeaderUserID))
		if userID == "" {
			userID = domain.AnonymousUser
		}
		if len(userID) > maxUserIDLen {
			writeError(w, http.StatusBadRequest, codeBadRequest, "user id is too long")
			return
		}

		caller := domain.Caller{UserID: userID, Tier: tier.Parse(r.Header.Get(HeaderTier))}
		ctx := domain.ContextWithCaller(r.Context(), caller)
		ctx = logpkg.WithFields(ctx,
			zap.String("user_id", caller.UserID),
			zap.String("tier", string(caller.Tier)),
		)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
