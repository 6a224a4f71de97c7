package middleware

import (
	"context"
	"net/http"

	"github.com/pulsefeed-systems/pulsefeed-stack/common/httputil"
)

const userIDKey = contextKey("user-id")

// UserIDHeader is the trust header injected by the gateway after token
// verification. Backends never see unverified traffic, so a request
// without it did not come through the gateway.
const UserIDHeader = "x-user-id"

// Identity rejects requests without the trust header and places the user
// id in the request context for handlers.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get(UserIDHeader)
		if userID == "" {
			httputil.WriteError(w, http.StatusUnauthorized, "User identity required.")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetUserID returns the user id placed in ctx by Identity, or "".
func GetUserID(ctx context.Context) string {
	if userID, ok := ctx.Value(userIDKey).(string); ok {
		return userID
	}
	return ""
}
