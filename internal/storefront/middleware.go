package storefront

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type contextKey string

const (
	ownerKey     contextKey = "cart_owner"
	requestIDKey contextKey = "request_id"

	userHeader    = "X-User-ID"
	sessionCookie = "pizza4u_session"
)

type owner struct {
	id            string
	authenticated bool
}

// OwnerMiddleware resolves who the cart belongs to. A signed-in caller is
// identified by the user header set by the auth layer in front of us; a
// guest gets a durable session cookie so their cart survives reloads.
func OwnerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var o owner
		if userID := r.Header.Get(userHeader); userID != "" {
			o = owner{id: userID, authenticated: true}
		} else if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
			o = owner{id: c.Value}
		} else {
			o = owner{id: "guest-" + uuid.NewString()}
			http.SetCookie(w, &http.Cookie{
				Name:     sessionCookie,
				Value:    o.id,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}

		ctx := context.WithValue(r.Context(), ownerKey, o)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestIDMiddleware adds a unique request ID to each request.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func ownerFromContext(ctx context.Context) (owner, bool) {
	o, ok := ctx.Value(ownerKey).(owner)
	return o, ok
}

func requestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
