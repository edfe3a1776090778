package middleware

import (
	"context"
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/bazario/bazario-backend/internal/models"
	"github.com/bazario/bazario-backend/internal/services"
	"github.com/bazario/bazario-backend/internal/store"
	"github.com/bazario/bazario-backend/pkg/apperr"
)

type contextKey string

const (
	userKey contextKey = "auth_user"
	shopKey contextKey = "auth_shop"
)

func writeAuthError(w http.ResponseWriter, err *apperr.Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Status)
	w.Write([]byte(`{"success":false,"message":"` + err.Message + `"}`))
}

// RequireAuth verifies the session cookie (or bearer header), resolves it to
// an account and attaches the account to the request context. Missing or
// invalid credentials, and sessions whose account no longer exists, are all
// rejected the same way.
func RequireAuth(sessions *services.Sessions, users store.UserStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := sessions.TokenFromRequest(r)
			if token == "" {
				writeAuthError(w, apperr.Unauthenticated("Please login to continue"))
				return
			}

			accountID, err := sessions.Verify(token)
			if err != nil {
				writeAuthError(w, apperr.Unauthenticated("Please login to continue"))
				return
			}

			oid, err := primitive.ObjectIDFromHex(accountID)
			if err != nil {
				writeAuthError(w, apperr.Unauthenticated("Please login to continue"))
				return
			}

			user, err := users.FindByID(r.Context(), oid)
			if err != nil {
				writeAuthError(w, apperr.Unauthenticated("Please login to continue"))
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, user)))
		})
	}
}

// RequireSeller is the seller-side authentication guard on the seller_token
// cookie.
func RequireSeller(sessions *services.Sessions, shops store.ShopStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := sessions.TokenFromRequest(r)
			if token == "" {
				writeAuthError(w, apperr.Unauthenticated("Please login to continue"))
				return
			}

			accountID, err := sessions.Verify(token)
			if err != nil {
				writeAuthError(w, apperr.Unauthenticated("Please login to continue"))
				return
			}

			oid, err := primitive.ObjectIDFromHex(accountID)
			if err != nil {
				writeAuthError(w, apperr.Unauthenticated("Please login to continue"))
				return
			}

			shop, err := shops.FindByID(r.Context(), oid)
			if err != nil {
				writeAuthError(w, apperr.Unauthenticated("Please login to continue"))
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), shopKey, shop)))
		})
	}
}

// RequireRole composes after RequireAuth and enforces role-based access.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				writeAuthError(w, apperr.Unauthenticated("Please login to continue"))
				return
			}
			if user.Role != role {
				writeAuthError(w, apperr.Forbidden(user.Role+" can not access this resource"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// UserFromContext returns the account attached by RequireAuth.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(userKey).(*models.User)
	return user, ok
}

// ShopFromContext returns the seller attached by RequireSeller.
func ShopFromContext(ctx context.Context) (*models.Shop, bool) {
	shop, ok := ctx.Value(shopKey).(*models.Shop)
	return shop, ok
}
