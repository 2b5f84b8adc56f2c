package middleware

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/senyabanana/surplus-market/internal/auth"
	"github.com/senyabanana/surplus-market/internal/logger"
	"github.com/senyabanana/surplus-market/internal/models"
	"github.com/senyabanana/surplus-market/internal/utils"
)

type contextKey string

const identityKey contextKey = "identity"

// TokenVerifier is satisfied by auth.JWTService.
type TokenVerifier interface {
	VerifyToken(tokenString string) (*auth.Claims, error)
}

// Authenticate validates the bearer token and attaches the caller identity to the context.
func Authenticate(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := logger.FromContext(r.Context())

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				utils.SendError(w, r, models.NewCodedError(http.StatusUnauthorized, models.CodeAuthRequired, "sign in to continue"))
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
				utils.SendError(w, r, models.NewCodedError(http.StatusUnauthorized, models.CodeAuthRequired, "invalid authorization header format"))
				return
			}

			claims, err := verifier.VerifyToken(strings.TrimSpace(parts[1]))
			if err != nil {
				log.Warn("rejected access token", zap.Error(err))
				utils.SendError(w, r, models.NewCodedError(http.StatusUnauthorized, models.CodeAuthRequired, "invalid or expired token"))
				return
			}

			id := claims.Identity()
			ctx := context.WithValue(r.Context(), identityKey, id)
			ctx = logger.WithContext(ctx, log.With(zap.String("user_id", id.UserID.String())))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuthenticate lets anonymous requests through but still rejects a bad token.
func OptionalAuthenticate(verifier TokenVerifier) func(http.Handler) http.Handler {
	authenticate := Authenticate(verifier)
	return func(next http.Handler) http.Handler {
		withIdentity := authenticate(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") == "" {
				next.ServeHTTP(w, r)
				return
			}
			withIdentity.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin rejects callers without the admin role. It must run after Authenticate.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFrom(r.Context())
		if !ok {
			utils.SendError(w, r, models.NewCodedError(http.StatusUnauthorized, models.CodeAuthRequired, "sign in to continue"))
			return
		}
		if !id.IsAdmin() {
			utils.SendError(w, r, models.NewCodedError(http.StatusForbidden, models.CodeForbidden, "admin role required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// IdentityFrom returns the caller attached by Authenticate.
func IdentityFrom(ctx context.Context) (models.Identity, bool) {
	id, ok := ctx.Value(identityKey).(models.Identity)
	return id, ok
}

// WithIdentity attaches an identity to ctx.
func WithIdentity(ctx context.Context, id models.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}
