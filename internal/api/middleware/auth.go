package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/skimzy/skimzy/internal/api"
	"github.com/skimzy/skimzy/internal/domain"
)

type contextKey string

const (
	UserIDKey     contextKey = "user_id"
	userHolderKey contextKey = "user_holder"
)

// userHolder lets outer middleware see the user authenticated further in.
type userHolder struct {
	userID int64
}

func ensureUserHolder(ctx context.Context) (context.Context, *userHolder) {
	if h, ok := ctx.Value(userHolderKey).(*userHolder); ok {
		return ctx, h
	}
	h := &userHolder{}
	return context.WithValue(ctx, userHolderKey, h), h
}

type AuthValidator interface {
	ValidateAPIKey(ctx context.Context, token string) (int64, error)
}

var (
	errMissingAuth = domain.NewDomainError(domain.ErrCodeUnauthorized, "missing authorization header")
	errAuthFormat  = domain.NewDomainError(domain.ErrCodeUnauthorized, "invalid authorization format")
)

// bearerToken extracts the token of an "Authorization: Bearer <token>"
// header. The scheme is matched case-insensitively.
func bearerToken(header string) (string, error) {
	if header == "" {
		return "", errMissingAuth
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", errAuthFormat
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", errAuthFormat
	}
	return token, nil
}

// APIKeyAuth resolves the bearer token to a user. Bad or revoked keys get
// 401 with the UNAUTHORIZED code; a failing key store gets 500.
func APIKeyAuth(validator AuthValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r.Header.Get("Authorization"))
			if err != nil {
				api.HandleError(w, r, err)
				return
			}

			userID, err := validator.ValidateAPIKey(r.Context(), token)
			if err != nil {
				api.HandleError(w, r, err)
				return
			}

			ctx := WithUserID(r.Context(), userID)
			if logger := zerolog.Ctx(ctx); logger.GetLevel() != zerolog.Disabled {
				l := logger.With().Int64("user_id", userID).Logger()
				ctx = l.WithContext(ctx)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func WithUserID(ctx context.Context, userID int64) context.Context {
	if h, ok := ctx.Value(userHolderKey).(*userHolder); ok {
		h.userID = userID
	}
	return context.WithValue(ctx, UserIDKey, userID)
}

// GetUserID returns the authenticated user, or 0 outside APIKeyAuth.
func GetUserID(ctx context.Context) int64 {
	userID, _ := ctx.Value(UserIDKey).(int64)
	return userID
}
