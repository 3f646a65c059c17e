package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"

	"ms-catalog/internal/logger"
	"ms-catalog/internal/utils"
)

type contextKey string

const userIDKey contextKey = "user_id"

// Verifier checks a raw bearer token and returns its subject.
type Verifier func(ctx context.Context, rawToken string) (string, error)

// NewOIDCVerifier discovers issuer and verifies tokens against its key set.
// The client id is not checked; any audience the issuer signs for is accepted.
func NewOIDCVerifier(ctx context.Context, issuer string) (Verifier, error) {
	if issuer == "" {
		return nil, errors.New("oidc issuer not set")
	}
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to create OIDC provider: %w", err)
	}
	verifier := provider.Verifier(&oidc.Config{SkipClientIDCheck: true})

	return func(ctx context.Context, rawToken string) (string, error) {
		idToken, err := verifier.Verify(ctx, rawToken)
		if err != nil {
			return "", err
		}
		var claims struct {
			Sub string `json:"sub"`
		}
		if err := idToken.Claims(&claims); err != nil {
			return "", fmt.Errorf("failed to parse claims: %w", err)
		}
		return claims.Sub, nil
	}, nil
}

// Middleware rejects requests without a valid bearer token and stores the
// token subject in the request context.
func Middleware(verify Verifier, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawToken, err := ExtractTokenFromRequest(r)
			if err != nil {
				log.LogSecurity("AUTH_MISSING", fmt.Sprintf("%s %s: %v", r.Method, r.URL.Path, err))
				utils.WriteError(w, http.StatusUnauthorized, "Unauthorized.", err.Error())
				return
			}

			sub, err := verify(r.Context(), rawToken)
			if err != nil {
				log.LogSecurity("AUTH_INVALID", fmt.Sprintf("%s %s: %v", r.Method, r.URL.Path, err))
				utils.WriteError(w, http.StatusUnauthorized, "Unauthorized.", "invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, sub)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ExtractTokenFromRequest returns the token of a "Bearer <token>" header.
func ExtractTokenFromRequest(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", errors.New("authorization header is missing")
	}
	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("authorization header format must be 'Bearer {token}'")
	}
	return parts[1], nil
}

// UserID returns the authenticated subject, or "" on public routes.
func UserID(ctx context.Context) string {
	if uid, ok := ctx.Value(userIDKey).(string); ok {
		return uid
	}
	return ""
}
