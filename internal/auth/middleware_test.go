package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-catalog/internal/logger"
)

func fakeVerifier(ctx context.Context, raw string) (string, error) {
	if raw == "good-token" {
		return "user-42", nil
	}
	return "", errors.New("signature mismatch")
}

func TestMiddleware(t *testing.T) {
	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	h := Middleware(fakeVerifier, logger.NewNop())(next)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
		{"good token", "Bearer good-token", http.StatusNoContent},
		{"lower-case scheme", "bearer good-token", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(http.MethodPost, "/api/category/create", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusNoContent {
				assert.Equal(t, "user-42", seen)
			} else {
				assert.Empty(t, seen)
			}
		})
	}
}

func TestNewOIDCVerifier_Errors(t *testing.T) {
	_, err := NewOIDCVerifier(context.Background(), "")
	assert.Error(t, err)

	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	_, err = NewOIDCVerifier(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OIDC provider")
}

func TestUserID_Empty(t *testing.T) {
	assert.Equal(t, "", UserID(context.Background()))
}
