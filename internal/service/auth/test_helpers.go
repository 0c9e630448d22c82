package auth

import (
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/tasklist-api/internal/config"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// DefaultJWTConfig returns a standard configuration for JWT authentication suitable for testing.
func DefaultJWTConfig() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:                   "test-jwt-secret-that-is-32-chars-long",
		TokenLifetimeMinutes:        60,
		RefreshTokenLifetimeMinutes: 1440,
		BCryptCost:                  bcrypt.MinCost,
	}
}

// RequireTestJWTService creates a JWT service with DefaultJWTConfig and
// fails the test if that is not possible.
func RequireTestJWTService(t *testing.T) JWTService {
	t.Helper()
	svc, err := NewJWTService(DefaultJWTConfig())
	require.NoError(t, err, "Failed to create test JWT service")
	return svc
}

// GenerateAuthHeaderForTestingT creates an Authorization header value with a
// valid access token for userID.
func GenerateAuthHeaderForTestingT(t *testing.T, svc JWTService, userID uuid.UUID) string {
	t.Helper()
	token, err := svc.GenerateToken(t.Context(), userID)
	require.NoError(t, err, "Failed to generate auth header")
	return "Bearer " + token
}
