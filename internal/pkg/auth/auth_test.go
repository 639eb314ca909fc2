package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/marketplace-api/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Name: "marketplace-test"},
		JWT: config.JWTConfig{
			Secret:             "0123456789abcdef0123456789abcdef",
			AccessTokenExpiry:  time.Hour,
			RefreshTokenExpiry: 24 * time.Hour,
		},
		Security: config.SecurityConfig{BcryptCost: 4},
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	jm := NewJWTManager(testConfig())

	pair, err := jm.GenerateTokenPair(42, "jane@example.com", true)
	require.NoError(t, err)

	claims, err := jm.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.True(t, claims.IsAdmin)

	_, err = jm.ValidateAccessToken(pair.RefreshToken)
	assert.ErrorContains(t, err, "expected access")

	refresh, err := jm.ValidateRefreshToken(pair.RefreshToken)
	require.NoError(t, err)
	assert.False(t, refresh.IsAdmin)
}

func TestExpiredTokenRejected(t *testing.T) {
	jm := NewJWTManager(testConfig())
	jm.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, err := jm.GenerateAccessToken(1, "a@example.com", false)
	require.NoError(t, err)

	jm.now = func() time.Time { return time.Now().UTC() }
	_, err = jm.ValidateAccessToken(token)
	assert.Error(t, err)
}

func TestTokenSignedWithOtherSecretRejected(t *testing.T) {
	other := testConfig()
	other.JWT.Secret = "ffffffffffffffffffffffffffffffff"

	token, err := NewJWTManager(other).GenerateAccessToken(1, "a@example.com", false)
	require.NoError(t, err)

	_, err = NewJWTManager(testConfig()).ValidateAccessToken(token)
	assert.Error(t, err)
}

func TestExtractTokenFromHeader(t *testing.T) {
	assert.Equal(t, "abc", ExtractTokenFromHeader("Bearer abc"))
	assert.Equal(t, "abc", ExtractTokenFromHeader("bearer abc"))
	assert.Empty(t, ExtractTokenFromHeader("Basic abc"))
	assert.Empty(t, ExtractTokenFromHeader(""))
}

func TestPasswordHashAndVerify(t *testing.T) {
	pm := NewPasswordManager(testConfig())

	hash, err := pm.HashPassword("Sunflower9")
	require.NoError(t, err)
	assert.NoError(t, pm.VerifyPassword("Sunflower9", hash))
	assert.Error(t, pm.VerifyPassword("Sunflower8", hash))
}

func TestValidatePassword(t *testing.T) {
	pm := NewPasswordManager(testConfig())

	cases := map[string]bool{
		"Sunflower9":  true,
		"short1A":     false,
		"alllower99":  false,
		"ALLUPPER99":  false,
		"NoDigitsHere": false,
		"Baaad12345x": false,
		"MyPassword1": false,
	}
	for pw, ok := range cases {
		err := pm.ValidatePassword(pw)
		if ok {
			assert.NoError(t, err, pw)
		} else {
			assert.Error(t, err, pw)
		}
	}
}

func TestGenerateTemporaryPassword(t *testing.T) {
	pm := NewPasswordManager(testConfig())
	pw, err := pm.GenerateTemporaryPassword()
	require.NoError(t, err)
	assert.NoError(t, pm.ValidatePassword(pw))
}
