package classroom

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSigningKey = []byte("test-signing-key")

func testIdentity(role UserRole) Identity {
	return authIdentity{
		id:    "8a6e0804-2bd0-4672-b79d-d97027f9071a",
		email: "docente@uni.edu",
		role:  role,
	}
}

func TestTokenServiceRoundTrip(t *testing.T) {
	ts := NewTokenService(testSigningKey, 24, "go-classroom", nil)

	token, err := ts.Generate(testIdentity(RoleDocente))
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ts.Validate(token)
	require.NoError(t, err)

	assert.Equal(t, "8a6e0804-2bd0-4672-b79d-d97027f9071a", claims.UserID())
	assert.Equal(t, "8a6e0804-2bd0-4672-b79d-d97027f9071a", claims.Subject())
	assert.Equal(t, RoleDocente, claims.Role())
	assert.Equal(t, "docente@uni.edu", claims.Email())
	assert.True(t, claims.HasRole(RoleDocente))
	assert.False(t, claims.HasRole(RoleSecretaria))

	// a one day session
	ttl := time.Until(claims.Expires())
	assert.InDelta(t, 24.0, ttl.Hours(), 0.02)
}

func TestTokenServiceMissingSigningKey(t *testing.T) {
	ts := NewTokenService(nil, 24, "go-classroom", nil)

	_, err := ts.Generate(testIdentity(RoleDocente))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingSigningKey)

	_, err = ts.Validate("whatever")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingSigningKey)
}

func TestTokenServiceRejectsWrongKey(t *testing.T) {
	issuer := NewTokenService([]byte("one-key"), 24, "go-classroom", nil)
	verifier := NewTokenService([]byte("another-key"), 24, "go-classroom", nil)

	token, err := issuer.Generate(testIdentity(RoleDocente))
	require.NoError(t, err)

	_, err = verifier.Validate(token)
	require.Error(t, err)
	assert.True(t, IsMalformedError(err))
}

func TestTokenServiceRejectsGarbage(t *testing.T) {
	ts := NewTokenService(testSigningKey, 24, "go-classroom", nil)

	for _, raw := range []string{"", "not-a-token", "a.b.c"} {
		_, err := ts.Validate(raw)
		require.Error(t, err)
		assert.True(t, IsMalformedError(err))
	}
}

func TestTokenServiceRejectsExpired(t *testing.T) {
	ts := NewTokenService(testSigningKey, 24, "go-classroom", nil)

	now := time.Now()
	token, err := ts.SignClaims(&JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "go-classroom",
			Subject:   "8a6e0804-2bd0-4672-b79d-d97027f9071a",
			IssuedAt:  jwt.NewNumericDate(now.Add(-2 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(now.Add(-time.Hour)),
		},
		UID:      "8a6e0804-2bd0-4672-b79d-d97027f9071a",
		UserRole: string(RoleDocente),
	})
	require.NoError(t, err)

	_, err = ts.Validate(token)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTokenExpired)
	assert.True(t, IsTokenExpiredError(err))
}

func TestTokenServiceRejectsWrongIssuer(t *testing.T) {
	issuer := NewTokenService(testSigningKey, 24, "somebody-else", nil)
	verifier := NewTokenService(testSigningKey, 24, "go-classroom", nil)

	token, err := issuer.Generate(testIdentity(RoleDocente))
	require.NoError(t, err)

	_, err = verifier.Validate(token)
	require.Error(t, err)

	var richErr *goerrors.Error
	require.True(t, goerrors.As(err, &richErr))
	assert.Equal(t, goerrors.CategoryAuth, richErr.Category)
}

func TestTokenServiceRejectsUnexpectedSigningMethod(t *testing.T) {
	ts := NewTokenService(testSigningKey, 24, "go-classroom", nil)

	// alg=none, trivially forgeable, must never validate
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, &JWTClaims{
		UID:      "8a6e0804-2bd0-4672-b79d-d97027f9071a",
		UserRole: string(RoleSecretaria),
	})
	raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ts.Validate(raw)
	require.Error(t, err)
}

func TestTokenExpirationDefaults(t *testing.T) {
	ts := NewTokenService(testSigningKey, 0, "go-classroom", nil)

	token, err := ts.Generate(testIdentity(RoleSecretaria))
	require.NoError(t, err)

	claims, err := ts.Validate(token)
	require.NoError(t, err)

	ttl := time.Until(claims.Expires())
	assert.InDelta(t, 24.0, ttl.Hours(), 0.02)
}
