package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/userservice/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock(ts time.Time) func() time.Time { return func() time.Time { return ts } }

func TestMintAndDecode_Success(t *testing.T) {
	t.Parallel()

	c := NewCodec([]byte("super-secret"), WithClock(fixedClock(t0.Add(time.Minute))))

	tok, err := c.Mint("alice@example.com", []string{"USER", "PREMIUM_USER"}, map[string]any{"tenant": "t1"}, t0, time.Hour)
	require.NoError(t, err)

	claims, err := c.Decode(tok)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", claims.Subject)
	assert.Equal(t, []string{"USER", "PREMIUM_USER"}, claims.Authorities)
	assert.Equal(t, t0, claims.IssuedAt)
	assert.Equal(t, t0.Add(time.Hour), claims.ExpiresAt)
	assert.NotEmpty(t, claims.ID)
	assert.Equal(t, map[string]any{"tenant": "t1"}, claims.Extra)
}

func TestMint_ReservedExtraClaimsAreOverwritten(t *testing.T) {
	t.Parallel()

	c := NewCodec([]byte("k"), WithClock(fixedClock(t0)))
	tok, err := c.Mint("bob@example.com", nil, map[string]any{"sub": "mallory@example.com"}, t0, time.Hour)
	require.NoError(t, err)

	claims, err := c.Decode(tok)
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", claims.Subject)
	assert.Empty(t, claims.Authorities)
}

func TestMint_SameSecondTokensDiffer(t *testing.T) {
	t.Parallel()

	c := NewCodec([]byte("k"))
	a, err := c.Mint("u@example.com", []string{"USER"}, nil, t0, time.Hour)
	require.NoError(t, err)
	b, err := c.Mint("u@example.com", []string{"USER"}, nil, t0, time.Hour)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestDecode_ExpiredReturnsClaims(t *testing.T) {
	t.Parallel()

	c := NewCodec([]byte("secret"), WithClock(fixedClock(t0.Add(2*time.Hour))))
	tok, err := c.Mint("u1@example.com", []string{"USER"}, nil, t0, time.Hour)
	require.NoError(t, err)

	claims, err := c.Decode(tok)
	require.ErrorIs(t, err, common.ErrTokenExpired)
	require.NotNil(t, claims)
	assert.Equal(t, "u1@example.com", claims.Subject)
	assert.False(t, errors.Is(err, common.ErrInvalidToken))
}

func TestDecode_ExactExpiryIsStillValid(t *testing.T) {
	t.Parallel()

	c := NewCodec([]byte("secret"), WithClock(fixedClock(t0.Add(time.Hour))))
	tok, err := c.Mint("u1@example.com", nil, nil, t0, time.Hour)
	require.NoError(t, err)

	_, err = c.Decode(tok)
	require.NoError(t, err)
}

func TestDecode_Invalid(t *testing.T) {
	t.Parallel()

	good := NewCodec([]byte("right-secret"), WithClock(fixedClock(t0)))
	signedElsewhere, err := NewCodec([]byte("wrong-secret")).Mint("u2@example.com", nil, nil, t0, time.Hour)
	require.NoError(t, err)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": jwt.NewNumericDate(t0.Add(time.Hour)),
	}).SignedString([]byte("right-secret"))
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u2@example.com",
	}).SignedString([]byte("right-secret"))
	require.NoError(t, err)

	otherAlg, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{
		"sub": "u2@example.com",
		"exp": jwt.NewNumericDate(t0.Add(time.Hour)),
	}).SignedString([]byte("right-secret"))
	require.NoError(t, err)

	badAuthorities, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":         "u2@example.com",
		"exp":         jwt.NewNumericDate(t0.Add(time.Hour)),
		"authorities": "USER",
	}).SignedString([]byte("right-secret"))
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "u2@example.com",
		"exp": jwt.NewNumericDate(t0.Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not.a.jwt"},
		{"empty", ""},
		{"wrong secret", signedElsewhere},
		{"no subject", noSubject},
		{"no expiry", noExpiry},
		{"HS512", otherAlg},
		{"authorities not a list", badAuthorities},
		{"alg none", unsigned},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := good.Decode(tt.token)
			require.ErrorIs(t, err, common.ErrInvalidToken)
			assert.Nil(t, claims)
		})
	}
}
