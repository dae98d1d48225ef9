// Package auth implements the bearer token codec: HS256-signed JWTs that
// carry the subject email and a snapshot of the user's authorities.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/userservice/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const claimAuthorities = "authorities"

// Claims is the decoded token payload.
type Claims struct {
	Subject     string
	ID          string
	IssuedAt    time.Time
	ExpiresAt   time.Time
	Authorities []string
	// Extra holds every claim not listed above.
	Extra map[string]any
}

// Codec mints and decodes tokens with a single shared HMAC secret.
type Codec struct {
	secret []byte
	now    func() time.Time
}

// Option configures a Codec.
type Option func(*Codec)

// WithClock replaces the wall clock used for the expiration check.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

func NewCodec(secret []byte, opts ...Option) *Codec {
	c := &Codec{secret: secret, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Now returns the codec's current time.
func (c *Codec) Now() time.Time {
	return c.now()
}

// Mint signs a token for subject. Reserved claims in extra are overwritten.
// Every token gets a random jti so two tokens minted within the same second
// for the same user are still distinct strings.
func (c *Codec) Mint(subject string, authorities []string, extra map[string]any, issuedAt time.Time, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{}
	for k, v := range extra {
		claims[k] = v
	}
	if authorities == nil {
		authorities = []string{}
	}
	claims["sub"] = subject
	claims["jti"] = uuid.NewString()
	claims["iat"] = jwt.NewNumericDate(issuedAt)
	claims["exp"] = jwt.NewNumericDate(issuedAt.Add(ttl))
	claims[claimAuthorities] = authorities

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Decode verifies the signature and extracts the claims.
//
// A token that cannot be parsed, is not signed with HS256 under the
// configured secret, or lacks a subject or expiration fails with
// common.ErrInvalidToken and nil claims. A verified token whose expiration
// has passed returns its claims together with common.ErrTokenExpired.
func (c *Codec) Decode(tokenString string) (*Claims, error) {
	mc := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokenString, mc, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	claims, err := fromMapClaims(mc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	if claims.ExpiresAt.Before(c.now()) {
		return claims, common.ErrTokenExpired
	}
	return claims, nil
}

func fromMapClaims(mc jwt.MapClaims) (*Claims, error) {
	sub, err := mc.GetSubject()
	if err != nil {
		return nil, err
	}
	if sub == "" {
		return nil, errors.New("missing subject")
	}
	exp, err := mc.GetExpirationTime()
	if err != nil {
		return nil, err
	}
	if exp == nil {
		return nil, errors.New("missing expiration")
	}
	iat, err := mc.GetIssuedAt()
	if err != nil {
		return nil, err
	}

	claims := &Claims{
		Subject:   sub,
		ExpiresAt: exp.Time.UTC(),
		Extra:     map[string]any{},
	}
	if iat != nil {
		claims.IssuedAt = iat.Time.UTC()
	}
	if jti, ok := mc["jti"].(string); ok {
		claims.ID = jti
	}

	switch raw := mc[claimAuthorities].(type) {
	case nil:
	case []any:
		for _, a := range raw {
			s, ok := a.(string)
			if !ok {
				return nil, fmt.Errorf("authority %v is not a string", a)
			}
			claims.Authorities = append(claims.Authorities, s)
		}
	default:
		return nil, errors.New("authorities claim is not a list")
	}

	for k, v := range mc {
		switch k {
		case "sub", "jti", "iat", "exp", claimAuthorities:
		default:
			claims.Extra[k] = v
		}
	}
	return claims, nil
}
