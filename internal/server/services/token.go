package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/userservice/internal/common"
	"github.com/dmitrijs2005/userservice/internal/dbx"
	"github.com/dmitrijs2005/userservice/internal/logging"
	"github.com/dmitrijs2005/userservice/internal/server/auth"
	"github.com/dmitrijs2005/userservice/internal/server/metrics"
	"github.com/dmitrijs2005/userservice/internal/server/models"
	"github.com/dmitrijs2005/userservice/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// Token issuance origins, used as metric labels.
const (
	originLogin     = "login"
	originElevation = "elevation"
)

// TokenService issues, validates and revokes bearer tokens. A token is
// accepted only while its row is present in the token store.
type TokenService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	codec       *auth.Codec
	ttl         time.Duration
	logger      logging.Logger
	metrics     *metrics.Metrics
}

func NewTokenService(db *sql.DB, m repomanager.RepositoryManager, codec *auth.Codec, ttl time.Duration,
	logger logging.Logger, mt *metrics.Metrics) *TokenService {
	return &TokenService{
		db:          db,
		repomanager: m,
		codec:       codec,
		ttl:         ttl,
		logger:      logger.With("module", "token_service"),
		metrics:     mt,
	}
}

// Issue mints a token carrying the user's current authorities and records
// it in the token store. Every call adds a new row.
func (s *TokenService) Issue(ctx context.Context, user *models.User) (string, error) {
	return s.issue(ctx, s.db, user, originLogin)
}

func (s *TokenService) issue(ctx context.Context, db dbx.DBTX, user *models.User, origin string) (string, error) {
	now := s.codec.Now()
	signed, err := s.codec.Mint(user.Email, user.Authorities(), nil, now, s.ttl)
	if err != nil {
		return "", fmt.Errorf("error minting token: %w", err)
	}

	token := &models.Token{
		ID:        uuid.NewString(),
		Token:     signed,
		Type:      common.TokenTypeBearer,
		UserID:    user.ID,
		CreatedAt: now,
		// the signed exp claim has second precision
		ExpiresAt: now.Add(s.ttl).Truncate(time.Second),
	}
	if err := s.repomanager.Tokens(db).Save(ctx, token); err != nil {
		return "", fmt.Errorf("error saving token: %w", err)
	}

	s.metrics.TokensIssued.With("origin", origin).Add(1)
	return signed, nil
}

// Authenticate decodes the token, resolves the user it names and validates
// the token against that user. A subject with no matching user is reported
// as common.ErrInvalidToken.
func (s *TokenService) Authenticate(ctx context.Context, token string) (*models.Principal, error) {
	claims, decodeErr := s.codec.Decode(token)
	if claims == nil {
		s.logger.Debug(ctx, "token rejected", "reason", decodeErr)
		return nil, s.outcome(common.ErrInvalidToken)
	}

	user, err := s.repomanager.Users(s.db).FindByEmail(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			if errors.Is(decodeErr, common.ErrTokenExpired) {
				s.purgeExpired(ctx, token)
			}
			return nil, s.outcome(common.ErrInvalidToken)
		}
		return nil, fmt.Errorf("error resolving token subject: %w", err)
	}

	return s.validate(ctx, token, claims, decodeErr, user)
}

// Validate checks token for user. Rejections are tried in a fixed order and
// the first that applies wins:
//
//  1. the token cannot be decoded: common.ErrInvalidToken
//  2. its subject is not user's email: common.ErrInvalidUser
//  3. it has expired: its store row is deleted, common.ErrTokenExpired
//  4. it is not in the token store: common.ErrInvalidToken
//
// Otherwise the principal with the user's current authorities is returned.
func (s *TokenService) Validate(ctx context.Context, token string, user *models.User) (*models.Principal, error) {
	claims, decodeErr := s.codec.Decode(token)
	if claims == nil {
		s.logger.Debug(ctx, "token rejected", "reason", decodeErr)
		return nil, s.outcome(common.ErrInvalidToken)
	}
	return s.validate(ctx, token, claims, decodeErr, user)
}

func (s *TokenService) validate(ctx context.Context, token string, claims *auth.Claims, decodeErr error, user *models.User) (*models.Principal, error) {
	if claims.Subject != user.Email {
		return nil, s.outcome(common.ErrInvalidUser)
	}

	if errors.Is(decodeErr, common.ErrTokenExpired) {
		s.purgeExpired(ctx, token)
		return nil, s.outcome(common.ErrTokenExpired)
	}

	exists, err := s.repomanager.Tokens(s.db).Exists(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("error looking up token: %w", err)
	}
	if !exists {
		return nil, s.outcome(common.ErrInvalidToken)
	}

	s.metrics.Validations.With("outcome", "accepted").Add(1)
	return user.Principal(), nil
}

// purgeExpired removes an expired token's row. Failures are only logged.
func (s *TokenService) purgeExpired(ctx context.Context, token string) {
	deleted, err := s.repomanager.Tokens(s.db).Delete(ctx, token)
	if err != nil {
		s.logger.Warn(ctx, "failed to purge expired token", "error", err)
		return
	}
	if deleted {
		s.metrics.TokensRevoked.With("reason", metrics.RevokedExpired).Add(1)
	}
}

// Revoke deletes token from the store and reports whether it was live.
// The token is not decoded; store membership alone decides.
func (s *TokenService) Revoke(ctx context.Context, token string) (bool, error) {
	deleted, err := s.repomanager.Tokens(s.db).Delete(ctx, token)
	if err != nil {
		return false, fmt.Errorf("error deleting token: %w", err)
	}
	if deleted {
		s.metrics.TokensRevoked.With("reason", metrics.RevokedLogout).Add(1)
	}
	return deleted, nil
}

// Decode exposes the codec to flows that need the subject without a store check.
func (s *TokenService) Decode(token string) (*auth.Claims, error) {
	return s.codec.Decode(token)
}

func (s *TokenService) outcome(err error) error {
	label := "invalid_token"
	switch {
	case errors.Is(err, common.ErrInvalidUser):
		label = "invalid_user"
	case errors.Is(err, common.ErrTokenExpired):
		label = "expired"
	}
	s.metrics.Validations.With("outcome", label).Add(1)
	return err
}
