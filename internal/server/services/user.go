// Package services contains the business logic of the user service: token
// lifecycle (TokenService) and account flows (UserService).
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
	"github.com/dmitrijs2005/userservice/internal/server/metrics"
	"github.com/dmitrijs2005/userservice/internal/server/models"
	"github.com/dmitrijs2005/userservice/internal/server/passwords"
	"github.com/dmitrijs2005/userservice/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// RegisterRequest carries the fields of a new account.
type RegisterRequest struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// LoginResult is returned by a successful Login.
type LoginResult struct {
	UserInfo models.UserInfo
	Token    string
}

// UserService provides account operations:
// - Register: create users with the USER role
// - Login: verify credentials and issue a token
// - Subscribe: grant PREMIUM_USER and rotate the caller's token
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	tokens      *TokenService
	hasher      passwords.Hasher
	logger      logging.Logger
	metrics     *metrics.Metrics
	now         func() time.Time
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, ts *TokenService, h passwords.Hasher,
	logger logging.Logger, mt *metrics.Metrics) *UserService {
	return &UserService{
		db:          db,
		repomanager: m,
		tokens:      ts,
		hasher:      h,
		logger:      logger.With("module", "user_service"),
		metrics:     mt,
		now:         time.Now,
	}
}

// Register creates an account holding the USER role. An email already in
// use yields common.ErrEmailTaken; a missing USER role yields
// common.ErrConfigurationMissing.
func (s *UserService) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	exists, err := s.repomanager.Users(s.db).ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("error checking email: %w", err)
	}
	if exists {
		return nil, common.ErrEmailTaken
	}

	role, err := s.findRole(ctx, common.RoleUser)
	if err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		PasswordHash: hash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Roles:        []models.Role{*role},
		CreatedAt:    s.now().UTC(),
	}

	if err := s.repomanager.InTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repomanager.Users(tx).Create(ctx, user)
	}); err != nil {
		if errors.Is(err, common.ErrEmailTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	s.logger.Info(ctx, "user registered", "user_id", user.ID)
	return user, nil
}

// Login verifies the credentials and issues a new token. Unknown emails and
// wrong passwords both yield common.ErrWrongCredentials.
func (s *UserService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.repomanager.Users(s.db).FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrWrongCredentials
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}

	ok, err := s.hasher.Compare(user.PasswordHash, password)
	if err != nil {
		s.logger.Error(ctx, "stored password hash unreadable", "user_id", user.ID, "error", err)
		return nil, common.ErrWrongCredentials
	}
	if !ok {
		return nil, common.ErrWrongCredentials
	}

	token, err := s.tokens.Issue(ctx, user)
	if err != nil {
		return nil, err
	}

	return &LoginResult{UserInfo: user.Info(), Token: token}, nil
}

// Subscribe grants PREMIUM_USER to the owner of token, replaces token with
// a newly minted one carrying the new authority, and returns the new token.
//
// The old token is deleted, the new one stored under its own string and
// the user saved in one transaction when the backend supports it.
func (s *UserService) Subscribe(ctx context.Context, token string) (string, error) {
	claims, err := s.tokens.Decode(token)
	if claims == nil {
		return "", common.ErrInvalidToken
	}
	if errors.Is(err, common.ErrTokenExpired) {
		return "", common.ErrTokenExpired
	}

	user, err := s.repomanager.Users(s.db).FindByEmail(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.ErrInvalidToken
		}
		return "", fmt.Errorf("error loading user: %w", err)
	}

	if user.HasAuthority(common.RolePremiumUser) {
		return "", common.ErrAlreadyElevated
	}

	role, err := s.findRole(ctx, common.RolePremiumUser)
	if err != nil {
		return "", err
	}
	user.AddRole(*role)

	exists, err := s.repomanager.Tokens(s.db).Exists(ctx, token)
	if err != nil {
		return "", fmt.Errorf("error looking up token: %w", err)
	}
	if !exists {
		return "", common.ErrInvalidToken
	}

	var newToken string
	err = s.repomanager.InTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) error {
		deleted, err := s.repomanager.Tokens(tx).Delete(ctx, token)
		if err != nil {
			return fmt.Errorf("error deleting token: %w", err)
		}
		// revoked after the existence check
		if !deleted {
			return common.ErrInvalidToken
		}
		if newToken, err = s.tokens.issue(ctx, tx, user, originElevation); err != nil {
			return err
		}
		if err := s.repomanager.Users(tx).Save(ctx, user); err != nil {
			return fmt.Errorf("error saving user: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	s.metrics.TokensRevoked.With("reason", metrics.RevokedRotated).Add(1)
	s.logger.Info(ctx, "user elevated", "user_id", user.ID, "role", common.RolePremiumUser)
	return newToken, nil
}

func (s *UserService) findRole(ctx context.Context, name string) (*models.Role, error) {
	role, err := s.repomanager.Roles(s.db).FindByName(ctx, name)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.logger.Error(ctx, "role is not provisioned", "role", name)
			return nil, common.ErrConfigurationMissing
		}
		return nil, fmt.Errorf("error loading role %s: %w", name, err)
	}
	return role, nil
}
