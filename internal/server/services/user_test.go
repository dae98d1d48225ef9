package services

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/userservice/internal/common"
	"github.com/dmitrijs2005/userservice/internal/dbx"
	"github.com/dmitrijs2005/userservice/internal/server/models"
	"github.com/dmitrijs2005/userservice/internal/server/passwords"
	"github.com/dmitrijs2005/userservice/internal/server/repositories/memory"
	"github.com/dmitrijs2005/userservice/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/userservice/internal/server/repositories/tokens"
	"github.com/dmitrijs2005/userservice/internal/server/repositories/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestRegister_Success(t *testing.T) {
	f := newFixture(t)

	u, err := f.users.Register(context.Background(), RegisterRequest{
		Email: "alice@example.com", Password: "s3cret", FirstName: "Alice", LastName: "Smith",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.False(t, u.EmailVerified)
	assert.Equal(t, []string{common.RoleUser}, u.Authorities())
	assert.Equal(t, f.clock.Now(), u.CreatedAt)

	stored := f.user(t, "alice@example.com")
	assert.NotEqual(t, "s3cret", stored.PasswordHash)
	ok, err := passwords.NewBcrypt(bcrypt.MinCost).Compare(stored.PasswordHash, "s3cret")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRegister_EmailTaken(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "alice@example.com")

	_, err := f.users.Register(context.Background(), RegisterRequest{Email: "ALICE@example.com", Password: "x"})
	require.ErrorIs(t, err, common.ErrEmailTaken)
}

func TestRegister_RoleMissing(t *testing.T) {
	f := newFixture(t)
	f.store.RemoveRole(common.RoleUser)

	_, err := f.users.Register(context.Background(), RegisterRequest{Email: "a@example.com", Password: "x"})
	require.ErrorIs(t, err, common.ErrConfigurationMissing)
	assert.Contains(t, f.logs.String(), "role is not provisioned")
	assert.Contains(t, f.logs.String(), "role=USER")

	ok, err := f.store.Users().ExistsByEmail(context.Background(), "a@example.com")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "alice@example.com")

	t.Run("success", func(t *testing.T) {
		res, err := f.users.Login(context.Background(), "Alice@Example.com", "pa55word!")
		require.NoError(t, err)
		assert.Equal(t, models.UserInfo{FirstName: "First", LastName: "Last", Email: "alice@example.com"}, res.UserInfo)
		assert.True(t, f.liveToken(t, res.Token))
	})

	tests := []struct {
		name, email, password string
	}{
		{"wrong password", "alice@example.com", "nope"},
		{"unknown email", "bob@example.com", "pa55word!"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.users.Login(context.Background(), tt.email, tt.password)
			require.ErrorIs(t, err, common.ErrWrongCredentials)
		})
	}
}

func TestLogin_UnreadableHash(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Users().Create(context.Background(), &models.User{
		ID: "u1", Email: "legacy@example.com", PasswordHash: "plaintext",
	}))

	_, err := f.users.Login(context.Background(), "legacy@example.com", "plaintext")
	require.ErrorIs(t, err, common.ErrWrongCredentials)
	assert.Contains(t, f.logs.String(), "stored password hash unreadable")
}

func TestSubscribe_RotatesToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedUser(t, "alice@example.com")
	old := f.login(t, "alice@example.com")

	f.clock.Advance(1)
	newTok, err := f.users.Subscribe(ctx, old)
	require.NoError(t, err)
	require.NotEqual(t, old, newTok)

	assert.False(t, f.liveToken(t, old), "old token is revoked")
	assert.True(t, f.liveToken(t, newTok), "new token is stored under its own string")

	assert.ElementsMatch(t, []string{common.RoleUser, common.RolePremiumUser}, f.user(t, "alice@example.com").Authorities())

	claims, err := f.codec.Decode(newTok)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{common.RoleUser, common.RolePremiumUser}, claims.Authorities)

	p, err := f.tokens.Authenticate(ctx, newTok)
	require.NoError(t, err)
	assert.True(t, p.HasAuthority(common.RolePremiumUser))

	_, err = f.tokens.Authenticate(ctx, old)
	require.ErrorIs(t, err, common.ErrInvalidToken)

	_, err = f.users.Subscribe(ctx, newTok)
	require.ErrorIs(t, err, common.ErrAlreadyElevated)
}

func TestSubscribe_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T, f *fixture) string
		wantErr error
	}{
		{
			name:    "undecodable",
			setup:   func(t *testing.T, f *fixture) string { return "garbage" },
			wantErr: common.ErrInvalidToken,
		},
		{
			name: "unknown user",
			setup: func(t *testing.T, f *fixture) string {
				tok, err := f.codec.Mint("ghost@example.com", nil, nil, f.clock.Now(), testTTL)
				require.NoError(t, err)
				return tok
			},
			wantErr: common.ErrInvalidToken,
		},
		{
			name: "expired",
			setup: func(t *testing.T, f *fixture) string {
				f.seedUser(t, "a@example.com")
				tok := f.login(t, "a@example.com")
				f.clock.Advance(2 * testTTL)
				return tok
			},
			wantErr: common.ErrTokenExpired,
		},
		{
			name: "premium role not provisioned",
			setup: func(t *testing.T, f *fixture) string {
				f.seedUser(t, "a@example.com")
				f.store.RemoveRole(common.RolePremiumUser)
				return f.login(t, "a@example.com")
			},
			wantErr: common.ErrConfigurationMissing,
		},
		{
			name: "logged out token",
			setup: func(t *testing.T, f *fixture) string {
				f.seedUser(t, "a@example.com")
				tok := f.login(t, "a@example.com")
				_, err := f.tokens.Revoke(context.Background(), tok)
				require.NoError(t, err)
				return tok
			},
			wantErr: common.ErrInvalidToken,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tok := tt.setup(t, f)

			_, err := f.users.Subscribe(context.Background(), tok)
			require.ErrorIs(t, err, tt.wantErr)

			if u, err := f.store.Users().FindByEmail(context.Background(), "a@example.com"); err == nil {
				assert.False(t, u.HasAuthority(common.RolePremiumUser), "role must not be persisted")
			}
		})
	}
}

// failingUsers fails Save, simulating a write error after the token rotation.
type failingUsers struct {
	users.Repository
	saveErr error
}

func (f *failingUsers) Save(ctx context.Context, u *models.User) error { return f.saveErr }

// txManager runs InTx through a real database/sql transaction so that
// commit and rollback can be observed with sqlmock.
type txManager struct {
	*repomanager.InMemoryRepositoryManager
	users users.Repository
}

func (m *txManager) Users(db dbx.DBTX) users.Repository {
	if _, inTx := db.(*sql.Tx); inTx {
		return m.users
	}
	return m.InMemoryRepositoryManager.Users(db)
}

func (m *txManager) InTx(ctx context.Context, db *sql.DB, fn dbx.TxFunc) error {
	return dbx.WithTx(ctx, db, nil, fn)
}

func TestSubscribe_RollsBackWhenUserSaveFails(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := memory.NewStore(memory.DefaultRoles()...)
	boom := errors.New("disk full")
	rm := &txManager{
		InMemoryRepositoryManager: repomanager.NewInMemoryRepositoryManager(store),
		users:                     &failingUsers{Repository: store.Users(), saveErr: boom},
	}
	f := newFixtureWith(t, store, rm, db)

	mock.ExpectBegin() // register
	mock.ExpectCommit()
	f.seedUser(t, "a@example.com")
	tok := f.login(t, "a@example.com")

	mock.ExpectBegin() // subscribe
	mock.ExpectRollback()

	_, err = f.users.Subscribe(context.Background(), tok)
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "error saving user")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubscribe_CommitsRotation(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := memory.NewStore(memory.DefaultRoles()...)
	rm := &txManager{
		InMemoryRepositoryManager: repomanager.NewInMemoryRepositoryManager(store),
		users:                     store.Users(),
	}
	f := newFixtureWith(t, store, rm, db)

	mock.ExpectBegin()
	mock.ExpectCommit()
	f.seedUser(t, "a@example.com")
	tok := f.login(t, "a@example.com")

	mock.ExpectBegin()
	mock.ExpectCommit()

	newTok, err := f.users.Subscribe(context.Background(), tok)
	require.NoError(t, err)
	assert.True(t, f.liveToken(t, newTok))
	require.NoError(t, mock.ExpectationsWereMet())
}

// revokedAfterCheck reports the token as live and then removes it, as a
// concurrent logout landing right after the existence check would.
type revokedAfterCheck struct {
	tokens.Repository
}

func (r *revokedAfterCheck) Exists(ctx context.Context, token string) (bool, error) {
	ok, err := r.Repository.Exists(ctx, token)
	if ok {
		if _, err := r.Repository.Delete(ctx, token); err != nil {
			return false, err
		}
	}
	return ok, err
}

func TestSubscribe_TokenRevokedDuringElevation(t *testing.T) {
	store := memory.NewStore(memory.DefaultRoles()...)
	rm := &tokenOverrideManager{
		InMemoryRepositoryManager: repomanager.NewInMemoryRepositoryManager(store),
		tokens:                    &revokedAfterCheck{Repository: store.Tokens()},
	}
	f := newFixtureWith(t, store, rm, nil)
	f.seedUser(t, "a@example.com")
	tok := f.login(t, "a@example.com")

	_, err := f.users.Subscribe(context.Background(), tok)
	require.ErrorIs(t, err, common.ErrInvalidToken)

	assert.Zero(t, store.TokenCount(), "no replacement token is stored")
	assert.False(t, f.user(t, "a@example.com").HasAuthority(common.RolePremiumUser))
}

// racingUsers misses the duplicate on the existence check, as a concurrent
// registration committing in between would.
type racingUsers struct {
	users.Repository
}

func (r *racingUsers) ExistsByEmail(context.Context, string) (bool, error) { return false, nil }

type usersOverrideManager struct {
	*repomanager.InMemoryRepositoryManager
	users users.Repository
}

func (m *usersOverrideManager) Users(dbx.DBTX) users.Repository { return m.users }

func TestRegister_ConcurrentDuplicateIsEmailTaken(t *testing.T) {
	store := memory.NewStore(memory.DefaultRoles()...)
	rm := &usersOverrideManager{
		InMemoryRepositoryManager: repomanager.NewInMemoryRepositoryManager(store),
		users:                     &racingUsers{Repository: store.Users()},
	}
	f := newFixtureWith(t, store, rm, nil)
	f.seedUser(t, "a@example.com")

	_, err := f.users.Register(context.Background(), RegisterRequest{Email: "A@example.com", Password: "x"})
	require.ErrorIs(t, err, common.ErrEmailTaken)
}
