package services

import (
	"bytes"
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/userservice/internal/logging"
	"github.com/dmitrijs2005/userservice/internal/server/auth"
	"github.com/dmitrijs2005/userservice/internal/server/metrics"
	"github.com/dmitrijs2005/userservice/internal/server/models"
	"github.com/dmitrijs2005/userservice/internal/server/passwords"
	"github.com/dmitrijs2005/userservice/internal/server/repositories/memory"
	"github.com/dmitrijs2005/userservice/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testTTL = time.Hour

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	store   *memory.Store
	rm      repomanager.RepositoryManager
	clock   *testClock
	codec   *auth.Codec
	metrics *metrics.Metrics
	logs    *bytes.Buffer
	logger  logging.Logger
	tokens  *TokenService
	users   *UserService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore(memory.DefaultRoles()...)
	return newFixtureWith(t, store, repomanager.NewInMemoryRepositoryManager(store), nil)
}

func newFixtureWith(t *testing.T, store *memory.Store, rm repomanager.RepositoryManager, db *sql.DB) *fixture {
	t.Helper()
	f := &fixture{
		store:   store,
		rm:      rm,
		clock:   &testClock{now: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)},
		metrics: metrics.New(),
		logs:    &bytes.Buffer{},
	}
	f.logger = logging.NewSlogLogger(slog.New(slog.NewTextHandler(f.logs, &slog.HandlerOptions{Level: slog.LevelDebug})))
	f.codec = auth.NewCodec([]byte("test-secret"), auth.WithClock(f.clock.Now))
	f.tokens = NewTokenService(db, rm, f.codec, testTTL, f.logger, f.metrics)
	f.users = NewUserService(db, rm, f.tokens, passwords.NewBcrypt(bcrypt.MinCost), f.logger, f.metrics)
	f.users.now = f.clock.Now
	return f
}

// seedUser stores a user holding USER and returns it.
func (f *fixture) seedUser(t *testing.T, email string) *models.User {
	t.Helper()
	u, err := f.users.Register(context.Background(), RegisterRequest{
		Email: email, Password: "pa55word!", FirstName: "First", LastName: "Last",
	})
	require.NoError(t, err)
	return u
}

// login issues a token for a seeded user.
func (f *fixture) login(t *testing.T, email string) string {
	t.Helper()
	res, err := f.users.Login(context.Background(), email, "pa55word!")
	require.NoError(t, err)
	return res.Token
}

func (f *fixture) liveToken(t *testing.T, token string) bool {
	t.Helper()
	ok, err := f.store.Tokens().Exists(context.Background(), token)
	require.NoError(t, err)
	return ok
}

func (f *fixture) user(t *testing.T, email string) *models.User {
	t.Helper()
	u, err := f.store.Users().FindByEmail(context.Background(), email)
	require.NoError(t, err)
	return u
}
