// Package server wires the user service together: it opens the database,
// applies migrations, selects the token store backend, builds the services
// and runs the HTTP server until the process is told to stop.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/userservice/internal/logging"
	"github.com/dmitrijs2005/userservice/internal/server/auth"
	"github.com/dmitrijs2005/userservice/internal/server/config"
	"github.com/dmitrijs2005/userservice/internal/server/metrics"
	"github.com/dmitrijs2005/userservice/internal/server/passwords"
	"github.com/dmitrijs2005/userservice/internal/server/repositories/memory"
	"github.com/dmitrijs2005/userservice/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/userservice/internal/server/repositories/tokens"
	"github.com/dmitrijs2005/userservice/internal/server/rest"
	"github.com/dmitrijs2005/userservice/internal/server/services"
	"github.com/redis/go-redis/v9"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const redisTokenPrefix = "userservice:token:"

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	redis   *redis.Client
	metrics *metrics.Metrics
	server  *rest.Server
}

func NewApp(c *config.Config) (*App, error) {
	return newApp(context.Background(), c, os.Stdout)
}

func newApp(ctx context.Context, c *config.Config, logOut io.Writer) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	app := &App{
		config:  c,
		logger:  logging.NewJSONLogger(logOut, c.SlogLevel()),
		metrics: metrics.New(),
	}

	if c.DatabaseDSN != "" {
		db, err := sql.Open("pgx", c.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("db init error: %w", err)
		}
		app.db = db
	}

	if c.TokenStore == config.TokenStoreRedis {
		app.redis = redis.NewClient(&redis.Options{Addr: c.RedisAddr})
	}

	rm := newRepositoryManager(c, app.db, app.redis)

	if app.db != nil {
		if err := rm.RunMigrations(ctx, app.db); err != nil {
			app.close()
			return nil, fmt.Errorf("migrations error: %w", err)
		}
	}

	hasher, err := passwords.New(c.PasswordHasher)
	if err != nil {
		app.close()
		return nil, err
	}

	codec := auth.NewCodec([]byte(c.SecretKey))
	ts := services.NewTokenService(app.db, rm, codec, c.TokenValidityDuration, app.logger, app.metrics)
	us := services.NewUserService(app.db, rm, ts, hasher, app.logger, app.metrics)

	app.server = rest.NewServer(c.EndpointAddrHTTP, app.logger, us, ts, app.metrics,
		rest.WithLegacyStatusCodes(c.LegacyStatusCodes),
		rest.WithPublicPaths(c.PublicPaths),
	)

	return app, nil
}

// newRepositoryManager picks the backends named by the configuration. A
// nil db selects the fully in-memory manager.
func newRepositoryManager(c *config.Config, db *sql.DB, rdb *redis.Client) repomanager.RepositoryManager {
	if db == nil {
		return repomanager.NewInMemoryRepositoryManager(memory.NewStore(memory.DefaultRoles()...))
	}

	var opts []repomanager.Option
	switch c.TokenStore {
	case config.TokenStoreRedis:
		opts = append(opts, repomanager.WithTokenStore(tokens.NewRedisRepository(rdb, redisTokenPrefix)))
	case config.TokenStoreMemory:
		opts = append(opts, repomanager.WithTokenStore(memory.NewStore().Tokens()))
	}
	return repomanager.NewPostgresRepositoryManager(opts...)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.server.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until ctx is cancelled or a termination signal arrives, then
// releases the database and Redis connections.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "token_store", app.config.TokenStore)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	app.close()
	app.logger.Info(context.Background(), "App stopped")
}

func (app *App) close() {
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error(context.Background(), "db close error", "error", err)
		}
	}
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error(context.Background(), "redis close error", "error", err)
		}
	}
}
