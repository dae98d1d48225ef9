// Package admin implements the operator commands: creating accounts from
// the terminal and applying database migrations.
package admin

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/userservice/internal/logging"
	"github.com/dmitrijs2005/userservice/internal/server/auth"
	"github.com/dmitrijs2005/userservice/internal/server/config"
	"github.com/dmitrijs2005/userservice/internal/server/metrics"
	"github.com/dmitrijs2005/userservice/internal/server/passwords"
	"github.com/dmitrijs2005/userservice/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/userservice/internal/server/services"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const usage = "usage: admin <register|migrate> [-d dsn] [-p hasher] [-c config.json]"

var ErrUsage = errors.New(usage)

type App struct {
	db     *sql.DB
	rm     repomanager.RepositoryManager
	users  *services.UserService
	logger logging.Logger
	reader *bufio.Reader
	out    io.Writer
}

// NewApp connects to the database named in c.
func NewApp(c *config.Config) (*App, error) {
	if c.DatabaseDSN == "" {
		return nil, errors.New("a database DSN is required")
	}
	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	hasher, err := passwords.New(c.PasswordHasher)
	if err != nil {
		db.Close()
		return nil, err
	}
	logger := logging.NewJSONLogger(os.Stderr, c.SlogLevel())
	return newApp(db, repomanager.NewPostgresRepositoryManager(), hasher, logger, os.Stdin, os.Stdout), nil
}

func newApp(db *sql.DB, rm repomanager.RepositoryManager, h passwords.Hasher, l logging.Logger, in io.Reader, out io.Writer) *App {
	mt := metrics.Discard()
	// The token service is never asked to issue here; it only satisfies the
	// user service's dependency.
	ts := services.NewTokenService(db, rm, auth.NewCodec([]byte("unused")), time.Minute, l, mt)
	return &App{
		db:     db,
		rm:     rm,
		users:  services.NewUserService(db, rm, ts, h, l, mt),
		logger: l,
		reader: bufio.NewReader(in),
		out:    out,
	}
}

// Run executes the subcommand named by args[0].
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return ErrUsage
	}
	switch args[0] {
	case "register":
		return a.Register(ctx)
	case "migrate":
		return a.Migrate(ctx)
	default:
		return ErrUsage
	}
}

// Register prompts for the account fields and creates the account.
func (a *App) Register(ctx context.Context) error {
	email, err := GetSimpleText(a.reader, "Email", a.out)
	if err != nil {
		return err
	}
	firstName, err := GetSimpleText(a.reader, "First name", a.out)
	if err != nil {
		return err
	}
	lastName, err := GetSimpleText(a.reader, "Last name", a.out)
	if err != nil {
		return err
	}
	password, err := GetPassword(a.out)
	if err != nil {
		return err
	}
	if email == "" || password == "" {
		return errors.New("email and password are required")
	}

	u, err := a.users.Register(ctx, services.RegisterRequest{
		Email:     email,
		Password:  password,
		FirstName: firstName,
		LastName:  lastName,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Registered %s (id=%s)\n", u.Email, u.ID)
	return nil
}

// Migrate applies pending database migrations.
func (a *App) Migrate(ctx context.Context) error {
	if err := a.rm.RunMigrations(ctx, a.db); err != nil {
		return fmt.Errorf("migrations error: %w", err)
	}
	fmt.Fprintln(a.out, "Migrations applied")
	return nil
}

func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}
