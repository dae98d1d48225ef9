package repomanager

import (
	"context"
	"database/sql"
	"sync"

	"github.com/dmitrijs2005/userservice/internal/dbx"
	"github.com/dmitrijs2005/userservice/internal/server/repositories/memory"
	"github.com/dmitrijs2005/userservice/internal/server/repositories/roles"
	"github.com/dmitrijs2005/userservice/internal/server/repositories/tokens"
	"github.com/dmitrijs2005/userservice/internal/server/repositories/users"
)

// InMemoryRepositoryManager serves every repository from one memory.Store
// and ignores the DB handles it is given. InTx serializes units of work but
// cannot roll them back.
type InMemoryRepositoryManager struct {
	store *memory.Store
	txMu  sync.Mutex
}

func NewInMemoryRepositoryManager(store *memory.Store) *InMemoryRepositoryManager {
	return &InMemoryRepositoryManager{store: store}
}

func (m *InMemoryRepositoryManager) Store() *memory.Store { return m.store }

func (m *InMemoryRepositoryManager) RunMigrations(context.Context, *sql.DB) error { return nil }

func (m *InMemoryRepositoryManager) Users(dbx.DBTX) users.Repository   { return m.store.Users() }
func (m *InMemoryRepositoryManager) Roles(dbx.DBTX) roles.Repository   { return m.store.Roles() }
func (m *InMemoryRepositoryManager) Tokens(dbx.DBTX) tokens.Repository { return m.store.Tokens() }

func (m *InMemoryRepositoryManager) InTx(ctx context.Context, _ *sql.DB, fn dbx.TxFunc) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	return fn(ctx, nil)
}
