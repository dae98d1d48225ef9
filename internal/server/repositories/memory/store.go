// Package memory keeps users, roles and tokens in process memory. It backs
// the database-less development mode and the HTTP scenario tests.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/dmitrijs2005/userservice/internal/common"
	"github.com/dmitrijs2005/userservice/internal/server/models"
)

// Store holds all records behind one lock.
type Store struct {
	mu     sync.RWMutex
	users  map[string]*models.User // by lower-cased email
	roles  map[string]models.Role
	tokens map[string]models.Token
}

// NewStore returns a store provisioned with the given roles.
func NewStore(roles ...models.Role) *Store {
	s := &Store{
		users:  map[string]*models.User{},
		roles:  map[string]models.Role{},
		tokens: map[string]models.Token{},
	}
	for _, r := range roles {
		s.roles[r.Name] = r
	}
	return s
}

// DefaultRoles mirrors the roles seeded by the SQL migrations.
func DefaultRoles() []models.Role {
	return []models.Role{{ID: 1, Name: common.RoleUser}, {ID: 2, Name: common.RolePremiumUser}}
}

func cloneUser(u *models.User) *models.User {
	c := *u
	c.Roles = slices.Clone(u.Roles)
	return &c
}

type UsersRepository struct{ s *Store }

func (r UsersRepository) FindByEmail(_ context.Context, email string) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[strings.ToLower(email)]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return cloneUser(u), nil
}

func (r UsersRepository) ExistsByEmail(_ context.Context, email string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	_, ok := r.s.users[strings.ToLower(email)]
	return ok, nil
}

func (r UsersRepository) Create(_ context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := strings.ToLower(user.Email)
	if _, ok := r.s.users[key]; ok {
		return common.ErrEmailTaken
	}
	r.s.users[key] = cloneUser(user)
	return nil
}

func (r UsersRepository) Save(_ context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.users[strings.ToLower(user.Email)]
	if !ok || cur.ID != user.ID {
		return common.ErrorNotFound
	}
	next := cloneUser(user)
	for _, role := range cur.Roles {
		next.AddRole(role)
	}
	r.s.users[strings.ToLower(user.Email)] = next
	return nil
}

type RolesRepository struct{ s *Store }

func (r RolesRepository) FindByName(_ context.Context, name string) (*models.Role, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	role, ok := r.s.roles[name]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &role, nil
}

type TokensRepository struct{ s *Store }

func (r TokensRepository) Exists(_ context.Context, token string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	_, ok := r.s.tokens[token]
	return ok, nil
}

func (r TokensRepository) FindByToken(_ context.Context, token string) (*models.Token, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.tokens[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &t, nil
}

func (r TokensRepository) Save(_ context.Context, t *models.Token) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tokens[t.Token]; ok {
		return common.ErrorInternal
	}
	r.s.tokens[t.Token] = *t
	return nil
}

func (r TokensRepository) Delete(_ context.Context, token string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, ok := r.s.tokens[token]
	delete(r.s.tokens, token)
	return ok, nil
}

// Users, Roles and Tokens return repositories backed by s.
func (s *Store) Users() UsersRepository   { return UsersRepository{s: s} }
func (s *Store) Roles() RolesRepository   { return RolesRepository{s: s} }
func (s *Store) Tokens() TokensRepository { return TokensRepository{s: s} }

// RemoveRole drops a role definition, simulating a store that was never
// provisioned with it.
func (s *Store) RemoveRole(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.roles, name)
}

// TokenCount reports the number of live tokens.
func (s *Store) TokenCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tokens)
}
