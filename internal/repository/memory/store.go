// Package memory is a process-local implementation of the repositories. One
// mutex guards every table, so each repository call is atomic with respect
// to every other call. Used by tests and by STORE=memory in development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/swapbnb/exchange-coordinator/internal/models"
	repo "github.com/swapbnb/exchange-coordinator/internal/repository"
)

type Store struct {
	mu        sync.Mutex
	users     map[string]models.User
	homes     map[string]models.Home
	exchanges map[string]models.Exchange
	events    map[string]models.ProviderEvent
	audit     []models.AuditLog
	now       func() time.Time
}

func New() *Store {
	return &Store{
		users:     map[string]models.User{},
		homes:     map[string]models.Home{},
		exchanges: map[string]models.Exchange{},
		events:    map[string]models.ProviderEvent{},
		now:       time.Now,
	}
}

// Repositories wires the store into the repository interfaces.
type Repositories struct {
	Users     repo.Users
	Homes     repo.Homes
	Exchanges repo.Exchanges
	AuditLogs repo.AuditLogs
}

func (s *Store) Repositories() Repositories {
	return Repositories{
		Users:     &usersRepo{s},
		Homes:     &homesRepo{s},
		Exchanges: &exchangesRepo{s},
		AuditLogs: &auditRepo{s},
	}
}

// AuditTrail returns a copy of every audit entry written so far.
func (s *Store) AuditTrail() []models.AuditLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.AuditLog(nil), s.audit...)
}

func eventKey(ev models.ProviderEvent) string { return ev.Provider + "/" + ev.EventID }

// recordEvent must be called with s.mu held.
func (s *Store) recordEvent(ev models.ProviderEvent) bool {
	k := eventKey(ev)
	if _, dup := s.events[k]; dup {
		return false
	}
	ev.ReceivedAt = s.now()
	s.events[k] = ev
	return true
}

// ----------------- users -----------------

type usersRepo struct{ s *Store }

func (r *usersRepo) Create(_ context.Context, u models.User) (models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return models.User{}, fmt.Errorf("email %s: %w", u.Email, repo.ErrDuplicate)
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.IdentityStatus == "" {
		u.IdentityStatus = models.IdentityUnverified
	}
	u.CreatedAt = r.s.now()
	u.UpdatedAt = u.CreatedAt
	r.s.users[u.ID] = u
	return u, nil
}

func (r *usersRepo) GetByID(_ context.Context, id string) (models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return models.User{}, repo.ErrNotFound
	}
	return u, nil
}

func (r *usersRepo) GetByEmail(_ context.Context, email string) (models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return models.User{}, repo.ErrNotFound
}

func (r *usersRepo) AddCredits(_ context.Context, id string, delta int) (models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return models.User{}, repo.ErrNotFound
	}
	if u.Credits+delta < 0 {
		return models.User{}, repo.ErrInsufficientCredits
	}
	u.Credits += delta
	u.UpdatedAt = r.s.now()
	r.s.users[id] = u
	return u, nil
}

func (r *usersRepo) SetIdentitySession(_ context.Context, id, sessionID string) (models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return models.User{}, repo.ErrNotFound
	}
	if u.IdentitySessionID != nil {
		return u, nil
	}
	u.IdentitySessionID = &sessionID
	if u.IdentityStatus == models.IdentityUnverified {
		u.IdentityStatus = models.IdentityPending
	}
	u.UpdatedAt = r.s.now()
	r.s.users[id] = u
	r.s.mirrorIdentity(id, u.IdentityStatus)
	return u, nil
}

// mirrorIdentity must be called with s.mu held.
func (s *Store) mirrorIdentity(userID string, status models.VerificationStatus) {
	for id, ex := range s.exchanges {
		if ex.Status != models.StatusPending && ex.Status != models.StatusAccepted {
			continue
		}
		role, ok := ex.RoleOf(userID)
		if !ok {
			continue
		}
		ex.SetIdentity(role, status)
		ex.UpdatedAt = s.now()
		s.exchanges[id] = ex
	}
}

// ----------------- homes -----------------

type homesRepo struct{ s *Store }

func (r *homesRepo) Create(_ context.Context, h models.Home) (models.Home, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	h.CreatedAt = r.s.now()
	r.s.homes[h.ID] = h
	return h, nil
}

func (r *homesRepo) GetByID(_ context.Context, id string) (models.Home, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	h, ok := r.s.homes[id]
	if !ok {
		return models.Home{}, repo.ErrNotFound
	}
	return h, nil
}

func (r *homesRepo) ListByOwner(_ context.Context, ownerID string) ([]models.Home, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Home
	for _, h := range r.s.homes {
		if h.OwnerID == ownerID {
			out = append(out, h)
		}
	}
	sortHomes(out)
	return out, nil
}

func (r *homesRepo) List(_ context.Context, limit, offset int) ([]models.Home, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]models.Home, 0, len(r.s.homes))
	for _, h := range r.s.homes {
		out = append(out, h)
	}
	sortHomes(out)
	return page(out, limit, offset), nil
}

func sortHomes(hs []models.Home) {
	sort.Slice(hs, func(i, j int) bool {
		if hs[i].CreatedAt.Equal(hs[j].CreatedAt) {
			return hs[i].ID < hs[j].ID
		}
		return hs[i].CreatedAt.After(hs[j].CreatedAt)
	})
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// ----------------- audit -----------------

type auditRepo struct{ s *Store }

func (r *auditRepo) Create(_ context.Context, l models.AuditLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l.ID = uuid.NewString()
	l.CreatedAt = r.s.now()
	r.s.audit = append(r.s.audit, l)
	return nil
}
