package repository

import (
	"context"
	"sync"
	"time"

	"github.com/yourorg/collabcore/internal/domain"
)

// MemoryUserStore implements domain.UserStore entirely in memory. Email,
// handle, session and reset-code lookups are backed by index maps so no
// operation scans the whole user table.
type MemoryUserStore struct {
	mu     sync.RWMutex
	nextID domain.UserID
	users  map[domain.UserID]*domain.User

	byEmail  map[string]domain.UserID
	byHandle map[string]domain.UserID
	// bySession and byResetCode map opaque values to their owning user.
	// Session ids are globally unique by generation; reset codes are short
	// and can collide across users, in which case the most recent issuance
	// wins the index slot (matching a by-value registry-wide lookup).
	bySession   map[string]domain.UserID
	byResetCode map[string]domain.UserID
}

// NewMemoryUserStore creates an empty store.
func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{
		users:       map[domain.UserID]*domain.User{},
		byEmail:     map[string]domain.UserID{},
		byHandle:    map[string]domain.UserID{},
		bySession:   map[string]domain.UserID{},
		byResetCode: map[string]domain.UserID{},
	}
}

// Create assigns the next sequential ID (1-based) and persists a copy.
func (s *MemoryUserStore) Create(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[user.Email]; exists {
		return domain.Validationf("email already registered")
	}
	if _, exists := s.byHandle[user.Handle]; exists {
		return domain.Validationf("handle already taken")
	}

	s.nextID++
	user.ID = s.nextID
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.Sessions == nil {
		user.Sessions = map[string]struct{}{}
	}
	if user.ResetCodes == nil {
		user.ResetCodes = map[string]struct{}{}
	}

	s.users[user.ID] = user.Clone()
	s.index(user)
	return nil
}

func (s *MemoryUserStore) GetByID(_ context.Context, id domain.UserID) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return u.Clone(), nil
}

func (s *MemoryUserStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byIndex(s.byEmail, email)
}

func (s *MemoryUserStore) GetByHandle(_ context.Context, handle string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byIndex(s.byHandle, handle)
}

func (s *MemoryUserStore) GetBySession(_ context.Context, sessionID string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byIndex(s.bySession, sessionID)
}

func (s *MemoryUserStore) GetByResetCode(_ context.Context, code string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byIndex(s.byResetCode, code)
}

// Update replaces the stored record and reindexes every secondary key.
func (s *MemoryUserStore) Update(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.users[user.ID]
	if !ok {
		return domain.ErrNotFound
	}
	s.unindex(old)

	user.UpdatedAt = time.Now()
	user.CreatedAt = old.CreatedAt
	s.users[user.ID] = user.Clone()
	s.index(user)
	return nil
}

func (s *MemoryUserStore) List(_ context.Context) ([]*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.User, 0, len(s.users))
	// Sequential ids make ordered iteration trivial.
	for id := domain.UserID(1); id <= s.nextID; id++ {
		if u, ok := s.users[id]; ok {
			out = append(out, u.Clone())
		}
	}
	return out, nil
}

func (s *MemoryUserStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users), nil
}

func (s *MemoryUserStore) Handles(_ context.Context) (map[string]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]struct{}, len(s.byHandle))
	for h := range s.byHandle {
		out[h] = struct{}{}
	}
	return out, nil
}

// Reset drops every record. Exists for tests and full-system resets only.
func (s *MemoryUserStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID = 0
	s.users = map[domain.UserID]*domain.User{}
	s.byEmail = map[string]domain.UserID{}
	s.byHandle = map[string]domain.UserID{}
	s.bySession = map[string]domain.UserID{}
	s.byResetCode = map[string]domain.UserID{}
}

// byIndex resolves a secondary-index hit to a copied record. Callers hold
// at least the read lock.
func (s *MemoryUserStore) byIndex(idx map[string]domain.UserID, key string) (*domain.User, error) {
	id, ok := idx[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return s.users[id].Clone(), nil
}

func (s *MemoryUserStore) index(u *domain.User) {
	s.byEmail[u.Email] = u.ID
	s.byHandle[u.Handle] = u.ID
	for sid := range u.Sessions {
		s.bySession[sid] = u.ID
	}
	for code := range u.ResetCodes {
		s.byResetCode[code] = u.ID
	}
}

func (s *MemoryUserStore) unindex(u *domain.User) {
	delete(s.byEmail, u.Email)
	delete(s.byHandle, u.Handle)
	for sid := range u.Sessions {
		delete(s.bySession, sid)
	}
	for code := range u.ResetCodes {
		if s.byResetCode[code] == u.ID {
			delete(s.byResetCode, code)
		}
	}
}
