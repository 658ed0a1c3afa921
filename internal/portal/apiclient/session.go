package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/lgcert/indigene-certificate/internal/auth"
)

// User is the profile returned at login.
type User struct {
	ID                uint                  `json:"id"`
	FullName          string                `json:"fullName"`
	Email             string                `json:"email"`
	Phone             string                `json:"phone"`
	Role              string                `json:"role"`
	Permissions       []auth.PermissionFlag `json:"permissions"`
	LocalGovernmentID *uint                 `json:"localGovernmentId,omitempty"`
}

func (u *User) Has(flag auth.PermissionFlag) bool {
	if u == nil {
		return false
	}
	if u.Role == auth.RoleSuperAdmin {
		return true
	}
	return u.Role == auth.RoleLGAdmin && auth.HasPermission(u.Permissions, flag)
}

// Credentials are the three values persisted between runs.
type Credentials struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	User         *User  `json:"user"`
}

type SessionStore interface {
	Load() (Credentials, error)
	Save(Credentials) error
	Clear() error
}

type MemoryStore struct {
	mu    sync.Mutex
	creds Credentials
}

func (m *MemoryStore) Load() (Credentials, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.creds, nil
}

func (m *MemoryStore) Save(c Credentials) error {
	m.mu.Lock()
	m.creds = c
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Clear() error {
	return m.Save(Credentials{})
}

// FileStore keeps credentials as one JSON document readable only by the owner.
type FileStore struct {
	Path string
}

func (f FileStore) Load() (Credentials, error) {
	var c Credentials
	b, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return c, fmt.Errorf("read session: %w", err)
	}
	if err := json.Unmarshal(b, &c); err != nil {
		return Credentials{}, fmt.Errorf("decode session %s: %w", f.Path, err)
	}
	return c, nil
}

func (f FileStore) Save(c Credentials) error {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	tmp := f.Path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return os.Rename(tmp, f.Path)
}

func (f FileStore) Clear() error {
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Session owns the tokens and profile of the signed-in user. The three
// values are always written and cleared together.
type Session struct {
	mu    sync.RWMutex
	creds Credentials
	store SessionStore
}

// NewSession restores whatever store holds. A nil store keeps the session
// in memory only.
func NewSession(store SessionStore) (*Session, error) {
	if store == nil {
		store = &MemoryStore{}
	}
	creds, err := store.Load()
	if err != nil {
		return nil, err
	}
	return &Session{creds: creds, store: store}, nil
}

func (s *Session) Start(access, refresh string, user *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := Credentials{AccessToken: access, RefreshToken: refresh, User: user}
	if err := s.store.Save(next); err != nil {
		return err
	}
	s.creds = next
	return nil
}

func (s *Session) SetAccessToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.creds
	next.AccessToken = token
	if err := s.store.Save(next); err != nil {
		return err
	}
	s.creds = next
	return nil
}

func (s *Session) SetUser(u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.creds
	next.User = u
	if err := s.store.Save(next); err != nil {
		return err
	}
	s.creds = next
	return nil
}

// Clear forgets all credentials. The in-memory copy is dropped even when
// the store fails.
func (s *Session) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = Credentials{}
	return s.store.Clear()
}

func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds.AccessToken
}

func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds.RefreshToken
}

func (s *Session) User() *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds.User
}

func (s *Session) Authenticated() bool {
	return s.AccessToken() != ""
}
