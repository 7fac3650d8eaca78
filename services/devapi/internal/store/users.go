package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           string    `json:"user_id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	AvatarURL    string    `json:"profil_resmi_url,omitempty"`
	University   string    `json:"universite,omitempty"`
	Gender       string    `json:"cinsiyet,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	PasswordHash string    `json:"-"`
}

type CreateUserParams struct {
	Email        string
	Username     string
	PasswordHash string
	University   string
	Gender       string
}

type UserStore interface {
	CreateUser(ctx context.Context, p CreateUserParams) (User, error)
	FindUserByEmail(ctx context.Context, email string) (User, error)
	GetUserByID(ctx context.Context, id string) (User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	// IssueResetToken returns a single-use token for the account behind
	// email, valid until expires.
	IssueResetToken(ctx context.Context, email string, expires time.Time) (string, User, error)
	// ConsumeResetToken redeems a token once. Unknown, used and expired
	// tokens all return ErrNotFound.
	ConsumeResetToken(ctx context.Context, token string, now time.Time) (User, error)
}

type resetToken struct {
	userID  string
	expires time.Time
}

// InMemoryUserStore keeps accounts for the lifetime of the process.
type InMemoryUserStore struct {
	mu      sync.RWMutex
	byID    map[string]User
	byEmail map[string]string
	byName  map[string]string
	resets  map[string]resetToken
}

func NewInMemoryUserStore() *InMemoryUserStore {
	return &InMemoryUserStore{
		byID:    make(map[string]User),
		byEmail: make(map[string]string),
		byName:  make(map[string]string),
		resets:  make(map[string]resetToken),
	}
}

// CreateUser fails with ErrConflict when the email or username is taken,
// compared case-insensitively.
func (s *InMemoryUserStore) CreateUser(_ context.Context, p CreateUserParams) (User, error) {
	email := strings.ToLower(strings.TrimSpace(p.Email))
	name := strings.ToLower(strings.TrimSpace(p.Username))

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byEmail[email]; taken {
		return User{}, ErrConflict
	}
	if _, taken := s.byName[name]; taken {
		return User{}, ErrConflict
	}

	u := User{
		ID:           uuid.NewString(),
		Username:     strings.TrimSpace(p.Username),
		Email:        strings.TrimSpace(p.Email),
		University:   p.University,
		Gender:       p.Gender,
		CreatedAt:    time.Now().UTC(),
		PasswordHash: p.PasswordHash,
	}
	s.byID[u.ID] = u
	s.byEmail[email] = u.ID
	s.byName[name] = u.ID
	return u, nil
}

func (s *InMemoryUserStore) FindUserByEmail(_ context.Context, email string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return User{}, ErrNotFound
	}
	return s.byID[id], nil
}

func (s *InMemoryUserStore) GetUserByID(_ context.Context, id string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (s *InMemoryUserStore) UpdatePassword(_ context.Context, id, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = passwordHash
	s.byID[id] = u
	return nil
}

func (s *InMemoryUserStore) IssueResetToken(_ context.Context, email string, expires time.Time) (string, User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return "", User{}, ErrNotFound
	}
	tok := uuid.NewString()
	s.resets[tok] = resetToken{userID: id, expires: expires}
	return tok, s.byID[id], nil
}

func (s *InMemoryUserStore) ConsumeResetToken(_ context.Context, token string, now time.Time) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rt, ok := s.resets[token]
	if !ok {
		return User{}, ErrNotFound
	}
	delete(s.resets, token)
	if !now.Before(rt.expires) {
		return User{}, ErrNotFound
	}
	u, ok := s.byID[rt.userID]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}
