// Package users manages the credential file: bcrypt-hashed passwords, role
// assignment and the seeded administrator account.
package users

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/airsial/opshub/internal/records"
	"github.com/airsial/opshub/pkg/logger"
)

var (
	// ErrInvalidCredentials covers both unknown username and wrong
	// password, deliberately indistinguishable to the caller.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUserExists marks an attempt to create a duplicate username.
	ErrUserExists = errors.New("user already exists")

	// ErrUserNotFound marks a lookup for an unknown username.
	ErrUserNotFound = errors.New("user not found")

	// ErrBadRequest marks rejected input on user management calls.
	ErrBadRequest = errors.New("invalid user request")

	// ErrForbidden marks a user management call by a non-administrator.
	ErrForbidden = errors.New("administrator role required")
)

// dummyHash is a valid bcrypt digest compared against when the username is
// unknown, so both failure paths cost about the same.
var dummyHash = []byte("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy")

// User is one account. PasswordHash never leaves this package unredacted;
// API layers marshal their own views.
type User struct {
	Username     string
	PasswordHash string
	Role         string
	Email        string
	CreatedAt    time.Time
}

// diskUser is the on-file value shape, keyed by username in a JSON object.
type diskUser struct {
	PasswordHash string `json:"password_hash"`
	Role         string `json:"role"`
	Email        string `json:"email,omitempty"`
	CreatedAt    string `json:"created_at"`
}

// Config controls the credential file location and seeding.
type Config struct {
	Path          string
	BcryptCost    int
	AdminUsername string
	AdminPassword string
}

// Store is the credential store backed by a single JSON file.
type Store struct {
	mu     sync.RWMutex
	path   string
	cost   int
	users  map[string]*User
	logger *logger.Logger
}

// NewStore loads the credential file, seeding a single administrator
// account when the file does not exist yet.
func NewStore(cfg Config, log *logger.Logger) (*Store, error) {
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	s := &Store{
		path:   cfg.Path,
		cost:   cfg.BcryptCost,
		users:  make(map[string]*User),
		logger: log.Named("users"),
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create users directory: %w", err)
	}

	data, err := os.ReadFile(cfg.Path)
	switch {
	case os.IsNotExist(err):
		if err := s.seedAdmin(cfg.AdminUsername, cfg.AdminPassword); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, fmt.Errorf("failed to read users file %s: %w", cfg.Path, err)
	default:
		var disk map[string]diskUser
		if err := json.Unmarshal(data, &disk); err != nil {
			return nil, fmt.Errorf("failed to decode users file %s: %w", cfg.Path, err)
		}
		for name, d := range disk {
			created, err := time.Parse(time.RFC3339, d.CreatedAt)
			if err != nil {
				created = time.Time{}
			}
			s.users[name] = &User{
				Username:     name,
				PasswordHash: d.PasswordHash,
				Role:         strings.ToLower(d.Role),
				Email:        d.Email,
				CreatedAt:    created,
			}
		}
	}

	return s, nil
}

func (s *Store) seedAdmin(username, password string) error {
	if username == "" {
		username = "admin"
	}
	if password == "" {
		return fmt.Errorf("cannot seed administrator account with an empty password")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return fmt.Errorf("failed to hash administrator password: %w", err)
	}
	s.users[username] = &User{
		Username:     username,
		PasswordHash: string(hash),
		Role:         records.RoleAdministrator,
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
	}
	if err := s.persistLocked(); err != nil {
		return err
	}
	s.logger.Info("Seeded administrator account", logger.String("username", username))
	return nil
}

// Authenticate checks a username/password pair and returns the account on
// success.
func (s *Store) Authenticate(username, password string) (*User, error) {
	s.mu.RLock()
	u, ok := s.users[username]
	s.mu.RUnlock()
	if !ok {
		// Burn a comparison anyway to keep timing consistent.
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return u.clone(), nil
}

// Get returns a single account by username.
func (s *Store) Get(username string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[username]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, username)
	}
	return u.clone(), nil
}

// List returns every account sorted by username.
func (s *Store) List() []*User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out
}

// NewUser carries the fields for account creation.
type NewUser struct {
	Username string
	Password string
	Role     string
	Email    string
}

// Create adds an account. Only administrators may manage users. The role is
// stored lowercase and must be one of the known role names.
func (s *Store) Create(caller records.Caller, nu NewUser) (*User, error) {
	if !strings.EqualFold(caller.Role, records.RoleAdministrator) {
		return nil, ErrForbidden
	}
	if nu.Username == "" {
		return nil, fmt.Errorf("%w: username is required", ErrBadRequest)
	}
	if len(nu.Password) < 6 {
		return nil, fmt.Errorf("%w: password must be at least 6 characters", ErrBadRequest)
	}
	role := strings.ToLower(nu.Role)
	switch role {
	case records.RoleAdministrator, records.RoleManager, records.RoleEngineer, records.RoleViewer:
	default:
		return nil, fmt.Errorf("%w: unknown role %q", ErrBadRequest, nu.Role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(nu.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[nu.Username]; exists {
		return nil, fmt.Errorf("%w: %s", ErrUserExists, nu.Username)
	}

	u := &User{
		Username:     nu.Username,
		PasswordHash: string(hash),
		Role:         role,
		Email:        nu.Email,
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
	}
	s.users[nu.Username] = u
	if err := s.persistLocked(); err != nil {
		delete(s.users, nu.Username)
		return nil, err
	}

	s.logger.Info("User created",
		logger.String("username", nu.Username),
		logger.String("role", role),
		logger.String("actor", caller.Name))
	return u.clone(), nil
}

// Delete removes an account. Administrators only; the last administrator
// cannot be removed.
func (s *Store) Delete(caller records.Caller, username string) error {
	if !strings.EqualFold(caller.Role, records.RoleAdministrator) {
		return ErrForbidden
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[username]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUserNotFound, username)
	}
	if u.Role == records.RoleAdministrator && s.adminCountLocked() == 1 {
		return fmt.Errorf("%w: cannot delete the last administrator", ErrBadRequest)
	}

	delete(s.users, username)
	if err := s.persistLocked(); err != nil {
		s.users[username] = u
		return err
	}

	s.logger.Info("User deleted",
		logger.String("username", username),
		logger.String("actor", caller.Name))
	return nil
}

func (s *Store) adminCountLocked() int {
	n := 0
	for _, u := range s.users {
		if u.Role == records.RoleAdministrator {
			n++
		}
	}
	return n
}

// persistLocked rewrites the credential file. Callers hold the write lock,
// or run during single-threaded construction.
func (s *Store) persistLocked() error {
	disk := make(map[string]diskUser, len(s.users))
	for name, u := range s.users {
		disk[name] = diskUser{
			PasswordHash: u.PasswordHash,
			Role:         u.Role,
			Email:        u.Email,
			CreatedAt:    u.CreatedAt.Format(time.RFC3339),
		}
	}
	data, err := json.MarshalIndent(disk, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode users file: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".users-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to persist users file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to persist users file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to persist users file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to persist users file: %w", err)
	}
	// Credential file stays owner-readable only.
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return fmt.Errorf("failed to persist users file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to persist users file: %w", err)
	}
	return nil
}

func (u *User) clone() *User {
	c := *u
	return &c
}
