// Package users provides the flat-file account store used for login.
//
// Accounts live in a JSON array on disk. The application never creates,
// edits or deletes accounts at runtime; the file is only written when it is
// first seeded or when legacy plaintext records are upgraded to hashes.
package users

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/agjmills/docchat/internal/logger"
)

// ErrNotFound is returned when no account matches a lookup.
var ErrNotFound = errors.New("user not found")

const (
	SeedUsername = "ND"
	SeedPassword = "test"
)

type User struct {
	ID           int    `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"password_hash"`
}

// record is the on-disk shape. Password is only read, for upgrading files
// written before hashes were introduced.
type record struct {
	ID           int    `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"password_hash,omitempty"`
	Password     string `json:"password,omitempty"`
}

// HashFunc turns a plaintext password into a stored hash.
type HashFunc func(password string) (string, error)

type Store struct {
	path string

	mu    sync.RWMutex
	users []User
}

// Open loads the account file at path, seeding it with the demo account when
// it does not exist yet. A corrupt or unreadable file is an error.
func Open(path string, hash HashFunc) (*Store, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := seed(path, hash); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat users file: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read users file: %w", err)
	}

	var records []record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse users file: %w", err)
	}

	upgraded := false
	users := make([]User, 0, len(records))
	for i := range records {
		r := &records[i]
		if r.PasswordHash == "" && r.Password != "" {
			h, err := hash(r.Password)
			if err != nil {
				return nil, fmt.Errorf("failed to hash password for %q: %w", r.Username, err)
			}
			r.PasswordHash = h
			r.Password = ""
			upgraded = true
		}
		users = append(users, User{ID: r.ID, Username: r.Username, PasswordHash: r.PasswordHash})
	}

	if upgraded {
		if err := write(path, records); err != nil {
			return nil, err
		}
		logger.Warn("upgraded plaintext passwords in users file", "path", path)
	}

	return &Store{path: path, users: users}, nil
}

func seed(path string, hash HashFunc) error {
	h, err := hash(SeedPassword)
	if err != nil {
		return fmt.Errorf("failed to hash seed password: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create users directory: %w", err)
	}
	logger.Info("seeding users file", "path", path, "username", SeedUsername)
	return write(path, []record{{ID: 1, Username: SeedUsername, PasswordHash: h}})
}

func write(path string, records []record) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode users: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write users file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace users file: %w", err)
	}
	return nil
}

// All returns a copy of every account.
func (s *Store) All() []User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]User, len(s.users))
	copy(out, s.users)
	return out
}

func (s *Store) FindByUsername(username string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Username == username {
			u := u
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (s *Store) FindByID(id int) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.ID == id {
			u := u
			return &u, nil
		}
	}
	return nil, ErrNotFound
}
