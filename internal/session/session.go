// Package session keeps the logged-in family for hearth clients.
//
// The family name lives in a small TOML file under the hearth config
// directory so that every terminal on the machine shares one login.
package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/fyrsmithlabs/hearth/internal/config"
	"github.com/fyrsmithlabs/hearth/internal/home"
)

// FileName is the session file inside the hearth config directory.
const FileName = "session.toml"

// ErrNotLoggedIn is returned when no family is stored.
var ErrNotLoggedIn = errors.New("not logged in")

// Session is the persisted login.
type Session struct {
	Family     string    `toml:"family"`
	Server     string    `toml:"server,omitempty"`
	LoggedInAt time.Time `toml:"logged_in_at"`
}

// Store reads and writes one session file.
type Store struct {
	path string
}

// NewStore returns a store backed by path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// DefaultStore returns the store at ~/.config/hearth/session.toml.
func DefaultStore() (*Store, error) {
	dir, err := config.Dir()
	if err != nil {
		return nil, err
	}
	return NewStore(filepath.Join(dir, FileName)), nil
}

// Path returns the session file path.
func (s *Store) Path() string { return s.path }

// Load reads the stored session. A missing or empty file yields ErrNotLoggedIn.
func (s *Store) Load() (Session, error) {
	var sess Session
	if _, err := toml.DecodeFile(s.path, &sess); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Session{}, ErrNotLoggedIn
		}
		return Session{}, fmt.Errorf("read session %s: %w", s.path, err)
	}
	sess.Family = strings.TrimSpace(sess.Family)
	if sess.Family == "" {
		return Session{}, ErrNotLoggedIn
	}
	return sess, nil
}

// Family returns the logged-in family, or "" when nobody is logged in or
// the file cannot be read.
func (s *Store) Family() string {
	sess, err := s.Load()
	if err != nil {
		return ""
	}
	return sess.Family
}

// Login stores name as the acting family. The name is trimmed and must be a
// valid family name.
func (s *Store) Login(name, server string) (Session, error) {
	family, err := home.NormalizeFamily(name)
	if err != nil {
		return Session{}, err
	}
	sess := Session{
		Family:     family,
		Server:     strings.TrimSpace(server),
		LoggedInAt: time.Now().UTC().Truncate(time.Second),
	}
	if err := s.write(sess); err != nil {
		return Session{}, err
	}
	return sess, nil
}

// Logout removes the session file. Logging out twice is not an error.
func (s *Store) Logout() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}

// write replaces the session file atomically with 0600 permissions.
func (s *Store) write(sess Session) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".session-*.toml")
	if err != nil {
		return fmt.Errorf("create session file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod session file: %w", err)
	}
	if err := toml.NewEncoder(tmp).Encode(sess); err != nil {
		tmp.Close()
		return fmt.Errorf("encode session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close session file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}
