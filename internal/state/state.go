// Package state persists the small pieces of client session state that
// survive restarts: the signed-in username and the last open
// conversation. Everything else (dedup set, pending counter) is view
// state and is deliberately not persisted.
package state

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	// stateDirPerm is the permission mode for the state directory.
	stateDirPerm = fs.FileMode(0o700)

	// stateFilePerm is the permission mode for the state database file.
	stateFilePerm = fs.FileMode(0o600)

	// stateOpenTimeout is the maximum time to wait for the bolt database lock.
	stateOpenTimeout = 5 * time.Second
)

var (
	sessionBucket       = []byte("session")
	usernameKey         = []byte("username")
	lastConversationKey = []byte("last_conversation")
)

// State wraps a bbolt database for persistent client state.
type State struct {
	db *bolt.DB
}

// LoadAt opens a state database at the given path, creating it if it
// does not exist. The session bucket is created on open.
func LoadAt(path string) (*State, error) {
	if err := os.MkdirAll(filepath.Dir(path), stateDirPerm); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}

	db, err := bolt.Open(path, stateFilePerm, &bolt.Options{Timeout: stateOpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("opening state db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(sessionBucket)

		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing state db: %w", err)
	}

	return &State{db: db}, nil
}

// Close closes the database.
func (s *State) Close() error {
	return s.db.Close()
}

// Username returns the cached signed-in username, or empty string.
func (s *State) Username() string {
	return s.get(usernameKey)
}

// SetUsername stores the signed-in username. An empty value clears it
// (logout).
func (s *State) SetUsername(username string) error {
	return s.set(usernameKey, username)
}

// LastConversation returns the conversation that was open when the
// client last exited, or empty string.
func (s *State) LastConversation() string {
	return s.get(lastConversationKey)
}

// SetLastConversation stores the currently open conversation id.
func (s *State) SetLastConversation(id string) error {
	return s.set(lastConversationKey, id)
}

func (s *State) get(key []byte) string {
	var val string

	s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(sessionBucket).Get(key); v != nil {
			val = string(v)
		}

		return nil
	})

	return val
}

func (s *State) set(key []byte, val string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(sessionBucket)
		if val == "" {
			return b.Delete(key)
		}

		return b.Put(key, []byte(val))
	})
	if err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}

	return nil
}
