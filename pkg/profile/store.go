// Package profile owns the durable mapping from user-chosen nicknames to
// daemon account identities. All mutations are serialized and flushed to a
// single JSON document before they are reported as successful.
package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"tableflip.dev/meshctl/pkg/daemon"
)

// Profile pairs a nickname with the daemon account identity it maps to. The
// identity stays null until the first successful switch resolves it.
type Profile struct {
	Nickname string  `json:"nickname"`
	Identity *string `json:"identity"`
}

type document struct {
	Profiles []Profile `json:"profiles"`
}

var (
	// ErrDuplicateNickname is returned by Add for an existing nickname.
	ErrDuplicateNickname = errors.New("profile nickname already exists")
	// ErrNotFound is returned when the named profile does not exist.
	ErrNotFound = errors.New("profile not found")
)

// SwitchError reports a daemon-rejected profile switch. Stored profiles are
// untouched when it is returned.
type SwitchError struct {
	Nickname string
	Err      error
}

func (e *SwitchError) Error() string {
	return fmt.Sprintf("switch to profile %q failed: %v", e.Nickname, e.Err)
}

func (e *SwitchError) Unwrap() error { return e.Err }

// PersistenceError reports a failed durable write. The operation that
// triggered it did not take effect.
type PersistenceError struct {
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist profiles to %s: %v", e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Refresher runs an immediate out-of-band poll and reports the identity the
// daemon claims afterwards. The engine satisfies this.
type Refresher interface {
	Refresh(ctx context.Context) (identity string, err error)
}

// Store is the profile store. One mutex serializes every operation, so the
// document has exactly one writer no matter how many callers race.
type Store struct {
	mu       sync.Mutex
	path     string
	profiles []Profile // insertion order preserved
}

// Open loads the document at path. A missing file is an empty store.
// Entries with empty or duplicate nicknames are skipped, never fatal.
func Open(path string) (*Store, error) {
	s := &Store{path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("read profiles from %s: %w", path, err)
	}

	s.profiles = decodeProfiles(data)
	return s, nil
}

// decodeProfiles parses a document leniently: a malformed document yields an
// empty store, and invalid entries are dropped individually.
func decodeProfiles(data []byte) []Profile {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil
	}

	seen := make(map[string]struct{}, len(doc.Profiles))
	out := make([]Profile, 0, len(doc.Profiles))
	for _, p := range doc.Profiles {
		p.Nickname = strings.TrimSpace(p.Nickname)
		if p.Nickname == "" {
			continue
		}
		if _, dup := seen[p.Nickname]; dup {
			continue
		}
		seen[p.Nickname] = struct{}{}
		out = append(out, p)
	}
	return out
}

// Path returns the document location.
func (s *Store) Path() string { return s.path }

// List returns a copy of all profiles in insertion order.
func (s *Store) List() []Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Profile(nil), s.profiles...)
}

// Get looks up a profile by nickname.
func (s *Store) Get(nickname string) (Profile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(nickname)
	if i < 0 {
		return Profile{}, false
	}
	return s.profiles[i], true
}

// Add persists a new profile with an unknown identity. The mutation is not
// considered successful until the document has been flushed.
func (s *Store) Add(nickname string) error {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return errors.New("profile nickname must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index(nickname) >= 0 {
		return ErrDuplicateNickname
	}

	s.profiles = append(s.profiles, Profile{Nickname: nickname})
	if err := s.save(); err != nil {
		s.profiles = s.profiles[:len(s.profiles)-1]
		return err
	}
	return nil
}

// Remove deletes a profile. Removing the active identity's nickname is
// allowed and does not disconnect anything.
func (s *Store) Remove(nickname string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(nickname)
	if i < 0 {
		return ErrNotFound
	}

	removed := s.profiles[i]
	s.profiles = append(s.profiles[:i], s.profiles[i+1:]...)
	if err := s.save(); err != nil {
		s.profiles = append(s.profiles[:i], append([]Profile{removed}, s.profiles[i:]...)...)
		return err
	}
	return nil
}

// Switch asks the daemon to switch to the named profile, then refreshes
// engine state so the caller returns to an up-to-date view. On success the
// profile's identity is resolved from the fresh snapshot and persisted. On
// daemon failure nothing is mutated and a SwitchError is returned.
func (s *Store) Switch(ctx context.Context, nickname string, client *daemon.Client, refresher Refresher) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(nickname)
	if i < 0 {
		return ErrNotFound
	}

	if err := client.SwitchProfile(ctx, nickname); err != nil {
		return &SwitchError{Nickname: nickname, Err: err}
	}

	identity, err := refresher.Refresh(ctx)
	if err != nil || identity == "" {
		// The switch itself succeeded; the identity stays unresolved until a
		// later poll. The engine's last error carries the refresh failure.
		return nil
	}

	prev := s.profiles[i].Identity
	s.profiles[i].Identity = &identity
	if err := s.save(); err != nil {
		s.profiles[i].Identity = prev
		return err
	}
	return nil
}

// index returns the position of a nickname, or -1. Callers hold s.mu.
func (s *Store) index(nickname string) int {
	for i, p := range s.profiles {
		if p.Nickname == nickname {
			return i
		}
	}
	return -1
}

// save writes the whole document durably: write to a temp file, fsync, then
// rename over the destination, so a crash can never leave a torn document.
// Callers hold s.mu.
func (s *Store) save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return &PersistenceError{Path: s.path, Err: err}
	}

	data, err := json.MarshalIndent(document{Profiles: s.profiles}, "", "  ")
	if err != nil {
		return &PersistenceError{Path: s.path, Err: err}
	}

	tmp := s.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return &PersistenceError{Path: s.path, Err: err}
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return &PersistenceError{Path: s.path, Err: err}
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return &PersistenceError{Path: s.path, Err: err}
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return &PersistenceError{Path: s.path, Err: err}
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return &PersistenceError{Path: s.path, Err: err}
	}
	return nil
}

// reload replaces the in-memory profiles from disk. Used by Watch when the
// document changes underneath us.
func (s *Store) reload() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.mu.Lock()
			s.profiles = nil
			s.mu.Unlock()
			return nil
		}
		return err
	}

	profiles := decodeProfiles(data)
	s.mu.Lock()
	s.profiles = profiles
	s.mu.Unlock()
	return nil
}
