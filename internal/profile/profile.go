// Package profile remembers the last player who logged in on this machine.
package profile

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/quasilyte/gdata"
)

// AppName is the gdata namespace.
const AppName = "tuimeteor"

const itemKey = "profile"

// Profile is the saved login.
type Profile struct {
	PlayerID string    `json:"playerId"`
	Name     string    `json:"name,omitempty"`
	SavedAt  time.Time `json:"savedAt"`
}

// Store reads and writes the profile.
type Store struct {
	m *gdata.Manager
}

// Open opens the profile store for appName.
func Open(appName string) (*Store, error) {
	m, err := gdata.Open(gdata.Config{AppName: appName})
	if err != nil {
		return nil, fmt.Errorf("failed to open profile store: %w", err)
	}
	return &Store{m: m}, nil
}

// Load returns the saved profile; ok is false when nothing was saved.
func (s *Store) Load() (Profile, bool, error) {
	data, err := s.m.LoadItem(itemKey)
	if err != nil {
		return Profile{}, false, fmt.Errorf("failed to load profile: %w", err)
	}
	if len(data) == 0 {
		return Profile{}, false, nil
	}
	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return Profile{}, false, fmt.Errorf("failed to parse profile: %w", err)
	}
	return p, true, nil
}

// Save stores p.
func (s *Store) Save(p Profile) error {
	if p.SavedAt.IsZero() {
		p.SavedAt = time.Now().UTC()
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}
	if err := s.m.SaveItem(itemKey, data); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

// Forget removes the saved profile.
func (s *Store) Forget() error {
	if err := s.m.DeleteItem(itemKey); err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	return nil
}
