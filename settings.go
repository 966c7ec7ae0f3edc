// ABOUTME: Process-wide settings and the store that guards them.
// ABOUTME: The control loop writes; workers read value copies under a lock.

package main

import "sync"

// Settings holds process-wide configuration, loaded once at startup and
// persisted on every mutation and at shutdown.
type Settings struct {
	Mute               bool
	Token              string
	ServerURL          string
	TrayOnMinimize     bool
	PushEnabled        bool
	PushUserKey        string
	PushAppToken       string
	PushWhenMuted      bool
	PushIncludeMessage bool
}

// DefaultSettings returns the settings used when no config exists or the
// persisted record is unusable.
func DefaultSettings() Settings {
	return Settings{
		TrayOnMinimize:     true,
		PushWhenMuted:      true,
		PushIncludeMessage: true,
	}
}

// SettingsStore guards settings for cross-goroutine reads. Get returns a
// value copy; a live reference never crosses goroutines.
type SettingsStore struct {
	mu sync.RWMutex
	s  Settings
}

// NewSettingsStore creates a store with the given initial settings.
func NewSettingsStore(s Settings) *SettingsStore {
	return &SettingsStore{s: s}
}

// Get returns a copy of the current settings.
func (st *SettingsStore) Get() Settings {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.s
}

// Update applies fn to the settings under the lock.
func (st *SettingsStore) Update(fn func(*Settings)) {
	st.mu.Lock()
	defer st.mu.Unlock()
	fn(&st.s)
}
