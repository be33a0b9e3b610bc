package settings

import (
	"context"

	"bitor-console/internal/store"
	"bitor-console/internal/types"
)

// Store is the observable holder of the session's settings. A nil value
// means no settings have been loaded.
//
// Values are copied on Set and on every read, so callers may freely modify
// what they pass in or get back.
type Store struct {
	cell *store.Writable[*types.AppSettings]
}

var _ store.Readable[*types.AppSettings] = (*Store)(nil)

// NewStore creates an unset store
func NewStore() *Store {
	return &Store{cell: store.New[*types.AppSettings](nil)}
}

// Get returns a copy of the current settings, or nil when unset
func (s *Store) Get() *types.AppSettings {
	return s.cell.Get().Clone()
}

// Set replaces the current settings. Set(nil) is the same as Reset.
func (s *Store) Set(v *types.AppSettings) {
	s.cell.Set(v.Clone())
}

// Update replaces the settings with fn applied to a copy of the current value
func (s *Store) Update(fn func(*types.AppSettings) *types.AppSettings) {
	s.cell.Update(func(cur *types.AppSettings) *types.AppSettings {
		return fn(cur.Clone()).Clone()
	})
}

// Reset returns the store to the unset state
func (s *Store) Reset() {
	s.cell.Set(nil)
}

// Loaded reports whether settings are present
func (s *Store) Loaded() bool {
	return s.cell.Get() != nil
}

// Subscribe calls run with the current settings now and after every change
func (s *Store) Subscribe(run store.Subscriber[*types.AppSettings]) store.Unsubscriber {
	return s.cell.Subscribe(func(v *types.AppSettings) {
		run(v.Clone())
	})
}

// Subscribers returns the number of active subscriptions
func (s *Store) Subscribers() int {
	return s.cell.Subscribers()
}

// Repository defines the interface for settings persistence
type Repository interface {
	// Load retrieves the stored settings, returning defaults if none exist
	Load(ctx context.Context) (*types.AppSettings, error)
	// Save persists settings
	Save(ctx context.Context, settings *types.AppSettings) error
	// Clear removes the stored settings
	Clear(ctx context.Context) error
	// Close releases resources
	Close() error
}
