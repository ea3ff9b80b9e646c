package organize

import (
	"linksort/internal/config"
	"linksort/internal/vault"
)

// OrganizerFactory creates the Organizer a daemon or command works with.
// This allows for dependency injection in tests
type OrganizerFactory func(fs vault.FS, cfg *config.Config) Organizer

// DefaultOrganizerFactory creates a real Engine
var DefaultOrganizerFactory OrganizerFactory = func(fs vault.FS, cfg *config.Config) Organizer {
	return NewWithConfig(fs, cfg)
}

// CurrentOrganizerFactory is the currently active factory
// This can be swapped in tests
var CurrentOrganizerFactory = DefaultOrganizerFactory

// SetOrganizerFactory sets a custom organizer factory for dependency injection
func SetOrganizerFactory(factory OrganizerFactory) {
	CurrentOrganizerFactory = factory
}

// ResetOrganizerFactory resets to the default organizer factory
func ResetOrganizerFactory() {
	CurrentOrganizerFactory = DefaultOrganizerFactory
}
