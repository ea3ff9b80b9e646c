package organize

import (
	"context"

	"linksort/internal/config"
	"linksort/pkg/types"
)

// Matcher picks the rule, if any, for a file event.
// *router.Router satisfies it.
type Matcher interface {
	Route(ev types.FileEvent) (types.Rule, bool)
}

// Organizer defines the interface for file organization operations
// This allows for dependency injection in tests and other parts of the application
type Organizer interface {
	// SetConfig applies the move settings of cfg
	SetConfig(cfg *config.Config)

	// SetDryRun sets whether operations should be performed or just simulated
	SetDryRun(dryRun bool)

	// Process routes and organizes a single file
	Process(ctx context.Context, m Matcher, ev types.FileEvent) types.OrganizeResult

	// Organize moves a file under rule and applies its template
	Organize(ctx context.Context, ev types.FileEvent, rule types.Rule) types.OrganizeResult
}

// Ensure Engine implements the Organizer interface
var _ Organizer = (*Engine)(nil)
