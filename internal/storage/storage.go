package storage

import (
	"context"

	"github.com/google/uuid"

	"github.com/jwebster45206/narrative-engine/pkg/scenario"
	"github.com/jwebster45206/narrative-engine/pkg/state"
)

// Storage abstracts session persistence and static resource loading.
type Storage interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	// Session operations
	SaveSession(ctx context.Context, id uuid.UUID, s *state.Session) error
	LoadSession(ctx context.Context, id uuid.UUID) (*state.Session, error)
	DeleteSession(ctx context.Context, id uuid.UUID) error

	// Turn serialization. AcquireTurnLock returns an owner token, or the
	// empty string when another turn is already in flight for the session.
	AcquireTurnLock(ctx context.Context, id uuid.UUID) (string, error)
	ReleaseTurnLock(ctx context.Context, id uuid.UUID, token string) error

	// Scenario operations
	ListScenarios(ctx context.Context) (map[string]string, error)
	GetScenario(ctx context.Context, filename string) (*scenario.Scenario, error)
}
