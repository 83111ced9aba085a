package storage

import (
	"context"

	"github.com/google/uuid"
	"github.com/jwebster45206/gatekeeper/pkg/level"
	"github.com/jwebster45206/gatekeeper/pkg/session"
)

// Storage defines a unified interface for all storage operations
// This interface combines session progress persistence (Redis) with level loading (filesystem)
type Storage interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	// Progress operations (Redis-backed)
	SaveProgress(ctx context.Context, id uuid.UUID, p *session.Progress) error
	LoadProgress(ctx context.Context, id uuid.UUID) (*session.Progress, error)
	DeleteProgress(ctx context.Context, id uuid.UUID) error

	// Level operations (filesystem-backed)
	// ListLevels returns level file names in play order
	ListLevels(ctx context.Context) ([]string, error)
	// LoadLevels decodes every level file in play order, skipping unreadable ones
	LoadLevels(ctx context.Context) ([]level.Level, error)
}
