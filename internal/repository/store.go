package repository

import (
	"context"

	"github.com/xiaot623/gogo/harness/internal/domain"
)

// Store defines the interface for test session persistence.
type Store interface {
	Save(ctx context.Context, session domain.TestSession) error
	Get(ctx context.Context, sessionID string) (*domain.TestSession, error)
	List(ctx context.Context, limit, offset int) ([]domain.TestSession, bool, error)
	Search(ctx context.Context, text string, limit int) ([]domain.TestSession, error)
	Filter(ctx context.Context, f domain.SessionFilter, limit int) ([]domain.TestSession, error)
	Delete(ctx context.Context, sessionID string) (bool, error)
	Stats(ctx context.Context) (domain.SessionStats, error)
	Close() error
}

var _ Store = (*SQLiteStore)(nil)
