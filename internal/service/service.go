// Package service holds the test session operations shared by the HTTP API
// and the orchestrator autosave.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/xiaot623/gogo/harness/internal/domain"
	"github.com/xiaot623/gogo/harness/internal/repository"
)

const (
	DefaultListLimit   = 50
	DefaultSearchLimit = 10
	MaxLimit           = 500
)

// ErrNotFound is returned when a session does not exist.
var ErrNotFound = errors.New("session not found")

type Service struct {
	store repository.Store
	now   func() time.Time
}

func New(store repository.Store) *Service {
	return &Service{store: store, now: func() time.Time { return time.Now().UTC() }}
}

// Save stores session and returns its ID. A session without an ID gets a
// new ULID; one without a timestamp is stamped with the current time.
func (s *Service) Save(ctx context.Context, session domain.TestSession) (string, error) {
	if session.SessionID == "" {
		session.SessionID = ulid.Make().String()
	}
	if session.Timestamp.IsZero() {
		session.Timestamp = s.now()
	}
	if err := s.store.Save(ctx, session); err != nil {
		return "", fmt.Errorf("failed to save session: %w", err)
	}
	log.Printf("INFO: Saved test session: %s", session.SessionID)
	return session.SessionID, nil
}

func (s *Service) GetSession(ctx context.Context, sessionID string) (*domain.TestSession, error) {
	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, ErrNotFound
	}
	return session, nil
}

func (s *Service) ListSessions(ctx context.Context, limit, offset int) ([]domain.TestSession, bool, error) {
	sessions, hasMore, err := s.store.List(ctx, clampLimit(limit, DefaultListLimit), offset)
	if err != nil {
		return nil, false, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, hasMore, nil
}

func (s *Service) SearchSessions(ctx context.Context, query string, limit int) ([]domain.TestSession, error) {
	sessions, err := s.store.Search(ctx, query, clampLimit(limit, DefaultSearchLimit))
	if err != nil {
		return nil, fmt.Errorf("failed to search sessions: %w", err)
	}
	return sessions, nil
}

func (s *Service) FilterSessions(ctx context.Context, f domain.SessionFilter, limit int) ([]domain.TestSession, error) {
	if f.MinScore != nil && f.MaxScore != nil && *f.MinScore > *f.MaxScore {
		return nil, fmt.Errorf("%w: minScore is greater than maxScore", ErrInvalidFilter)
	}
	if f.StartDate != nil && f.EndDate != nil && f.StartDate.After(*f.EndDate) {
		return nil, fmt.Errorf("%w: startDate is after endDate", ErrInvalidFilter)
	}
	sessions, err := s.store.Filter(ctx, f, clampLimit(limit, DefaultListLimit))
	if err != nil {
		return nil, fmt.Errorf("failed to filter sessions: %w", err)
	}
	return sessions, nil
}

// ErrInvalidFilter is returned for contradictory filter bounds.
var ErrInvalidFilter = errors.New("invalid filter")

func (s *Service) DeleteSession(ctx context.Context, sessionID string) error {
	deleted, err := s.store.Delete(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if !deleted {
		return ErrNotFound
	}
	log.Printf("INFO: Deleted test session: %s", sessionID)
	return nil
}

func (s *Service) Stats(ctx context.Context) (domain.SessionStats, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return domain.SessionStats{}, fmt.Errorf("failed to get stats: %w", err)
	}
	return stats, nil
}

func clampLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}
