// Package repository stores finished test sessions in SQLite.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/xiaot623/gogo/harness/internal/domain"
)

// ErrInvalidSession is returned when a session cannot be stored as given.
var ErrInvalidSession = errors.New("invalid test session")

// SQLiteStore persists test sessions. The full session document is kept as
// JSON; the columns beside it exist for listing, filtering and search.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS test_sessions (
			session_id TEXT PRIMARY KEY,
			agent_type TEXT NOT NULL,
			country TEXT NOT NULL,
			created_at_ms INTEGER NOT NULL,
			overall_score REAL NOT NULL DEFAULT 0,
			total_tasks INTEGER NOT NULL DEFAULT 0,
			completed_tasks INTEGER NOT NULL DEFAULT 0,
			search_text TEXT NOT NULL DEFAULT '',
			payload TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_test_sessions_created ON test_sessions(created_at_ms)`,
		`CREATE INDEX IF NOT EXISTS idx_test_sessions_agent ON test_sessions(agent_type, country)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}

	if err := s.ensureColumn("test_sessions", "completed_tasks", "ALTER TABLE test_sessions ADD COLUMN completed_tasks INTEGER NOT NULL DEFAULT 0"); err != nil {
		return err
	}
	return nil
}

func (s *SQLiteStore) ensureColumn(tableName, columnName, ddl string) error {
	rows, err := s.db.Query(fmt.Sprintf("PRAGMA table_info(%s)", tableName))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull int
		var dfltValue sql.NullString
		var pk int
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			return err
		}
		if name == columnName {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	_, err = s.db.Exec(ddl)
	return err
}

// Save inserts session or replaces the stored session with the same ID.
func (s *SQLiteStore) Save(ctx context.Context, session domain.TestSession) error {
	if session.SessionID == "" {
		return fmt.Errorf("%w: session id is required", ErrInvalidSession)
	}
	if session.Timestamp.IsZero() {
		session.Timestamp = time.Now().UTC()
	}
	normalize(&session)

	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	searchText, err := searchTextOf(session)
	if err != nil {
		return fmt.Errorf("failed to index session: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO test_sessions (session_id, agent_type, country, created_at_ms, overall_score, total_tasks, completed_tasks, search_text, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			agent_type = excluded.agent_type,
			country = excluded.country,
			created_at_ms = excluded.created_at_ms,
			overall_score = excluded.overall_score,
			total_tasks = excluded.total_tasks,
			completed_tasks = excluded.completed_tasks,
			search_text = excluded.search_text,
			payload = excluded.payload`,
		session.SessionID, session.AgentType, session.Country, session.Timestamp.UnixMilli(),
		session.OverallScore, session.TotalTasks, session.CompletedTasks, searchText, string(payload))
	return err
}

// Get retrieves a session by ID. It returns nil when there is none.
func (s *SQLiteStore) Get(ctx context.Context, sessionID string) (*domain.TestSession, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM test_sessions WHERE session_id = ?`, sessionID).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeSession(payload)
}

// List returns sessions newest first. hasMore reports whether sessions
// exist past the returned page.
func (s *SQLiteStore) List(ctx context.Context, limit, offset int) ([]domain.TestSession, bool, error) {
	if offset < 0 {
		offset = 0
	}
	query := `SELECT payload FROM test_sessions ORDER BY created_at_ms DESC, session_id DESC`
	var args []interface{}
	if limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit+1, offset)
	} else if offset > 0 {
		query += ` LIMIT -1 OFFSET ?`
		args = append(args, offset)
	}

	sessions, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, false, err
	}
	hasMore := false
	if limit > 0 && len(sessions) > limit {
		sessions = sessions[:limit]
		hasMore = true
	}
	return sessions, hasMore, nil
}

// Search returns sessions whose agent type, country, generated tasks or
// creator conversation contain text, ignoring case.
func (s *SQLiteStore) Search(ctx context.Context, text string, limit int) ([]domain.TestSession, error) {
	query := `SELECT payload FROM test_sessions WHERE instr(search_text, ?) > 0 ORDER BY created_at_ms DESC, session_id DESC`
	args := []interface{}{strings.ToLower(text)}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.query(ctx, query, args...)
}

// Filter returns sessions matching every set field of f.
func (s *SQLiteStore) Filter(ctx context.Context, f domain.SessionFilter, limit int) ([]domain.TestSession, error) {
	var where []string
	var args []interface{}

	if f.AgentType != "" {
		where = append(where, "agent_type = ?")
		args = append(args, f.AgentType)
	}
	if f.Country != "" {
		where = append(where, "country = ?")
		args = append(args, f.Country)
	}
	if f.MinScore != nil {
		where = append(where, "overall_score >= ?")
		args = append(args, *f.MinScore)
	}
	if f.MaxScore != nil {
		where = append(where, "overall_score <= ?")
		args = append(args, *f.MaxScore)
	}
	if f.StartDate != nil {
		where = append(where, "created_at_ms >= ?")
		args = append(args, f.StartDate.UnixMilli())
	}
	if f.EndDate != nil {
		where = append(where, "created_at_ms <= ?")
		args = append(args, f.EndDate.UnixMilli())
	}

	query := `SELECT payload FROM test_sessions`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at_ms DESC, session_id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.query(ctx, query, args...)
}

// Delete removes a session. It reports whether a session was removed.
func (s *SQLiteStore) Delete(ctx context.Context, sessionID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM test_sessions WHERE session_id = ?`, sessionID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Stats returns the session count and the mean overall score.
func (s *SQLiteStore) Stats(ctx context.Context) (domain.SessionStats, error) {
	var stats domain.SessionStats
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(AVG(overall_score), 0) FROM test_sessions`).Scan(&stats.TotalSessions, &stats.AverageScore)
	return stats, err
}

func (s *SQLiteStore) query(ctx context.Context, query string, args ...interface{}) ([]domain.TestSession, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := []domain.TestSession{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		session, err := decodeSession(payload)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}
	return sessions, rows.Err()
}

func decodeSession(payload string) (*domain.TestSession, error) {
	var session domain.TestSession
	if err := json.Unmarshal([]byte(payload), &session); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &session, nil
}

// normalize replaces nil lists so stored documents always carry arrays.
func normalize(session *domain.TestSession) {
	if session.TaskCreatorConversation == nil {
		session.TaskCreatorConversation = []domain.TranscriptMessage{}
	}
	if session.GeneratedTasks == nil {
		session.GeneratedTasks = []domain.Task{}
	}
	if session.TaskExecutions == nil {
		session.TaskExecutions = []domain.TaskExecution{}
	}
}

func searchTextOf(session domain.TestSession) (string, error) {
	tasks, err := json.Marshal(session.GeneratedTasks)
	if err != nil {
		return "", err
	}
	conversation, err := json.Marshal(session.TaskCreatorConversation)
	if err != nil {
		return "", err
	}
	text := strings.Join([]string{session.AgentType, session.Country, string(tasks), string(conversation)}, " ")
	return strings.ToLower(text), nil
}
