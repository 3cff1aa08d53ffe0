package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/xiaot623/gogo/relay/internal/domain"
	_ "modernc.org/sqlite"
)

const (
	// DriverMattn is the cgo sqlite driver registered by github.com/mattn/go-sqlite3.
	DriverMattn = "sqlite3"
	// DriverModernc is the pure Go driver registered by modernc.org/sqlite.
	DriverModernc = "sqlite"

	busyTimeoutMs   = 5000
	touchMaxRetries = 5
)

// Options configures a SQLiteStore.
type Options struct {
	Driver    string
	DSN       string
	PoolSize  int
	OpTimeout time.Duration
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db        *sql.DB
	opTimeout time.Duration
	now       func() time.Time
}

// Ensure SQLiteStore implements Store interface.
var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite store with the default driver and pool settings.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	return Open(Options{Driver: DriverMattn, DSN: dsn})
}

// Open opens the database described by opts and runs migrations.
func Open(opts Options) (*SQLiteStore, error) {
	if opts.Driver == "" {
		opts.Driver = DriverMattn
	}
	if opts.Driver != DriverMattn && opts.Driver != DriverModernc {
		return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}
	if opts.PoolSize <= 0 {
		opts.PoolSize = 10
	}

	db, err := sql.Open(opts.Driver, withPragmas(opts.Driver, opts.DSN))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if isMemoryDSN(opts.DSN) {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		db.SetMaxOpenConns(opts.PoolSize)
		db.SetMaxIdleConns(1)
		db.SetConnMaxIdleTime(5 * time.Minute)
	}

	store := &SQLiteStore{
		db:        db,
		opTimeout: opts.OpTimeout,
		now:       func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// withPragmas appends the per-connection settings each driver understands, so
// foreign keys are enforced on every pooled connection and not just the first.
func withPragmas(driver, dsn string) string {
	var params []string
	switch driver {
	case DriverModernc:
		params = []string{
			"_pragma=foreign_keys(1)",
			fmt.Sprintf("_pragma=busy_timeout(%d)", busyTimeoutMs),
			"_time_format=sqlite",
		}
	default:
		params = []string{
			"_foreign_keys=on",
			fmt.Sprintf("_busy_timeout=%d", busyTimeoutMs),
		}
	}

	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(params, "&")
}

func isMemoryDSN(dsn string) bool {
	return dsn == ":memory:" || strings.HasPrefix(dsn, ":memory:?") || strings.Contains(dsn, "mode=memory")
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS chat_sessions (
			id TEXT PRIMARY KEY,
			session_name TEXT NOT NULL DEFAULT 'New Chat',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chat_sessions_updated ON chat_sessions(updated_at)`,
		`CREATE TABLE IF NOT EXISTS chat_messages (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			role TEXT NOT NULL CHECK (role IN ('user', 'assistant')),
			content TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (session_id) REFERENCES chat_sessions(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chat_messages_session ON chat_messages(session_id, created_at)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping checks that a connection can be acquired and used.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()
	if err := s.db.PingContext(ctx); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

// opContext bounds a single operation, pool acquisition included.
func (s *SQLiteStore) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.opTimeout)
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrStoreUnavailable, op, err)
}

func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

// CreateSession creates a new session.
func (s *SQLiteStore) CreateSession(ctx context.Context, name string) (*domain.Session, error) {
	if strings.TrimSpace(name) == "" {
		name = domain.DefaultSessionName
	}
	now := s.now()
	session := &domain.Session{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_sessions (id, session_name, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		session.ID, session.Name, session.CreatedAt, session.UpdatedAt)
	if err != nil {
		return nil, unavailable("create session", err)
	}
	return session, nil
}

// GetSession retrieves a session by ID.
func (s *SQLiteStore) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	var session domain.Session
	err := s.db.QueryRowContext(ctx,
		`SELECT id, session_name, created_at, updated_at FROM chat_sessions WHERE id = ?`,
		sessionID).Scan(&session.ID, &session.Name, &session.CreatedAt, &session.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("get session", err)
	}
	return &session, nil
}

// ListSessions lists sessions, most recently active first.
func (s *SQLiteStore) ListSessions(ctx context.Context, limit int) ([]domain.Session, error) {
	if limit <= 0 {
		limit = DefaultSessionListLimit
	}
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_name, created_at, updated_at FROM chat_sessions
		ORDER BY updated_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, unavailable("list sessions", err)
	}
	defer rows.Close()

	sessions := []domain.Session{}
	for rows.Next() {
		var session domain.Session
		if err := rows.Scan(&session.ID, &session.Name, &session.CreatedAt, &session.UpdatedAt); err != nil {
			return nil, unavailable("scan session", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list sessions", err)
	}
	return sessions, nil
}

// TouchSession moves updated_at forward to the current time. The new value is
// always strictly greater than the stored one, even when the clock has not
// advanced since the previous write.
func (s *SQLiteStore) TouchSession(ctx context.Context, sessionID string) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	for attempt := 0; attempt < touchMaxRetries; attempt++ {
		var prev time.Time
		err := s.db.QueryRowContext(ctx,
			`SELECT updated_at FROM chat_sessions WHERE id = ?`, sessionID).Scan(&prev)
		if err == sql.ErrNoRows {
			return fmt.Errorf("touch session %s: %w", sessionID, domain.ErrNotFound)
		}
		if err != nil {
			return unavailable("touch session", err)
		}

		next := s.now()
		if !next.After(prev) {
			next = prev.Add(time.Microsecond)
		}

		res, err := s.db.ExecContext(ctx,
			`UPDATE chat_sessions SET updated_at = ? WHERE id = ? AND updated_at = ?`,
			next, sessionID, prev)
		if err != nil {
			return unavailable("touch session", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return unavailable("touch session", err)
		}
		if n == 1 {
			return nil
		}
		// A concurrent touch won; re-read and move past it.
	}
	return unavailable("touch session", errors.New("too many concurrent updates"))
}

// DeleteSession removes a session. Its messages are removed by the cascade in
// the same statement.
func (s *SQLiteStore) DeleteSession(ctx context.Context, sessionID string) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM chat_sessions WHERE id = ?`, sessionID); err != nil {
		return unavailable("delete session", err)
	}
	return nil
}

// CreateMessage creates a new message. A missing session is reported by the
// foreign key, not by a lookup.
func (s *SQLiteStore) CreateMessage(ctx context.Context, sessionID string, role domain.Role, content string) (*domain.Message, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", domain.ErrInvalidInput, role)
	}
	msg := &domain.Message{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: s.now(),
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_messages (id, session_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		msg.ID, msg.SessionID, string(msg.Role), msg.Content, msg.CreatedAt)
	if isForeignKeyViolation(err) {
		return nil, fmt.Errorf("session %s: %w", sessionID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, unavailable("create message", err)
	}
	return msg, nil
}

// GetMessage retrieves a message by ID.
func (s *SQLiteStore) GetMessage(ctx context.Context, messageID string) (*domain.Message, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	var msg domain.Message
	err := s.db.QueryRowContext(ctx,
		`SELECT id, session_id, role, content, created_at FROM chat_messages WHERE id = ?`,
		messageID).Scan(&msg.ID, &msg.SessionID, &msg.Role, &msg.Content, &msg.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("get message", err)
	}
	return &msg, nil
}

// ListMessagesAscending returns the oldest messages of a session first.
func (s *SQLiteStore) ListMessagesAscending(ctx context.Context, sessionID string, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return s.queryMessages(ctx, "list messages",
		`SELECT id, session_id, role, content, created_at FROM chat_messages
		WHERE session_id = ? ORDER BY created_at ASC, rowid ASC LIMIT ?`,
		sessionID, limit)
}

// ListRecentMessagesAscending fetches the newest limit messages and returns
// them in chronological order.
func (s *SQLiteStore) ListRecentMessagesAscending(ctx context.Context, sessionID string, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	messages, err := s.queryMessages(ctx, "list recent messages",
		`SELECT id, session_id, role, content, created_at FROM chat_messages
		WHERE session_id = ? ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		sessionID, limit)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (s *SQLiteStore) queryMessages(ctx context.Context, op, query string, args ...interface{}) ([]domain.Message, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable(op, err)
	}
	defer rows.Close()

	messages := []domain.Message{}
	for rows.Next() {
		var msg domain.Message
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.Role, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, unavailable(op, err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(op, err)
	}
	return messages, nil
}
