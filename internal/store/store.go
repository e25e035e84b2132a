package store

import (
	"context"
	"fmt"
	"time"

	"github.com/andresmejia3/moodring/internal/types"
	"github.com/jackc/pgx/v5"
)

// Store manages the PostgreSQL connection that records finished sampling sessions.
type Store struct {
	conn *pgx.Conn
}

// Session is one finished sampling run.
type Session struct {
	ID            int64
	Command       string
	Source        string
	SourceID      string // file fingerprint, empty for devices
	Backend       string
	Dominant      types.Emotion
	DominantCount int
	FramesRead    int
	FramesSkipped int
	Log           []types.Emotion
	CreatedAt     time.Time
}

// New establishes a connection to the database and ensures the schema is initialized.
func New(ctx context.Context, connString string) (*Store, error) {
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return nil, err
	}

	// Initialize schema (Auto-Migration)
	if err := initSchema(ctx, conn); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	return &Store{conn: conn}, nil
}

// initSchema creates the necessary tables if they don't exist (Auto-Migration).
func initSchema(ctx context.Context, conn *pgx.Conn) error {
	query := `
		CREATE TABLE IF NOT EXISTS emotion_sessions (
			id BIGSERIAL PRIMARY KEY,
			command TEXT NOT NULL,
			source TEXT NOT NULL,
			source_id TEXT NOT NULL DEFAULT '',
			backend TEXT NOT NULL DEFAULT '',
			dominant TEXT NOT NULL,
			dominant_count INT NOT NULL,
			frames_read INT NOT NULL,
			frames_skipped INT NOT NULL,
			created_at TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS emotion_session_labels (
			session_id BIGINT REFERENCES emotion_sessions(id) ON DELETE CASCADE,
			position INT NOT NULL,
			label TEXT NOT NULL,
			PRIMARY KEY (session_id, position)
		);
		CREATE INDEX IF NOT EXISTS emotion_sessions_source_id_idx ON emotion_sessions (source_id);
	`
	_, err := conn.Exec(ctx, query)
	return err
}

// Close terminates the database connection.
func (s *Store) Close(ctx context.Context) {
	s.conn.Close(ctx)
}

// InsertSession saves a session and its ordered label log in one transaction.
func (s *Store) InsertSession(ctx context.Context, sess Session) (int64, error) {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	var id int64
	err = tx.QueryRow(ctx, `
		INSERT INTO emotion_sessions (command, source, source_id, backend, dominant, dominant_count, frames_read, frames_skipped)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, sess.Command, sess.Source, sess.SourceID, sess.Backend, string(sess.Dominant), sess.DominantCount, sess.FramesRead, sess.FramesSkipped).Scan(&id)
	if err != nil {
		return 0, err
	}

	if len(sess.Log) > 0 {
		rows := make([][]any, len(sess.Log))
		for i, e := range sess.Log {
			rows[i] = []any{id, i, string(e)}
		}
		if _, err := tx.CopyFrom(ctx,
			pgx.Identifier{"emotion_session_labels"},
			[]string{"session_id", "position", "label"},
			pgx.CopyFromRows(rows),
		); err != nil {
			return 0, err
		}
	}

	return id, tx.Commit(ctx)
}

// ListSessions returns the most recent sessions first, without their logs.
func (s *Store) ListSessions(ctx context.Context, limit int) ([]Session, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT id, command, source, source_id, backend, dominant, dominant_count, frames_read, frames_skipped, created_at
		FROM emotion_sessions
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var sess Session
		var dominant string
		if err := rows.Scan(&sess.ID, &sess.Command, &sess.Source, &sess.SourceID, &sess.Backend, &dominant,
			&sess.DominantCount, &sess.FramesRead, &sess.FramesSkipped, &sess.CreatedAt); err != nil {
			return nil, err
		}
		sess.Dominant = types.Emotion(dominant)
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// GetSessionLog returns the ordered label log of a session.
func (s *Store) GetSessionLog(ctx context.Context, id int64) ([]types.Emotion, error) {
	rows, err := s.conn.Query(ctx, "SELECT label FROM emotion_session_labels WHERE session_id = $1 ORDER BY position", id)
	if err != nil {
		return nil, err
	}
	labels, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}
	log := make([]types.Emotion, len(labels))
	for i, l := range labels {
		log[i] = types.Emotion(l)
	}
	return log, nil
}

// Reset drops all application tables to clear the database state.
// This is useful for development to force a schema refresh without migrations.
func (s *Store) Reset(ctx context.Context) error {
	_, err := s.conn.Exec(ctx, `
		DROP TABLE IF EXISTS emotion_session_labels CASCADE;
		DROP TABLE IF EXISTS emotion_sessions CASCADE;
	`)
	return err
}
