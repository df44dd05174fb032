package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/erni-gruppe/building-agents/core"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS conversations (
	id                TEXT PRIMARY KEY,
	active_specialist TEXT NOT NULL,
	context           TEXT NOT NULL,
	created_at        TEXT NOT NULL,
	updated_at        TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS turns (
	seq             INTEGER PRIMARY KEY AUTOINCREMENT,
	conversation_id TEXT NOT NULL REFERENCES conversations(id),
	role            TEXT NOT NULL,
	specialist      TEXT NOT NULL DEFAULT '',
	content         TEXT NOT NULL,
	created_at      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_turns_conversation ON turns(conversation_id);
`

// SQLiteStore persists conversations in an embedded SQLite database. It
// needs no external service, which makes it the default durable backend
// for single-instance deployments.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and if necessary creates) the database at path and
// applies the schema. Use ":memory:" for an ephemeral store.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// The sqlite driver serializes writes; a single connection avoids
	// SQLITE_BUSY under concurrent turns.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Create implements core.ConversationStore.
func (s *SQLiteStore) Create(ctx context.Context, conv *core.Conversation) error {
	contextJSON, err := json.Marshal(conv.Context)
	if err != nil {
		return fmt.Errorf("marshal project context: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO conversations (id, active_specialist, context, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		conv.ID, conv.ActiveSpecialist, string(contextJSON),
		conv.CreatedAt.UTC().Format(time.RFC3339Nano),
		conv.UpdatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert conversation %s: %w", conv.ID, err)
	}

	for _, turn := range conv.Turns {
		if err := insertTurn(ctx, tx, conv.ID, turn); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Load implements core.ConversationStore.
func (s *SQLiteStore) Load(ctx context.Context, id string) (*core.Conversation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT active_specialist, context, created_at, updated_at FROM conversations WHERE id = ?`, id)

	var (
		activeSpecialist string
		contextJSON      string
		createdAt        string
		updatedAt        string
	)
	if err := row.Scan(&activeSpecialist, &contextJSON, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrConversationNotFound
		}
		return nil, fmt.Errorf("load conversation %s: %w", id, err)
	}

	conv := &core.Conversation{
		ID:               id,
		ActiveSpecialist: activeSpecialist,
		Context:          core.NewProjectContext(),
	}
	if err := json.Unmarshal([]byte(contextJSON), conv.Context); err != nil {
		return nil, fmt.Errorf("unmarshal project context for %s: %w", id, err)
	}
	conv.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	conv.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)

	rows, err := s.db.QueryContext(ctx,
		`SELECT role, specialist, content, created_at FROM turns WHERE conversation_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("load turns for %s: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			role       string
			specialist string
			content    string
			stamp      string
		)
		if err := rows.Scan(&role, &specialist, &content, &stamp); err != nil {
			return nil, fmt.Errorf("scan turn for %s: %w", id, err)
		}
		turn := core.Turn{Role: core.Role(role), Specialist: specialist, Content: content}
		turn.Timestamp, _ = time.Parse(time.RFC3339Nano, stamp)
		conv.Turns = append(conv.Turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turns for %s: %w", id, err)
	}
	return conv, nil
}

// AppendTurns implements core.ConversationStore.
func (s *SQLiteStore) AppendTurns(ctx context.Context, id string, turns ...core.Turn) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := touchConversation(ctx, tx, id); err != nil {
		return err
	}
	for _, turn := range turns {
		if err := insertTurn(ctx, tx, id, turn); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// UpdateState implements core.ConversationStore.
func (s *SQLiteStore) UpdateState(ctx context.Context, id string, activeSpecialist string, pc *core.ProjectContext) error {
	contextJSON, err := json.Marshal(pc)
	if err != nil {
		return fmt.Errorf("marshal project context: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE conversations SET active_specialist = ?, context = ?, updated_at = ? WHERE id = ?`,
		activeSpecialist, string(contextJSON), time.Now().UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return fmt.Errorf("update conversation %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update conversation %s: %w", id, err)
	}
	if affected == 0 {
		return core.ErrConversationNotFound
	}
	return nil
}

func insertTurn(ctx context.Context, tx *sql.Tx, conversationID string, turn core.Turn) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO turns (conversation_id, role, specialist, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		conversationID, string(turn.Role), turn.Specialist, turn.Content,
		turn.Timestamp.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert turn for %s: %w", conversationID, err)
	}
	return nil
}

func touchConversation(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE conversations SET updated_at = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return fmt.Errorf("touch conversation %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("touch conversation %s: %w", id, err)
	}
	if affected == 0 {
		return core.ErrConversationNotFound
	}
	return nil
}

var _ core.ConversationStore = (*SQLiteStore)(nil)
