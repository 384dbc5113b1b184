// Package conversations persists chat transcripts in SQLite.
package conversations

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/aschepis/llmchat/llm"
	"github.com/aschepis/llmchat/migrations"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

const turnsTable = "conversation_turns"

// Store handles persistence of conversation turns.
// It implements chat.Recorder.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

// Open opens the SQLite database at dsn and applies pending migrations.
func Open(ctx context.Context, dsn string, logger zerolog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open transcript database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping transcript database: %w", err)
	}
	if err := migrations.Run(db, logger); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := NewStore(db)
	s.logger = logger.With().Str("component", "conversationStore").Logger()
	return s, nil
}

// NewStore creates a Store on an already migrated database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, logger: zerolog.Nop()}
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record appends turns to a conversation, after any turns already stored.
func (s *Store) Record(ctx context.Context, conversationID string, turns ...llm.Turn) error {
	if conversationID == "" {
		return llm.NewValidationError("conversation id is required", nil)
	}
	if len(turns) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	queryStr, args, err := sq.Select("COALESCE(MAX(seq), 0)").
		From(turnsTable).
		Where(sq.Eq{"conversation_id": conversationID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	var seq int64
	if err := tx.QueryRowContext(ctx, queryStr, args...).Scan(&seq); err != nil {
		return fmt.Errorf("read last sequence: %w", err)
	}

	now := time.Now().Unix()
	insert := sq.Insert(turnsTable).
		Columns("conversation_id", "seq", "role", "content", "attachments", "created_at")
	for _, turn := range turns {
		seq++
		attachments, err := encodeAttachments(turn.Attachments)
		if err != nil {
			return err
		}
		insert = insert.Values(conversationID, seq, string(turn.Role), turn.Content, attachments, now)
	}

	queryStr, args, err = insert.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, queryStr, args...); err != nil {
		return fmt.Errorf("insert turns: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit turns: %w", err)
	}
	s.logger.Debug().Str("conversationID", conversationID).Int("turns", len(turns)).Msg("Recorded conversation turns")
	return nil
}

// Load returns the turns of a conversation in the order they were recorded.
func (s *Store) Load(ctx context.Context, conversationID string) ([]llm.Turn, error) {
	queryStr, args, err := sq.Select("role", "content", "attachments").
		From(turnsTable).
		Where(sq.Eq{"conversation_id": conversationID}).
		OrderBy("seq ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, queryStr, args...)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var turns []llm.Turn
	for rows.Next() {
		var role, content string
		var attachments sql.NullString
		if err := rows.Scan(&role, &content, &attachments); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		fragments, err := decodeAttachments(attachments)
		if err != nil {
			return nil, err
		}
		turns = append(turns, llm.NewTurn(llm.Role(role), content, fragments...))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turns: %w", err)
	}
	if len(turns) == 0 {
		return nil, llm.NewNotFoundError(fmt.Sprintf("conversation %q not found", conversationID), nil)
	}
	return turns, nil
}

// Conversations lists stored conversation ids, most recently updated first.
func (s *Store) Conversations(ctx context.Context) ([]string, error) {
	queryStr, args, err := sq.Select("conversation_id").
		From(turnsTable).
		GroupBy("conversation_id").
		OrderBy("MAX(id) DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, queryStr, args...)
	if err != nil {
		return nil, fmt.Errorf("query conversations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Delete removes every turn of a conversation.
func (s *Store) Delete(ctx context.Context, conversationID string) error {
	queryStr, args, err := sq.Delete(turnsTable).
		Where(sq.Eq{"conversation_id": conversationID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	res, err := s.db.ExecContext(ctx, queryStr, args...)
	if err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return llm.NewNotFoundError(fmt.Sprintf("conversation %q not found", conversationID), nil)
	}
	return nil
}

func encodeAttachments(fragments []llm.Fragment) (any, error) {
	if len(fragments) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(fragments)
	if err != nil {
		return nil, fmt.Errorf("marshal attachments: %w", err)
	}
	return string(data), nil
}

func decodeAttachments(raw sql.NullString) ([]llm.Fragment, error) {
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}
	var fragments []llm.Fragment
	if err := json.Unmarshal([]byte(raw.String), &fragments); err != nil {
		return nil, fmt.Errorf("unmarshal attachments: %w", err)
	}
	return fragments, nil
}
