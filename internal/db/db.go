package db

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/havenchat/haven/internal/models"
)

// ErrNotFound is returned when a conversation does not exist or belongs to a
// different user.
var ErrNotFound = errors.New("conversation not found")

// listLimit caps the number of conversations returned by ListConversations.
const listLimit = 50

// dialect abstracts the differences between the supported backends. Queries
// themselves are shared: both drivers accept $N placeholders and RETURNING.
type dialect interface {
	open(dsn string) (*sql.DB, error)
	schema() []string
}

type Store struct {
	db      *sql.DB
	dialect dialect
}

// New opens the database named by databaseURL and bootstraps the schema.
// A postgres:// or postgresql:// URL selects Postgres; anything else is
// treated as a SQLite path.
func New(databaseURL string) (*Store, error) {
	var d dialect
	if strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://") {
		d = postgresDialect{}
	} else {
		d = sqliteDialect{}
	}

	database, err := d.open(databaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}

	s := &Store{db: database, dialect: d}
	if err := s.bootstrap(context.Background()); err != nil {
		database.Close()
		return nil, errors.Wrap(err, "bootstrap schema")
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// bootstrap creates the tables if they are missing. Runs once at startup;
// every statement is idempotent.
func (s *Store) bootstrap(ctx context.Context) error {
	for _, stmt := range s.dialect.schema() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// ListConversations returns the user's conversations ordered by last update,
// newest first, each annotated with its message count.
func (s *Store) ListConversations(ctx context.Context, userID string) ([]models.Conversation, error) {
	query := `
        SELECT c.id, c.user_id, c.title, c.summary, c.created_at, c.updated_at, COUNT(m.id)
        FROM conversations c
        LEFT JOIN messages m ON c.id = m.conversation_id
        WHERE c.user_id = $1
        GROUP BY c.id, c.user_id, c.title, c.summary, c.created_at, c.updated_at
        ORDER BY c.updated_at DESC
        LIMIT $2`

	rows, err := s.db.QueryContext(ctx, query, userID, listLimit)
	if err != nil {
		return nil, errors.Wrap(err, "list conversations")
	}
	defer rows.Close()

	conversations := make([]models.Conversation, 0)
	for rows.Next() {
		var conv models.Conversation
		if err := rows.Scan(&conv.ID, &conv.UserID, &conv.Title, &conv.Summary,
			&conv.CreatedAt, &conv.UpdatedAt, &conv.MessageCount); err != nil {
			return nil, errors.Wrap(err, "scan conversation")
		}
		conversations = append(conversations, conv)
	}
	return conversations, rows.Err()
}

// GetConversation returns the conversation and its messages ordered by logical
// timestamp ascending, only when it belongs to userID.
func (s *Store) GetConversation(ctx context.Context, userID string, id int64) (*models.Conversation, error) {
	conv := &models.Conversation{}
	err := s.db.QueryRowContext(ctx, `
        SELECT id, user_id, title, summary, created_at, updated_at
        FROM conversations
        WHERE id = $1 AND user_id = $2`, id, userID).
		Scan(&conv.ID, &conv.UserID, &conv.Title, &conv.Summary, &conv.CreatedAt, &conv.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "get conversation")
	}

	rows, err := s.db.QueryContext(ctx, `
        SELECT id, conversation_id, role, content, timestamp
        FROM messages
        WHERE conversation_id = $1
        ORDER BY timestamp ASC`, id)
	if err != nil {
		return nil, errors.Wrap(err, "get messages")
	}
	defer rows.Close()

	conv.Messages = make([]models.Message, 0)
	for rows.Next() {
		var msg models.Message
		if err := rows.Scan(&msg.ID, &msg.ConvID, &msg.Role, &msg.Content, &msg.Timestamp); err != nil {
			return nil, errors.Wrap(err, "scan message")
		}
		conv.Messages = append(conv.Messages, msg)
	}
	return conv, rows.Err()
}

// CreateConversation inserts the conversation row and its initial messages in
// a single transaction, so a failure partway leaves nothing behind. Message
// order and timestamps are preserved; a zero timestamp gets the current time.
// The returned conversation does not carry its messages.
func (s *Store) CreateConversation(ctx context.Context, userID, title, summary string, msgs []models.Message) (*models.Conversation, error) {
	if title == "" {
		title = "New Conversation"
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "begin transaction")
	}
	defer tx.Rollback()

	conv := &models.Conversation{UserID: userID, Title: title, Summary: summary}
	err = tx.QueryRowContext(ctx, `
        INSERT INTO conversations (user_id, title, summary)
        VALUES ($1, $2, $3)
        RETURNING id, created_at, updated_at`, userID, title, summary).
		Scan(&conv.ID, &conv.CreatedAt, &conv.UpdatedAt)
	if err != nil {
		return nil, errors.Wrap(err, "insert conversation")
	}

	for _, msg := range msgs {
		ts := msg.Timestamp
		if ts == 0 {
			ts = time.Now().UnixMilli()
		}
		if _, err := tx.ExecContext(ctx, `
            INSERT INTO messages (conversation_id, role, content, timestamp)
            VALUES ($1, $2, $3, $4)`, conv.ID, msg.Role, msg.Content, ts); err != nil {
			return nil, errors.Wrap(err, "insert message")
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "commit conversation")
	}
	return conv, nil
}

// RenameConversation updates the title and refreshes updated_at.
func (s *Store) RenameConversation(ctx context.Context, id int64, title string) (*models.Conversation, error) {
	conv := &models.Conversation{}
	err := s.db.QueryRowContext(ctx, `
        UPDATE conversations
        SET title = $1, updated_at = CURRENT_TIMESTAMP
        WHERE id = $2
        RETURNING id, user_id, title, summary, created_at, updated_at`, title, id).
		Scan(&conv.ID, &conv.UserID, &conv.Title, &conv.Summary, &conv.CreatedAt, &conv.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "rename conversation")
	}
	return conv, nil
}

// DeleteConversation removes the conversation and, by cascade, its messages.
// Deleting an absent id is not an error.
func (s *Store) DeleteConversation(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = $1`, id)
	return errors.Wrap(err, "delete conversation")
}
