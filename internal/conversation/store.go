// Package conversation provides PostgreSQL-backed storage for support
// conversations and their messages. A conversation exclusively owns its
// messages: no message outlives its conversation, and deletion is a single
// transaction that removes messages first, then the conversation row.
//
// Message order within a conversation is total: every message carries a
// server-assigned timestamp plus a per-conversation sequence number, and
// readers must order by (created_at, seq) so that clock skew can never
// reorder history.
package conversation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/helpdesk/support-chat/internal/gate"
)

var (
	// ErrNotFound is returned when the conversation does not exist (or was
	// cascade-deleted while the caller still held its id).
	ErrNotFound = errors.New("conversation: not found")

	// ErrInvalidMessage is returned when a message has neither text (after
	// trimming) nor an attachment.
	ErrInvalidMessage = errors.New("conversation: message needs text or attachment")

	// ErrInvalidKind is returned for an unknown conversation kind.
	ErrInvalidKind = errors.New("conversation: invalid kind")
)

// MaxTextChars is the maximum character count of a message body.
const MaxTextChars = 2000

// Conversation is one support thread owned by a single account.
type Conversation struct {
	ID        string
	OwnerID   string
	Kind      gate.Kind
	CreatedAt time.Time
}

// Message is an immutable entry in a conversation. Exactly one of Text and
// AttachmentURL may be empty, never both.
type Message struct {
	ID             string
	ConversationID string
	SenderID       string
	Text           string
	AttachmentURL  string
	Seq            int64
	CreatedAt      time.Time
}

// Store manages conversations and messages in PostgreSQL.
type Store struct {
	db *sql.DB
}

// NewStore creates a conversation store backed by the given database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// OpenOrCreate returns the account's conversation of the given kind,
// creating it if absent. The (owner_id, kind) unique constraint makes
// concurrent calls converge on a single row. It does not consult the access
// gate: the gate governs writing, not viewing history.
func (s *Store) OpenOrCreate(ctx context.Context, ownerID string, kind gate.Kind) (*Conversation, error) {
	if !kind.Valid() {
		return nil, ErrInvalidKind
	}

	const insert = `
		INSERT INTO conversations (id, owner_id, kind)
		VALUES ($1, $2, $3)
		ON CONFLICT (owner_id, kind) DO NOTHING`

	if _, err := s.db.ExecContext(ctx, insert, uuid.New().String(), ownerID, kind); err != nil {
		return nil, fmt.Errorf("conversation: create: %w", err)
	}

	const query = `
		SELECT id, owner_id, kind, created_at
		FROM conversations
		WHERE owner_id = $1 AND kind = $2`

	var c Conversation
	err := s.db.QueryRowContext(ctx, query, ownerID, kind).
		Scan(&c.ID, &c.OwnerID, &c.Kind, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("conversation: open: %w", err)
	}
	return &c, nil
}

// Get retrieves a conversation by id. Returns ErrNotFound if absent.
func (s *Store) Get(ctx context.Context, id string) (*Conversation, error) {
	const query = `
		SELECT id, owner_id, kind, created_at
		FROM conversations
		WHERE id = $1`

	var c Conversation
	err := s.db.QueryRowContext(ctx, query, id).
		Scan(&c.ID, &c.OwnerID, &c.Kind, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("conversation: get: %w", err)
	}
	return &c, nil
}

// Append persists a new message as one atomic transaction: the conversation
// row is locked FOR UPDATE (serializing against a cascade delete in flight —
// an append can never produce an orphan message), and both the next sequence
// number and the server timestamp are assigned under that lock, so
// (created_at, seq) order always agrees with insertion order.
// Either the full message is persisted or nothing is.
func (s *Store) Append(ctx context.Context, convID, senderID, text, attachmentURL string) (*Message, error) {
	text = strings.TrimSpace(text)
	if text == "" && attachmentURL == "" {
		return nil, ErrInvalidMessage
	}
	if len([]rune(text)) > MaxTextChars {
		return nil, fmt.Errorf("%w: text exceeds %d characters", ErrInvalidMessage, MaxTextChars)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("conversation: append begin: %w", err)
	}
	defer tx.Rollback()

	// Lock the owning conversation. If it is mid-cascade or already gone,
	// the append fails with ErrNotFound instead of orphaning a message.
	var locked string
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM conversations WHERE id = $1 FOR UPDATE`, convID).Scan(&locked)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("conversation: append lock: %w", err)
	}

	msg := &Message{
		ID:             uuid.New().String(),
		ConversationID: convID,
		SenderID:       senderID,
		Text:           text,
		AttachmentURL:  attachmentURL,
	}

	// created_at uses clock_timestamp(), not the column default: NOW() is
	// the transaction start time, taken before the row lock above, so two
	// racing appends could commit with timestamps inverting their seq
	// order. clock_timestamp() is read here, under the lock, and is
	// clamped to never run behind the conversation's latest message.
	const insert = `
		INSERT INTO messages (id, conversation_id, sender_id, text_content, attachment_url, seq, created_at)
		SELECT $1, $2, $3, NULLIF($4, ''), NULLIF($5, ''),
		       COALESCE(MAX(seq), 0) + 1,
		       GREATEST(clock_timestamp(), COALESCE(MAX(created_at), clock_timestamp()))
		FROM messages WHERE conversation_id = $2
		RETURNING seq, created_at`

	err = tx.QueryRowContext(ctx, insert,
		msg.ID, convID, senderID, text, attachmentURL).
		Scan(&msg.Seq, &msg.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("conversation: append insert: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("conversation: append commit: %w", err)
	}
	return msg, nil
}

// List returns the full message history of a conversation in canonical
// (created_at, seq) ascending order — a snapshot at call time. Returns
// ErrNotFound if the conversation does not exist.
func (s *Store) List(ctx context.Context, convID string) ([]Message, error) {
	if _, err := s.Get(ctx, convID); err != nil {
		return nil, err
	}

	const query = `
		SELECT id, conversation_id, sender_id,
		       COALESCE(text_content, ''), COALESCE(attachment_url, ''),
		       seq, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC, seq ASC`

	rows, err := s.db.QueryContext(ctx, query, convID)
	if err != nil {
		return nil, fmt.Errorf("conversation: list: %w", err)
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID,
			&m.Text, &m.AttachmentURL, &m.Seq, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("conversation: list scan: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("conversation: list rows: %w", err)
	}
	return msgs, nil
}

// DeleteCascade removes a conversation together with all of its messages in
// one transaction. Deleting an absent conversation is a no-op, so a retry
// after partial failure always converges: messages can never survive their
// conversation, and the conversation row is only removed after its messages.
func (s *Store) DeleteCascade(ctx context.Context, convID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("conversation: delete begin: %w", err)
	}
	defer tx.Rollback()

	// Lock the row first so an in-flight Append on the same conversation
	// either lands before the delete (and is swept below) or fails NotFound.
	var locked string
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM conversations WHERE id = $1 FOR UPDATE`, convID).Scan(&locked)
	if errors.Is(err, sql.ErrNoRows) {
		return nil // already gone
	}
	if err != nil {
		return fmt.Errorf("conversation: delete lock: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM messages WHERE conversation_id = $1`, convID); err != nil {
		return fmt.Errorf("conversation: delete messages: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM conversations WHERE id = $1`, convID); err != nil {
		return fmt.Errorf("conversation: delete conversation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("conversation: delete commit: %w", err)
	}
	return nil
}

// DeleteAllOfKind cascade-deletes every conversation of the given kind owned
// by an account. It is the moderation side effect of a ban-status flip and
// is idempotent: re-running after any partial failure completes the sweep.
// Returns the ids of the conversations that were removed this run.
func (s *Store) DeleteAllOfKind(ctx context.Context, ownerID string, kind gate.Kind) ([]string, error) {
	if !kind.Valid() {
		return nil, ErrInvalidKind
	}

	const query = `SELECT id FROM conversations WHERE owner_id = $1 AND kind = $2`

	rows, err := s.db.QueryContext(ctx, query, ownerID, kind)
	if err != nil {
		return nil, fmt.Errorf("conversation: list for delete: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("conversation: list for delete scan: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("conversation: list for delete rows: %w", err)
	}

	for _, id := range ids {
		if err := s.DeleteCascade(ctx, id); err != nil {
			return nil, err
		}
	}
	return ids, nil
}
