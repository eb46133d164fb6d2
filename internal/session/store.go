package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/helpdesk/support-chat/internal/gate"
)

const (
	// SessionPrefix is the Redis key prefix for all session hashes.
	SessionPrefix = "session:"

	// AccountPrefix is the Redis key prefix for the account -> live session
	// index sets.
	AccountPrefix = "account_sessions:"

	// SessionTTL is the time-to-live for session keys in Redis.
	SessionTTL = 1 * time.Hour
)

// Session is the ephemeral state of one WebSocket connection.
type Session struct {
	ID             string `redis:"id"`
	AccountID      string `redis:"account_id"`      // empty until authed
	Role           string `redis:"role"`            // resolved server-side at auth
	ConversationID string `redis:"conversation_id"` // open view, empty if none
	Server         string `redis:"server"`          // which server instance
	CreatedAt      int64  `redis:"created_at"`      // unix timestamp
	LastActive     int64  `redis:"last_active"`     // unix timestamp
}

// Authed reports whether the session has been bound to an account.
func (s *Session) Authed() bool {
	return s.AccountID != ""
}

// Store manages session state in Redis.
type Store struct {
	client     *redis.Client
	serverName string // identifier for this server instance
}

// NewStore creates a session store connected to Redis.
func NewStore(redisAddr string, serverName string) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})

	// Verify connection.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("session: redis connection failed: %w", err)
	}

	return &Store{client: client, serverName: serverName}, nil
}

// Create stores a new unauthenticated session with a 1h TTL.
func (s *Store) Create(ctx context.Context, sessionID string) error {
	key := SessionPrefix + sessionID
	now := time.Now().Unix()

	session := map[string]interface{}{
		"id":              sessionID,
		"account_id":      "",
		"role":            "",
		"conversation_id": "",
		"server":          s.serverName,
		"created_at":      now,
		"last_active":     now,
	}

	pipe := s.client.Pipeline()
	pipe.HSet(ctx, key, session)
	pipe.Expire(ctx, key, SessionTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// Get retrieves a session from Redis. Returns nil if not found.
func (s *Store) Get(ctx context.Context, sessionID string) (*Session, error) {
	key := SessionPrefix + sessionID
	var session Session
	err := s.client.HGetAll(ctx, key).Scan(&session)
	if err != nil {
		return nil, err
	}
	if session.ID == "" {
		return nil, nil // not found
	}
	return &session, nil
}

// Bind attaches an authenticated account to the session and records the
// session in the account's index set, so a ban can find and drop it.
func (s *Store) Bind(ctx context.Context, sessionID, accountID string, role gate.Role) error {
	key := SessionPrefix + sessionID
	idx := AccountPrefix + accountID

	pipe := s.client.Pipeline()
	pipe.HSet(ctx, key, "account_id", accountID, "role", string(role), "last_active", time.Now().Unix())
	pipe.Expire(ctx, key, SessionTTL)
	pipe.SAdd(ctx, idx, sessionID)
	pipe.Expire(ctx, idx, SessionTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// SetConversationID records the conversation view the session holds open.
func (s *Store) SetConversationID(ctx context.Context, sessionID string, convID string) error {
	key := SessionPrefix + sessionID
	return s.client.HSet(ctx, key, "conversation_id", convID, "last_active", time.Now().Unix()).Err()
}

// ClearConversationID drops the open conversation view, if any.
func (s *Store) ClearConversationID(ctx context.Context, sessionID string) error {
	key := SessionPrefix + sessionID
	return s.client.HSet(ctx, key, "conversation_id", "", "last_active", time.Now().Unix()).Err()
}

// RefreshTTL extends the session's TTL.
func (s *Store) RefreshTTL(ctx context.Context, sessionID string) error {
	key := SessionPrefix + sessionID
	return s.client.Expire(ctx, key, SessionTTL).Err()
}

// Delete removes a session and its entry in the account index.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	sess, err := s.Get(ctx, sessionID)
	if err != nil {
		return err
	}

	pipe := s.client.Pipeline()
	pipe.Del(ctx, SessionPrefix+sessionID)
	if sess != nil && sess.AccountID != "" {
		pipe.SRem(ctx, AccountPrefix+sess.AccountID, sessionID)
	}
	_, err = pipe.Exec(ctx)
	return err
}

// SessionsForAccount returns the ids of the account's live sessions.
func (s *Store) SessionsForAccount(ctx context.Context, accountID string) ([]string, error) {
	return s.client.SMembers(ctx, AccountPrefix+accountID).Result()
}

// DeleteForAccount removes every live session of an account along with the
// index set itself. Called by the moderation coordinator on ban; re-running
// against an already-swept account is a no-op.
func (s *Store) DeleteForAccount(ctx context.Context, accountID string) error {
	ids, err := s.SessionsForAccount(ctx, accountID)
	if err != nil {
		return fmt.Errorf("session: list for account: %w", err)
	}

	pipe := s.client.Pipeline()
	for _, id := range ids {
		pipe.Del(ctx, SessionPrefix+id)
	}
	pipe.Del(ctx, AccountPrefix+accountID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("session: delete for account: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}

// Client returns the underlying Redis client for use by other packages.
func (s *Store) Client() *redis.Client {
	return s.client
}
