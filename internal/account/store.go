// Package account provides PostgreSQL-backed storage for user accounts.
// The identity provider owns registration and login; the chat core reads
// role and ban status from here and writes the banned flag and session
// token as part of moderation actions.
package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/helpdesk/support-chat/internal/gate"
)

// ErrNotFound is returned when no account matches the lookup.
var ErrNotFound = errors.New("account: not found")

// Account is a row in the accounts table. SessionToken is empty once the
// session has been invalidated (login required). BanTag is the opaque
// correlation tag recorded at ban time; it is cleared on unban.
type Account struct {
	ID           string
	Username     string
	DisplayName  string
	AvatarURL    string
	Role         gate.Role
	Banned       bool
	BanTag       string
	SessionToken string
	LastIP       string
	CreatedAt    time.Time
}

// Store manages accounts in PostgreSQL.
type Store struct {
	db *sql.DB
}

// NewStore creates an account store backed by the given database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const accountColumns = `id, username, display_name, COALESCE(avatar_url, ''),
	role, banned, COALESCE(ban_tag, ''), COALESCE(session_token, ''),
	COALESCE(last_ip, ''), created_at`

func scanAccount(row *sql.Row) (*Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.Username, &a.DisplayName, &a.AvatarURL,
		&a.Role, &a.Banned, &a.BanTag, &a.SessionToken, &a.LastIP, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("account: scan: %w", err)
	}
	return &a, nil
}

// Create inserts a new account with a generated ID and a fresh session
// token. The username is screened before insertion; see ValidateUsername.
func (s *Store) Create(ctx context.Context, username, displayName, avatarURL string, role gate.Role) (*Account, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}

	id := uuid.New().String()
	token := uuid.New().String()

	const query = `
		INSERT INTO accounts (id, username, display_name, avatar_url, role, session_token)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6)`

	if _, err := s.db.ExecContext(ctx, query, id, username, displayName, avatarURL, role, token); err != nil {
		return nil, fmt.Errorf("account: insert: %w", err)
	}
	return s.Get(ctx, id)
}

// Get retrieves an account by ID. Returns ErrNotFound if it does not exist.
func (s *Store) Get(ctx context.Context, id string) (*Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return scanAccount(s.db.QueryRowContext(ctx, query, id))
}

// GetByUsername retrieves an account by its unique username.
func (s *Store) GetByUsername(ctx context.Context, username string) (*Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE username = $1`
	return scanAccount(s.db.QueryRowContext(ctx, query, username))
}

// GetByToken resolves a session token to its account. A cleared token never
// matches, so a banned account cannot resume its old session.
func (s *Store) GetByToken(ctx context.Context, token string) (*Account, error) {
	if token == "" {
		return nil, ErrNotFound
	}
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE session_token = $1`
	return scanAccount(s.db.QueryRowContext(ctx, query, token))
}

// SetBanned sets the banned flag and correlation tag. The update is
// idempotent: re-applying the same state is a no-op with the same end state.
// An empty banTag clears the stored tag (the unban path).
func (s *Store) SetBanned(ctx context.Context, id string, banned bool, banTag string) error {
	const query = `
		UPDATE accounts SET banned = $2, ban_tag = NULLIF($3, '')
		WHERE id = $1`

	res, err := s.db.ExecContext(ctx, query, id, banned, banTag)
	if err != nil {
		return fmt.Errorf("account: set banned: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearSessionToken invalidates the account's session token, forcing
// re-authentication on the next connection attempt.
func (s *Store) ClearSessionToken(ctx context.Context, id string) error {
	const query = `UPDATE accounts SET session_token = NULL WHERE id = $1`

	res, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("account: clear session token: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// IssueSessionToken generates and stores a fresh session token for the
// account, returning the new token. Called by the login integration after
// the identity provider has verified the user.
func (s *Store) IssueSessionToken(ctx context.Context, id string) (string, error) {
	token := uuid.New().String()

	const query = `UPDATE accounts SET session_token = $2 WHERE id = $1`

	res, err := s.db.ExecContext(ctx, query, id, token)
	if err != nil {
		return "", fmt.Errorf("account: issue session token: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return "", ErrNotFound
	}
	return token, nil
}

// TouchLastIP records the network identifier last seen for the account.
// The moderation coordinator uses it as the ban correlation tag.
func (s *Store) TouchLastIP(ctx context.Context, id string, ip string) error {
	const query = `UPDATE accounts SET last_ip = NULLIF($2, '') WHERE id = $1`

	if _, err := s.db.ExecContext(ctx, query, id, ip); err != nil {
		return fmt.Errorf("account: touch last ip: %w", err)
	}
	return nil
}
