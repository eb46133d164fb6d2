// Package protocol defines the WebSocket message types and structures used
// for communication between the client and server. All messages are
// serialized as JSON and follow a consistent envelope format with a type
// discriminator.
package protocol

import (
	"encoding/json"
	"fmt"
)

// ---------------------------------------------------------------------------
// Message type constants
// ---------------------------------------------------------------------------

// Client -> Server message types.
const (
	TypeAuth              = "auth"
	TypeOpenConversation  = "open_conversation"
	TypeCloseConversation = "close_conversation"
	TypeMessage           = "message"
	TypeBan               = "ban"
	TypeUnban             = "unban"
	TypePing              = "ping"
)

// Server -> Client message types.
const (
	TypeSessionCreated     = "session_created"
	TypeAuthed             = "authed"
	TypeConversationOpened = "conversation_opened"
	TypeModeration         = "moderation"
	TypeModerationDone     = "moderation_done"
	TypeRateLimited        = "rate_limited"
	TypeError              = "error"
	TypePong               = "pong"
)

// Error codes carried by ErrorMsg, mirroring the server-side error taxonomy.
const (
	CodeValidation       = "validation_error"
	CodePermissionDenied = "permission_denied"
	CodeNotFound         = "not_found"
	CodeTargetIsStaff    = "target_is_staff"
	CodeTargetNotFound   = "target_not_found"
	CodeUploadFailed     = "upload_failed"
	CodeTransient        = "transient_error"
	CodeParse            = "parse_error"
	CodeUnsupported      = "unsupported_type"
	CodeUnauthenticated  = "unauthenticated"
)

// ---------------------------------------------------------------------------
// Envelope — used for initial JSON parsing to extract the type discriminator.
// ---------------------------------------------------------------------------

// Envelope holds the message type and the raw JSON payload for deferred
// parsing into a concrete struct.
type Envelope struct {
	Type string          `json:"type"`
	Raw  json.RawMessage `json:"-"`
}

// UnmarshalJSON implements the json.Unmarshaler interface. It captures the
// full raw bytes and extracts only the "type" field so that the rest of the
// payload can be decoded later into the appropriate concrete struct.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	// Capture the full raw message for deferred parsing.
	e.Raw = make(json.RawMessage, len(data))
	copy(e.Raw, data)

	// Extract only the type field.
	var partial struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &partial); err != nil {
		return fmt.Errorf("protocol: failed to unmarshal envelope: %w", err)
	}
	if partial.Type == "" {
		return fmt.Errorf("protocol: missing or empty \"type\" field")
	}
	e.Type = partial.Type
	return nil
}

// ---------------------------------------------------------------------------
// Client -> Server message structs
// ---------------------------------------------------------------------------

// AuthMsg binds the connection to an account via a session token issued by
// the identity provider. The server resolves role and ban status itself;
// nothing else in the payload is trusted.
type AuthMsg struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// OpenConversationMsg opens (or lazily creates) a conversation of the given
// kind and subscribes the connection to its insert events. Username is only
// honored for staff, who may open another account's conversation to reply;
// standard users always get their own.
type OpenConversationMsg struct {
	Type     string `json:"type"`
	Kind     string `json:"kind"`               // "bug_report" or "appeal"
	Username string `json:"username,omitempty"` // staff only
}

// CloseConversationMsg tears down the open conversation view and its
// subscription.
type CloseConversationMsg struct {
	Type string `json:"type"`
}

// SendMsg is a message send into the open conversation. Attachment is
// optional; when present the server uploads it to object storage before
// appending.
type SendMsg struct {
	Type           string      `json:"type"`
	ConversationID string      `json:"conversation_id"`
	Text           string      `json:"text,omitempty"`
	Attachment     *Attachment `json:"attachment,omitempty"`
}

// Attachment is a base64-encoded blob with a suggested file extension.
type Attachment struct {
	Data string `json:"data"` // base64
	Ext  string `json:"ext"`  // e.g. ".png"
}

// BanMsg is a staff request to ban an account by username.
type BanMsg struct {
	Type     string `json:"type"`
	Username string `json:"username"`
	Reason   string `json:"reason,omitempty"`
}

// UnbanMsg is a staff request to unban an account by username.
type UnbanMsg struct {
	Type     string `json:"type"`
	Username string `json:"username"`
}

// PingMsg is a client-initiated keepalive ping.
type PingMsg struct {
	Type string `json:"type"`
}

// ---------------------------------------------------------------------------
// Server -> Client message structs
// ---------------------------------------------------------------------------

// SessionCreatedMsg is sent by the server when a new connection is
// established, before authentication.
type SessionCreatedMsg struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
}

// AuthedMsg confirms a successful auth and echoes the server-resolved
// identity.
type AuthedMsg struct {
	Type        string `json:"type"`
	AccountID   string `json:"account_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
	Banned      bool   `json:"banned"`
}

// ConversationOpenedMsg carries the conversation and its full history
// snapshot, ordered by (created_at, seq). The client merges subsequent
// realtime events against this snapshot by message id.
type ConversationOpenedMsg struct {
	Type           string        `json:"type"`
	ConversationID string        `json:"conversation_id"`
	Kind           string        `json:"kind"`
	CanWrite       bool          `json:"can_write"`
	Messages       []HistoryItem `json:"messages"`
}

// HistoryItem is one message in the history snapshot.
type HistoryItem struct {
	ID            string `json:"id"`
	SenderID      string `json:"sender_id"`
	Text          string `json:"text,omitempty"`
	AttachmentURL string `json:"attachment_url,omitempty"`
	Seq           int64  `json:"seq"`
	CreatedAt     int64  `json:"created_at"`
}

// ModerationMsg notifies the client that its own ban status flipped. The
// connection is closed right after a banned notice is delivered.
type ModerationMsg struct {
	Type   string `json:"type"`
	Banned bool   `json:"banned"`
	Reason string `json:"reason,omitempty"`
}

// ModerationDoneMsg confirms a staff ban/unban operation.
type ModerationDoneMsg struct {
	Type     string `json:"type"`
	Action   string `json:"action"` // "ban" or "unban"
	Username string `json:"username"`
}

// RateLimitedMsg is sent when the client exceeds a rate limit.
type RateLimitedMsg struct {
	Type       string `json:"type"`
	RetryAfter int    `json:"retry_after"`
}

// ErrorMsg communicates an error condition with a taxonomy code.
type ErrorMsg struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PongMsg is the server's response to a client ping.
type PongMsg struct {
	Type string `json:"type"`
}

// ---------------------------------------------------------------------------
// Helper functions
// ---------------------------------------------------------------------------

// ParseClientMessage parses raw WebSocket bytes into a typed client message.
// It returns the message type string, the decoded struct, and any error
// encountered during parsing. An error is returned for unknown or
// server-only message types.
func ParseClientMessage(data []byte) (string, interface{}, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", nil, fmt.Errorf("protocol: failed to parse message: %w", err)
	}

	var (
		msg interface{}
		err error
	)

	switch env.Type {
	case TypeAuth:
		var m AuthMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeOpenConversation:
		var m OpenConversationMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeCloseConversation:
		var m CloseConversationMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeMessage:
		var m SendMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeBan:
		var m BanMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeUnban:
		var m UnbanMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypePing:
		var m PingMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	default:
		return env.Type, nil, fmt.Errorf("protocol: unknown client message type: %q", env.Type)
	}

	if err != nil {
		return env.Type, nil, fmt.Errorf("protocol: failed to decode %q payload: %w", env.Type, err)
	}
	return env.Type, msg, nil
}

// NewServerMessage creates a JSON-encoded byte slice for a server message.
// The msgType is injected into the payload under the "type" key. The payload
// should be one of the server message structs; this function marshals it to
// JSON, injects the type field, and returns the final bytes.
func NewServerMessage(msgType string, payload interface{}) ([]byte, error) {
	// Marshal the payload struct to a generic map so we can ensure the "type"
	// field is present and correct.
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("protocol: failed to marshal payload: %w", err)
	}

	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("protocol: failed to unmarshal payload into map: %w", err)
	}

	m["type"] = msgType

	out, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("protocol: failed to marshal server message: %w", err)
	}
	return out, nil
}
