package protocol

import (
	"encoding/json"
	"testing"
)

// ---------------------------------------------------------------------------
// Test: Parsing a valid open_conversation message
// ---------------------------------------------------------------------------

func TestParseClientMessage_OpenConversation(t *testing.T) {
	input := []byte(`{"type":"open_conversation","kind":"bug_report"}`)

	msgType, msg, err := ParseClientMessage(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msgType != TypeOpenConversation {
		t.Fatalf("expected type %q, got %q", TypeOpenConversation, msgType)
	}

	oc, ok := msg.(OpenConversationMsg)
	if !ok {
		t.Fatalf("expected OpenConversationMsg, got %T", msg)
	}
	if oc.Kind != "bug_report" {
		t.Errorf("expected kind %q, got %q", "bug_report", oc.Kind)
	}
}

// ---------------------------------------------------------------------------
// Test: Parsing a send with an attachment
// ---------------------------------------------------------------------------

func TestParseClientMessage_SendWithAttachment(t *testing.T) {
	input := []byte(`{"type":"message","conversation_id":"abc-123","text":"see screenshot","attachment":{"data":"aGVsbG8=","ext":".png"}}`)

	msgType, msg, err := ParseClientMessage(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msgType != TypeMessage {
		t.Fatalf("expected type %q, got %q", TypeMessage, msgType)
	}

	sm, ok := msg.(SendMsg)
	if !ok {
		t.Fatalf("expected SendMsg, got %T", msg)
	}
	if sm.ConversationID != "abc-123" {
		t.Errorf("expected conversation_id %q, got %q", "abc-123", sm.ConversationID)
	}
	if sm.Text != "see screenshot" {
		t.Errorf("expected text %q, got %q", "see screenshot", sm.Text)
	}
	if sm.Attachment == nil || sm.Attachment.Ext != ".png" {
		t.Errorf("unexpected attachment: %+v", sm.Attachment)
	}
}

// ---------------------------------------------------------------------------
// Test: Parsing moderation requests
// ---------------------------------------------------------------------------

func TestParseClientMessage_Ban(t *testing.T) {
	input := []byte(`{"type":"ban","username":"alice","reason":"spam"}`)

	msgType, msg, err := ParseClientMessage(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msgType != TypeBan {
		t.Fatalf("expected type %q, got %q", TypeBan, msgType)
	}

	bm, ok := msg.(BanMsg)
	if !ok {
		t.Fatalf("expected BanMsg, got %T", msg)
	}
	if bm.Username != "alice" || bm.Reason != "spam" {
		t.Errorf("unexpected ban message: %+v", bm)
	}
}

// ---------------------------------------------------------------------------
// Test: Creating a conversation_opened server message
// ---------------------------------------------------------------------------

func TestNewServerMessage_ConversationOpened(t *testing.T) {
	payload := ConversationOpenedMsg{
		ConversationID: "uuid-456",
		Kind:           "appeal",
		CanWrite:       true,
		Messages: []HistoryItem{
			{ID: "m1", SenderID: "u1", Text: "hello", Seq: 1, CreatedAt: 1700000000},
		},
	}

	data, err := NewServerMessage(TypeConversationOpened, payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("failed to decode output: %v", err)
	}
	if decoded["type"] != TypeConversationOpened {
		t.Errorf("expected type %q, got %v", TypeConversationOpened, decoded["type"])
	}
	if decoded["conversation_id"] != "uuid-456" {
		t.Errorf("expected conversation_id %q, got %v", "uuid-456", decoded["conversation_id"])
	}
	msgs, ok := decoded["messages"].([]interface{})
	if !ok || len(msgs) != 1 {
		t.Errorf("unexpected messages: %v", decoded["messages"])
	}
}

// ---------------------------------------------------------------------------
// Test: Malformed input handling
// ---------------------------------------------------------------------------

func TestParseClientMessage_Malformed(t *testing.T) {
	cases := []struct {
		name  string
		input string
	}{
		{"not json", `this is not json`},
		{"missing type", `{"kind":"appeal"}`},
		{"empty type", `{"type":""}`},
		{"unknown type", `{"type":"find_match"}`},
		{"server-only type", `{"type":"session_created"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, _, err := ParseClientMessage([]byte(tc.input)); err == nil {
				t.Errorf("expected error for %q", tc.input)
			}
		})
	}
}
