// Package realtime fans out newly appended messages to every live view of a
// conversation, and gives each view the dedup state it needs to merge the
// event stream with its initial history snapshot.
package realtime

import (
	"context"
	"encoding/json"
	"log"

	"github.com/helpdesk/support-chat/internal/account"
	"github.com/helpdesk/support-chat/internal/conversation"
	"github.com/helpdesk/support-chat/internal/metrics"
)

// MessageEvent is the payload published on conversation.<id> subjects when a
// message is appended. Sender display data is fetched from the account store
// at delivery time, never denormalized into the stored message. Consumers
// must order by (CreatedAt, Seq); arrival order carries no guarantee.
type MessageEvent struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversation_id"`
	SenderID       string `json:"sender_id"`
	Text           string `json:"text,omitempty"`
	AttachmentURL  string `json:"attachment_url,omitempty"`
	Seq            int64  `json:"seq"`
	CreatedAt      int64  `json:"created_at"` // unix timestamp
	Sender         Sender `json:"sender"`
}

// Sender is the display snapshot attached to a MessageEvent.
type Sender struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// Publisher is the transport side of the fan-out. Implemented by the NATS
// client.
type Publisher interface {
	PublishMessageEvent(convID string, data []byte) error
}

// Fanout publishes message-insert events enriched with sender display data.
type Fanout struct {
	accounts  *account.Store
	publisher Publisher
}

// NewFanout creates a Fanout over the given account store and transport.
func NewFanout(accounts *account.Store, publisher Publisher) *Fanout {
	return &Fanout{accounts: accounts, publisher: publisher}
}

// Announce publishes the insert event for a freshly appended message to all
// subscribers of its conversation. A lookup or publish failure is logged and
// counted but never propagated: fan-out is best-effort and must not fail the
// append that triggered it.
func (f *Fanout) Announce(ctx context.Context, msg *conversation.Message) {
	event := MessageEvent{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		SenderID:       msg.SenderID,
		Text:           msg.Text,
		AttachmentURL:  msg.AttachmentURL,
		Seq:            msg.Seq,
		CreatedAt:      msg.CreatedAt.Unix(),
	}

	sender, err := f.accounts.Get(ctx, msg.SenderID)
	if err != nil {
		// Deliver unenriched rather than not at all.
		log.Printf("[fanout] sender lookup %s: %v", msg.SenderID, err)
	} else {
		event.Sender = Sender{
			Username:    sender.Username,
			DisplayName: sender.DisplayName,
			AvatarURL:   sender.AvatarURL,
		}
	}

	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("[fanout] marshal event message=%s: %v", msg.ID, err)
		metrics.FanoutDeliveries.WithLabelValues("dropped").Inc()
		return
	}

	if err := f.publisher.PublishMessageEvent(msg.ConversationID, data); err != nil {
		log.Printf("[fanout] publish conversation=%s message=%s: %v",
			msg.ConversationID, msg.ID, err)
		metrics.FanoutDeliveries.WithLabelValues("dropped").Inc()
		return
	}
	metrics.FanoutDeliveries.WithLabelValues("published").Inc()
}
