// Package messaging provides a NATS client wrapper for the realtime
// transport. It handles connection lifecycle and subject-based
// subscriptions for two channels: per-conversation message-insert events
// and per-account moderation notices. Delivery is at-least-once and
// unordered; consumers order by the message's own (created_at, seq).
package messaging

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// NATS subject patterns.
const (
	SubjectConversation = "conversation"       // + .<conversation_id>
	SubjectModeration   = "moderation.account" // + .<account_id>
)

// Client wraps the NATS connection with helper methods for pub/sub.
type Client struct {
	conn *nats.Conn
	mu   sync.Mutex
	subs map[string]*nats.Subscription
}

// Config holds NATS connection settings.
type Config struct {
	URL           string        // nats://localhost:4222
	Name          string        // client name for identification
	ReconnectWait time.Duration // time between reconnect attempts
	MaxReconnects int           // max reconnect attempts (-1 for infinite)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		URL:           "nats://localhost:4222",
		Name:          "support-chat",
		ReconnectWait: 2 * time.Second,
		MaxReconnects: -1, // infinite reconnects
	}
}

// NewClient connects to NATS with the given config and returns a ready
// client. It returns an error if the initial connection fails.
func NewClient(config Config) (*Client, error) {
	opts := []nats.Option{
		nats.Name(config.Name),
		nats.ReconnectWait(config.ReconnectWait),
		nats.MaxReconnects(config.MaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Printf("[nats] disconnected: %v", err)
			} else {
				log.Printf("[nats] disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("[nats] reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			log.Printf("[nats] connection closed")
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	log.Printf("[nats] connected to %s", nc.ConnectedUrl())

	return &Client{
		conn: nc,
		subs: make(map[string]*nats.Subscription),
	}, nil
}

// PublishMessageEvent publishes a message-insert event to the
// conversation.<convID> subject.
func (c *Client) PublishMessageEvent(convID string, data []byte) error {
	return c.conn.Publish(SubjectConversation+"."+convID, data)
}

// SubscribeToConversation subscribes to insert events for a conversation on
// behalf of one connection. The subscription is keyed by connID so multiple
// viewers of the same conversation on this server do not overwrite each
// other, and so teardown can unregister exactly one viewer.
func (c *Client) SubscribeToConversation(convID, connID string, handler func(data []byte)) error {
	subject := SubjectConversation + "." + convID
	key := "convsub:" + connID
	sub, err := c.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Data)
	})
	if err != nil {
		return fmt.Errorf("nats subscribe %s: %w", subject, err)
	}

	c.mu.Lock()
	// Replace any previous conversation subscription for this connection:
	// a view holds at most one.
	if prev, ok := c.subs[key]; ok {
		_ = prev.Unsubscribe()
	}
	c.subs[key] = sub
	c.mu.Unlock()
	return nil
}

// UnsubscribeFromConversation drops the conversation subscription held for
// a connection, if any. Called on view teardown and on disconnect so no
// delivery target leaks.
func (c *Client) UnsubscribeFromConversation(connID string) error {
	return c.unsubscribe("convsub:" + connID)
}

// PublishModerationNotice publishes a ban-status flip notice for an account.
func (c *Client) PublishModerationNotice(accountID string, data []byte) error {
	return c.conn.Publish(SubjectModeration+"."+accountID, data)
}

// SubscribeModerationNotice subscribes to ban-status flips for an account on
// behalf of one connection, keyed like conversation subscriptions.
func (c *Client) SubscribeModerationNotice(accountID, connID string, handler func(data []byte)) error {
	subject := SubjectModeration + "." + accountID
	key := "modsub:" + connID
	sub, err := c.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Data)
	})
	if err != nil {
		return fmt.Errorf("nats subscribe %s: %w", subject, err)
	}

	c.mu.Lock()
	if prev, ok := c.subs[key]; ok {
		_ = prev.Unsubscribe()
	}
	c.subs[key] = sub
	c.mu.Unlock()
	return nil
}

// UnsubscribeModerationNotice drops a connection's moderation subscription.
func (c *Client) UnsubscribeModerationNotice(connID string) error {
	return c.unsubscribe("modsub:" + connID)
}

// Close drains all active subscriptions and closes the NATS connection.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, sub := range c.subs {
		if err := sub.Drain(); err != nil {
			log.Printf("[nats] drain %s: %v", key, err)
		}
	}
	c.subs = make(map[string]*nats.Subscription)

	if err := c.conn.Drain(); err != nil {
		log.Printf("[nats] connection drain: %v", err)
	}

	log.Printf("[nats] client closed")
}

// unsubscribe removes and unsubscribes a stored subscription by key.
func (c *Client) unsubscribe(key string) error {
	c.mu.Lock()
	sub, ok := c.subs[key]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("nats: no subscription for %s", key)
	}
	delete(c.subs, key)
	c.mu.Unlock()

	if err := sub.Unsubscribe(); err != nil {
		return fmt.Errorf("nats unsubscribe %s: %w", key, err)
	}
	return nil
}
