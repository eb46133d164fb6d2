package moderation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/helpdesk/support-chat/internal/account"
	"github.com/helpdesk/support-chat/internal/conversation"
	"github.com/helpdesk/support-chat/internal/gate"
	"github.com/helpdesk/support-chat/internal/metrics"
)

var (
	// ErrPermissionDenied is returned when the actor is not staff. The role
	// is always re-resolved from the account store, never taken from caller
	// claims.
	ErrPermissionDenied = errors.New("moderation: staff role required")

	// ErrTargetIsStaff is returned when the ban target holds the staff role.
	ErrTargetIsStaff = errors.New("moderation: cannot ban a staff account")

	// ErrTargetNotFound is returned when the target account does not exist.
	ErrTargetNotFound = errors.New("moderation: target account not found")
)

// Notice is published on the moderation subject for an account whenever its
// ban status flips, so servers holding live connections for that account can
// re-gate or drop them immediately.
type Notice struct {
	AccountID string `json:"account_id"`
	Banned    bool   `json:"banned"`
	Reason    string `json:"reason,omitempty"`
	Ts        int64  `json:"ts"`
}

// SessionSweeper removes all live sessions of an account. Implemented by the
// Redis session store.
type SessionSweeper interface {
	DeleteForAccount(ctx context.Context, accountID string) error
}

// Notifier publishes a moderation notice for an account. Implemented by the
// NATS client.
type Notifier interface {
	PublishModerationNotice(accountID string, data []byte) error
}

// Coordinator orchestrates ban and unban as ordered, idempotent sequences
// over the account, ban-record, conversation, and session stores.
type Coordinator struct {
	accounts *account.Store
	bans     *BanStore
	convs    *conversation.Store
	sessions SessionSweeper // optional
	notifier Notifier       // optional
}

// NewCoordinator creates a Coordinator. sessions and notifier may be nil
// (e.g. in tests); the corresponding steps are then skipped.
func NewCoordinator(accounts *account.Store, bans *BanStore, convs *conversation.Store, sessions SessionSweeper, notifier Notifier) *Coordinator {
	return &Coordinator{
		accounts: accounts,
		bans:     bans,
		convs:    convs,
		sessions: sessions,
		notifier: notifier,
	}
}

// requireStaff resolves the actor and verifies the staff role against
// authoritative account state. A missing actor is a permission failure, not
// a lookup failure: unknown callers hold no privileges.
func (c *Coordinator) requireStaff(ctx context.Context, actorID string) (*account.Account, error) {
	actor, err := c.accounts.Get(ctx, actorID)
	if errors.Is(err, account.ErrNotFound) {
		return nil, ErrPermissionDenied
	}
	if err != nil {
		return nil, err
	}
	if actor.Role != gate.RoleStaff {
		return nil, ErrPermissionDenied
	}
	return actor, nil
}

// Ban flags the target account as banned, invalidates its sessions, and
// cascade-deletes its bug_report conversations. Appeal conversations are
// left untouched: they are exactly the channel the now-banned user should
// use. Safe to re-run to completion after a partial failure, and concurrent
// invocations converge on the single-run end state.
func (c *Coordinator) Ban(ctx context.Context, actorID, targetID, reason string) error {
	actor, err := c.requireStaff(ctx, actorID)
	if err != nil {
		return err
	}

	target, err := c.accounts.Get(ctx, targetID)
	if errors.Is(err, account.ErrNotFound) {
		return ErrTargetNotFound
	}
	if err != nil {
		return err
	}
	// Checked before any write so a refused ban changes no state.
	if target.Role == gate.RoleStaff {
		return ErrTargetIsStaff
	}

	// Step 1: ban record, tagged with the account's last-seen network id.
	// Recorded only when none exists yet, so a re-run or a concurrent ban
	// does not stack duplicate records.
	exists, err := c.bans.ExistsFor(ctx, targetID)
	if err != nil {
		return err
	}
	if !exists {
		if err := c.bans.Record(ctx, targetID, actor.ID, reason, target.LastIP); err != nil {
			return err
		}
	}

	// Step 2: flip the flag and force re-authentication.
	if err := c.accounts.SetBanned(ctx, targetID, true, target.LastIP); err != nil {
		return fmt.Errorf("moderation: ban flag: %w", err)
	}
	if err := c.accounts.ClearSessionToken(ctx, targetID); err != nil {
		return fmt.Errorf("moderation: ban session token: %w", err)
	}
	if c.sessions != nil {
		if err := c.sessions.DeleteForAccount(ctx, targetID); err != nil {
			return fmt.Errorf("moderation: ban session sweep: %w", err)
		}
	}
	c.notify(targetID, true, reason)

	// Step 3: the bug_report channel is no longer reachable for writing;
	// its history is tied to the pre-ban state and goes with it.
	if _, err := c.convs.DeleteAllOfKind(ctx, targetID, gate.KindBugReport); err != nil {
		return fmt.Errorf("moderation: ban cascade: %w", err)
	}

	metrics.ModerationActionsTotal.WithLabelValues("ban").Inc()
	log.Printf("[moderation] banned account=%s by=%s reason=%q", targetID, actor.ID, reason)
	return nil
}

// Unban removes all ban records for the target, restores the account, and
// cascade-deletes its appeal conversations. bug_report conversations are
// preserved. Idempotent like Ban.
func (c *Coordinator) Unban(ctx context.Context, actorID, targetID string) error {
	actor, err := c.requireStaff(ctx, actorID)
	if err != nil {
		return err
	}

	if _, err := c.accounts.Get(ctx, targetID); errors.Is(err, account.ErrNotFound) {
		return ErrTargetNotFound
	} else if err != nil {
		return err
	}

	if err := c.bans.RemoveAll(ctx, targetID); err != nil {
		return err
	}
	if err := c.accounts.SetBanned(ctx, targetID, false, ""); err != nil {
		return fmt.Errorf("moderation: unban flag: %w", err)
	}
	c.notify(targetID, false, "")

	if _, err := c.convs.DeleteAllOfKind(ctx, targetID, gate.KindAppeal); err != nil {
		return fmt.Errorf("moderation: unban cascade: %w", err)
	}

	metrics.ModerationActionsTotal.WithLabelValues("unban").Inc()
	log.Printf("[moderation] unbanned account=%s by=%s", targetID, actor.ID)
	return nil
}

// notify publishes the ban-status flip. A publish failure is logged but
// never fails the moderation action: transport delivery is best-effort and
// the authoritative state has already changed.
func (c *Coordinator) notify(accountID string, banned bool, reason string) {
	if c.notifier == nil {
		return
	}
	data, err := json.Marshal(Notice{
		AccountID: accountID,
		Banned:    banned,
		Reason:    reason,
		Ts:        time.Now().Unix(),
	})
	if err != nil {
		log.Printf("[moderation] marshal notice account=%s: %v", accountID, err)
		return
	}
	if err := c.notifier.PublishModerationNotice(accountID, data); err != nil {
		log.Printf("[moderation] publish notice account=%s: %v", accountID, err)
	}
}
