// Package gate implements the write-permission decision for support
// conversations. The rule is a pure function of the sender's role, their
// current ban status, and the conversation kind — it holds no state and must
// be re-evaluated on every send attempt, because ban status can flip while a
// chat view stays open.
package gate

// Role identifies the privilege level of an account.
type Role string

const (
	RoleStandard Role = "standard"
	RoleStaff    Role = "staff"
)

// Kind identifies which support channel a conversation belongs to.
type Kind string

const (
	// KindBugReport is the channel for accounts in good standing.
	KindBugReport Kind = "bug_report"

	// KindAppeal is the channel for banned accounts contesting their ban.
	KindAppeal Kind = "appeal"
)

// Valid reports whether k is a known conversation kind.
func (k Kind) Valid() bool {
	return k == KindBugReport || k == KindAppeal
}

// CanWrite decides whether an account may send into a conversation of the
// given kind. Staff bypass all restrictions. For standard accounts the two
// channels are mutually exclusive: an unbanned account may only file bug
// reports, a banned account may only appeal. This prevents a banned user
// from using the bug-report channel as a side channel, and an unbanned user
// from pre-emptively appealing.
func CanWrite(role Role, banned bool, kind Kind) bool {
	if role == RoleStaff {
		return true
	}
	switch kind {
	case KindBugReport:
		return !banned
	case KindAppeal:
		return banned
	default:
		return false
	}
}
