// Package session manages live connection sessions: which account a
// WebSocket connection has authenticated as, its role, and which
// conversation view it currently holds open. State is ephemeral and backed
// by Redis; an account index set lets a ban sweep every live session of the
// target at once.
package session
