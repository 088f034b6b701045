// Package lock models the two advisory locks carried inside a game document:
// per-table occupancy (tables[n].sessionId) and the single management lock
// (managementSessionId). Nothing here touches storage; transitions return the
// next state and an outcome, and the document is changed only by a merge.
package lock

import "github.com/park285/scorepad/internal/document"

// Outcome is the result of a requested transition.
type Outcome int

const (
	Granted Outcome = iota
	// Contended: held by a different session.
	Contended
	// NotHolder: release requested by someone who neither holds the lock nor is admin.
	NotHolder
)

func (o Outcome) String() string {
	switch o {
	case Granted:
		return "granted"
	case Contended:
		return "contended"
	case NotHolder:
		return "not_holder"
	default:
		return "unknown"
	}
}

// Claim is what a requester brings to a privileged transition.
type Claim struct {
	SessionID string
	Admin     bool
}

// occupancy is the shared shape: empty holder means unlocked.
type occupancy struct{ holder string }

func (o occupancy) locked() bool { return o.holder != "" }

func (o occupancy) heldBy(sessionID string) bool {
	return sessionID != "" && o.holder == sessionID
}

func (o occupancy) release(c Claim) (occupancy, Outcome) {
	if c.Admin || o.heldBy(c.SessionID) {
		return occupancy{}, Granted
	}
	return o, NotHolder
}

// Management is the document-wide management lock.
type Management struct{ occupancy }

// ManagementOf reads the management lock state from a document.
func ManagementOf(doc document.Document) Management {
	return Management{occupancy{holder: doc.String(document.FieldManagementSession)}}
}

func (m Management) Holder() string { return m.holder }
func (m Management) Locked() bool   { return m.locked() }

// Acquire requests the lock for requested. It never needs credentials:
// UNLOCKED and LOCKED(requested) both grant, LOCKED(other) is contended.
func (m Management) Acquire(requested string) (Management, Outcome) {
	if m.locked() && m.holder != requested {
		return m, Contended
	}
	return Management{occupancy{holder: requested}}, Granted
}

// Release unlocks when the claim is admin or the current holder.
func (m Management) Release(c Claim) (Management, Outcome) {
	next, out := m.release(c)
	return Management{next}, out
}

// Table is the occupancy of one table. Acquisition is an ordinary field write
// and is not arbitrated here.
type Table struct{ occupancy }

// TableOf reads tables[n].sessionId from a document.
func TableOf(doc document.Document, n string) Table {
	return Table{occupancy{holder: doc.Table(n).String(document.FieldSessionID)}}
}

func (t Table) Holder() string { return t.holder }
func (t Table) Locked() bool   { return t.locked() }

// HeldBy reports whether sessionID is the current occupant.
func (t Table) HeldBy(sessionID string) bool { return t.heldBy(sessionID) }

// Release unlocks the table when the claim is admin or the occupant.
func (t Table) Release(c Claim) (Table, Outcome) {
	next, out := t.release(c)
	return Table{next}, out
}

// OwnedByOther reports whether the table is occupied by a session other than
// writerSession. An unoccupied table is never owned by another.
func (t Table) OwnedByOther(writerSession string) bool {
	return t.locked() && t.holder != writerSession
}
