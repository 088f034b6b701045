package arbiter

import (
	"github.com/park285/scorepad/internal/document"
	"github.com/park285/scorepad/internal/lock"
)

type rule struct {
	facet Facet
	check func(r request) []Denial
}

// rules run in this order; the first denial produced is the one surfaced.
var rules = []rule{
	{facet: FacetRoundAdvance, check: checkRoundAdvance},
	{facet: FacetTableUnlock, check: checkTableUnlock},
	{facet: FacetScoreWrite, check: checkScoreWrite},
	{facet: FacetManagementLock, check: checkManagementLock},
}

// playerTables are the tables whose occupants count as players.
var playerTables = []string{"1", "2"}

func deny(reason Reason) []Denial {
	return []Denial{{Reason: reason}}
}

func checkRoundAdvance(r request) []Denial {
	if !r.update.Has(document.FieldCurrentRound) {
		return nil
	}
	if r.adminValid {
		return nil
	}
	for _, n := range playerTables {
		if lock.TableOf(r.existing, n).HeldBy(r.cred.SessionID) {
			return nil
		}
	}
	return deny(r.credentialReason(ReasonNotAPlayer))
}

func checkTableUnlock(r request) []Denial {
	var out []Denial
	tables := r.update.Map(document.FieldTables)
	for _, n := range r.update.TableKeys() {
		entry := tables.Map(n)
		if !entry.IsNull(document.FieldSessionID) {
			continue
		}
		if _, res := lock.TableOf(r.existing, n).Release(r.claim()); res == lock.Granted {
			continue
		}
		out = append(out, Denial{
			Reason: r.credentialReason(ReasonInvalidSession),
			Table:  n,
		})
	}
	return out
}

// checkScoreWrite guards scores of an occupied table. The comparison is
// against the sessionId the update entry carries, not the requester's
// credential session.
func checkScoreWrite(r request) []Denial {
	var out []Denial
	tables := r.update.Map(document.FieldTables)
	for _, n := range r.update.TableKeys() {
		entry := tables.Map(n)
		if !entry.Has(document.FieldScores) {
			continue
		}
		if !lock.TableOf(r.existing, n).OwnedByOther(entry.String(document.FieldSessionID)) {
			continue
		}
		if r.adminValid {
			continue
		}
		out = append(out, Denial{
			Reason: r.credentialReason(ReasonInvalidSession),
			Table:  n,
		})
	}
	return out
}

func checkManagementLock(r request) []Denial {
	if !r.update.Has(document.FieldManagementSession) {
		return nil
	}
	current := lock.ManagementOf(r.existing)
	if r.update.IsNull(document.FieldManagementSession) {
		if _, res := current.Release(r.claim()); res == lock.Granted {
			return nil
		}
		return deny(r.credentialReason(ReasonNotYourSession))
	}
	if _, res := current.Acquire(r.update.String(document.FieldManagementSession)); res == lock.Contended {
		return []Denial{{Reason: ReasonLocked, Holder: current.Holder()}}
	}
	return nil
}
