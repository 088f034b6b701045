// Package arbiter decides whether a partial update may be applied to a game
// document. It is a pure function of (existing, update, credentials).
package arbiter

import (
	"crypto/subtle"

	"github.com/park285/scorepad/internal/document"
	"github.com/park285/scorepad/internal/lock"
)

// Facet is one independently authorized aspect of an update.
type Facet string

const (
	FacetRoundAdvance   Facet = "round_advance"
	FacetTableUnlock    Facet = "table_unlock"
	FacetScoreWrite     Facet = "score_write"
	FacetManagementLock Facet = "management_lock"
)

// Reason explains a denial. Values double as error codes.
type Reason string

const (
	ReasonAuthorizationRequired Reason = "authorization_required"
	ReasonInvalidAdminToken     Reason = "invalid_admin_token"
	ReasonInvalidSession        Reason = "invalid_session"
	ReasonNotAPlayer            Reason = "not_a_player"
	ReasonNotYourSession        Reason = "not_your_session"
	ReasonLocked                Reason = "locked_by_another_session"
)

// Credentials are the opaque values a requester presents. Empty means absent.
type Credentials struct {
	AdminToken string
	SessionID  string
}

func (c Credentials) empty() bool { return c.AdminToken == "" && c.SessionID == "" }

// Denial is a single facet refusing the update.
type Denial struct {
	Facet  Facet
	Reason Reason
	// Table is set for per-table facets.
	Table string
	// Holder is the current management lock holder on contention. Diagnostics only.
	Holder string
}

// Locked reports whether the denial is lock contention (423) rather than a
// credential failure (403).
func (d Denial) Locked() bool { return d.Reason == ReasonLocked }

// Decision collects the denials of every facet, in evaluation order.
type Decision struct {
	Denials []Denial
}

func (d Decision) Allowed() bool { return len(d.Denials) == 0 }

// First returns the denial the request fails with.
func (d Decision) First() (Denial, bool) {
	if len(d.Denials) == 0 {
		return Denial{}, false
	}
	return d.Denials[0], true
}

// Authorize evaluates every rule against the update. Any denial rejects the
// whole update.
func Authorize(existing, update document.Document, cred Credentials) Decision {
	req := request{
		existing:   existing,
		update:     update,
		cred:       cred,
		adminValid: AdminValid(existing, cred.AdminToken),
	}
	var out Decision
	for _, rl := range rules {
		for _, d := range rl.check(req) {
			d.Facet = rl.facet
			out.Denials = append(out.Denials, d)
		}
	}
	return out
}

// AdminValid compares token against the document's adminToken. A document
// without an admin token grants no admin capability.
func AdminValid(existing document.Document, token string) bool {
	want := existing.String(document.FieldAdminToken)
	if token == "" || want == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(want)) == 1
}

type request struct {
	existing   document.Document
	update     document.Document
	cred       Credentials
	adminValid bool
}

func (r request) claim() lock.Claim {
	return lock.Claim{SessionID: r.cred.SessionID, Admin: r.adminValid}
}

// credentialReason picks the 403 reason once a facet has found the
// credentials insufficient. mismatch is used when a session id was presented
// and no admin token was.
func (r request) credentialReason(mismatch Reason) Reason {
	switch {
	case r.cred.empty():
		return ReasonAuthorizationRequired
	case r.cred.AdminToken != "":
		return ReasonInvalidAdminToken
	default:
		return mismatch
	}
}
