package arbiter

import (
	"testing"

	"github.com/park285/scorepad/internal/document"
)

const adminToken = "admin-secret"

func existingGame(t *testing.T, management string) document.Document {
	t.Helper()
	raw := `{
		"gameId": "g1",
		"adminToken": "` + adminToken + `",
		"currentRound": 1,
		"boardsPerRound": 3,
		"tables": {
			"1": {"sessionId": "S1", "scores": {}},
			"2": {"sessionId": "S2", "scores": {}}
		},
		"managementSessionId": ` + management + `
	}`
	d, err := document.Decode([]byte(raw))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return d
}

func update(t *testing.T, raw string) document.Document {
	t.Helper()
	d, err := document.Decode([]byte(raw))
	if err != nil {
		t.Fatalf("Decode(%s): %v", raw, err)
	}
	return d
}

func expectAllowed(t *testing.T, dec Decision) {
	t.Helper()
	if !dec.Allowed() {
		t.Fatalf("expected allow, got %+v", dec.Denials)
	}
}

func expectDenied(t *testing.T, dec Decision, facet Facet, reason Reason) Denial {
	t.Helper()
	d, ok := dec.First()
	if !ok {
		t.Fatalf("expected denial %s/%s, got allow", facet, reason)
	}
	if d.Facet != facet || d.Reason != reason {
		t.Fatalf("denial = %s/%s, want %s/%s", d.Facet, d.Reason, facet, reason)
	}
	return d
}

func TestRoundAdvance(t *testing.T) {
	g := existingGame(t, "null")
	u := update(t, `{"currentRound": 2}`)

	expectAllowed(t, Authorize(g, u, Credentials{SessionID: "S2"}))
	expectAllowed(t, Authorize(g, u, Credentials{SessionID: "S1"}))
	expectAllowed(t, Authorize(g, u, Credentials{AdminToken: adminToken}))

	expectDenied(t, Authorize(g, u, Credentials{SessionID: "stranger"}), FacetRoundAdvance, ReasonNotAPlayer)
	expectDenied(t, Authorize(g, u, Credentials{}), FacetRoundAdvance, ReasonAuthorizationRequired)
	expectDenied(t, Authorize(g, u, Credentials{AdminToken: "wrong"}), FacetRoundAdvance, ReasonInvalidAdminToken)
}

func TestRoundAdvanceTriggeredByUnchangedValue(t *testing.T) {
	g := existingGame(t, "null")
	expectDenied(t, Authorize(g, update(t, `{"currentRound": 1}`), Credentials{}), FacetRoundAdvance, ReasonAuthorizationRequired)
}

func TestRoundAdvanceIgnoresEmptyOccupant(t *testing.T) {
	g := update(t, `{"adminToken":"x","tables":{"1":{"sessionId":null},"2":{}}}`)
	expectDenied(t, Authorize(g, update(t, `{"currentRound": 2}`), Credentials{}), FacetRoundAdvance, ReasonAuthorizationRequired)
}

func TestTableUnlock(t *testing.T) {
	g := existingGame(t, "null")
	u := update(t, `{"tables":{"1":{"sessionId":null}}}`)

	expectAllowed(t, Authorize(g, u, Credentials{SessionID: "S1"}))
	expectAllowed(t, Authorize(g, u, Credentials{AdminToken: adminToken}))

	d := expectDenied(t, Authorize(g, u, Credentials{SessionID: "S2"}), FacetTableUnlock, ReasonInvalidSession)
	if d.Table != "1" {
		t.Fatalf("denial table = %q", d.Table)
	}
	expectDenied(t, Authorize(g, u, Credentials{}), FacetTableUnlock, ReasonAuthorizationRequired)
	expectDenied(t, Authorize(g, u, Credentials{AdminToken: "wrong"}), FacetTableUnlock, ReasonInvalidAdminToken)
}

func TestTableClaimIsNotArbitrated(t *testing.T) {
	g := existingGame(t, "null")
	expectAllowed(t, Authorize(g, update(t, `{"tables":{"1":{"sessionId":"S9"}}}`), Credentials{}))
}

func TestScoreWriteOwnership(t *testing.T) {
	g := existingGame(t, "null")
	foreign := update(t, `{"tables":{"1":{"scores":{"1":{"1":{"ns":100}}},"sessionId":"S2"}}}`)

	expectDenied(t, Authorize(g, foreign, Credentials{}), FacetScoreWrite, ReasonAuthorizationRequired)
	expectDenied(t, Authorize(g, foreign, Credentials{SessionID: "S2"}), FacetScoreWrite, ReasonInvalidSession)
	expectDenied(t, Authorize(g, foreign, Credentials{AdminToken: "nope"}), FacetScoreWrite, ReasonInvalidAdminToken)
	expectAllowed(t, Authorize(g, foreign, Credentials{AdminToken: adminToken}))

	own := update(t, `{"tables":{"1":{"scores":{"1":{"1":{"ns":100}}},"sessionId":"S1"}}}`)
	expectAllowed(t, Authorize(g, own, Credentials{}))
}

func TestScoreWriteWithoutEntrySessionOnClaimedTable(t *testing.T) {
	g := existingGame(t, "null")
	u := update(t, `{"tables":{"2":{"scores":{"1":{}}}}}`)
	expectDenied(t, Authorize(g, u, Credentials{SessionID: "S2"}), FacetScoreWrite, ReasonInvalidSession)
}

func TestScoreWriteOnUnclaimedTable(t *testing.T) {
	g := update(t, `{"adminToken":"x","tables":{"1":{"sessionId":null}}}`)
	expectAllowed(t, Authorize(g, update(t, `{"tables":{"1":{"scores":{"1":{}}}}}`), Credentials{}))
}

func TestManagementLockContention(t *testing.T) {
	g := existingGame(t, `"A"`)

	d := expectDenied(t, Authorize(g, update(t, `{"managementSessionId":"B"}`), Credentials{SessionID: "B"}), FacetManagementLock, ReasonLocked)
	if !d.Locked() || d.Holder != "A" {
		t.Fatalf("expected locked denial with holder A, got %+v", d)
	}
	// Admin cannot take over a held lock by acquisition.
	expectDenied(t, Authorize(g, update(t, `{"managementSessionId":"B"}`), Credentials{AdminToken: adminToken}), FacetManagementLock, ReasonLocked)

	expectAllowed(t, Authorize(g, update(t, `{"managementSessionId":"A"}`), Credentials{}))
}

func TestManagementLockAcquireWhenUnlocked(t *testing.T) {
	g := existingGame(t, "null")
	expectAllowed(t, Authorize(g, update(t, `{"managementSessionId":"B"}`), Credentials{}))
}

func TestManagementLockRelease(t *testing.T) {
	g := existingGame(t, `"A"`)
	release := update(t, `{"managementSessionId":null}`)

	expectDenied(t, Authorize(g, release, Credentials{SessionID: "B"}), FacetManagementLock, ReasonNotYourSession)
	expectDenied(t, Authorize(g, release, Credentials{}), FacetManagementLock, ReasonAuthorizationRequired)
	expectAllowed(t, Authorize(g, release, Credentials{SessionID: "A"}))
	expectAllowed(t, Authorize(g, release, Credentials{AdminToken: adminToken}))
}

func TestFirstDenialFollowsFacetOrder(t *testing.T) {
	g := existingGame(t, `"A"`)
	u := update(t, `{"currentRound":2,"tables":{"1":{"sessionId":null}},"managementSessionId":"B"}`)

	dec := Authorize(g, u, Credentials{SessionID: "stranger"})
	if len(dec.Denials) != 3 {
		t.Fatalf("expected every facet to report, got %+v", dec.Denials)
	}
	expectDenied(t, dec, FacetRoundAdvance, ReasonNotAPlayer)
}

func TestAnyDenialRejectsWholeUpdate(t *testing.T) {
	g := existingGame(t, "null")
	// Table 1 unlock by its owner is fine; table 2 unlock is not.
	u := update(t, `{"tables":{"1":{"sessionId":null},"2":{"sessionId":null}}}`)
	d := expectDenied(t, Authorize(g, u, Credentials{SessionID: "S1"}), FacetTableUnlock, ReasonInvalidSession)
	if d.Table != "2" {
		t.Fatalf("denied table = %q, want 2", d.Table)
	}
}

func TestAdminValidRequiresDocumentToken(t *testing.T) {
	if AdminValid(document.Document{}, "") || AdminValid(document.Document{}, "x") {
		t.Fatalf("document without admin token must not grant admin")
	}
	if AdminValid(document.Document{"adminToken": "x"}, "") {
		t.Fatalf("empty token must not be valid")
	}
	if !AdminValid(document.Document{"adminToken": "x"}, "x") {
		t.Fatalf("matching token rejected")
	}
}

func TestUnrelatedFieldsNeedNoCredentials(t *testing.T) {
	g := existingGame(t, "null")
	expectAllowed(t, Authorize(g, update(t, `{"boardsPerRound": 4, "notes": "x"}`), Credentials{}))
}
