package msgcat

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultMessages(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := c.ErrorMessage(ErrorData{Code: "invalid_admin_token"}); got != "invalid admin token" {
		t.Fatalf("invalid_admin_token = %q", got)
	}
	if got := c.ErrorMessage(ErrorData{Code: "invalid_session", Table: "2"}); got != "invalid session for table 2" {
		t.Fatalf("invalid_session = %q", got)
	}
	if got := c.ErrorMessage(ErrorData{Code: "invalid_session"}); got != "invalid session" {
		t.Fatalf("invalid_session without table = %q", got)
	}
	if got := c.ErrorMessage(ErrorData{Code: "no_such_code"}); got != "no_such_code" {
		t.Fatalf("fallback = %q", got)
	}
}

func TestOverrideDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("errors:\n  not_a_player: \"수정된 메시지\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := c.ErrorMessage(ErrorData{Code: "not_a_player"}); got != "수정된 메시지" {
		t.Fatalf("override not applied: %q", got)
	}
	if got := c.ErrorMessage(ErrorData{Code: "not_your_session"}); got != "not your session" {
		t.Fatalf("default lost: %q", got)
	}
}

func TestOverrideDuplicateKeysRejected(t *testing.T) {
	dir := t.TempDir()
	body := []byte("errors:\n  not_a_player: x\n")
	_ = os.WriteFile(filepath.Join(dir, "a.yaml"), body, 0o644)
	_ = os.WriteFile(filepath.Join(dir, "b.yml"), body, 0o644)
	if _, err := New(dir); err == nil {
		t.Fatalf("expected duplicate key error")
	}
}

func TestNonStringLeafRejected(t *testing.T) {
	dir := t.TempDir()
	_ = os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("errors:\n  not_a_player: 3\n"), 0o644)
	if _, err := New(dir); err == nil {
		t.Fatalf("expected error for non-string leaf")
	}
}
