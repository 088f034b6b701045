package audit

import (
	"context"
	"testing"

	"github.com/park285/scorepad/internal/service/game"
)

func TestNewRepositoryRequiresURL(t *testing.T) {
	if _, err := NewRepository("  "); err == nil {
		t.Fatalf("expected error for empty DATABASE_URL")
	}
}

func TestNilRepositoryIsNoop(t *testing.T) {
	var r *Repository
	if err := r.RecordPatch(context.Background(), game.Record{GameID: "g1"}); err != nil {
		t.Fatalf("RecordPatch on nil: %v", err)
	}
	if err := r.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema on nil: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close on nil: %v", err)
	}
}
