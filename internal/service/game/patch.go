package game

import (
	"context"

	"go.uber.org/zap"

	"github.com/park285/scorepad/internal/arbiter"
	"github.com/park285/scorepad/internal/document"
	"github.com/park285/scorepad/pkg/scoredto"
)

// ApplyPatch authorizes and merges a partial update.
//
// An empty update fails before any store access. The document is loaded,
// every facet is checked, and only a fully allowed update is merged and saved
// with a fresh TTL. Concurrent patches of one game are not serialized: two
// requests reading the same state race and the later Save wins.
func (s *Service) ApplyPatch(ctx context.Context, gameID string, update document.Document, cred arbiter.Credentials) (document.Document, error) {
	if len(update) == 0 {
		return nil, &scoredto.DomainError{Kind: scoredto.KindValidation, Code: scoredto.CodeEmptyUpdate}
	}
	existing, err := s.load(ctx, gameID)
	if err != nil {
		return nil, err
	}

	rec := Record{
		GameID:        gameID,
		SessionID:     cred.SessionID,
		AdminSupplied: cred.AdminToken != "",
		At:            s.now(),
	}

	decision := arbiter.Authorize(existing, update, cred)
	if d, denied := decision.First(); denied {
		rec.Facet, rec.Reason, rec.Table = string(d.Facet), string(d.Reason), d.Table
		s.record(ctx, rec)
		return nil, s.denied(gameID, d, len(decision.Denials))
	}

	merged := document.Merge(existing, update)
	if err := s.store.Save(ctx, gameID, merged); err != nil {
		s.logger.Error("game_patch_save_error", zap.String("game_id", gameID), zap.Error(err))
		return nil, scoredto.StoreFailure(err)
	}

	rec.Allowed = true
	s.record(ctx, rec)
	s.logger.Info("game_patch_applied",
		zap.String("game_id", gameID),
		zap.Int("keys", len(update)),
		zap.Bool("admin", rec.AdminSupplied),
	)
	s.publish(ctx, gameID, merged)
	return merged, nil
}

func (s *Service) denied(gameID string, d arbiter.Denial, total int) error {
	kind := scoredto.KindForbidden
	fields := []zap.Field{
		zap.String("game_id", gameID),
		zap.String("facet", string(d.Facet)),
		zap.String("reason", string(d.Reason)),
		zap.Int("denials", total),
	}
	if d.Table != "" {
		fields = append(fields, zap.String("table", d.Table))
	}
	if d.Locked() {
		kind = scoredto.KindLocked
		fields = append(fields, zap.String("holder", d.Holder))
	}
	s.logger.Info("game_patch_denied", fields...)
	return &scoredto.DomainError{
		Kind:   kind,
		Code:   string(d.Reason),
		Facet:  string(d.Facet),
		Table:  d.Table,
		Holder: d.Holder,
	}
}
