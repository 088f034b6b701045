package game

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/park285/scorepad/internal/arbiter"
	"github.com/park285/scorepad/internal/document"
	"github.com/park285/scorepad/internal/obslog"
	"github.com/park285/scorepad/pkg/scoredto"
)

// Store is the key-value collaborator. Every method is one atomic backend
// operation; nothing composes them into a transaction.
type Store interface {
	Load(ctx context.Context, gameID string) (document.Document, error)
	Save(ctx context.Context, gameID string, doc document.Document) error
	Create(ctx context.Context, gameID string, doc document.Document) (bool, error)
	Touch(ctx context.Context, gameID string) (bool, error)
}

// Record describes one PATCH authorization outcome.
type Record struct {
	GameID        string
	SessionID     string
	AdminSupplied bool
	Allowed       bool
	Facet         string
	Reason        string
	Table         string
	At            time.Time
}

// Recorder receives a Record for every PATCH decision. Failures are logged
// and do not affect the request.
type Recorder interface {
	RecordPatch(ctx context.Context, rec Record) error
}

// Publisher receives the redacted document after each successful write.
type Publisher interface {
	PublishGame(ctx context.Context, gameID string, doc document.Document) error
}

type Service struct {
	store     Store
	recorder  Recorder
	publisher Publisher
	logger    *zap.Logger
	now       func() time.Time
}

func NewService(store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = obslog.L()
	}
	return &Service{store: store, logger: logger, now: time.Now}
}

// AttachRecorder wires an audit sink for PATCH decisions.
func (s *Service) AttachRecorder(r Recorder) {
	if s != nil {
		s.recorder = r
	}
}

// AttachPublisher wires a change notification sink.
func (s *Service) AttachPublisher(p Publisher) {
	if s != nil {
		s.publisher = p
	}
}

// Redact strips the admin token from a document bound for a non-admin reader.
func Redact(doc document.Document) document.Document {
	return doc.Without(document.FieldAdminToken)
}

// Get loads a game and slides its TTL.
func (s *Service) Get(ctx context.Context, gameID string) (document.Document, error) {
	doc, err := s.load(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.Touch(ctx, gameID); err != nil {
		s.logger.Warn("game_touch_error", zap.String("game_id", gameID), zap.Error(err))
	}
	return doc, nil
}

// Create stores a new game. A missing gameId or adminToken is generated.
func (s *Service) Create(ctx context.Context, doc document.Document) (document.Document, error) {
	if len(doc) == 0 {
		return nil, &scoredto.DomainError{Kind: scoredto.KindValidation, Code: scoredto.CodeEmptyUpdate}
	}
	out := doc.Without()
	gameID := strings.TrimSpace(out.String(document.FieldGameID))
	if gameID == "" {
		gameID = uuid.NewString()
	}
	out[document.FieldGameID] = gameID
	if out.String(document.FieldAdminToken) == "" {
		out[document.FieldAdminToken] = uuid.NewString()
	}
	ok, err := s.store.Create(ctx, gameID, out)
	if err != nil {
		s.logger.Error("game_create_error", zap.String("game_id", gameID), zap.Error(err))
		return nil, scoredto.StoreFailure(err)
	}
	if !ok {
		return nil, &scoredto.DomainError{Kind: scoredto.KindConflict, Code: scoredto.CodeGameExists}
	}
	s.logger.Info("game_create", zap.String("game_id", gameID))
	s.publish(ctx, gameID, out)
	return out, nil
}

// Replace overwrites a game wholesale. It performs no authorization.
func (s *Service) Replace(ctx context.Context, gameID string, doc document.Document) (document.Document, error) {
	if strings.TrimSpace(gameID) == "" {
		return nil, &scoredto.DomainError{Kind: scoredto.KindNotFound, Code: scoredto.CodeGameNotFound}
	}
	if len(doc) == 0 {
		return nil, &scoredto.DomainError{Kind: scoredto.KindValidation, Code: scoredto.CodeEmptyUpdate}
	}
	out := doc.Without()
	out[document.FieldGameID] = gameID
	if err := s.store.Save(ctx, gameID, out); err != nil {
		s.logger.Error("game_replace_error", zap.String("game_id", gameID), zap.Error(err))
		return nil, scoredto.StoreFailure(err)
	}
	s.logger.Info("game_replace", zap.String("game_id", gameID))
	s.publish(ctx, gameID, out)
	return out, nil
}

func (s *Service) load(ctx context.Context, gameID string) (document.Document, error) {
	if strings.TrimSpace(gameID) == "" {
		return nil, &scoredto.DomainError{Kind: scoredto.KindNotFound, Code: scoredto.CodeGameNotFound}
	}
	doc, err := s.store.Load(ctx, gameID)
	if err != nil {
		s.logger.Error("game_load_error", zap.String("game_id", gameID), zap.Error(err))
		return nil, scoredto.StoreFailure(err)
	}
	if doc == nil {
		return nil, &scoredto.DomainError{Kind: scoredto.KindNotFound, Code: scoredto.CodeGameNotFound}
	}
	return doc, nil
}

func (s *Service) publish(ctx context.Context, gameID string, doc document.Document) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishGame(ctx, gameID, Redact(doc)); err != nil {
		s.logger.Warn("game_publish_error", zap.String("game_id", gameID), zap.Error(err))
	}
}

func (s *Service) record(ctx context.Context, rec Record) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.RecordPatch(ctx, rec); err != nil {
		s.logger.Warn("game_audit_error", zap.String("game_id", rec.GameID), zap.Error(err))
	}
}

// AdminValid reports whether token matches doc's admin token. The boundary
// uses it to decide redaction.
func AdminValid(doc document.Document, token string) bool {
	return arbiter.AdminValid(doc, token)
}
