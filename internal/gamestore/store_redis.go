package gamestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/park285/scorepad/internal/document"
)

const (
	DefaultTTL       = 24 * time.Hour
	DefaultOpTimeout = 2 * time.Second
)

// Store keeps one JSON game document per id under a sliding TTL. Each call is a
// single Redis command; there is no compare-and-swap across Load and Save.
type Store struct {
	rdb       *redis.Client
	ttl       time.Duration
	opTimeout time.Duration
}

type Option func(*Store)

func WithTTL(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.ttl = d
		}
	}
}

func WithOpTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.opTimeout = d
		}
	}
}

func NewStore(rdb *redis.Client, opts ...Option) *Store {
	s := &Store{rdb: rdb, ttl: DefaultTTL, opTimeout: DefaultOpTimeout}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Connect parses a redis:// or rediss:// URL, pings the server and returns a
// Store over the new client.
func Connect(ctx context.Context, redisURL string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, errors.New("REDIS_URL required for game store")
	}
	ropts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(ropts)
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewStore(rdb, opts...), nil
}

func (s *Store) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}

func (s *Store) TTL() time.Duration { return s.ttl }

func keyGame(gameID string) string { return "game:" + strings.TrimSpace(gameID) }

// Load returns the document or (nil, nil) when the key is absent or expired.
func (s *Store) Load(ctx context.Context, gameID string) (document.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()
	raw, err := s.rdb.Get(ctx, keyGame(gameID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", keyGame(gameID), err)
	}
	doc, err := document.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("stored game %s: %w", gameID, err)
	}
	if doc == nil {
		doc = document.Document{}
	}
	return doc, nil
}

// Save writes the document and resets its TTL.
func (s *Store) Save(ctx context.Context, gameID string, doc document.Document) error {
	raw, err := doc.Encode()
	if err != nil {
		return fmt.Errorf("encode game %s: %w", gameID, err)
	}
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()
	if err := s.rdb.Set(ctx, keyGame(gameID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("set %s: %w", keyGame(gameID), err)
	}
	return nil
}

// Create writes the document only if no game exists under gameID.
func (s *Store) Create(ctx context.Context, gameID string, doc document.Document) (bool, error) {
	raw, err := doc.Encode()
	if err != nil {
		return false, fmt.Errorf("encode game %s: %w", gameID, err)
	}
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()
	ok, err := s.rdb.SetNX(ctx, keyGame(gameID), raw, s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("setnx %s: %w", keyGame(gameID), err)
	}
	return ok, nil
}

// Touch slides the TTL without rewriting the value. It reports false when the
// game does not exist.
func (s *Store) Touch(ctx context.Context, gameID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()
	ok, err := s.rdb.Expire(ctx, keyGame(gameID), s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("expire %s: %w", keyGame(gameID), err)
	}
	return ok, nil
}
