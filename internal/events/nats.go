package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/park285/scorepad/internal/document"
	"github.com/park285/scorepad/internal/obslog"
	"github.com/park285/scorepad/internal/service/game"
)

// conn is the part of *nats.Conn the publisher needs.
type conn interface {
	Publish(subj string, data []byte) error
}

// Publisher announces game changes on <prefix>.<gameId>.updated.
type Publisher struct {
	nc     conn
	closer func()
	prefix string
}

// Connect dials NATS. token may be empty.
func Connect(url, token, prefix string) (*Publisher, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("NATS_URL is required for events")
	}
	opts := []nats.Option{
		nats.Name("scorepad"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				obslog.L().Warn("nats_disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			obslog.L().Info("nats_reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	p := NewPublisher(nc, prefix)
	p.closer = func() { _ = nc.Drain() }
	return p, nil
}

func NewPublisher(nc conn, prefix string) *Publisher {
	prefix = strings.Trim(strings.TrimSpace(prefix), ".")
	if prefix == "" {
		prefix = "games"
	}
	return &Publisher{nc: nc, prefix: prefix}
}

func (p *Publisher) Subject(gameID string) string {
	return p.prefix + "." + subjectToken(gameID) + ".updated"
}

// PublishGame sends the document as JSON. The caller redacts it first.
func (p *Publisher) PublishGame(ctx context.Context, gameID string, doc document.Document) error {
	if p == nil || p.nc == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := json.Marshal(map[string]any{"gameId": gameID, "game": doc})
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return p.nc.Publish(p.Subject(gameID), raw)
}

func (p *Publisher) Close() {
	if p != nil && p.closer != nil {
		p.closer()
	}
}

// subjectToken keeps a game id from adding subject levels or wildcards.
func subjectToken(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\n', '\r':
			return '_'
		}
		return r
	}, strings.TrimSpace(s))
}

var _ game.Publisher = (*Publisher)(nil)
