package scoreclient

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"github.com/park285/scorepad/internal/arbiter"
	"github.com/park285/scorepad/internal/document"
	"github.com/park285/scorepad/internal/gamestore"
	"github.com/park285/scorepad/internal/httpapi"
	"github.com/park285/scorepad/internal/service/game"
	"github.com/park285/scorepad/pkg/scoredto"
)

func serve(t *testing.T, handler fasthttp.RequestHandler) *Client {
	t.Helper()
	ln := fasthttputil.NewInmemoryListener()
	srv := &fasthttp.Server{Handler: handler}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = ln.Close() })
	return NewClient("http://scorepad.test",
		WithDial(func(string) (net.Conn, error) { return ln.Dial() }),
		WithTimeout(2*time.Second),
	)
}

func newAPIClient(t *testing.T) *Client {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	svc := game.NewService(gamestore.NewStore(rdb), nil)
	return serve(t, httpapi.New(svc, nil, httpapi.Options{}, nil).Handler())
}

func TestClientRoundTrip(t *testing.T) {
	c := newAPIClient(t)
	ctx := context.Background()

	if err := c.Health(ctx); err != nil {
		t.Fatalf("Health: %v", err)
	}

	created, err := c.CreateGame(ctx, document.Document{
		"gameId":  "g1",
		"tables":  map[string]any{"1": map[string]any{"sessionId": "S1"}},
		"players": []any{"a", "b"},
	})
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	token := created.String(document.FieldAdminToken)
	if token == "" {
		t.Fatalf("expected generated admin token: %v", created)
	}

	merged, err := c.PatchGame(ctx, "g1", document.Document{"currentRound": 2}, arbiter.Credentials{SessionID: "S1"})
	if err != nil {
		t.Fatalf("PatchGame: %v", err)
	}
	if n, _ := merged.Int(document.FieldCurrentRound); n != 2 {
		t.Fatalf("currentRound = %v", merged[document.FieldCurrentRound])
	}
	if merged.Has(document.FieldAdminToken) {
		t.Fatalf("player response carried the admin token")
	}

	got, err := c.GetGame(ctx, "g1", arbiter.Credentials{AdminToken: token})
	if err != nil {
		t.Fatalf("GetGame: %v", err)
	}
	if got.String(document.FieldAdminToken) != token {
		t.Fatalf("admin read = %v", got)
	}
}

func TestClientTypedErrors(t *testing.T) {
	c := newAPIClient(t)
	ctx := context.Background()

	_, err := c.GetGame(ctx, "missing", arbiter.Credentials{})
	var apiErr *scoredto.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != 404 || apiErr.Code != scoredto.CodeGameNotFound {
		t.Fatalf("GetGame err = %v", err)
	}

	if _, err := c.CreateGame(ctx, document.Document{"gameId": "g2", "managementSessionId": "A"}); err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	_, err = c.PatchGame(ctx, "g2", document.Document{"managementSessionId": "B"}, arbiter.Credentials{SessionID: "B"})
	if !errors.As(err, &apiErr) || apiErr.Status != 423 || apiErr.Code != string(arbiter.ReasonLocked) {
		t.Fatalf("PatchGame err = %v", err)
	}
}

func TestClientRetriesGetOnly(t *testing.T) {
	var calls atomic.Int32
	c := serve(t, func(ctx *fasthttp.RequestCtx) {
		calls.Add(1)
		ctx.SetStatusCode(fasthttp.StatusServiceUnavailable)
		ctx.SetBodyString(`{"error":"game store unavailable","code":"store_failure"}`)
	})

	_, err := c.GetGame(context.Background(), "g1", arbiter.Credentials{})
	var apiErr *scoredto.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != scoredto.CodeStoreFailure {
		t.Fatalf("GetGame err = %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("GET attempts = %d, want 3", got)
	}

	calls.Store(0)
	_, _ = c.PatchGame(context.Background(), "g1", document.Document{"currentRound": 2}, arbiter.Credentials{})
	if got := calls.Load(); got != 1 {
		t.Fatalf("PATCH attempts = %d, want 1", got)
	}
}

func TestClientNoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	c := serve(t, func(ctx *fasthttp.RequestCtx) {
		calls.Add(1)
		ctx.SetStatusCode(fasthttp.StatusForbidden)
		ctx.SetBodyString("nope")
	})
	_, err := c.GetGame(context.Background(), "g1", arbiter.Credentials{})
	var apiErr *scoredto.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != 403 || apiErr.Message != "nope" {
		t.Fatalf("err = %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("attempts = %d", calls.Load())
	}
}
