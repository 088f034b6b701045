package httpapi

import (
	"context"
	"net"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/park285/scorepad/internal/msgcat"
	"github.com/park285/scorepad/internal/obslog"
	"github.com/park285/scorepad/internal/service/game"
	"github.com/park285/scorepad/pkg/scoredto"
)

type Options struct {
	AllowedOrigins   []string
	AdminTokenHeader string
	SessionIDHeader  string
	MaxBodyBytes     int
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	// RequestTimeout bounds the service call made for one request.
	RequestTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if len(o.AllowedOrigins) == 0 {
		o.AllowedOrigins = []string{"*"}
	}
	if o.AdminTokenHeader == "" {
		o.AdminTokenHeader = scoredto.HeaderAdminToken
	}
	if o.SessionIDHeader == "" {
		o.SessionIDHeader = scoredto.HeaderSessionID
	}
	if o.MaxBodyBytes <= 0 {
		o.MaxBodyBytes = 1 << 20
	}
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = 10 * time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 10 * time.Second
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 10 * time.Second
	}
	return o
}

// Server is the HTTP boundary in front of the game service.
type Server struct {
	svc     *game.Service
	catalog *msgcat.Catalog
	opts    Options
	logger  *zap.Logger
	srv     *fasthttp.Server
}

func New(svc *game.Service, catalog *msgcat.Catalog, opts Options, logger *zap.Logger) *Server {
	if logger == nil {
		logger = obslog.L()
	}
	if catalog == nil {
		catalog = msgcat.MustDefault()
	}
	s := &Server{svc: svc, catalog: catalog, opts: opts.withDefaults(), logger: logger}
	s.srv = &fasthttp.Server{
		Handler:               s.handle,
		Name:                  "scorepad",
		ReadTimeout:           s.opts.ReadTimeout,
		WriteTimeout:          s.opts.WriteTimeout,
		MaxRequestBodySize:    s.opts.MaxBodyBytes,
		NoDefaultServerHeader: true,
	}
	return s
}

// Handler exposes the request handler, mainly for tests.
func (s *Server) Handler() fasthttp.RequestHandler { return s.handle }

func (s *Server) ListenAndServe(addr string) error { return s.srv.ListenAndServe(addr) }

func (s *Server) Serve(ln net.Listener) error { return s.srv.Serve(ln) }

func (s *Server) Shutdown(ctx context.Context) error { return s.srv.ShutdownWithContext(ctx) }

func (s *Server) handle(ctx *fasthttp.RequestCtx) {
	start := time.Now()
	reqID := requestID(ctx)
	s.applyCORS(ctx)

	method := string(ctx.Method())
	path := string(ctx.Path())
	if method == fasthttp.MethodOptions {
		ctx.SetStatusCode(fasthttp.StatusNoContent)
		return
	}

	switch {
	case path == "/health":
		if method != fasthttp.MethodGet {
			s.writeCode(ctx, fasthttp.StatusMethodNotAllowed, codeMethodNotAllowed, "")
			break
		}
		writeJSON(ctx, fasthttp.StatusOK, map[string]bool{"ok": true})
	case path == "/games" || path == "/games/":
		if method != fasthttp.MethodPost {
			s.writeCode(ctx, fasthttp.StatusMethodNotAllowed, codeMethodNotAllowed, "")
			break
		}
		s.handleCreate(ctx)
	case strings.HasPrefix(path, "/games/"):
		gameID := strings.TrimPrefix(path, "/games/")
		if gameID == "" || strings.Contains(gameID, "/") {
			s.writeCode(ctx, fasthttp.StatusNotFound, codeRouteNotFound, "")
			break
		}
		switch method {
		case fasthttp.MethodGet:
			s.handleGet(ctx, gameID)
		case fasthttp.MethodPut:
			s.handleReplace(ctx, gameID)
		case fasthttp.MethodPatch:
			s.handlePatch(ctx, gameID)
		default:
			s.writeCode(ctx, fasthttp.StatusMethodNotAllowed, codeMethodNotAllowed, gameID)
		}
	default:
		s.writeCode(ctx, fasthttp.StatusNotFound, codeRouteNotFound, "")
	}

	s.logger.Debug("http_request",
		zap.String("request_id", reqID),
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", ctx.Response.StatusCode()),
		zap.Duration("elapsed", time.Since(start)),
	)
}

func (s *Server) applyCORS(ctx *fasthttp.RequestCtx) {
	origin := string(ctx.Request.Header.Peek("Origin"))
	allow := ""
	for _, o := range s.opts.AllowedOrigins {
		if o == "*" {
			allow = "*"
			break
		}
		if origin != "" && o == origin {
			allow = origin
		}
	}
	if allow == "" {
		return
	}
	h := &ctx.Response.Header
	h.Set("Access-Control-Allow-Origin", allow)
	if allow != "*" {
		h.Add("Vary", "Origin")
	}
	h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, OPTIONS")
	h.Set("Access-Control-Allow-Headers", strings.Join([]string{
		"Content-Type", s.opts.AdminTokenHeader, s.opts.SessionIDHeader, scoredto.HeaderRequestID,
	}, ", "))
	h.Set("Access-Control-Max-Age", "600")
}
