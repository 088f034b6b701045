package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/park285/scorepad/internal/arbiter"
	"github.com/park285/scorepad/internal/document"
	"github.com/park285/scorepad/internal/msgcat"
	"github.com/park285/scorepad/internal/service/game"
	"github.com/park285/scorepad/pkg/scoredto"
)

const (
	codeMethodNotAllowed = "method_not_allowed"
	codeRouteNotFound    = "route_not_found"
)

func (s *Server) handleGet(ctx *fasthttp.RequestCtx, gameID string) {
	rctx, cancel := s.requestContext()
	defer cancel()
	doc, err := s.svc.Get(rctx, gameID)
	if err != nil {
		s.writeError(ctx, gameID, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, s.view(ctx, doc))
}

func (s *Server) handleCreate(ctx *fasthttp.RequestCtx) {
	doc, ok := s.decodeBody(ctx, "")
	if !ok {
		return
	}
	rctx, cancel := s.requestContext()
	defer cancel()
	created, err := s.svc.Create(rctx, doc)
	if err != nil {
		s.writeError(ctx, doc.String(document.FieldGameID), err)
		return
	}
	// The creator is the only party that ever receives the generated token
	// without presenting it.
	writeJSON(ctx, fasthttp.StatusCreated, created)
}

func (s *Server) handleReplace(ctx *fasthttp.RequestCtx, gameID string) {
	doc, ok := s.decodeBody(ctx, gameID)
	if !ok {
		return
	}
	rctx, cancel := s.requestContext()
	defer cancel()
	saved, err := s.svc.Replace(rctx, gameID, doc)
	if err != nil {
		s.writeError(ctx, gameID, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, s.view(ctx, saved))
}

func (s *Server) handlePatch(ctx *fasthttp.RequestCtx, gameID string) {
	update, ok := s.decodeBody(ctx, gameID)
	if !ok {
		return
	}
	rctx, cancel := s.requestContext()
	defer cancel()
	merged, err := s.svc.ApplyPatch(rctx, gameID, update, s.credentials(ctx))
	if err != nil {
		s.writeError(ctx, gameID, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, s.view(ctx, merged))
}

// decodeBody parses the request body. An empty body yields a nil document so
// the service reports it as an empty update.
func (s *Server) decodeBody(ctx *fasthttp.RequestCtx, gameID string) (document.Document, bool) {
	body := bytes.TrimSpace(ctx.PostBody())
	if len(body) == 0 {
		return nil, true
	}
	doc, err := document.Decode(body)
	if err != nil {
		s.logger.Debug("http_invalid_body", zap.String("game_id", gameID), zap.Error(err))
		s.writeCode(ctx, fasthttp.StatusBadRequest, scoredto.CodeInvalidBody, gameID)
		return nil, false
	}
	return doc, true
}

func (s *Server) credentials(ctx *fasthttp.RequestCtx) arbiter.Credentials {
	return arbiter.Credentials{
		AdminToken: strings.TrimSpace(string(ctx.Request.Header.Peek(s.opts.AdminTokenHeader))),
		SessionID:  strings.TrimSpace(string(ctx.Request.Header.Peek(s.opts.SessionIDHeader))),
	}
}

// view returns doc in full only to a caller presenting its admin token.
func (s *Server) view(ctx *fasthttp.RequestCtx, doc document.Document) document.Document {
	if game.AdminValid(doc, s.credentials(ctx).AdminToken) {
		return doc
	}
	return game.Redact(doc)
}

func (s *Server) requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.opts.RequestTimeout)
}

func (s *Server) writeError(ctx *fasthttp.RequestCtx, gameID string, err error) {
	de, ok := scoredto.AsDomainError(err)
	if !ok {
		s.logger.Error("http_unclassified_error", zap.String("game_id", gameID), zap.Error(err))
		de = scoredto.StoreFailure(err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		s.logger.Warn("http_request_timeout", zap.String("game_id", gameID))
	}
	msg := s.catalog.ErrorMessage(msgcat.ErrorData{Code: de.Code, Facet: de.Facet, Table: de.Table, GameID: gameID})
	writeJSON(ctx, de.Status(), scoredto.ErrorBody{Error: msg, Code: de.Code})
}

func (s *Server) writeCode(ctx *fasthttp.RequestCtx, status int, code, gameID string) {
	msg := s.catalog.ErrorMessage(msgcat.ErrorData{Code: code, GameID: gameID})
	writeJSON(ctx, status, scoredto.ErrorBody{Error: msg, Code: code})
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		ctx.SetContentType("application/json; charset=utf-8")
		ctx.SetBodyString(`{"error":"encode response","code":"store_failure"}`)
		return
	}
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json; charset=utf-8")
	ctx.SetBody(b)
}

// requestID echoes a caller supplied id or mints one.
func requestID(ctx *fasthttp.RequestCtx) string {
	id := strings.TrimSpace(string(ctx.Request.Header.Peek(scoredto.HeaderRequestID)))
	if id == "" {
		id = uuid.NewString()
	}
	ctx.Response.Header.Set(scoredto.HeaderRequestID, id)
	return id
}
