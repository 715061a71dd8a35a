package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/park285/chess-guess-trainer/internal/domain"
	svctrainer "github.com/park285/chess-guess-trainer/internal/service/trainer"
	coretrainer "github.com/park285/chess-guess-trainer/internal/trainer"
	"github.com/park285/chess-guess-trainer/pkg/trainerdto"
)

// TrainerService is the part of the training service the transport uses.
type TrainerService interface {
	ListGames() []svctrainer.GameSummary
	Variants() []string
	StartSession(ctx context.Context, req svctrainer.StartRequest) (*svctrainer.SessionView, error)
	Submit(ctx context.Context, id, move string) (coretrainer.SubmitResult, error)
	State(ctx context.Context, id string) (*svctrainer.SessionView, error)
	Delete(ctx context.Context, id string) error
	History(ctx context.Context, player string, limit int) ([]*domain.TrainingResult, error)
}

type Handler struct {
	svc     TrainerService
	logger  *zap.Logger
	timeout time.Duration
}

// NewHandler serves the training API. timeout bounds each request,
// engine calls included; zero means one minute.
func NewHandler(svc TrainerService, timeout time.Duration, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &Handler{svc: svc, logger: logger, timeout: timeout}
}

// Handle routes one request. Paths:
//
//	GET    /healthz
//	GET    /games
//	POST   /sessions
//	GET    /sessions/{id}
//	DELETE /sessions/{id}
//	POST   /sessions/{id}/moves
//	GET    /players/{player}/results
func (h *Handler) Handle(ctx *fasthttp.RequestCtx) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("handler_panic", zap.Any("panic", r), zap.ByteString("path", ctx.Path()))
			h.writeErr(ctx, fmt.Errorf("panic: %v", r))
		}
		h.logger.Debug("http_request",
			zap.ByteString("method", ctx.Method()),
			zap.ByteString("path", ctx.Path()),
			zap.Int("status", ctx.Response.StatusCode()),
			zap.Duration("duration", time.Since(start)))
	}()

	parts := splitPath(string(ctx.Path()))
	method := string(ctx.Method())

	switch {
	case len(parts) == 1 && parts[0] == "healthz":
		h.only(ctx, method, fasthttp.MethodGet, h.healthz)
	case len(parts) == 1 && parts[0] == "games":
		h.only(ctx, method, fasthttp.MethodGet, h.listGames)
	case len(parts) == 1 && parts[0] == "sessions":
		h.only(ctx, method, fasthttp.MethodPost, h.startSession)
	case len(parts) == 2 && parts[0] == "sessions":
		id := parts[1]
		switch method {
		case fasthttp.MethodGet:
			h.getSession(ctx, id)
		case fasthttp.MethodDelete:
			h.deleteSession(ctx, id)
		default:
			methodNotAllowed(ctx, "GET, DELETE")
		}
	case len(parts) == 3 && parts[0] == "sessions" && parts[2] == "moves":
		id := parts[1]
		h.only(ctx, method, fasthttp.MethodPost, func(ctx *fasthttp.RequestCtx) { h.submitMove(ctx, id) })
	case len(parts) == 3 && parts[0] == "players" && parts[2] == "results":
		player := parts[1]
		h.only(ctx, method, fasthttp.MethodGet, func(ctx *fasthttp.RequestCtx) { h.history(ctx, player) })
	default:
		writeProblem(ctx, problem(fasthttp.StatusNotFound, "not-found", "No such route."))
	}
}

func (h *Handler) only(ctx *fasthttp.RequestCtx, method, want string, fn fasthttp.RequestHandler) {
	if method != want {
		methodNotAllowed(ctx, want)
		return
	}
	fn(ctx)
}

func methodNotAllowed(ctx *fasthttp.RequestCtx, allow string) {
	ctx.Response.Header.Set("Allow", allow)
	writeProblem(ctx, problem(fasthttp.StatusMethodNotAllowed, "method-not-allowed", "Method not allowed."))
}

func (h *Handler) healthz(ctx *fasthttp.RequestCtx) {
	writeJSON(ctx, fasthttp.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) listGames(ctx *fasthttp.RequestCtx) {
	games := h.svc.ListGames()
	out := trainerdto.GameList{Games: make([]trainerdto.Game, 0, len(games)), Variants: h.svc.Variants()}
	for _, g := range games {
		out.Games = append(out.Games, toGame(g))
	}
	writeJSON(ctx, fasthttp.StatusOK, out)
}

func (h *Handler) startSession(ctx *fasthttp.RequestCtx) {
	var req trainerdto.StartSessionRequest
	if err := decodeBody(ctx, &req); err != nil {
		h.writeErr(ctx, err)
		return
	}
	c, cancel := h.requestContext()
	defer cancel()

	view, err := h.svc.StartSession(c, svctrainer.StartRequest{
		GameID:  req.GameID,
		Side:    req.Side,
		Variant: req.Variant,
		Player:  req.Player,
	})
	if err != nil {
		h.writeErr(ctx, err)
		return
	}
	ctx.Response.Header.Set("Location", "/sessions/"+view.ID)
	writeJSON(ctx, fasthttp.StatusCreated, toState(view))
}

func (h *Handler) getSession(ctx *fasthttp.RequestCtx, id string) {
	c, cancel := h.requestContext()
	defer cancel()
	view, err := h.svc.State(c, id)
	if err != nil {
		h.writeErr(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, toState(view))
}

func (h *Handler) deleteSession(ctx *fasthttp.RequestCtx, id string) {
	c, cancel := h.requestContext()
	defer cancel()
	if err := h.svc.Delete(c, id); err != nil {
		h.writeErr(ctx, err)
		return
	}
	ctx.SetStatusCode(fasthttp.StatusNoContent)
}

func (h *Handler) submitMove(ctx *fasthttp.RequestCtx, id string) {
	var req trainerdto.SubmitMoveRequest
	if err := decodeBody(ctx, &req); err != nil {
		h.writeErr(ctx, err)
		return
	}
	c, cancel := h.requestContext()
	defer cancel()
	res, err := h.svc.Submit(c, id, req.Move)
	if err != nil {
		h.writeErr(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, toSubmitResult(res))
}

func (h *Handler) history(ctx *fasthttp.RequestCtx, player string) {
	limit := 0
	if raw := ctx.QueryArgs().Peek("limit"); len(raw) > 0 {
		n, err := strconv.Atoi(string(raw))
		if err != nil || n <= 0 {
			h.writeErr(ctx, fmt.Errorf("%w: limit must be a positive integer", svctrainer.ErrBadRequest))
			return
		}
		limit = n
	}
	c, cancel := h.requestContext()
	defer cancel()
	results, err := h.svc.History(c, player, limit)
	if err != nil {
		h.writeErr(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, toHistory(results))
}

func (h *Handler) requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), h.timeout)
}

func decodeBody(ctx *fasthttp.RequestCtx, dst any) error {
	body := ctx.PostBody()
	if len(body) == 0 {
		return fmt.Errorf("%w: empty body", errMalformedBody)
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("%w: %v", errMalformedBody, err)
	}
	return nil
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		writeProblem(ctx, problem(fasthttp.StatusInternalServerError, "internal", "Internal error."))
		return
	}
	ctx.SetContentType("application/json")
	ctx.SetStatusCode(status)
	ctx.SetBody(body)
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
