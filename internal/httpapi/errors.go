package httpapi

import (
	"encoding/json"
	"errors"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	svctrainer "github.com/park285/chess-guess-trainer/internal/service/trainer"
	coretrainer "github.com/park285/chess-guess-trainer/internal/trainer"
	"github.com/park285/chess-guess-trainer/pkg/trainerdto"
)

const errBase = "https://errors.chess-guess-trainer.local"

var errMalformedBody = errors.New("malformed request body")

// problemFor maps a service error to its problem document.
func problemFor(err error) trainerdto.Problem {
	switch {
	case errors.Is(err, coretrainer.ErrSessionNotFound):
		return problem(fasthttp.StatusNotFound, "session-not-found", "Session not found or expired.")
	case errors.Is(err, coretrainer.ErrUnknownGame):
		return problem(fasthttp.StatusNotFound, "game-not-found", err.Error())
	case errors.Is(err, coretrainer.ErrGameComplete):
		return problem(fasthttp.StatusConflict, "game-complete", "All moves of this game have been played.")
	case errors.Is(err, coretrainer.ErrUnknownVariant):
		return problem(fasthttp.StatusBadRequest, "unknown-variant", err.Error())
	case errors.Is(err, svctrainer.ErrBadRequest), errors.Is(err, errMalformedBody):
		return problem(fasthttp.StatusBadRequest, "bad-request", err.Error())
	case errors.Is(err, coretrainer.ErrEngineUnavailable):
		return problem(fasthttp.StatusServiceUnavailable, "engine-unavailable", "The analysis engine is unavailable.")
	default:
		return problem(fasthttp.StatusInternalServerError, "internal", "Internal error.")
	}
}

func problem(status int, code, detail string) trainerdto.Problem {
	return trainerdto.Problem{
		Type:   errBase + "/" + code,
		Title:  fasthttp.StatusMessage(status),
		Status: status,
		Detail: detail,
		Code:   code,
	}
}

func (h *Handler) writeErr(ctx *fasthttp.RequestCtx, err error) {
	p := problemFor(err)
	if p.Status >= fasthttp.StatusInternalServerError {
		h.logger.Error("request_failed",
			zap.ByteString("method", ctx.Method()),
			zap.ByteString("path", ctx.Path()),
			zap.Error(err))
	}
	writeProblem(ctx, p)
}

func writeProblem(ctx *fasthttp.RequestCtx, p trainerdto.Problem) {
	body, _ := json.Marshal(p)
	ctx.Response.Header.SetContentType("application/problem+json")
	ctx.SetStatusCode(p.Status)
	ctx.SetBody(body)
}
