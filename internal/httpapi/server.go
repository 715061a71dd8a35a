package httpapi

import (
	"time"

	"github.com/valyala/fasthttp"
)

// NewServer wraps h in a fasthttp server with conservative limits.
func NewServer(h *Handler) *fasthttp.Server {
	return &fasthttp.Server{
		Handler:            h.Handle,
		Name:               "chess-guess-trainer",
		ReadTimeout:        10 * time.Second,
		WriteTimeout:       h.timeout + 5*time.Second,
		IdleTimeout:        time.Minute,
		MaxRequestBodySize: 64 << 10,
		CloseOnShutdown:    true,
	}
}
