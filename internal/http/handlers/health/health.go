// Package health отвечает на проверку живости сервиса.
package health

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/examprep/internal/http/response"
	"github.com/magabrotheeeer/examprep/internal/lib/sl"
)

// Pinger зависимость, доступность которой проверяется.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Handler проверяет зависимости по именам.
type Handler struct {
	log  *slog.Logger
	deps map[string]Pinger
}

// New создает Handler.
func New(log *slog.Logger, deps map[string]Pinger) *Handler {
	return &Handler{
		log:  log,
		deps: deps,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.health"

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := make(map[string]string, len(h.deps))
	healthy := true
	for name, dep := range h.deps {
		if err := dep.PingContext(ctx); err != nil {
			h.log.Error("dependency is unavailable", slog.String("op", op), slog.String("dep", name), sl.Err(err))
			checks[name] = "unavailable"
			healthy = false
			continue
		}
		checks[name] = "ok"
	}

	if !healthy {
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, response.Response{Status: response.StatusError, Error: "service unavailable", Data: checks})
		return
	}
	render.JSON(w, r, response.StatusOKWithData(checks))
}
