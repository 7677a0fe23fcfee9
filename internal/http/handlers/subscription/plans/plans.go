// Package plans отдает каталог уровней подписки.
package plans

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/examprep/internal/http/response"
	"github.com/magabrotheeeer/examprep/internal/models"
	"github.com/magabrotheeeer/examprep/internal/services/subscription"
)

// Service описывает каталог.
type Service interface {
	Plans() map[models.Tier]subscription.Plan
}

// Handler обработчик каталога.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Планы подписки
// @Tags Subscription
// @Produce  json
// @Success 200 {object} response.Response
// @Router /subscription/plans [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"plans": h.service.Plans(),
	}))
}
