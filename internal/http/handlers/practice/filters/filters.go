// Package filters отдает значения фильтров банка вопросов:
// предметы экзамена, главы предмета или темы главы.
package filters

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/examprep/internal/http/response"
	"github.com/magabrotheeeer/examprep/internal/lib/sl"
	"github.com/magabrotheeeer/examprep/internal/models"
)

// Service описывает получение фильтров.
type Service interface {
	Filters(ctx context.Context, exam, subject, chapter string) (*models.QuestionFilters, error)
}

// Handler обработчик фильтров.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Фильтры вопросов
// @Tags Questions
// @Produce  json
// @Security BearerAuth
// @Param exam query string true "JEE или NEET"
// @Param subject query string false "Предмет"
// @Param chapter query string false "Глава"
// @Success 200 {object} response.Response
// @Router /questions/filters [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.practice.filters"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	q := r.URL.Query()
	res, err := h.service.Filters(r.Context(), q.Get("exam"), q.Get("subject"), q.Get("chapter"))
	if err != nil {
		log.Error("failed to load filters", sl.Err(err))
		response.FromError(w, r, err)
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"filters": res,
	}))
}
