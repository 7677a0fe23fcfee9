// Package list отдает активные пробные тесты экзамена со статусом для пользователя.
package list

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/examprep/internal/http/middlewarectx"
	"github.com/magabrotheeeer/examprep/internal/http/response"
	"github.com/magabrotheeeer/examprep/internal/lib/sl"
	"github.com/magabrotheeeer/examprep/internal/models"
)

// Service описывает список тестов.
type Service interface {
	List(ctx context.Context, userUID, exam string) ([]models.MockTestSummary, error)
}

// Handler обработчик списка тестов.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Список пробных тестов
// @Tags MockTests
// @Produce  json
// @Security BearerAuth
// @Param exam query string true "JEE или NEET"
// @Success 200 {object} response.Response
// @Router /mocktests [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.mocktest.list"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userUID, ok := middlewarectx.UserFromContext(r.Context())
	if !ok {
		log.Error("user identification missing")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("user identification missing"))
		return
	}

	tests, err := h.service.List(r.Context(), userUID, r.URL.Query().Get("exam"))
	if err != nil {
		log.Error("failed to list mock tests", sl.User(userUID), sl.Err(err))
		response.FromError(w, r, err)
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"mockTests": tests,
	}))
}
