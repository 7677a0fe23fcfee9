// Package review отдает разбор сданного пробного теста.
package review

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/examprep/internal/http/middlewarectx"
	"github.com/magabrotheeeer/examprep/internal/http/response"
	"github.com/magabrotheeeer/examprep/internal/lib/sl"
	"github.com/magabrotheeeer/examprep/internal/models"
)

// Service описывает разбор теста.
type Service interface {
	Review(ctx context.Context, userUID, mockTestID string) (*models.MockTestReview, error)
}

// Handler обработчик разбора.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Разбор пробного теста
// @Tags MockTests
// @Produce  json
// @Security BearerAuth
// @Param id path string true "ID теста"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Тест еще не сдан"
// @Router /mocktests/{id}/review [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.mocktest.review"

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

	id := chi.URLParam(r, "id")
	res, err := h.service.Review(r.Context(), userUID, id)
	if err != nil {
		log.Error("failed to review mock test", sl.User(userUID), slog.String("mock_test_id", id), sl.Err(err))
		response.FromError(w, r, err)
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"review": res,
	}))
}
