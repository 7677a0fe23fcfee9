// Package start реализует начало попытки пробного теста.
//
// Одновременно у пользователя может идти только один тест. Вопросы
// возвращаются без правильных ответов, ключ хранится на сервере.
package start

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
	"github.com/magabrotheeeer/examprep/internal/services/mocktest"
)

// Service описывает старт теста.
type Service interface {
	Start(ctx context.Context, userUID, mockTestID string) (*mocktest.Session, error)
}

// Handler обработчик старта теста.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Начать пробный тест
// @Tags MockTests
// @Produce  json
// @Security BearerAuth
// @Param id path string true "ID теста"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.ErrorResponse "Дневной лимит исчерпан"
// @Failure 404 {object} response.ErrorResponse "Тест не найден"
// @Failure 409 {object} response.ErrorResponse "Тест уже идет или уже сдан"
// @Router /mocktests/{id}/start [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.mocktest.start"

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
	session, err := h.service.Start(r.Context(), userUID, id)
	if err != nil {
		log.Error("failed to start mock test", sl.User(userUID), slog.String("mock_test_id", id), sl.Err(err))
		response.FromError(w, r, err)
		return
	}

	log.Info("mock test started", sl.User(userUID), slog.String("mock_test_id", id))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"session": session,
	}))
}
