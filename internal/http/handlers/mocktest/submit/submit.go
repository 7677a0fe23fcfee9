// Package submit реализует сдачу пробного теста.
package submit

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/examprep/internal/http/middlewarectx"
	"github.com/magabrotheeeer/examprep/internal/http/response"
	"github.com/magabrotheeeer/examprep/internal/lib/sl"
	"github.com/magabrotheeeer/examprep/internal/models"
)

// Request ответы пользователя. TimeTaken в секундах.
type Request struct {
	Answers   []models.SubmittedAnswer `json:"answers" validate:"dive"`
	TimeTaken int                      `json:"timeTaken" validate:"min=0"`
}

// Service описывает сдачу теста.
type Service interface {
	Submit(ctx context.Context, userUID, mockTestID string, answers []models.SubmittedAnswer, timeTaken int) (*models.MockTestRecord, error)
}

// Handler обработчик сдачи теста.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Сдать пробный тест
// @Description Оценивает ответы: +4 за верный, -1 за неверный, 0 без ответа.
// @Tags MockTests
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param id path string true "ID теста"
// @Param request body Request true "Ответы"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Тест не начат"
// @Failure 409 {object} response.ErrorResponse "Тест уже сдан"
// @Router /mocktests/{id}/submit [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.mocktest.submit"

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

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	id := chi.URLParam(r, "id")
	rec, err := h.service.Submit(r.Context(), userUID, id, req.Answers, req.TimeTaken)
	if err != nil {
		log.Error("failed to submit mock test", sl.User(userUID), slog.String("mock_test_id", id), sl.Err(err))
		response.FromError(w, r, err)
		return
	}

	log.Info("mock test submitted", sl.User(userUID), slog.Int("score", rec.Score))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"result": rec,
	}))
}
