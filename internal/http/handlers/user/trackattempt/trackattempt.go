// Package trackattempt записывает попытку решения вопроса, проверенную на клиенте.
package trackattempt

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/examprep/internal/http/middlewarectx"
	"github.com/magabrotheeeer/examprep/internal/http/response"
	"github.com/magabrotheeeer/examprep/internal/lib/sl"
	"github.com/magabrotheeeer/examprep/internal/services/practice"
)

// Request попытка. TimeTaken в секундах.
type Request struct {
	QuestionID string `json:"questionId" validate:"required,uuid"`
	IsCorrect  bool   `json:"isCorrect"`
	TimeTaken  int    `json:"timeTaken" validate:"min=0"`
}

// Service описывает запись попытки.
type Service interface {
	TrackAttempt(ctx context.Context, userUID, questionID string, isCorrect bool, timeTaken int) (*practice.TrackResult, error)
}

// Handler обработчик записи попытки.
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
// @Summary Записать попытку
// @Description Засчитывает вопрос в дневной лимит без проверки ответа на сервере.
// @Tags Users
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body Request true "Попытка"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.ErrorResponse "Дневной лимит исчерпан"
// @Failure 404 {object} response.ErrorResponse "Вопрос не найден"
// @Router /users/track-question-attempt [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.user.trackattempt"

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

	res, err := h.service.TrackAttempt(r.Context(), userUID, req.QuestionID, req.IsCorrect, req.TimeTaken)
	if err != nil {
		log.Error("failed to track attempt", sl.User(userUID), slog.String("question_id", req.QuestionID), sl.Err(err))
		response.FromError(w, r, err)
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"usage": res,
	}))
}
