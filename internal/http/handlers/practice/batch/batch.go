// Package batch реализует выдачу пачки вопросов для практики.
//
// Возвращаются только вопросы, которые пользователь еще не решал,
// без правильных ответов. Дневной лимит не расходуется.
package batch

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
	"github.com/magabrotheeeer/examprep/internal/models"
)

// Request фильтр и смещение страницы.
type Request struct {
	models.PracticeFilter
	Offset int `json:"offset" validate:"min=0"`
}

// Service описывает выборку вопросов.
type Service interface {
	FetchPracticeBatch(ctx context.Context, userUID string, f models.PracticeFilter, offset int) ([]models.Question, error)
}

// Handler обработчик выдачи вопросов.
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
// @Summary Вопросы для практики
// @Tags Questions
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body Request true "Фильтр"
// @Success 200 {object} response.Response
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /questions/practice [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.practice.batch"

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

	questions, err := h.service.FetchPracticeBatch(r.Context(), userUID, req.PracticeFilter, req.Offset)
	if err != nil {
		log.Error("failed to fetch practice batch", sl.User(userUID), sl.Err(err))
		response.FromError(w, r, err)
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"questions": questions,
		"count":     len(questions),
	}))
}
