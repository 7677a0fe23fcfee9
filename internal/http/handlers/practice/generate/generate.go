// Package generate реализует генерацию теста по главе: 8 MCQ и 2 числовых вопроса.
package generate

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

// Service описывает генерацию теста.
type Service interface {
	GenerateChapterTest(ctx context.Context, userUID string, f models.PracticeFilter) ([]models.Question, error)
}

// Handler обработчик генерации теста.
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
// @Summary Тест по главе
// @Tags Questions
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body models.PracticeFilter true "Фильтр"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.ErrorResponse "Дневной лимит исчерпан"
// @Failure 404 {object} response.ErrorResponse "Недостаточно вопросов"
// @Router /questions/generate-test [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.practice.generate"

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

	var req models.PracticeFilter
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

	questions, err := h.service.GenerateChapterTest(r.Context(), userUID, req)
	if err != nil {
		log.Error("failed to generate chapter test", sl.User(userUID), sl.Err(err))
		response.FromError(w, r, err)
		return
	}

	log.Info("chapter test generated", sl.User(userUID))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"questions": questions,
	}))
}
