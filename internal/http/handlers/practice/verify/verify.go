// Package verify реализует проверку ответа на вопрос практики.
package verify

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

// Request ответ пользователя. TimeTaken в секундах.
type Request struct {
	QuestionID string `json:"questionId" validate:"required,uuid"`
	Answer     string `json:"selectedAnswer"`
	TimeTaken  int    `json:"timeTaken" validate:"min=0"`
}

// Service описывает проверку ответа.
type Service interface {
	VerifyAnswer(ctx context.Context, userUID, questionID, answer string, timeTaken int) (*practice.VerifyResult, error)
}

// Handler обработчик проверки ответа.
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
// @Summary Проверка ответа
// @Description Засчитывает попытку в дневной лимит и возвращает правильный ответ.
// @Tags Questions
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body Request true "Ответ"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.ErrorResponse "Дневной лимит исчерпан"
// @Failure 404 {object} response.ErrorResponse "Вопрос не найден"
// @Router /questions/verify-answer [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.practice.verify"

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

	res, err := h.service.VerifyAnswer(r.Context(), userUID, req.QuestionID, req.Answer, req.TimeTaken)
	if err != nil {
		log.Error("failed to verify answer", sl.User(userUID), sl.Err(err))
		response.FromError(w, r, err)
		return
	}

	log.Info("answer verified", sl.User(userUID), slog.Bool("correct", res.IsCorrect))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"result": res,
	}))
}
