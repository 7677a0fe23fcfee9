// Package submit принимает обращения пользователей.
package submit

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
	"github.com/magabrotheeeer/examprep/internal/services/feedback"
)

// Request обращение. Rating необязателен.
type Request struct {
	FeedbackType string `json:"feedbackType" validate:"required,oneof=refund query"`
	Message      string `json:"message" validate:"max=2000"`
	Rating       int    `json:"rating" validate:"omitempty,min=1,max=5"`
}

// Service описывает прием обращения.
type Service interface {
	Submit(ctx context.Context, userUID string, in feedback.Input) (*models.Feedback, error)
}

// Handler обработчик обращений.
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
// @Summary Отправить обращение
// @Description Тип refund создает заявку на возврат в статусе incomplete.
// @Tags Feedback
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body Request true "Обращение"
// @Success 200 {object} response.Response
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /feedback/submit [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.feedback.submit"

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

	fb, err := h.service.Submit(r.Context(), userUID, feedback.Input{
		Type:    models.FeedbackType(req.FeedbackType),
		Message: req.Message,
		Rating:  req.Rating,
	})
	if err != nil {
		log.Error("failed to submit feedback", sl.User(userUID), sl.Err(err))
		response.FromError(w, r, err)
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"message":  "Feedback submitted successfully",
		"feedback": fb,
	}))
}
