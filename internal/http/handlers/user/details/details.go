// Package details сохраняет анкету пользователя.
package details

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

// Request анкета. LifeAmbition до 50 символов.
type Request struct {
	Name         string `json:"name" validate:"required"`
	Profession   string `json:"profession" validate:"required,oneof=student teacher"`
	Grade        string `json:"grade"`
	PreparingFor string `json:"preparingFor" validate:"required"`
	CollegeName  string `json:"collegeName"`
	SchoolName   string `json:"schoolName"`
	State        string `json:"state" validate:"required"`
	LifeAmbition string `json:"lifeAmbition" validate:"max=50"`
}

// Service описывает сохранение анкеты.
type Service interface {
	CompleteDetails(ctx context.Context, userUID string, d models.UserDetails) (*models.UserDetails, error)
}

// Handler обработчик анкеты.
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
// @Summary Заполнить анкету
// @Tags Users
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body Request true "Анкета"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Неверные данные"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /users/complete-details [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.user.details"

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

	res, err := h.service.CompleteDetails(r.Context(), userUID, models.UserDetails{
		Name:         req.Name,
		Profession:   req.Profession,
		Grade:        req.Grade,
		PreparingFor: req.PreparingFor,
		CollegeName:  req.CollegeName,
		SchoolName:   req.SchoolName,
		State:        req.State,
		LifeAmbition: req.LifeAmbition,
	})
	if err != nil {
		log.Error("failed to save user details", sl.User(userUID), sl.Err(err))
		response.FromError(w, r, err)
		return
	}

	log.Info("user details saved", sl.User(userUID))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"user": res,
	}))
}
