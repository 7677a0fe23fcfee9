// Package giftcode реализует применение подарочного кода.
//
// Код состоит из 12 символов и может быть использован один раз.
// После применения пользователь получает уровень gold на срок кода.
package giftcode

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
	"github.com/magabrotheeeer/examprep/internal/services/subscription"
)

// Request подарочный код.
type Request struct {
	Code string `json:"giftCode" validate:"required"`
}

// Service описывает применение кода.
type Service interface {
	ApplyGiftCode(ctx context.Context, userUID, code string) (*subscription.GiftCodeResult, error)
}

// Handler обработчик подарочного кода.
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
// @Summary Применить подарочный код
// @Tags Subscription
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body Request true "Код"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Неверный или использованный код"
// @Router /subscription/apply-giftcode [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.giftcode"

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

	res, err := h.service.ApplyGiftCode(r.Context(), userUID, req.Code)
	if err != nil {
		log.Error("failed to apply gift code", sl.User(userUID), sl.Err(err))
		response.FromError(w, r, err)
		return
	}

	log.Info("gift code applied", sl.User(userUID), slog.String("duration", res.Duration))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"subscription": res,
	}))
}
