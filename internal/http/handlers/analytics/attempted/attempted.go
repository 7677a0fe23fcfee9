// Package attempted отдает журнал решенных вопросов.
package attempted

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/examprep/internal/http/middlewarectx"
	"github.com/magabrotheeeer/examprep/internal/http/response"
	"github.com/magabrotheeeer/examprep/internal/lib/sl"
	"github.com/magabrotheeeer/examprep/internal/services/analytics"
)

// Service описывает журнал.
type Service interface {
	AttemptedQuestions(ctx context.Context, userUID string) (*analytics.Attempted, error)
}

// Handler обработчик журнала.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Решенные вопросы
// @Tags Analytics
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /analytics/attempted-questions [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.analytics.attempted"

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

	res, err := h.service.AttemptedQuestions(r.Context(), userUID)
	if err != nil {
		log.Error("failed to load attempted questions", sl.User(userUID), sl.Err(err))
		response.FromError(w, r, err)
		return
	}

	render.JSON(w, r, response.StatusOKWithData(res))
}
