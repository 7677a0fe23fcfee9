// Package calculate считает возможный возврат за последний платеж.
//
// Отказ в возврате не является ошибкой: ответ содержит eligible=false и причину.
package calculate

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/examprep/internal/http/middlewarectx"
	"github.com/magabrotheeeer/examprep/internal/http/response"
	"github.com/magabrotheeeer/examprep/internal/lib/sl"
	"github.com/magabrotheeeer/examprep/internal/services/refund"
)

// Service описывает расчет возврата.
type Service interface {
	Calculate(ctx context.Context, userUID string) (*refund.Result, error)
}

// Handler обработчик расчета возврата.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Расчет возврата
// @Tags Refund
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /refund/calculate [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.refund.calculate"

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

	res, err := h.service.Calculate(r.Context(), userUID)
	if err != nil {
		log.Error("failed to calculate refund", sl.User(userUID), sl.Err(err))
		response.FromError(w, r, err)
		return
	}

	log.Info("refund calculated", sl.User(userUID), slog.Bool("eligible", res.Eligible))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"refund": res,
	}))
}
