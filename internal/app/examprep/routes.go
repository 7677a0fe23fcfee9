// Package examprep собирает HTTP-приложение платформы подготовки к экзаменам.
package examprep

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/examprep/internal/http/handlers/analytics/attempted"
	"github.com/magabrotheeeer/examprep/internal/http/handlers/analytics/overview"
	feedbacksubmit "github.com/magabrotheeeer/examprep/internal/http/handlers/feedback/submit"
	"github.com/magabrotheeeer/examprep/internal/http/handlers/health"
	mocklist "github.com/magabrotheeeer/examprep/internal/http/handlers/mocktest/list"
	"github.com/magabrotheeeer/examprep/internal/http/handlers/mocktest/review"
	"github.com/magabrotheeeer/examprep/internal/http/handlers/mocktest/start"
	"github.com/magabrotheeeer/examprep/internal/http/handlers/mocktest/submit"
	"github.com/magabrotheeeer/examprep/internal/http/handlers/practice/batch"
	"github.com/magabrotheeeer/examprep/internal/http/handlers/practice/filters"
	"github.com/magabrotheeeer/examprep/internal/http/handlers/practice/generate"
	"github.com/magabrotheeeer/examprep/internal/http/handlers/practice/verify"
	"github.com/magabrotheeeer/examprep/internal/http/handlers/refund/calculate"
	"github.com/magabrotheeeer/examprep/internal/http/handlers/subscription/giftcode"
	"github.com/magabrotheeeer/examprep/internal/http/handlers/subscription/plans"
	"github.com/magabrotheeeer/examprep/internal/http/handlers/user/checklimits"
	"github.com/magabrotheeeer/examprep/internal/http/handlers/user/details"
	"github.com/magabrotheeeer/examprep/internal/http/handlers/user/login"
	"github.com/magabrotheeeer/examprep/internal/http/handlers/user/profile"
	"github.com/magabrotheeeer/examprep/internal/http/handlers/user/register"
	"github.com/magabrotheeeer/examprep/internal/http/handlers/user/selectexam"
	"github.com/magabrotheeeer/examprep/internal/http/handlers/user/trackattempt"
	"github.com/magabrotheeeer/examprep/internal/http/middlewarectx"
	"github.com/magabrotheeeer/examprep/internal/metrics"
	"github.com/magabrotheeeer/examprep/internal/services/analytics"
	"github.com/magabrotheeeer/examprep/internal/services/feedback"
	"github.com/magabrotheeeer/examprep/internal/services/mocktest"
	"github.com/magabrotheeeer/examprep/internal/services/practice"
	"github.com/magabrotheeeer/examprep/internal/services/quota"
	"github.com/magabrotheeeer/examprep/internal/services/refund"
	"github.com/magabrotheeeer/examprep/internal/services/subscription"
	"github.com/magabrotheeeer/examprep/internal/services/user"
)

// Services сервисы, которые обслуживают маршруты.
type Services struct {
	Users        *user.Service
	Quota        *quota.Tracker
	Practice     *practice.Service
	MockTests    *mocktest.Service
	Subscription *subscription.Service
	Refund       *refund.Service
	Analytics    *analytics.Service
	Feedback     *feedback.Service
	Tokens       middlewarectx.TokenParser
	Limiter      *middlewarectx.Limiter
	Health       map[string]health.Pinger
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, s Services) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
		metrics.Middleware,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Post("/users/register", register.New(logger, s.Users).ServeHTTP)
		r.Post("/users/login", login.New(logger, s.Users).ServeHTTP)
		r.Get("/subscription/plans", plans.New(logger, s.Subscription).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(s.Tokens, logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger, s.Limiter))

			r.Get("/users/profile", profile.New(logger, s.Users).ServeHTTP)
			r.Post("/users/select-exam", selectexam.New(logger, s.Users).ServeHTTP)
			r.Get("/users/check-limits", checklimits.New(logger, s.Quota).ServeHTTP)
			r.Post("/users/complete-details", details.New(logger, s.Users).ServeHTTP)
			r.Post("/users/track-question-attempt", trackattempt.New(logger, s.Practice).ServeHTTP)

			r.Post("/questions/practice", batch.New(logger, s.Practice).ServeHTTP)
			r.Post("/questions/verify-answer", verify.New(logger, s.Practice).ServeHTTP)
			r.Post("/questions/generate-test", generate.New(logger, s.Practice).ServeHTTP)
			r.Get("/questions/filters", filters.New(logger, s.Practice).ServeHTTP)

			r.Get("/mocktests", mocklist.New(logger, s.MockTests).ServeHTTP)
			r.Post("/mocktests/{id}/start", start.New(logger, s.MockTests).ServeHTTP)
			r.Post("/mocktests/{id}/submit", submit.New(logger, s.MockTests).ServeHTTP)
			r.Get("/mocktests/{id}/review", review.New(logger, s.MockTests).ServeHTTP)

			r.Post("/subscription/apply-giftcode", giftcode.New(logger, s.Subscription).ServeHTTP)
			r.Post("/refund/calculate", calculate.New(logger, s.Refund).ServeHTTP)
			r.Post("/feedback/submit", feedbacksubmit.New(logger, s.Feedback).ServeHTTP)

			r.Get("/analytics/overview", overview.New(logger, s.Analytics).ServeHTTP)
			r.Get("/analytics/attempted-questions", attempted.New(logger, s.Analytics).ServeHTTP)
		})
	})

	r.Get("/health", health.New(logger, s.Health).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
