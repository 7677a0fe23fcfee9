package examprep

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/examprep/internal/cache"
	"github.com/magabrotheeeer/examprep/internal/config"
	"github.com/magabrotheeeer/examprep/internal/http/handlers/health"
	"github.com/magabrotheeeer/examprep/internal/http/middlewarectx"
	"github.com/magabrotheeeer/examprep/internal/lib/jwt"
	"github.com/magabrotheeeer/examprep/internal/lib/phonecrypt"
	"github.com/magabrotheeeer/examprep/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/examprep/internal/lib/sl"
	"github.com/magabrotheeeer/examprep/internal/migrations"
	"github.com/magabrotheeeer/examprep/internal/services/analytics"
	"github.com/magabrotheeeer/examprep/internal/services/feedback"
	"github.com/magabrotheeeer/examprep/internal/services/mocktest"
	"github.com/magabrotheeeer/examprep/internal/services/practice"
	"github.com/magabrotheeeer/examprep/internal/services/quota"
	"github.com/magabrotheeeer/examprep/internal/services/refund"
	"github.com/magabrotheeeer/examprep/internal/services/subscription"
	"github.com/magabrotheeeer/examprep/internal/services/user"
	"github.com/magabrotheeeer/examprep/internal/storage/repository"
)

// App HTTP-приложение платформы.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	cache  *cache.Cache
	conn   *amqp.Connection
	ch     *amqp.Channel
}

// New поднимает зависимости и собирает маршруты.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(ctx, cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		_ = db.Close()
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		_ = cacheRedis.Close()
		_ = db.Close()
		return nil, err
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.NotificationQueues())
	if err != nil {
		conn.Close()
		_ = cacheRedis.Close()
		_ = db.Close()
		return nil, err
	}
	publisher := rabbitmq.NewPublisher(ch)

	cipher, err := phonecrypt.New(cfg.PhoneKey)
	if err != nil {
		ch.Close()
		conn.Close()
		_ = cacheRedis.Close()
		_ = db.Close()
		return nil, err
	}
	tokens := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)

	tracker := quota.NewTracker(db, logger)
	services := Services{
		Users:        user.New(db, tracker, cipher, tokens, logger),
		Quota:        tracker,
		Practice:     practice.New(db, tracker, logger),
		MockTests:    mocktest.New(db, tracker, cacheRedis, publisher, cfg.AnswerKeyTTL, logger),
		Subscription: subscription.New(db, publisher, logger),
		Refund:       refund.New(db),
		Analytics:    analytics.New(db),
		Feedback:     feedback.New(db, tracker, publisher, logger),
		Tokens:       tokens,
		Limiter:      middlewarectx.NewLimiter(cfg.RPS, cfg.Burst),
		Health: map[string]health.Pinger{
			"postgres": db.DB,
			"redis":    cacheRedis,
		},
	}

	router := chi.NewRouter()
	RegisterRoutes(router, logger, services)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		cache:  cacheRedis,
		conn:   conn,
		ch:     ch,
	}, nil
}

// Run обслуживает запросы до отмены ctx, затем корректно останавливает сервер.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		a.close()
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.close()
		return err
	}
}

func (a *App) close() {
	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}
	if err := a.cache.Close(); err != nil {
		a.logger.Error("failed to close redis", sl.Err(err))
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close database", sl.Err(err))
	}
}
