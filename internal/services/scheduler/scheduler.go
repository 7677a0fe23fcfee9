// Package scheduler периодически находит подписки, которые заканчиваются
// на следующий день по IST, и публикует напоминания.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/examprep/internal/lib/ist"
	"github.com/magabrotheeeer/examprep/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/examprep/internal/lib/sl"
	"github.com/magabrotheeeer/examprep/internal/models"
)

// SubscriptionRepository источник истекающих подписок.
type SubscriptionRepository interface {
	SubscriptionsExpiringBetween(ctx context.Context, from, to time.Time) ([]models.SubscriptionExpiring, error)
}

// Notifier публикует события для отправителя уведомлений.
type Notifier interface {
	Publish(ctx context.Context, routingKey string, event any) error
}

// SchedulerService рассылает напоминания об окончании подписки.
type SchedulerService struct {
	repo     SubscriptionRepository
	notifier Notifier
	log      *slog.Logger
	now      func() time.Time
}

// NewSchedulerService создает новый экземпляр SchedulerService.
func NewSchedulerService(repo SubscriptionRepository, notifier Notifier, log *slog.Logger) *SchedulerService {
	return &SchedulerService{
		repo:     repo,
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}
}

// RunExpiringReminders выполняет проход сразу и затем каждые interval до отмены ctx.
func (s *SchedulerService) RunExpiringReminders(ctx context.Context, interval time.Duration) {
	s.RemindExpiringTomorrow(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.RemindExpiringTomorrow(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// RemindExpiringTomorrow публикует напоминание по каждой подписке, которая
// заканчивается в течение следующего календарного дня IST. Возвращает число
// опубликованных событий.
func (s *SchedulerService) RemindExpiringTomorrow(ctx context.Context) int {
	from := ist.NextReset(s.now())
	to := from.AddDate(0, 0, 1)

	s.log.Info("looking for subscriptions expiring tomorrow", slog.Time("from", from))
	entries, err := s.repo.SubscriptionsExpiringBetween(ctx, from, to)
	if err != nil {
		s.log.Error("failed to find entries", sl.Err(err))
		return 0
	}
	if len(entries) == 0 {
		s.log.Info("no expiring subscriptions found")
		return 0
	}
	s.log.Info("found expiring subscriptions", "count", len(entries))

	published := 0
	for _, e := range entries {
		if err := s.notifier.Publish(ctx, rabbitmq.RoutingExpiring, e); err != nil {
			s.log.Error("failed to publish message", sl.User(e.UserUID), sl.Err(err))
			continue
		}
		published++
	}
	return published
}
