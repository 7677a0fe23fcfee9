package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/examprep/internal/lib/ist"
	"github.com/magabrotheeeer/examprep/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/examprep/internal/models"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) SubscriptionsExpiringBetween(ctx context.Context, from, to time.Time) ([]models.SubscriptionExpiring, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.SubscriptionExpiring), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Publish(ctx context.Context, routingKey string, event any) error {
	args := m.Called(ctx, routingKey, event)
	return args.Error(0)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestSchedulerService_RemindExpiringTomorrow(t *testing.T) {
	// 23:00 IST 9 марта
	now := time.Date(2025, 3, 9, 17, 30, 0, 0, time.UTC)
	from := time.Date(2025, 3, 10, 0, 0, 0, 0, ist.Location)
	to := time.Date(2025, 3, 11, 0, 0, 0, 0, ist.Location)

	first := models.SubscriptionExpiring{UserUID: "uid-1", Email: "a@example.com", Tier: models.TierGold, ExpiresAt: from.Add(time.Hour)}
	second := models.SubscriptionExpiring{UserUID: "uid-2", Email: "b@example.com", Tier: models.TierSilver, ExpiresAt: from.Add(20 * time.Hour)}

	tests := []struct {
		name          string
		setupMocks    func(*MockRepository, *MockNotifier)
		wantPublished int
	}{
		{
			name: "все напоминания опубликованы",
			setupMocks: func(r *MockRepository, n *MockNotifier) {
				r.On("SubscriptionsExpiringBetween", mock.Anything, from, to).
					Return([]models.SubscriptionExpiring{first, second}, nil).Once()
				n.On("Publish", mock.Anything, rabbitmq.RoutingExpiring, first).Return(nil).Once()
				n.On("Publish", mock.Anything, rabbitmq.RoutingExpiring, second).Return(nil).Once()
			},
			wantPublished: 2,
		},
		{
			name: "нет истекающих подписок",
			setupMocks: func(r *MockRepository, _ *MockNotifier) {
				r.On("SubscriptionsExpiringBetween", mock.Anything, from, to).
					Return([]models.SubscriptionExpiring{}, nil).Once()
			},
		},
		{
			name: "ошибка репозитория",
			setupMocks: func(r *MockRepository, _ *MockNotifier) {
				r.On("SubscriptionsExpiringBetween", mock.Anything, from, to).
					Return(nil, errors.New("db error")).Once()
			},
		},
		{
			name: "ошибка публикации не останавливает рассылку",
			setupMocks: func(r *MockRepository, n *MockNotifier) {
				r.On("SubscriptionsExpiringBetween", mock.Anything, from, to).
					Return([]models.SubscriptionExpiring{first, second}, nil).Once()
				n.On("Publish", mock.Anything, rabbitmq.RoutingExpiring, first).Return(errors.New("channel closed")).Once()
				n.On("Publish", mock.Anything, rabbitmq.RoutingExpiring, second).Return(nil).Once()
			},
			wantPublished: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			notifier := new(MockNotifier)
			service := NewSchedulerService(repo, notifier, newNoopLogger())
			service.now = func() time.Time { return now }

			tt.setupMocks(repo, notifier)

			published := service.RemindExpiringTomorrow(context.Background())

			assert.Equal(t, tt.wantPublished, published)
			repo.AssertExpectations(t)
			notifier.AssertExpectations(t)
		})
	}
}

func TestSchedulerService_RunExpiringRemindersStopsOnCancel(t *testing.T) {
	repo := new(MockRepository)
	called := make(chan struct{}, 1)
	repo.On("SubscriptionsExpiringBetween", mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			select {
			case called <- struct{}{}:
			default:
			}
		}).
		Return([]models.SubscriptionExpiring{}, nil)
	service := NewSchedulerService(repo, new(MockNotifier), newNoopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		service.RunExpiringReminders(ctx, time.Hour)
		close(done)
	}()

	select {
	case <-called:
	case <-time.After(time.Second):
		t.Fatal("first pass did not run")
	}
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
}
