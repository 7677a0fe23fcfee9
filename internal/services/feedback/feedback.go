// Package feedback принимает обращения пользователей: вопросы и заявки на возврат.
package feedback

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/magabrotheeeer/examprep/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/examprep/internal/lib/sl"
	"github.com/magabrotheeeer/examprep/internal/metrics"
	"github.com/magabrotheeeer/examprep/internal/models"
)

// MaxMessage предел длины текста обращения в символах.
const MaxMessage = 2000

// Repository хранилище обращений.
type Repository interface {
	CreateFeedback(ctx context.Context, f *models.Feedback) error
}

// UserLoader возвращает пользователя.
type UserLoader interface {
	Load(ctx context.Context, userUID string) (*models.User, error)
}

// Notifier публикует события для отправителя уведомлений.
type Notifier interface {
	Publish(ctx context.Context, routingKey string, event any) error
}

// Input обращение от пользователя.
type Input struct {
	Type    models.FeedbackType
	Message string
	Rating  int
}

// Service сервис обращений.
type Service struct {
	repo     Repository
	users    UserLoader
	notifier Notifier
	log      *slog.Logger
}

// New создает Service.
func New(repo Repository, users UserLoader, notifier Notifier, log *slog.Logger) *Service {
	return &Service{repo: repo, users: users, notifier: notifier, log: log}
}

// Submit сохраняет обращение с контактами пользователя. Заявка на возврат
// создается в статусе incomplete, и пользователю уходит подтверждение.
func (s *Service) Submit(ctx context.Context, userUID string, in Input) (*models.Feedback, error) {
	const op = "feedback.Submit"
	if in.Type != models.FeedbackRefund && in.Type != models.FeedbackQuery {
		return nil, fmt.Errorf("%s: %w", op, models.NewError(models.KindInvalidInput, "feedbackType must be refund or query"))
	}
	if in.Rating < 0 || in.Rating > 5 {
		return nil, fmt.Errorf("%s: %w", op, models.NewError(models.KindInvalidInput, "rating must be between 1 and 5"))
	}
	msg := strings.TrimSpace(in.Message)
	if utf8.RuneCountInString(msg) > MaxMessage {
		return nil, fmt.Errorf("%s: %w", op, models.NewError(models.KindInvalidInput, "message cannot exceed %d characters", MaxMessage))
	}

	u, err := s.users.Load(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	f := &models.Feedback{
		UserUID:        userUID,
		Email:          u.Email,
		PhoneEncrypted: u.PhoneEncrypted,
		Type:           in.Type,
		Message:        msg,
		Rating:         in.Rating,
	}
	if in.Type == models.FeedbackRefund {
		f.RefundStatus = models.RefundIncomplete
	}
	if err := s.repo.CreateFeedback(ctx, f); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	metrics.FeedbackSubmitted.WithLabelValues(string(f.Type)).Inc()
	s.log.Info("feedback submitted", sl.User(userUID), slog.String("type", string(f.Type)), slog.String("feedback_id", f.ID))

	if f.Type == models.FeedbackRefund {
		event := models.RefundRequested{
			FeedbackID: f.ID,
			UserUID:    userUID,
			Email:      u.Email,
			Message:    msg,
			CreatedAt:  f.CreatedAt,
		}
		if err := s.notifier.Publish(ctx, rabbitmq.RoutingRefund, event); err != nil {
			s.log.Error("failed to publish refund request notification", sl.User(userUID), sl.Err(err))
		}
	}
	return f, nil
}
