// Package subscription содержит состояние подписки пользователя:
// применение подарочных кодов и каталог тарифов.
package subscription

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/examprep/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/examprep/internal/lib/sl"
	"github.com/magabrotheeeer/examprep/internal/metrics"
	"github.com/magabrotheeeer/examprep/internal/models"
)

// Repository хранилище подарочных кодов и пользователей.
type Repository interface {
	// RedeemGiftCode в одной транзакции помечает неиспользованный код
	// использованным и переводит пользователя на gold до expiryFor(duration).
	// Ошибка на любом шаге откатывает оба изменения.
	RedeemGiftCode(ctx context.Context, userUID, code string, now time.Time,
		expiryFor func(duration string) (time.Time, error)) (*models.GiftCodeRedemption, error)
}

// Notifier публикует события для отправителя уведомлений.
type Notifier interface {
	Publish(ctx context.Context, routingKey string, event any) error
}

// Service бизнес-логика подписок.
type Service struct {
	repo     Repository
	notifier Notifier
	log      *slog.Logger
	now      func() time.Time
}

// New создает Service.
func New(repo Repository, notifier Notifier, log *slog.Logger) *Service {
	return &Service{repo: repo, notifier: notifier, log: log, now: time.Now}
}

// GiftCodeResult подписка после применения кода.
type GiftCodeResult struct {
	Type       models.Tier `json:"type"`
	ExpiryDate time.Time   `json:"expiryDate"`
	Duration   string      `json:"duration"`
}

// ApplyGiftCode применяет подарочный код: пользователь получает gold
// на срок, указанный в коде.
func (s *Service) ApplyGiftCode(ctx context.Context, userUID, code string) (*GiftCodeResult, error) {
	const op = "subscription.ApplyGiftCode"
	normalized, err := NormalizeGiftCode(code)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := s.now()
	expiryFor := func(duration string) (time.Time, error) {
		days, err := DurationDays(duration)
		if err != nil {
			return time.Time{}, err
		}
		return now.AddDate(0, 0, days), nil
	}

	res, err := s.repo.RedeemGiftCode(ctx, userUID, normalized, now, expiryFor)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	metrics.GiftCodesRedeemed.Inc()
	s.log.Info("gift code applied", sl.User(userUID), slog.String("duration", res.Duration))

	event := models.GiftCodeRedeemed{
		UserUID:   userUID,
		Email:     res.Email,
		Code:      res.Code,
		Tier:      models.TierGold,
		ExpiresAt: res.ExpiresAt,
	}
	if err := s.notifier.Publish(ctx, rabbitmq.RoutingGiftCode, event); err != nil {
		s.log.Error("failed to publish gift code notification", sl.User(userUID), sl.Err(err))
	}

	return &GiftCodeResult{
		Type:       models.TierGold,
		ExpiryDate: res.ExpiresAt,
		Duration:   res.Duration,
	}, nil
}
