// Package quota отвечает за дневные лимиты пользователей: сброс счетчиков
// на границе суток IST и проверку лимитов по уровню подписки.
package quota

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/examprep/internal/lib/ist"
	"github.com/magabrotheeeer/examprep/internal/lib/sl"
	"github.com/magabrotheeeer/examprep/internal/metrics"
	"github.com/magabrotheeeer/examprep/internal/models"
)

// Limits дневные лимиты уровня.
type Limits struct {
	Questions    int `json:"questions"`
	ChapterTests int `json:"chapterTests"`
	MockTests    int `json:"mockTests"`
}

// For возвращает лимит для счетчика.
func (l Limits) For(c models.Counter) int {
	switch c {
	case models.CounterQuestions:
		return l.Questions
	case models.CounterChapterTests:
		return l.ChapterTests
	case models.CounterMockTests:
		return l.MockTests
	}
	return 0
}

var tierLimits = map[models.Tier]Limits{
	models.TierFree:   {Questions: 50, ChapterTests: 0, MockTests: 0},
	models.TierSilver: {Questions: 200, ChapterTests: 10, MockTests: 0},
	models.TierGold:   {Questions: 5000, ChapterTests: 50, MockTests: 8},
}

// GetLimits возвращает лимиты уровня, для неизвестного уровня лимиты free.
func GetLimits(tier models.Tier) Limits {
	if l, ok := tierLimits[tier]; ok {
		return l
	}
	return tierLimits[models.TierFree]
}

// ResetIfNewDay обнуляет счетчики, если now приходится на другой день IST,
// чем дата счетчиков. Возвращает true, если сброс был.
func ResetIfNewDay(u *models.User, now time.Time) bool {
	if ist.SameDay(u.DailyUsage.Date, now) {
		return false
	}
	u.DailyUsage = models.DailyUsage{Date: now}
	u.DailySessionLimitReached = false
	return true
}

// ExceededError формирует ошибку превышения лимита с подсказкой по уровню.
func ExceededError(tier models.Tier, c models.Counter, limit int) error {
	metrics.QuotaRejections.WithLabelValues(string(c), string(tier)).Inc()
	switch c {
	case models.CounterQuestions:
		hint := "Please come back tomorrow"
		switch tier {
		case models.TierFree:
			hint = "Upgrade to Silver or Gold"
		case models.TierSilver:
			hint = "Upgrade to Gold"
		}
		return models.NewError(models.KindQuotaExceeded, "Daily limit of %d questions reached on %s plan. %s", limit, tier, hint)
	case models.CounterChapterTests:
		hint := "Upgrade to Gold for more tests"
		if tier == models.TierFree {
			hint = "Upgrade to Silver or Gold"
		} else if tier == models.TierGold {
			hint = "Please come back tomorrow"
		}
		return models.NewError(models.KindQuotaExceeded, "Daily chapter test limit reached on %s plan. %s", tier, hint)
	default:
		hint := "Upgrade to Gold subscription"
		if tier == models.TierGold {
			hint = "Please come back tomorrow"
		}
		return models.NewError(models.KindQuotaExceeded, "Daily mock test limit reached on %s plan. %s", tier, hint)
	}
}

// Repository хранилище пользователей, нужное трекеру.
type Repository interface {
	GetUser(ctx context.Context, userUID string) (*models.User, error)
	// ResetDailyUsage обнуляет счетчики, только если дата счетчиков в базе
	// все еще равна prevDate. Возвращает false, если сброс уже выполнен другим запросом.
	ResetDailyUsage(ctx context.Context, userUID string, prevDate, now time.Time) (bool, error)
}

// Tracker загружает пользователя с актуальными дневными счетчиками.
type Tracker struct {
	repo Repository
	log  *slog.Logger
	now  func() time.Time
}

// NewTracker создает Tracker.
func NewTracker(repo Repository, log *slog.Logger) *Tracker {
	return &Tracker{repo: repo, log: log, now: time.Now}
}

// Load возвращает пользователя, предварительно сбросив счетчики прошедшего дня.
func (t *Tracker) Load(ctx context.Context, userUID string) (*models.User, error) {
	const op = "quota.Load"
	u, err := t.repo.GetUser(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	prev := u.DailyUsage.Date
	now := t.now()
	if !ResetIfNewDay(u, now) {
		return u, nil
	}
	ok, err := t.repo.ResetDailyUsage(ctx, userUID, prev, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if ok {
		t.log.Debug("daily usage reset", sl.User(userUID))
		return u, nil
	}
	u, err = t.repo.GetUser(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// Status лимиты и использование пользователя на текущий день.
type Status struct {
	Tier                   models.Tier       `json:"subscriptionType"`
	EffectiveTier          models.Tier       `json:"effectiveSubscriptionType"`
	IsActive               bool              `json:"isSubscriptionActive"`
	SubscriptionExpiry     *time.Time        `json:"subscriptionExpiryDate,omitempty"`
	Limits                 Limits            `json:"limits"`
	Usage                  models.DailyUsage `json:"usage"`
	CanAttemptQuestions    bool              `json:"canAttemptQuestions"`
	CanGenerateChapterTest bool              `json:"canGenerateChapterTest"`
	CanAttemptMockTest     bool              `json:"canAttemptMockTest"`
	ResetsAt               time.Time         `json:"resetsAt"`
}

// StatusOf вычисляет Status для уже загруженного пользователя.
func StatusOf(u *models.User, now time.Time) *Status {
	tier := u.EffectiveTier(now)
	limits := GetLimits(tier)
	return &Status{
		Tier:                   u.Tier,
		EffectiveTier:          tier,
		IsActive:               u.IsSubscriptionActive(now),
		SubscriptionExpiry:     u.SubscriptionExpiry,
		Limits:                 limits,
		Usage:                  u.DailyUsage,
		CanAttemptQuestions:    u.DailyUsage.QuestionsAttempted < limits.Questions,
		CanGenerateChapterTest: u.DailyUsage.ChapterTestsGenerated < limits.ChapterTests,
		CanAttemptMockTest:     u.DailyUsage.MockTestsAttempted < limits.MockTests,
		ResetsAt:               ist.NextReset(now),
	}
}

// CheckLimits загружает пользователя и возвращает его Status.
func (t *Tracker) CheckLimits(ctx context.Context, userUID string) (*Status, error) {
	const op = "quota.CheckLimits"
	u, err := t.Load(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return StatusOf(u, t.now()), nil
}

// Check проверяет, что счетчик c пользователя u еще не достиг лимита.
// Возвращает эффективный уровень и лимит для условного инкремента.
func Check(u *models.User, c models.Counter, now time.Time) (models.Tier, int, error) {
	tier := u.EffectiveTier(now)
	limit := GetLimits(tier).For(c)
	if u.DailyUsage.Get(c) >= limit {
		return tier, limit, ExceededError(tier, c, limit)
	}
	return tier, limit, nil
}
