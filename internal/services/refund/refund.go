// Package refund считает возможный возврат за оплаченный план.
package refund

import (
	"context"
	"fmt"
	"time"

	"github.com/magabrotheeeer/examprep/internal/lib/ist"
	"github.com/magabrotheeeer/examprep/internal/models"
)

// Причины отказа в возврате.
const (
	ReasonFreePlan     = "No active paid subscription found"
	ReasonGiftCode     = "Refund not available for gift code subscriptions"
	ReasonNoPayment    = "No eligible payment found for refund"
	ReasonUsageTooHigh = "Plan usage exceeds the refundable period"
)

// Result расчет возврата.
type Result struct {
	Eligible      bool   `json:"eligible"`
	Reason        string `json:"reason,omitempty"`
	RefundPercent int    `json:"refundPercent"`
	RefundAmount  int    `json:"refundAmount"`
	AmountPaid    int    `json:"amountPaid"`
	UsedDays      int    `json:"usedDays"`
	TotalDays     int    `json:"totalDays"`
}

// Percent процент возврата по доле использованного срока.
func Percent(usedPercent float64) int {
	switch {
	case usedPercent <= 10:
		return 60
	case usedPercent <= 40:
		return 45
	case usedPercent <= 60:
		return 30
	}
	return 0
}

// Calculate считает возврат по успешному платежу на момент now.
func Calculate(p *models.Payment, now time.Time) Result {
	total := p.PlanExpiryDate.Sub(p.PlanStartDate)
	used := now.Sub(p.PlanStartDate)
	res := Result{
		AmountPaid: p.AmountPaid,
		UsedDays:   ist.Days(p.PlanStartDate, now),
		TotalDays:  ist.Days(p.PlanStartDate, p.PlanExpiryDate),
	}
	if total <= 0 {
		res.Reason = ReasonUsageTooHigh
		return res
	}

	usedPercent := float64(used) / float64(total) * 100
	res.RefundPercent = Percent(usedPercent)
	res.RefundAmount = p.AmountPaid * res.RefundPercent / 100
	res.Eligible = res.RefundPercent > 0
	if !res.Eligible {
		res.Reason = ReasonUsageTooHigh
	}
	return res
}

// Repository хранилище пользователей и платежей.
type Repository interface {
	GetUser(ctx context.Context, userUID string) (*models.User, error)
	// LatestRefundablePayment последний успешный платеж без возврата или nil.
	LatestRefundablePayment(ctx context.Context, userUID string) (*models.Payment, error)
}

// Service расчет возврата для пользователя.
type Service struct {
	repo Repository
	now  func() time.Time
}

// New создает Service.
func New(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Calculate возвращает расчет возврата. Отсутствие права на возврат
// не ошибка, а Result с Eligible=false и причиной.
func (s *Service) Calculate(ctx context.Context, userUID string) (*Result, error) {
	const op = "refund.Calculate"
	u, err := s.repo.GetUser(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if u.Tier == models.TierFree || u.Tier == "" {
		return &Result{Reason: ReasonFreePlan}, nil
	}
	if u.GiftCodeUsed {
		return &Result{Reason: ReasonGiftCode}, nil
	}
	p, err := s.repo.LatestRefundablePayment(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if p == nil {
		return &Result{Reason: ReasonNoPayment}, nil
	}
	res := Calculate(p, s.now())
	return &res, nil
}
