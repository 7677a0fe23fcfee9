package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/examprep/internal/models"
)

// LatestRefundablePayment возвращает последний успешный платеж пользователя,
// по которому еще не было возврата. Если такого нет, возвращает nil.
func (s *Storage) LatestRefundablePayment(ctx context.Context, userUID string) (*models.Payment, error) {
	const op = "storage.LatestRefundablePayment"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_uid, order_id, payment_id, amount_paid, plan_type, plan_duration,
			  plan_start_date, plan_expiry_date, status, refund_used, refund_amount, refund_percent,
			  refund_status, created_at
			  FROM payments
			  WHERE user_uid = $1 AND status = 'success' AND refund_used = false
			  ORDER BY created_at DESC
			  LIMIT 1`
	var p models.Payment
	err := s.DB.QueryRowContext(ctx, query, userUID).Scan(&p.ID, &p.UserUID, &p.OrderID, &p.PaymentID,
		&p.AmountPaid, &p.PlanType, &p.PlanDuration, &p.PlanStartDate, &p.PlanExpiryDate, &p.Status,
		&p.RefundUsed, &p.RefundAmount, &p.RefundPercent, &p.RefundStatus, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &p, nil
}
