package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/magabrotheeeer/examprep/internal/models"
)

// SubscriptionsExpiringBetween возвращает платные подписки, срок которых
// заканчивается в интервале [from, to).
func (s *Storage) SubscriptionsExpiringBetween(ctx context.Context, from, to time.Time) ([]models.SubscriptionExpiring, error) {
	const op = "storage.SubscriptionsExpiringBetween"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT uid, email, tier, subscription_expiry
			  FROM users
			  WHERE tier <> 'free' AND subscription_expiry >= $1 AND subscription_expiry < $2
			  ORDER BY subscription_expiry`
	rows, err := s.DB.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var res []models.SubscriptionExpiring
	for rows.Next() {
		var e models.SubscriptionExpiring
		if err := rows.Scan(&e.UserUID, &e.Email, &e.Tier, &e.ExpiresAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		res = append(res, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return res, nil
}
