package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/examprep/internal/models"
)

// RedeemGiftCode помечает код использованным и продлевает пользователю gold.
// Код и пользователь меняются в одной транзакции: ошибка expiryFor или
// отсутствие пользователя оставляют код неиспользованным.
func (s *Storage) RedeemGiftCode(ctx context.Context, userUID, code string, now time.Time,
	expiryFor func(duration string) (time.Time, error)) (*models.GiftCodeRedemption, error) {
	const op = "storage.RedeemGiftCode"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}
	if !validUUID(userUID) {
		return nil, fmt.Errorf("%s: %w", op, models.NewError(models.KindNotFound, "user not found"))
	}

	result := &models.GiftCodeRedemption{Code: code}
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `UPDATE gift_codes
			SET is_used = true, used_by = $2, used_at = $3
			WHERE code = $1 AND is_used = false
			RETURNING duration`, code, userUID, now).Scan(&result.Duration)
		if errors.Is(err, sql.ErrNoRows) {
			return models.NewError(models.KindInvalidInput, "invalid or already used gift code")
		}
		if err != nil {
			return err
		}

		result.ExpiresAt, err = expiryFor(result.Duration)
		if err != nil {
			return err
		}

		err = tx.QueryRowContext(ctx, `UPDATE users
			SET tier = $2,
			    subscription_expiry = $3,
			    plan_duration = $4,
			    plan_start_date = $5,
			    gift_code_used = true,
			    gift_code = $6,
			    gift_code_used_at = $5
			WHERE uid = $1
			RETURNING email`, userUID, models.TierGold, result.ExpiresAt, result.Duration, now, code).
			Scan(&result.Email)
		if errors.Is(err, sql.ErrNoRows) {
			return models.NewError(models.KindNotFound, "user not found")
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
