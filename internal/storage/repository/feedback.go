package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/magabrotheeeer/examprep/internal/models"
)

// CreateFeedback сохраняет обращение и заполняет f.ID и f.CreatedAt.
// Нулевая оценка и пустой статус возврата пишутся как NULL.
func (s *Storage) CreateFeedback(ctx context.Context, f *models.Feedback) error {
	const op = "storage.CreateFeedback"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	rating := sql.NullInt32{Int32: int32(f.Rating), Valid: f.Rating != 0}
	status := sql.NullString{String: string(f.RefundStatus), Valid: f.RefundStatus != ""}
	query := `INSERT INTO feedback (user_uid, email, phone_encrypted, feedback_type, message, rating, refund_status)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)
			  RETURNING id, created_at`
	err := s.DB.QueryRowContext(ctx, query, f.UserUID, f.Email, f.PhoneEncrypted, f.Type, f.Message, rating, status).
		Scan(&f.ID, &f.CreatedAt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
