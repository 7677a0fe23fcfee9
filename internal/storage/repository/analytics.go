package repository

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/examprep/internal/models"
)

// SubjectTotals агрегирует решенные вопросы пользователя по предметам.
func (s *Storage) SubjectTotals(ctx context.Context, userUID string) ([]models.SubjectStats, error) {
	const op = "storage.SubjectTotals"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT subject,
			  COUNT(*),
			  COUNT(*) FILTER (WHERE is_correct),
			  COALESCE(SUM(time_taken), 0)
			  FROM attempted_questions
			  WHERE user_uid = $1
			  GROUP BY subject
			  ORDER BY subject`
	rows, err := s.DB.QueryContext(ctx, query, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []models.SubjectStats
	for rows.Next() {
		var st models.SubjectStats
		if err = rows.Scan(&st.Subject, &st.TotalAttempted, &st.Correct, &st.TotalTime); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		st.Wrong = st.TotalAttempted - st.Correct
		result = append(result, st)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// CountAttemptedMockTests число сданных пробных тестов.
func (s *Storage) CountAttemptedMockTests(ctx context.Context, userUID string) (int, error) {
	const op = "storage.CountAttemptedMockTests"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var count int
	err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM mock_test_records
		WHERE user_uid = $1 AND status = 'attempted'`, userUID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}

// AttemptedQuestions история решенных вопросов, новые первыми.
func (s *Storage) AttemptedQuestions(ctx context.Context, userUID string) ([]models.AttemptedQuestion, error) {
	const op = "storage.AttemptedQuestions"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT question_id, subject, chapter, topic, is_correct, attempted_at, time_taken
			  FROM attempted_questions
			  WHERE user_uid = $1
			  ORDER BY attempted_at DESC, id DESC`
	rows, err := s.DB.QueryContext(ctx, query, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []models.AttemptedQuestion
	for rows.Next() {
		var a models.AttemptedQuestion
		if err = rows.Scan(&a.QuestionID, &a.Subject, &a.Chapter, &a.Topic, &a.IsCorrect, &a.AttemptedAt, &a.TimeTaken); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, a)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
