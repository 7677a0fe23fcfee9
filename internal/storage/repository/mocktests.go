package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/examprep/internal/models"
)

// ListMockTests возвращает активные тесты экзамена со статусом для пользователя.
func (s *Storage) ListMockTests(ctx context.Context, userUID, exam string) ([]models.MockTestSummary, error) {
	const op = "storage.ListMockTests"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT m.id, m.name, m.exam, m.duration_minutes,
			  (SELECT COUNT(*) FROM mock_test_questions mq WHERE mq.mock_test_id = m.id),
			  EXISTS (SELECT 1 FROM mock_test_records r
			          WHERE r.mock_test_id = m.id AND r.user_uid = $1 AND r.status = 'attempted')
			  FROM mock_tests m
			  WHERE m.is_active AND m.exam = $2
			  ORDER BY m.created_at, m.name`
	rows, err := s.DB.QueryContext(ctx, query, userUID, exam)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []models.MockTestSummary
	for rows.Next() {
		var (
			m         models.MockTestSummary
			attempted bool
		)
		if err = rows.Scan(&m.ID, &m.Name, &m.Exam, &m.Duration, &m.QuestionCount, &attempted); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		m.Status = models.MockTestUnattempted
		if attempted {
			m.Status = models.MockTestAttempted
		}
		result = append(result, m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// GetMockTest возвращает шаблон теста с вопросами по порядку номеров.
func (s *Storage) GetMockTest(ctx context.Context, mockTestID string) (*models.MockTest, error) {
	const op = "storage.GetMockTest"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}
	if !validUUID(mockTestID) {
		return nil, fmt.Errorf("%s: %w", op, models.NewError(models.KindNotFound, "mock test not found"))
	}

	var m models.MockTest
	err := s.DB.QueryRowContext(ctx, `SELECT id, name, exam, duration_minutes, is_active, explanation_pdf_url
		FROM mock_tests WHERE id = $1`, mockTestID).
		Scan(&m.ID, &m.Name, &m.Exam, &m.Duration, &m.IsActive, &m.ExplanationPDFURL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, models.NewError(models.KindNotFound, "mock test not found"))
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	query := `SELECT mq.serial_number, mq.subject, ` + questionColumns + `
			  FROM mock_test_questions mq
			  JOIN questions q ON q.id = mq.question_id
			  WHERE mq.mock_test_id = $1
			  ORDER BY mq.serial_number`
	rows, err := s.DB.QueryContext(ctx, query, mockTestID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	for rows.Next() {
		var (
			mq      models.MockTestQuestion
			q       models.Question
			options []byte
		)
		err = rows.Scan(&mq.SerialNumber, &mq.Subject,
			&q.ID, &q.Exam, &q.Subject, &q.Chapter, &q.Topic, &q.Type,
			&q.Text, &q.ImageURL, &options, &q.CorrectAnswer, &q.IsActive)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if len(options) > 0 {
			if err = json.Unmarshal(options, &q.Options); err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
		}
		mq.QuestionID = q.ID
		mq.Question = &q
		m.Questions = append(m.Questions, mq)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &m, nil
}

// HasAttempted сообщает, сдавал ли пользователь тест.
func (s *Storage) HasAttempted(ctx context.Context, userUID, mockTestID string) (bool, error) {
	const op = "storage.HasAttempted"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var exists bool
	err := s.DB.QueryRowContext(ctx, `SELECT EXISTS (
		SELECT 1 FROM mock_test_records
		WHERE user_uid = $1 AND mock_test_id = $2 AND status = 'attempted')`, userUID, mockTestID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}

// GetAttemptedRecord возвращает запись о сданном тесте.
func (s *Storage) GetAttemptedRecord(ctx context.Context, userUID, mockTestID string) (*models.MockTestRecord, error) {
	const op = "storage.GetAttemptedRecord"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}
	if !validUUID(mockTestID) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}

	var (
		rec       models.MockTestRecord
		answers   []byte
		startedAt sql.NullTime
	)
	query := `SELECT id, user_uid, mock_test_id, status, answers, score, correct, wrong, unanswered,
			  time_taken, started_at, submitted_at, submitted_late
			  FROM mock_test_records
			  WHERE user_uid = $1 AND mock_test_id = $2 AND status = 'attempted'`
	err := s.DB.QueryRowContext(ctx, query, userUID, mockTestID).Scan(&rec.ID, &rec.UserUID, &rec.MockTestID,
		&rec.Status, &answers, &rec.Score, &rec.Correct, &rec.Wrong, &rec.Unanswered,
		&rec.TimeTaken, &startedAt, &rec.SubmittedAt, &rec.SubmittedLate)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = json.Unmarshal(answers, &rec.Answers); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	rec.StartedAt = nullTimePtr(startedAt)
	return &rec, nil
}

// StartMockTest ставит блокировку и увеличивает счетчик тестов одним запросом.
// Блокировка с ongoing_expires_at не позже lock.StartedAt считается истекшей.
func (s *Storage) StartMockTest(ctx context.Context, userUID string, lock models.OngoingMockTest, limit int) (bool, error) {
	const op = "storage.StartMockTest"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users
			  SET ongoing_mock_test_id = $2,
			      ongoing_started_at = $3,
			      ongoing_expires_at = $4,
			      mock_tests_attempted = mock_tests_attempted + 1
			  WHERE uid = $1
			    AND mock_tests_attempted < $5
			    AND (ongoing_expires_at IS NULL OR ongoing_expires_at <= $3)`
	res, err := s.DB.ExecContext(ctx, query, userUID, lock.MockTestID, lock.StartedAt, lock.ExpiresAt, limit)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return n == 1, nil
}

// SubmitMockTest сохраняет результат и снимает блокировку этого теста.
// Без блокировки на rec.MockTestID запись не сохраняется и возвращается
// models.ErrNotStarted.
func (s *Storage) SubmitMockTest(ctx context.Context, rec *models.MockTestRecord) error {
	const op = "storage.SubmitMockTest"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	answers, err := json.Marshal(rec.Answers)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err = s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE users
			SET ongoing_mock_test_id = NULL, ongoing_started_at = NULL, ongoing_expires_at = NULL
			WHERE uid = $1 AND ongoing_mock_test_id = $2`, rec.UserUID, rec.MockTestID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return models.ErrNotStarted
		}

		query := `INSERT INTO mock_test_records
				  (user_uid, mock_test_id, status, answers, score, correct, wrong, unanswered,
				   time_taken, started_at, submitted_at, submitted_late)
				  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
				  RETURNING id`
		err = tx.QueryRowContext(ctx, query, rec.UserUID, rec.MockTestID, models.MockTestAttempted, answers,
			rec.Score, rec.Correct, rec.Wrong, rec.Unanswered, rec.TimeTaken, rec.StartedAt,
			rec.SubmittedAt, rec.SubmittedLate).Scan(&rec.ID)
		if err != nil {
			if isUniqueViolation(err) {
				return models.ErrAlreadyAttempted
			}
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rec.Status = models.MockTestAttempted
	return nil
}
