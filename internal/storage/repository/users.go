package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/examprep/internal/models"
)

const userColumns = `uid, email, phone_encrypted, password_hash, selected_exam, tier,
	subscription_expiry, plan_duration, plan_amount_paid, plan_start_date,
	gift_code_used, gift_code, gift_code_used_at,
	usage_date, questions_attempted, chapter_tests_generated, mock_tests_attempted,
	daily_session_limit_reached, ongoing_mock_test_id, ongoing_started_at, ongoing_expires_at,
	name, profession, grade, preparing_for, college_name, school_name, state, life_ambition, details_completed,
	created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u                              models.User
		expiry, planStart, giftUsedAt  sql.NullTime
		ongoingID                      sql.NullString
		ongoingStarted, ongoingExpires sql.NullTime
	)
	err := row.Scan(&u.UID, &u.Email, &u.PhoneEncrypted, &u.PasswordHash, &u.SelectedExam, &u.Tier,
		&expiry, &u.PlanDuration, &u.PlanAmountPaid, &planStart,
		&u.GiftCodeUsed, &u.GiftCode, &giftUsedAt,
		&u.DailyUsage.Date, &u.DailyUsage.QuestionsAttempted, &u.DailyUsage.ChapterTestsGenerated, &u.DailyUsage.MockTestsAttempted,
		&u.DailySessionLimitReached, &ongoingID, &ongoingStarted, &ongoingExpires,
		&u.Details.Name, &u.Details.Profession, &u.Details.Grade, &u.Details.PreparingFor,
		&u.Details.CollegeName, &u.Details.SchoolName, &u.Details.State, &u.Details.LifeAmbition, &u.Details.Completed,
		&u.CreatedAt)
	if err != nil {
		return nil, err
	}
	u.SubscriptionExpiry = nullTimePtr(expiry)
	u.PlanStartDate = nullTimePtr(planStart)
	u.GiftCodeUsedAt = nullTimePtr(giftUsedAt)
	if ongoingID.Valid && ongoingExpires.Valid {
		u.OngoingMockTest = &models.OngoingMockTest{
			MockTestID: ongoingID.String,
			StartedAt:  ongoingStarted.Time,
			ExpiresAt:  ongoingExpires.Time,
		}
	}
	return &u, nil
}

// CreateUser сохраняет нового пользователя, если на его адрес заведено
// меньше maxPerEmail аккаунтов. Подсчет и вставка идут в одной транзакции
// под advisory-блокировкой адреса, поэтому параллельные регистрации
// не превышают лимит.
func (s *Storage) CreateUser(ctx context.Context, u *models.User, maxPerEmail int) error {
	const op = "storage.CreateUser"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, u.Email); err != nil {
			return err
		}
		var count int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE email = $1`, u.Email).Scan(&count); err != nil {
			return err
		}
		if count >= maxPerEmail {
			return models.NewError(models.KindInvalidInput, "maximum %d accounts allowed per email", maxPerEmail)
		}
		query := `INSERT INTO users (uid, email, phone_encrypted, password_hash, tier, usage_date, created_at)
				  VALUES ($1, $2, $3, $4, $5, $6, $7)`
		_, err := tx.ExecContext(ctx, query,
			u.UID, u.Email, u.PhoneEncrypted, u.PasswordHash, u.Tier, u.DailyUsage.Date, u.CreatedAt)
		return err
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetUser возвращает пользователя по его UID.
func (s *Storage) GetUser(ctx context.Context, userUID string) (*models.User, error) {
	const op = "storage.GetUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}
	if !validUUID(userUID) {
		return nil, fmt.Errorf("%s: %w", op, models.NewError(models.KindNotFound, "user not found"))
	}

	row := s.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE uid = $1`, userUID)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, models.NewError(models.KindNotFound, "user not found"))
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// CountUsersByEmail возвращает число аккаунтов на адрес.
func (s *Storage) CountUsersByEmail(ctx context.Context, email string) (int, error) {
	const op = "storage.CountUsersByEmail"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var count int
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE email = $1`, email).Scan(&count); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}

// UsersByEmail возвращает все аккаунты адреса в порядке создания.
func (s *Storage) UsersByEmail(ctx context.Context, email string) ([]models.User, error) {
	const op = "storage.UsersByEmail"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	rows, err := s.DB.QueryContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1 ORDER BY created_at`, email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, *u)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// SaveUserDetails сохраняет анкету и отмечает ее заполненной.
func (s *Storage) SaveUserDetails(ctx context.Context, userUID string, d models.UserDetails) error {
	const op = "storage.SaveUserDetails"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}
	if !validUUID(userUID) {
		return fmt.Errorf("%s: %w", op, models.NewError(models.KindNotFound, "user not found"))
	}

	query := `UPDATE users
			  SET name = $2, profession = $3, grade = $4, preparing_for = $5,
			      college_name = $6, school_name = $7, state = $8, life_ambition = $9,
			      details_completed = true
			  WHERE uid = $1`
	res, err := s.DB.ExecContext(ctx, query, userUID, d.Name, d.Profession, d.Grade, d.PreparingFor,
		d.CollegeName, d.SchoolName, d.State, d.LifeAmbition)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, models.NewError(models.KindNotFound, "user not found"))
	}
	return nil
}

// SetSelectedExam сохраняет выбранный экзамен.
func (s *Storage) SetSelectedExam(ctx context.Context, userUID, exam string) error {
	const op = "storage.SetSelectedExam"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}
	if !validUUID(userUID) {
		return fmt.Errorf("%s: %w", op, models.NewError(models.KindNotFound, "user not found"))
	}

	res, err := s.DB.ExecContext(ctx, `UPDATE users SET selected_exam = $2 WHERE uid = $1`, userUID, exam)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, models.NewError(models.KindNotFound, "user not found"))
	}
	return nil
}

// ResetDailyUsage обнуляет дневные счетчики, если дата счетчиков в базе
// все еще prevDate.
func (s *Storage) ResetDailyUsage(ctx context.Context, userUID string, prevDate, now time.Time) (bool, error) {
	const op = "storage.ResetDailyUsage"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users
			  SET usage_date = $3,
			      questions_attempted = 0,
			      chapter_tests_generated = 0,
			      mock_tests_attempted = 0,
			      daily_session_limit_reached = false
			  WHERE uid = $1 AND usage_date = $2`
	res, err := s.DB.ExecContext(ctx, query, userUID, prevDate, now)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return n == 1, nil
}

func counterColumn(c models.Counter) (string, error) {
	switch c {
	case models.CounterQuestions:
		return "questions_attempted", nil
	case models.CounterChapterTests:
		return "chapter_tests_generated", nil
	case models.CounterMockTests:
		return "mock_tests_attempted", nil
	}
	return "", fmt.Errorf("unknown counter %q", c)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// incrementUsage увеличивает счетчик, только если он меньше limit.
// Достижение лимита вопросов отмечается флагом daily_session_limit_reached.
func incrementUsage(ctx context.Context, db execer, userUID string, c models.Counter, limit int) (bool, error) {
	col, err := counterColumn(c)
	if err != nil {
		return false, err
	}
	query := `UPDATE users SET ` + col + ` = ` + col + ` + 1`
	if c == models.CounterQuestions {
		query += `, daily_session_limit_reached = (questions_attempted + 1 >= $2)`
	}
	query += ` WHERE uid = $1 AND ` + col + ` < $2`

	res, err := db.ExecContext(ctx, query, userUID, limit)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// IncrementUsage увеличивает дневной счетчик c, если он меньше limit.
func (s *Storage) IncrementUsage(ctx context.Context, userUID string, c models.Counter, limit int) (bool, error) {
	const op = "storage.IncrementUsage"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	ok, err := incrementUsage(ctx, s.DB, userUID, c, limit)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return ok, nil
}
