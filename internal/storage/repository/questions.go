package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/magabrotheeeer/examprep/internal/models"
)

const questionColumns = `q.id, q.exam, q.subject, q.chapter, q.topic, q.question_type,
	q.question_text, q.question_image_url, q.options, q.correct_answer, q.is_active`

func scanQuestion(row rowScanner) (*models.Question, error) {
	var (
		q       models.Question
		options []byte
	)
	err := row.Scan(&q.ID, &q.Exam, &q.Subject, &q.Chapter, &q.Topic, &q.Type,
		&q.Text, &q.ImageURL, &options, &q.CorrectAnswer, &q.IsActive)
	if err != nil {
		return nil, err
	}
	if len(options) > 0 {
		if err = json.Unmarshal(options, &q.Options); err != nil {
			return nil, err
		}
	}
	return &q, nil
}

func scanQuestions(rows *sql.Rows) ([]models.Question, error) {
	defer func() {
		_ = rows.Close()
	}()
	var result []models.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *q)
	}
	return result, rows.Err()
}

// practiceWhere строит условие выборки нерешенных активных вопросов.
// $1 всегда uid пользователя.
func practiceWhere(userUID string, f models.PracticeFilter) (string, []any) {
	args := []any{userUID, f.Exam, f.Subject}
	conds := []string{"q.is_active", "q.exam = $2", "q.subject = $3"}
	add := func(col string, values []string) {
		if len(values) == 0 {
			return
		}
		args = append(args, values)
		conds = append(conds, col+" = ANY($"+strconv.Itoa(len(args))+")")
	}
	add("q.chapter", f.Chapters)
	add("q.topic", f.Topics)
	add("q.question_type", f.QuestionTypes)
	conds = append(conds, `NOT EXISTS (
		SELECT 1 FROM attempted_questions a
		WHERE a.user_uid = $1 AND a.question_id = q.id)`)
	return strings.Join(conds, " AND "), args
}

// PracticeQuestions возвращает страницу нерешенных вопросов в стабильном порядке.
func (s *Storage) PracticeQuestions(ctx context.Context, userUID string, f models.PracticeFilter, offset, limit int) ([]models.Question, error) {
	const op = "storage.PracticeQuestions"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	where, args := practiceWhere(userUID, f)
	args = append(args, offset, limit)
	query := `SELECT ` + questionColumns + ` FROM questions q WHERE ` + where +
		` ORDER BY q.created_at, q.id OFFSET $` + strconv.Itoa(len(args)-1) +
		` LIMIT $` + strconv.Itoa(len(args))

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	result, err := scanQuestions(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// RandomQuestions случайная выборка до n нерешенных вопросов типа t.
func (s *Storage) RandomQuestions(ctx context.Context, userUID string, f models.PracticeFilter, t models.QuestionType, n int) ([]models.Question, error) {
	const op = "storage.RandomQuestions"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	f.QuestionTypes = []string{string(t)}
	where, args := practiceWhere(userUID, f)
	args = append(args, n)
	query := `SELECT ` + questionColumns + ` FROM questions q WHERE ` + where +
		` ORDER BY random() LIMIT $` + strconv.Itoa(len(args))

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	result, err := scanQuestions(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// GetQuestion возвращает вопрос по идентификатору, в том числе неактивный.
func (s *Storage) GetQuestion(ctx context.Context, questionID string) (*models.Question, error) {
	const op = "storage.GetQuestion"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}
	if !validUUID(questionID) {
		return nil, fmt.Errorf("%s: %w", op, models.NewError(models.KindNotFound, "question not found"))
	}

	row := s.DB.QueryRowContext(ctx, `SELECT `+questionColumns+` FROM questions q WHERE q.id = $1`, questionID)
	q, err := scanQuestion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, models.NewError(models.KindNotFound, "question not found"))
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return q, nil
}

// RecordAttempt увеличивает счетчик вопросов и сохраняет попытку в одной транзакции.
func (s *Storage) RecordAttempt(ctx context.Context, userUID string, limit int, a models.AttemptedQuestion) (bool, error) {
	const op = "storage.RecordAttempt"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var recorded bool
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		ok, err := incrementUsage(ctx, tx, userUID, models.CounterQuestions, limit)
		if err != nil || !ok {
			return err
		}
		query := `INSERT INTO attempted_questions
				  (user_uid, question_id, subject, chapter, topic, is_correct, time_taken, attempted_at)
				  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
		if _, err = tx.ExecContext(ctx, query, userUID, a.QuestionID, a.Subject, a.Chapter, a.Topic,
			a.IsCorrect, a.TimeTaken, a.AttemptedAt); err != nil {
			return err
		}
		recorded = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return recorded, nil
}

// QuestionFilters возвращает доступные значения фильтров. Пустой subject
// дает список предметов, пустой chapter список глав, иначе список тем.
func (s *Storage) QuestionFilters(ctx context.Context, exam, subject, chapter string) (*models.QuestionFilters, error) {
	const op = "storage.QuestionFilters"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var (
		query string
		args  = []any{exam}
	)
	switch {
	case subject == "":
		query = `SELECT DISTINCT subject FROM questions WHERE is_active AND exam = $1 ORDER BY 1`
	case chapter == "":
		query = `SELECT DISTINCT chapter FROM questions WHERE is_active AND exam = $1 AND subject = $2 ORDER BY 1`
		args = append(args, subject)
	default:
		query = `SELECT DISTINCT topic FROM questions
				 WHERE is_active AND exam = $1 AND subject = $2 AND chapter = $3 AND topic <> '' ORDER BY 1`
		args = append(args, subject, chapter)
	}

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var values []string
	for rows.Next() {
		var v string
		if err = rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		values = append(values, v)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	result := &models.QuestionFilters{}
	switch {
	case subject == "":
		result.Subjects = values
	case chapter == "":
		result.Chapters = values
	default:
		result.Topics = values
	}
	return result, nil
}
