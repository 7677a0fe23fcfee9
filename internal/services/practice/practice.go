// Package practice реализует тренировку по вопросам: выдачу пачек вопросов,
// проверку ответов и генерацию коротких тестов по главам.
package practice

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/magabrotheeeer/examprep/internal/lib/sl"
	"github.com/magabrotheeeer/examprep/internal/metrics"
	"github.com/magabrotheeeer/examprep/internal/models"
	"github.com/magabrotheeeer/examprep/internal/services/quota"
)

const (
	// BatchSize размер пачки вопросов для практики.
	BatchSize = 30
	// ChapterTestMCQ число MCQ в тесте по главе.
	ChapterTestMCQ = 8
	// ChapterTestNumerical число числовых вопросов в тесте по главе.
	ChapterTestNumerical = 2
)

// Repository хранилище вопросов и попыток.
type Repository interface {
	// PracticeQuestions возвращает активные вопросы по фильтру, которые
	// пользователь еще не решал.
	PracticeQuestions(ctx context.Context, userUID string, f models.PracticeFilter, offset, limit int) ([]models.Question, error)
	GetQuestion(ctx context.Context, questionID string) (*models.Question, error)
	// RecordAttempt в одной транзакции увеличивает счетчик вопросов, если он
	// меньше limit, и добавляет попытку. false означает, что лимит уже исчерпан.
	RecordAttempt(ctx context.Context, userUID string, limit int, a models.AttemptedQuestion) (bool, error)
	// RandomQuestions случайная выборка до n нерешенных вопросов типа t.
	RandomQuestions(ctx context.Context, userUID string, f models.PracticeFilter, t models.QuestionType, n int) ([]models.Question, error)
	// IncrementUsage увеличивает счетчик c, если он меньше limit.
	IncrementUsage(ctx context.Context, userUID string, c models.Counter, limit int) (bool, error)
	QuestionFilters(ctx context.Context, exam, subject, chapter string) (*models.QuestionFilters, error)
}

// UserLoader возвращает пользователя с актуальными дневными счетчиками.
type UserLoader interface {
	Load(ctx context.Context, userUID string) (*models.User, error)
}

// Service сервис практики.
type Service struct {
	repo    Repository
	users   UserLoader
	log     *slog.Logger
	now     func() time.Time
	shuffle func(n int, swap func(i, j int))
}

// New создает Service.
func New(repo Repository, users UserLoader, log *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		users:   users,
		log:     log,
		now:     time.Now,
		shuffle: rand.Shuffle,
	}
}

// VerifyResult результат проверки ответа.
type VerifyResult struct {
	IsCorrect     bool            `json:"isCorrect"`
	CorrectAnswer string          `json:"correctAnswer"`
	QuestionText  string          `json:"questionText"`
	Options       []models.Option `json:"options"`
}

// FetchPracticeBatch возвращает до BatchSize нерешенных вопросов без ответов.
// Лимит не расходуется.
func (s *Service) FetchPracticeBatch(ctx context.Context, userUID string, f models.PracticeFilter, offset int) ([]models.Question, error) {
	const op = "practice.FetchPracticeBatch"
	if f.Exam == "" || f.Subject == "" {
		return nil, fmt.Errorf("%s: %w", op, models.NewError(models.KindInvalidInput, "exam and subject are required"))
	}
	if offset < 0 {
		offset = 0
	}
	if _, err := s.users.Load(ctx, userUID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	questions, err := s.repo.PracticeQuestions(ctx, userUID, f.Normalize(), offset, BatchSize)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return models.PublicQuestions(questions), nil
}

// VerifyAnswer проверяет ответ, расходует лимит вопросов и записывает попытку.
func (s *Service) VerifyAnswer(ctx context.Context, userUID, questionID, answer string, timeTaken int) (*VerifyResult, error) {
	const op = "practice.VerifyAnswer"
	u, err := s.users.Load(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	now := s.now()
	tier, limit, err := quota.Check(u, models.CounterQuestions, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	q, err := s.repo.GetQuestion(ctx, questionID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	isCorrect := models.CheckAnswer(q.Type, q.CorrectAnswer, answer)
	if timeTaken < 0 {
		timeTaken = 0
	}
	ok, err := s.repo.RecordAttempt(ctx, userUID, limit, models.AttemptedQuestion{
		QuestionID:  q.ID,
		Subject:     q.Subject,
		Chapter:     q.Chapter,
		Topic:       q.Topic,
		IsCorrect:   isCorrect,
		AttemptedAt: now,
		TimeTaken:   timeTaken,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, quota.ExceededError(tier, models.CounterQuestions, limit))
	}

	result := "wrong"
	if isCorrect {
		result = "correct"
	}
	metrics.AnswersVerified.WithLabelValues(result).Inc()

	return &VerifyResult{
		IsCorrect:     isCorrect,
		CorrectAnswer: q.CorrectAnswer,
		QuestionText:  q.Text,
		Options:       q.Options,
	}, nil
}

// TrackResult счетчик вопросов после записи попытки.
type TrackResult struct {
	QuestionsAttempted int `json:"questionsAttempted"`
	Limit              int `json:"limit"`
}

// TrackAttempt записывает попытку, проверенную на клиенте, и расходует
// лимит вопросов. Предмет, глава и тема берутся из самого вопроса.
func (s *Service) TrackAttempt(ctx context.Context, userUID, questionID string, isCorrect bool, timeTaken int) (*TrackResult, error) {
	const op = "practice.TrackAttempt"
	if questionID == "" {
		return nil, fmt.Errorf("%s: %w", op, models.NewError(models.KindInvalidInput, "questionId is required"))
	}
	u, err := s.users.Load(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	now := s.now()
	tier, limit, err := quota.Check(u, models.CounterQuestions, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	q, err := s.repo.GetQuestion(ctx, questionID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if timeTaken < 0 {
		timeTaken = 0
	}
	ok, err := s.repo.RecordAttempt(ctx, userUID, limit, models.AttemptedQuestion{
		QuestionID:  q.ID,
		Subject:     q.Subject,
		Chapter:     q.Chapter,
		Topic:       q.Topic,
		IsCorrect:   isCorrect,
		AttemptedAt: now,
		TimeTaken:   timeTaken,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, quota.ExceededError(tier, models.CounterQuestions, limit))
	}

	s.log.Debug("question attempt tracked", sl.User(userUID), slog.String("question_id", q.ID))
	return &TrackResult{
		QuestionsAttempted: u.DailyUsage.QuestionsAttempted + 1,
		Limit:              limit,
	}, nil
}

// GenerateChapterTest собирает тест из 8 MCQ и 2 числовых вопросов.
// Попытки не записываются, расходуется лимит тестов по главам.
func (s *Service) GenerateChapterTest(ctx context.Context, userUID string, f models.PracticeFilter) ([]models.Question, error) {
	const op = "practice.GenerateChapterTest"
	if f.Exam == "" || f.Subject == "" {
		return nil, fmt.Errorf("%s: %w", op, models.NewError(models.KindInvalidInput, "exam and subject are required"))
	}
	u, err := s.users.Load(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	tier, limit, err := quota.Check(u, models.CounterChapterTests, s.now())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	f = f.Normalize()
	f.QuestionTypes = nil
	mcq, err := s.repo.RandomQuestions(ctx, userUID, f, models.QuestionMCQ, ChapterTestMCQ)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	numerical, err := s.repo.RandomQuestions(ctx, userUID, f, models.QuestionNumerical, ChapterTestNumerical)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	questions := append(mcq, numerical...)
	if len(questions) < ChapterTestMCQ+ChapterTestNumerical {
		return nil, fmt.Errorf("%s: %w", op, models.NewError(models.KindInsufficientQuestions,
			"not enough questions for the selected filters: found %d of %d", len(questions), ChapterTestMCQ+ChapterTestNumerical))
	}
	s.shuffle(len(questions), func(i, j int) {
		questions[i], questions[j] = questions[j], questions[i]
	})

	ok, err := s.repo.IncrementUsage(ctx, userUID, models.CounterChapterTests, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, quota.ExceededError(tier, models.CounterChapterTests, limit))
	}
	metrics.ChapterTestsGenerated.Inc()
	s.log.Info("chapter test generated", sl.User(userUID), slog.String("subject", f.Subject))

	return models.PublicQuestions(questions), nil
}

// Filters возвращает доступные предметы, главы и темы. Главы заполняются,
// если задан subject, темы, если задана еще и chapter.
func (s *Service) Filters(ctx context.Context, exam, subject, chapter string) (*models.QuestionFilters, error) {
	const op = "practice.Filters"
	if exam == "" {
		return nil, fmt.Errorf("%s: %w", op, models.NewError(models.KindInvalidInput, "exam parameter is required"))
	}
	if chapter != "" && subject == "" {
		return nil, fmt.Errorf("%s: %w", op, models.NewError(models.KindInvalidInput, "subject is required with chapter"))
	}
	filters, err := s.repo.QuestionFilters(ctx, exam, subject, chapter)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return filters, nil
}
