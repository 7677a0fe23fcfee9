// Package mocktest управляет попытками пробных тестов: старт с блокировкой
// одной активной попытки, сдача с оценкой и разбор результатов.
package mocktest

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/magabrotheeeer/examprep/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/examprep/internal/lib/sl"
	"github.com/magabrotheeeer/examprep/internal/metrics"
	"github.com/magabrotheeeer/examprep/internal/models"
	"github.com/magabrotheeeer/examprep/internal/services/quota"
)

// Repository хранилище шаблонов и записей пробных тестов.
type Repository interface {
	ListMockTests(ctx context.Context, userUID, exam string) ([]models.MockTestSummary, error)
	// GetMockTest возвращает шаблон с вопросами, в том числе неактивный.
	GetMockTest(ctx context.Context, mockTestID string) (*models.MockTest, error)
	HasAttempted(ctx context.Context, userUID, mockTestID string) (bool, error)
	// GetAttemptedRecord возвращает запись о сданном тесте или ErrNotFound.
	GetAttemptedRecord(ctx context.Context, userUID, mockTestID string) (*models.MockTestRecord, error)
	// StartMockTest ставит блокировку и увеличивает счетчик тестов, только если
	// у пользователя нет действующей блокировки на lock.StartedAt и счетчик меньше limit.
	StartMockTest(ctx context.Context, userUID string, lock models.OngoingMockTest, limit int) (bool, error)
	// SubmitMockTest в одной транзакции снимает блокировку и добавляет запись.
	// Без блокировки на этот тест дает ErrNotStarted, повторная запись ErrAlreadyAttempted.
	SubmitMockTest(ctx context.Context, rec *models.MockTestRecord) error
}

// UserLoader возвращает пользователя с актуальными дневными счетчиками.
type UserLoader interface {
	Load(ctx context.Context, userUID string) (*models.User, error)
}

// Cache хранилище ключей ответов.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

// Notifier публикует события для отправителя уведомлений.
type Notifier interface {
	Publish(ctx context.Context, routingKey string, event any) error
}

// AnswerKey ключ ответов теста, хранится только на сервере.
type AnswerKey struct {
	MockTestID string                  `json:"mockTestId"`
	Name       string                  `json:"name"`
	Entries    []models.AnswerKeyEntry `json:"entries"`
}

// AnswerKeyOf строит ключ ответов по шаблону.
func AnswerKeyOf(t *models.MockTest) *AnswerKey {
	key := &AnswerKey{MockTestID: t.ID, Name: t.Name, Entries: make([]models.AnswerKeyEntry, 0, len(t.Questions))}
	for _, q := range t.Questions {
		e := models.AnswerKeyEntry{SerialNumber: q.SerialNumber, QuestionID: q.QuestionID, Subject: q.Subject}
		if q.Question != nil {
			e.Type = q.Question.Type
			e.CorrectAnswer = q.Question.CorrectAnswer
		}
		key.Entries = append(key.Entries, e)
	}
	return key
}

func answerKeyCacheKey(mockTestID string) string {
	return "mocktest:" + mockTestID + ":answerkey"
}

// Service сервис пробных тестов.
type Service struct {
	repo         Repository
	users        UserLoader
	cache        Cache
	notifier     Notifier
	answerKeyTTL time.Duration
	log          *slog.Logger
	now          func() time.Time
}

// New создает Service.
func New(repo Repository, users UserLoader, cache Cache, notifier Notifier, answerKeyTTL time.Duration, log *slog.Logger) *Service {
	return &Service{
		repo:         repo,
		users:        users,
		cache:        cache,
		notifier:     notifier,
		answerKeyTTL: answerKeyTTL,
		log:          log,
		now:          time.Now,
	}
}

// Session начатая попытка: вопросы без ответов и срок сдачи.
type Session struct {
	MockTest  models.MockTest `json:"mockTest"`
	StartedAt time.Time       `json:"startedAt"`
	ExpiresAt time.Time       `json:"expiresAt"`
}

// List возвращает активные тесты экзамена со статусом для пользователя.
func (s *Service) List(ctx context.Context, userUID, exam string) ([]models.MockTestSummary, error) {
	const op = "mocktest.List"
	if exam == "" {
		return nil, fmt.Errorf("%s: %w", op, models.NewError(models.KindInvalidInput, "exam parameter is required"))
	}
	tests, err := s.repo.ListMockTests(ctx, userUID, exam)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return tests, nil
}

// Start начинает попытку. Проверки идут в порядке: действующая блокировка,
// лимит, существование теста, повторная попытка.
func (s *Service) Start(ctx context.Context, userUID, mockTestID string) (*Session, error) {
	const op = "mocktest.Start"
	log := s.log.With(slog.String("op", op), sl.User(userUID), slog.String("mock_test_id", mockTestID))

	u, err := s.users.Load(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	now := s.now()
	if hasActiveLock(u, now) {
		return nil, fmt.Errorf("%s: %w", op, ongoingError(u))
	}
	tier, limit, err := quota.Check(u, models.CounterMockTests, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	test, err := s.repo.GetMockTest(ctx, mockTestID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !test.IsActive {
		return nil, fmt.Errorf("%s: %w", op, models.NewError(models.KindNotFound, "mock test not found"))
	}
	attempted, err := s.repo.HasAttempted(ctx, userUID, mockTestID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if attempted {
		return nil, fmt.Errorf("%s: %w", op, models.NewError(models.KindAlreadyAttempted,
			"mock test already attempted. You can only review answers"))
	}

	lock := models.OngoingMockTest{
		MockTestID: mockTestID,
		StartedAt:  now,
		ExpiresAt:  now.Add(time.Duration(test.Duration) * time.Minute),
	}
	ok, err := s.repo.StartMockTest(ctx, userUID, lock, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		// другой запрос успел поставить блокировку или израсходовать лимит
		u, err = s.users.Load(ctx, userUID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if hasActiveLock(u, now) {
			return nil, fmt.Errorf("%s: %w", op, ongoingError(u))
		}
		return nil, fmt.Errorf("%s: %w", op, quota.ExceededError(tier, models.CounterMockTests, limit))
	}

	if err := s.cache.Set(ctx, answerKeyCacheKey(mockTestID), AnswerKeyOf(test), s.answerKeyTTL); err != nil {
		log.Warn("failed to cache answer key", sl.Err(err))
	}
	metrics.MockTestsStarted.Inc()
	log.Info("mock test started")

	return &Session{MockTest: test.Public(), StartedAt: lock.StartedAt, ExpiresAt: lock.ExpiresAt}, nil
}

func hasActiveLock(u *models.User, now time.Time) bool {
	return u.OngoingMockTest != nil && u.OngoingMockTest.ExpiresAt.After(now)
}

func ongoingError(u *models.User) error {
	return models.NewError(models.KindAlreadyOngoing,
		"you already have an ongoing mock test %s. Please complete it first", u.OngoingMockTest.MockTestID)
}

// answerKey читает ключ ответов из кэша, при промахе строит его по шаблону.
// Нечитаемая запись удаляется до обращения к базе.
func (s *Service) answerKey(ctx context.Context, mockTestID string) (*AnswerKey, error) {
	var key AnswerKey
	found, err := s.cache.Get(ctx, answerKeyCacheKey(mockTestID), &key)
	if err != nil {
		s.log.Warn("answer key cache read failed", slog.String("mock_test_id", mockTestID), sl.Err(err))
		if err := s.cache.Invalidate(ctx, answerKeyCacheKey(mockTestID)); err != nil {
			s.log.Warn("failed to drop answer key", slog.String("mock_test_id", mockTestID), sl.Err(err))
		}
	}
	if found {
		return &key, nil
	}
	test, err := s.repo.GetMockTest(ctx, mockTestID)
	if err != nil {
		return nil, err
	}
	k := AnswerKeyOf(test)
	if err := s.cache.Set(ctx, answerKeyCacheKey(mockTestID), k, s.answerKeyTTL); err != nil {
		s.log.Warn("failed to cache answer key", slog.String("mock_test_id", mockTestID), sl.Err(err))
	}
	return k, nil
}

// Evaluate оценивает ответы по ключу. Позиция без ответа или с пустым
// ответом не отвечена. Счет: +4 за верный ответ, -1 за неверный.
func Evaluate(key []models.AnswerKeyEntry, answers []models.SubmittedAnswer) (results []models.QuestionResult, correct, wrong, unanswered, score int) {
	given := make(map[int]string, len(answers))
	for _, a := range answers {
		if _, dup := given[a.SerialNumber]; !dup {
			given[a.SerialNumber] = a.Answer
		}
	}

	results = make([]models.QuestionResult, 0, len(key))
	for _, e := range key {
		r := models.QuestionResult{
			SerialNumber:   e.SerialNumber,
			QuestionID:     e.QuestionID,
			Subject:        e.Subject,
			SelectedAnswer: given[e.SerialNumber],
			CorrectAnswer:  e.CorrectAnswer,
		}
		switch {
		case r.SelectedAnswer == "":
			r.Status = models.AnswerUnanswered
			unanswered++
		case models.CheckAnswer(e.Type, e.CorrectAnswer, r.SelectedAnswer):
			r.IsCorrect = true
			r.Status = models.AnswerCorrect
			correct++
		default:
			r.Status = models.AnswerWrong
			wrong++
		}
		results = append(results, r)
	}
	return results, correct, wrong, unanswered, correct*4 - wrong
}

// Submit оценивает ответы, сохраняет запись и снимает блокировку.
// Сдать можно только тест, начатый через Start. Сдача после срока
// принимается с отметкой SubmittedLate.
func (s *Service) Submit(ctx context.Context, userUID, mockTestID string, answers []models.SubmittedAnswer, timeTaken int) (*models.MockTestRecord, error) {
	const op = "mocktest.Submit"
	if timeTaken < 0 {
		return nil, fmt.Errorf("%s: %w", op, models.NewError(models.KindInvalidInput, "timeTaken must not be negative"))
	}
	u, err := s.users.Load(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	lock := u.OngoingMockTest
	if lock == nil || lock.MockTestID != mockTestID {
		attempted, err := s.repo.HasAttempted(ctx, userUID, mockTestID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if attempted {
			return nil, fmt.Errorf("%s: %w", op, models.ErrAlreadyAttempted)
		}
		return nil, fmt.Errorf("%s: %w", op, models.ErrNotStarted)
	}
	key, err := s.answerKey(ctx, mockTestID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := s.now()
	started := lock.StartedAt
	results, correct, wrong, unanswered, score := Evaluate(key.Entries, answers)
	rec := &models.MockTestRecord{
		ID:            uuid.NewString(),
		UserUID:       userUID,
		MockTestID:    mockTestID,
		Status:        models.MockTestAttempted,
		Answers:       results,
		Score:         score,
		Correct:       correct,
		Wrong:         wrong,
		Unanswered:    unanswered,
		TimeTaken:     timeTaken,
		StartedAt:     &started,
		SubmittedAt:   now,
		SubmittedLate: now.After(lock.ExpiresAt),
	}

	if err := s.repo.SubmitMockTest(ctx, rec); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	metrics.MockTestsSubmitted.WithLabelValues(strconv.FormatBool(rec.SubmittedLate)).Inc()
	s.log.Info("mock test submitted", sl.User(userUID), slog.String("mock_test_id", mockTestID),
		slog.Int("score", score), slog.Bool("late", rec.SubmittedLate))

	event := models.MockTestSubmitted{
		UserUID:       userUID,
		Email:         u.Email,
		MockTestID:    mockTestID,
		MockTestName:  key.Name,
		Score:         score,
		Correct:       correct,
		Wrong:         wrong,
		Unanswered:    unanswered,
		SubmittedLate: rec.SubmittedLate,
	}
	if err := s.notifier.Publish(ctx, rabbitmq.RoutingMockTest, event); err != nil {
		s.log.Error("failed to publish mock test notification", sl.User(userUID), sl.Err(err))
	}
	return rec, nil
}

// Review объединяет шаблон теста и запись пользователя.
func (s *Service) Review(ctx context.Context, userUID, mockTestID string) (*models.MockTestReview, error) {
	const op = "mocktest.Review"
	rec, err := s.repo.GetAttemptedRecord(ctx, userUID, mockTestID)
	if models.KindOf(err) == models.KindNotFound {
		return nil, fmt.Errorf("%s: %w", op, models.ErrNotAttempted)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	test, err := s.repo.GetMockTest(ctx, mockTestID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	bySerial := make(map[int]models.QuestionResult, len(rec.Answers))
	for _, a := range rec.Answers {
		bySerial[a.SerialNumber] = a
	}

	review := &models.MockTestReview{
		MockTestID:        test.ID,
		Name:              test.Name,
		ExplanationPDFURL: test.ExplanationPDFURL,
		Score:             rec.Score,
		Correct:           rec.Correct,
		Wrong:             rec.Wrong,
		Unanswered:        rec.Unanswered,
		TimeTaken:         rec.TimeTaken,
		SubmittedAt:       rec.SubmittedAt,
		SubmittedLate:     rec.SubmittedLate,
		Items:             make([]models.ReviewItem, 0, len(test.Questions)),
	}
	for _, q := range test.Questions {
		item := models.ReviewItem{
			SerialNumber: q.SerialNumber,
			QuestionID:   q.QuestionID,
			Subject:      q.Subject,
			Status:       models.AnswerUnanswered,
		}
		if q.Question != nil {
			item.Type = q.Question.Type
			item.Text = q.Question.Text
			item.ImageURL = q.Question.ImageURL
			item.Options = q.Question.Options
			item.CorrectAnswer = q.Question.CorrectAnswer
		}
		if a, ok := bySerial[q.SerialNumber]; ok {
			item.SelectedAnswer = a.SelectedAnswer
			item.IsCorrect = a.IsCorrect
			item.Status = a.Status
		}
		review.Items = append(review.Items, item)
	}
	return review, nil
}
