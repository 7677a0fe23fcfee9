package mocktest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/magabrotheeeer/examprep/internal/cache"
	"github.com/magabrotheeeer/examprep/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/examprep/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) ListMockTests(ctx context.Context, userUID, exam string) ([]models.MockTestSummary, error) {
	args := m.Called(ctx, userUID, exam)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.MockTestSummary), args.Error(1)
}

func (m *RepoMock) GetMockTest(ctx context.Context, mockTestID string) (*models.MockTest, error) {
	args := m.Called(ctx, mockTestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MockTest), args.Error(1)
}

func (m *RepoMock) HasAttempted(ctx context.Context, userUID, mockTestID string) (bool, error) {
	args := m.Called(ctx, userUID, mockTestID)
	return args.Bool(0), args.Error(1)
}

func (m *RepoMock) GetAttemptedRecord(ctx context.Context, userUID, mockTestID string) (*models.MockTestRecord, error) {
	args := m.Called(ctx, userUID, mockTestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MockTestRecord), args.Error(1)
}

func (m *RepoMock) StartMockTest(ctx context.Context, userUID string, lock models.OngoingMockTest, limit int) (bool, error) {
	args := m.Called(ctx, userUID, lock, limit)
	return args.Bool(0), args.Error(1)
}

func (m *RepoMock) SubmitMockTest(ctx context.Context, rec *models.MockTestRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

type LoaderMock struct{ mock.Mock }

func (m *LoaderMock) Load(ctx context.Context, userUID string) (*models.User, error) {
	args := m.Called(ctx, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

type NotifierMock struct{ mock.Mock }

func (m *NotifierMock) Publish(ctx context.Context, routingKey string, event any) error {
	args := m.Called(ctx, routingKey, event)
	return args.Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

var fixedNow = time.Date(2024, 7, 15, 5, 0, 0, 0, time.UTC)

type fixture struct {
	repo     *RepoMock
	users    *LoaderMock
	notifier *NotifierMock
	redis    *miniredis.Miniredis
	cache    *cache.Cache
	svc      *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	c := &cache.Cache{Db: redis.NewClient(&redis.Options{Addr: mr.Addr()})}
	t.Cleanup(func() { _ = c.Close() })

	f := &fixture{
		repo:     new(RepoMock),
		users:    new(LoaderMock),
		notifier: new(NotifierMock),
		redis:    mr,
		cache:    c,
	}
	f.svc = New(f.repo, f.users, c, f.notifier, time.Hour, newNoopLogger())
	f.svc.now = func() time.Time { return fixedNow }
	return f
}

func goldUser() *models.User {
	exp := fixedNow.AddDate(0, 6, 0)
	return &models.User{
		UID:                "uid-1",
		Email:              "student@example.com",
		Tier:               models.TierGold,
		SubscriptionExpiry: &exp,
		DailyUsage:         models.DailyUsage{Date: fixedNow},
	}
}

// sampleTest тест из 10 вопросов: 8 MCQ с ответом "A" и 2 числовых с ответом "4.5".
func sampleTest() *models.MockTest {
	t := &models.MockTest{ID: "mt-1", Name: "JEE Mock 1", Exam: "JEE", Duration: 180, IsActive: true, ExplanationPDFURL: "https://cdn/mt-1.pdf"}
	for i := 1; i <= 10; i++ {
		q := &models.Question{ID: fmt.Sprintf("q%d", i), Type: models.QuestionMCQ, CorrectAnswer: "A", Text: fmt.Sprintf("Q%d", i)}
		if i > 8 {
			q.Type = models.QuestionNumerical
			q.CorrectAnswer = "4.5"
		}
		t.Questions = append(t.Questions, models.MockTestQuestion{SerialNumber: i, QuestionID: q.ID, Subject: "Physics", Question: q})
	}
	return t
}

func TestStart_Success(t *testing.T) {
	f := newFixture(t)
	test := sampleTest()
	lock := models.OngoingMockTest{MockTestID: "mt-1", StartedAt: fixedNow, ExpiresAt: fixedNow.Add(180 * time.Minute)}

	f.users.On("Load", mock.Anything, "uid-1").Return(goldUser(), nil)
	f.repo.On("GetMockTest", mock.Anything, "mt-1").Return(test, nil)
	f.repo.On("HasAttempted", mock.Anything, "uid-1", "mt-1").Return(false, nil)
	f.repo.On("StartMockTest", mock.Anything, "uid-1", lock, 8).Return(true, nil)

	session, err := f.svc.Start(context.Background(), "uid-1", "mt-1")

	require.NoError(t, err)
	assert.Equal(t, lock.ExpiresAt, session.ExpiresAt)
	require.Len(t, session.MockTest.Questions, 10)
	for _, q := range session.MockTest.Questions {
		assert.Empty(t, q.Question.CorrectAnswer)
	}
	assert.Equal(t, "A", test.Questions[0].Question.CorrectAnswer, "шаблон не должен меняться")

	var key AnswerKey
	found, err := f.cache.Get(context.Background(), "mocktest:mt-1:answerkey", &key)
	require.NoError(t, err)
	require.True(t, found)
	assert.Len(t, key.Entries, 10)
	assert.Equal(t, "4.5", key.Entries[9].CorrectAnswer)
	f.repo.AssertExpectations(t)
}

func TestStart_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		user    func() *models.User
		setup   func(r *RepoMock)
		wantErr error
	}{
		{
			name: "действующая блокировка другого теста",
			user: func() *models.User {
				u := goldUser()
				u.OngoingMockTest = &models.OngoingMockTest{MockTestID: "mt-9", StartedAt: fixedNow.Add(-time.Hour), ExpiresAt: fixedNow.Add(time.Hour)}
				return u
			},
			wantErr: models.ErrAlreadyOngoing,
		},
		{
			name: "лимит free",
			user: func() *models.User {
				return &models.User{UID: "uid-1", Tier: models.TierFree, DailyUsage: models.DailyUsage{Date: fixedNow}}
			},
			wantErr: models.ErrQuotaExceeded,
		},
		{
			name: "лимит gold исчерпан",
			user: func() *models.User {
				u := goldUser()
				u.DailyUsage.MockTestsAttempted = 8
				return u
			},
			wantErr: models.ErrQuotaExceeded,
		},
		{
			name: "тест не найден",
			user: goldUser,
			setup: func(r *RepoMock) {
				r.On("GetMockTest", mock.Anything, "mt-1").Return(nil, models.NewError(models.KindNotFound, "mock test not found"))
			},
			wantErr: models.ErrNotFound,
		},
		{
			name: "тест деактивирован",
			user: goldUser,
			setup: func(r *RepoMock) {
				test := sampleTest()
				test.IsActive = false
				r.On("GetMockTest", mock.Anything, "mt-1").Return(test, nil)
			},
			wantErr: models.ErrNotFound,
		},
		{
			name: "уже сдан",
			user: goldUser,
			setup: func(r *RepoMock) {
				r.On("GetMockTest", mock.Anything, "mt-1").Return(sampleTest(), nil)
				r.On("HasAttempted", mock.Anything, "uid-1", "mt-1").Return(true, nil)
			},
			wantErr: models.ErrAlreadyAttempted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.users.On("Load", mock.Anything, "uid-1").Return(tt.user(), nil)
			if tt.setup != nil {
				tt.setup(f.repo)
			}

			_, err := f.svc.Start(context.Background(), "uid-1", "mt-1")

			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			f.repo.AssertNotCalled(t, "StartMockTest", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestStart_ExpiredLockAllowsNewAttempt(t *testing.T) {
	f := newFixture(t)
	u := goldUser()
	u.OngoingMockTest = &models.OngoingMockTest{MockTestID: "mt-0", StartedAt: fixedNow.Add(-4 * time.Hour), ExpiresAt: fixedNow.Add(-time.Hour)}

	f.users.On("Load", mock.Anything, "uid-1").Return(u, nil)
	f.repo.On("GetMockTest", mock.Anything, "mt-1").Return(sampleTest(), nil)
	f.repo.On("HasAttempted", mock.Anything, "uid-1", "mt-1").Return(false, nil)
	f.repo.On("StartMockTest", mock.Anything, "uid-1", mock.Anything, 8).Return(true, nil)

	_, err := f.svc.Start(context.Background(), "uid-1", "mt-1")

	require.NoError(t, err)
}

func TestStart_LostRaceToConcurrentStart(t *testing.T) {
	f := newFixture(t)
	locked := goldUser()
	locked.OngoingMockTest = &models.OngoingMockTest{MockTestID: "mt-2", StartedAt: fixedNow, ExpiresAt: fixedNow.Add(time.Hour)}

	f.users.On("Load", mock.Anything, "uid-1").Return(goldUser(), nil).Once()
	f.users.On("Load", mock.Anything, "uid-1").Return(locked, nil).Once()
	f.repo.On("GetMockTest", mock.Anything, "mt-1").Return(sampleTest(), nil)
	f.repo.On("HasAttempted", mock.Anything, "uid-1", "mt-1").Return(false, nil)
	f.repo.On("StartMockTest", mock.Anything, "uid-1", mock.Anything, 8).Return(false, nil)

	_, err := f.svc.Start(context.Background(), "uid-1", "mt-1")

	assert.ErrorIs(t, err, models.ErrAlreadyOngoing)
	assert.False(t, f.redis.Exists("mocktest:mt-1:answerkey"))
}

func TestEvaluate(t *testing.T) {
	key := AnswerKeyOf(sampleTest()).Entries

	tests := []struct {
		name           string
		answers        []models.SubmittedAnswer
		wantScore      int
		wantCorrect    int
		wantWrong      int
		wantUnanswered int
	}{
		{
			name:           "без ответов",
			answers:        nil,
			wantScore:      0,
			wantUnanswered: 10,
		},
		{
			name: "8 верных и 2 неверных",
			answers: func() []models.SubmittedAnswer {
				var out []models.SubmittedAnswer
				for i := 1; i <= 8; i++ {
					out = append(out, models.SubmittedAnswer{SerialNumber: i, Answer: "a"})
				}
				return append(out,
					models.SubmittedAnswer{SerialNumber: 9, Answer: "4.4"},
					models.SubmittedAnswer{SerialNumber: 10, Answer: "x"},
				)
			}(),
			wantScore:   30,
			wantCorrect: 8,
			wantWrong:   2,
		},
		{
			name: "числовой с нулями, пустой ответ и лишний номер",
			answers: []models.SubmittedAnswer{
				{SerialNumber: 9, Answer: "4.50"},
				{SerialNumber: 1, Answer: ""},
				{SerialNumber: 2, Answer: "B"},
				{SerialNumber: 42, Answer: "A"},
			},
			wantScore:      3,
			wantCorrect:    1,
			wantWrong:      1,
			wantUnanswered: 8,
		},
		{
			name: "дубликат номера, берется первый",
			answers: []models.SubmittedAnswer{
				{SerialNumber: 1, Answer: "A"},
				{SerialNumber: 1, Answer: "C"},
			},
			wantScore:      4,
			wantCorrect:    1,
			wantUnanswered: 9,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, correct, wrong, unanswered, score := Evaluate(key, tt.answers)

			assert.Len(t, results, 10)
			assert.Equal(t, tt.wantScore, score)
			assert.Equal(t, tt.wantCorrect, correct)
			assert.Equal(t, tt.wantWrong, wrong)
			assert.Equal(t, tt.wantUnanswered, unanswered)
			assert.Equal(t, 10, correct+wrong+unanswered)
		})
	}
}

func TestSubmit_FromCachedKey(t *testing.T) {
	f := newFixture(t)
	u := goldUser()
	started := fixedNow.Add(-time.Hour)
	u.OngoingMockTest = &models.OngoingMockTest{MockTestID: "mt-1", StartedAt: started, ExpiresAt: fixedNow.Add(2 * time.Hour)}
	require.NoError(t, f.cache.Set(context.Background(), "mocktest:mt-1:answerkey", AnswerKeyOf(sampleTest()), time.Hour))

	f.users.On("Load", mock.Anything, "uid-1").Return(u, nil)
	f.repo.On("SubmitMockTest", mock.Anything, mock.MatchedBy(func(rec *models.MockTestRecord) bool {
		return rec.UserUID == "uid-1" && rec.MockTestID == "mt-1" && rec.Status == models.MockTestAttempted &&
			len(rec.Answers) == 10 && rec.Score == 0 && rec.Unanswered == 10
	})).Return(nil).Once()
	f.notifier.On("Publish", mock.Anything, rabbitmq.RoutingMockTest, mock.MatchedBy(func(e models.MockTestSubmitted) bool {
		return e.Email == "student@example.com" && e.MockTestName == "JEE Mock 1" && e.Score == 0
	})).Return(nil)

	rec, err := f.svc.Submit(context.Background(), "uid-1", "mt-1", nil, 3600)

	require.NoError(t, err)
	assert.False(t, rec.SubmittedLate)
	require.NotNil(t, rec.StartedAt)
	assert.Equal(t, started, *rec.StartedAt)
	assert.Equal(t, 3600, rec.TimeTaken)
	f.repo.AssertNotCalled(t, "GetMockTest", mock.Anything, mock.Anything)
	f.repo.AssertExpectations(t)
	f.notifier.AssertExpectations(t)
}

func TestSubmit_LateAndCacheMiss(t *testing.T) {
	f := newFixture(t)
	u := goldUser()
	u.OngoingMockTest = &models.OngoingMockTest{MockTestID: "mt-1", StartedAt: fixedNow.Add(-4 * time.Hour), ExpiresAt: fixedNow.Add(-time.Hour)}

	f.users.On("Load", mock.Anything, "uid-1").Return(u, nil)
	f.repo.On("GetMockTest", mock.Anything, "mt-1").Return(sampleTest(), nil).Once()
	f.repo.On("SubmitMockTest", mock.Anything, mock.Anything).Return(nil)
	f.notifier.On("Publish", mock.Anything, rabbitmq.RoutingMockTest, mock.Anything).Return(errors.New("broker down"))

	answers := []models.SubmittedAnswer{{SerialNumber: 1, Answer: "A"}, {SerialNumber: 2, Answer: "D"}}
	rec, err := f.svc.Submit(context.Background(), "uid-1", "mt-1", answers, 100)

	require.NoError(t, err)
	assert.True(t, rec.SubmittedLate)
	assert.Equal(t, 3, rec.Score)
	assert.True(t, f.redis.Exists("mocktest:mt-1:answerkey"))
}

func TestSubmit_CorruptCachedKey(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.redis.Set("mocktest:mt-1:answerkey", "{not json"))
	u := goldUser()
	u.OngoingMockTest = &models.OngoingMockTest{MockTestID: "mt-1", StartedAt: fixedNow.Add(-time.Hour), ExpiresAt: fixedNow.Add(time.Hour)}

	f.users.On("Load", mock.Anything, "uid-1").Return(u, nil)
	f.repo.On("GetMockTest", mock.Anything, "mt-1").Return(nil, errors.New("db down")).Once()

	_, err := f.svc.Submit(context.Background(), "uid-1", "mt-1", nil, 60)

	require.Error(t, err)
	assert.False(t, f.redis.Exists("mocktest:mt-1:answerkey"))
	f.repo.AssertNotCalled(t, "SubmitMockTest", mock.Anything, mock.Anything)
}

func TestSubmit_SecondSubmitRejected(t *testing.T) {
	f := newFixture(t)

	f.users.On("Load", mock.Anything, "uid-1").Return(goldUser(), nil)
	f.repo.On("HasAttempted", mock.Anything, "uid-1", "mt-1").Return(true, nil)

	_, err := f.svc.Submit(context.Background(), "uid-1", "mt-1", nil, 10)

	assert.ErrorIs(t, err, models.ErrAlreadyAttempted)
	f.repo.AssertNotCalled(t, "SubmitMockTest", mock.Anything, mock.Anything)
	f.notifier.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmit_RequiresStartedTest(t *testing.T) {
	tests := []struct {
		name string
		lock *models.OngoingMockTest
	}{
		{name: "тест не начинали", lock: nil},
		{name: "начат другой тест", lock: &models.OngoingMockTest{MockTestID: "mt-2", StartedAt: fixedNow.Add(-time.Hour), ExpiresAt: fixedNow.Add(time.Hour)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			require.NoError(t, f.cache.Set(context.Background(), "mocktest:mt-1:answerkey", AnswerKeyOf(sampleTest()), time.Hour))
			u := goldUser()
			u.OngoingMockTest = tt.lock

			f.users.On("Load", mock.Anything, "uid-1").Return(u, nil)
			f.repo.On("HasAttempted", mock.Anything, "uid-1", "mt-1").Return(false, nil)

			answers := []models.SubmittedAnswer{{SerialNumber: 1, Answer: "A"}}
			rec, err := f.svc.Submit(context.Background(), "uid-1", "mt-1", answers, 60)

			require.Error(t, err)
			assert.Nil(t, rec)
			assert.ErrorIs(t, err, models.ErrNotStarted)
			assert.Equal(t, models.KindNotAttempted, models.KindOf(err))
			f.repo.AssertNotCalled(t, "SubmitMockTest", mock.Anything, mock.Anything)
			f.repo.AssertNotCalled(t, "GetMockTest", mock.Anything, mock.Anything)
			f.notifier.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestSubmit_LockLostBeforeSave(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.cache.Set(context.Background(), "mocktest:mt-1:answerkey", AnswerKeyOf(sampleTest()), time.Hour))
	u := goldUser()
	u.OngoingMockTest = &models.OngoingMockTest{MockTestID: "mt-1", StartedAt: fixedNow.Add(-time.Hour), ExpiresAt: fixedNow.Add(time.Hour)}

	f.users.On("Load", mock.Anything, "uid-1").Return(u, nil)
	f.repo.On("SubmitMockTest", mock.Anything, mock.Anything).Return(models.ErrNotStarted)

	_, err := f.svc.Submit(context.Background(), "uid-1", "mt-1", nil, 10)

	assert.ErrorIs(t, err, models.ErrNotStarted)
	f.notifier.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmit_NegativeTime(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Submit(context.Background(), "uid-1", "mt-1", nil, -1)

	assert.ErrorIs(t, err, models.ErrInvalidInput)
	f.users.AssertNotCalled(t, "Load", mock.Anything, mock.Anything)
}

func TestReview(t *testing.T) {
	f := newFixture(t)
	key := AnswerKeyOf(sampleTest()).Entries
	results, correct, wrong, unanswered, score := Evaluate(key, []models.SubmittedAnswer{
		{SerialNumber: 1, Answer: "A"},
		{SerialNumber: 2, Answer: "C"},
	})
	rec := &models.MockTestRecord{
		MockTestID: "mt-1", Status: models.MockTestAttempted, Answers: results,
		Score: score, Correct: correct, Wrong: wrong, Unanswered: unanswered, TimeTaken: 500,
	}

	f.repo.On("GetAttemptedRecord", mock.Anything, "uid-1", "mt-1").Return(rec, nil)
	f.repo.On("GetMockTest", mock.Anything, "mt-1").Return(sampleTest(), nil)

	review, err := f.svc.Review(context.Background(), "uid-1", "mt-1")

	require.NoError(t, err)
	assert.Equal(t, 3, review.Score)
	assert.Equal(t, "https://cdn/mt-1.pdf", review.ExplanationPDFURL)
	require.Len(t, review.Items, 10)
	assert.True(t, review.Items[0].IsCorrect)
	assert.Equal(t, "A", review.Items[1].CorrectAnswer)
	assert.Equal(t, "C", review.Items[1].SelectedAnswer)
	assert.Equal(t, models.AnswerWrong, review.Items[1].Status)
	assert.Equal(t, models.AnswerUnanswered, review.Items[5].Status)
	assert.Equal(t, "Q6", review.Items[5].Text)
}

func TestReview_NotAttempted(t *testing.T) {
	f := newFixture(t)
	f.repo.On("GetAttemptedRecord", mock.Anything, "uid-1", "mt-1").Return(nil, models.ErrNotFound)

	_, err := f.svc.Review(context.Background(), "uid-1", "mt-1")

	assert.ErrorIs(t, err, models.ErrNotAttempted)
}

func TestList(t *testing.T) {
	f := newFixture(t)
	want := []models.MockTestSummary{{ID: "mt-1", Name: "JEE Mock 1", Status: models.MockTestAttempted}}
	f.repo.On("ListMockTests", mock.Anything, "uid-1", "JEE").Return(want, nil)

	got, err := f.svc.List(context.Background(), "uid-1", "JEE")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = f.svc.List(context.Background(), "uid-1", "")
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}
