package subscription

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/magabrotheeeer/examprep/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/examprep/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) RedeemGiftCode(ctx context.Context, userUID, code string, now time.Time,
	expiryFor func(duration string) (time.Time, error)) (*models.GiftCodeRedemption, error) {
	args := m.Called(ctx, userUID, code, now, expiryFor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GiftCodeRedemption), args.Error(1)
}

type NotifierMock struct{ mock.Mock }

func (m *NotifierMock) Publish(ctx context.Context, routingKey string, event any) error {
	args := m.Called(ctx, routingKey, event)
	return args.Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

var fixedNow = time.Date(2024, 5, 1, 6, 0, 0, 0, time.UTC)

func newTestService(repo Repository, notifier Notifier) *Service {
	s := New(repo, notifier, newNoopLogger())
	s.now = func() time.Time { return fixedNow }
	return s
}

func TestApplyGiftCode_Success(t *testing.T) {
	repo := new(RepoMock)
	notifier := new(NotifierMock)
	s := newTestService(repo, notifier)

	var gotExpiry time.Time
	repo.On("RedeemGiftCode", mock.Anything, "uid-1", "ABCD1234EFGH", fixedNow, mock.Anything).
		Run(func(args mock.Arguments) {
			expiryFor := args.Get(4).(func(string) (time.Time, error))
			var err error
			gotExpiry, err = expiryFor("6M")
			require.NoError(t, err)
		}).
		Return(&models.GiftCodeRedemption{
			Code:      "ABCD1234EFGH",
			Duration:  "6M",
			Email:     "a@example.com",
			ExpiresAt: fixedNow.AddDate(0, 0, 180),
		}, nil)
	notifier.On("Publish", mock.Anything, rabbitmq.RoutingGiftCode, mock.MatchedBy(func(e models.GiftCodeRedeemed) bool {
		return e.UserUID == "uid-1" && e.Email == "a@example.com" && e.Tier == models.TierGold
	})).Return(nil)

	res, err := s.ApplyGiftCode(context.Background(), "uid-1", " abcd1234efgh ")

	require.NoError(t, err)
	assert.Equal(t, models.TierGold, res.Type)
	assert.Equal(t, "6M", res.Duration)
	assert.Equal(t, fixedNow.AddDate(0, 0, 180), res.ExpiryDate)
	assert.Equal(t, fixedNow.AddDate(0, 0, 180), gotExpiry)
	repo.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestApplyGiftCode_InvalidFormat(t *testing.T) {
	repo := new(RepoMock)
	notifier := new(NotifierMock)
	s := newTestService(repo, notifier)

	_, err := s.ApplyGiftCode(context.Background(), "uid-1", "bad")

	assert.ErrorIs(t, err, models.ErrInvalidInput)
	repo.AssertNotCalled(t, "RedeemGiftCode", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	notifier.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestApplyGiftCode_RepositoryError(t *testing.T) {
	repo := new(RepoMock)
	notifier := new(NotifierMock)
	s := newTestService(repo, notifier)

	used := models.NewError(models.KindInvalidInput, "invalid or already used gift code")
	repo.On("RedeemGiftCode", mock.Anything, "uid-1", "ABCD1234EFGH", fixedNow, mock.Anything).
		Return(nil, used)

	_, err := s.ApplyGiftCode(context.Background(), "uid-1", "ABCD1234EFGH")

	assert.ErrorIs(t, err, models.ErrInvalidInput)
	assert.Equal(t, "invalid or already used gift code", models.Message(err))
	notifier.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestApplyGiftCode_PublishFailureIgnored(t *testing.T) {
	repo := new(RepoMock)
	notifier := new(NotifierMock)
	s := newTestService(repo, notifier)

	repo.On("RedeemGiftCode", mock.Anything, "uid-1", "ABCD1234EFGH", fixedNow, mock.Anything).
		Return(&models.GiftCodeRedemption{Code: "ABCD1234EFGH", Duration: "1M", ExpiresAt: fixedNow.AddDate(0, 0, 30)}, nil)
	notifier.On("Publish", mock.Anything, rabbitmq.RoutingGiftCode, mock.Anything).Return(errors.New("broker down"))

	res, err := s.ApplyGiftCode(context.Background(), "uid-1", "ABCD1234EFGH")

	require.NoError(t, err)
	assert.Equal(t, "1M", res.Duration)
}

func TestExpiryCallback_UnknownDuration(t *testing.T) {
	repo := new(RepoMock)
	notifier := new(NotifierMock)
	s := newTestService(repo, notifier)

	var cbErr error
	repo.On("RedeemGiftCode", mock.Anything, "uid-1", "ABCD1234EFGH", fixedNow, mock.Anything).
		Run(func(args mock.Arguments) {
			expiryFor := args.Get(4).(func(string) (time.Time, error))
			_, cbErr = expiryFor("5Y")
		}).
		Return(nil, models.ErrInvalidInput)

	_, err := s.ApplyGiftCode(context.Background(), "uid-1", "ABCD1234EFGH")

	assert.ErrorIs(t, cbErr, models.ErrInvalidInput)
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestPlans(t *testing.T) {
	s := newTestService(new(RepoMock), new(NotifierMock))

	plans := s.Plans()

	require.Len(t, plans, 3)
	assert.Equal(t, 50, plans[models.TierFree].Features.QuestionsPerDay)
	assert.Empty(t, plans[models.TierFree].Plans)
	assert.Equal(t, 10, plans[models.TierSilver].Features.ChapterTests)
	assert.False(t, plans[models.TierSilver].Features.Formulas)
	assert.Equal(t, 8, plans[models.TierGold].Features.MockTests)
	assert.True(t, plans[models.TierGold].Features.Flashcards)
	require.Len(t, plans[models.TierGold].Plans, 3)
	assert.Equal(t, 2000, plans[models.TierGold].Plans[2].Price)
}
