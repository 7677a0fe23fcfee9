package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/examprep/internal/migrations"
	"github.com/magabrotheeeer/examprep/internal/models"
)

// TestDataFactory содержит методы для создания тестовых данных
type TestDataFactory struct {
	storage *Storage
}

// NewTestDataFactory создает новую фабрику тестовых данных
func NewTestDataFactory(storage *Storage) *TestDataFactory {
	return &TestDataFactory{storage: storage}
}

// CreateUser создает тестового пользователя с нулевыми счетчиками на дату usageDate
func (f *TestDataFactory) CreateUser(t *testing.T, email string, tier models.Tier, expiry *time.Time, usageDate time.Time) string {
	t.Helper()
	uid := uuid.New().String()
	_, err := f.storage.DB.Exec(`INSERT INTO users (uid, email, phone_encrypted, password_hash, tier, subscription_expiry, usage_date)
		VALUES ($1, $2, 'enc', 'hash', $3, $4, $5)`,
		uid, email, tier, expiry, usageDate)
	require.NoError(t, err)
	return uid
}

// CreateQuestion создает активный вопрос
func (f *TestDataFactory) CreateQuestion(t *testing.T, exam, subject, chapter, topic string, qt models.QuestionType, correct string) string {
	t.Helper()
	id := uuid.New().String()
	options, err := json.Marshal([]models.Option{{Label: "A", Text: "1"}, {Label: "B", Text: "2"}})
	require.NoError(t, err)
	_, err = f.storage.DB.Exec(`INSERT INTO questions (id, exam, subject, chapter, topic, question_type, question_text, options, correct_answer)
		VALUES ($1, $2, $3, $4, $5, $6, 'text', $7, $8)`,
		id, exam, subject, chapter, topic, qt, options, correct)
	require.NoError(t, err)
	return id
}

// CreateMockTest создает шаблон теста из вопросов questionIDs с номерами по порядку
func (f *TestDataFactory) CreateMockTest(t *testing.T, name, exam string, duration int, active bool, questionIDs ...string) string {
	t.Helper()
	id := uuid.New().String()
	_, err := f.storage.DB.Exec(`INSERT INTO mock_tests (id, name, exam, duration_minutes, is_active)
		VALUES ($1, $2, $3, $4, $5)`, id, name, exam, duration, active)
	require.NoError(t, err)
	for i, qid := range questionIDs {
		_, err = f.storage.DB.Exec(`INSERT INTO mock_test_questions (mock_test_id, serial_number, question_id, subject)
			SELECT $1, $2, id, subject FROM questions WHERE id = $3`, id, i+1, qid)
		require.NoError(t, err)
	}
	return id
}

// CreateGiftCode создает неиспользованный подарочный код
func (f *TestDataFactory) CreateGiftCode(t *testing.T, code, duration string) {
	t.Helper()
	_, err := f.storage.DB.Exec(`INSERT INTO gift_codes (code, duration) VALUES ($1, $2)`, code, duration)
	require.NoError(t, err)
}

// CreatePayment создает платеж
func (f *TestDataFactory) CreatePayment(t *testing.T, userUID string, amount int, status models.PaymentStatus,
	refundUsed bool, start, expiry, createdAt time.Time) string {
	t.Helper()
	id := uuid.New().String()
	_, err := f.storage.DB.Exec(`INSERT INTO payments
		(id, user_uid, order_id, amount_paid, plan_type, plan_duration, plan_start_date, plan_expiry_date, status, refund_used, created_at)
		VALUES ($1, $2, $3, $4, 'gold', '1M', $5, $6, $7, $8, $9)`,
		id, userUID, "order_"+id[:8], amount, start, expiry, status, refundUsed, createdAt)
	require.NoError(t, err)
	return id
}

// setupTestDatabase создает тестовую БД в контейнере PostgreSQL и применяет миграции
func setupTestDatabase(t *testing.T) (*Storage, func()) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start container")

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	storage, err := New(ctx, dsn)
	require.NoError(t, err)

	require.NoError(t, migrations.Run(storage.DB, "../../../migrations"))
	require.NoError(t, CheckDatabaseReady(ctx, storage))

	cleanup := func() {
		_ = storage.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}
	return storage, cleanup
}
