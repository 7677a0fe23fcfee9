// Package user отвечает за учетные записи: регистрацию, вход, профиль и выбор экзамена.
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/magabrotheeeer/examprep/internal/lib/jwt"
	"github.com/magabrotheeeer/examprep/internal/lib/password"
	"github.com/magabrotheeeer/examprep/internal/lib/sl"
	"github.com/magabrotheeeer/examprep/internal/models"
	"github.com/magabrotheeeer/examprep/internal/services/quota"
)

// MaxAccountsPerEmail сколько аккаунтов можно завести на один адрес.
const MaxAccountsPerEmail = 3

// RoleUser роль обычного пользователя в токене.
const RoleUser = "user"

// Экзамены.
const (
	ExamJEE  = "JEE"
	ExamNEET = "NEET"
)

// Repository хранилище пользователей.
type Repository interface {
	CountUsersByEmail(ctx context.Context, email string) (int, error)
	UsersByEmail(ctx context.Context, email string) ([]models.User, error)
	CreateUser(ctx context.Context, u *models.User, maxPerEmail int) error
	SetSelectedExam(ctx context.Context, userUID, exam string) error
	SaveUserDetails(ctx context.Context, userUID string, d models.UserDetails) error
}

// UserLoader возвращает пользователя с актуальными дневными счетчиками.
type UserLoader interface {
	Load(ctx context.Context, userUID string) (*models.User, error)
}

// PhoneCipher шифрует номер телефона.
type PhoneCipher interface {
	Encrypt(phone string) (string, error)
	Decrypt(encoded string) (string, error)
}

// Service сервис учетных записей.
type Service struct {
	repo   Repository
	users  UserLoader
	cipher PhoneCipher
	tokens jwt.Maker
	log    *slog.Logger
	now    func() time.Time
}

// New создает Service.
func New(repo Repository, users UserLoader, cipher PhoneCipher, tokens jwt.Maker, log *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		users:  users,
		cipher: cipher,
		tokens: tokens,
		log:    log,
		now:    time.Now,
	}
}

// Registered результат регистрации.
type Registered struct {
	UserUID string `json:"userId"`
	Token   string `json:"token"`
}

// Profile профиль пользователя с текущими лимитами.
type Profile struct {
	UserUID            string             `json:"userId"`
	Email              string             `json:"email"`
	Phone              string             `json:"phone"`
	SelectedExam       string             `json:"selectedExam,omitempty"`
	Tier               models.Tier        `json:"subscriptionType"`
	SubscriptionExpiry *time.Time         `json:"subscriptionExpiryDate,omitempty"`
	IsActive           bool               `json:"isSubscriptionActive"`
	DailyUsage         models.DailyUsage  `json:"dailyUsage"`
	DailyLimits        quota.Limits       `json:"dailyLimits"`
	Details            models.UserDetails `json:"details"`
}

// NormalizeEmail приводит адрес к нижнему регистру без пробелов.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidPhone проверяет, что номер состоит ровно из 10 цифр.
func ValidPhone(phone string) bool {
	if len(phone) != 10 {
		return false
	}
	for _, r := range phone {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Register создает пользователя уровня free и выдает токен.
func (s *Service) Register(ctx context.Context, email, phone, rawPassword string) (*Registered, error) {
	const op = "user.Register"
	email = NormalizeEmail(email)
	phone = strings.TrimSpace(phone)
	if !ValidPhone(phone) {
		return nil, fmt.Errorf("%s: %w", op, models.NewError(models.KindInvalidInput, "phone number must be 10 digits"))
	}

	// быстрый отказ до хеширования пароля, окончательно лимит проверяет CreateUser
	count, err := s.repo.CountUsersByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if count >= MaxAccountsPerEmail {
		return nil, fmt.Errorf("%s: %w", op, models.NewError(models.KindInvalidInput,
			"maximum %d accounts allowed per email", MaxAccountsPerEmail))
	}

	hash, err := password.GetHash(rawPassword)
	if errors.Is(err, password.ErrTooShort) || errors.Is(err, password.ErrTooLong) {
		return nil, fmt.Errorf("%s: %w", op, models.NewError(models.KindInvalidInput, "%s", errors.Unwrap(err).Error()))
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	encPhone, err := s.cipher.Encrypt(phone)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := s.now()
	u := &models.User{
		UID:            uuid.NewString(),
		Email:          email,
		PhoneEncrypted: encPhone,
		PasswordHash:   hash,
		Tier:           models.TierFree,
		DailyUsage:     models.DailyUsage{Date: now},
		CreatedAt:      now,
	}
	if err := s.repo.CreateUser(ctx, u, MaxAccountsPerEmail); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	token, err := s.tokens.GenerateToken(u.UID, u.Email, RoleUser)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("user registered", sl.User(u.UID))
	return &Registered{UserUID: u.UID, Token: token}, nil
}

// Login ищет среди аккаунтов адреса тот, чей пароль совпал, и выдает токен.
func (s *Service) Login(ctx context.Context, email, rawPassword string) (*Registered, error) {
	const op = "user.Login"
	users, err := s.repo.UsersByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	for _, u := range users {
		if password.CompareHash(u.PasswordHash, rawPassword) != nil {
			continue
		}
		token, err := s.tokens.GenerateToken(u.UID, u.Email, RoleUser)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return &Registered{UserUID: u.UID, Token: token}, nil
	}
	return nil, fmt.Errorf("%s: %w", op, models.NewError(models.KindInvalidInput, "invalid credentials"))
}

// Profile возвращает профиль, предварительно сбросив счетчики прошедшего дня.
func (s *Service) Profile(ctx context.Context, userUID string) (*Profile, error) {
	const op = "user.Profile"
	u, err := s.users.Load(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	phone, err := s.cipher.Decrypt(u.PhoneEncrypted)
	if err != nil {
		s.log.Warn("failed to decrypt phone", sl.User(userUID), sl.Err(err))
		phone = ""
	}
	now := s.now()
	return &Profile{
		UserUID:            u.UID,
		Email:              u.Email,
		Phone:              phone,
		SelectedExam:       u.SelectedExam,
		Tier:               u.Tier,
		SubscriptionExpiry: u.SubscriptionExpiry,
		IsActive:           u.IsSubscriptionActive(now),
		DailyUsage:         u.DailyUsage,
		DailyLimits:        quota.GetLimits(u.EffectiveTier(now)),
		Details:            u.Details,
	}, nil
}

// SelectExam сохраняет выбранный экзамен: JEE или NEET.
func (s *Service) SelectExam(ctx context.Context, userUID, exam string) error {
	const op = "user.SelectExam"
	if exam != ExamJEE && exam != ExamNEET {
		return fmt.Errorf("%s: %w", op, models.NewError(models.KindInvalidInput, "invalid exam selection"))
	}
	if err := s.repo.SetSelectedExam(ctx, userUID, exam); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// CompleteDetails проверяет и сохраняет анкету. Класс сохраняется только
// у учеников, остальным записывается models.GradeOther.
func (s *Service) CompleteDetails(ctx context.Context, userUID string, d models.UserDetails) (*models.UserDetails, error) {
	const op = "user.CompleteDetails"
	d = models.UserDetails{
		Name:         strings.TrimSpace(d.Name),
		Profession:   strings.TrimSpace(d.Profession),
		Grade:        strings.TrimSpace(d.Grade),
		PreparingFor: strings.TrimSpace(d.PreparingFor),
		CollegeName:  strings.TrimSpace(d.CollegeName),
		SchoolName:   strings.TrimSpace(d.SchoolName),
		State:        strings.TrimSpace(d.State),
		LifeAmbition: strings.TrimSpace(d.LifeAmbition),
	}
	if d.Name == "" || d.Profession == "" || d.PreparingFor == "" || d.State == "" {
		return nil, fmt.Errorf("%s: %w", op, models.NewError(models.KindInvalidInput,
			"name, profession, preparing for, and state are required"))
	}
	if d.Profession != models.ProfessionStudent && d.Profession != models.ProfessionTeacher {
		return nil, fmt.Errorf("%s: %w", op, models.NewError(models.KindInvalidInput, "profession must be student or teacher"))
	}
	if utf8.RuneCountInString(d.LifeAmbition) > models.MaxLifeAmbition {
		return nil, fmt.Errorf("%s: %w", op, models.NewError(models.KindInvalidInput,
			"life ambition cannot exceed %d characters", models.MaxLifeAmbition))
	}
	if d.Profession != models.ProfessionStudent {
		d.Grade = models.GradeOther
	}

	if err := s.repo.SaveUserDetails(ctx, userUID, d); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	d.Completed = true
	s.log.Info("user details completed", sl.User(userUID))
	return &d, nil
}
