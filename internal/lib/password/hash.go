// Package password реализует хеширование и проверку паролей учетных записей.
package password

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

// MinLength минимальная длина пароля в символах.
const MinLength = 8

// ErrTooShort пароль короче MinLength.
var ErrTooShort = errors.New("password is too short")

// ErrTooLong пароль длиннее, чем принимает bcrypt.
var ErrTooLong = errors.New("password is too long")

// GetHash проверяет длину пароля и возвращает его bcrypt‑хэш.
func GetHash(password string) (string, error) {
	const op = "password.GetHash"
	if utf8.RuneCountInString(password) < MinLength {
		return "", fmt.Errorf("%s: %w", op, ErrTooShort)
	}
	if len(password) > 72 {
		return "", fmt.Errorf("%s: %w", op, ErrTooLong)
	}
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return string(hashedPassword), nil
}

// CompareHash сравнивает bcrypt‑хэш с введённым паролем.
func CompareHash(originalHash, externalPassword string) error {
	const op = "password.CompareHash"
	if err := bcrypt.CompareHashAndPassword([]byte(originalHash), []byte(externalPassword)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
