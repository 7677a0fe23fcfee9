// Package jwt реализует генерацию и проверку JWT токенов платформы.
//
// Токен выдается при регистрации и входе, middleware проверяет подпись
// и извлекает идентификатор пользователя.
package jwt

import "github.com/golang-jwt/jwt/v5"

// CustomClaims описывает пользовательские данные, хранящиеся в JWT.
type CustomClaims struct {
	UserUID              string `json:"uid"`   // Идентификатор пользователя
	Email                string `json:"email"` // Почта пользователя
	Role                 string `json:"role"`  // Роль пользователя
	jwt.RegisteredClaims        // ExpiresAt, IssuedAt и пр.
}
