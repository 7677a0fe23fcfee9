// Package phonecrypt шифрует номера телефонов перед сохранением в базу.
package phonecrypt

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// ErrMalformed зашифрованное значение повреждено или создано другим ключом.
var ErrMalformed = errors.New("malformed ciphertext")

// Cipher шифрует и расшифровывает номера телефонов XChaCha20-Poly1305.
type Cipher struct {
	key [chacha20poly1305.KeySize]byte
}

// New создает Cipher. Ключ произвольной длины приводится к 32 байтам через SHA-256.
func New(secret string) (*Cipher, error) {
	const op = "phonecrypt.New"
	if secret == "" {
		return nil, fmt.Errorf("%s: empty key", op)
	}
	return &Cipher{key: sha256.Sum256([]byte(secret))}, nil
}

// Encrypt возвращает base64 от nonce||ciphertext.
func (c *Cipher) Encrypt(phone string) (string, error) {
	const op = "phonecrypt.Encrypt"
	aead, err := chacha20poly1305.NewX(c.key[:])
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(phone)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	sealed := aead.Seal(nonce, nonce, []byte(phone), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt расшифровывает значение, полученное из Encrypt.
func (c *Cipher) Decrypt(encoded string) (string, error) {
	const op = "phonecrypt.Decrypt"
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, ErrMalformed)
	}
	aead, err := chacha20poly1305.NewX(c.key[:])
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if len(raw) < aead.NonceSize()+aead.Overhead() {
		return "", fmt.Errorf("%s: %w", op, ErrMalformed)
	}
	nonce, ciphertext := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, ErrMalformed)
	}
	return string(plain), nil
}
