package crypto

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// hash.go - bcrypt-хеширование админ-токена API
//
// В конфиге хранится только хеш токена, поэтому утечка конфига не
// раскрывает сам токен. Хеш генерируется один раз через HashToken,
// проверка на каждом мутирующем запросе идёт через TokenMatches.

// Ошибки хеширования токена
var (
	ErrEmptyToken    = errors.New("token cannot be empty")
	ErrTokenMismatch = errors.New("token does not match hash")
	ErrInvalidHash   = errors.New("invalid token hash format")
	ErrTokenTooLong  = errors.New("token exceeds maximum length of 72 bytes")
)

// DefaultCost - стоимость bcrypt для админ-токена. Токен проверяется
// редко, поэтому стоимость выше минимальной.
const DefaultCost = 12

// MaxTokenLength - предел bcrypt, байты сверх него игнорируются
const MaxTokenLength = 72

// HashToken хеширует токен со стоимостью DefaultCost
func HashToken(token string) (string, error) {
	return HashTokenWithCost(token, DefaultCost)
}

// HashTokenWithCost хеширует токен с заданной стоимостью.
// Стоимость вне диапазона bcrypt приводится к границе.
func HashTokenWithCost(token string, cost int) (string, error) {
	if token == "" {
		return "", ErrEmptyToken
	}
	if len(token) > MaxTokenLength {
		return "", ErrTokenTooLong
	}

	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(token), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyToken сверяет токен с хешем.
// Возвращает ErrTokenMismatch при несовпадении и ErrInvalidHash,
// когда строка хеша не bcrypt.
func VerifyToken(token, hash string) error {
	if token == "" {
		return ErrEmptyToken
	}
	if hash == "" {
		return ErrInvalidHash
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(token)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrTokenMismatch
		}
		return ErrInvalidHash
	}
	return nil
}

// TokenMatches возвращает true при совпадении токена с хешем
func TokenMatches(token, hash string) bool {
	return VerifyToken(token, hash) == nil
}
