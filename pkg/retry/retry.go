package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

// retry.go - повторные попытки команд советнику
//
// Канал к терминалу один, ответы порядковые, поэтому команда либо
// подтверждается, либо истекает по таймауту. Таймаут не означает
// отказ: команда повторяется с экспоненциальной задержкой и jitter,
// чтобы не бомбить советника в момент, когда терминал занят.

// Config задаёт политику повторов одной команды
type Config struct {
	// MaxRetries - число попыток, включая первую.
	// Ноль и меньше означает повторять до отмены контекста.
	MaxRetries int

	// InitialDelay - задержка перед второй попыткой
	InitialDelay time.Duration

	// MaxDelay - потолок задержки при экспоненциальном росте
	MaxDelay time.Duration

	// Multiplier - множитель задержки между попытками
	Multiplier float64

	// JitterFactor - доля случайного разброса задержки (0..1),
	// чтобы повторы не совпадали с тактом советника
	JitterFactor float64

	// RetryIf отбирает ошибки, после которых есть смысл повторять.
	// Не задана - повторяются все, кроме помеченных Permanent.
	RetryIf func(error) bool

	// OnRetry вызывается перед каждым повтором, для логирования
	OnRetry func(attempt int, err error, delay time.Duration)
}

// DefaultConfig подходит для запросов состояния (позиции, бары):
// 4 попытки, задержки 100ms, 200ms, 400ms.
func DefaultConfig() Config {
	return Config{
		MaxRetries:   4,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.1,
	}
}

// AggressiveConfig для закрытия позиции: незакрытая позиция под
// открытым рыночным риском, поэтому попыток больше и повторы идут
// дольше. 10 попыток, задержки 1s, 2s, 4s, 8s, далее по 10s.
func AggressiveConfig() Config {
	return Config{
		MaxRetries:   10,
		InitialDelay: time.Second,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.1,
	}
}

// validate подставляет значения по умолчанию вместо мусорных
func (c *Config) validate() {
	if c.InitialDelay <= 0 {
		c.InitialDelay = 100 * time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 30 * time.Second
	}
	if c.Multiplier <= 0 {
		c.Multiplier = 2.0
	}
	if c.JitterFactor < 0 {
		c.JitterFactor = 0
	}
	if c.JitterFactor > 1 {
		c.JitterFactor = 1
	}
}

// calculateDelay возвращает задержку перед попыткой attempt
func (c *Config) calculateDelay(attempt int) time.Duration {
	delay := float64(c.InitialDelay) * math.Pow(c.Multiplier, float64(attempt))
	if delay > float64(c.MaxDelay) {
		delay = float64(c.MaxDelay)
	}

	if c.JitterFactor > 0 {
		delay += delay * c.JitterFactor * (rand.Float64()*2 - 1)
	}
	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}

// Do выполняет операцию по политике cfg.
//
// Возвращает nil после первой удачной попытки, иначе последнюю
// ошибку. Отмена контекста прекращает повторы немедленно.
func Do(ctx context.Context, operation func() error, cfg Config) error {
	cfg.validate()

	retryIf := cfg.RetryIf
	if retryIf == nil {
		retryIf = IsRetryable
	}

	var lastErr error

	for attempt := 0; cfg.MaxRetries <= 0 || attempt < cfg.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			if lastErr != nil {
				return lastErr
			}
			return ctx.Err()
		default:
		}

		err := operation()
		if err == nil {
			return nil
		}
		lastErr = err

		if !retryIf(err) {
			return err
		}

		if cfg.MaxRetries > 0 && attempt >= cfg.MaxRetries-1 {
			break
		}

		delay := cfg.calculateDelay(attempt)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt+1, err, delay)
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return lastErr
		}
	}

	return lastErr
}

// IsRetryable возвращает false для ошибок, помеченных Permanent,
// и для отменённого контекста. Остальные ошибки повторяются.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var perm *PermanentError
	if errors.As(err, &perm) {
		return false
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// PermanentError помечает ошибку, повтор которой бессмыслен:
// отказ терминала с текстом ошибки не исправится повтором команды
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return e.Err.Error()
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// Permanent оборачивает ошибку в PermanentError
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}
