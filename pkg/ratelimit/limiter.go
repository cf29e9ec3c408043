package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"
)

// limiter.go - ограничение частоты команд советнику
//
// Советник обрабатывает команды в таймерном цикле терминала, поэтому
// очередь команд моста не должна расти быстрее, чем терминал её
// разбирает. Token bucket: ведро пополняется с постоянной скоростью
// rate, ёмкость burst допускает короткую пачку команд подряд
// (например перестановка стопа сразу после запроса позиций).

// Limiter выдаёт разрешения на отправку команд по token bucket
type Limiter struct {
	mu         sync.Mutex
	rate       float64
	burst      float64
	tokens     float64
	lastRefill time.Time
}

// NewRateLimiter создаёт лимитер: rate команд в секунду, пачка до
// burst. Мусорные параметры заменяются безопасными значениями.
func NewRateLimiter(rate, burst float64) *Limiter {
	if rate <= 0 {
		rate = 10
	}
	if burst < 1 {
		burst = math.Max(rate, 1)
	}
	return &Limiter{
		rate:       rate,
		burst:      burst,
		tokens:     burst,
		lastRefill: time.Now(),
	}
}

// refill начисляет токены за прошедшее время.
// Вызывается только под mu.
func (l *Limiter) refill() {
	now := time.Now()
	l.tokens += now.Sub(l.lastRefill).Seconds() * l.rate
	if l.tokens > l.burst {
		l.tokens = l.burst
	}
	l.lastRefill = now
}

// Wait блокирует до получения токена или отмены контекста.
// Команда отправляется только после nil.
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		l.mu.Lock()
		l.refill()
		if l.tokens >= 1 {
			l.tokens--
			l.mu.Unlock()
			return nil
		}
		wait := time.Duration((1 - l.tokens) / l.rate * float64(time.Second))
		l.mu.Unlock()

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Allow пытается взять токен без ожидания
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refill()
	if l.tokens >= 1 {
		l.tokens--
		return true
	}
	return false
}

// Tokens возвращает текущий остаток токенов
func (l *Limiter) Tokens() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.refill()
	return l.tokens
}
