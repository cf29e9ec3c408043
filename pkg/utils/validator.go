package utils

import (
	"fmt"
	"net/mail"
	"regexp"
)

// validator.go - валидация данных
//
// Назначение:
// Проверка корректности входных данных перед отправкой команд советнику.
//
// Возвращает error с описанием проблемы или nil

var symbolRe = regexp.MustCompile(`^[A-Z0-9._#]{3,20}$`)

// ValidateSymbol проверяет формат торгового символа (XAUUSD, XAUUSD., GOLD)
func ValidateSymbol(symbol string) error {
	if symbol == "" {
		return fmt.Errorf("symbol is empty")
	}
	if !symbolRe.MatchString(symbol) {
		return fmt.Errorf("invalid symbol format: %q", symbol)
	}
	return nil
}

// ValidateSide проверяет сторону сделки
func ValidateSide(side string) error {
	if side != "BUY" && side != "SELL" {
		return fmt.Errorf("invalid side: %q", side)
	}
	return nil
}

// ValidateVolume проверяет объём ордера
func ValidateVolume(volume, min, max float64) error {
	if volume <= 0 {
		return fmt.Errorf("volume must be positive, got %v", volume)
	}
	if min > 0 && volume < min {
		return fmt.Errorf("volume %v below minimum %v", volume, min)
	}
	if max > 0 && volume > max {
		return fmt.Errorf("volume %v above maximum %v", volume, max)
	}
	return nil
}

// ValidatePrice проверяет цену
func ValidatePrice(price float64) error {
	if price <= 0 {
		return fmt.Errorf("price must be positive, got %v", price)
	}
	return nil
}

// ValidateEmail проверяет формат email адреса
func ValidateEmail(addr string) error {
	if addr == "" {
		return fmt.Errorf("email is empty")
	}
	if _, err := mail.ParseAddress(addr); err != nil {
		return fmt.Errorf("invalid email %q: %w", addr, err)
	}
	return nil
}
