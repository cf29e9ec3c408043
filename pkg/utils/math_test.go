package utils

import (
	"math"
	"testing"
)

// ============================================================
// Тесты RoundToLotStep
// ============================================================

func TestRoundToLotStep(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		step     float64
		expected float64
	}{
		// Базовые кейсы
		{"exact match", 0.12, 0.01, 0.12},
		{"round up", 0.126, 0.01, 0.13},
		{"round down", 0.123, 0.01, 0.12},
		{"near two", 1.999, 0.01, 2.0},
		{"coarse step", 0.37, 0.1, 0.4},

		// Граничные кейсы
		{"zero step returns value", 0.123, 0, 0.123},
		{"negative step returns value", 0.123, -0.01, 0.123},
		{"zero value", 0, 0.01, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RoundToLotStep(tt.value, tt.step)
			if math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("RoundToLotStep(%v, %v) = %v, want %v", tt.value, tt.step, got, tt.expected)
			}
		})
	}
}

func TestRoundToLotStepDown(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		step     float64
		expected float64
	}{
		{"rounds down not up", 0.129, 0.01, 0.12},
		{"exact multiple untouched", 0.12, 0.01, 0.12},
		{"below one step", 0.009, 0.01, 0},
		{"zero step returns value", 0.129, 0, 0.129},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RoundToLotStepDown(tt.value, tt.step)
			if math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("RoundToLotStepDown(%v, %v) = %v, want %v", tt.value, tt.step, got, tt.expected)
			}
		})
	}
}

// ============================================================
// Тесты RoundToDigits
// ============================================================

func TestRoundToDigits(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		digits   int
		expected float64
	}{
		{"two digits", 2034.5678, 2, 2034.57},
		{"zero digits", 2034.5678, 0, 2035},
		{"four digits", 0.02345, 4, 0.0235},
		{"negative digits returns value", 2034.5678, -1, 2034.5678},
		{"already rounded", 2010.55, 2, 2010.55},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RoundToDigits(tt.value, tt.digits)
			if math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("RoundToDigits(%v, %d) = %v, want %v", tt.value, tt.digits, got, tt.expected)
			}
		})
	}
}

// ============================================================
// Тесты CalculatePNL
// ============================================================

func TestCalculatePNL(t *testing.T) {
	tests := []struct {
		name         string
		side         string
		entryPrice   float64
		exitPrice    float64
		volume       float64
		contractSize float64
		expected     float64
	}{
		// BUY: прибыль при росте
		{"buy profit", "BUY", 2000, 2010, 0.1, 100, 100},
		{"buy loss", "BUY", 2000, 1995, 0.1, 100, -50},

		// SELL: прибыль при падении
		{"sell profit", "SELL", 2000, 1990, 0.1, 100, 100},
		{"sell loss", "SELL", 2000, 2005, 0.1, 100, -50},

		// Граничные кейсы
		{"flat trade", "BUY", 2000, 2000, 0.1, 100, 0},
		{"zero volume", "BUY", 2000, 2010, 0, 100, 0},
		{"zero contract size", "BUY", 2000, 2010, 0.1, 0, 0},
		{"unknown side", "HOLD", 2000, 2010, 0.1, 100, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculatePNL(tt.side, tt.entryPrice, tt.exitPrice, tt.volume, tt.contractSize)
			if math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("CalculatePNL(%s) = %v, want %v", tt.side, got, tt.expected)
			}
		})
	}
}

func TestPriceDiff(t *testing.T) {
	if got := PriceDiff("BUY", 2000, 2010); got != 10 {
		t.Errorf("PriceDiff(BUY) = %v, want 10", got)
	}
	if got := PriceDiff("SELL", 2000, 2010); got != -10 {
		t.Errorf("PriceDiff(SELL) = %v, want -10", got)
	}
	if got := PriceDiff("SELL", 2000, 1990); got != 10 {
		t.Errorf("PriceDiff(SELL down) = %v, want 10", got)
	}
}

// ============================================================
// Тесты Clamp
// ============================================================

func TestClamp(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		min      float64
		max      float64
		expected float64
	}{
		{"inside range", 5, 0, 10, 5},
		{"below min", -1, 0, 10, 0},
		{"above max", 15, 0, 10, 10},
		{"at min", 0, 0, 10, 0},
		{"at max", 10, 0, 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clamp(tt.value, tt.min, tt.max); got != tt.expected {
				t.Errorf("Clamp(%v, %v, %v) = %v, want %v", tt.value, tt.min, tt.max, got, tt.expected)
			}
		})
	}
}
