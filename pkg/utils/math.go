package utils

import (
	"math"
)

// math.go - математические утилиты для торговых расчётов
//
// Назначение:
// Вспомогательные математические функции для размера позиции и P/L.
// Все функции являются чистыми (pure functions) без побочных эффектов.
//
// Функции:
// - RoundToLotStep: округление объёма до шага лота брокера
// - RoundToDigits: округление цены до точности символа
// - CalculatePNL: прибыль/убыток позиции с учётом размера контракта

// RoundToLotStep округляет значение к ближайшему кратному step.
//
// Используется для округления объёма ордера до минимального шага брокера.
//
// Параметры:
//   - value: исходный объём в лотах
//   - step: минимальный шаг изменения объёма
//
// Возвращает:
//   - Округлённое значение, кратное step
//   - Если step <= 0, возвращает исходное значение
//
// Примеры:
//   - RoundToLotStep(0.126, 0.01) = 0.13
//   - RoundToLotStep(1.999, 0.01) = 2.0
func RoundToLotStep(value, step float64) float64 {
	if step <= 0 {
		return value
	}
	return math.Round(value/step) * step
}

// RoundToLotStepDown округляет объём ВНИЗ до ближайшего кратного step.
//
// Округление вниз гарантирует, что мы не превысим рассчитанный риск.
func RoundToLotStepDown(value, step float64) float64 {
	if step <= 0 {
		return value
	}
	return math.Floor(value/step) * step
}

// RoundToDigits округляет цену до заданного числа знаков после запятой.
//
// Примеры:
//   - RoundToDigits(2034.5678, 2) = 2034.57
//   - RoundToDigits(2034.5678, 0) = 2035
func RoundToDigits(value float64, digits int) float64 {
	if digits < 0 {
		return value
	}
	pow := math.Pow(10, float64(digits))
	return math.Round(value*pow) / pow
}

// CalculatePNL расчитывает прибыль/убыток по позиции.
//
// Формулы:
//   - BUY:  PNL = (P_exit - P_entry) × volume × contractSize
//   - SELL: PNL = (P_entry - P_exit) × volume × contractSize
//
// Параметры:
//   - side: "BUY" или "SELL"
//   - entryPrice: цена входа
//   - exitPrice: цена выхода
//   - volume: объём в лотах
//   - contractSize: размер контракта (100 для золота)
//
// Возвращает:
//   - PNL в валюте счёта
func CalculatePNL(side string, entryPrice, exitPrice, volume, contractSize float64) float64 {
	if volume <= 0 || contractSize <= 0 {
		return 0
	}

	switch side {
	case "BUY":
		return (exitPrice - entryPrice) * volume * contractSize
	case "SELL":
		return (entryPrice - exitPrice) * volume * contractSize
	default:
		return 0
	}
}

// PriceDiff возвращает движение цены в пунктах символа.
//
// Параметры:
//   - side: "BUY" или "SELL"
//   - entryPrice, exitPrice: цены входа и выхода
//
// Возвращает:
//   - Положительное значение при движении в сторону позиции
func PriceDiff(side string, entryPrice, exitPrice float64) float64 {
	if side == "SELL" {
		return entryPrice - exitPrice
	}
	return exitPrice - entryPrice
}

// Abs возвращает абсолютное значение числа.
func Abs(x float64) float64 {
	return math.Abs(x)
}

// Min возвращает минимум из двух чисел.
func Min(a, b float64) float64 {
	return math.Min(a, b)
}

// Max возвращает максимум из двух чисел.
func Max(a, b float64) float64 {
	return math.Max(a, b)
}

// Clamp ограничивает значение диапазоном [min, max].
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
