package bot

import "goldbridge/internal/models"

// ValidTransitions определяет допустимые переходы между состояниями
var ValidTransitions = map[string][]string{
	models.StateWaitingForSignal: {models.StateOpening, models.StatePaused, models.StateStopped},
	models.StateOpening:          {models.StateMonitoring, models.StateWaitingForSignal, models.StateStopped}, // Назад при отказе ордера
	models.StateMonitoring:       {models.StateClosed, models.StateStopped},
	models.StateClosed:           {models.StateWaitingForSignal, models.StatePaused, models.StateStopped},
	models.StatePaused:           {models.StateWaitingForSignal, models.StateStopped},
	models.StateStopped:          {},
}

// CanTransition проверяет допустимость перехода
func CanTransition(from, to string) bool {
	allowed, ok := ValidTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// StateInfo возвращает описание состояния для UI
func StateInfo(s string) string {
	switch s {
	case models.StateWaitingForSignal:
		return "Ожидание торгового сигнала"
	case models.StateOpening:
		return "Открытие позиции..."
	case models.StateMonitoring:
		return "Позиция открыта, сопровождение"
	case models.StateClosed:
		return "Позиция закрыта"
	case models.StatePaused:
		return "Торговля приостановлена предохранителем"
	case models.StateStopped:
		return "Бот остановлен"
	default:
		return "Неизвестное состояние"
	}
}

// IsActive возвращает true если бот торгует
func IsActive(s string) bool {
	return s == models.StateWaitingForSignal || s == models.StateOpening || s == models.StateMonitoring
}

// HasOpenPosition возвращает true если есть открытая позиция
func HasOpenPosition(s string) bool {
	return s == models.StateOpening || s == models.StateMonitoring
}
