package models

import "time"

// Notification представляет уведомление о событии
type Notification struct {
	ID        int                    `json:"id" db:"id"`
	Timestamp time.Time              `json:"timestamp" db:"timestamp"`
	Type      string                 `json:"type" db:"type"`         // OPEN, CLOSE, REVERSAL, BREAKER, BRIDGE, ERROR
	Severity  string                 `json:"severity" db:"severity"` // info, warn, error
	Ticket    *int64                 `json:"ticket,omitempty" db:"ticket"`
	Message   string                 `json:"message" db:"message"`
	Meta      map[string]interface{} `json:"meta,omitempty" db:"meta"` // дополнительные данные (JSON в БД)
}

// Типы уведомлений
const (
	NotificationTypeOpen     = "OPEN"     // открытие позиции
	NotificationTypeClose    = "CLOSE"    // закрытие позиции
	NotificationTypeReversal = "REVERSAL" // разворот индикатора
	NotificationTypeBreaker  = "BREAKER"  // срабатывание предохранителя
	NotificationTypeBridge   = "BRIDGE"   // подключение/отключение советника
	NotificationTypeError    = "ERROR"    // ошибка ордера/моста
)

// Уровни важности
const (
	SeverityInfo  = "info"
	SeverityWarn  = "warn"
	SeverityError = "error"
)
