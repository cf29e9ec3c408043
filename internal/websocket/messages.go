package websocket

import (
	"time"

	"goldbridge/internal/models"
)

// MessageType определяет тип WebSocket сообщения
type MessageType string

// Типы WebSocket сообщений
const (
	// MessageTypeStatusUpdate - срез состояния бота
	// Отправляется периодически и при смене состояния
	MessageTypeStatusUpdate MessageType = "statusUpdate"

	// MessageTypeTickUpdate - свежий тик и показание индикатора
	MessageTypeTickUpdate MessageType = "tickUpdate"

	// MessageTypeNotification - новое уведомление
	// Отправляется при событиях: открытие, закрытие, разворот, пауза
	MessageTypeNotification MessageType = "notification"

	// MessageTypeStatsUpdate - обновление статистики торговли
	// Отправляется после закрытия сделки
	MessageTypeStatsUpdate MessageType = "statsUpdate"
)

// BaseMessage - базовая структура для всех WebSocket сообщений
type BaseMessage struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
}

// StatusUpdateMessage - сообщение с текущим состоянием бота
type StatusUpdateMessage struct {
	BaseMessage
	Data *models.BotStatus `json:"data"`
}

// TickUpdateMessage - сообщение с текущим тиком и индикатором
type TickUpdateMessage struct {
	BaseMessage
	Symbol string             `json:"symbol"`
	Bid    float64            `json:"bid"`
	Ask    float64            `json:"ask"`
	Spread float64            `json:"spread"`
	SAR    *models.SARReading `json:"sar,omitempty"`
}

// NotificationMessage - сообщение о новом уведомлении
type NotificationMessage struct {
	BaseMessage
	Data *models.Notification `json:"data"`
}

// StatsUpdateMessage - сообщение со статистикой за сегодня
type StatsUpdateMessage struct {
	BaseMessage
	Data *models.Stats `json:"data"`
}

// ============ Фабричные функции для создания сообщений ============

// NewStatusUpdateMessage создаёт сообщение состояния бота
func NewStatusUpdateMessage(status models.BotStatus) *StatusUpdateMessage {
	return &StatusUpdateMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeStatusUpdate,
			Timestamp: time.Now(),
		},
		Data: &status,
	}
}

// NewTickUpdateMessage создаёт сообщение тика
func NewTickUpdateMessage(market models.MarketData, sar *models.SARReading) *TickUpdateMessage {
	return &TickUpdateMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeTickUpdate,
			Timestamp: time.Now(),
		},
		Symbol: market.Symbol,
		Bid:    market.Bid,
		Ask:    market.Ask,
		Spread: market.Spread,
		SAR:    sar,
	}
}

// NewNotificationMessage создаёт сообщение уведомления
func NewNotificationMessage(notif models.Notification) *NotificationMessage {
	return &NotificationMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeNotification,
			Timestamp: time.Now(),
		},
		Data: &notif,
	}
}

// NewStatsUpdateMessage создаёт сообщение статистики
func NewStatsUpdateMessage(stats models.Stats) *StatsUpdateMessage {
	return &StatsUpdateMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeStatsUpdate,
			Timestamp: time.Now(),
		},
		Data: &stats,
	}
}
