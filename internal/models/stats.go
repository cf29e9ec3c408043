package models

import "time"

// Stats представляет агрегированную статистику по журналу сделок
type Stats struct {
	TotalTrades       int     `json:"total_trades"`
	OpenTrades        int     `json:"open_trades"`
	ClosedTrades      int     `json:"closed_trades"`
	Wins              int     `json:"wins"`
	Losses            int     `json:"losses"`
	WinRate           float64 `json:"win_rate"` // проценты, 0-100
	GrossProfit       float64 `json:"gross_profit"`
	GrossLoss         float64 `json:"gross_loss"`
	NetProfit         float64 `json:"net_profit"`
	ConsecutiveLosses int     `json:"consecutive_losses"` // подряд, от последней закрытой
}

// BreakerState представляет сохраняемое состояние предохранителя
type BreakerState struct {
	IsPaused          bool       `json:"is_paused"`
	PauseReason       string     `json:"pause_reason,omitempty"`
	PauseStartTime    *time.Time `json:"pause_start_time"`
	PauseEndTime      *time.Time `json:"pause_end_time"`
	ConsecutiveLosses int        `json:"consecutive_losses"`
	TotalPauseCount   int        `json:"total_pause_count"`
}

// BotStatus представляет снимок состояния бота для API и WebSocket
type BotStatus struct {
	State           string       `json:"state"`
	Symbol          string       `json:"symbol"`
	BridgeConnected bool         `json:"bridge_connected"`
	DesiredSignal   string       `json:"desired_signal"`
	OpenTicket      *int64       `json:"open_ticket,omitempty"`
	SAR             *SARReading  `json:"sar,omitempty"`
	Account         *AccountInfo `json:"account,omitempty"`
	Breaker         BreakerState `json:"breaker"`
	UpdatedAt       time.Time    `json:"updated_at"`
}
