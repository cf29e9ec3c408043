package models

// bot_state.go - состояния торгового цикла
//
// Жизненный цикл одной позиции:
// WAITING_FOR_SIGNAL -> OPENING -> MONITORING -> CLOSED -> WAITING_FOR_SIGNAL.
// PAUSED устанавливается предохранителем, STOPPED - при завершении работы.

// Состояния торгового цикла
const (
	StateWaitingForSignal = "WAITING_FOR_SIGNAL"
	StateOpening          = "OPENING"
	StateMonitoring       = "MONITORING"
	StateClosed           = "CLOSED"
	StatePaused           = "PAUSED"
	StateStopped          = "STOPPED"
)

// SARReading представляет текущее показание индикатора
type SARReading struct {
	Symbol      string  `json:"symbol"`
	Timeframe   string  `json:"timeframe"`
	Price       float64 `json:"current_price"`
	SAR         float64 `json:"sar_value"`
	Trend       string  `json:"trend"`        // UPTREND, DOWNTREND
	Signal      string  `json:"trend_signal"` // BUY, SELL
	EP          float64 `json:"extreme_point"`
	AF          float64 `json:"acceleration_factor"`
	Distance    float64 `json:"distance_to_sar"`
	DistancePct float64 `json:"distance_percentage"`
	Timestamp   string  `json:"timestamp"`
}

// Тренды индикатора
const (
	TrendUp   = "UPTREND"
	TrendDown = "DOWNTREND"
)
