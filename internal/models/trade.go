package models

import "time"

// trade.go - запись журнала сделок
//
// Назначение:
// Полная запись о сделке: открытие, закрытие, P/L, параметры риска.
// Одна и та же структура пишется в дневные JSON-файлы журнала и в БД.

// RiskInfo описывает параметры риска на момент входа
type RiskInfo struct {
	RiskPercentage float64 `json:"risk_percentage"`
	RiskAmount     float64 `json:"risk_amount"`
	SLDistance     float64 `json:"sl_distance"`
	RRRatio        float64 `json:"rr_ratio"`
}

// TradeRecord представляет запись о сделке в журнале
type TradeRecord struct {
	TradeID               string    `json:"trade_id" db:"trade_id"` // "<order>_<deal>"
	OrderID               int64     `json:"order_id" db:"order_id"`
	DealID                int64     `json:"deal_id" db:"deal_id"`
	Symbol                string    `json:"symbol" db:"symbol"`
	Type                  string    `json:"type" db:"type"`     // BUY, SELL
	Status                string    `json:"status" db:"status"` // OPEN, CLOSED
	EntryTime             time.Time `json:"entry_time" db:"entry_time"`
	EntryPrice            float64   `json:"entry_price" db:"entry_price"`
	Volume                float64   `json:"volume" db:"volume"`
	Leverage              int       `json:"leverage" db:"leverage"`
	StopLoss              float64   `json:"stop_loss" db:"stop_loss"`
	TakeProfit            float64   `json:"take_profit" db:"take_profit"`
	ExitTime              *time.Time `json:"exit_time" db:"exit_time"`
	ExitPrice             *float64   `json:"exit_price" db:"exit_price"`
	ExitReason            string     `json:"exit_reason,omitempty" db:"exit_reason"`
	ProfitLoss            *float64   `json:"profit_loss" db:"profit_loss"`
	ProfitLossPips        *float64   `json:"profit_loss_pips" db:"profit_loss_pips"`
	Duration              string     `json:"duration,omitempty" db:"duration"`
	AccountBalanceAtEntry float64    `json:"account_balance_at_entry" db:"account_balance_at_entry"`
	RiskInfo              RiskInfo   `json:"risk_info" db:"-"`
	Comment               string     `json:"comment,omitempty" db:"comment"`
	MagicNumber           int        `json:"magic_number" db:"magic_number"`
}

// Статусы сделки. REQUIRES_MANUAL остаётся на записи, которую не
// удалось закрыть при остановке: её разбирает оператор в терминале.
const (
	TradeStatusOpen           = "OPEN"
	TradeStatusClosed         = "CLOSED"
	TradeStatusRequiresManual = "REQUIRES_MANUAL"
)

// Причины закрытия
const (
	ExitReasonSARReversal = "SAR reversal"
	ExitReasonEmergencySL = "emergency stop loss"
	ExitReasonBroker      = "closed at broker"
	ExitReasonManual      = "manual"
	ExitReasonShutdown    = "shutdown"
)

// IsLoss возвращает true для закрытой убыточной сделки
func (t *TradeRecord) IsLoss() bool {
	return t.Status == TradeStatusClosed && t.ProfitLoss != nil && *t.ProfitLoss < 0
}

// IsWin возвращает true для закрытой прибыльной сделки
func (t *TradeRecord) IsWin() bool {
	return t.Status == TradeStatusClosed && t.ProfitLoss != nil && *t.ProfitLoss > 0
}
