package models

import "time"

// market.go - рыночные данные, поступающие от терминального советника
//
// Назначение:
// Структуры сообщений моста: тик, свеча, информация о счёте и символе,
// открытая позиция на стороне брокера.

// MarketData представляет последний тик по символу
type MarketData struct {
	Symbol     string    `json:"symbol"`
	Bid        float64   `json:"bid"`
	Ask        float64   `json:"ask"`
	Spread     float64   `json:"spread"`
	ReceivedAt time.Time `json:"received_at"`
}

// Mid возвращает среднюю цену тика
func (m MarketData) Mid() float64 {
	return (m.Bid + m.Ask) / 2
}

// Candle представляет бар OHLC
type Candle struct {
	Time  time.Time `json:"time"`
	Open  float64   `json:"open"`
	High  float64   `json:"high"`
	Low   float64   `json:"low"`
	Close float64   `json:"close"`
}

// AccountInfo представляет состояние торгового счёта
type AccountInfo struct {
	Balance    float64 `json:"balance"`
	Equity     float64 `json:"equity"`
	Margin     float64 `json:"margin"`
	FreeMargin float64 `json:"free_margin"`
	Profit     float64 `json:"profit"`
	Leverage   int     `json:"leverage"`
	Currency   string  `json:"currency,omitempty"`
}

// SymbolInfo представляет торговые параметры символа
type SymbolInfo struct {
	Symbol       string  `json:"symbol"`
	Point        float64 `json:"point"`
	Digits       int     `json:"digits"`
	ContractSize float64 `json:"contract_size"`
	VolumeMin    float64 `json:"volume_min"`
	VolumeMax    float64 `json:"volume_max"`
	VolumeStep   float64 `json:"volume_step"`
}

// DefaultGoldSymbolInfo возвращает параметры XAUUSD по умолчанию.
// Используются пока советник не прислал symbol_info.
func DefaultGoldSymbolInfo(symbol string) SymbolInfo {
	return SymbolInfo{
		Symbol:       symbol,
		Point:        0.01,
		Digits:       2,
		ContractSize: 100,
		VolumeMin:    0.01,
		VolumeMax:    100,
		VolumeStep:   0.01,
	}
}

// BrokerPosition представляет открытую позицию на стороне брокера
type BrokerPosition struct {
	Ticket     int64   `json:"ticket"`
	Symbol     string  `json:"symbol"`
	Type       string  `json:"pos_type"` // BUY, SELL
	Volume     float64 `json:"volume"`
	OpenPrice  float64 `json:"open_price"`
	StopLoss   float64 `json:"sl"`
	TakeProfit float64 `json:"tp"`
	Profit     float64 `json:"profit"`
}

// Стороны позиции
const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

// OppositeSide возвращает противоположную сторону
func OppositeSide(side string) string {
	if side == SideBuy {
		return SideSell
	}
	return SideBuy
}
