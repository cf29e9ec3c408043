package bridge

import (
	jsoniter "github.com/json-iterator/go"
	"time"

	"goldbridge/internal/models"
)

// protocol.go - проводной протокол моста
//
// Назначение:
// Кадры протокола между процессом и терминальным советником.
// Каждый кадр - одна строка UTF-8 JSON, завершённая '\n'.
//
// Входящие типы: market_data, position, heartbeat, order_result,
// response, rates. Исходящие команды различаются полем action.

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Типы входящих кадров
const (
	frameMarketData  = "market_data"
	frameHeartbeat   = "heartbeat"
	framePosition    = "position"
	frameOrderResult = "order_result"
	frameResponse    = "response"
	frameRates       = "rates"
)

// Действия исходящих команд
const (
	ActionBuy          = "BUY"
	ActionSell         = "SELL"
	ActionClose        = "CLOSE"
	ActionModify       = "MODIFY"
	ActionGetPositions = "GET_POSITIONS"
	ActionGetRates     = "GET_RATES"
)

// typeProbe используется для определения типа кадра до полного разбора
type typeProbe struct {
	Type string `json:"type"`
}

// marketDataFrame - тик вместе с параметрами символа и счёта.
// Советник шлёт всё одним кадром, состояние счёта и символа
// извлекается из последнего тика.
type marketDataFrame struct {
	Type   string  `json:"type"`
	Symbol string  `json:"symbol"`
	Bid    float64 `json:"bid"`
	Ask    float64 `json:"ask"`
	Spread float64 `json:"spread"`

	Point        float64 `json:"point"`
	Digits       int     `json:"digits"`
	ContractSize float64 `json:"contract_size"`
	MinLot       float64 `json:"min_lot"`
	MaxLot       float64 `json:"max_lot"`
	LotStep      float64 `json:"lot_step"`

	Balance    float64 `json:"balance"`
	Equity     float64 `json:"equity"`
	Margin     float64 `json:"margin"`
	FreeMargin float64 `json:"free_margin"`
	Profit     float64 `json:"profit"`
	Leverage   int     `json:"leverage"`
}

// positionFrame - состояние одной открытой позиции
type positionFrame struct {
	Type       string  `json:"type"`
	Ticket     int64   `json:"ticket"`
	Symbol     string  `json:"symbol"`
	PosType    string  `json:"pos_type"`
	Volume     float64 `json:"volume"`
	OpenPrice  float64 `json:"open_price"`
	StopLoss   float64 `json:"sl"`
	TakeProfit float64 `json:"tp"`
	Profit     float64 `json:"profit"`
}

// OrderResult - результат исполнения команды BUY/SELL/CLOSE/MODIFY
type OrderResult struct {
	Type    string  `json:"type"`
	Success bool    `json:"success"`
	Ticket  int64   `json:"ticket"`
	Deal    int64   `json:"deal"`
	Price   float64 `json:"price"`
	Error   string  `json:"error"`
}

// rateBar - один бар истории, время в секундах Unix
type rateBar struct {
	Time  int64   `json:"time"`
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

// ratesFrame - ответ на GET_RATES
type ratesFrame struct {
	Type string    `json:"type"`
	Data []rateBar `json:"data"`
}

// responseFrame - общий ответ советника (GET_POSITIONS и прочее)
type responseFrame struct {
	Type      string              `json:"type"`
	Success   bool                `json:"success"`
	Error     string              `json:"error"`
	Positions []positionFrame     `json:"positions"`
	Data      jsoniter.RawMessage `json:"data"`
}

// command - исходящая команда советнику
type command struct {
	Action    string  `json:"action"`
	Symbol    string  `json:"symbol,omitempty"`
	Volume    float64 `json:"volume,omitempty"`
	Price     float64 `json:"price,omitempty"`
	StopLoss  float64 `json:"sl"`
	TakeProfit float64 `json:"tp"`
	Comment   string  `json:"comment,omitempty"`
	Magic     int     `json:"magic,omitempty"`
	Ticket    int64   `json:"ticket,omitempty"`
	Count     int     `json:"count,omitempty"`
	Timeframe int     `json:"timeframe,omitempty"`
}

func (p positionFrame) toModel() models.BrokerPosition {
	return models.BrokerPosition{
		Ticket:     p.Ticket,
		Symbol:     p.Symbol,
		Type:       p.PosType,
		Volume:     p.Volume,
		OpenPrice:  p.OpenPrice,
		StopLoss:   p.StopLoss,
		TakeProfit: p.TakeProfit,
		Profit:     p.Profit,
	}
}

func (r rateBar) toCandle() models.Candle {
	return models.Candle{
		Time:  time.Unix(r.Time, 0),
		Open:  r.Open,
		High:  r.High,
		Low:   r.Low,
		Close: r.Close,
	}
}
