package handlers

import (
	"encoding/json"
	"net/http"

	"goldbridge/internal/models"
)

// PositionSource отдаёт данные из кэша моста
type PositionSource interface {
	Positions() []models.BrokerPosition
	MarketData() (models.MarketData, bool)
}

// PositionsHandler обрабатывает HTTP запросы открытых позиций и рынка.
//
// Endpoints:
// - GET /api/v1/positions - открытые позиции на стороне брокера
// - GET /api/v1/market - последний тик
//
// Данные берутся из кэша моста без запроса к советнику: кэш обновляет
// монитор позиций на каждом цикле проверки.
type PositionsHandler struct {
	cache PositionSource
}

// NewPositionsHandler создает новый PositionsHandler с внедрением зависимостей.
func NewPositionsHandler(cache PositionSource) *PositionsHandler {
	return &PositionsHandler{cache: cache}
}

// GetPositions возвращает открытые позиции.
//
// GET /api/v1/positions
//
// Response 200 OK:
//
//	[
//	  {"ticket": 123456, "symbol": "XAUUSD", "pos_type": "BUY",
//	   "volume": 0.10, "open_price": 2010.55, "sl": 2005.30, "tp": 2021.05}
//	]
func (h *PositionsHandler) GetPositions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if h.cache == nil {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "bridge cache not initialized"})
		return
	}

	positions := h.cache.Positions()
	if positions == nil {
		positions = []models.BrokerPosition{}
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(positions)
}

// GetMarket возвращает последний тик по символу.
//
// GET /api/v1/market
//
// Response 200 OK:
//
//	{"symbol": "XAUUSD", "bid": 2010.50, "ask": 2010.80, "spread": 30}
//
// Response 503 Service Unavailable:
//
//	{"error": "no market data"}
func (h *PositionsHandler) GetMarket(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if h.cache == nil {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "bridge cache not initialized"})
		return
	}

	md, ok := h.cache.MarketData()
	if !ok {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "no market data"})
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(md)
}
