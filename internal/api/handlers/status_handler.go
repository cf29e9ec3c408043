package handlers

import (
	"encoding/json"
	"net/http"

	"goldbridge/internal/models"
)

// StatusProvider отдаёт снимок состояния бота
type StatusProvider interface {
	Status() models.BotStatus
}

// StatusHandler обрабатывает HTTP запросы состояния бота.
//
// Endpoints:
// - GET /api/v1/status - текущее состояние торгового цикла
//
// Снимок включает:
// - Состояние конечного автомата (WAITING_FOR_SIGNAL, MONITORING, ...)
// - Подключение советника к мосту
// - Последнее показание индикатора
// - Состояние счёта и предохранителя
type StatusHandler struct {
	engine StatusProvider
}

// NewStatusHandler создает новый StatusHandler с внедрением зависимостей.
func NewStatusHandler(engine StatusProvider) *StatusHandler {
	return &StatusHandler{engine: engine}
}

// GetStatus возвращает снимок состояния бота.
//
// GET /api/v1/status
//
// Response 200 OK:
//
//	{
//	  "state": "MONITORING",
//	  "symbol": "XAUUSD",
//	  "bridge_connected": true,
//	  "desired_signal": "BOTH",
//	  "open_ticket": 123456,
//	  "sar": {"sar_value": 2010.55, "trend": "UPTREND", "trend_signal": "BUY"},
//	  "account": {"balance": 10000, "equity": 10012.5},
//	  "breaker": {"is_paused": false, "consecutive_losses": 0}
//	}
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if h.engine == nil {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "engine not initialized"})
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(h.engine.Status())
}
