package handlers

import (
	"encoding/json"
	"net/http"

	"goldbridge/internal/models"
)

// BreakerControl управляет предохранителем торговли
type BreakerControl interface {
	State() models.BreakerState
	Reset()
}

// BreakerHandler обрабатывает HTTP запросы предохранителя.
//
// Endpoints:
// - GET /api/v1/breaker - текущее состояние предохранителя
// - POST /api/v1/breaker/reset - ручной сброс паузы (требует админ-токен)
type BreakerHandler struct {
	breaker BreakerControl
}

// NewBreakerHandler создает новый BreakerHandler с внедрением зависимостей.
func NewBreakerHandler(breaker BreakerControl) *BreakerHandler {
	return &BreakerHandler{breaker: breaker}
}

// GetState возвращает состояние предохранителя.
//
// GET /api/v1/breaker
//
// Response 200 OK:
//
//	{
//	  "is_paused": true,
//	  "pause_reason": "3 consecutive losses",
//	  "pause_start_time": "2026-08-06T10:00:00Z",
//	  "pause_end_time": "2026-08-06T12:00:00Z",
//	  "consecutive_losses": 3,
//	  "total_pause_count": 2
//	}
func (h *BreakerHandler) GetState(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if h.breaker == nil {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "breaker not initialized"})
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(h.breaker.State())
}

// Reset снимает паузу предохранителя.
//
// POST /api/v1/breaker/reset
//
// Счётчик убыточных сделок подряд не трогаем: он считается по журналу,
// сбрасывается только время паузы.
//
// Response 200 OK:
//
//	{"message": "breaker reset"}
func (h *BreakerHandler) Reset(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if h.breaker == nil {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "breaker not initialized"})
		return
	}

	h.breaker.Reset()

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(SuccessResponse{Message: "breaker reset"})
}
