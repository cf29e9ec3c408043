package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"goldbridge/internal/models"
)

// Формат даты в query-параметрах
const dateLayout = "2006-01-02"

// TradeReader отдаёт сделки из журнала
type TradeReader interface {
	TradesForDate(day time.Time) ([]models.TradeRecord, error)
	RecentTrades(limit int) ([]models.TradeRecord, error)
}

// TradesHandler обрабатывает HTTP запросы истории сделок.
//
// Endpoints:
// - GET /api/v1/trades?date=2026-08-06 - сделки за день
// - GET /api/v1/trades/recent?limit=20 - последние закрытые сделки
type TradesHandler struct {
	trades TradeReader
}

// NewTradesHandler создает новый TradesHandler с внедрением зависимостей.
func NewTradesHandler(trades TradeReader) *TradesHandler {
	return &TradesHandler{trades: trades}
}

// GetTrades возвращает сделки за указанный день.
//
// GET /api/v1/trades?date=2026-08-06
//
// Query Parameters:
// - date (optional): день в формате YYYY-MM-DD, по умолчанию сегодня
//
// Response 200 OK: массив записей журнала (пустой массив, если сделок нет)
//
// Response 400 Bad Request:
//
//	{"error": "invalid date", "details": "..."}
func (h *TradesHandler) GetTrades(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if h.trades == nil {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "trade journal not initialized"})
		return
	}

	day := time.Now()
	if dateStr := r.URL.Query().Get("date"); dateStr != "" {
		parsed, err := time.ParseInLocation(dateLayout, dateStr, time.Local)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(ErrorResponse{
				Error:   "invalid date",
				Details: err.Error(),
			})
			return
		}
		day = parsed
	}

	records, err := h.trades.TradesForDate(day)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(ErrorResponse{
			Error:   "failed to read trades",
			Details: err.Error(),
		})
		return
	}

	if records == nil {
		records = []models.TradeRecord{}
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(records)
}

// GetRecentTrades возвращает последние закрытые сделки от новых к старым.
//
// GET /api/v1/trades/recent?limit=20
//
// Query Parameters:
// - limit (optional): количество сделок (по умолчанию 20, максимум 100)
func (h *TradesHandler) GetRecentTrades(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if h.trades == nil {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "trade journal not initialized"})
		return
	}

	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
			if limit > 100 {
				limit = 100
			}
		}
	}

	records, err := h.trades.RecentTrades(limit)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(ErrorResponse{
			Error:   "failed to read trades",
			Details: err.Error(),
		})
		return
	}

	if records == nil {
		records = []models.TradeRecord{}
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(records)
}
