package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"goldbridge/internal/models"
	"goldbridge/internal/service"
)

// StatsProvider отдаёт агрегированную статистику журнала
type StatsProvider interface {
	GetStats(period string) (models.Stats, error)
}

// StatsHandler обрабатывает HTTP запросы статистики работы бота.
//
// Endpoints:
// - GET /api/v1/stats?period=today|week|month - статистика за период
//
// Статистика включает:
// - Количество сделок и открытых позиций
// - Винрейт и серию убытков подряд
// - Валовую прибыль, валовой убыток и чистый результат
type StatsHandler struct {
	statsService StatsProvider
}

// NewStatsHandler создает новый StatsHandler с внедрением зависимостей.
func NewStatsHandler(statsService StatsProvider) *StatsHandler {
	return &StatsHandler{
		statsService: statsService,
	}
}

// GetStats возвращает статистику за период.
//
// GET /api/v1/stats?period=today|week|month
//
// Query Parameters:
// - period (optional): "today" (default), "week" или "month"
//
// Response 200 OK:
//
//	{
//	  "total_trades": 12,
//	  "open_trades": 1,
//	  "closed_trades": 11,
//	  "wins": 7,
//	  "losses": 4,
//	  "win_rate": 63.6,
//	  "gross_profit": 412.10,
//	  "gross_loss": -180.40,
//	  "net_profit": 231.70,
//	  "consecutive_losses": 0
//	}
//
// Response 400 Bad Request:
//
//	{"error": "invalid period", "details": "unknown stats period"}
func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if h.statsService == nil {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "stats service not initialized"})
		return
	}

	period := r.URL.Query().Get("period")

	stats, err := h.statsService.GetStats(period)
	if err != nil {
		if errors.Is(err, service.ErrUnknownPeriod) {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(ErrorResponse{
				Error:   "invalid period",
				Details: err.Error(),
			})
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(ErrorResponse{
			Error:   "failed to get stats",
			Details: err.Error(),
		})
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(stats)
}
