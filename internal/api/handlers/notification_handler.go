package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"goldbridge/internal/models"
)

// NotificationSource отдаёт последние уведомления из кольцевого буфера
type NotificationSource interface {
	Recent(n int) []models.Notification
}

// NotificationHandler обрабатывает HTTP запросы уведомлений.
//
// Endpoints:
// - GET /api/v1/notifications?limit=50 - последние события бота
//
// Уведомления хранятся в памяти (последние 100), долговременный архив
// живёт в БД и наполняется диспетчером асинхронно.
type NotificationHandler struct {
	source NotificationSource
}

// NewNotificationHandler создает новый NotificationHandler с внедрением зависимостей.
func NewNotificationHandler(source NotificationSource) *NotificationHandler {
	return &NotificationHandler{source: source}
}

// GetNotifications возвращает последние уведомления от новых к старым.
//
// GET /api/v1/notifications?limit=50
//
// Query Parameters:
// - limit (optional): количество уведомлений (по умолчанию 50, максимум 100)
//
// Response 200 OK:
//
//	[
//	  {"id": 7, "type": "trade_closed", "severity": "info", "message": "..."},
//	  {"id": 6, "type": "breaker", "severity": "warning", "message": "..."}
//	]
func (h *NotificationHandler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if h.source == nil {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "notifications not initialized"})
		return
	}

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
			if limit > 100 {
				limit = 100
			}
		}
	}

	notifications := h.source.Recent(limit)
	if notifications == nil {
		notifications = []models.Notification{}
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(notifications)
}
