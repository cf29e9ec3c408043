package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"goldbridge/internal/api/handlers"
	"goldbridge/internal/api/middleware"
	"goldbridge/internal/config"
	"goldbridge/internal/websocket"
)

// Dependencies содержит все зависимости для API handlers
type Dependencies struct {
	Engine        handlers.StatusProvider
	Trades        handlers.TradeReader
	Stats         handlers.StatsProvider
	Breaker       handlers.BreakerControl
	Notifications handlers.NotificationSource
	Cache         handlers.PositionSource
	Hub           *websocket.Hub
	Logger        *zap.Logger
}

// SetupRoutes настраивает все HTTP маршруты приложения
//
// Назначение:
// Центральное место для определения всех API endpoints.
// Регистрирует handlers для каждого маршрута.
// Применяет middleware к группам маршрутов.
//
// Структура маршрутов:
//
// /api/v1/
//
//	├── /status - GET: снимок состояния бота
//	├── /positions - GET: открытые позиции у брокера
//	├── /market - GET: последний тик
//	├── /trades - GET: сделки за день (?date=YYYY-MM-DD)
//	├── /trades/recent - GET: последние закрытые сделки
//	├── /stats - GET: статистика за период (?period=today|week|month)
//	├── /notifications - GET: последние события
//	└── /breaker/
//	    ├── GET / - состояние предохранителя
//	    └── POST /reset - ручной сброс паузы (админ-токен)
//
// /ws/
//
//	└── /stream - WebSocket для real-time обновлений
//
// /health - проверка живости
// /metrics - Prometheus метрики
//
// Middleware применяется в следующем порядке:
// 1. Recovery (для всех маршрутов)
// 2. Logging (для всех маршрутов)
// 3. CORS (для всех маршрутов)
// 4. AdminAuth (только для мутирующих маршрутов)
func SetupRoutes(cfg config.APIConfig, deps *Dependencies) *mux.Router {
	logger := zap.NewNop()
	if deps != nil && deps.Logger != nil {
		logger = deps.Logger
	}

	router := mux.NewRouter()

	router.Use(middleware.Recovery(logger))
	router.Use(middleware.Logging(logger))
	router.Use(middleware.CORS(cfg.AllowedOrigin))

	api := router.PathPrefix("/api/v1").Subrouter()

	if deps != nil && deps.Engine != nil {
		statusHandler := handlers.NewStatusHandler(deps.Engine)
		api.HandleFunc("/status", statusHandler.GetStatus).Methods("GET")
	}

	if deps != nil && deps.Cache != nil {
		positionsHandler := handlers.NewPositionsHandler(deps.Cache)
		api.HandleFunc("/positions", positionsHandler.GetPositions).Methods("GET")
		api.HandleFunc("/market", positionsHandler.GetMarket).Methods("GET")
	}

	if deps != nil && deps.Trades != nil {
		tradesHandler := handlers.NewTradesHandler(deps.Trades)
		api.HandleFunc("/trades", tradesHandler.GetTrades).Methods("GET")
		api.HandleFunc("/trades/recent", tradesHandler.GetRecentTrades).Methods("GET")
	}

	if deps != nil && deps.Stats != nil {
		statsHandler := handlers.NewStatsHandler(deps.Stats)
		api.HandleFunc("/stats", statsHandler.GetStats).Methods("GET")
	}

	if deps != nil && deps.Notifications != nil {
		notificationHandler := handlers.NewNotificationHandler(deps.Notifications)
		api.HandleFunc("/notifications", notificationHandler.GetNotifications).Methods("GET")
	}

	if deps != nil && deps.Breaker != nil {
		breakerHandler := handlers.NewBreakerHandler(deps.Breaker)
		api.HandleFunc("/breaker", breakerHandler.GetState).Methods("GET")

		// Мутирующие маршруты под отдельным subrouter с auth
		admin := api.PathPrefix("/breaker").Subrouter()
		admin.Use(middleware.AdminAuth(cfg.AdminKeyHash))
		admin.HandleFunc("/reset", breakerHandler.Reset).Methods("POST")
	}

	// WebSocket route
	if deps != nil && deps.Hub != nil {
		checker := websocket.NewOriginChecker(originList(cfg.AllowedOrigin))
		router.HandleFunc("/ws/stream", func(w http.ResponseWriter, r *http.Request) {
			websocket.ServeWS(deps.Hub, checker, w, r)
		})
	}

	// Health check endpoint
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	// Prometheus метрики
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	return router
}

// originList превращает настройку origin в список для OriginChecker
func originList(allowedOrigin string) []string {
	if allowedOrigin == "" || allowedOrigin == "*" {
		return nil
	}
	return []string{allowedOrigin}
}
