package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"goldbridge/internal/api"
	"goldbridge/internal/bot"
	"goldbridge/internal/bridge"
	"goldbridge/internal/config"
	"goldbridge/internal/indicator"
	"goldbridge/internal/ledger"
	"goldbridge/internal/models"
	"goldbridge/internal/notify"
	"goldbridge/internal/repository"
	"goldbridge/internal/risk"
	"goldbridge/internal/service"
	"goldbridge/internal/websocket"
	"goldbridge/pkg/utils"
)

// main.go - сборка и запуск торгового бота
//
// Порядок запуска:
// 1. Мост начинает слушать порт и ждёт подключения советника
// 2. Определяется рабочий символ по первому тику
// 3. Снимается состояние счёта
// 4. Запускается торговый цикл
// 5. HTTP сервер наблюдения поднимается параллельно
//
// Остановка по SIGINT/SIGTERM: торговый цикл закрывает открытую
// позицию (до 15 секунд на подтверждение), затем гасятся мост и
// HTTP сервер. Не закрытая позиция помечается в журнале
// REQUIRES_MANUAL, процесс завершается кодом 3.

// Интервал фонового broadcast статуса в веб-интерфейс
const statusBroadcastInterval = 2 * time.Second

// Время на закрытие позиции при остановке
const shutdownCloseTimeout = 15 * time.Second

// Коды завершения процесса
const (
	exitBridgeFailure  = 2
	exitRequiresManual = 3
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := utils.InitLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	// Архив в БД опционален
	var db *sql.DB
	var tradeRepo *repository.TradeRepository
	var notificationRepo *repository.NotificationRepository
	if cfg.Database.Enabled {
		db, err = repository.Connect(cfg.Database.DSN())
		if err != nil {
			logger.Fatal("failed to connect to database",
				zap.String("dsn", cfg.Database.DSNWithoutPassword()),
				zap.Error(err))
		}
		defer db.Close()

		if err := repository.EnsureSchema(db); err != nil {
			logger.Fatal("failed to ensure schema", zap.Error(err))
		}

		tradeRepo = repository.NewTradeRepository(db)
		notificationRepo = repository.NewNotificationRepository(db)
		logger.Info("trade archive enabled",
			zap.String("dsn", cfg.Database.DSNWithoutPassword()))
	}

	// Мост к терминальному советнику
	cache := bridge.NewCache()
	server := bridge.NewServer(cfg.Bridge, cache, logger)
	if err := server.Start(rootCtx); err != nil {
		logger.Error("failed to start bridge", zap.Error(err))
		exit(logger, exitBridgeFailure)
	}

	logger.Info("waiting for terminal to connect",
		zap.String("addr", cfg.Bridge.BridgeAddr()),
		zap.Duration("timeout", cfg.Bridge.ConnectTimeout))
	if err := server.WaitForConnection(rootCtx); err != nil {
		logger.Error("terminal did not connect", zap.Error(err))
		exit(logger, exitBridgeFailure)
	}

	// Определение символа по первому тику
	symbolService := service.NewSymbolService(cache, cfg.Trading.SymbolPriority, logger)
	detectCtx, detectCancel := context.WithTimeout(rootCtx, cfg.Bridge.ConnectTimeout)
	symbol, err := symbolService.Detect(detectCtx)
	detectCancel()
	if err != nil {
		logger.Error("failed to detect symbol", zap.Error(err))
		exit(logger, exitBridgeFailure)
	}

	// Снимок счёта до старта торговли
	accountService := service.NewAccountService(cache, cfg.Ledger.AccountInfoFile, logger)
	if _, err := accountService.Collect(symbol); err != nil {
		logger.Warn("failed to collect account info", zap.Error(err))
	}

	symbolInfo := symbolService.Info()

	// Журнал сделок и предохранитель
	journal := ledger.New(cfg.Ledger.Dir, cfg.Ledger.LookbackDays, symbolInfo.ContractSize, logger)
	breaker := risk.NewBreaker(cfg.Breaker, journal, logger)

	// Веб-интерфейс
	hub := websocket.NewHub(logger)
	go hub.Run()

	emailSender := notify.NewEmailSender(cfg.Email, logger)
	var archive notify.Archive
	if notificationRepo != nil {
		archive = notificationRepo
	}
	dispatcher := notify.NewDispatcher(hub, emailSender, archive, logger)
	breaker.OnPause(dispatcher.BreakerPaused)

	statsService := service.NewStatsService(journal, tradeRepo, logger)
	statsService.SetWebSocketHub(hub)

	// Торговый цикл
	calculator := risk.NewCalculator(symbolInfo, cfg.Risk.RRRatio)
	sar := indicator.New(symbol, cfg.Trading.Timeframe, cfg.Trading.SARStep, cfg.Trading.SARMax, logger)
	executor := bot.NewExecutor(server, calculator, journal, cfg.Risk.RiskPercentage, cfg.Trading.MagicNumber, logger)
	monitor := bot.NewMonitor(server, executor, nil, symbolInfo.Point, logger)
	engine := bot.NewEngine(cfg.Trading, server, sar, executor, monitor,
		breaker, &notifierFanout{dispatcher: dispatcher, stats: statsService}, logger)
	engine.Start(rootCtx)

	go broadcastLoop(rootCtx, engine, cache, hub)

	// HTTP сервер наблюдения
	deps := &api.Dependencies{
		Engine:        engine,
		Trades:        statsService,
		Stats:         statsService,
		Breaker:       breaker,
		Notifications: dispatcher,
		Cache:         cache,
		Hub:           hub,
		Logger:        logger,
	}
	router := api.SetupRoutes(cfg.API, deps)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting http server", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	closeCtx, closeCancel := context.WithTimeout(context.Background(), shutdownCloseTimeout)
	shutdownErr := engine.Shutdown(closeCtx)
	closeCancel()

	server.Stop()
	rootCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server forced to shutdown", zap.Error(err))
	}

	if shutdownErr != nil {
		logger.Error("shutdown left an open position", zap.Error(shutdownErr))
		if db != nil {
			db.Close()
		}
		exit(logger, exitRequiresManual)
	}

	logger.Info("bye")
}

// exit завершает процесс указанным кодом, сбросив буфер логгера
func exit(logger *zap.Logger, code int) {
	logger.Sync()
	os.Exit(code)
}

// notifierFanout раздаёт события движка диспетчеру и статистике
type notifierFanout struct {
	dispatcher *notify.Dispatcher
	stats      *service.StatsService
}

func (f *notifierFanout) Notify(n models.Notification) {
	f.dispatcher.Notify(n)
}

func (f *notifierFanout) TradeClosed(rec models.TradeRecord) {
	f.dispatcher.TradeClosed(rec)
	f.stats.OnTradeClosed(rec)
}

// broadcastLoop периодически шлёт статус и тик в веб-интерфейс
func broadcastLoop(ctx context.Context, engine *bot.Engine, cache *bridge.Cache, hub *websocket.Hub) {
	ticker := time.NewTicker(statusBroadcastInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if hub.ClientCount() == 0 {
				continue
			}

			status := engine.Status()
			hub.BroadcastStatus(status)

			if md, ok := cache.MarketData(); ok {
				hub.BroadcastTick(md, status.SAR)
			}
		}
	}
}
