package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"goldbridge/internal/bridge"
	"goldbridge/internal/config"
	"goldbridge/internal/indicator"
	"goldbridge/internal/models"
	"goldbridge/internal/risk"
)

// engine.go - главный торговый цикл
//
// Назначение:
// Конечный автомат WAITING_FOR_SIGNAL -> OPENING -> MONITORING ->
// CLOSED. В ожидании сигнала опрашивается индикатор, перед входом
// проверяется предохранитель и дневной лимит. После закрытия цикл
// возвращается в ожидание сигнала.

// Notifier рассылает события бота
type Notifier interface {
	Notify(n models.Notification)
	TradeClosed(rec models.TradeRecord)
}

// nopNotifier используется при отсутствии настроенных уведомлений
type nopNotifier struct{}

func (nopNotifier) Notify(models.Notification)       {}
func (nopNotifier) TradeClosed(models.TradeRecord)   {}

// Engine управляет торговым циклом
type Engine struct {
	cfg      config.TradingConfig
	server   *bridge.Server
	sar      *indicator.SAR
	executor *Executor
	monitor  *Monitor
	breaker  *risk.Breaker
	notifier Notifier
	logger   *zap.Logger

	mu          sync.Mutex
	state       string
	openTicket  int64
	currentSide string
	lastReading *models.SARReading

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewEngine создаёт торговый цикл
func NewEngine(cfg config.TradingConfig, server *bridge.Server, sar *indicator.SAR, executor *Executor, monitor *Monitor, breaker *risk.Breaker, notifier Notifier, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}
	e := &Engine{
		cfg:      cfg,
		server:   server,
		sar:      sar,
		executor: executor,
		monitor:  monitor,
		breaker:  breaker,
		notifier: notifier,
		logger:   logger.Named("engine"),
		state:    models.StateWaitingForSignal,
	}
	// Монитор без источника сигналов получает движок
	if monitor != nil && monitor.signals == nil {
		monitor.signals = e
	}
	UpdateBotState(e.state)
	return e
}

// Reading запрашивает бары у советника и считает индикатор.
// Реализует источник сигналов для монитора.
func (e *Engine) Reading(ctx context.Context) (*models.SARReading, error) {
	candles, err := e.server.GetRates(ctx, e.cfg.RatesCount, e.cfg.Timeframe)
	if err != nil {
		return nil, fmt.Errorf("get rates: %w", err)
	}

	market, ok := e.server.Cache().MarketData()
	if !ok {
		return nil, ErrNoMarketData
	}

	reading, err := e.sar.Snapshot(candles, market.Bid)
	if err != nil {
		return nil, err
	}

	SARValue.Set(reading.SAR)

	e.mu.Lock()
	e.lastReading = reading
	e.mu.Unlock()
	return reading, nil
}

// Start запускает торговый цикл в фоне
func (e *Engine) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel

	e.wg.Add(1)
	go e.run(ctx)
	e.logger.Info("trading loop started",
		zap.Int("timeframe", e.cfg.Timeframe),
		zap.String("desired_signal", e.cfg.DesiredSignal))
}

// Stop останавливает цикл, открытая позиция остаётся у брокера
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
	e.wg.Wait()
	e.setState(models.StateStopped)
	e.logger.Info("trading loop stopped")
}

// Shutdown останавливает цикл и закрывает открытую позицию.
// На подтверждение закрытия отводится время контекста. Позиция,
// которую закрыть не удалось, помечается в журнале REQUIRES_MANUAL,
// возвращается ErrRequiresManual.
func (e *Engine) Shutdown(ctx context.Context) error {
	if e.cancel != nil {
		e.cancel()
	}
	e.wg.Wait()

	e.mu.Lock()
	ticket := e.openTicket
	e.mu.Unlock()

	var err error
	if ticket != 0 {
		e.logger.Info("closing open position before shutdown",
			zap.Int64("ticket", ticket))

		rec, closeErr := e.executor.ClosePosition(ctx, ticket, models.ExitReasonShutdown)
		if closeErr != nil {
			e.logger.Error("failed to close position on shutdown",
				zap.Int64("ticket", ticket),
				zap.Error(closeErr))
			if markErr := e.executor.MarkRequiresManual(ticket); markErr != nil {
				e.logger.Error("failed to mark position in ledger",
					zap.Int64("ticket", ticket),
					zap.Error(markErr))
			}
			err = fmt.Errorf("ticket %d: %w", ticket, ErrRequiresManual)
		} else {
			e.mu.Lock()
			e.openTicket = 0
			e.currentSide = ""
			e.mu.Unlock()
			if rec != nil {
				e.notifier.TradeClosed(*rec)
			}
		}
	}

	e.setState(models.StateStopped)
	e.logger.Info("trading loop stopped")
	return err
}

// State возвращает текущее состояние цикла
func (e *Engine) State() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Status собирает срез состояния для API и веб-интерфейса
func (e *Engine) Status() models.BotStatus {
	e.mu.Lock()
	state := e.state
	ticket := e.openTicket
	reading := e.lastReading
	e.mu.Unlock()

	var openTicketPtr *int64
	if ticket != 0 {
		openTicketPtr = &ticket
	}

	st := models.BotStatus{
		State:           state,
		BridgeConnected: e.server.IsConnected(),
		DesiredSignal:   e.cfg.DesiredSignal,
		OpenTicket:      openTicketPtr,
		SAR:             reading,
		Breaker:         e.breaker.State(),
		UpdatedAt:       time.Now(),
	}
	if market, ok := e.server.Cache().MarketData(); ok {
		st.Symbol = market.Symbol
	}
	if account, ok := e.server.Cache().AccountInfo(); ok {
		st.Account = &account
	}
	return st
}

// run крутит конечный автомат до отмены контекста
func (e *Engine) run(ctx context.Context) {
	defer e.wg.Done()

	for {
		interval := e.cfg.SignalCheckInterval
		if e.State() == models.StateMonitoring {
			interval = e.cfg.PositionCheckInterval
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}

		if !e.server.IsConnected() {
			continue
		}
		e.updateRuntimeMetrics()

		switch e.State() {
		case models.StateWaitingForSignal:
			e.tickWaiting(ctx)
		case models.StateMonitoring:
			e.tickMonitoring(ctx)
		case models.StatePaused:
			e.tickPaused()
		case models.StateClosed:
			e.setState(models.StateWaitingForSignal)
		}
	}
}

// tickWaiting один шаг ожидания сигнала
func (e *Engine) tickWaiting(ctx context.Context) {
	if allowed, reason := e.breaker.Allow(); !allowed {
		e.pause(reason)
		return
	}
	if account, ok := e.server.Cache().AccountInfo(); ok {
		if allowed, reason := e.breaker.CheckDailyLoss(account.Balance); !allowed {
			e.pause(reason)
			return
		}
		UpdateAccount(account.Balance, account.Equity)
	}

	reading, err := e.Reading(ctx)
	if err != nil {
		e.logger.Warn("signal check failed", zap.Error(err))
		return
	}

	signal := reading.Signal
	if signal == "" {
		return
	}

	if !e.signalAllowed(signal) {
		SignalsTotal.WithLabelValues(signal, "rejected_filter").Inc()
		return
	}

	SignalsTotal.WithLabelValues(signal, "entered").Inc()
	e.openPosition(ctx, signal, reading)
}

// openPosition выполняет переход OPENING и открывает позицию
func (e *Engine) openPosition(ctx context.Context, side string, reading *models.SARReading) {
	e.setState(models.StateOpening)

	rec, err := e.executor.OpenPosition(ctx, side, reading)
	if err != nil {
		e.logger.Warn("entry failed, returning to signal wait",
			zap.String("side", side),
			zap.Error(err))
		e.setState(models.StateWaitingForSignal)
		return
	}

	e.mu.Lock()
	e.openTicket = rec.OrderID
	e.currentSide = side
	e.mu.Unlock()

	e.notifier.Notify(models.Notification{
		Timestamp: time.Now(),
		Type:      models.NotificationTypeOpen,
		Severity:  models.SeverityInfo,
		Ticket:    &rec.OrderID,
		Message: fmt.Sprintf("%s %.2f %s @ %.2f, SL %.2f, TP %.2f",
			side, rec.Volume, rec.Symbol, rec.EntryPrice, rec.StopLoss, rec.TakeProfit),
	})

	e.setState(models.StateMonitoring)
}

// tickMonitoring один шаг сопровождения позиции
func (e *Engine) tickMonitoring(ctx context.Context) {
	e.mu.Lock()
	ticket := e.openTicket
	e.mu.Unlock()
	if ticket == 0 {
		e.setState(models.StateWaitingForSignal)
		return
	}

	outcome, rec, err := e.monitor.Check(ctx, ticket)
	if err != nil {
		e.logger.Warn("position check failed",
			zap.Int64("ticket", ticket),
			zap.Error(err))
		return
	}

	if outcome == OutcomeHolding {
		return
	}

	e.finishTrade(ticket, rec, outcome)
}

// finishTrade завершает сделку и возвращает цикл в ожидание
func (e *Engine) finishTrade(ticket int64, rec *models.TradeRecord, outcome CheckOutcome) {
	e.mu.Lock()
	e.openTicket = 0
	e.currentSide = ""
	e.mu.Unlock()

	notifyType := models.NotificationTypeClose
	if outcome == OutcomeClosedByReversal {
		notifyType = models.NotificationTypeReversal
	}

	msg := fmt.Sprintf("ticket %d closed", ticket)
	severity := models.SeverityInfo
	if rec != nil && rec.ProfitLoss != nil {
		msg = fmt.Sprintf("ticket %d closed, P/L %.2f (%s)", ticket, *rec.ProfitLoss, rec.ExitReason)
		if *rec.ProfitLoss < 0 {
			severity = models.SeverityWarn
		}
	}
	e.notifier.Notify(models.Notification{
		Timestamp: time.Now(),
		Type:      notifyType,
		Severity:  severity,
		Ticket:    &ticket,
		Message:   msg,
	})
	if rec != nil {
		e.notifier.TradeClosed(*rec)
	}

	e.setState(models.StateClosed)
}

// tickPaused проверяет, не истекла ли пауза предохранителя
func (e *Engine) tickPaused() {
	if allowed, _ := e.breaker.Allow(); allowed {
		e.logger.Info("trading pause lifted")
		e.setState(models.StateWaitingForSignal)
	}
}

// pause переводит цикл в паузу предохранителя
func (e *Engine) pause(reason string) {
	if e.State() == models.StatePaused {
		return
	}
	e.logger.Warn("trading paused by circuit breaker",
		zap.String("reason", reason))
	e.setState(models.StatePaused)
	BreakerPaused.Set(1)
}

// signalAllowed сверяет сигнал с настройкой desired_signal
func (e *Engine) signalAllowed(signal string) bool {
	switch e.cfg.DesiredSignal {
	case "BOTH", "":
		return true
	default:
		return e.cfg.DesiredSignal == signal
	}
}

// setState переводит автомат с проверкой допустимости перехода
func (e *Engine) setState(to string) {
	e.mu.Lock()
	from := e.state
	if from == to {
		e.mu.Unlock()
		return
	}
	if !CanTransition(from, to) {
		e.mu.Unlock()
		e.logger.Error("invalid state transition",
			zap.String("from", from),
			zap.String("to", to))
		return
	}
	e.state = to
	e.mu.Unlock()

	if to != models.StatePaused {
		BreakerPaused.Set(0)
	}
	UpdateBotState(to)
	e.logger.Info("state changed",
		zap.String("from", from),
		zap.String("to", to))
}

// updateRuntimeMetrics обновляет метрики моста и счёта
func (e *Engine) updateRuntimeMetrics() {
	age := e.server.Cache().Age(time.Now())
	seconds := -1.0
	if age >= 0 {
		seconds = age.Seconds()
	}
	UpdateBridgeStatus(e.server.IsConnected(), seconds)

	state := e.breaker.State()
	ConsecutiveLosses.Set(float64(state.ConsecutiveLosses))
}

var _ SignalSource = (*Engine)(nil)
