package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"goldbridge/internal/bridge"
	"goldbridge/internal/ledger"
	"goldbridge/internal/models"
	"goldbridge/internal/risk"
	"goldbridge/pkg/retry"
	"goldbridge/pkg/utils"
)

// executor.go - исполнитель торговых команд
//
// Назначение:
// Переводит решения бота в команды советнику: открытие с расчётом
// объёма и уровней, закрытие с повторными попытками, перестановка
// стопа. Каждое открытие и закрытие фиксируется в журнале.

// Ошибки исполнителя
var (
	ErrNoMarketData   = errors.New("no market data available")
	ErrNoAccount      = errors.New("no account info available")
	ErrRequiresManual = errors.New("open position requires manual intervention")
)

// RiskEngine рассчитывает объём и уровни позиции
type RiskEngine interface {
	SLTPByPrice(side string, entry, stopPrice float64) (*risk.Levels, error)
	PositionSize(balance, riskPct, entry, stopPrice float64) (float64, *models.RiskInfo, error)
}

// TradeLog фиксирует открытия и закрытия сделок
type TradeLog interface {
	LogOpen(rec models.TradeRecord) error
	LogClose(orderID int64, exitPrice float64, reason string, when time.Time) (*models.TradeRecord, error)
	MarkRequiresManual(orderID int64) error
}

// Executor исполняет торговые команды через мост
type Executor struct {
	server *bridge.Server
	risk   RiskEngine
	ledger TradeLog
	logger *zap.Logger

	riskPct float64
	magic   int
	comment string

	closeRetry retry.Config
}

// NewExecutor создаёт исполнителя
func NewExecutor(server *bridge.Server, riskEngine RiskEngine, ledger TradeLog, riskPct float64, magic int, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		server:     server,
		risk:       riskEngine,
		ledger:     ledger,
		logger:     logger.Named("executor"),
		riskPct:    riskPct,
		magic:      magic,
		comment:    "sar-trend",
		closeRetry: retry.AggressiveConfig(),
	}
}

// OpenPosition открывает позицию по сигналу.
//
// Цена входа берётся из последнего тика (ask для BUY, bid для SELL),
// стоп по текущему значению индикатора, тейк по соотношению R/R.
// Объём рассчитывается от баланса и процента риска.
func (e *Executor) OpenPosition(ctx context.Context, side string, reading *models.SARReading) (*models.TradeRecord, error) {
	market, ok := e.server.Cache().MarketData()
	if !ok {
		return nil, ErrNoMarketData
	}
	account, ok := e.server.Cache().AccountInfo()
	if !ok {
		return nil, ErrNoAccount
	}

	entry := market.Ask
	if side == models.SideSell {
		entry = market.Bid
	}

	levels, err := e.risk.SLTPByPrice(side, entry, reading.SAR)
	if err != nil {
		return nil, fmt.Errorf("calculate levels: %w", err)
	}

	volume, riskInfo, err := e.risk.PositionSize(account.Balance, e.riskPct, entry, levels.StopLoss)
	if err != nil {
		return nil, fmt.Errorf("calculate volume: %w", err)
	}

	start := time.Now()
	result, err := e.server.OpenOrder(ctx, side, market.Symbol, volume, levels.StopLoss, levels.TakeProfit, e.comment, e.magic)
	CommandLatency.WithLabelValues(side).Observe(float64(time.Since(start).Milliseconds()))
	if err != nil && errors.Is(err, bridge.ErrCommandTimeout) {
		// Ответ потерялся, сам ордер мог исполниться
		if adopted := e.reconcileOpen(ctx, side, market.Symbol); adopted != nil {
			e.logger.Warn("order confirmed by position reconcile",
				zap.String("side", side),
				zap.Int64("ticket", adopted.Ticket))
			result, err = adopted, nil
		}
	}
	if err != nil {
		RecordFailedTrade(side)
		e.logger.Error("order rejected",
			zap.String("side", side),
			zap.Float64("volume", volume),
			zap.Error(err))
		return nil, err
	}

	rec := models.TradeRecord{
		OrderID:               result.Ticket,
		DealID:                result.Deal,
		Symbol:                market.Symbol,
		Type:                  side,
		EntryTime:             time.Now(),
		EntryPrice:            result.Price,
		Volume:                volume,
		Leverage:              account.Leverage,
		StopLoss:              levels.StopLoss,
		TakeProfit:            levels.TakeProfit,
		AccountBalanceAtEntry: account.Balance,
		Comment:               e.comment,
		MagicNumber:           e.magic,
	}
	if rec.EntryPrice == 0 {
		rec.EntryPrice = entry
	}
	if riskInfo != nil {
		rec.RiskInfo = *riskInfo
	}

	if err := e.ledger.LogOpen(rec); err != nil {
		// Позиция уже открыта у брокера, журнал не должен её терять
		e.logger.Error("failed to record opened trade",
			zap.Int64("ticket", result.Ticket),
			zap.Error(err))
	}

	e.logger.Info("position opened",
		zap.String("side", side),
		zap.Int64("ticket", result.Ticket),
		zap.Float64("entry", rec.EntryPrice),
		zap.Float64("volume", volume),
		zap.Float64("sl", levels.StopLoss),
		zap.Float64("tp", levels.TakeProfit))

	return &rec, nil
}

// reconcileOpen запрашивает позиции после таймаута команды открытия
// и ищет исполненный, но не подтверждённый ордер по символу и стороне
func (e *Executor) reconcileOpen(ctx context.Context, side, symbol string) *bridge.OrderResult {
	positions, err := e.server.RequestPositions(ctx)
	if err != nil {
		e.logger.Warn("position reconcile failed", zap.Error(err))
		return nil
	}
	for _, pos := range positions {
		if pos.Symbol == symbol && pos.Type == side {
			return &bridge.OrderResult{
				Success: true,
				Ticket:  pos.Ticket,
				Price:   pos.OpenPrice,
			}
		}
	}
	return nil
}

// ClosePosition закрывает позицию по тикету с повторными попытками.
//
// Закрытие критично: команда повторяется по AggressiveConfig, пока
// советник не подтвердит исполнение или не кончатся попытки.
// Результат фиксируется в журнале с фактической ценой выхода.
func (e *Executor) ClosePosition(ctx context.Context, ticket int64, reason string) (*models.TradeRecord, error) {
	var result *bridge.OrderResult

	err := retry.Do(ctx, func() error {
		res, err := e.server.ClosePosition(ctx, ticket)
		if err != nil {
			// Отказ терминала с текстом ошибки повторять бессмысленно
			if errors.Is(err, bridge.ErrOrderRejected) {
				return retry.Permanent(err)
			}
			return err
		}
		result = res
		return nil
	}, e.withRetryLog(e.closeRetry, "CLOSE", ticket))
	if err != nil {
		e.logger.Error("failed to close position",
			zap.Int64("ticket", ticket),
			zap.Error(err))
		return nil, err
	}

	exitPrice := result.Price
	if exitPrice == 0 {
		if market, ok := e.server.Cache().MarketData(); ok {
			exitPrice = market.Mid()
		}
	}

	rec, err := e.ledger.LogClose(ticket, exitPrice, reason, time.Now())
	if err != nil {
		if errors.Is(err, ledger.ErrTradeNotFound) {
			e.logger.Warn("closed position missing from ledger",
				zap.Int64("ticket", ticket))
			return nil, nil
		}
		return nil, err
	}

	if rec.ProfitLoss != nil {
		RecordTrade(rec.Type, *rec.ProfitLoss)
	}

	e.logger.Info("position closed",
		zap.Int64("ticket", ticket),
		zap.Float64("exit", exitPrice),
		zap.String("reason", reason))

	return rec, nil
}

// ModifyStopLoss переставляет стоп открытой позиции, тейк не трогается
func (e *Executor) ModifyStopLoss(ctx context.Context, pos models.BrokerPosition, newSL float64) error {
	newSL = utils.RoundToDigits(newSL, 2)

	if _, err := e.server.ModifyPosition(ctx, pos.Ticket, newSL, pos.TakeProfit); err != nil {
		return fmt.Errorf("modify ticket %d: %w", pos.Ticket, err)
	}

	TrailingUpdatesTotal.Inc()
	e.logger.Info("stop loss moved",
		zap.Int64("ticket", pos.Ticket),
		zap.Float64("old_sl", pos.StopLoss),
		zap.Float64("new_sl", newSL))
	return nil
}

// RecordBrokerClose дописывает в журнал закрытие, выполненное самим
// брокером (SL/TP сработал на стороне терминала)
func (e *Executor) RecordBrokerClose(ticket int64, exitPrice float64) (*models.TradeRecord, error) {
	rec, err := e.ledger.LogClose(ticket, exitPrice, models.ExitReasonBroker, time.Now())
	if err != nil {
		return nil, err
	}
	if rec.ProfitLoss != nil {
		RecordTrade(rec.Type, *rec.ProfitLoss)
	}
	return rec, nil
}

// MarkRequiresManual помечает в журнале позицию, оставшуюся открытой
// после неудачного закрытия при остановке
func (e *Executor) MarkRequiresManual(ticket int64) error {
	return e.ledger.MarkRequiresManual(ticket)
}

// withRetryLog добавляет логирование повторов в конфигурацию
func (e *Executor) withRetryLog(cfg retry.Config, action string, ticket int64) retry.Config {
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		e.logger.Warn("retrying command",
			zap.String("action", action),
			zap.Int64("ticket", ticket),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err))
	}
	return cfg
}
