package bot

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"goldbridge/internal/bridge"
	"goldbridge/internal/models"
)

// monitor.go - сопровождение открытой позиции
//
// Назначение:
// Периодическая проверка открытой позиции: исчезновение у брокера
// (сработал SL/TP на стороне терминала), разворот индикатора и
// подтяжка стопа вслед за индикатором. Стоп двигается только в
// сторону позиции, никогда назад.

// Исходы одной проверки позиции
type CheckOutcome int

const (
	// Позиция открыта, продолжаем сопровождение
	OutcomeHolding CheckOutcome = iota
	// Позиция закрыта брокером (SL/TP в терминале)
	OutcomeClosedByBroker
	// Позиция закрыта по развороту индикатора
	OutcomeClosedByReversal
	// Позиция закрыта принудительно: цена за стопом, а стоп у
	// брокера не сработал (гэп или проскальзывание)
	OutcomeClosedByEmergency
)

// SignalSource выдаёт текущее показание индикатора
type SignalSource interface {
	Reading(ctx context.Context) (*models.SARReading, error)
}

// Monitor сопровождает открытую позицию
type Monitor struct {
	server   *bridge.Server
	executor *Executor
	signals  SignalSource
	logger   *zap.Logger

	// Минимальный сдвиг стопа, отсекает дрожание индикатора
	minSLStep float64
}

// NewMonitor создаёт монитор позиции
func NewMonitor(server *bridge.Server, executor *Executor, signals SignalSource, minSLStep float64, logger *zap.Logger) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if minSLStep <= 0 {
		minSLStep = 0.01
	}
	return &Monitor{
		server:    server,
		executor:  executor,
		signals:   signals,
		logger:    logger.Named("monitor"),
		minSLStep: minSLStep,
	}
}

// Check выполняет одну проверку позиции по тикету.
//
// Порядок: сверка с брокером, разворот индикатора, контроль цены
// за стопом, затем подтяжка стопа. Возвращает исход и запись сделки,
// если позиция была закрыта на этой проверке.
func (m *Monitor) Check(ctx context.Context, ticket int64) (CheckOutcome, *models.TradeRecord, error) {
	positions, err := m.server.RequestPositions(ctx)
	if err != nil {
		return OutcomeHolding, nil, fmt.Errorf("refresh positions: %w", err)
	}

	var pos *models.BrokerPosition
	for i := range positions {
		if positions[i].Ticket == ticket {
			pos = &positions[i]
			break
		}
	}

	if pos == nil {
		// Позицию закрыл брокер, цена выхода - последний известный тик
		exitPrice := 0.0
		if market, ok := m.server.Cache().MarketData(); ok {
			exitPrice = market.Mid()
		}
		m.logger.Info("position closed at broker",
			zap.Int64("ticket", ticket),
			zap.Float64("exit_estimate", exitPrice))

		rec, err := m.executor.RecordBrokerClose(ticket, exitPrice)
		if err != nil {
			m.logger.Warn("failed to record broker close",
				zap.Int64("ticket", ticket),
				zap.Error(err))
		}
		return OutcomeClosedByBroker, rec, nil
	}

	reading, err := m.signals.Reading(ctx)
	if err != nil {
		// Без индикатора разворот и подтяжка стопа пропускаются,
		// контроль стопа по цене остаётся
		m.logger.Warn("indicator unavailable", zap.Error(err))
		reading = nil
	}

	if reading != nil && reversed(pos.Type, reading.Trend) {
		m.logger.Info("indicator reversal, closing position",
			zap.Int64("ticket", ticket),
			zap.String("side", pos.Type),
			zap.String("trend", reading.Trend))

		rec, err := m.executor.ClosePosition(ctx, ticket, models.ExitReasonSARReversal)
		if err != nil {
			return OutcomeHolding, nil, fmt.Errorf("close on reversal: %w", err)
		}
		return OutcomeClosedByReversal, rec, nil
	}

	if market, ok := m.server.Cache().MarketData(); ok && slBreached(*pos, market) {
		m.logger.Warn("price beyond stop loss, forcing close",
			zap.Int64("ticket", ticket),
			zap.String("side", pos.Type),
			zap.Float64("sl", pos.StopLoss),
			zap.Float64("bid", market.Bid),
			zap.Float64("ask", market.Ask))

		rec, err := m.executor.ClosePosition(ctx, ticket, models.ExitReasonEmergencySL)
		if err != nil {
			return OutcomeHolding, nil, fmt.Errorf("emergency close: %w", err)
		}
		return OutcomeClosedByEmergency, rec, nil
	}

	if reading == nil {
		return OutcomeHolding, nil, nil
	}

	if err := m.trail(ctx, *pos, reading); err != nil {
		m.logger.Warn("trailing stop update failed",
			zap.Int64("ticket", ticket),
			zap.Error(err))
	}

	return OutcomeHolding, nil, nil
}

// slBreached возвращает true, когда цена прошла за стоп, а позиция
// всё ещё открыта: брокерский стоп не сработал
func slBreached(pos models.BrokerPosition, market models.MarketData) bool {
	if pos.StopLoss == 0 {
		return false
	}
	switch pos.Type {
	case models.SideBuy:
		return market.Bid <= pos.StopLoss
	case models.SideSell:
		return market.Ask >= pos.StopLoss
	}
	return false
}

// trail подтягивает стоп вслед за индикатором
func (m *Monitor) trail(ctx context.Context, pos models.BrokerPosition, reading *models.SARReading) error {
	newSL := reading.SAR

	switch pos.Type {
	case models.SideBuy:
		// Для покупки стоп только поднимается
		if pos.StopLoss != 0 && newSL <= pos.StopLoss+m.minSLStep {
			return nil
		}
		if newSL >= reading.Price {
			// Индикатор выше цены, стоп с неправильной стороны
			return nil
		}
	case models.SideSell:
		if pos.StopLoss != 0 && newSL >= pos.StopLoss-m.minSLStep {
			return nil
		}
		if newSL <= reading.Price {
			return nil
		}
	default:
		return fmt.Errorf("unknown position type %q", pos.Type)
	}

	err := m.executor.ModifyStopLoss(ctx, pos, newSL)
	if err != nil && errors.Is(err, bridge.ErrNotConnected) {
		// Советник отвалился, стоп останется прежним до переподключения
		return nil
	}
	return err
}

// reversed возвращает true, если тренд индикатора против позиции
func reversed(side, trend string) bool {
	switch side {
	case models.SideBuy:
		return trend == models.TrendDown
	case models.SideSell:
		return trend == models.TrendUp
	}
	return false
}
