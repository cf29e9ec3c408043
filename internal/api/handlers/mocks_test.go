package handlers

import (
	"errors"
	"time"

	"goldbridge/internal/models"
	"goldbridge/internal/service"
)

// Общая ошибка для имитации отказов нижнего слоя
var ErrMockJournal = errors.New("journal failure")

// ============ Mock Status Provider ============

type MockStatusProvider struct {
	status models.BotStatus
}

func (m *MockStatusProvider) Status() models.BotStatus {
	return m.status
}

// ============ Mock Stats Service ============

type MockStatsService struct {
	stats  models.Stats
	err    error
	period string
}

func (m *MockStatsService) GetStats(period string) (models.Stats, error) {
	m.period = period
	if m.err != nil {
		return models.Stats{}, m.err
	}
	if period != "" && period != service.PeriodToday && period != service.PeriodWeek && period != service.PeriodMonth {
		return models.Stats{}, service.ErrUnknownPeriod
	}
	return m.stats, nil
}

// ============ Mock Trade Reader ============

type MockTradeReader struct {
	byDay  []models.TradeRecord
	recent []models.TradeRecord
	err    error

	day   time.Time
	limit int
}

func (m *MockTradeReader) TradesForDate(day time.Time) ([]models.TradeRecord, error) {
	m.day = day
	return m.byDay, m.err
}

func (m *MockTradeReader) RecentTrades(limit int) ([]models.TradeRecord, error) {
	m.limit = limit
	return m.recent, m.err
}

// ============ Mock Breaker ============

type MockBreaker struct {
	state      models.BreakerState
	resetCalls int
}

func (m *MockBreaker) State() models.BreakerState {
	return m.state
}

func (m *MockBreaker) Reset() {
	m.resetCalls++
	m.state = models.BreakerState{}
}

// ============ Mock Position Source ============

type MockPositionSource struct {
	positions []models.BrokerPosition
	market    models.MarketData
	hasMarket bool
}

func (m *MockPositionSource) Positions() []models.BrokerPosition {
	return m.positions
}

func (m *MockPositionSource) MarketData() (models.MarketData, bool) {
	return m.market, m.hasMarket
}

// ============ Mock Notification Source ============

type MockNotificationSource struct {
	notifications []models.Notification
	limit         int
}

func (m *MockNotificationSource) Recent(n int) []models.Notification {
	m.limit = n
	if n < len(m.notifications) {
		return m.notifications[:n]
	}
	return m.notifications
}
