package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"goldbridge/internal/models"
)

// symbol_service.go - определение торгового символа
//
// Назначение:
// У разных брокеров золото называется по-разному: XAUUSD, XAUUSD.,
// GOLD. Советник шлёт тики по символу своего графика, поэтому сперва
// берём символ из рыночных данных, и только без них - первый из
// настроенного списка приоритетов.

// Частота опроса кэша при ожидании первого тика
const detectPollInterval = 500 * time.Millisecond

// MarketSource отдаёт рыночные данные из кэша моста
type MarketSource interface {
	MarketData() (models.MarketData, bool)
	SymbolInfo() (models.SymbolInfo, bool)
}

// SymbolService определяет рабочий символ и его торговые параметры
type SymbolService struct {
	source   MarketSource
	priority []string
	logger   *zap.Logger

	symbol string
}

// NewSymbolService создаёт сервис. priority - список символов в порядке
// предпочтения, используется если советник ещё не прислал тик.
func NewSymbolService(source MarketSource, priority []string, logger *zap.Logger) *SymbolService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SymbolService{
		source:   source,
		priority: priority,
		logger:   logger.Named("symbol"),
	}
}

// Detect определяет рабочий символ.
//
// Ждёт первый тик от советника до отмены контекста: символ графика
// советника всегда точнее списка приоритетов. Если контекст истёк, а
// тика нет, берёт первый символ из списка приоритетов.
func (s *SymbolService) Detect(ctx context.Context) (string, error) {
	ticker := time.NewTicker(detectPollInterval)
	defer ticker.Stop()

	for {
		if md, ok := s.source.MarketData(); ok && md.Symbol != "" {
			s.symbol = md.Symbol
			s.logger.Info("symbol detected from terminal",
				zap.String("symbol", s.symbol),
				zap.Float64("bid", md.Bid))
			return s.symbol, nil
		}

		select {
		case <-ctx.Done():
			if len(s.priority) == 0 {
				return "", fmt.Errorf("detect symbol: %w", ctx.Err())
			}
			s.symbol = s.priority[0]
			s.logger.Warn("no market data yet, falling back to priority list",
				zap.String("symbol", s.symbol),
				zap.String("priority", strings.Join(s.priority, ",")))
			return s.symbol, nil
		case <-ticker.C:
		}
	}
}

// Symbol возвращает определённый ранее символ.
// Пустая строка, если Detect ещё не вызывался.
func (s *SymbolService) Symbol() string {
	return s.symbol
}

// Info возвращает торговые параметры символа.
// Пока советник не прислал параметры, действуют значения XAUUSD
// по умолчанию.
func (s *SymbolService) Info() models.SymbolInfo {
	if info, ok := s.source.SymbolInfo(); ok {
		return info
	}

	symbol := s.symbol
	if symbol == "" && len(s.priority) > 0 {
		symbol = s.priority[0]
	}
	return models.DefaultGoldSymbolInfo(symbol)
}
