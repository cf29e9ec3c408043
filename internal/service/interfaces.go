package service

import (
	"time"

	"goldbridge/internal/ledger"
	"goldbridge/internal/models"
)

// TradeJournal - интерфейс журнала сделок для сервисов
type TradeJournal interface {
	TradesForDay(day time.Time) ([]models.TradeRecord, error)
	RecentClosed(n int) ([]models.TradeRecord, error)
	StatsForDay(day time.Time) (models.Stats, error)
	StatsRange(from, to time.Time) (models.Stats, error)
}

// StatsBroadcaster - интерфейс отправки статистики в веб-интерфейс
type StatsBroadcaster interface {
	BroadcastStats(stats models.Stats)
}

// Проверяем, что журнал реализует интерфейс
var _ TradeJournal = (*ledger.Ledger)(nil)
