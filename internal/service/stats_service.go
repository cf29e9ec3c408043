package service

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"goldbridge/internal/models"
	"goldbridge/internal/repository"
	"goldbridge/pkg/utils"
)

// stats_service.go - агрегированная статистика по журналу сделок
//
// Назначение:
// Журнал в дневных JSON-файлах первичен, сервис считает статистику по
// нему и по запросу отдаёт её API и веб-интерфейсу. Архив в Postgres
// опционален: если он подключён, закрытые сделки зеркалируются туда
// при завершении.

// Периоды статистики
const (
	PeriodToday = "today"
	PeriodWeek  = "week"
	PeriodMonth = "month"
)

// ErrUnknownPeriod возвращается при неизвестном периоде статистики
var ErrUnknownPeriod = errors.New("unknown stats period")

// StatsService предоставляет бизнес-логику для работы со статистикой.
//
// Функции:
// - GetStats: статистика за период (today/week/month)
// - RecentTrades: последние закрытые сделки из журнала
// - TradesForDate: все сделки за конкретный день
// - OnTradeClosed: зеркалирование закрытой сделки в архив + broadcast
//
// WebSocket интеграция:
// - После каждой закрытой сделки отправляет statsUpdate
type StatsService struct {
	journal   TradeJournal
	tradeRepo *repository.TradeRepository
	wsHub     StatsBroadcaster
	logger    *zap.Logger

	now func() time.Time
}

// NewStatsService создает новый экземпляр StatsService.
// tradeRepo опционален: nil, если архив в БД не настроен.
func NewStatsService(journal TradeJournal, tradeRepo *repository.TradeRepository, logger *zap.Logger) *StatsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsService{
		journal:   journal,
		tradeRepo: tradeRepo,
		logger:    logger.Named("stats"),
		now:       time.Now,
	}
}

// SetWebSocketHub устанавливает WebSocket hub для broadcast статистики.
//
// Вызывается после инициализации Hub в main.go:
//
//	statsService := service.NewStatsService(journal, tradeRepo, logger)
//	statsService.SetWebSocketHub(wsHub)
func (s *StatsService) SetWebSocketHub(hub StatsBroadcaster) {
	s.wsHub = hub
}

// GetStats возвращает статистику за указанный период.
//
// Поддерживаемые периоды:
// - "today": с начала текущего дня
// - "week": последние 7 дней включая сегодня
// - "month": последние 30 дней включая сегодня
//
// Пустой период трактуется как "today".
func (s *StatsService) GetStats(period string) (models.Stats, error) {
	now := s.now()

	switch period {
	case PeriodToday, "":
		return s.journal.StatsForDay(now)
	case PeriodWeek:
		return s.journal.StatsRange(utils.DayStart(now.AddDate(0, 0, -6)), utils.DayEnd(now))
	case PeriodMonth:
		return s.journal.StatsRange(utils.DayStart(now.AddDate(0, 0, -29)), utils.DayEnd(now))
	default:
		return models.Stats{}, ErrUnknownPeriod
	}
}

// RecentTrades возвращает последние закрытые сделки от новых к старым
func (s *StatsService) RecentTrades(limit int) ([]models.TradeRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.journal.RecentClosed(limit)
}

// TradesForDate возвращает все сделки за указанный день
func (s *StatsService) TradesForDate(day time.Time) ([]models.TradeRecord, error) {
	return s.journal.TradesForDay(day)
}

// OnTradeClosed обрабатывает завершение сделки.
//
// Вызывается движком после закрытия позиции. Зеркалирует запись в
// архив БД (если он настроен) и отправляет свежую дневную статистику
// через WebSocket. Ошибки архива не прерывают торговый цикл.
func (s *StatsService) OnTradeClosed(rec models.TradeRecord) {
	if s.tradeRepo != nil {
		if err := s.tradeRepo.Save(&rec); err != nil {
			s.logger.Warn("failed to archive trade",
				zap.String("trade_id", rec.TradeID),
				zap.Error(err))
		}
	}

	if s.wsHub != nil {
		stats, err := s.journal.StatsForDay(s.now())
		if err != nil {
			s.logger.Warn("failed to compute stats for broadcast", zap.Error(err))
			return
		}
		s.wsHub.BroadcastStats(stats)
	}
}

// ArchivedCount возвращает количество сделок в архиве БД.
// Без архива возвращает 0 без ошибки.
func (s *StatsService) ArchivedCount() (int, error) {
	if s.tradeRepo == nil {
		return 0, nil
	}
	return s.tradeRepo.Count()
}

// CleanupArchive удаляет из архива сделки старше указанной даты.
//
// Используется для автоматической очистки старых данных.
// Возвращает количество удаленных записей.
func (s *StatsService) CleanupArchive(olderThan time.Time) (int64, error) {
	if s.tradeRepo == nil {
		return 0, nil
	}
	return s.tradeRepo.DeleteOlderThan(olderThan)
}
