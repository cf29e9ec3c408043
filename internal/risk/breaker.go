package risk

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"goldbridge/internal/config"
	"goldbridge/internal/models"
	"goldbridge/pkg/utils"
)

// breaker.go - предохранитель торговли
//
// Назначение:
// Останавливает торговлю при серии убытков, высокой доле убыточных
// сделок в окне и превышении дневного лимита потерь. Состояние паузы
// переживает рестарт процесса через JSON-файл.
//
// Уровни:
// - >= SevereLossLimit убытков подряд за день: пауза SevereLossPause
// - >= ConsecutiveLossLimit убытков подряд: пауза ConsecutiveLossPause
// - >= LossRateThreshold убыточных в последних LossRateWindow сделках: пауза LossRatePause
// - дневной убыток >= лимита: пауза до следующей полуночи

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// TradeSource предоставляет закрытые сделки для оценки предохранителя
type TradeSource interface {
	TradesForDay(day time.Time) ([]models.TradeRecord, error)
	RecentClosed(n int) ([]models.TradeRecord, error)
}

// Breaker реализует многоуровневый предохранитель
type Breaker struct {
	cfg    config.BreakerConfig
	trades TradeSource
	logger *zap.Logger

	mu    sync.Mutex
	state models.BreakerState

	onPause func(models.BreakerState)

	// Подменяется в тестах
	now func() time.Time
}

// NewBreaker создаёт предохранитель и загружает сохранённое состояние
func NewBreaker(cfg config.BreakerConfig, trades TradeSource, logger *zap.Logger) *Breaker {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Breaker{
		cfg:    cfg,
		trades: trades,
		logger: logger.Named("breaker"),
		now:    time.Now,
	}
	b.loadState()
	return b
}

// OnPause регистрирует обработчик активации паузы (уведомления)
func (b *Breaker) OnPause(fn func(models.BreakerState)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onPause = fn
}

// State возвращает копию текущего состояния
func (b *Breaker) State() models.BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Allow проверяет, разрешена ли торговля.
//
// Сначала снимается истёкшая пауза, затем оцениваются серии убытков
// за сегодня и доля убыточных в скользящем окне.
// Возвращает флаг и причину запрета.
func (b *Breaker) Allow() (bool, string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()

	if b.state.IsPaused {
		if b.state.PauseEndTime != nil && !now.Before(*b.state.PauseEndTime) {
			b.logger.Info("trading pause expired",
				zap.String("reason", b.state.PauseReason))
			b.state.IsPaused = false
			b.state.PauseReason = ""
			b.state.PauseStartTime = nil
			b.state.PauseEndTime = nil
			b.persistState()
		} else {
			return false, b.state.PauseReason
		}
	}

	losses := b.consecutiveLosses(now)
	b.state.ConsecutiveLosses = losses

	// Второй уровень проверяется первым
	if losses >= b.cfg.SevereLossLimit {
		reason := fmt.Sprintf("%d consecutive losses", losses)
		b.activatePause(reason, now, now.Add(b.cfg.SevereLossPause))
		return false, reason
	}

	if losses >= b.cfg.ConsecutiveLossLimit {
		reason := fmt.Sprintf("%d consecutive losses", losses)
		b.activatePause(reason, now, now.Add(b.cfg.ConsecutiveLossPause))
		return false, reason
	}

	if rate, ok := b.lossRate(); ok && rate >= b.cfg.LossRateThreshold {
		reason := fmt.Sprintf("loss rate %.0f%% over last %d trades", rate*100, b.cfg.LossRateWindow)
		b.activatePause(reason, now, now.Add(b.cfg.LossRatePause))
		return false, reason
	}

	b.persistState()
	return true, ""
}

// CheckDailyLoss проверяет дневной лимит убытка.
//
// Опорный баланс - account_balance_at_entry первой сегодняшней сделки,
// при отсутствии сделок - currentBalance. При превышении лимита пауза
// действует до следующей полуночи.
func (b *Breaker) CheckDailyLoss(currentBalance float64) (bool, string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state.IsPaused {
		return false, b.state.PauseReason
	}

	now := b.now()
	todays, err := b.trades.TradesForDay(now)
	if err != nil {
		b.logger.Warn("failed to read todays trades", zap.Error(err))
		return true, ""
	}

	var totalPL float64
	for _, t := range todays {
		if t.Status == models.TradeStatusClosed && t.ProfitLoss != nil {
			totalPL += *t.ProfitLoss
		}
	}

	anchor := currentBalance
	if len(todays) > 0 {
		first := todays[0]
		for _, t := range todays[1:] {
			if t.EntryTime.Before(first.EntryTime) {
				first = t
			}
		}
		if first.AccountBalanceAtEntry > 0 {
			anchor = first.AccountBalanceAtEntry
		}
	}

	limit := b.cfg.DailyLossLimitUSD
	if b.cfg.DailyLossUsePct && anchor > 0 {
		limit = anchor * b.cfg.DailyLossLimitPct / 100
	}

	if limit > 0 && totalPL <= -limit {
		reason := fmt.Sprintf("daily loss %.2f exceeds limit %.2f", -totalPL, limit)
		b.activatePause(reason, now, utils.NextMidnight(now))
		return false, reason
	}

	return true, ""
}

// Reset снимает паузу вручную (административная операция)
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.logger.Info("breaker reset", zap.String("reason", b.state.PauseReason))
	b.state.IsPaused = false
	b.state.PauseReason = ""
	b.state.PauseStartTime = nil
	b.state.PauseEndTime = nil
	b.persistState()
}

// consecutiveLosses считает убытки подряд среди сегодняшних закрытых
// сделок, начиная с самой свежей.
func (b *Breaker) consecutiveLosses(now time.Time) int {
	todays, err := b.trades.TradesForDay(now)
	if err != nil {
		b.logger.Warn("failed to read todays trades", zap.Error(err))
		return 0
	}

	closed := make([]models.TradeRecord, 0, len(todays))
	for _, t := range todays {
		if t.Status == models.TradeStatusClosed && t.ExitTime != nil {
			closed = append(closed, t)
		}
	}

	sort.Slice(closed, func(i, j int) bool {
		return closed[i].ExitTime.After(*closed[j].ExitTime)
	})

	count := 0
	for i := range closed {
		if !closed[i].IsLoss() {
			break
		}
		count++
	}
	return count
}

// lossRate возвращает долю убыточных сделок в скользящем окне.
// Второй результат false, если окно ещё не заполнено.
func (b *Breaker) lossRate() (float64, bool) {
	recent, err := b.trades.RecentClosed(b.cfg.LossRateWindow)
	if err != nil {
		b.logger.Warn("failed to read recent trades", zap.Error(err))
		return 0, false
	}
	if len(recent) < b.cfg.LossRateWindow {
		return 0, false
	}

	losses := 0
	for i := range recent {
		if recent[i].IsLoss() {
			losses++
		}
	}
	return float64(losses) / float64(len(recent)), true
}

// activatePause включает паузу и сохраняет состояние.
// Вызывается под мьютексом.
func (b *Breaker) activatePause(reason string, start, end time.Time) {
	b.state.IsPaused = true
	b.state.PauseReason = reason
	b.state.PauseStartTime = &start
	b.state.PauseEndTime = &end
	b.state.TotalPauseCount++
	b.persistState()

	b.logger.Warn("trading paused",
		zap.String("reason", reason),
		zap.Time("until", end),
		zap.Int("total_pauses", b.state.TotalPauseCount))

	if b.onPause != nil {
		// Копия состояния, обработчик может работать асинхронно
		go b.onPause(b.state)
	}
}

// loadState читает сохранённое состояние, отсутствие файла не ошибка
func (b *Breaker) loadState() {
	data, err := os.ReadFile(b.cfg.StateFile)
	if err != nil {
		if !os.IsNotExist(err) {
			b.logger.Warn("failed to read breaker state", zap.Error(err))
		}
		return
	}

	var st models.BreakerState
	if err := json.Unmarshal(data, &st); err != nil {
		b.logger.Warn("corrupt breaker state file", zap.Error(err))
		return
	}
	b.state = st

	if st.IsPaused {
		b.logger.Info("restored active pause",
			zap.String("reason", st.PauseReason))
	}
}

// persistState атомарно записывает состояние (temp + rename).
// Вызывается под мьютексом.
func (b *Breaker) persistState() {
	data, err := json.MarshalIndent(b.state, "", "    ")
	if err != nil {
		b.logger.Error("failed to marshal breaker state", zap.Error(err))
		return
	}

	dir := filepath.Dir(b.cfg.StateFile)
	tmp, err := os.CreateTemp(dir, ".breaker-*.json")
	if err != nil {
		b.logger.Error("failed to create temp state file", zap.Error(err))
		return
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		b.logger.Error("failed to write breaker state", zap.Error(err))
		return
	}
	tmp.Close()

	if err := os.Rename(tmp.Name(), b.cfg.StateFile); err != nil {
		os.Remove(tmp.Name())
		b.logger.Error("failed to replace breaker state", zap.Error(err))
	}
}
