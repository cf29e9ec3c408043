package ledger

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"goldbridge/internal/models"
	"goldbridge/pkg/utils"
)

// ledger.go - журнал сделок в дневных JSON-файлах
//
// Назначение:
// Каждая сделка пишется в файл trade_logs/trades_YYYY_MM_DD.json
// (JSON-массив записей). Открытие добавляет запись со статусом OPEN,
// закрытие находит запись по номеру ордера (сегодня, затем назад до
// LookbackDays) и дополняет её ценой выхода, причиной и P/L.
// Все записи файлов атомарны (temp + rename) и сериализованы мьютексом.

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Ошибки журнала
var (
	ErrTradeNotFound = errors.New("open trade not found in ledger")
)

// Глубина сканирования при выборке последних закрытых сделок
const recentScanDays = 30

// Ledger ведёт журнал сделок
type Ledger struct {
	dir          string
	lookbackDays int
	contractSize float64
	logger       *zap.Logger

	mu sync.Mutex

	// Подменяется в тестах
	now func() time.Time
}

// New создаёт журнал. Каталог создаётся при первой записи.
func New(dir string, lookbackDays int, contractSize float64, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	if lookbackDays < 1 {
		lookbackDays = 7
	}
	if contractSize <= 0 {
		contractSize = 100
	}
	return &Ledger{
		dir:          dir,
		lookbackDays: lookbackDays,
		contractSize: contractSize,
		logger:       logger.Named("ledger"),
		now:          time.Now,
	}
}

// LogOpen добавляет запись об открытой сделке в сегодняшний файл.
// TradeID формируется как "<order>_<deal>", статус выставляется OPEN.
func (l *Ledger) LogOpen(rec models.TradeRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec.TradeID = fmt.Sprintf("%d_%d", rec.OrderID, rec.DealID)
	rec.Status = models.TradeStatusOpen
	if rec.EntryTime.IsZero() {
		rec.EntryTime = l.now()
	}

	day := rec.EntryTime
	records, err := l.readDay(day)
	if err != nil {
		return err
	}

	records = append(records, rec)
	if err := l.writeDay(day, records); err != nil {
		return err
	}

	l.logger.Info("trade opened",
		zap.String("trade_id", rec.TradeID),
		zap.String("type", rec.Type),
		zap.Float64("entry", rec.EntryPrice),
		zap.Float64("volume", rec.Volume))
	return nil
}

// LogClose закрывает запись по номеру ордера.
//
// Поиск идёт от сегодняшнего файла назад до lookbackDays. P/L считается
// как движение цены × объём × размер контракта, знак по стороне сделки.
// Возвращает обновлённую запись или ErrTradeNotFound.
func (l *Ledger) LogClose(orderID int64, exitPrice float64, reason string, when time.Time) (*models.TradeRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if when.IsZero() {
		when = l.now()
	}

	for _, day := range utils.LastNDaysDates(when, l.lookbackDays) {
		records, err := l.readDay(day)
		if err != nil {
			return nil, err
		}

		for i := range records {
			if records[i].OrderID != orderID || records[i].Status != models.TradeStatusOpen {
				continue
			}

			rec := &records[i]
			diff := utils.PriceDiff(rec.Type, rec.EntryPrice, exitPrice)
			pl := diff * rec.Volume * l.contractSize

			rec.Status = models.TradeStatusClosed
			rec.ExitTime = &when
			rec.ExitPrice = &exitPrice
			rec.ExitReason = reason
			rec.ProfitLoss = &pl
			rec.ProfitLossPips = &diff
			rec.Duration = utils.FormatDuration(when.Sub(rec.EntryTime))

			if err := l.writeDay(day, records); err != nil {
				return nil, err
			}

			l.logger.Info("trade closed",
				zap.String("trade_id", rec.TradeID),
				zap.Float64("exit", exitPrice),
				zap.Float64("profit_loss", pl),
				zap.String("reason", reason))

			out := *rec
			return &out, nil
		}
	}

	l.logger.Warn("close for unknown ticket", zap.Int64("order_id", orderID))
	return nil, ErrTradeNotFound
}

// MarkRequiresManual помечает открытую запись статусом REQUIRES_MANUAL.
// Ставится при остановке, когда позицию не удалось закрыть: оператор
// разбирает её в терминале вручную.
func (l *Ledger) MarkRequiresManual(orderID int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, day := range utils.LastNDaysDates(l.now(), l.lookbackDays) {
		records, err := l.readDay(day)
		if err != nil {
			return err
		}
		for i := range records {
			if records[i].OrderID != orderID || records[i].Status != models.TradeStatusOpen {
				continue
			}
			records[i].Status = models.TradeStatusRequiresManual
			if err := l.writeDay(day, records); err != nil {
				return err
			}
			l.logger.Error("position requires manual intervention",
				zap.String("trade_id", records[i].TradeID),
				zap.Int64("order_id", orderID))
			return nil
		}
	}

	l.logger.Warn("requires-manual mark for unknown ticket", zap.Int64("order_id", orderID))
	return ErrTradeNotFound
}

// TradesForDay возвращает все записи за указанный день
func (l *Ledger) TradesForDay(day time.Time) ([]models.TradeRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.readDay(day)
}

// RecentClosed возвращает последние n закрытых сделок (от новых к старым),
// просматривая файлы в глубину до recentScanDays.
func (l *Ledger) RecentClosed(n int) ([]models.TradeRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n <= 0 {
		return nil, nil
	}

	var closed []models.TradeRecord
	for _, day := range utils.LastNDaysDates(l.now(), recentScanDays) {
		records, err := l.readDay(day)
		if err != nil {
			return nil, err
		}
		for i := range records {
			if records[i].Status == models.TradeStatusClosed && records[i].ExitTime != nil {
				closed = append(closed, records[i])
			}
		}
	}

	sort.Slice(closed, func(i, j int) bool {
		return closed[i].ExitTime.After(*closed[j].ExitTime)
	})

	if len(closed) > n {
		closed = closed[:n]
	}
	return closed, nil
}

// OpenTrade возвращает открытую запись по номеру ордера, если она есть
func (l *Ledger) OpenTrade(orderID int64) (*models.TradeRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, day := range utils.LastNDaysDates(l.now(), l.lookbackDays) {
		records, err := l.readDay(day)
		if err != nil {
			return nil, err
		}
		for i := range records {
			if records[i].OrderID == orderID && records[i].Status == models.TradeStatusOpen {
				out := records[i]
				return &out, nil
			}
		}
	}
	return nil, ErrTradeNotFound
}

// fileFor возвращает путь дневного файла
func (l *Ledger) fileFor(day time.Time) string {
	return filepath.Join(l.dir, "trades_"+day.Format("2006_01_02")+".json")
}

// readDay читает записи дня, отсутствие файла не ошибка.
// Вызывается под мьютексом.
func (l *Ledger) readDay(day time.Time) ([]models.TradeRecord, error) {
	data, err := os.ReadFile(l.fileFor(day))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read ledger file: %w", err)
	}

	var records []models.TradeRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse ledger file %s: %w", l.fileFor(day), err)
	}
	return records, nil
}

// writeDay атомарно переписывает файл дня.
// Вызывается под мьютексом.
func (l *Ledger) writeDay(day time.Time, records []models.TradeRecord) error {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return fmt.Errorf("create ledger dir: %w", err)
	}

	data, err := json.MarshalIndent(records, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal ledger: %w", err)
	}

	tmp, err := os.CreateTemp(l.dir, ".trades-*.json")
	if err != nil {
		return fmt.Errorf("create temp ledger file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write ledger: %w", err)
	}
	tmp.Close()

	if err := os.Rename(tmp.Name(), l.fileFor(day)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace ledger file: %w", err)
	}
	return nil
}
