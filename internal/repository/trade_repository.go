package repository

import (
	"database/sql"
	"errors"
	"time"

	"goldbridge/internal/models"
)

// Ошибки репозитория сделок
var (
	ErrTradeNotFound = errors.New("trade not found")
)

// TradeRepository - работа с таблицей trades
type TradeRepository struct {
	db *sql.DB
}

// NewTradeRepository создаёт новый экземпляр репозитория
func NewTradeRepository(db *sql.DB) *TradeRepository {
	return &TradeRepository{db: db}
}

// Save добавляет или обновляет запись о сделке.
// Журнал в файлах первичен, архив догоняет его по trade_id.
func (r *TradeRepository) Save(rec *models.TradeRecord) error {
	query := `
		INSERT INTO trades (trade_id, order_id, deal_id, symbol, type, status, entry_time, entry_price, volume, stop_loss, take_profit, exit_time, exit_price, exit_reason, profit_loss, account_balance_at_entry)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (trade_id) DO UPDATE SET
			status = EXCLUDED.status,
			exit_time = EXCLUDED.exit_time,
			exit_price = EXCLUDED.exit_price,
			exit_reason = EXCLUDED.exit_reason,
			profit_loss = EXCLUDED.profit_loss`

	_, err := r.db.Exec(
		query,
		rec.TradeID,
		rec.OrderID,
		rec.DealID,
		rec.Symbol,
		rec.Type,
		rec.Status,
		rec.EntryTime,
		rec.EntryPrice,
		rec.Volume,
		rec.StopLoss,
		rec.TakeProfit,
		rec.ExitTime,
		rec.ExitPrice,
		rec.ExitReason,
		rec.ProfitLoss,
		rec.AccountBalanceAtEntry,
	)
	return err
}

// GetByTradeID возвращает сделку по идентификатору
func (r *TradeRepository) GetByTradeID(tradeID string) (*models.TradeRecord, error) {
	query := `
		SELECT trade_id, order_id, deal_id, symbol, type, status, entry_time, entry_price, volume, stop_loss, take_profit, exit_time, exit_price, exit_reason, profit_loss, account_balance_at_entry
		FROM trades
		WHERE trade_id = $1`

	rec := &models.TradeRecord{}
	err := r.db.QueryRow(query, tradeID).Scan(
		&rec.TradeID,
		&rec.OrderID,
		&rec.DealID,
		&rec.Symbol,
		&rec.Type,
		&rec.Status,
		&rec.EntryTime,
		&rec.EntryPrice,
		&rec.Volume,
		&rec.StopLoss,
		&rec.TakeProfit,
		&rec.ExitTime,
		&rec.ExitPrice,
		&rec.ExitReason,
		&rec.ProfitLoss,
		&rec.AccountBalanceAtEntry,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTradeNotFound
		}
		return nil, err
	}
	return rec, nil
}

// GetRecent возвращает последние N сделок
func (r *TradeRepository) GetRecent(limit int) ([]*models.TradeRecord, error) {
	query := `
		SELECT trade_id, order_id, deal_id, symbol, type, status, entry_time, entry_price, volume, stop_loss, take_profit, exit_time, exit_price, exit_reason, profit_loss, account_balance_at_entry
		FROM trades
		ORDER BY entry_time DESC
		LIMIT $1`

	return r.queryTrades(query, limit)
}

// GetByDateRange возвращает сделки за период [from, to]
func (r *TradeRepository) GetByDateRange(from, to time.Time) ([]*models.TradeRecord, error) {
	query := `
		SELECT trade_id, order_id, deal_id, symbol, type, status, entry_time, entry_price, volume, stop_loss, take_profit, exit_time, exit_price, exit_reason, profit_loss, account_balance_at_entry
		FROM trades
		WHERE entry_time >= $1 AND entry_time <= $2
		ORDER BY entry_time DESC`

	return r.queryTrades(query, from, to)
}

// Count возвращает общее количество сделок в архиве
func (r *TradeRepository) Count() (int, error) {
	var count int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM trades`).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// DeleteOlderThan удаляет сделки старше указанной даты
func (r *TradeRepository) DeleteOlderThan(timestamp time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM trades WHERE entry_time < $1`, timestamp)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// queryTrades выполняет выборку со стандартным набором колонок
func (r *TradeRepository) queryTrades(query string, args ...interface{}) ([]*models.TradeRecord, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []*models.TradeRecord
	for rows.Next() {
		rec := &models.TradeRecord{}
		err := rows.Scan(
			&rec.TradeID,
			&rec.OrderID,
			&rec.DealID,
			&rec.Symbol,
			&rec.Type,
			&rec.Status,
			&rec.EntryTime,
			&rec.EntryPrice,
			&rec.Volume,
			&rec.StopLoss,
			&rec.TakeProfit,
			&rec.ExitTime,
			&rec.ExitPrice,
			&rec.ExitReason,
			&rec.ProfitLoss,
			&rec.AccountBalanceAtEntry,
		)
		if err != nil {
			return nil, err
		}
		trades = append(trades, rec)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}
	return trades, nil
}
