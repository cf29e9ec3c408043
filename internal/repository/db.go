package repository

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// db.go - подключение к PostgreSQL и схема архива
//
// Назначение:
// Архив в БД опционален: журнал сделок живёт в дневных JSON-файлах,
// Postgres хранит долговременную копию для отчётов и веб-интерфейса.

// Connect открывает пул соединений и проверяет его ping'ом
func Connect(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// EnsureSchema создаёт таблицы архива, если их нет
func EnsureSchema(db *sql.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS trades (
			trade_id TEXT PRIMARY KEY,
			order_id BIGINT NOT NULL,
			deal_id BIGINT NOT NULL DEFAULT 0,
			symbol TEXT NOT NULL,
			type TEXT NOT NULL,
			status TEXT NOT NULL,
			entry_time TIMESTAMPTZ NOT NULL,
			entry_price DOUBLE PRECISION NOT NULL,
			volume DOUBLE PRECISION NOT NULL,
			stop_loss DOUBLE PRECISION NOT NULL DEFAULT 0,
			take_profit DOUBLE PRECISION NOT NULL DEFAULT 0,
			exit_time TIMESTAMPTZ,
			exit_price DOUBLE PRECISION,
			exit_reason TEXT NOT NULL DEFAULT '',
			profit_loss DOUBLE PRECISION,
			account_balance_at_entry DOUBLE PRECISION NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_entry_time ON trades (entry_time)`,
		`CREATE TABLE IF NOT EXISTS notifications (
			id SERIAL PRIMARY KEY,
			timestamp TIMESTAMPTZ NOT NULL,
			type TEXT NOT NULL,
			severity TEXT NOT NULL,
			ticket BIGINT,
			message TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_timestamp ON notifications (timestamp)`,
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
