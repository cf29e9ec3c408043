package repository

import (
	"database/sql"
	"time"

	"goldbridge/internal/models"
)

// NotificationRepository - работа с таблицей notifications
type NotificationRepository struct {
	db *sql.DB
}

// NewNotificationRepository создаёт новый экземпляр репозитория
func NewNotificationRepository(db *sql.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// SaveNotification создаёт запись об уведомлении
func (r *NotificationRepository) SaveNotification(n models.Notification) error {
	query := `
		INSERT INTO notifications (timestamp, type, severity, ticket, message)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.Exec(query, n.Timestamp, n.Type, n.Severity, n.Ticket, n.Message)
	return err
}

// GetRecent возвращает последние N уведомлений
func (r *NotificationRepository) GetRecent(limit int) ([]models.Notification, error) {
	query := `
		SELECT id, timestamp, type, severity, ticket, message
		FROM notifications
		ORDER BY timestamp DESC
		LIMIT $1`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.Timestamp, &n.Type, &n.Severity, &n.Ticket, &n.Message); err != nil {
			return nil, err
		}
		out = append(out, n)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteOlderThan удаляет уведомления старше указанной даты
func (r *NotificationRepository) DeleteOlderThan(timestamp time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM notifications WHERE timestamp < $1`, timestamp)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
