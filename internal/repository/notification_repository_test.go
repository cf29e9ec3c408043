package repository

import (
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"goldbridge/internal/models"
)

// ============================================================
// NotificationRepository Tests
// ============================================================

func TestNewNotificationRepository(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	repo := NewNotificationRepository(db)
	if repo == nil {
		t.Fatal("NewNotificationRepository returned nil")
	}
	if repo.db != db {
		t.Error("db not set correctly")
	}
}

func TestNotificationRepositorySave(t *testing.T) {
	now := time.Now()
	ticket := int64(100234)

	tests := []struct {
		name        string
		n           models.Notification
		mockSetup   func(mock sqlmock.Sqlmock)
		expectError bool
	}{
		{
			name: "success",
			n: models.Notification{
				Timestamp: now,
				Type:      models.NotificationTypeClose,
				Severity:  models.SeverityInfo,
				Ticket:    &ticket,
				Message:   "position closed",
			},
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO notifications`).
					WithArgs(now, models.NotificationTypeClose, models.SeverityInfo, &ticket, "position closed").
					WillReturnResult(sqlmock.NewResult(1, 1))
			},
			expectError: false,
		},
		{
			name: "database error",
			n: models.Notification{
				Timestamp: now,
				Type:      models.NotificationTypeError,
				Severity:  models.SeverityError,
				Message:   "bridge lost",
			},
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO notifications`).
					WithArgs(now, models.NotificationTypeError, models.SeverityError, (*int64)(nil), "bridge lost").
					WillReturnError(errors.New("database error"))
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			if err != nil {
				t.Fatalf("failed to create mock: %v", err)
			}
			defer db.Close()

			tt.mockSetup(mock)

			repo := NewNotificationRepository(db)
			err = repo.SaveNotification(tt.n)

			if tt.expectError {
				if err == nil {
					t.Error("expected error, got nil")
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}

			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unfulfilled expectations: %v", err)
			}
		})
	}
}

func TestNotificationRepositoryGetRecent(t *testing.T) {
	now := time.Now()
	ticket := int64(9)

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "timestamp", "type", "severity", "ticket", "message"}).
		AddRow(2, now, models.NotificationTypeBreaker, models.SeverityWarn, (*int64)(nil), "trading paused").
		AddRow(1, now.Add(-time.Minute), models.NotificationTypeOpen, models.SeverityInfo, &ticket, "position opened")
	mock.ExpectQuery(`SELECT .+ FROM notifications ORDER BY timestamp DESC LIMIT \$1`).
		WithArgs(50).
		WillReturnRows(rows)

	repo := NewNotificationRepository(db)
	result, err := repo.GetRecent(50)

	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(result))
	}
	if result[0].ID != 2 || result[0].Type != models.NotificationTypeBreaker {
		t.Errorf("unexpected first notification: %+v", result[0])
	}
	if result[1].Ticket == nil || *result[1].Ticket != 9 {
		t.Errorf("ticket = %v, want 9", result[1].Ticket)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestNotificationRepositoryDeleteOlderThan(t *testing.T) {
	threshold := time.Now().AddDate(0, 0, -30)

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`DELETE FROM notifications WHERE timestamp < \$1`).
		WithArgs(threshold).
		WillReturnResult(sqlmock.NewResult(0, 12))

	repo := NewNotificationRepository(db)
	deleted, err := repo.DeleteOlderThan(threshold)

	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if deleted != 12 {
		t.Errorf("expected 12 deleted, got %d", deleted)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
