package ledger

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"goldbridge/internal/models"
)

// ============================================================
// Вспомогательные функции
// ============================================================

func newTestLedger(t *testing.T, now time.Time) *Ledger {
	t.Helper()
	l := New(t.TempDir(), 7, 100, zap.NewNop())
	l.now = func() time.Time { return now }
	return l
}

func openTrade(order, deal int64, side string, entry float64, when time.Time) models.TradeRecord {
	return models.TradeRecord{
		OrderID:    order,
		DealID:     deal,
		Symbol:     "XAUUSD",
		Type:       side,
		EntryTime:  when,
		EntryPrice: entry,
		Volume:     0.10,
	}
}

// ============================================================
// Тесты LogOpen / LogClose
// ============================================================

func TestLogOpenAssignsIDAndStatus(t *testing.T) {
	now := time.Date(2026, 8, 6, 10, 0, 0, 0, time.UTC)
	l := newTestLedger(t, now)

	if err := l.LogOpen(openTrade(100234, 200567, models.SideBuy, 2010.55, now)); err != nil {
		t.Fatalf("LogOpen: %v", err)
	}

	records, err := l.TradesForDay(now)
	if err != nil {
		t.Fatalf("TradesForDay: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	if records[0].TradeID != "100234_200567" {
		t.Errorf("TradeID = %q, want 100234_200567", records[0].TradeID)
	}
	if records[0].Status != models.TradeStatusOpen {
		t.Errorf("Status = %q, want OPEN", records[0].Status)
	}
}

func TestLogCloseComputesPNL(t *testing.T) {
	now := time.Date(2026, 8, 6, 10, 0, 0, 0, time.UTC)
	l := newTestLedger(t, now)

	if err := l.LogOpen(openTrade(100234, 200567, models.SideBuy, 2010.00, now)); err != nil {
		t.Fatal(err)
	}

	closedAt := now.Add(2 * time.Hour)
	rec, err := l.LogClose(100234, 2015.00, models.ExitReasonSARReversal, closedAt)
	if err != nil {
		t.Fatalf("LogClose: %v", err)
	}

	if rec.Status != models.TradeStatusClosed {
		t.Errorf("Status = %q, want CLOSED", rec.Status)
	}
	// BUY: (2015 - 2010) * 0.10 * 100 = 50
	if rec.ProfitLoss == nil || *rec.ProfitLoss != 50 {
		t.Errorf("ProfitLoss = %v, want 50", rec.ProfitLoss)
	}
	if rec.ExitPrice == nil || *rec.ExitPrice != 2015.00 {
		t.Errorf("ExitPrice = %v, want 2015", rec.ExitPrice)
	}
	if rec.ExitReason != models.ExitReasonSARReversal {
		t.Errorf("ExitReason = %q", rec.ExitReason)
	}
	if rec.Duration != "2h0m0s" {
		t.Errorf("Duration = %q, want 2h0m0s", rec.Duration)
	}

	// Запись в файле тоже обновлена
	records, err := l.TradesForDay(now)
	if err != nil {
		t.Fatal(err)
	}
	if records[0].Status != models.TradeStatusClosed {
		t.Error("file record still OPEN after LogClose")
	}
}

func TestLogCloseSellDirection(t *testing.T) {
	now := time.Date(2026, 8, 6, 10, 0, 0, 0, time.UTC)
	l := newTestLedger(t, now)

	if err := l.LogOpen(openTrade(7, 8, models.SideSell, 2020.00, now)); err != nil {
		t.Fatal(err)
	}

	rec, err := l.LogClose(7, 2025.00, models.ExitReasonBroker, now.Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	// SELL при росте цены в минусе: (2020 - 2025) * 0.10 * 100 = -50
	if rec.ProfitLoss == nil || *rec.ProfitLoss != -50 {
		t.Errorf("ProfitLoss = %v, want -50", rec.ProfitLoss)
	}
}

func TestLogCloseLookback(t *testing.T) {
	now := time.Date(2026, 8, 6, 10, 0, 0, 0, time.UTC)
	l := newTestLedger(t, now)

	// Сделка открыта три дня назад
	opened := now.AddDate(0, 0, -3)
	if err := l.LogOpen(openTrade(55, 56, models.SideBuy, 2000.00, opened)); err != nil {
		t.Fatal(err)
	}

	rec, err := l.LogClose(55, 2001.00, models.ExitReasonManual, now)
	if err != nil {
		t.Fatalf("LogClose across days: %v", err)
	}
	if rec.OrderID != 55 {
		t.Errorf("OrderID = %d, want 55", rec.OrderID)
	}

	// Запись осталась в файле дня открытия
	records, err := l.TradesForDay(opened)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].Status != models.TradeStatusClosed {
		t.Error("closed record not found in opening-day file")
	}
}

func TestLogCloseUnknownOrder(t *testing.T) {
	now := time.Date(2026, 8, 6, 10, 0, 0, 0, time.UTC)
	l := newTestLedger(t, now)

	if _, err := l.LogClose(999, 2000, models.ExitReasonManual, now); !errors.Is(err, ErrTradeNotFound) {
		t.Errorf("LogClose(unknown) error = %v, want ErrTradeNotFound", err)
	}
}

func TestLogCloseIgnoresAlreadyClosed(t *testing.T) {
	now := time.Date(2026, 8, 6, 10, 0, 0, 0, time.UTC)
	l := newTestLedger(t, now)

	if err := l.LogOpen(openTrade(1, 2, models.SideBuy, 2000, now)); err != nil {
		t.Fatal(err)
	}
	if _, err := l.LogClose(1, 2005, models.ExitReasonSARReversal, now); err != nil {
		t.Fatal(err)
	}

	// Повторное закрытие того же ордера уже не находит OPEN-записи
	if _, err := l.LogClose(1, 2010, models.ExitReasonManual, now); !errors.Is(err, ErrTradeNotFound) {
		t.Errorf("second LogClose error = %v, want ErrTradeNotFound", err)
	}
}

// ============================================================
// Тесты MarkRequiresManual
// ============================================================

func TestMarkRequiresManual(t *testing.T) {
	now := time.Date(2026, 8, 6, 10, 0, 0, 0, time.UTC)
	l := newTestLedger(t, now)

	if err := l.LogOpen(openTrade(7, 8, models.SideBuy, 2010, now)); err != nil {
		t.Fatal(err)
	}
	if err := l.MarkRequiresManual(7); err != nil {
		t.Fatalf("MarkRequiresManual: %v", err)
	}

	records, err := l.TradesForDay(now)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].Status != models.TradeStatusRequiresManual {
		t.Errorf("records = %+v, want REQUIRES_MANUAL", records)
	}

	// Помеченная запись больше не считается открытой
	if err := l.MarkRequiresManual(7); !errors.Is(err, ErrTradeNotFound) {
		t.Errorf("second mark error = %v, want ErrTradeNotFound", err)
	}
}

func TestMarkRequiresManualUnknownOrder(t *testing.T) {
	now := time.Date(2026, 8, 6, 10, 0, 0, 0, time.UTC)
	l := newTestLedger(t, now)

	if err := l.MarkRequiresManual(404); !errors.Is(err, ErrTradeNotFound) {
		t.Errorf("MarkRequiresManual(unknown) error = %v, want ErrTradeNotFound", err)
	}
}

// ============================================================
// Тесты выборок
// ============================================================

func TestRecentClosedOrderAndLimit(t *testing.T) {
	now := time.Date(2026, 8, 6, 18, 0, 0, 0, time.UTC)
	l := newTestLedger(t, now)

	// Три сделки, закрытые в разное время, одна открытая
	for i, order := range []int64{1, 2, 3} {
		when := now.Add(time.Duration(-3+i) * time.Hour)
		if err := l.LogOpen(openTrade(order, order*10, models.SideBuy, 2000, when)); err != nil {
			t.Fatal(err)
		}
		if _, err := l.LogClose(order, 2001, models.ExitReasonSARReversal, when.Add(30*time.Minute)); err != nil {
			t.Fatal(err)
		}
	}
	if err := l.LogOpen(openTrade(4, 40, models.SideSell, 2000, now)); err != nil {
		t.Fatal(err)
	}

	closed, err := l.RecentClosed(2)
	if err != nil {
		t.Fatalf("RecentClosed: %v", err)
	}
	if len(closed) != 2 {
		t.Fatalf("len = %d, want 2", len(closed))
	}
	// От новых к старым
	if closed[0].OrderID != 3 || closed[1].OrderID != 2 {
		t.Errorf("order = [%d %d], want [3 2]", closed[0].OrderID, closed[1].OrderID)
	}

	if got, err := l.RecentClosed(0); err != nil || got != nil {
		t.Errorf("RecentClosed(0) = %v, %v, want nil, nil", got, err)
	}
}

func TestOpenTrade(t *testing.T) {
	now := time.Date(2026, 8, 6, 10, 0, 0, 0, time.UTC)
	l := newTestLedger(t, now)

	if err := l.LogOpen(openTrade(77, 78, models.SideBuy, 2000, now)); err != nil {
		t.Fatal(err)
	}

	rec, err := l.OpenTrade(77)
	if err != nil {
		t.Fatalf("OpenTrade: %v", err)
	}
	if rec.OrderID != 77 || rec.Status != models.TradeStatusOpen {
		t.Errorf("rec = %+v", rec)
	}

	if _, err := l.OpenTrade(404); !errors.Is(err, ErrTradeNotFound) {
		t.Errorf("OpenTrade(404) error = %v, want ErrTradeNotFound", err)
	}
}

func TestTradesForDayMissingFile(t *testing.T) {
	now := time.Date(2026, 8, 6, 10, 0, 0, 0, time.UTC)
	l := newTestLedger(t, now)

	records, err := l.TradesForDay(now)
	if err != nil {
		t.Fatalf("TradesForDay on empty dir: %v", err)
	}
	if records != nil {
		t.Errorf("records = %v, want nil", records)
	}
}
