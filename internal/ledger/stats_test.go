package ledger

import (
	"testing"
	"time"

	"goldbridge/internal/models"
)

// ============================================================
// Тесты агрегации статистики
// ============================================================

func closedRec(order int64, pl float64, exit time.Time) models.TradeRecord {
	return models.TradeRecord{
		TradeID:    "closed",
		OrderID:    order,
		Status:     models.TradeStatusClosed,
		ProfitLoss: &pl,
		ExitTime:   &exit,
	}
}

func TestAggregateCounts(t *testing.T) {
	now := time.Date(2026, 8, 6, 12, 0, 0, 0, time.UTC)

	records := []models.TradeRecord{
		closedRec(1, 50, now.Add(-3*time.Hour)),
		closedRec(2, -20, now.Add(-2*time.Hour)),
		closedRec(3, 30, now.Add(-time.Hour)),
		{OrderID: 4, Status: models.TradeStatusOpen},
	}

	st := aggregate(records)

	if st.TotalTrades != 4 {
		t.Errorf("TotalTrades = %d, want 4", st.TotalTrades)
	}
	if st.OpenTrades != 1 || st.ClosedTrades != 3 {
		t.Errorf("open/closed = %d/%d, want 1/3", st.OpenTrades, st.ClosedTrades)
	}
	if st.Wins != 2 || st.Losses != 1 {
		t.Errorf("wins/losses = %d/%d, want 2/1", st.Wins, st.Losses)
	}
	if st.GrossProfit != 80 || st.GrossLoss != -20 {
		t.Errorf("gross = %v/%v, want 80/-20", st.GrossProfit, st.GrossLoss)
	}
	if st.NetProfit != 60 {
		t.Errorf("NetProfit = %v, want 60", st.NetProfit)
	}
	if want := 2.0 / 3.0 * 100; st.WinRate != want {
		t.Errorf("WinRate = %v, want %v", st.WinRate, want)
	}
}

func TestAggregateConsecutiveLosses(t *testing.T) {
	now := time.Date(2026, 8, 6, 12, 0, 0, 0, time.UTC)

	// Две последние сделки убыточные, перед ними прибыльная
	records := []models.TradeRecord{
		closedRec(1, 40, now.Add(-3*time.Hour)),
		closedRec(2, -10, now.Add(-2*time.Hour)),
		closedRec(3, -15, now.Add(-time.Hour)),
	}

	st := aggregate(records)
	if st.ConsecutiveLosses != 2 {
		t.Errorf("ConsecutiveLosses = %d, want 2", st.ConsecutiveLosses)
	}

	// Последняя сделка прибыльная обнуляет серию
	records = append(records, closedRec(4, 5, now))
	st = aggregate(records)
	if st.ConsecutiveLosses != 0 {
		t.Errorf("ConsecutiveLosses = %d, want 0", st.ConsecutiveLosses)
	}
}

func TestAggregateEmpty(t *testing.T) {
	st := aggregate(nil)
	if st.TotalTrades != 0 || st.WinRate != 0 || st.ConsecutiveLosses != 0 {
		t.Errorf("aggregate(nil) = %+v, want zero stats", st)
	}
}

// ============================================================
// Тесты StatsForDay / StatsRange через файлы
// ============================================================

func TestStatsForDay(t *testing.T) {
	now := time.Date(2026, 8, 6, 12, 0, 0, 0, time.UTC)
	l := newTestLedger(t, now)

	if err := l.LogOpen(openTrade(1, 2, models.SideBuy, 2000, now)); err != nil {
		t.Fatal(err)
	}
	if _, err := l.LogClose(1, 2004, models.ExitReasonSARReversal, now.Add(time.Hour)); err != nil {
		t.Fatal(err)
	}

	st, err := l.StatsForDay(now)
	if err != nil {
		t.Fatalf("StatsForDay: %v", err)
	}
	if st.ClosedTrades != 1 || st.Wins != 1 {
		t.Errorf("stats = %+v", st)
	}
	// (2004 - 2000) * 0.10 * 100 = 40
	if st.NetProfit != 40 {
		t.Errorf("NetProfit = %v, want 40", st.NetProfit)
	}
}

func TestStatsRangeSpansDays(t *testing.T) {
	now := time.Date(2026, 8, 6, 12, 0, 0, 0, time.UTC)
	l := newTestLedger(t, now)

	for i := 0; i < 3; i++ {
		day := now.AddDate(0, 0, -i)
		order := int64(i + 1)
		if err := l.LogOpen(openTrade(order, order, models.SideBuy, 2000, day)); err != nil {
			t.Fatal(err)
		}
		if _, err := l.LogClose(order, 2001, models.ExitReasonSARReversal, day.Add(time.Hour)); err != nil {
			t.Fatal(err)
		}
	}

	st, err := l.StatsRange(now.AddDate(0, 0, -2), now)
	if err != nil {
		t.Fatalf("StatsRange: %v", err)
	}
	if st.ClosedTrades != 3 {
		t.Errorf("ClosedTrades = %d, want 3", st.ClosedTrades)
	}

	// Диапазон из одного дня
	st, err = l.StatsRange(now, now)
	if err != nil {
		t.Fatal(err)
	}
	if st.ClosedTrades != 1 {
		t.Errorf("single-day ClosedTrades = %d, want 1", st.ClosedTrades)
	}
}
