package indicator

import (
	"errors"
	"math"
	"testing"
	"time"

	"goldbridge/internal/models"
)

const eps = 1e-9

func bar(high, low float64) models.Candle {
	return models.Candle{Open: low, High: high, Low: low, Close: high}
}

// ============================================================
// Тесты Compute
// ============================================================

func TestComputeNotEnoughBars(t *testing.T) {
	s := New("XAUUSD", 15, 0.02, 0.2, nil)

	if _, err := s.Compute(nil); !errors.Is(err, ErrNotEnoughBars) {
		t.Errorf("Compute(nil) error = %v, want ErrNotEnoughBars", err)
	}
	if _, err := s.Compute([]models.Candle{bar(10, 9)}); !errors.Is(err, ErrNotEnoughBars) {
		t.Errorf("Compute(1 bar) error = %v, want ErrNotEnoughBars", err)
	}
}

func TestComputeUptrendContinuation(t *testing.T) {
	s := New("XAUUSD", 15, 0.02, 0.2, nil)

	candles := []models.Candle{
		bar(10, 9),
		bar(11, 9.5),
		bar(12, 10),
	}

	points, err := s.Compute(candles)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	// Первый бар: восходящий тренд от low
	p0 := points[0]
	if p0.Trend != models.TrendUp || p0.SAR != 9 || p0.EP != 10 || p0.AF != 0.02 {
		t.Errorf("points[0] = %+v", p0)
	}

	// Второй бар: новый максимум поднимает EP и AF,
	// SAR прижат к минимуму предыдущего бара
	p1 := points[1]
	if p1.Trend != models.TrendUp {
		t.Fatalf("points[1].Trend = %q", p1.Trend)
	}
	if math.Abs(p1.SAR-9.0) > eps {
		t.Errorf("points[1].SAR = %v, want 9.0", p1.SAR)
	}
	if p1.EP != 11 || math.Abs(p1.AF-0.04) > eps {
		t.Errorf("points[1] EP/AF = %v/%v, want 11/0.04", p1.EP, p1.AF)
	}

	// Третий бар: SAR = 9 + 0.04*(11-9) = 9.08
	p2 := points[2]
	if math.Abs(p2.SAR-9.08) > eps {
		t.Errorf("points[2].SAR = %v, want 9.08", p2.SAR)
	}
	if p2.EP != 12 || math.Abs(p2.AF-0.06) > eps {
		t.Errorf("points[2] EP/AF = %v/%v, want 12/0.06", p2.EP, p2.AF)
	}
}

func TestComputeReversalDown(t *testing.T) {
	s := New("XAUUSD", 15, 0.02, 0.2, nil)

	candles := []models.Candle{
		bar(10, 9),
		bar(11, 9.5),
		bar(9.5, 8.5), // пробой вниз: low < SAR_next
	}

	points, err := s.Compute(candles)
	if err != nil {
		t.Fatal(err)
	}

	p2 := points[2]
	if p2.Trend != models.TrendDown {
		t.Fatalf("points[2].Trend = %q, want DOWNTREND", p2.Trend)
	}
	// SAR встаёт на прежний экстремум, AF сбрасывается
	if p2.SAR != 11 {
		t.Errorf("points[2].SAR = %v, want 11 (prev EP)", p2.SAR)
	}
	if p2.EP != 8.5 || p2.AF != 0.02 {
		t.Errorf("points[2] EP/AF = %v/%v, want 8.5/0.02", p2.EP, p2.AF)
	}
}

func TestComputeReversalUp(t *testing.T) {
	s := New("XAUUSD", 15, 0.02, 0.2, nil)

	candles := []models.Candle{
		bar(10, 9),
		bar(9.4, 8), // low 8 < 9.02: разворот вниз, SAR=10, EP=8
		bar(10.5, 9.8), // high > 9.96: разворот вверх
	}

	points, err := s.Compute(candles)
	if err != nil {
		t.Fatal(err)
	}

	if points[1].Trend != models.TrendDown {
		t.Fatalf("points[1].Trend = %q, want DOWNTREND", points[1].Trend)
	}

	p2 := points[2]
	if p2.Trend != models.TrendUp {
		t.Fatalf("points[2].Trend = %q, want UPTREND", p2.Trend)
	}
	if p2.SAR != 8 || p2.EP != 10.5 || p2.AF != 0.02 {
		t.Errorf("points[2] = %+v, want SAR=8 EP=10.5 AF=0.02", p2)
	}
}

func TestComputeAFClamp(t *testing.T) {
	s := New("XAUUSD", 15, 0.1, 0.15, nil)

	// Каждый бар обновляет максимум, AF растёт до потолка
	candles := []models.Candle{
		bar(10, 9),
		bar(11, 10),
		bar(12, 11),
		bar(13, 12),
	}

	points, err := s.Compute(candles)
	if err != nil {
		t.Fatal(err)
	}

	if math.Abs(points[1].AF-0.15) > eps {
		t.Errorf("points[1].AF = %v, want 0.15", points[1].AF)
	}
	if math.Abs(points[3].AF-0.15) > eps {
		t.Errorf("points[3].AF = %v, want clamp at 0.15", points[3].AF)
	}
}

// ============================================================
// Тесты Snapshot / StopLevel
// ============================================================

func TestSnapshot(t *testing.T) {
	s := New("XAUUSD", 15, 0.02, 0.2, nil)

	ts := time.Date(2026, 8, 6, 10, 15, 0, 0, time.UTC)
	candles := []models.Candle{
		bar(10, 9),
		bar(11, 9.5),
	}
	candles[1].Time = ts

	reading, err := s.Snapshot(candles, 10.0)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	if reading.Symbol != "XAUUSD" || reading.Timeframe != "15M" {
		t.Errorf("symbol/timeframe = %q/%q", reading.Symbol, reading.Timeframe)
	}
	if reading.Trend != models.TrendUp || reading.Signal != models.SideBuy {
		t.Errorf("trend/signal = %q/%q", reading.Trend, reading.Signal)
	}
	if reading.SAR != 9.0 {
		t.Errorf("SAR = %v, want 9.0", reading.SAR)
	}
	// bid 10, SAR 9: дистанция 1.00, это 10% от цены
	if reading.Distance != 1.0 {
		t.Errorf("Distance = %v, want 1.0", reading.Distance)
	}
	if reading.DistancePct != 10.0 {
		t.Errorf("DistancePct = %v, want 10.0", reading.DistancePct)
	}
	if reading.Timestamp != ts.Format(time.RFC3339) {
		t.Errorf("Timestamp = %q", reading.Timestamp)
	}
}

func TestSnapshotSellSignal(t *testing.T) {
	s := New("XAUUSD", 15, 0.02, 0.2, nil)

	candles := []models.Candle{
		bar(10, 9),
		bar(9.4, 8),
	}

	reading, err := s.Snapshot(candles, 8.5)
	if err != nil {
		t.Fatal(err)
	}
	if reading.Trend != models.TrendDown || reading.Signal != models.SideSell {
		t.Errorf("trend/signal = %q/%q, want DOWNTREND/SELL", reading.Trend, reading.Signal)
	}
}

func TestStopLevel(t *testing.T) {
	s := New("XAUUSD", 15, 0.02, 0.2, nil)

	reading := &models.SARReading{SAR: 2005.30, Trend: models.TrendUp}
	if got := s.StopLevel(reading, models.SideBuy); got != 2005.30 {
		t.Errorf("StopLevel(BUY) = %v, want 2005.30", got)
	}
	// Противоположный тренд не меняет значение
	if got := s.StopLevel(reading, models.SideSell); got != 2005.30 {
		t.Errorf("StopLevel(SELL) = %v, want 2005.30", got)
	}
	if got := s.StopLevel(nil, models.SideBuy); got != 0 {
		t.Errorf("StopLevel(nil) = %v, want 0", got)
	}
}

func TestTimeframeString(t *testing.T) {
	tests := []struct {
		minutes int
		want    string
	}{
		{15, "15M"},
		{60, "1H"},
		{240, "4H"},
		{1440, "1D"},
		{90, "90M"},
	}

	for _, tt := range tests {
		s := New("XAUUSD", tt.minutes, 0.02, 0.2, nil)
		if got := s.TimeframeString(); got != tt.want {
			t.Errorf("TimeframeString(%d) = %q, want %q", tt.minutes, got, tt.want)
		}
	}
}
