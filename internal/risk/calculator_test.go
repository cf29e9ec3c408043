package risk

import (
	"errors"
	"math"
	"testing"

	"goldbridge/internal/models"
)

const eps = 1e-9

func goldCalc() *Calculator {
	return NewCalculator(models.DefaultGoldSymbolInfo("XAUUSD"), 2.0)
}

// ============================================================
// Тесты SLTPByPrice
// ============================================================

func TestSLTPByPriceBuy(t *testing.T) {
	c := goldCalc()

	levels, err := c.SLTPByPrice(models.SideBuy, 2010.55, 2005.30)
	if err != nil {
		t.Fatalf("SLTPByPrice: %v", err)
	}

	if levels.StopLoss != 2005.30 {
		t.Errorf("StopLoss = %v, want 2005.30", levels.StopLoss)
	}
	// Дистанция 5.25, TP = 2010.55 + 2*5.25 = 2021.05
	if math.Abs(levels.SLDistance-5.25) > eps {
		t.Errorf("SLDistance = %v, want 5.25", levels.SLDistance)
	}
	if math.Abs(levels.TakeProfit-2021.05) > eps {
		t.Errorf("TakeProfit = %v, want 2021.05", levels.TakeProfit)
	}
	if levels.RRRatio != 2.0 {
		t.Errorf("RRRatio = %v, want 2.0", levels.RRRatio)
	}
}

func TestSLTPByPriceSell(t *testing.T) {
	c := goldCalc()

	levels, err := c.SLTPByPrice(models.SideSell, 2010.00, 2014.00)
	if err != nil {
		t.Fatalf("SLTPByPrice: %v", err)
	}

	// SELL: TP ниже входа, 2010 - 2*4 = 2002
	if math.Abs(levels.TakeProfit-2002.00) > eps {
		t.Errorf("TakeProfit = %v, want 2002.00", levels.TakeProfit)
	}
}

func TestSLTPByPriceWrongSideStop(t *testing.T) {
	c := goldCalc()

	// BUY со стопом выше входа
	if _, err := c.SLTPByPrice(models.SideBuy, 2010.00, 2015.00); !errors.Is(err, ErrInvalidStop) {
		t.Errorf("BUY stop above entry error = %v, want ErrInvalidStop", err)
	}
	// SELL со стопом ниже входа
	if _, err := c.SLTPByPrice(models.SideSell, 2010.00, 2005.00); !errors.Is(err, ErrInvalidStop) {
		t.Errorf("SELL stop below entry error = %v, want ErrInvalidStop", err)
	}
	// Стоп равен входу
	if _, err := c.SLTPByPrice(models.SideBuy, 2010.00, 2010.00); !errors.Is(err, ErrInvalidStop) {
		t.Errorf("stop == entry error = %v, want ErrInvalidStop", err)
	}
}

func TestSLTPByPriceRejectsBadInput(t *testing.T) {
	c := goldCalc()

	if _, err := c.SLTPByPrice("buy", 2010, 2005); err == nil {
		t.Error("lowercase side accepted")
	}
	if _, err := c.SLTPByPrice(models.SideBuy, 0, 2005); err == nil {
		t.Error("zero entry accepted")
	}
	if _, err := c.SLTPByPrice(models.SideBuy, 2010, -1); err == nil {
		t.Error("negative stop accepted")
	}
}

func TestSLTPByPriceRoundsToDigits(t *testing.T) {
	c := goldCalc()

	levels, err := c.SLTPByPrice(models.SideBuy, 2010.123, 2005.456)
	if err != nil {
		t.Fatal(err)
	}
	if levels.Entry != 2010.12 {
		t.Errorf("Entry = %v, want 2010.12", levels.Entry)
	}
	if levels.StopLoss != 2005.46 {
		t.Errorf("StopLoss = %v, want 2005.46", levels.StopLoss)
	}
}

// ============================================================
// Тесты PositionSize
// ============================================================

func TestPositionSize(t *testing.T) {
	c := goldCalc()

	// Баланс 10000, риск 1% = 100 USD.
	// Дистанция 5.00, контракт 100: лот = 100 / (5 * 100) = 0.20
	lots, info, err := c.PositionSize(10000, 1.0, 2010.00, 2005.00)
	if err != nil {
		t.Fatalf("PositionSize: %v", err)
	}
	if math.Abs(lots-0.20) > eps {
		t.Errorf("lots = %v, want 0.20", lots)
	}
	if info.RiskAmount != 100 {
		t.Errorf("RiskAmount = %v, want 100", info.RiskAmount)
	}
	if math.Abs(info.SLDistance-5.00) > eps {
		t.Errorf("SLDistance = %v, want 5.00", info.SLDistance)
	}
}

func TestPositionSizeRoundsToLotStep(t *testing.T) {
	c := goldCalc()

	// 100 / (5.25 * 100) = 0.190476..., шаг 0.01 -> 0.19
	lots, _, err := c.PositionSize(10000, 1.0, 2010.55, 2005.30)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(lots-0.19) > eps {
		t.Errorf("lots = %v, want 0.19", lots)
	}
}

func TestPositionSizeClampsToVolumeBounds(t *testing.T) {
	c := goldCalc()

	// Крошечный баланс даёт объём ниже минимума
	lots, _, err := c.PositionSize(10, 1.0, 2010.00, 2005.00)
	if err != nil {
		t.Fatal(err)
	}
	if lots != 0.01 {
		t.Errorf("lots = %v, want clamp to VolumeMin 0.01", lots)
	}

	// Огромный баланс упирается в максимум
	lots, _, err = c.PositionSize(100_000_000, 10.0, 2010.00, 2005.00)
	if err != nil {
		t.Fatal(err)
	}
	if lots != 100 {
		t.Errorf("lots = %v, want clamp to VolumeMax 100", lots)
	}
}

func TestPositionSizeRejectsBadInput(t *testing.T) {
	c := goldCalc()

	if _, _, err := c.PositionSize(0, 1.0, 2010, 2005); !errors.Is(err, ErrInvalidBalance) {
		t.Errorf("zero balance error = %v, want ErrInvalidBalance", err)
	}
	if _, _, err := c.PositionSize(10000, 0, 2010, 2005); !errors.Is(err, ErrInvalidRiskPct) {
		t.Errorf("zero risk error = %v, want ErrInvalidRiskPct", err)
	}
	if _, _, err := c.PositionSize(10000, 101, 2010, 2005); !errors.Is(err, ErrInvalidRiskPct) {
		t.Errorf("risk > 100 error = %v, want ErrInvalidRiskPct", err)
	}
	if _, _, err := c.PositionSize(10000, 1.0, 2010, 2010); !errors.Is(err, ErrZeroStopDist) {
		t.Errorf("zero distance error = %v, want ErrZeroStopDist", err)
	}
}

func TestNewCalculatorDefaultRR(t *testing.T) {
	c := NewCalculator(models.DefaultGoldSymbolInfo("XAUUSD"), 0)

	levels, err := c.SLTPByPrice(models.SideBuy, 2010.00, 2005.00)
	if err != nil {
		t.Fatal(err)
	}
	if levels.RRRatio != 2.0 {
		t.Errorf("default RRRatio = %v, want 2.0", levels.RRRatio)
	}
}
