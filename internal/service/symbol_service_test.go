package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"goldbridge/internal/models"
)

// ============================================================
// Фейковый источник рыночных данных
// ============================================================

type fakeMarketSource struct {
	mu     sync.Mutex
	market models.MarketData
	hasMD  bool
	info   models.SymbolInfo
	hasSI  bool
}

func (f *fakeMarketSource) MarketData() (models.MarketData, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.market, f.hasMD
}

func (f *fakeMarketSource) SymbolInfo() (models.SymbolInfo, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.info, f.hasSI
}

func (f *fakeMarketSource) setMarket(md models.MarketData) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.market = md
	f.hasMD = true
}

// ============================================================
// Тесты Detect
// ============================================================

func TestDetectFromMarketData(t *testing.T) {
	source := &fakeMarketSource{}
	source.setMarket(models.MarketData{Symbol: "XAUUSD.", Bid: 2010.50})

	s := NewSymbolService(source, []string{"XAUUSD", "GOLD"}, nil)

	symbol, err := s.Detect(context.Background())
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if symbol != "XAUUSD." {
		t.Errorf("symbol = %q, want terminal symbol", symbol)
	}
	if s.Symbol() != "XAUUSD." {
		t.Errorf("Symbol() = %q", s.Symbol())
	}
}

func TestDetectFallsBackToPriority(t *testing.T) {
	source := &fakeMarketSource{}
	s := NewSymbolService(source, []string{"GOLD", "XAUUSD"}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	symbol, err := s.Detect(ctx)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if symbol != "GOLD" {
		t.Errorf("symbol = %q, want first priority", symbol)
	}
}

func TestDetectNoDataNoPriority(t *testing.T) {
	source := &fakeMarketSource{}
	s := NewSymbolService(source, nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := s.Detect(ctx); err == nil {
		t.Error("Detect succeeded without data and priority list")
	}
}

func TestDetectWaitsForTick(t *testing.T) {
	source := &fakeMarketSource{}
	s := NewSymbolService(source, []string{"GOLD"}, nil)

	go func() {
		time.Sleep(20 * time.Millisecond)
		source.setMarket(models.MarketData{Symbol: "XAUUSD"})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	symbol, err := s.Detect(ctx)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if symbol != "XAUUSD" {
		t.Errorf("symbol = %q, want XAUUSD from late tick", symbol)
	}
}

// ============================================================
// Тесты Info
// ============================================================

func TestInfoFromTerminal(t *testing.T) {
	source := &fakeMarketSource{
		info:  models.SymbolInfo{Symbol: "XAUUSD.", Point: 0.01, ContractSize: 100},
		hasSI: true,
	}
	s := NewSymbolService(source, nil, nil)

	info := s.Info()
	if info.Symbol != "XAUUSD." || info.ContractSize != 100 {
		t.Errorf("info = %+v", info)
	}
}

func TestInfoDefaultsWithoutTerminal(t *testing.T) {
	source := &fakeMarketSource{}
	s := NewSymbolService(source, []string{"GOLD"}, nil)

	info := s.Info()
	if info.Symbol != "GOLD" {
		t.Errorf("symbol = %q, want priority fallback", info.Symbol)
	}
	want := models.DefaultGoldSymbolInfo("GOLD")
	if info.Point != want.Point || info.ContractSize != want.ContractSize {
		t.Errorf("info = %+v, want gold defaults", info)
	}
}
