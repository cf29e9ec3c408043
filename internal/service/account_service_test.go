package service

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"goldbridge/internal/models"
)

// ============================================================
// Фейковый источник состояния счёта
// ============================================================

type fakeAccountSource struct {
	info models.AccountInfo
	ok   bool
}

func (f *fakeAccountSource) AccountInfo() (models.AccountInfo, bool) {
	return f.info, f.ok
}

func newTestAccountService(t *testing.T, source AccountSource) (*AccountService, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "account.json")
	s := NewAccountService(source, path, nil)
	s.now = func() time.Time { return time.Date(2026, 8, 6, 12, 0, 0, 0, time.UTC) }
	return s, path
}

// ============================================================
// Тесты Collect / Load
// ============================================================

func TestCollectWritesSnapshot(t *testing.T) {
	source := &fakeAccountSource{
		info: models.AccountInfo{Balance: 10000, Equity: 10050, Leverage: 100, Currency: "USD"},
		ok:   true,
	}
	s, path := newTestAccountService(t, source)

	snap, err := s.Collect("XAUUSD")
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if snap.Balance != 10000 || snap.Symbol != "XAUUSD" {
		t.Errorf("snapshot = %+v", snap)
	}
	if snap.CollectedAt.IsZero() {
		t.Error("CollectedAt not set")
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("snapshot file missing: %v", err)
	}
}

func TestCollectWithoutAccountInfo(t *testing.T) {
	s, _ := newTestAccountService(t, &fakeAccountSource{})

	if _, err := s.Collect("XAUUSD"); err == nil {
		t.Error("Collect succeeded without account info")
	}
}

func TestLoadRoundTrip(t *testing.T) {
	source := &fakeAccountSource{
		info: models.AccountInfo{Balance: 9500.50, Equity: 9400, Leverage: 50},
		ok:   true,
	}
	s, _ := newTestAccountService(t, source)

	if _, err := s.Collect("GOLD"); err != nil {
		t.Fatalf("Collect: %v", err)
	}

	loaded, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Balance != 9500.50 || loaded.Symbol != "GOLD" {
		t.Errorf("loaded = %+v", loaded)
	}
	if !loaded.CollectedAt.Equal(time.Date(2026, 8, 6, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("CollectedAt = %v", loaded.CollectedAt)
	}
}

func TestLoadMissingFile(t *testing.T) {
	s, _ := newTestAccountService(t, &fakeAccountSource{})

	if _, err := s.Load(); err == nil {
		t.Error("Load succeeded for missing file")
	}
}

func TestCollectOverwritesPrevious(t *testing.T) {
	source := &fakeAccountSource{
		info: models.AccountInfo{Balance: 10000},
		ok:   true,
	}
	s, _ := newTestAccountService(t, source)

	if _, err := s.Collect("XAUUSD"); err != nil {
		t.Fatal(err)
	}

	source.info.Balance = 10100
	if _, err := s.Collect("XAUUSD"); err != nil {
		t.Fatal(err)
	}

	loaded, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Balance != 10100 {
		t.Errorf("balance = %v, want latest 10100", loaded.Balance)
	}
}
