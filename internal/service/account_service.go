package service

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"goldbridge/internal/models"
)

// account_service.go - снимок состояния торгового счёта
//
// Назначение:
// Снимает текущее состояние счёта из кэша моста и сохраняет его в
// JSON-файл. Файл используется внешними скриптами отчётности и
// переживает рестарты бота. Запись атомарная, как у журнала сделок.

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// AccountSource отдаёт последнее состояние счёта, присланное советником
type AccountSource interface {
	AccountInfo() (models.AccountInfo, bool)
}

// AccountSnapshot - сохраняемый снимок счёта
type AccountSnapshot struct {
	models.AccountInfo
	Symbol      string    `json:"symbol,omitempty"`
	CollectedAt time.Time `json:"collected_at"`
}

// AccountService собирает и сохраняет информацию о счёте
type AccountService struct {
	source AccountSource
	path   string
	logger *zap.Logger

	now func() time.Time
}

// NewAccountService создаёт сервис. path - путь к файлу снимка.
func NewAccountService(source AccountSource, path string, logger *zap.Logger) *AccountService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountService{
		source: source,
		path:   path,
		logger: logger.Named("account"),
		now:    time.Now,
	}
}

// Collect снимает состояние счёта и записывает его в файл.
// Возвращает снимок, чтобы вызывающий мог его залогировать.
func (s *AccountService) Collect(symbol string) (*AccountSnapshot, error) {
	info, ok := s.source.AccountInfo()
	if !ok {
		return nil, fmt.Errorf("account info not available yet")
	}

	snap := &AccountSnapshot{
		AccountInfo: info,
		Symbol:      symbol,
		CollectedAt: s.now(),
	}

	if err := s.write(snap); err != nil {
		return nil, err
	}

	s.logger.Info("account snapshot saved",
		zap.Float64("balance", info.Balance),
		zap.Float64("equity", info.Equity),
		zap.Int("leverage", info.Leverage))
	return snap, nil
}

// Load читает последний сохранённый снимок счёта
func (s *AccountService) Load() (*AccountSnapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read account snapshot: %w", err)
	}

	snap := &AccountSnapshot{}
	if err := json.Unmarshal(data, snap); err != nil {
		return nil, fmt.Errorf("parse account snapshot: %w", err)
	}
	return snap, nil
}

// write атомарно переписывает файл снимка
func (s *AccountService) write(snap *AccountSnapshot) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	data, err := json.MarshalIndent(snap, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal account snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".account-*.json")
	if err != nil {
		return fmt.Errorf("create temp snapshot file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write account snapshot: %w", err)
	}
	tmp.Close()

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace account snapshot: %w", err)
	}
	return nil
}
