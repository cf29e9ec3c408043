package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config содержит всю конфигурацию приложения
type Config struct {
	Bridge   BridgeConfig
	Trading  TradingConfig
	Risk     RiskConfig
	Breaker  BreakerConfig
	Ledger   LedgerConfig
	Database DatabaseConfig
	API      APIConfig
	Email    EmailConfig
	Logging  LoggingConfig
}

// BridgeConfig - настройки TCP моста к терминальному советнику
type BridgeConfig struct {
	Host             string
	Port             int
	CommandTimeout   time.Duration // ожидание order_result/response после команды
	HeartbeatTimeout time.Duration // максимальная тишина от советника
	ConnectTimeout   time.Duration // ожидание первого подключения советника
	CommandRate      float64       // команд в секунду к советнику
	CommandBurst     int
	MaxFrameSize     int // байт на один кадр
}

// TradingConfig - торговые параметры
type TradingConfig struct {
	SymbolPriority        []string // приоритет символов если советник не прислал свой
	DesiredSignal         string   // BUY, SELL, BOTH
	Timeframe             int      // минуты (M15 = 15)
	RatesCount            int      // баров для расчёта индикатора
	SignalCheckInterval   time.Duration
	PositionCheckInterval time.Duration
	MagicNumber           int
	SARStep               float64
	SARMax                float64
}

// RiskConfig - параметры управления риском
type RiskConfig struct {
	RiskPercentage float64 // риск на сделку, % от баланса
	RRRatio        float64 // отношение TP к SL
}

// BreakerConfig - параметры предохранителя
type BreakerConfig struct {
	ConsecutiveLossLimit  int           // порог первого уровня
	ConsecutiveLossPause  time.Duration // пауза первого уровня
	SevereLossLimit       int           // порог второго уровня
	SevereLossPause       time.Duration // пауза второго уровня
	LossRateWindow        int           // окно последних закрытых сделок
	LossRateThreshold     float64       // доля убыточных, 0-1
	LossRatePause         time.Duration
	DailyLossLimitUSD     float64
	DailyLossLimitPct     float64
	DailyLossUsePct       bool
	StateFile             string
}

// LedgerConfig - настройки журнала сделок
type LedgerConfig struct {
	Dir             string // каталог дневных файлов
	LookbackDays    int    // глубина поиска открытой сделки при закрытии
	AccountInfoFile string
}

// DatabaseConfig - настройки подключения к БД (архив сделок)
type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string
}

// APIConfig - настройки HTTP сервера наблюдения
type APIConfig struct {
	Host          string
	Port          int
	AdminKeyHash  string // bcrypt-хеш токена для мутирующих запросов
	AllowedOrigin string
}

// EmailConfig - настройки почтовых уведомлений
type EmailConfig struct {
	SMTPServer string
	SMTPPort   int
	Sender     string
	Password   string
	Recipient  string
}

// Enabled возвращает true если заданы все учётные данные
func (e EmailConfig) Enabled() bool {
	return e.Sender != "" && e.Password != "" && e.Recipient != ""
}

// LoggingConfig - настройки логирования
type LoggingConfig struct {
	Level  string
	Format string
}

// Load загружает конфигурацию из переменных окружения
func Load() (*Config, error) {
	cfg := &Config{
		Bridge: BridgeConfig{
			Host:             getEnv("BRIDGE_HOST", "127.0.0.1"),
			Port:             getEnvAsInt("BRIDGE_PORT", 9090),
			CommandTimeout:   getEnvAsDuration("BRIDGE_COMMAND_TIMEOUT", 5*time.Second),
			HeartbeatTimeout: getEnvAsDuration("BRIDGE_HEARTBEAT_TIMEOUT", 30*time.Second),
			ConnectTimeout:   getEnvAsDuration("BRIDGE_CONNECT_TIMEOUT", 60*time.Second),
			CommandRate:      getEnvAsFloat("BRIDGE_COMMAND_RATE", 10),
			CommandBurst:     getEnvAsInt("BRIDGE_COMMAND_BURST", 5),
			MaxFrameSize:     getEnvAsInt("BRIDGE_MAX_FRAME_SIZE", 64*1024),
		},
		Trading: TradingConfig{
			SymbolPriority:        getEnvAsList("SYMBOL_PRIORITY", []string{"XAUUSD", "XAUUSD.", "GOLD"}),
			DesiredSignal:         getEnv("DESIRED_SIGNAL", "BOTH"),
			Timeframe:             getEnvAsInt("TIMEFRAME_MINUTES", 15),
			RatesCount:            getEnvAsInt("RATES_COUNT", 100),
			SignalCheckInterval:   getEnvAsDuration("SIGNAL_CHECK_INTERVAL", 5*time.Second),
			PositionCheckInterval: getEnvAsDuration("POSITION_CHECK_INTERVAL", 5*time.Second),
			MagicNumber:           getEnvAsInt("MAGIC_NUMBER", 234000),
			SARStep:               getEnvAsFloat("SAR_STEP", 0.02),
			SARMax:                getEnvAsFloat("SAR_MAX", 0.2),
		},
		Risk: RiskConfig{
			RiskPercentage: getEnvAsFloat("RISK_PERCENTAGE", 1.0),
			RRRatio:        getEnvAsFloat("RR_RATIO", 2.0),
		},
		Breaker: BreakerConfig{
			ConsecutiveLossLimit: getEnvAsInt("BREAKER_CONSECUTIVE_LOSSES", 5),
			ConsecutiveLossPause: getEnvAsDuration("BREAKER_CONSECUTIVE_PAUSE", 3*time.Hour),
			SevereLossLimit:      getEnvAsInt("BREAKER_SEVERE_LOSSES", 8),
			SevereLossPause:      getEnvAsDuration("BREAKER_SEVERE_PAUSE", 5*time.Hour),
			LossRateWindow:       getEnvAsInt("BREAKER_LOSS_RATE_WINDOW", 10),
			LossRateThreshold:    getEnvAsFloat("BREAKER_LOSS_RATE_THRESHOLD", 0.7),
			LossRatePause:        getEnvAsDuration("BREAKER_LOSS_RATE_PAUSE", 5*time.Hour),
			DailyLossLimitUSD:    getEnvAsFloat("DAILY_LOSS_LIMIT_USD", 500),
			DailyLossLimitPct:    getEnvAsFloat("DAILY_LOSS_LIMIT_PCT", 5.0),
			DailyLossUsePct:      getEnvAsBool("DAILY_LOSS_USE_PCT", true),
			StateFile:            getEnv("BREAKER_STATE_FILE", "circuit_breaker_state.json"),
		},
		Ledger: LedgerConfig{
			Dir:             getEnv("TRADE_LOG_DIR", "trade_logs"),
			LookbackDays:    getEnvAsInt("TRADE_LOG_LOOKBACK_DAYS", 7),
			AccountInfoFile: getEnv("ACCOUNT_INFO_FILE", "logs/account_info.json"),
		},
		Database: DatabaseConfig{
			Enabled:  getEnvAsBool("DB_ENABLED", false),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			Name:     getEnv("DB_NAME", "goldbridge"),
			User:     getEnv("DB_USER", "user"),
			Password: getEnv("DB_PASSWORD", "password"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		API: APIConfig{
			Host:          getEnv("API_HOST", "0.0.0.0"),
			Port:          getEnvAsInt("API_PORT", 8080),
			AdminKeyHash:  getEnv("API_ADMIN_KEY_HASH", ""),
			AllowedOrigin: getEnv("API_ALLOWED_ORIGIN", "*"),
		},
		Email: EmailConfig{
			SMTPServer: getEnv("SMTP_SERVER", "smtp.gmail.com"),
			SMTPPort:   getEnvAsInt("SMTP_PORT", 587),
			Sender:     getEnv("EMAIL_SENDER", ""),
			Password:   getEnv("EMAIL_PASSWORD", ""),
			Recipient:  getEnv("EMAIL_RECIPIENT", ""),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	// Валидация числовых диапазонов
	if err := cfg.validateRanges(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateRanges проверяет числовые диапазоны параметров
func (c *Config) validateRanges() error {
	if c.Bridge.Port < 1 || c.Bridge.Port > 65535 {
		return fmt.Errorf("BRIDGE_PORT must be between 1 and 65535, got %d", c.Bridge.Port)
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		return fmt.Errorf("API_PORT must be between 1 and 65535, got %d", c.API.Port)
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("DB_PORT must be between 1 and 65535, got %d", c.Database.Port)
	}

	if c.Bridge.CommandTimeout <= 0 {
		return fmt.Errorf("BRIDGE_COMMAND_TIMEOUT must be positive, got %v", c.Bridge.CommandTimeout)
	}

	if c.Bridge.HeartbeatTimeout <= 0 {
		return fmt.Errorf("BRIDGE_HEARTBEAT_TIMEOUT must be positive, got %v", c.Bridge.HeartbeatTimeout)
	}

	switch c.Trading.DesiredSignal {
	case "BUY", "SELL", "BOTH":
	default:
		return fmt.Errorf("DESIRED_SIGNAL must be BUY, SELL or BOTH, got %q", c.Trading.DesiredSignal)
	}

	if c.Trading.RatesCount < 2 {
		return fmt.Errorf("RATES_COUNT must be at least 2, got %d", c.Trading.RatesCount)
	}

	if c.Risk.RiskPercentage <= 0 || c.Risk.RiskPercentage > 100 {
		return fmt.Errorf("RISK_PERCENTAGE must be in (0, 100], got %v", c.Risk.RiskPercentage)
	}

	if c.Risk.RRRatio <= 0 {
		return fmt.Errorf("RR_RATIO must be positive, got %v", c.Risk.RRRatio)
	}

	if c.Trading.SARStep <= 0 || c.Trading.SARMax < c.Trading.SARStep {
		return fmt.Errorf("invalid SAR parameters: step=%v max=%v", c.Trading.SARStep, c.Trading.SARMax)
	}

	if c.Breaker.LossRateWindow < 1 {
		return fmt.Errorf("BREAKER_LOSS_RATE_WINDOW must be at least 1, got %d", c.Breaker.LossRateWindow)
	}

	if c.Breaker.LossRateThreshold <= 0 || c.Breaker.LossRateThreshold > 1 {
		return fmt.Errorf("BREAKER_LOSS_RATE_THRESHOLD must be in (0, 1], got %v", c.Breaker.LossRateThreshold)
	}

	if c.Ledger.LookbackDays < 1 {
		return fmt.Errorf("TRADE_LOG_LOOKBACK_DAYS must be at least 1, got %d", c.Ledger.LookbackDays)
	}

	return nil
}

// DSN возвращает строку подключения к базе данных
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// DSNWithoutPassword возвращает строку подключения без пароля (для логирования)
func (d DatabaseConfig) DSNWithoutPassword() string {
	return fmt.Sprintf("host=%s port=%d user=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Name, d.SSLMode)
}

// BridgeAddr возвращает адрес прослушивания моста
func (b BridgeConfig) BridgeAddr() string {
	return fmt.Sprintf("%s:%d", b.Host, b.Port)
}

// Вспомогательные функции для чтения переменных окружения

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
