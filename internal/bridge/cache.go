package bridge

import (
	"sync"
	"time"

	"goldbridge/internal/models"
)

// cache.go - кэш последних данных от советника
//
// Назначение:
// Все чтения рыночного состояния ботом идут через кэш и никогда не
// блокируют сокет. Кэш наполняется циклом чтения моста: тик, счёт и
// параметры символа из market_data, позиции из position-кадров и
// ответов GET_POSITIONS.

// Cache хранит последнее известное состояние рынка и счёта
type Cache struct {
	mu sync.RWMutex

	market     models.MarketData
	hasMarket  bool
	account    models.AccountInfo
	hasAccount bool
	symbol     models.SymbolInfo
	hasSymbol  bool

	positions map[int64]models.BrokerPosition

	lastHeartbeat time.Time
	lastMessage   time.Time
}

// NewCache создаёт пустой кэш
func NewCache() *Cache {
	return &Cache{
		positions: make(map[int64]models.BrokerPosition),
	}
}

// applyMarketData обновляет тик, счёт и параметры символа из одного кадра
func (c *Cache) applyMarketData(f marketDataFrame, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.market = models.MarketData{
		Symbol:     f.Symbol,
		Bid:        f.Bid,
		Ask:        f.Ask,
		Spread:     f.Spread,
		ReceivedAt: now,
	}
	c.hasMarket = true

	c.account = models.AccountInfo{
		Balance:    f.Balance,
		Equity:     f.Equity,
		Margin:     f.Margin,
		FreeMargin: f.FreeMargin,
		Profit:     f.Profit,
		Leverage:   f.Leverage,
	}
	c.hasAccount = true

	// Параметры символа приходят не с каждым тиком
	if f.Point > 0 && f.ContractSize > 0 {
		c.symbol = models.SymbolInfo{
			Symbol:       f.Symbol,
			Point:        f.Point,
			Digits:       f.Digits,
			ContractSize: f.ContractSize,
			VolumeMin:    f.MinLot,
			VolumeMax:    f.MaxLot,
			VolumeStep:   f.LotStep,
		}
		c.hasSymbol = true
	}

	c.lastMessage = now
}

// applyPosition обновляет или добавляет позицию
func (c *Cache) applyPosition(p models.BrokerPosition, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.positions[p.Ticket] = p
	c.lastMessage = now
}

// setPositions заменяет набор позиций целиком (ответ GET_POSITIONS)
func (c *Cache) setPositions(ps []models.BrokerPosition, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.positions = make(map[int64]models.BrokerPosition, len(ps))
	for _, p := range ps {
		c.positions[p.Ticket] = p
	}
	c.lastMessage = now
}

// markHeartbeat фиксирует признак жизни советника
func (c *Cache) markHeartbeat(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastHeartbeat = now
	c.lastMessage = now
}

// clear сбрасывает кэш при отключении советника.
// Позиции остаются, их судьбу выясняет монитор после переподключения.
func (c *Cache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hasMarket = false
	c.hasAccount = false
}

// MarketData возвращает последний тик
func (c *Cache) MarketData() (models.MarketData, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.market, c.hasMarket
}

// AccountInfo возвращает последнее состояние счёта
func (c *Cache) AccountInfo() (models.AccountInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.account, c.hasAccount
}

// SymbolInfo возвращает параметры символа, если советник их прислал
func (c *Cache) SymbolInfo() (models.SymbolInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.symbol, c.hasSymbol
}

// Positions возвращает копию открытых позиций
func (c *Cache) Positions() []models.BrokerPosition {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]models.BrokerPosition, 0, len(c.positions))
	for _, p := range c.positions {
		out = append(out, p)
	}
	return out
}

// Position возвращает позицию по тикету
func (c *Cache) Position(ticket int64) (models.BrokerPosition, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.positions[ticket]
	return p, ok
}

// Age возвращает время с последнего сообщения советника
func (c *Cache) Age(now time.Time) time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.lastMessage.IsZero() {
		return -1
	}
	return now.Sub(c.lastMessage)
}
