package websocket

import (
	"bytes"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"goldbridge/internal/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Пул буферов сериализации, убирает аллокации при каждом Broadcast
var jsonBufferPool = sync.Pool{
	New: func() interface{} {
		return bytes.NewBuffer(make([]byte, 0, 512))
	},
}

// Hub управляет всеми активными WebSocket соединениями
//
// Назначение:
// Центральный менеджер broadcast сообщений всем подключённым
// клиентам веб-интерфейса: состояние бота, тики, уведомления и
// статистика уходят без polling'а.
//
// Использование:
// 1. Создать hub: hub := NewHub(logger)
// 2. Запустить в горутине: go hub.Run()
// 3. Отправлять сообщения: hub.BroadcastStatus(...)
type Hub struct {
	clients map[*Client]bool

	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	logger *zap.Logger
	mu     sync.RWMutex
}

// NewHub создаёт новый Hub
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger.Named("ws"),
	}
}

// Run запускает главный цикл Hub.
//
// Должен запускаться в отдельной горутине: go hub.Run()
// Список клиентов копируется под коротким RLock, отправка идёт без
// блокировки, медленные клиенты удаляются под Write Lock.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("client connected", zap.Int("total", total))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("client disconnected", zap.Int("total", total))

		case message := <-h.broadcast:
			h.mu.RLock()
			clients := make([]*Client, 0, len(h.clients))
			for client := range h.clients {
				clients = append(clients, client)
			}
			h.mu.RUnlock()

			var toRemove []*Client
			for _, client := range clients {
				select {
				case client.send <- message:
				default:
					// Клиент не успевает, буфер переполнен
					toRemove = append(toRemove, client)
				}
			}

			if len(toRemove) > 0 {
				h.mu.Lock()
				for _, client := range toRemove {
					if _, ok := h.clients[client]; ok {
						delete(h.clients, client)
						close(client.send)
					}
				}
				h.mu.Unlock()
				h.logger.Warn("removed slow clients", zap.Int("count", len(toRemove)))
			}
		}
	}
}

// Broadcast сериализует сообщение и рассылает его всем клиентам
func (h *Hub) Broadcast(message interface{}) {
	buf := jsonBufferPool.Get().(*bytes.Buffer)
	buf.Reset()

	if err := json.NewEncoder(buf).Encode(message); err != nil {
		h.logger.Error("failed to marshal broadcast message", zap.Error(err))
		jsonBufferPool.Put(buf)
		return
	}

	// Encode добавляет завершающий перевод строки
	data := buf.Bytes()
	if len(data) > 0 && data[len(data)-1] == '\n' {
		data = data[:len(data)-1]
	}

	msgCopy := make([]byte, len(data))
	copy(msgCopy, data)
	jsonBufferPool.Put(buf)

	select {
	case h.broadcast <- msgCopy:
	default:
		h.logger.Warn("broadcast buffer full, message dropped")
	}
}

// BroadcastStatus отправляет срез состояния бота
func (h *Hub) BroadcastStatus(status models.BotStatus) {
	h.Broadcast(NewStatusUpdateMessage(status))
}

// BroadcastTick отправляет свежий тик с показанием индикатора
func (h *Hub) BroadcastTick(market models.MarketData, sar *models.SARReading) {
	h.Broadcast(NewTickUpdateMessage(market, sar))
}

// BroadcastNotification отправляет новое уведомление
func (h *Hub) BroadcastNotification(notif models.Notification) {
	h.Broadcast(NewNotificationMessage(notif))
}

// BroadcastStats отправляет обновление статистики
func (h *Hub) BroadcastStats(stats models.Stats) {
	h.Broadcast(NewStatsUpdateMessage(stats))
}

// ClientCount возвращает количество подключённых клиентов
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
