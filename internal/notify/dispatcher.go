package notify

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"goldbridge/internal/models"
	"goldbridge/internal/websocket"
)

// dispatcher.go - раздача событий бота по каналам уведомлений
//
// Назначение:
// Единая точка для событий: кольцевой буфер последних уведомлений
// для API, broadcast в веб-интерфейс, письма о закрытии сделок и
// паузах предохранителя, архивация в БД. Отправка почты и запись в
// БД не блокируют торговый цикл.

// Размер кольцевого буфера последних уведомлений
const recentLimit = 100

// Archive сохраняет уведомления в долговременное хранилище
type Archive interface {
	SaveNotification(n models.Notification) error
}

// Dispatcher раздаёт уведомления подписчикам
type Dispatcher struct {
	hub     *websocket.Hub
	email   *EmailSender
	archive Archive
	logger  *zap.Logger

	mu     sync.Mutex
	recent []models.Notification
	nextID int
}

// NewDispatcher создаёт диспетчер. hub, email и archive опциональны.
func NewDispatcher(hub *websocket.Hub, email *EmailSender, archive Archive, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		hub:     hub,
		email:   email,
		archive: archive,
		logger:  logger.Named("notify"),
		nextID:  1,
	}
}

// Notify принимает событие бота и раздаёт его по каналам
func (d *Dispatcher) Notify(n models.Notification) {
	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now()
	}

	d.mu.Lock()
	n.ID = d.nextID
	d.nextID++
	d.recent = append(d.recent, n)
	if len(d.recent) > recentLimit {
		d.recent = d.recent[len(d.recent)-recentLimit:]
	}
	d.mu.Unlock()

	d.logger.Info("notification",
		zap.String("type", n.Type),
		zap.String("severity", n.Severity),
		zap.String("message", n.Message))

	if d.hub != nil {
		d.hub.BroadcastNotification(n)
	}

	if d.archive != nil {
		go func(n models.Notification) {
			if err := d.archive.SaveNotification(n); err != nil {
				d.logger.Warn("failed to archive notification", zap.Error(err))
			}
		}(n)
	}
}

// TradeClosed дополнительно шлёт письмо о закрытой сделке
func (d *Dispatcher) TradeClosed(rec models.TradeRecord) {
	if d.email == nil || !d.email.Enabled() {
		return
	}
	go func() {
		if err := d.email.SendTradeClosed(rec); err != nil {
			d.logger.Warn("failed to send trade email", zap.Error(err))
		}
	}()
}

// BreakerPaused шлёт уведомление и письмо о паузе предохранителя
func (d *Dispatcher) BreakerPaused(state models.BreakerState) {
	d.Notify(models.Notification{
		Type:     models.NotificationTypeBreaker,
		Severity: models.SeverityWarn,
		Message:  "trading paused: " + state.PauseReason,
	})

	if d.email == nil || !d.email.Enabled() {
		return
	}
	go func() {
		if err := d.email.SendBreakerPause(state); err != nil {
			d.logger.Warn("failed to send breaker email", zap.Error(err))
		}
	}()
}

// Recent возвращает последние уведомления от новых к старым
func (d *Dispatcher) Recent(n int) []models.Notification {
	d.mu.Lock()
	defer d.mu.Unlock()

	if n <= 0 || n > len(d.recent) {
		n = len(d.recent)
	}
	out := make([]models.Notification, 0, n)
	for i := len(d.recent) - 1; i >= len(d.recent)-n; i-- {
		out = append(out, d.recent[i])
	}
	return out
}
