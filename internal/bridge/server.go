package bridge

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"goldbridge/internal/config"
	"goldbridge/internal/models"
	"goldbridge/pkg/ratelimit"
)

// server.go - TCP-сервер моста к терминальному советнику
//
// Назначение:
// Принимает единственное подключение советника на локальном порту.
// Цикл чтения разбирает кадры и наполняет кэш, команды уходят по
// одной: перед отправкой буфер ответов опустошается, затем ожидается
// первый подходящий кадр. Новое подключение вытесняет старое.

// Ошибки моста
var (
	ErrNotConnected   = errors.New("expert advisor is not connected")
	ErrCommandTimeout = errors.New("command response timeout")
	ErrOrderRejected  = errors.New("order rejected by terminal")
)

// Состояния подключения советника
const (
	connStateDisconnected int32 = iota
	connStateConnected
)

// Подряд пришедший мусор означает рассинхронизацию потока кадров,
// такое подключение закрывается и советник переподключается заново
const maxConsecutiveMalformed = 10

func connStateString(s int32) string {
	switch s {
	case connStateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Server слушает порт моста и обслуживает советника
type Server struct {
	cfg    config.BridgeConfig
	cache  *Cache
	logger *zap.Logger

	listener net.Listener

	// Текущее подключение советника
	connMu sync.Mutex
	conn   net.Conn
	connID uint64

	state int32

	// Команды сериализованы: один запрос, один ответ
	cmdMu   sync.Mutex
	limiter *ratelimit.Limiter

	// Кадры order_result, response и rates из цикла чтения
	responses chan responseEnvelope

	callbackMu   sync.Mutex
	onConnect    func()
	onDisconnect func()

	connectedCh chan struct{}

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// responseEnvelope - один ответный кадр с номером подключения,
// по которому отбрасываются ответы вытесненных советников
type responseEnvelope struct {
	connID uint64
	typ    string
	raw    []byte
}

// NewServer создаёт сервер моста
func NewServer(cfg config.BridgeConfig, cache *Cache, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cache == nil {
		cache = NewCache()
	}
	return &Server{
		cfg:         cfg,
		cache:       cache,
		logger:      logger.Named("bridge"),
		limiter:     ratelimit.NewRateLimiter(cfg.CommandRate, float64(cfg.CommandBurst)),
		responses:   make(chan responseEnvelope, 16),
		connectedCh: make(chan struct{}, 1),
	}
}

// Cache возвращает кэш рыночных данных сервера
func (s *Server) Cache() *Cache {
	return s.cache
}

// Addr возвращает фактический адрес слушателя после Start
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.cfg.BridgeAddr()
	}
	return s.listener.Addr().String()
}

// OnConnect регистрирует обработчик подключения советника
func (s *Server) OnConnect(fn func()) {
	s.callbackMu.Lock()
	defer s.callbackMu.Unlock()
	s.onConnect = fn
}

// OnDisconnect регистрирует обработчик потери советника
func (s *Server) OnDisconnect(fn func()) {
	s.callbackMu.Lock()
	defer s.callbackMu.Unlock()
	s.onDisconnect = fn
}

// IsConnected сообщает, подключён ли советник
func (s *Server) IsConnected() bool {
	return atomic.LoadInt32(&s.state) == connStateConnected
}

// Start открывает порт и запускает цикл приёма подключений
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.BridgeAddr())
	if err != nil {
		return fmt.Errorf("listen bridge port: %w", err)
	}
	s.listener = ln

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.logger.Info("bridge listening",
		zap.String("addr", s.cfg.BridgeAddr()))

	s.wg.Add(2)
	go s.acceptLoop(ctx)
	go s.watchdog(ctx)
	return nil
}

// Stop закрывает порт и текущее подключение
func (s *Server) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.listener != nil {
		s.listener.Close()
	}
	s.dropConn(0)
	s.wg.Wait()
	s.logger.Info("bridge stopped")
}

// WaitForConnection ждёт подключения советника не дольше таймаута
func (s *Server) WaitForConnection(ctx context.Context) error {
	if s.IsConnected() {
		return nil
	}

	deadline := time.NewTimer(s.cfg.ConnectTimeout)
	defer deadline.Stop()

	for {
		select {
		case <-s.connectedCh:
			return nil
		case <-deadline.C:
			return fmt.Errorf("no expert advisor within %s: %w", s.cfg.ConnectTimeout, ErrNotConnected)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// acceptLoop принимает подключения, последнее вытесняет предыдущее
func (s *Server) acceptLoop(ctx context.Context) {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
			}
			s.logger.Warn("accept failed", zap.Error(err))
			continue
		}

		id := s.adoptConn(conn)
		s.logger.Info("expert advisor connected",
			zap.String("remote", conn.RemoteAddr().String()),
			zap.Uint64("conn_id", id))

		s.wg.Add(1)
		go s.readLoop(ctx, conn, id)
	}
}

// adoptConn делает conn текущим подключением, закрывая прежнее
func (s *Server) adoptConn(conn net.Conn) uint64 {
	s.connMu.Lock()
	old := s.conn
	s.connID++
	id := s.connID
	s.conn = conn
	s.connMu.Unlock()

	if old != nil {
		s.logger.Warn("superseding previous expert advisor connection")
		old.Close()
	}

	atomic.StoreInt32(&s.state, connStateConnected)
	select {
	case s.connectedCh <- struct{}{}:
	default:
	}

	s.callbackMu.Lock()
	fn := s.onConnect
	s.callbackMu.Unlock()
	if fn != nil {
		go fn()
	}
	return id
}

// dropConn закрывает подключение с номером id.
// id = 0 закрывает любое текущее.
func (s *Server) dropConn(id uint64) {
	s.connMu.Lock()
	if s.conn == nil || (id != 0 && s.connID != id) {
		s.connMu.Unlock()
		return
	}
	conn := s.conn
	s.conn = nil
	s.connMu.Unlock()

	conn.Close()
	atomic.StoreInt32(&s.state, connStateDisconnected)
	s.cache.clear()

	s.logger.Warn("expert advisor disconnected",
		zap.Uint64("conn_id", id))

	s.callbackMu.Lock()
	fn := s.onDisconnect
	s.callbackMu.Unlock()
	if fn != nil {
		go fn()
	}
}

// readLoop читает кадры подключения до его закрытия
func (s *Server) readLoop(ctx context.Context, conn net.Conn, id uint64) {
	defer s.wg.Done()
	defer s.dropConn(id)

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 4096), s.cfg.MaxFrameSize)

	malformed := 0
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if s.dispatch(id, line) {
			malformed = 0
		} else {
			malformed++
			if malformed >= maxConsecutiveMalformed {
				s.logger.Warn("too many malformed frames, closing connection",
					zap.Int("count", malformed),
					zap.Uint64("conn_id", id))
				return
			}
		}

		select {
		case <-ctx.Done():
			return
		default:
		}
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		s.logger.Warn("read loop ended", zap.Error(err), zap.Uint64("conn_id", id))
	}
}

// dispatch разбирает один кадр и раскладывает его по назначению.
// Возвращает false для кадра, который не удалось разобрать.
func (s *Server) dispatch(id uint64, line []byte) bool {
	var probe typeProbe
	if err := json.Unmarshal(line, &probe); err != nil {
		s.logger.Warn("malformed frame", zap.Error(err))
		return false
	}

	now := time.Now()

	switch probe.Type {
	case frameMarketData:
		var f marketDataFrame
		if err := json.Unmarshal(line, &f); err != nil {
			s.logger.Warn("bad market_data frame", zap.Error(err))
			return false
		}
		s.cache.applyMarketData(f, now)

	case frameHeartbeat:
		s.cache.markHeartbeat(now)

	case framePosition:
		var f positionFrame
		if err := json.Unmarshal(line, &f); err != nil {
			s.logger.Warn("bad position frame", zap.Error(err))
			return false
		}
		s.cache.applyPosition(f.toModel(), now)

	case frameOrderResult, frameResponse, frameRates:
		raw := make([]byte, len(line))
		copy(raw, line)
		select {
		case s.responses <- responseEnvelope{connID: id, typ: probe.Type, raw: raw}:
		default:
			// Буфер полон: никто не ждёт ответа, кадр устарел
			s.logger.Warn("dropping unsolicited response frame",
				zap.String("type", probe.Type))
		}

	default:
		s.logger.Debug("unknown frame type", zap.String("type", probe.Type))
	}
	return true
}

// watchdog следит за свежестью данных советника
func (s *Server) watchdog(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.HeartbeatTimeout / 3)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.IsConnected() {
				continue
			}
			age := s.cache.Age(time.Now())
			if age > s.cfg.HeartbeatTimeout {
				s.logger.Warn("expert advisor silent, closing connection",
					zap.Duration("age", age))
				s.dropConn(0)
			}
		}
	}
}

// sendCommand сериализует команду, опустошает буфер ответов и ждёт
// первый ответный кадр. Ответы порядковые, без идентификаторов.
func (s *Server) sendCommand(ctx context.Context, cmd command) (responseEnvelope, error) {
	s.cmdMu.Lock()
	defer s.cmdMu.Unlock()

	if err := s.limiter.Wait(ctx); err != nil {
		return responseEnvelope{}, fmt.Errorf("command rate limit: %w", err)
	}

	s.connMu.Lock()
	conn := s.conn
	id := s.connID
	s.connMu.Unlock()
	if conn == nil {
		return responseEnvelope{}, ErrNotConnected
	}

	// Устаревшие ответы предыдущих команд
	for {
		select {
		case stale := <-s.responses:
			s.logger.Debug("discarding stale response",
				zap.String("type", stale.typ))
			continue
		default:
		}
		break
	}

	data, err := json.Marshal(cmd)
	if err != nil {
		return responseEnvelope{}, fmt.Errorf("marshal command: %w", err)
	}
	data = append(data, '\n')

	conn.SetWriteDeadline(time.Now().Add(s.cfg.CommandTimeout))
	if _, err := conn.Write(data); err != nil {
		s.dropConn(id)
		return responseEnvelope{}, fmt.Errorf("send command %s: %w", cmd.Action, err)
	}

	timer := time.NewTimer(s.cfg.CommandTimeout)
	defer timer.Stop()

	for {
		select {
		case env := <-s.responses:
			if env.connID != id {
				// Ответ вытесненного подключения
				continue
			}
			return env, nil
		case <-timer.C:
			return responseEnvelope{}, fmt.Errorf("action %s: %w", cmd.Action, ErrCommandTimeout)
		case <-ctx.Done():
			return responseEnvelope{}, ctx.Err()
		}
	}
}

// OpenOrder отправляет BUY или SELL и возвращает результат исполнения
func (s *Server) OpenOrder(ctx context.Context, side string, symbol string, volume, sl, tp float64, comment string, magic int) (*OrderResult, error) {
	action := ActionBuy
	if side == models.SideSell {
		action = ActionSell
	}

	env, err := s.sendCommand(ctx, command{
		Action:     action,
		Symbol:     symbol,
		Volume:     volume,
		StopLoss:   sl,
		TakeProfit: tp,
		Comment:    comment,
		Magic:      magic,
	})
	if err != nil {
		return nil, err
	}
	return parseOrderResult(env)
}

// ClosePosition отправляет CLOSE по тикету
func (s *Server) ClosePosition(ctx context.Context, ticket int64) (*OrderResult, error) {
	env, err := s.sendCommand(ctx, command{
		Action: ActionClose,
		Ticket: ticket,
	})
	if err != nil {
		return nil, err
	}
	return parseOrderResult(env)
}

// ModifyPosition отправляет MODIFY с новыми уровнями SL/TP
func (s *Server) ModifyPosition(ctx context.Context, ticket int64, sl, tp float64) (*OrderResult, error) {
	env, err := s.sendCommand(ctx, command{
		Action:     ActionModify,
		Ticket:     ticket,
		StopLoss:   sl,
		TakeProfit: tp,
	})
	if err != nil {
		return nil, err
	}
	return parseOrderResult(env)
}

// RequestPositions запрашивает список позиций и обновляет кэш
func (s *Server) RequestPositions(ctx context.Context) ([]models.BrokerPosition, error) {
	env, err := s.sendCommand(ctx, command{Action: ActionGetPositions})
	if err != nil {
		return nil, err
	}

	var resp responseFrame
	if err := json.Unmarshal(env.raw, &resp); err != nil {
		return nil, fmt.Errorf("parse positions response: %w", err)
	}
	if !resp.Success && resp.Error != "" {
		return nil, fmt.Errorf("get positions: %s", resp.Error)
	}

	positions := make([]models.BrokerPosition, 0, len(resp.Positions))
	for _, p := range resp.Positions {
		positions = append(positions, p.toModel())
	}
	s.cache.setPositions(positions, time.Now())
	return positions, nil
}

// GetRates запрашивает историю баров указанного таймфрейма
func (s *Server) GetRates(ctx context.Context, count, timeframe int) ([]models.Candle, error) {
	env, err := s.sendCommand(ctx, command{
		Action:    ActionGetRates,
		Count:     count,
		Timeframe: timeframe,
	})
	if err != nil {
		return nil, err
	}

	var resp ratesFrame
	if err := json.Unmarshal(env.raw, &resp); err != nil {
		return nil, fmt.Errorf("parse rates response: %w", err)
	}

	candles := make([]models.Candle, 0, len(resp.Data))
	for _, bar := range resp.Data {
		candles = append(candles, bar.toCandle())
	}
	return candles, nil
}

// parseOrderResult разбирает кадр результата торговой команды
func parseOrderResult(env responseEnvelope) (*OrderResult, error) {
	if env.typ != frameOrderResult && env.typ != frameResponse {
		return nil, fmt.Errorf("unexpected response type %q", env.typ)
	}

	var res OrderResult
	if err := json.Unmarshal(env.raw, &res); err != nil {
		return nil, fmt.Errorf("parse order result: %w", err)
	}
	if !res.Success {
		if res.Error != "" {
			return &res, fmt.Errorf("%w: %s", ErrOrderRejected, res.Error)
		}
		return &res, ErrOrderRejected
	}
	return &res, nil
}
