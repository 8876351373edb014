package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"giveback_client/pkg/config"
	"giveback_client/pkg/logger"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// 與後端 live channel 的事件名
const (
	// EventJoinChatGroup outbound join control event
	EventJoinChatGroup = "joinChatGroup"
	// EventLeaveChatGroup outbound leave control event
	EventLeaveChatGroup = "leaveChatGroup"
	// EventSendMessage outbound broadcast after REST-confirmed write
	EventSendMessage = "sendMessage"
	// EventMessageReceived inbound chat message
	EventMessageReceived = "messageReceived"
	// EventNewNotification inbound notification
	EventNewNotification = "newNotification"
)

// Envelope live channel 的封包格式
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Handler 收到事件後的回呼
type Handler func(data json.RawMessage)

// ListenerID On 的對應編號，Off 時使用 (每個 on 都要有對應的 off)
type ListenerID int64

// ErrClosed 連線已由 session 收尾關閉
var ErrClosed = errors.New("live: transport closed")

// Transport 整個 session 共用的單一 live 連線
// 只有 session 收尾路徑可以 Close
type Transport interface {
	Connect(ctx context.Context) error
	On(event string, h Handler) ListenerID
	Off(event string, id ListenerID)
	Emit(event string, payload interface{}) error
	Close() error
	UserID() string
}

type wsTransport struct {
	url      string
	userID   string
	token    string
	attempts int
	delay    time.Duration

	// dialMu 串行化 dial: 多個 view 同時觸發 Connect 只能建一條連線
	dialMu sync.Mutex

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	closed    bool
	nextID    ListenerID
	handlers  map[string]map[ListenerID]Handler
	pending   [][]byte // 連線就緒前排隊的 outbound 封包
}

// NewTransport create transport for one logged-in user
// user id 變更時由 session 重建，其他狀態變更不得重建連線
func NewTransport(cfg config.LiveConfig, userID, token string) Transport {
	attempts := cfg.ReconnectAttempts
	if attempts <= 0 {
		attempts = 10
	}
	delay := cfg.ReconnectDelay
	if delay <= 0 {
		delay = time.Second
	}
	return &wsTransport{
		url:      cfg.URL,
		userID:   userID,
		token:    token,
		attempts: attempts,
		delay:    delay,
		handlers: map[string]map[ListenerID]Handler{},
	}
}

// UserID 此連線綁定的使用者
func (t *wsTransport) UserID() string {
	return t.userID
}

// Connect dial 連線並啟動 read pump，重複呼叫是 no-op
// 並行呼叫由 dialMu 串行化，後到的會等第一條建好後直接返回
func (t *wsTransport) Connect(ctx context.Context) error {
	t.dialMu.Lock()
	defer t.dialMu.Unlock()

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}
	if t.conn != nil {
		t.mu.Unlock()
		return nil
	}
	t.mu.Unlock()

	conn, err := t.dial(ctx)
	if err != nil {
		return err
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		conn.Close()
		return ErrClosed
	}
	if t.conn != nil {
		// reconnect 搶先建好了，新的這條收掉
		t.mu.Unlock()
		conn.Close()
		return nil
	}
	t.conn = conn
	t.connected = true
	pending := t.pending
	t.pending = nil
	t.mu.Unlock()

	logger.Log.Info("live connected", zap.String("userID", t.userID))

	// 連線就緒後補發排隊的封包 (join 等控制事件)
	for _, raw := range pending {
		t.write(raw)
	}

	go t.readPump(conn)
	return nil
}

func (t *wsTransport) dial(ctx context.Context) (*websocket.Conn, error) {
	u, err := url.Parse(t.url)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("userId", t.userID)
	// id 本身不是信任邊界，連線一併帶上後端簽發的 token
	q.Set("auth", t.token)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("live dial failed: %w", err)
	}
	return conn, nil
}

// On 註冊事件回呼
func (t *wsTransport) On(event string, h Handler) ListenerID {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.nextID++
	id := t.nextID
	if t.handlers[event] == nil {
		t.handlers[event] = map[ListenerID]Handler{}
	}
	t.handlers[event][id] = h
	return id
}

// Off 取消註冊，與 On 成對
func (t *wsTransport) Off(event string, id ListenerID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.handlers[event], id)
}

// Emit 送出事件；連線未就緒時排隊，就緒後依序送出
func (t *wsTransport) Emit(event string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		return err
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}
	if !t.connected {
		t.pending = append(t.pending, raw)
		t.mu.Unlock()
		logger.Log.Debug("live emit queued", zap.String("event", event))
		return nil
	}
	t.mu.Unlock()

	return t.write(raw)
}

func (t *wsTransport) write(raw []byte) error {
	// gorilla 連線僅允許單一 writer
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return ErrClosed
	}
	return t.conn.WriteMessage(websocket.TextMessage, raw)
}

// Close 關閉連線，只允許 session 收尾路徑呼叫
func (t *wsTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	conn := t.conn
	t.conn = nil
	t.connected = false
	t.handlers = map[string]map[ListenerID]Handler{}
	t.pending = nil
	t.mu.Unlock()

	if conn != nil {
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "logout"),
			time.Now().Add(time.Second),
		)
		return conn.Close()
	}
	return nil
}

func (t *wsTransport) readPump(conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			t.mu.Lock()
			closed := t.closed
			t.mu.Unlock()
			if closed {
				return
			}

			// disconnect 只記 log，不對使用者顯示，重連無聲進行
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Log.Infof("live connection closed:", err)
			} else {
				logger.Log.Errorf("live read error:", err)
			}

			t.reconnect()
			return
		}
		t.dispatch(raw)
	}
}

// reconnect 固定間隔、有限次數
func (t *wsTransport) reconnect() {
	t.mu.Lock()
	t.conn = nil
	t.connected = false
	t.mu.Unlock()

	for i := 1; i <= t.attempts; i++ {
		t.mu.Lock()
		if t.closed {
			t.mu.Unlock()
			return
		}
		t.mu.Unlock()

		time.Sleep(t.delay)

		t.dialMu.Lock()
		t.mu.Lock()
		if t.conn != nil {
			// Connect 搶先建好了
			t.mu.Unlock()
			t.dialMu.Unlock()
			return
		}
		t.mu.Unlock()

		conn, err := t.dial(context.Background())
		if err != nil {
			t.dialMu.Unlock()
			logger.Log.Warn("live reconnect failed",
				zap.Int("attempt", i), zap.String("err", err.Error()))
			continue
		}

		t.mu.Lock()
		if t.closed {
			t.mu.Unlock()
			t.dialMu.Unlock()
			conn.Close()
			return
		}
		t.conn = conn
		t.connected = true
		pending := t.pending
		t.pending = nil
		t.mu.Unlock()
		t.dialMu.Unlock()

		logger.Log.Info("live reconnected", zap.Int("attempt", i))
		for _, raw := range pending {
			t.write(raw)
		}
		go t.readPump(conn)
		return
	}
	logger.Log.Error("live reconnect gave up", zap.Int("attempts", t.attempts))
}

func (t *wsTransport) dispatch(raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		logger.Log.Errorf("live envelope unmarshal error:", err)
		return
	}

	t.mu.Lock()
	hs := make([]Handler, 0, len(t.handlers[env.Event]))
	for _, h := range t.handlers[env.Event] {
		hs = append(hs, h)
	}
	t.mu.Unlock()

	for _, h := range hs {
		h(env.Data)
	}
}
