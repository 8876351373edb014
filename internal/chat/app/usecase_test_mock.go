package app

import (
	"context"
	"encoding/json"
	"sync"

	"giveback_client/internal/chat/domain"
	"giveback_client/internal/live"

	"github.com/stretchr/testify/mock"
)

// MockChatRepository Mock ChatRepository
type MockChatRepository struct {
	mock.Mock
}

// FindGroupsByUser moke find groups by user id
func (m *MockChatRepository) FindGroupsByUser(ctx context.Context, userID string) ([]domain.ChatGroup, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.ChatGroup), args.Error(1)
	}
	return nil, args.Error(1)
}

// FindMessages moke find group history
func (m *MockChatRepository) FindMessages(ctx context.Context, groupID string) ([]domain.ChatMessage, error) {
	args := m.Called(ctx, groupID)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.ChatMessage), args.Error(1)
	}
	return nil, args.Error(1)
}

// SaveMessage moke persist msg
func (m *MockChatRepository) SaveMessage(ctx context.Context, groupID, senderID, content string) (string, error) {
	args := m.Called(ctx, groupID, senderID, content)
	return args.String(0), args.Error(1)
}

// InitiateChat moke initiate chat group
func (m *MockChatRepository) InitiateChat(ctx context.Context, params domain.InitiateParams) (string, error) {
	args := m.Called(ctx, params)
	return args.String(0), args.Error(1)
}

// ChatExists moke existence check
func (m *MockChatRepository) ChatExists(ctx context.Context, doneeID, donorID, donationID string) (bool, error) {
	args := m.Called(ctx, doneeID, donorID, donationID)
	return args.Bool(0), args.Error(1)
}

// EmittedEvent transport 送出的一筆事件
type EmittedEvent struct {
	Event   string
	Payload interface{}
}

// FakeTransport 手寫假 transport
// 記錄 emit、保存 handler，測試可用 Fire 注入 inbound 事件
type FakeTransport struct {
	mu       sync.Mutex
	userID   string
	emits    []EmittedEvent
	handlers map[string]map[live.ListenerID]live.Handler
	nextID   live.ListenerID
	closed   bool
}

// NewFakeTransport create fake transport
func NewFakeTransport(userID string) *FakeTransport {
	return &FakeTransport{
		userID:   userID,
		handlers: map[string]map[live.ListenerID]live.Handler{},
	}
}

// Connect no-op
func (t *FakeTransport) Connect(ctx context.Context) error { return nil }

// UserID 綁定的使用者
func (t *FakeTransport) UserID() string { return t.userID }

// On 保存 handler
func (t *FakeTransport) On(event string, h live.Handler) live.ListenerID {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextID++
	if t.handlers[event] == nil {
		t.handlers[event] = map[live.ListenerID]live.Handler{}
	}
	t.handlers[event][t.nextID] = h
	return t.nextID
}

// Off 移除 handler
func (t *FakeTransport) Off(event string, id live.ListenerID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.handlers[event], id)
}

// Emit 記錄事件
func (t *FakeTransport) Emit(event string, payload interface{}) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return live.ErrClosed
	}
	t.emits = append(t.emits, EmittedEvent{Event: event, Payload: payload})
	return nil
}

// Close 標記關閉
func (t *FakeTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	t.handlers = map[string]map[live.ListenerID]live.Handler{}
	return nil
}

// Closed 是否已關閉
func (t *FakeTransport) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// Emits 記錄到的 outbound 事件複本
func (t *FakeTransport) Emits() []EmittedEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]EmittedEvent, len(t.emits))
	copy(out, t.emits)
	return out
}

// ListenerCount 某事件目前掛著的 handler 數
func (t *FakeTransport) ListenerCount(event string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.handlers[event])
}

// Fire 模擬 inbound 事件，同步呼叫 handler
func (t *FakeTransport) Fire(event string, payload interface{}) {
	data, _ := json.Marshal(payload)

	t.mu.Lock()
	hs := make([]live.Handler, 0, len(t.handlers[event]))
	for _, h := range t.handlers[event] {
		hs = append(hs, h)
	}
	t.mu.Unlock()

	for _, h := range hs {
		h(json.RawMessage(data))
	}
}
