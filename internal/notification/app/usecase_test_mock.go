package app

import (
	"context"
	"encoding/json"
	"sync"

	"giveback_client/internal/live"
	"giveback_client/internal/notification/domain"

	"github.com/stretchr/testify/mock"
)

// MockNotificationRepository Mock NotificationRepository
type MockNotificationRepository struct {
	mock.Mock
}

// FindByUser moke find notifications by user id
func (m *MockNotificationRepository) FindByUser(ctx context.Context, userID string) ([]domain.Notification, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Notification), args.Error(1)
	}
	return nil, args.Error(1)
}

// MarkRead moke mark one read
func (m *MockNotificationRepository) MarkRead(ctx context.Context, notificationID string) error {
	args := m.Called(ctx, notificationID)
	return args.Error(0)
}

// MarkAllRead moke mark all read
func (m *MockNotificationRepository) MarkAllRead(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// FakeTransport 手寫假 transport，保存 handler 供 Fire 注入事件
type FakeTransport struct {
	mu       sync.Mutex
	userID   string
	handlers map[string]map[live.ListenerID]live.Handler
	nextID   live.ListenerID
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

// Emit no-op
func (t *FakeTransport) Emit(event string, payload interface{}) error { return nil }

// Close no-op
func (t *FakeTransport) Close() error { return nil }

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
