package app

import (
	"context"
	"sync"

	"giveback_client/internal/live"
	"giveback_client/internal/session/domain"
	"giveback_client/pkg/localstore"

	"github.com/stretchr/testify/mock"
)

// MockAuthRepository Mock AuthRepository
type MockAuthRepository struct {
	mock.Mock
}

// Login moke login
func (m *MockAuthRepository) Login(ctx context.Context, email, password string) (*domain.LoginResult, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.LoginResult), args.Error(1)
	}
	return nil, args.Error(1)
}

// Register moke register
func (m *MockAuthRepository) Register(ctx context.Context, name, email, password string, role domain.Role) error {
	args := m.Called(ctx, name, email, password, role)
	return args.Error(0)
}

// memStore in-memory Repository，免開 bolt 檔案
type memStore struct {
	mu   sync.Mutex
	data map[string]domain.StoredSession
}

func newMemStore() *memStore {
	return &memStore{data: map[string]domain.StoredSession{}}
}

func (s *memStore) Set(ctx context.Context, key string, value domain.StoredSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *memStore) Get(ctx context.Context, key string) (domain.StoredSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	if !ok {
		return domain.StoredSession{}, localstore.ErrNotFound
	}
	return v, nil
}

func (s *memStore) Del(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func (s *memStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

// FakeTransport 手寫假 transport，只追蹤生命週期
type FakeTransport struct {
	mu           sync.Mutex
	userID       string
	closed       bool
	connectErr   error
	connectCalls int
}

// Connect 記次數，可注入失敗模擬後端未起
func (t *FakeTransport) Connect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.connectCalls++
	return t.connectErr
}

// SetConnectErr 設定下次 Connect 的結果
func (t *FakeTransport) SetConnectErr(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.connectErr = err
}

// ConnectCalls Connect 被呼叫的次數
func (t *FakeTransport) ConnectCalls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connectCalls
}

// UserID 綁定的使用者
func (t *FakeTransport) UserID() string { return t.userID }

// On no-op
func (t *FakeTransport) On(event string, h live.Handler) live.ListenerID { return 0 }

// Off no-op
func (t *FakeTransport) Off(event string, id live.ListenerID) {}

// Emit no-op
func (t *FakeTransport) Emit(event string, payload interface{}) error { return nil }

// Close 標記關閉
func (t *FakeTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

// Closed 是否已關閉
func (t *FakeTransport) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}
