package app

import (
	"context"
	"os"
	"testing"
	"time"

	"giveback_client/internal/live"
	"giveback_client/internal/notification/domain"
	"giveback_client/pkg/logger"

	"github.com/stretchr/testify/assert"
)

func TestMain(m *testing.M) {
	logger.SetNewNop()
	os.Exit(m.Run())
}

// 測試 Load: 撈歷史 + 掛 live listener，重複 Load 不疊加 listener
func TestAggregator_Load(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockNotificationRepository)
	transport := NewFakeTransport("user-1")

	history := []domain.Notification{
		{ID: "note-1", Sender: "user-2", Content: "hello", ChatGroupID: "group-1", CreatedAt: time.Now(), Read: true},
		{ID: "note-2", Sender: "user-3", Content: "hi", ChatGroupID: "group-2", CreatedAt: time.Now()},
	}
	mockRepo.On("FindByUser", ctx, "user-1").Return(history, nil)

	a := NewAggregator(mockRepo, transport, "user-1")
	assert.NoError(t, a.Load(ctx))

	assert.Equal(t, history, a.All())
	assert.Equal(t, 1, a.UnreadCount())
	assert.Equal(t, 1, transport.ListenerCount(live.EventNewNotification))

	// 再 Load 一次 (例如 badge 刷新) listener 不能變兩個
	assert.NoError(t, a.Load(ctx))
	assert.Equal(t, 1, transport.ListenerCount(live.EventNewNotification))

	mockRepo.AssertExpectations(t)
}

// 測試 live 事件: 轉成未讀通知 append 在尾端
func TestAggregator_LiveNotification(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockNotificationRepository)
	transport := NewFakeTransport("user-1")

	mockRepo.On("FindByUser", ctx, "user-1").Return([]domain.Notification{}, nil)

	a := NewAggregator(mockRepo, transport, "user-1")
	assert.NoError(t, a.Load(ctx))

	transport.Fire(live.EventNewNotification, domain.LivePayload{
		Sender: "user-2", Message: "new message", ChatGroupID: "group-1",
	})

	all := a.All()
	assert.Len(t, all, 1)
	assert.Equal(t, "user-2", all[0].Sender)
	assert.Equal(t, "new message", all[0].Content)
	assert.Equal(t, "group-1", all[0].ChatGroupID)
	assert.False(t, all[0].Read)
	assert.Equal(t, 1, a.UnreadCount())
}

// 測試 MarkAsRead: 本地先翻旗標，REST 失敗不回滾
func TestAggregator_MarkAsReadOptimistic(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockNotificationRepository)
	transport := NewFakeTransport("user-1")

	mockRepo.On("FindByUser", ctx, "user-1").Return([]domain.Notification{
		{ID: "note-1", Sender: "user-2", Content: "hello", Read: false},
	}, nil)
	mockRepo.On("MarkRead", ctx, "note-1").Return(assert.AnError)

	a := NewAggregator(mockRepo, transport, "user-1")
	assert.NoError(t, a.Load(ctx))

	err := a.MarkAsRead(ctx, "note-1")
	assert.Error(t, err)

	// 失敗也不回滾，本地維持已讀
	assert.True(t, a.All()[0].Read)
	assert.Equal(t, 0, a.UnreadCount())

	mockRepo.AssertExpectations(t)
}

// 測試 MarkAllAsRead: 全翻旗標；零筆時也是安全的 no-op
func TestAggregator_MarkAllAsRead(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockNotificationRepository)
	transport := NewFakeTransport("user-1")

	mockRepo.On("FindByUser", ctx, "user-1").Return([]domain.Notification{
		{ID: "note-1", Read: false},
		{ID: "note-2", Read: false},
		{ID: "note-3", Read: true},
	}, nil)
	mockRepo.On("MarkAllRead", ctx, "user-1").Return(nil)

	a := NewAggregator(mockRepo, transport, "user-1")
	assert.NoError(t, a.Load(ctx))

	assert.NoError(t, a.MarkAllAsRead(ctx))
	assert.Equal(t, 0, a.UnreadCount())

	mockRepo.AssertExpectations(t)
}

func TestAggregator_MarkAllAsReadEmpty(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockNotificationRepository)
	transport := NewFakeTransport("user-1")

	mockRepo.On("FindByUser", ctx, "user-1").Return([]domain.Notification{}, nil)
	mockRepo.On("MarkAllRead", ctx, "user-1").Return(nil)

	a := NewAggregator(mockRepo, transport, "user-1")
	assert.NoError(t, a.Load(ctx))
	assert.NoError(t, a.MarkAllAsRead(ctx))
	assert.Equal(t, 0, a.UnreadCount())
}

// 測試 Detach: listener 取消後 live 事件不再進來
func TestAggregator_Detach(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockNotificationRepository)
	transport := NewFakeTransport("user-1")

	mockRepo.On("FindByUser", ctx, "user-1").Return([]domain.Notification{}, nil)

	a := NewAggregator(mockRepo, transport, "user-1")
	assert.NoError(t, a.Load(ctx))
	a.Detach()

	assert.Equal(t, 0, transport.ListenerCount(live.EventNewNotification))
	transport.Fire(live.EventNewNotification, domain.LivePayload{Sender: "user-2", Message: "late"})
	assert.Empty(t, a.All())
}
