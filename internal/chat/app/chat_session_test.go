package app

import (
	"context"
	"os"
	"testing"
	"time"

	"giveback_client/internal/chat/domain"
	"giveback_client/internal/live"
	"giveback_client/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestMain(m *testing.M) {
	logger.SetNewNop()
	os.Exit(m.Run())
}

// 測試 Select: join + 撈歷史
func TestChatSession_Select(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockChatRepository)
	transport := NewFakeTransport("user-1")

	history := []domain.ChatMessage{
		{ID: "msg-1", ChatGroupID: "group-1", Sender: "user-2", Content: "hello", CreatedAt: time.Now().Add(-time.Hour)},
		{ID: "msg-2", ChatGroupID: "group-1", Sender: "user-1", Content: "hi", CreatedAt: time.Now().Add(-time.Minute)},
	}
	mockRepo.On("FindMessages", ctx, "group-1").Return(history, nil)

	s := NewChatSession(mockRepo, transport, "user-1")
	err := s.Select(ctx, "group-1")

	assert.NoError(t, err)
	assert.Equal(t, history, s.Messages())
	assert.Equal(t, "group-1", s.GroupID())

	emits := transport.Emits()
	assert.Len(t, emits, 1)
	assert.Equal(t, live.EventJoinChatGroup, emits[0].Event)
	assert.Equal(t, "group-1", emits[0].Payload)
	assert.Equal(t, 1, transport.ListenerCount(live.EventMessageReceived))

	mockRepo.AssertExpectations(t)
}

// 測試重選群組: 舊群組 leave，訊息整份取代不殘留
func TestChatSession_SelectReplacesPrevious(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockChatRepository)
	transport := NewFakeTransport("user-1")

	historyA := []domain.ChatMessage{
		{ID: "a-1", ChatGroupID: "group-a", Sender: "user-2", Content: "from a", CreatedAt: time.Now().Add(-time.Hour)},
	}
	historyB := []domain.ChatMessage{
		{ID: "b-1", ChatGroupID: "group-b", Sender: "user-3", Content: "from b", CreatedAt: time.Now().Add(-time.Hour)},
	}
	mockRepo.On("FindMessages", ctx, "group-a").Return(historyA, nil)
	mockRepo.On("FindMessages", ctx, "group-b").Return(historyB, nil)

	s := NewChatSession(mockRepo, transport, "user-1")
	assert.NoError(t, s.Select(ctx, "group-a"))
	assert.NoError(t, s.Select(ctx, "group-b"))

	assert.Equal(t, historyB, s.Messages())

	// join a → leave a → join b
	events := []string{}
	for _, e := range transport.Emits() {
		events = append(events, e.Event)
	}
	assert.Equal(t, []string{live.EventJoinChatGroup, live.EventLeaveChatGroup, live.EventJoinChatGroup}, events)
	// 換群組後 listener 不疊加
	assert.Equal(t, 1, transport.ListenerCount(live.EventMessageReceived))

	mockRepo.AssertExpectations(t)
}

// 測試 live 訊息: append、同 id 去重、別群組的訊息不進來
func TestChatSession_LiveMessageDedup(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockChatRepository)
	transport := NewFakeTransport("user-1")

	mockRepo.On("FindMessages", ctx, "group-1").Return([]domain.ChatMessage{}, nil)

	s := NewChatSession(mockRepo, transport, "user-1")
	assert.NoError(t, s.Select(ctx, "group-1"))

	incoming := domain.ChatMessage{
		ID: "msg-9", ChatGroupID: "group-1", Sender: "user-2", Content: "ping", CreatedAt: time.Now(),
	}
	transport.Fire(live.EventMessageReceived, incoming)
	assert.Len(t, s.Messages(), 1)

	// 同 id 再來一次
	transport.Fire(live.EventMessageReceived, incoming)
	assert.Len(t, s.Messages(), 1)

	// 別群組的訊息
	other := domain.ChatMessage{
		ID: "msg-10", ChatGroupID: "group-2", Sender: "user-2", Content: "other", CreatedAt: time.Now(),
	}
	transport.Fire(live.EventMessageReceived, other)
	assert.Len(t, s.Messages(), 1)
}

// 測試 id 不同但同 sender+content 且時間接近，也要壓掉
func TestChatSession_LiveMessageDedupByContent(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockChatRepository)
	transport := NewFakeTransport("user-1")

	now := time.Now()
	history := []domain.ChatMessage{
		{ID: "msg-1", ChatGroupID: "group-1", Sender: "user-2", Content: "ping", CreatedAt: now},
	}
	mockRepo.On("FindMessages", ctx, "group-1").Return(history, nil)

	s := NewChatSession(mockRepo, transport, "user-1")
	assert.NoError(t, s.Select(ctx, "group-1"))

	transport.Fire(live.EventMessageReceived, domain.ChatMessage{
		ID: "msg-x", ChatGroupID: "group-1", Sender: "user-2", Content: "ping",
		CreatedAt: now.Add(500 * time.Millisecond),
	})
	assert.Len(t, s.Messages(), 1)

	// 超出時間窗就是新訊息
	transport.Fire(live.EventMessageReceived, domain.ChatMessage{
		ID: "msg-y", ChatGroupID: "group-1", Sender: "user-2", Content: "ping",
		CreatedAt: now.Add(5 * time.Second),
	})
	assert.Len(t, s.Messages(), 2)
}

// 測試 transport 已收掉時 Select 仍完成歷史載入，join 失敗不中斷 view
func TestChatSession_SelectAfterTransportClosed(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockChatRepository)
	transport := NewFakeTransport("user-1")
	assert.NoError(t, transport.Close())

	history := []domain.ChatMessage{
		{ID: "msg-1", ChatGroupID: "group-1", Sender: "user-2", Content: "hello", CreatedAt: time.Now()},
	}
	mockRepo.On("FindMessages", ctx, "group-1").Return(history, nil)

	s := NewChatSession(mockRepo, transport, "user-1")
	assert.NoError(t, s.Select(ctx, "group-1"))
	assert.Equal(t, history, s.Messages())

	// leave 在關閉的 transport 上也不得 panic
	s.Close()
	assert.Empty(t, s.Messages())
	mockRepo.AssertExpectations(t)
}

// 測試兩段式送出: REST 先落庫、本地 append、再廣播；echo 回來不重複
func TestChatSession_SendEchoSuppressed(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockChatRepository)
	transport := NewFakeTransport("user-1")

	mockRepo.On("FindMessages", ctx, "group-1").Return([]domain.ChatMessage{}, nil)
	mockRepo.On("SaveMessage", ctx, "group-1", "user-1", "hello").Return("msg-7", nil)

	s := NewChatSession(mockRepo, transport, "user-1")
	assert.NoError(t, s.Select(ctx, "group-1"))

	msg, err := s.Send(ctx, "hello")
	assert.NoError(t, err)
	assert.Equal(t, "msg-7", msg.ID)
	assert.Len(t, s.Messages(), 1)

	// 廣播帶後端給的 id
	emits := transport.Emits()
	last := emits[len(emits)-1]
	assert.Equal(t, live.EventSendMessage, last.Event)
	assert.Equal(t, "msg-7", last.Payload.(domain.ChatMessage).ID)

	// 自己的訊息被 echo 回來
	transport.Fire(live.EventMessageReceived, *msg)
	assert.Len(t, s.Messages(), 1)

	mockRepo.AssertExpectations(t)
}

// 測試 REST 失敗時不 append 也不廣播
func TestChatSession_SendSaveFailed(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockChatRepository)
	transport := NewFakeTransport("user-1")

	mockRepo.On("FindMessages", ctx, "group-1").Return([]domain.ChatMessage{}, nil)
	mockRepo.On("SaveMessage", ctx, "group-1", "user-1", "hello").
		Return("", assert.AnError)

	s := NewChatSession(mockRepo, transport, "user-1")
	assert.NoError(t, s.Select(ctx, "group-1"))

	msg, err := s.Send(ctx, "hello")
	assert.Error(t, err)
	assert.Nil(t, msg)
	assert.Empty(t, s.Messages())

	for _, e := range transport.Emits() {
		assert.NotEqual(t, live.EventSendMessage, e.Event)
	}
	mockRepo.AssertExpectations(t)
}

// 測試未選群組 / 空內容的防呆
func TestChatSession_SendValidation(t *testing.T) {
	ctx := context.Background()
	s := NewChatSession(new(MockChatRepository), NewFakeTransport("user-1"), "user-1")

	_, err := s.Send(ctx, "")
	assert.Error(t, err)

	_, err = s.Send(ctx, "hello")
	assert.Error(t, err)
}

// 測試 Initiate: donee 是自己，key 每次都要帶
func TestChatSession_Initiate(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockChatRepository)
	transport := NewFakeTransport("donee-1")

	mockRepo.On("InitiateChat", ctx, mock.MatchedBy(func(p domain.InitiateParams) bool {
		return p.DoneeID == "donee-1" && p.DonorID == "donor-1" &&
			p.DonationID == "donation-1" && p.IdempotencyKey != ""
	})).Return("group-9", nil)

	s := NewChatSession(mockRepo, transport, "donee-1")
	groupID, err := s.Initiate(ctx, "donor-1", "donation-1", "Winter coat", "Hi, I am interested in your Winter coat.")

	assert.NoError(t, err)
	assert.Equal(t, "group-9", groupID)
	mockRepo.AssertExpectations(t)
}

// 測試 Close: leave + listener 取消，狀態清空
func TestChatSession_Close(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockChatRepository)
	transport := NewFakeTransport("user-1")

	mockRepo.On("FindMessages", ctx, "group-1").Return([]domain.ChatMessage{
		{ID: "msg-1", ChatGroupID: "group-1", Sender: "user-2", Content: "hello", CreatedAt: time.Now()},
	}, nil)

	s := NewChatSession(mockRepo, transport, "user-1")
	assert.NoError(t, s.Select(ctx, "group-1"))
	s.Close()

	emits := transport.Emits()
	assert.Equal(t, live.EventLeaveChatGroup, emits[len(emits)-1].Event)
	assert.Equal(t, 0, transport.ListenerCount(live.EventMessageReceived))
	assert.Empty(t, s.GroupID())
	assert.Empty(t, s.Messages())

	// Close 之後的 live 訊息不得出現
	transport.Fire(live.EventMessageReceived, domain.ChatMessage{
		ID: "msg-2", ChatGroupID: "group-1", Sender: "user-2", Content: "late", CreatedAt: time.Now(),
	})
	assert.Empty(t, s.Messages())
}
