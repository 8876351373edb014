package app

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"giveback_client/internal/chat/domain"
	"giveback_client/internal/chat/repository"
	"giveback_client/internal/live"
	errprocess "giveback_client/pkg/err"
	"giveback_client/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ChatSession 一個聊天 view 的狀態
// 選定群組後: join 控制事件 + REST 撈歷史 (整份取代)，live 訊息去重後 append 到尾端
type ChatSession struct {
	repo      repository.ChatRepository
	transport live.Transport
	userID    string

	mu       sync.Mutex
	groupID  string
	messages []domain.ChatMessage
	listener live.ListenerID
	attached bool
	// epoch 擋掉 unmount/重選之後才回來的 REST 回應
	epoch int
}

// NewChatSession create chat view state for one user
func NewChatSession(repo repository.ChatRepository, transport live.Transport, userID string) *ChatSession {
	return &ChatSession{
		repo:      repo,
		transport: transport,
		userID:    userID,
	}
}

// Groups 該使用者的聊天群組列表
func (s *ChatSession) Groups(ctx context.Context) ([]domain.ChatGroup, error) {
	return s.repo.FindGroupsByUser(ctx, s.userID)
}

// Select 選定群組: join + 撈歷史，取代先前的訊息列表
// 重選其他群組時必定整份取代，不會出現 A ∪ B
func (s *ChatSession) Select(ctx context.Context, groupID string) error {
	if groupID == "" {
		return errprocess.Validation("chat group id is required")
	}

	s.mu.Lock()
	s.detachLocked()
	s.groupID = groupID
	s.messages = nil
	s.epoch++
	epoch := s.epoch

	if err := s.transport.Emit(live.EventJoinChatGroup, groupID); err != nil {
		logger.Log.Errorf("join emit failed:", err)
	}
	s.listener = s.transport.On(live.EventMessageReceived, s.handleIncoming)
	s.attached = true
	s.mu.Unlock()

	history, err := s.repo.FindMessages(ctx, groupID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// view 已換群組或關閉，丟棄遲到的回應
	if s.epoch != epoch {
		return nil
	}
	// REST 歷史按 createdAt 升冪，live 訊息視為較新、append 在尾端
	// 撈歷史期間先到的 live 訊息可能已含在歷史裡，合併時再去重一次
	merged := history
	for i := range s.messages {
		dup := false
		for j := range merged {
			if s.messages[i].IsDuplicateOf(&merged[j]) {
				dup = true
				break
			}
		}
		if !dup {
			merged = append(merged, s.messages[i])
		}
	}
	s.messages = merged
	return nil
}

// Messages 目前的訊息列表複本
func (s *ChatSession) Messages() []domain.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

// GroupID 目前選定的群組
func (s *ChatSession) GroupID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.groupID
}

// Send 兩段式送出: 先 REST 落庫拿 id，成功後本地 append 再廣播
// 顯示自己的訊息不依賴 echo，echo 回來由去重壓掉
func (s *ChatSession) Send(ctx context.Context, content string) (*domain.ChatMessage, error) {
	if content == "" {
		return nil, errprocess.Validation("message content is required")
	}

	s.mu.Lock()
	groupID := s.groupID
	s.mu.Unlock()
	if groupID == "" {
		return nil, errprocess.Validation("no chat group selected")
	}

	messageID, err := s.repo.SaveMessage(ctx, groupID, s.userID, content)
	if err != nil {
		return nil, err
	}

	msg := domain.ChatMessage{
		ID:          messageID,
		ChatGroupID: groupID,
		Sender:      s.userID,
		Content:     content,
		CreatedAt:   time.Now(),
	}

	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()

	// REST 成功後才廣播，帶後端給的 id，讓其他參與者即時看到
	if err := s.transport.Emit(live.EventSendMessage, msg); err != nil {
		logger.Log.Errorf("broadcast after save failed:", err)
	}
	return &msg, nil
}

// Initiate donee 對 donation 發起聊天，帶 idempotency key 防連點
func (s *ChatSession) Initiate(ctx context.Context, donorID, donationID, itemName, initialMessage string) (string, error) {
	if initialMessage == "" {
		return "", errprocess.Validation("initial message is required")
	}
	return s.repo.InitiateChat(ctx, domain.InitiateParams{
		DoneeID:        s.userID,
		DonorID:        donorID,
		DonationID:     donationID,
		ItemName:       itemName,
		InitialMessage: initialMessage,
		IdempotencyKey: uuid.New().String(),
	})
}

// Exists 該三元組是否已有聊天群組
func (s *ChatSession) Exists(ctx context.Context, donorID, donationID string) (bool, error) {
	return s.repo.ChatExists(ctx, s.userID, donorID, donationID)
}

// Close 離開目前群組: leave 控制事件 + 取消 listener (與 On 成對)
func (s *ChatSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.detachLocked()
	s.groupID = ""
	s.messages = nil
	s.epoch++
}

func (s *ChatSession) detachLocked() {
	if !s.attached {
		return
	}
	if err := s.transport.Emit(live.EventLeaveChatGroup, s.groupID); err != nil {
		logger.Log.Errorf("leave emit failed:", err)
	}
	s.transport.Off(live.EventMessageReceived, s.listener)
	s.attached = false
}

func (s *ChatSession) handleIncoming(data json.RawMessage) {
	var msg domain.ChatMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		logger.Log.Errorf("incoming message unmarshal error:", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// 不是目前群組的訊息不進這個 view
	if msg.ChatGroupID != s.groupID {
		return
	}
	for i := range s.messages {
		if msg.IsDuplicateOf(&s.messages[i]) {
			logger.Log.Debug("duplicate live message suppressed", zap.String("messageID", msg.ID))
			return
		}
	}
	s.messages = append(s.messages, msg)
}
