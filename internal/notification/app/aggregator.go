package app

import (
	"context"
	"encoding/json"
	"sync"

	"giveback_client/internal/live"
	"giveback_client/internal/notification/domain"
	"giveback_client/internal/notification/repository"
	"giveback_client/pkg/logger"

	"go.uber.org/zap"
)

// Aggregator 通知彙整
// 歷史撈一次 + live 事件 append；fetch 與 live 兩邊之間不保證總排序，各自來源內保序
type Aggregator struct {
	repo      repository.NotificationRepository
	transport live.Transport
	userID    string

	mu       sync.Mutex
	items    []domain.Notification
	listener live.ListenerID
	attached bool
}

// NewAggregator create notification aggregator for one user
func NewAggregator(repo repository.NotificationRepository, transport live.Transport, userID string) *Aggregator {
	return &Aggregator{
		repo:      repo,
		transport: transport,
		userID:    userID,
	}
}

// Load mount 時撈一次歷史並掛上 live listener
func (a *Aggregator) Load(ctx context.Context) error {
	notes, err := a.repo.FindByUser(ctx, a.userID)
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.items = notes
	if !a.attached {
		a.listener = a.transport.On(live.EventNewNotification, a.handleIncoming)
		a.attached = true
	}
	a.mu.Unlock()
	return nil
}

// All 目前所有通知的複本
func (a *Aggregator) All() []domain.Notification {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]domain.Notification, len(a.items))
	copy(out, a.items)
	return out
}

// UnreadCount read=false 的筆數，badge 用
func (a *Aggregator) UnreadCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for i := range a.items {
		if !a.items[i].Read {
			n++
		}
	}
	return n
}

// MarkAsRead 樂觀翻旗標: REST 失敗只記 log，本地不回滾
func (a *Aggregator) MarkAsRead(ctx context.Context, notificationID string) error {
	a.mu.Lock()
	for i := range a.items {
		if a.items[i].ID == notificationID {
			a.items[i].Read = true
			break
		}
	}
	a.mu.Unlock()

	if err := a.repo.MarkRead(ctx, notificationID); err != nil {
		logger.Log.Error("mark-as-read failed, local state kept",
			zap.String("notificationID", notificationID), zap.String("err", err.Error()))
		return err
	}
	return nil
}

// MarkAllAsRead 全部翻旗標，零筆時也要是安全的 no-op
func (a *Aggregator) MarkAllAsRead(ctx context.Context) error {
	a.mu.Lock()
	for i := range a.items {
		a.items[i].Read = true
	}
	a.mu.Unlock()

	if err := a.repo.MarkAllRead(ctx, a.userID); err != nil {
		logger.Log.Error("mark-all-as-read failed, local state kept", zap.String("err", err.Error()))
		return err
	}
	return nil
}

// Detach unmount 時取消 live listener (與 On 成對)
func (a *Aggregator) Detach() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.attached {
		a.transport.Off(live.EventNewNotification, a.listener)
		a.attached = false
	}
}

func (a *Aggregator) handleIncoming(data json.RawMessage) {
	var payload domain.LivePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		logger.Log.Errorf("notification payload unmarshal error:", err)
		return
	}

	a.mu.Lock()
	a.items = append(a.items, payload.ToNotification())
	a.mu.Unlock()
}
