package domain

import "time"

// Notification 一筆通知
// 來源是歷史 REST 撈取或 live 事件；client 端不刪除，只翻 read 旗標
type Notification struct {
	ID          string    `json:"_id"`
	Sender      string    `json:"sender"`
	Content     string    `json:"content"`
	ChatGroupID string    `json:"chatGroupId"`
	CreatedAt   time.Time `json:"createdAt"`
	Read        bool      `json:"read"`
}

// LivePayload newNotification 事件的封包格式
type LivePayload struct {
	Sender      string `json:"sender"`
	Message     string `json:"message"`
	ChatGroupID string `json:"chatGroupId"`
}

// ToNotification live 事件轉成本地通知，時間取收到當下
func (p *LivePayload) ToNotification() Notification {
	return Notification{
		Sender:      p.Sender,
		Content:     p.Message,
		ChatGroupID: p.ChatGroupID,
		CreatedAt:   time.Now(),
	}
}
