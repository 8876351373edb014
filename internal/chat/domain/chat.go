package domain

import (
	"time"
)

// EchoTolerance 判定重複訊息的時間窗
// 自己送出的訊息會從 live channel 被 echo 回來，必須壓掉
const EchoTolerance = 1000 * time.Millisecond

// previewLimit 聊天列表預覽的截斷長度
const previewLimit = 50

// ChatGroup 一個 (donor, donee, donation) 三元組對應一個聊天群組
// 由後端負責同三元組不重複建立
type ChatGroup struct {
	ID          string   `json:"_id"`
	GroupName   string   `json:"groupName"`
	Members     []string `json:"members"`
	LastMessage string   `json:"lastMessage"`
}

// Preview 最後一則訊息截斷到 50 字，超過加 "..."
func (g *ChatGroup) Preview() string {
	runes := []rune(g.LastMessage)
	if len(runes) <= previewLimit {
		return g.LastMessage
	}
	return string(runes[:previewLimit]) + "..."
}

// ChatMessage 一則聊天訊息，append-only，依 createdAt 排序
type ChatMessage struct {
	ID          string    `json:"_id"`
	ChatGroupID string    `json:"chatGroupId"`
	Sender      string    `json:"sender"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"createdAt"`
}

// IsDuplicateOf 重複判定: 同 id，或同 sender+content 且時間差在容忍窗內
func (m *ChatMessage) IsDuplicateOf(other *ChatMessage) bool {
	if m.ID != "" && m.ID == other.ID {
		return true
	}
	if m.Sender == other.Sender && m.Content == other.Content {
		diff := m.CreatedAt.Sub(other.CreatedAt)
		if diff < 0 {
			diff = -diff
		}
		return diff < EchoTolerance
	}
	return false
}

// InitiateParams 建立聊天群組的參數 (donee 對 donation 發起)
type InitiateParams struct {
	DoneeID        string `json:"doneeId"`
	DonorID        string `json:"donorId"`
	DonationID     string `json:"donationId"`
	ItemName       string `json:"itemName"`
	InitialMessage string `json:"initialMessage"`
	// IdempotencyKey 防連點重複建立，同 key 後端視為同一次請求
	IdempotencyKey string `json:"idempotencyKey"`
}
