package repository

import (
	"context"
	"fmt"

	"giveback_client/internal/chat/domain"
	"giveback_client/pkg/restclient"
)

// ChatRepository definition chat endpoints
type ChatRepository interface {
	FindGroupsByUser(ctx context.Context, userID string) ([]domain.ChatGroup, error)
	FindMessages(ctx context.Context, groupID string) ([]domain.ChatMessage, error)
	SaveMessage(ctx context.Context, groupID, senderID, content string) (string, error)
	InitiateChat(ctx context.Context, params domain.InitiateParams) (string, error)
	ChatExists(ctx context.Context, doneeID, donorID, donationID string) (bool, error)
}

type chatRepository struct {
	api *restclient.Client
}

// NewChatRepository create a ChatRepository
func NewChatRepository(api *restclient.Client) ChatRepository {
	return &chatRepository{api: api}
}

func (r *chatRepository) FindGroupsByUser(ctx context.Context, userID string) ([]domain.ChatGroup, error) {
	var groups []domain.ChatGroup
	if err := r.api.Get(ctx, "/api/chats/user/"+userID, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

func (r *chatRepository) FindMessages(ctx context.Context, groupID string) ([]domain.ChatMessage, error) {
	var messages []domain.ChatMessage
	if err := r.api.Get(ctx, "/api/chats/messages/"+groupID, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// SaveMessage 先落 REST，回傳後端給的 message id
func (r *chatRepository) SaveMessage(ctx context.Context, groupID, senderID, content string) (string, error) {
	body := map[string]string{
		"chatGroupId": groupID,
		"senderId":    senderID,
		"content":     content,
	}
	var result struct {
		MessageID string `json:"messageId"`
	}
	if err := r.api.Post(ctx, "/api/chats/messages", body, &result); err != nil {
		return "", err
	}
	return result.MessageID, nil
}

func (r *chatRepository) InitiateChat(ctx context.Context, params domain.InitiateParams) (string, error) {
	var result struct {
		ChatGroupID string `json:"chatGroupId"`
	}
	if err := r.api.Post(ctx, "/api/chats/initiate", params, &result); err != nil {
		return "", err
	}
	return result.ChatGroupID, nil
}

func (r *chatRepository) ChatExists(ctx context.Context, doneeID, donorID, donationID string) (bool, error) {
	var result struct {
		Exists bool `json:"exists"`
	}
	path := fmt.Sprintf("/api/chats/existence/%s/%s/%s", doneeID, donorID, donationID)
	if err := r.api.Get(ctx, path, &result); err != nil {
		return false, err
	}
	return result.Exists, nil
}
