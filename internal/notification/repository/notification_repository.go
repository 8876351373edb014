package repository

import (
	"context"

	"giveback_client/internal/notification/domain"
	"giveback_client/pkg/restclient"
)

// NotificationRepository definition notification endpoints
type NotificationRepository interface {
	FindByUser(ctx context.Context, userID string) ([]domain.Notification, error)
	MarkRead(ctx context.Context, notificationID string) error
	MarkAllRead(ctx context.Context, userID string) error
}

type notificationRepository struct {
	api *restclient.Client
}

// NewNotificationRepository create a NotificationRepository
func NewNotificationRepository(api *restclient.Client) NotificationRepository {
	return &notificationRepository{api: api}
}

func (r *notificationRepository) FindByUser(ctx context.Context, userID string) ([]domain.Notification, error) {
	var notes []domain.Notification
	if err := r.api.Get(ctx, "/api/notifications/user/"+userID, &notes); err != nil {
		return nil, err
	}
	return notes, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, notificationID string) error {
	return r.api.Put(ctx, "/api/notifications/"+notificationID+"/read", nil, nil)
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, userID string) error {
	return r.api.Put(ctx, "/api/notifications/user/"+userID+"/read-all", nil, nil)
}
