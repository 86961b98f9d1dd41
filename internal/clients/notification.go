package clients

import (
	"context"
	"net/http"
	"time"

	"travel-booking-service/internal/models"
)

// NotificationClient calls the notification service. The service is a
// delivery stub; callers treat every send as best-effort.
type NotificationClient struct {
	baseClient
}

// NewNotificationClient creates a notification service client
func NewNotificationClient(baseURL string, timeout time.Duration) *NotificationClient {
	return &NotificationClient{baseClient: newBaseClient(baseURL, timeout)}
}

// Send submits a notification for delivery
func (c *NotificationClient) Send(ctx context.Context, req *models.NotificationRequest) error {
	_, err := c.do(ctx, http.MethodPost, "/api/notifications/send", req)
	return err
}
