package directory

import (
	"context"
	"fmt"
	"net/http"
)

// HTTPNotificationSink posts notifications to the notification service.
type HTTPNotificationSink struct {
	client  *Client
	baseURL string
}

// NewHTTPNotificationSink constructs the notification sink.
func NewHTTPNotificationSink(client *Client, baseURL string) *HTTPNotificationSink {
	return &HTTPNotificationSink{client: client, baseURL: baseURL}
}

// Send delivers one notification. Callers treat failures as best-effort.
func (s *HTTPNotificationSink) Send(ctx context.Context, n Notification) error {
	url := fmt.Sprintf("%s/api/v1/notifications/send", s.baseURL)
	return s.client.do(ctx, http.MethodPost, url, n, nil)
}
