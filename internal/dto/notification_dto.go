package dto

import "time"

// Notification item types surfaced by the summary endpoint.
const (
	NotificationTypeMessage  = "message"
	NotificationTypePurchase = "purchase"
	NotificationTypeAsset    = "asset"
)

// NotificationItem is one entry in the bell dropdown. Message items are
// always included while unread; other items are gated by the last-seen mark.
type NotificationItem struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Text      string    `json:"text"`
	ThreadID  uint      `json:"thread_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ThreadUnread aggregates unread counterpart messages for one thread.
type ThreadUnread struct {
	ThreadID uint      `json:"thread_id"`
	From     string    `json:"from"`
	Count    int       `json:"count"`
	LatestAt time.Time `json:"latest_at"`
}

// NotificationSummaryResponse is the payload of the notification summary.
type NotificationSummaryResponse struct {
	Items       []NotificationItem `json:"items"`
	Unread      []ThreadUnread     `json:"unread"`
	UnreadCount int                `json:"unread_count"`
}
