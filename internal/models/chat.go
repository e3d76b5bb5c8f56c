package models

import (
	"time"

	"gorm.io/datatypes"
)

// Chat participant roles.
const (
	RoleBuyer  = "buyer"
	RoleSeller = "seller"
)

// Message delivery states. "sending" only ever exists client-side; the
// store persists messages as sent and moves them forward from there.
const (
	MessageStatusSending = "sending"
	MessageStatusSent    = "sent"
	MessageStatusRead    = "read"
	MessageStatusFailed  = "failed"
)

// Message content kinds.
const (
	MessageKindText     = "text"
	MessageKindImage    = "image"
	MessageKindVideo    = "video"
	MessageKindAudio    = "audio"
	MessageKindDocument = "document"
)

// Thread is the single canonical conversation between one buyer and one
// seller about one asset. The composite unique index makes thread creation
// an upsert rather than a duplicate-producing insert.
type Thread struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	AssetID    uint      `gorm:"not null;uniqueIndex:idx_threads_triple" json:"asset_id"`
	BuyerID    string    `gorm:"size:64;not null;index;uniqueIndex:idx_threads_triple" json:"buyer_id"`
	BuyerName  string    `gorm:"size:120;not null" json:"buyer_name"`
	SellerID   string    `gorm:"size:64;not null;index;uniqueIndex:idx_threads_triple" json:"seller_id"`
	SellerName string    `gorm:"size:120;not null" json:"seller_name"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Message is one unit of chat content inside a thread. Text may be empty when
// an attachment is present; both empty is rejected before persistence.
type Message struct {
	ID                   uint           `gorm:"primaryKey" json:"id"`
	ThreadID             uint           `gorm:"index;not null" json:"thread_id"`
	SenderID             string         `gorm:"size:64;not null;index" json:"sender_id"`
	SenderName           string         `gorm:"size:120;not null" json:"sender_name"`
	SenderRole           string         `gorm:"size:16;not null" json:"sender_role"`
	Text                 string         `gorm:"type:text" json:"text"`
	Kind                 string         `gorm:"size:16;not null;default:text" json:"kind"`
	Status               string         `gorm:"size:16;not null;default:sent" json:"status"`
	Attachment           datatypes.JSON `gorm:"type:json" json:"attachment,omitempty"`
	ErrorMessage         string         `gorm:"type:text" json:"error_message,omitempty"`
	ReadAt               *time.Time     `json:"read_at,omitempty"`
	DeletedForEveryone   bool           `gorm:"not null;default:false" json:"deleted_for_everyone"`
	DeletedForEveryoneAt *time.Time     `json:"deleted_for_everyone_at,omitempty"`
	DeletedForEveryoneBy string         `gorm:"size:64" json:"deleted_for_everyone_by,omitempty"`
	CreatedAt            time.Time      `json:"created_at"`
}

// MessageHide records a per-user "delete for me". The message row stays
// untouched for the counterparty; list queries skip hidden rows for the actor.
type MessageHide struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	MessageID uint      `gorm:"not null;uniqueIndex:idx_message_hides_actor" json:"message_id"`
	UserID    string    `gorm:"size:64;not null;uniqueIndex:idx_message_hides_actor" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// CounterpartRole returns the opposite chat role.
func CounterpartRole(role string) string {
	if role == RoleBuyer {
		return RoleSeller
	}
	return RoleBuyer
}
