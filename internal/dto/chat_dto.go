package dto

import (
	"encoding/json"
	"time"

	"github.com/terra-capital/market-api/internal/models"
	"github.com/terra-capital/market-api/pkg/attachment"
)

// Command actions accepted by the marketplace endpoint.
const (
	ActionCreateAsset    = "createAsset"
	ActionBuyAsset       = "buyAsset"
	ActionEnsureThread   = "ensureThread"
	ActionSendMessage    = "sendMessage"
	ActionMarkRead       = "markRead"
	ActionDeleteMessages = "deleteMessages"
)

// Deletion modes for the deleteMessages action.
const (
	DeleteModeMe       = "me"
	DeleteModeEveryone = "everyone"
)

// CommandEnvelope carries the action discriminator; the remaining body is
// decoded into the action-specific request afterwards.
type CommandEnvelope struct {
	Action string `json:"action" validate:"required,oneof=createAsset buyAsset ensureThread sendMessage markRead deleteMessages"`
}

// EnsureThreadRequest opens (or returns) the canonical conversation between
// the authenticated buyer and an asset's seller.
type EnsureThreadRequest struct {
	AssetID uint `json:"asset_id" validate:"required"`
}

// SendMessageRequest appends one message to a thread. Text may be empty when
// an attachment is present.
type SendMessageRequest struct {
	ThreadID   uint                   `json:"thread_id" validate:"required"`
	Text       string                 `json:"text" validate:"omitempty,max=2000"`
	Kind       string                 `json:"kind" validate:"omitempty,oneof=text image video audio document"`
	Attachment *attachment.Attachment `json:"attachment"`
}

// MarkReadRequest flips counterpart-authored messages in a thread to read.
type MarkReadRequest struct {
	ThreadID uint `json:"thread_id" validate:"required"`
}

// DeleteMessagesRequest removes a batch of messages for the actor or, when
// eligible, for everyone.
type DeleteMessagesRequest struct {
	ThreadID   uint   `json:"thread_id" validate:"required"`
	MessageIDs []uint `json:"message_ids" validate:"required,min=1,dive,required"`
	Mode       string `json:"mode" validate:"required,oneof=me everyone"`
}

// ThreadResponse is the serialized representation of a conversation.
type ThreadResponse struct {
	ID         uint      `json:"id"`
	AssetID    uint      `json:"asset_id"`
	BuyerID    string    `json:"buyer_id"`
	BuyerName  string    `json:"buyer_name"`
	SellerID   string    `json:"seller_id"`
	SellerName string    `json:"seller_name"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// MessageResponse is the serialized representation of a chat message. For
// tombstoned messages the content fields stay empty; clients substitute the
// deletion placeholder based on deleted_for_everyone_by.
type MessageResponse struct {
	ID                   uint                   `json:"id"`
	ThreadID             uint                   `json:"thread_id"`
	SenderID             string                 `json:"sender_id"`
	SenderName           string                 `json:"sender_name"`
	SenderRole           string                 `json:"sender_role"`
	Text                 string                 `json:"text"`
	Kind                 string                 `json:"kind"`
	Status               string                 `json:"status"`
	Attachment           *attachment.Attachment `json:"attachment,omitempty"`
	ErrorMessage         string                 `json:"error_message,omitempty"`
	ReadAt               *time.Time             `json:"read_at,omitempty"`
	DeletedForEveryone   bool                   `json:"deleted_for_everyone"`
	DeletedForEveryoneAt *time.Time             `json:"deleted_for_everyone_at,omitempty"`
	DeletedForEveryoneBy string                 `json:"deleted_for_everyone_by,omitempty"`
	CreatedAt            time.Time              `json:"created_at"`
}

// DeleteMessagesResponse reports the partial-success outcome of a batch
// deletion: ineligible ids are listed, the rest proceeded.
type DeleteMessagesResponse struct {
	DeletedIDs    []uint `json:"deleted_ids"`
	NotAllowedIDs []uint `json:"not_allowed_ids"`
}

// MarkReadResponse reports how many messages were flipped to read.
type MarkReadResponse struct {
	Changed int64 `json:"changed"`
}

// NewThreadResponse converts a thread model into a DTO.
func NewThreadResponse(thread models.Thread) ThreadResponse {
	return ThreadResponse{
		ID:         thread.ID,
		AssetID:    thread.AssetID,
		BuyerID:    thread.BuyerID,
		BuyerName:  thread.BuyerName,
		SellerID:   thread.SellerID,
		SellerName: thread.SellerName,
		UpdatedAt:  thread.UpdatedAt,
	}
}

// NewThreadResponseSlice converts a slice of thread models into DTOs.
func NewThreadResponseSlice(threads []models.Thread) []ThreadResponse {
	out := make([]ThreadResponse, 0, len(threads))
	for _, thread := range threads {
		out = append(out, NewThreadResponse(thread))
	}
	return out
}

// NewMessageResponse converts a message model into a DTO, suppressing content
// for tombstoned rows.
func NewMessageResponse(message models.Message) MessageResponse {
	response := MessageResponse{
		ID:                   message.ID,
		ThreadID:             message.ThreadID,
		SenderID:             message.SenderID,
		SenderName:           message.SenderName,
		SenderRole:           message.SenderRole,
		Kind:                 message.Kind,
		Status:               message.Status,
		ErrorMessage:         message.ErrorMessage,
		ReadAt:               message.ReadAt,
		DeletedForEveryone:   message.DeletedForEveryone,
		DeletedForEveryoneAt: message.DeletedForEveryoneAt,
		DeletedForEveryoneBy: message.DeletedForEveryoneBy,
		CreatedAt:            message.CreatedAt,
	}

	if message.DeletedForEveryone {
		return response
	}

	response.Text = message.Text
	if len(message.Attachment) > 0 {
		var parsed attachment.Attachment
		if err := json.Unmarshal(message.Attachment, &parsed); err == nil && parsed.DataURL != "" {
			response.Attachment = &parsed
		}
	}

	return response
}

// NewMessageResponseSlice converts a slice of message models into DTOs.
func NewMessageResponseSlice(messages []models.Message) []MessageResponse {
	out := make([]MessageResponse, 0, len(messages))
	for _, message := range messages {
		out = append(out, NewMessageResponse(message))
	}
	return out
}
