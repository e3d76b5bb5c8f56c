package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/terra-capital/market-api/internal/models"
)

// MessageRepository persists chat messages and their lifecycle transitions.
type MessageRepository interface {
	Append(ctx context.Context, message *models.Message) error
	ListByThread(ctx context.Context, threadID uint, viewerID string) ([]models.Message, error)
	ListVisibleForUser(ctx context.Context, userID string) ([]models.Message, error)
	ListUnreadForUser(ctx context.Context, userID string) ([]models.Message, error)
	MarkRead(ctx context.Context, threadID uint, readerRole string) (int64, error)
	HideForUser(ctx context.Context, threadID uint, messageIDs []uint, userID string) ([]uint, error)
	DeleteForEveryone(ctx context.Context, threadID uint, messageIDs []uint, actorID string) ([]uint, []uint, error)
}

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository constructs a message repository backed by GORM.
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

// Append inserts the message and bumps the thread's updated_at in one
// transaction so conversation ordering and the insert never diverge.
func (r *messageRepository) Append(ctx context.Context, message *models.Message) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var thread models.Thread
		if err := tx.First(&thread, message.ThreadID).Error; err != nil {
			return err
		}

		if err := tx.Create(message).Error; err != nil {
			return err
		}

		return tx.Model(&models.Thread{}).
			Where("id = ?", message.ThreadID).
			Update("updated_at", gorm.Expr("CURRENT_TIMESTAMP")).Error
	})
}

// ListByThread returns the thread's messages in insertion order, skipping
// rows the viewer has hidden for themselves.
func (r *messageRepository) ListByThread(ctx context.Context, threadID uint, viewerID string) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.WithContext(ctx).
		Where("thread_id = ?", threadID).
		Where("NOT EXISTS (SELECT 1 FROM message_hides h WHERE h.message_id = messages.id AND h.user_id = ?)", viewerID).
		Order("created_at ASC, id ASC").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// ListVisibleForUser returns every message in every thread the user belongs
// to, minus the rows they hid. Feeds the polled state snapshot.
func (r *messageRepository) ListVisibleForUser(ctx context.Context, userID string) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.WithContext(ctx).
		Where("thread_id IN (SELECT id FROM threads WHERE buyer_id = ? OR seller_id = ?)", userID, userID).
		Where("NOT EXISTS (SELECT 1 FROM message_hides h WHERE h.message_id = messages.id AND h.user_id = ?)", userID).
		Order("created_at ASC, id ASC").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// ListUnreadForUser returns counterpart messages still in the sent state, for
// notification aggregation. Tombstoned rows no longer count as unread.
func (r *messageRepository) ListUnreadForUser(ctx context.Context, userID string) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.WithContext(ctx).
		Where("thread_id IN (SELECT id FROM threads WHERE buyer_id = ? OR seller_id = ?)", userID, userID).
		Where("sender_id <> ?", userID).
		Where("status = ?", models.MessageStatusSent).
		Where("deleted_for_everyone = ?", false).
		Order("created_at ASC, id ASC").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// MarkRead flips every counterpart-authored message that is still readable.
// Already-read and failed rows are left alone, so read_at never regresses.
// The thread is only touched when something actually changed.
func (r *messageRepository) MarkRead(ctx context.Context, threadID uint, readerRole string) (int64, error) {
	var changed int64

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		result := tx.Model(&models.Message{}).
			Where("thread_id = ?", threadID).
			Where("sender_role <> ?", readerRole).
			Where("status NOT IN ?", []string{models.MessageStatusRead, models.MessageStatusFailed}).
			Updates(map[string]interface{}{
				"status":  models.MessageStatusRead,
				"read_at": now,
			})
		if result.Error != nil {
			return result.Error
		}

		changed = result.RowsAffected
		if changed == 0 {
			return nil
		}

		return tx.Model(&models.Thread{}).
			Where("id = ?", threadID).
			Update("updated_at", gorm.Expr("CURRENT_TIMESTAMP")).Error
	})
	if err != nil {
		return 0, err
	}

	return changed, nil
}

// HideForUser records a per-user hide for each message that belongs to the
// thread. Hiding is idempotent; repeated requests are conflict-ignored.
func (r *messageRepository) HideForUser(ctx context.Context, threadID uint, messageIDs []uint, userID string) ([]uint, error) {
	hidden := make([]uint, 0, len(messageIDs))

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing []uint
		if err := tx.Model(&models.Message{}).
			Where("thread_id = ? AND id IN ?", threadID, messageIDs).
			Pluck("id", &existing).Error; err != nil {
			return err
		}

		for _, id := range existing {
			hide := models.MessageHide{MessageID: id, UserID: userID}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&hide).Error; err != nil {
				return err
			}
			hidden = append(hidden, id)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return hidden, nil
}

// DeleteForEveryone tombstones each eligible message and reports the split
// between deleted and refused ids. Eligibility lives entirely in the WHERE
// clause: only the author's own, unread, not-yet-tombstoned messages qualify,
// which keeps concurrent read receipts from racing the delete. Repeated ids
// are decided once; a second pass over an id just tombstoned would match zero
// rows and misreport it as refused.
func (r *messageRepository) DeleteForEveryone(ctx context.Context, threadID uint, messageIDs []uint, actorID string) ([]uint, []uint, error) {
	deleted := make([]uint, 0, len(messageIDs))
	notAllowed := make([]uint, 0)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		seen := make(map[uint]struct{}, len(messageIDs))
		for _, id := range messageIDs {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			result := tx.Model(&models.Message{}).
				Where("id = ? AND thread_id = ?", id, threadID).
				Where("sender_id = ?", actorID).
				Where("deleted_for_everyone = ?", false).
				Where("read_at IS NULL").
				Where("status <> ?", models.MessageStatusRead).
				Updates(map[string]interface{}{
					"deleted_for_everyone":    true,
					"deleted_for_everyone_at": now,
					"deleted_for_everyone_by": actorID,
					"text":                    "",
					"attachment":              nil,
					"kind":                    models.MessageKindText,
				})
			if result.Error != nil {
				return result.Error
			}

			if result.RowsAffected > 0 {
				deleted = append(deleted, id)
			} else {
				notAllowed = append(notAllowed, id)
			}
		}

		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return deleted, notAllowed, nil
}
