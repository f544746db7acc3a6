package mysql

import (
	"context"
	"errors"
	"time"

	"Talk_Flow/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MessageRepository struct {
	DB *gorm.DB
}

func NewMessageRepository() *MessageRepository {
	return &MessageRepository{DB: DB}
}

// Append commits one message to the conversation between the sender and
// peerID. The conversation row is created on first use and its last_seq is
// bumped under a row lock, so sequence numbers are strictly increasing per
// conversation no matter how many writers race. The store assigns id, seq
// and timestamp; the caller fills the rest.
func (r *MessageRepository) Append(ctx context.Context, msg *model.Message, peerID uint64) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var conv model.Conversation
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("`key` = ?", msg.ConversationKey).
			First(&conv).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			low, high := model.SortPair(msg.SenderID, peerID)
			conv = model.Conversation{
				Key:      msg.ConversationKey,
				UserLow:  low,
				UserHigh: high,
			}
			if err = tx.Create(&conv).Error; err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
				return err
			}
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				// lost the creation race; reread under lock
				if err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
					Where("`key` = ?", msg.ConversationKey).
					First(&conv).Error; err != nil {
					return err
				}
			}
		} else if err != nil {
			return err
		}

		conv.LastSeq++
		if err := tx.Model(&model.Conversation{}).
			Where("`key` = ?", conv.Key).
			Update("last_seq", conv.LastSeq).Error; err != nil {
			return err
		}

		msg.ID = uuid.NewString()
		msg.Seq = conv.LastSeq
		msg.CreatedAt = time.Now()
		return tx.Create(msg).Error
	})
}

// List pages messages of one conversation newest first. cursor is the seq of
// the oldest message already seen; zero means start from the top.
func (r *MessageRepository) List(ctx context.Context, key string, cursor uint64, limit int) ([]model.Message, uint64, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	q := r.DB.WithContext(ctx).Model(&model.Message{}).
		Where("conversation_key = ?", key)
	if cursor > 0 {
		q = q.Where("seq < ?", cursor)
	}
	var rows []model.Message
	if err := q.Order("seq DESC").Limit(limit + 1).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	var next uint64
	if len(rows) > limit {
		next = rows[limit-1].Seq
		rows = rows[:limit]
	}
	return rows, next, nil
}
