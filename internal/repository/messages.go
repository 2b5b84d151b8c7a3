package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/clawcoach/clawcoach/internal/types"
)

// historyLimit caps how much chat history is loaded per wallet/agent pair.
const historyLimit = 100

// messageModel maps to the messages table.
type messageModel struct {
	ID        string `gorm:"primaryKey"`
	UserID    string
	AgentID   string
	Role      string
	Content   string
	CreatedAt time.Time
}

func (messageModel) TableName() string {
	return "messages"
}

// MessageRepo accesses the mirrored chat history.
type MessageRepo struct {
	db *gorm.DB
}

// NewMessageRepo returns a MessageRepo.
func NewMessageRepo(db *gorm.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// Save appends message pairs for a user/agent. Best-effort mirror; callers
// log failures and move on.
func (r *MessageRepo) Save(ctx context.Context, userID, agentID string, messages []types.ChatMessage) error {
	if len(messages) == 0 {
		return nil
	}
	records := make([]messageModel, 0, len(messages))
	for _, m := range messages {
		records = append(records, messageModel{
			ID:      uuid.NewString(),
			UserID:  userID,
			AgentID: agentID,
			Role:    m.Role,
			Content: m.Content,
		})
	}
	if err := r.db.WithContext(ctx).Create(&records).Error; err != nil {
		return fmt.Errorf("failed to save messages: %w", err)
	}
	return nil
}

// List returns chat history oldest-first for a user/agent pair.
func (r *MessageRepo) List(ctx context.Context, userID, agentID string) ([]types.ChatMessage, error) {
	var records []messageModel
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND agent_id = ?", userID, agentID).
		Order("created_at ASC").
		Limit(historyLimit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	results := make([]types.ChatMessage, 0, len(records))
	for _, record := range records {
		results = append(results, types.ChatMessage{Role: record.Role, Content: record.Content})
	}
	return results, nil
}
