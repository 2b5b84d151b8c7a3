package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/clawcoach/clawcoach/internal/types"
)

// DefaultNoteCap bounds the number of memory notes kept per agent.
const DefaultNoteCap = 50

// memoryNoteModel maps to the agent_memory_notes table.
type memoryNoteModel struct {
	ID        string `gorm:"primaryKey"`
	AgentID   string
	Content   string
	Category  string
	CreatedAt time.Time
}

func (memoryNoteModel) TableName() string {
	return "agent_memory_notes"
}

// MemoryNoteRepo accesses memory note data.
type MemoryNoteRepo struct {
	db  *gorm.DB
	cap int
}

// NewMemoryNoteRepo returns a MemoryNoteRepo with the given per-agent cap.
func NewMemoryNoteRepo(db *gorm.DB, noteCap int) *MemoryNoteRepo {
	if noteCap <= 0 {
		noteCap = DefaultNoteCap
	}
	return &MemoryNoteRepo{db: db, cap: noteCap}
}

// evictionOverflow returns how many of the agent's oldest notes must go so
// that existing+incoming fits within the cap. Clamped to existing: eviction
// never targets more rows than are actually stored.
func evictionOverflow(existing int64, incoming, noteCap int) int {
	overflow := int(existing) + incoming - noteCap
	if overflow <= 0 {
		return 0
	}
	if overflow > int(existing) {
		return int(existing)
	}
	return overflow
}

// Append inserts notes for an agent, first evicting the oldest notes so the
// total stays within the cap. The count-prune-insert sequence is not
// transactional; concurrent writers for the same agent can transiently
// overshoot the cap by a small margin.
func (r *MemoryNoteRepo) Append(ctx context.Context, agentID string, notes []types.MemoryNote) error {
	if len(notes) == 0 {
		return nil
	}

	var count int64
	if err := r.db.WithContext(ctx).
		Model(&memoryNoteModel{}).
		Where("agent_id = ?", agentID).
		Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count memory notes: %w", err)
	}

	overflow := evictionOverflow(count, len(notes), r.cap)
	if overflow > 0 {
		// Oldest first; id breaks created_at ties so eviction order is stable.
		var oldestIDs []string
		if err := r.db.WithContext(ctx).
			Model(&memoryNoteModel{}).
			Where("agent_id = ?", agentID).
			Order("created_at ASC, id ASC").
			Limit(overflow).
			Pluck("id", &oldestIDs).Error; err != nil {
			return fmt.Errorf("failed to find oldest memory notes: %w", err)
		}
		// A concurrent pruner may have removed some already; delete whatever
		// was found and carry on with the insert.
		if len(oldestIDs) > 0 {
			if err := r.db.WithContext(ctx).
				Where("id IN ?", oldestIDs).
				Delete(&memoryNoteModel{}).Error; err != nil {
				return fmt.Errorf("failed to prune memory notes: %w", err)
			}
		}
	}

	records := make([]memoryNoteModel, 0, len(notes))
	for _, n := range notes {
		records = append(records, memoryNoteModel{
			ID:       uuid.NewString(),
			AgentID:  agentID,
			Content:  n.Content,
			Category: n.Category,
		})
	}
	if err := r.db.WithContext(ctx).Create(&records).Error; err != nil {
		return fmt.Errorf("failed to insert memory notes: %w", err)
	}
	return nil
}

// List returns the agent's notes most-recent-first, capped to the note cap.
func (r *MemoryNoteRepo) List(ctx context.Context, agentID string) ([]types.MemoryNote, error) {
	var records []memoryNoteModel
	err := r.db.WithContext(ctx).
		Where("agent_id = ?", agentID).
		Order("created_at DESC, id DESC").
		Limit(r.cap).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list memory notes: %w", err)
	}

	results := make([]types.MemoryNote, 0, len(records))
	for _, record := range records {
		results = append(results, types.MemoryNote{
			ID:        record.ID,
			AgentID:   record.AgentID,
			Content:   record.Content,
			Category:  record.Category,
			CreatedAt: record.CreatedAt,
		})
	}
	return results, nil
}

// Count returns the number of notes stored for an agent.
func (r *MemoryNoteRepo) Count(ctx context.Context, agentID string) (int, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&memoryNoteModel{}).
		Where("agent_id = ?", agentID).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count memory notes: %w", err)
	}
	return int(count), nil
}
