package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/clawcoach/clawcoach/internal/types"
)

// agentModel maps to the agents table.
type agentModel struct {
	ID                 string `gorm:"primaryKey"`
	UserID             string
	AgentIDOnchain     int64
	Name               string
	CoachingStyle      string
	AgentURI           string
	OnboardingComplete bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (agentModel) TableName() string {
	return "agents"
}

// AgentRepo accesses agent records.
type AgentRepo struct {
	db *gorm.DB
}

// NewAgentRepo returns an AgentRepo.
func NewAgentRepo(db *gorm.DB) *AgentRepo {
	return &AgentRepo{db: db}
}

// GetByID fetches an agent by its database id.
func (r *AgentRepo) GetByID(ctx context.Context, agentID string) (*types.Agent, error) {
	var record agentModel
	if err := r.db.WithContext(ctx).Where("id = ?", agentID).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get agent: %w", err)
	}
	agent := agentFromModel(record)
	return &agent, nil
}

// GetByOnchainID fetches an agent by its on-chain registration id.
func (r *AgentRepo) GetByOnchainID(ctx context.Context, onchainID int64) (*types.Agent, error) {
	var record agentModel
	if err := r.db.WithContext(ctx).Where("agent_id_onchain = ?", onchainID).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get agent by onchain id: %w", err)
	}
	agent := agentFromModel(record)
	return &agent, nil
}

// GetOnboardingState reports whether the agent has finished onboarding.
// Returns ErrNotFound when the agent record does not exist.
func (r *AgentRepo) GetOnboardingState(ctx context.Context, agentID string) (bool, error) {
	var record agentModel
	err := r.db.WithContext(ctx).
		Select("id", "onboarding_complete").
		Where("id = ?", agentID).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, ErrNotFound
		}
		return false, fmt.Errorf("failed to get onboarding state: %w", err)
	}
	return record.OnboardingComplete, nil
}

// MarkOnboardingComplete flips the onboarding flag to true. Idempotent; no
// code path ever sets the flag back to false.
func (r *AgentRepo) MarkOnboardingComplete(ctx context.Context, agentID string) error {
	err := r.db.WithContext(ctx).
		Model(&agentModel{}).
		Where("id = ?", agentID).
		Update("onboarding_complete", true).Error
	if err != nil {
		return fmt.Errorf("failed to mark onboarding complete: %w", err)
	}
	return nil
}

func agentFromModel(m agentModel) types.Agent {
	return types.Agent{
		ID:                 m.ID,
		UserID:             m.UserID,
		AgentIDOnchain:     m.AgentIDOnchain,
		Name:               m.Name,
		CoachingStyle:      m.CoachingStyle,
		AgentURI:           m.AgentURI,
		OnboardingComplete: m.OnboardingComplete,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
}
