package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/clawcoach/clawcoach/internal/types"
)

// personaModel maps to the agent_personas table, one row per agent.
type personaModel struct {
	AgentID                  string `gorm:"primaryKey;column:agent_id"`
	FitnessLevel             *string
	Goals                    *string
	Motivation               *string
	Schedule                 *string
	Injuries                 *string
	PreferredWorkoutTypes    *string
	CommunicationPreferences *string
	AdditionalContext        *string
}

func (personaModel) TableName() string {
	return "agent_personas"
}

// PersonaRepo accesses persona data.
type PersonaRepo struct {
	db *gorm.DB
}

// NewPersonaRepo returns a PersonaRepo.
func NewPersonaRepo(db *gorm.DB) *PersonaRepo {
	return &PersonaRepo{db: db}
}

// Get fetches the persona for an agent. A missing row is not an error; it
// returns the zero-value persona (all fields nil).
func (r *PersonaRepo) Get(ctx context.Context, agentID string) (types.Persona, error) {
	var record personaModel
	err := r.db.WithContext(ctx).Where("agent_id = ?", agentID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return types.Persona{}, nil
		}
		return types.Persona{}, fmt.Errorf("failed to get persona: %w", err)
	}
	return personaFromModel(record), nil
}

// personaAssignments maps the non-nil fields of a partial persona to their
// column names. Columns absent from the map are never named in the upsert's
// assignment list, which is what leaves existing values untouched.
func personaAssignments(partial types.Persona) map[string]any {
	fields := map[string]any{}
	setIf := func(column string, value *string) {
		if value != nil {
			fields[column] = *value
		}
	}
	setIf("fitness_level", partial.FitnessLevel)
	setIf("goals", partial.Goals)
	setIf("motivation", partial.Motivation)
	setIf("schedule", partial.Schedule)
	setIf("injuries", partial.Injuries)
	setIf("preferred_workout_types", partial.PreferredWorkoutTypes)
	setIf("communication_preferences", partial.CommunicationPreferences)
	setIf("additional_context", partial.AdditionalContext)
	return fields
}

// UpsertFields writes only the non-nil fields of the partial persona,
// inserting the row if absent and otherwise updating just the named columns.
// Last write wins per field; existing columns not present in the partial are
// left untouched.
func (r *PersonaRepo) UpsertFields(ctx context.Context, agentID string, partial types.Persona) error {
	fields := personaAssignments(partial)
	if len(fields) == 0 {
		return nil
	}

	row := map[string]any{"agent_id": agentID}
	for k, v := range fields {
		row[k] = v
	}

	err := r.db.WithContext(ctx).
		Table(personaModel{}.TableName()).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "agent_id"}},
			DoUpdates: clause.Assignments(fields),
		}).
		Create(row).Error
	if err != nil {
		return fmt.Errorf("failed to upsert persona fields: %w", err)
	}
	return nil
}

func personaFromModel(m personaModel) types.Persona {
	return types.Persona{
		FitnessLevel:             m.FitnessLevel,
		Goals:                    m.Goals,
		Motivation:               m.Motivation,
		Schedule:                 m.Schedule,
		Injuries:                 m.Injuries,
		PreferredWorkoutTypes:    m.PreferredWorkoutTypes,
		CommunicationPreferences: m.CommunicationPreferences,
		AdditionalContext:        m.AdditionalContext,
	}
}
