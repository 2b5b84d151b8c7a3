package types

import "time"

// ChatMessage is one turn in a coaching conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Coaching styles supported by the prompt assembler.
const (
	StyleMotivator     = "motivator"
	StyleDrillSergeant = "drill-sergeant"
	StyleScientist     = "scientist"
	StyleFriend        = "friend"
)

// Agent is the persisted coaching agent record.
type Agent struct {
	ID                 string    `json:"id"`
	UserID             string    `json:"user_id"`
	AgentIDOnchain     int64     `json:"agent_id_onchain"`
	Name               string    `json:"name"`
	CoachingStyle      string    `json:"coaching_style"`
	AgentURI           string    `json:"agent_uri"`
	OnboardingComplete bool      `json:"onboarding_complete"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Persona holds the structured fitness profile learned during onboarding.
// Every field is nullable: nil means the fact has not been learned yet.
type Persona struct {
	FitnessLevel             *string `json:"fitness_level"`
	Goals                    *string `json:"goals"`
	Motivation               *string `json:"motivation"`
	Schedule                 *string `json:"schedule"`
	Injuries                 *string `json:"injuries"`
	PreferredWorkoutTypes    *string `json:"preferred_workout_types"`
	CommunicationPreferences *string `json:"communication_preferences"`
	AdditionalContext        *string `json:"additional_context"`
}

// IsEmpty reports whether no persona field has been learned.
func (p Persona) IsEmpty() bool {
	return p.FitnessLevel == nil &&
		p.Goals == nil &&
		p.Motivation == nil &&
		p.Schedule == nil &&
		p.Injuries == nil &&
		p.PreferredWorkoutTypes == nil &&
		p.CommunicationPreferences == nil &&
		p.AdditionalContext == nil
}

// MinimumFieldsPresent reports whether the three facts required to graduate
// from onboarding (fitness level, goals, schedule) are all known.
func (p Persona) MinimumFieldsPresent() bool {
	return p.FitnessLevel != nil && p.Goals != nil && p.Schedule != nil
}

// Memory note categories.
const (
	CategoryGeneral     = "general"
	CategoryPreference  = "preference"
	CategoryAchievement = "achievement"
	CategoryHealth      = "health"
	CategorySchedule    = "schedule"
)

// ValidCategory reports whether c is one of the fixed note categories.
func ValidCategory(c string) bool {
	switch c {
	case CategoryGeneral, CategoryPreference, CategoryAchievement, CategoryHealth, CategorySchedule:
		return true
	}
	return false
}

// MemoryNote is one short durable fact extracted from conversation.
type MemoryNote struct {
	ID        string    `json:"id"`
	AgentID   string    `json:"agent_id"`
	Content   string    `json:"content"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"created_at"`
}

// Message is a persisted chat history row, mirrored best-effort after a turn.
type Message struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	AgentID   string    `json:"agent_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// User maps a wallet address to a stable user id.
type User struct {
	ID            string    `json:"id"`
	WalletAddress string    `json:"wallet_address"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
