package chat

import (
	"context"
	"fmt"

	"github.com/clawcoach/clawcoach/internal/repository"
	"github.com/clawcoach/clawcoach/internal/types"
)

// StoreProfiles adapts the repository to the controller's ProfileStore and
// HistoryMirror interfaces, and doubles as the prompt resolver's reader.
type StoreProfiles struct {
	store *repository.Store
}

// NewStoreProfiles wraps a repository store.
func NewStoreProfiles(store *repository.Store) *StoreProfiles {
	return &StoreProfiles{store: store}
}

func (p *StoreProfiles) GetOnboardingState(ctx context.Context, agentID string) (bool, error) {
	return p.store.Agents.GetOnboardingState(ctx, agentID)
}

func (p *StoreProfiles) GetPersona(ctx context.Context, agentID string) (types.Persona, error) {
	return p.store.Personas.Get(ctx, agentID)
}

func (p *StoreProfiles) ListMemoryNotes(ctx context.Context, agentID string) ([]types.MemoryNote, error) {
	return p.store.Notes.List(ctx, agentID)
}

func (p *StoreProfiles) UpsertPersonaFields(ctx context.Context, agentID string, partial types.Persona) error {
	return p.store.Personas.UpsertFields(ctx, agentID, partial)
}

func (p *StoreProfiles) MarkOnboardingComplete(ctx context.Context, agentID string) error {
	return p.store.Agents.MarkOnboardingComplete(ctx, agentID)
}

func (p *StoreProfiles) AppendMemoryNotes(ctx context.Context, agentID string, notes []types.MemoryNote) error {
	return p.store.Notes.Append(ctx, agentID, notes)
}

// SaveExchange mirrors a user/assistant pair into the messages table under
// the wallet's user row, creating the user row if needed.
func (p *StoreProfiles) SaveExchange(ctx context.Context, wallet, agentID, userMessage, assistantMessage string) error {
	user, err := p.store.Users.Sync(ctx, wallet)
	if err != nil {
		return fmt.Errorf("failed to resolve user for mirror: %w", err)
	}
	return p.store.Messages.Save(ctx, user.ID, agentID, []types.ChatMessage{
		{Role: types.RoleUser, Content: userMessage},
		{Role: types.RoleAssistant, Content: assistantMessage},
	})
}
