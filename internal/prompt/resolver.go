package prompt

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/clawcoach/clawcoach/internal/repository"
	"github.com/clawcoach/clawcoach/internal/types"
)

// ProfileReader is the slice of the profile store the resolver needs.
type ProfileReader interface {
	GetOnboardingState(ctx context.Context, agentID string) (bool, error)
	GetPersona(ctx context.Context, agentID string) (types.Persona, error)
	ListMemoryNotes(ctx context.Context, agentID string) ([]types.MemoryNote, error)
}

// Resolver picks the right prompt variant for an agent's lifecycle state.
type Resolver struct {
	profiles ProfileReader
}

// NewResolver returns a Resolver backed by the given profile reader.
func NewResolver(profiles ProfileReader) *Resolver {
	return &Resolver{profiles: profiles}
}

// ResolveSystemPrompt returns the system prompt for a chat turn.
//
// No agentID, or an unknown agent, falls back to the generic prompt. An agent
// mid-onboarding gets the interview prompt seeded with whatever persona
// fields are already known. A fully onboarded agent gets the persona-aware
// prompt; persona and memory notes are fetched concurrently.
func (r *Resolver) ResolveSystemPrompt(ctx context.Context, agentName, style, agentID string) string {
	if agentID == "" {
		return Build(agentName, style)
	}

	complete, err := r.profiles.GetOnboardingState(ctx, agentID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			slog.Warn("failed to load onboarding state, using generic prompt", "agent_id", agentID, "error", err)
		}
		return Build(agentName, style)
	}

	if !complete {
		persona, err := r.profiles.GetPersona(ctx, agentID)
		if err != nil {
			slog.Warn("failed to load persona, using empty partial", "agent_id", agentID, "error", err)
			persona = types.Persona{}
		}
		return BuildOnboarding(agentName, style, persona)
	}

	var (
		wg         sync.WaitGroup
		persona    types.Persona
		notes      []types.MemoryNote
		personaErr error
		notesErr   error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		persona, personaErr = r.profiles.GetPersona(ctx, agentID)
	}()
	go func() {
		defer wg.Done()
		notes, notesErr = r.profiles.ListMemoryNotes(ctx, agentID)
	}()
	wg.Wait()

	if personaErr != nil {
		slog.Warn("failed to load persona for prompt", "agent_id", agentID, "error", personaErr)
		persona = types.Persona{}
	}
	if notesErr != nil {
		slog.Warn("failed to load memory notes for prompt", "agent_id", agentID, "error", notesErr)
		notes = nil
	}
	return BuildPersonaAware(agentName, style, persona, notes)
}
