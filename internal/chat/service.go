// Package chat orchestrates a coaching turn: access checks, prompt
// resolution, streaming model invocation, and post-exchange extraction.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/clawcoach/clawcoach/internal/extract"
	"github.com/clawcoach/clawcoach/internal/quota"
	"github.com/clawcoach/clawcoach/internal/repository"
	"github.com/clawcoach/clawcoach/internal/types"
)

// postTurnTimeout bounds the fire-and-forget work dispatched after a turn.
// It is detached from the request context so a client disconnect does not
// cancel an in-flight extraction.
const postTurnTimeout = 60 * time.Second

// ErrAgentNotFound is returned when an extraction names an unknown agent.
var ErrAgentNotFound = errors.New("agent not found")

// Request is one inbound chat turn.
type Request struct {
	Messages      []types.ChatMessage
	AgentName     string
	CoachingStyle string
	// AgentDBID is optional; platform bridges without persisted identity
	// leave it empty and get the generic prompt.
	AgentDBID string
	// Wallet identifies the caller for quota enforcement and history
	// mirroring; optional.
	Wallet string
}

// AccessStatus is the outcome of the pre-flight checks.
type AccessStatus int

const (
	AccessAllowed AccessStatus = iota
	AccessRateLimited
	AccessPaywalled
)

// AccessDecision carries the quota results behind an access outcome.
type AccessDecision struct {
	Status    AccessStatus
	RateLimit quota.RateLimitResult
	Free      quota.FreeMessageResult
}

// ChatClient is the coaching model (see models.ChatClient).
type ChatClient interface {
	Stream(ctx context.Context, system string, messages []types.ChatMessage, onDelta func(delta string) error) (string, error)
	Complete(ctx context.Context, system string, messages []types.ChatMessage) (string, error)
}

// RateLimitChecker gates request volume per identity.
type RateLimitChecker interface {
	Check(ctx context.Context, identity string) quota.RateLimitResult
}

// FreeMessageChecker meters the free tier per identity.
type FreeMessageChecker interface {
	Check(ctx context.Context, identity string) quota.FreeMessageResult
}

// PromptResolver picks the system prompt for an agent's lifecycle state.
type PromptResolver interface {
	ResolveSystemPrompt(ctx context.Context, agentName, style, agentID string) string
}

// FactExtractor runs the post-exchange analysis models.
type FactExtractor interface {
	Persona(ctx context.Context, messages []types.ChatMessage) *extract.PersonaExtraction
	MemoryNotes(ctx context.Context, userMessage, assistantMessage string) []types.MemoryNote
}

// ProfileStore is the durable agent profile surface the controller writes.
type ProfileStore interface {
	GetOnboardingState(ctx context.Context, agentID string) (bool, error)
	GetPersona(ctx context.Context, agentID string) (types.Persona, error)
	ListMemoryNotes(ctx context.Context, agentID string) ([]types.MemoryNote, error)
	UpsertPersonaFields(ctx context.Context, agentID string, partial types.Persona) error
	MarkOnboardingComplete(ctx context.Context, agentID string) error
	AppendMemoryNotes(ctx context.Context, agentID string, notes []types.MemoryNote) error
}

// HistoryMirror persists the exchange to the message store, best-effort.
// Mirroring requires a persisted agent: history rows are keyed by user and
// agent, so turns from bridges that carry a wallet but no agentID are not
// mirrored.
type HistoryMirror interface {
	SaveExchange(ctx context.Context, wallet, agentID, userMessage, assistantMessage string) error
}

// Service is the chat session controller.
type Service struct {
	chat      ChatClient
	limiter   RateLimitChecker
	meter     FreeMessageChecker
	resolver  PromptResolver
	extractor FactExtractor
	profiles  ProfileStore
	// mirror is optional; nil disables history mirroring.
	mirror HistoryMirror

	postTurn sync.WaitGroup
}

// NewService wires the session controller from its collaborators.
func NewService(chat ChatClient, limiter RateLimitChecker, meter FreeMessageChecker, resolver PromptResolver, extractor FactExtractor, profiles ProfileStore, mirror HistoryMirror) *Service {
	return &Service{
		chat:      chat,
		limiter:   limiter,
		meter:     meter,
		resolver:  resolver,
		extractor: extractor,
		profiles:  profiles,
		mirror:    mirror,
	}
}

// CheckAccess runs the rate limiter and, unless the agent is mid-onboarding,
// the free-tier meter. Callers without an identity are not enforced.
func (s *Service) CheckAccess(ctx context.Context, wallet, agentID string) AccessDecision {
	if wallet == "" {
		return AccessDecision{Status: AccessAllowed}
	}

	rate := s.limiter.Check(ctx, wallet)
	if !rate.Allowed {
		return AccessDecision{Status: AccessRateLimited, RateLimit: rate}
	}

	// New users are never paywalled before the system knows anything about
	// them: an agent explicitly mid-onboarding skips the free-tier check.
	// An absent record or a completed agent is metered normally.
	if agentID != "" {
		complete, err := s.profiles.GetOnboardingState(ctx, agentID)
		if err == nil && !complete {
			return AccessDecision{Status: AccessAllowed, RateLimit: rate}
		}
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			slog.Warn("failed to load onboarding state for paywall check", "agent_id", agentID, "error", err)
		}
	}

	free := s.meter.Check(ctx, wallet)
	if !free.Allowed {
		return AccessDecision{Status: AccessPaywalled, RateLimit: rate, Free: free}
	}
	return AccessDecision{Status: AccessAllowed, RateLimit: rate, Free: free}
}

// StreamTurn resolves the system prompt and streams the model response,
// forwarding each delta to onDelta. On a clean finish the post-turn work
// (extraction, history mirror) is dispatched fire-and-forget before
// returning. On a mid-stream failure the partial text is returned with the
// error; the caller decides how to surface it in-band.
func (s *Service) StreamTurn(ctx context.Context, req Request, onDelta func(delta string) error) (string, error) {
	system := s.resolver.ResolveSystemPrompt(ctx, req.AgentName, req.CoachingStyle, req.AgentDBID)

	full, err := s.chat.Stream(ctx, system, req.Messages, onDelta)
	if err != nil {
		return full, err
	}

	s.dispatchPostTurn(req, full)
	return full, nil
}

// CompleteTurn is the non-streaming variant used by the paid endpoint.
func (s *Service) CompleteTurn(ctx context.Context, req Request) (string, error) {
	system := s.resolver.ResolveSystemPrompt(ctx, req.AgentName, req.CoachingStyle, req.AgentDBID)
	return s.chat.Complete(ctx, system, req.Messages)
}

// dispatchPostTurn runs extraction and history mirroring in the background.
// Neither blocks nor can fail the response already delivered to the caller.
func (s *Service) dispatchPostTurn(req Request, assistantText string) {
	latestUser := ""
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == types.RoleUser {
			latestUser = req.Messages[i].Content
			break
		}
	}

	history := make([]types.ChatMessage, len(req.Messages), len(req.Messages)+1)
	copy(history, req.Messages)
	history = append(history, types.ChatMessage{Role: types.RoleAssistant, Content: assistantText})

	s.postTurn.Add(1)
	go func() {
		defer s.postTurn.Done()
		ctx, cancel := context.WithTimeout(context.Background(), postTurnTimeout)
		defer cancel()

		if req.AgentDBID != "" {
			if _, err := s.RunExtraction(ctx, req.AgentDBID, history, latestUser, assistantText); err != nil {
				slog.Warn("post-turn extraction failed", "agent_id", req.AgentDBID, "error", err)
			}
		}
		if s.mirror != nil && req.Wallet != "" && req.AgentDBID != "" {
			if err := s.mirror.SaveExchange(ctx, req.Wallet, req.AgentDBID, latestUser, assistantText); err != nil {
				slog.Warn("history mirror failed", "agent_id", req.AgentDBID, "error", err)
			}
		}
	}()
}

// Drain blocks until dispatched post-turn work has finished. Used on
// shutdown so in-flight extractions complete rather than being dropped.
func (s *Service) Drain() {
	s.postTurn.Wait()
}

// RunExtraction performs one extraction pass for an agent and reports the
// resulting onboarding state. While onboarding is incomplete it runs persona
// extraction over the full history; afterwards it runs memory extraction
// over just the latest exchange. Model failures yield no writes and are not
// errors; only store failures surface.
func (s *Service) RunExtraction(ctx context.Context, agentID string, messages []types.ChatMessage, latestUser, latestAssistant string) (bool, error) {
	complete, err := s.profiles.GetOnboardingState(ctx, agentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, ErrAgentNotFound
		}
		return false, fmt.Errorf("failed to load onboarding state: %w", err)
	}

	if !complete {
		return s.runPersonaExtraction(ctx, agentID, messages)
	}

	notes := s.extractor.MemoryNotes(ctx, latestUser, latestAssistant)
	if len(notes) > 0 {
		if err := s.profiles.AppendMemoryNotes(ctx, agentID, notes); err != nil {
			return true, fmt.Errorf("failed to append memory notes: %w", err)
		}
	}
	return true, nil
}

func (s *Service) runPersonaExtraction(ctx context.Context, agentID string, messages []types.ChatMessage) (bool, error) {
	persona := s.extractor.Persona(ctx, messages)
	if persona == nil {
		return false, nil
	}

	// Only non-empty field sets are written; a greeting-only exchange
	// produces no database write at all.
	if !persona.Persona.IsEmpty() {
		if err := s.profiles.UpsertPersonaFields(ctx, agentID, persona.Persona); err != nil {
			return false, fmt.Errorf("failed to upsert persona fields: %w", err)
		}
	}

	if !persona.OnboardingComplete {
		return false, nil
	}

	// The extractor's completion claim is trusted (it asserts the minimum
	// fields are present), but the independent validator check is kept
	// visible so disagreements are inspectable in logs.
	if !persona.Persona.MinimumFieldsPresent() {
		slog.Warn("extractor claimed onboarding complete but minimum fields are missing from this extraction",
			"agent_id", agentID)
	}
	if err := s.profiles.MarkOnboardingComplete(ctx, agentID); err != nil {
		return false, fmt.Errorf("failed to mark onboarding complete: %w", err)
	}
	return true, nil
}
