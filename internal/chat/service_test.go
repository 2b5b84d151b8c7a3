package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/clawcoach/clawcoach/internal/extract"
	"github.com/clawcoach/clawcoach/internal/quota"
	"github.com/clawcoach/clawcoach/internal/repository"
	"github.com/clawcoach/clawcoach/internal/types"
)

func strPtr(s string) *string { return &s }

type fakeChatClient struct {
	deltas    []string
	streamErr error
	system    string
	messages  []types.ChatMessage
}

func (f *fakeChatClient) Stream(ctx context.Context, system string, messages []types.ChatMessage, onDelta func(string) error) (string, error) {
	f.system = system
	f.messages = messages
	var full strings.Builder
	for _, d := range f.deltas {
		if err := onDelta(d); err != nil {
			return full.String(), err
		}
		full.WriteString(d)
	}
	return full.String(), f.streamErr
}

func (f *fakeChatClient) Complete(ctx context.Context, system string, messages []types.ChatMessage) (string, error) {
	f.system = system
	f.messages = messages
	return strings.Join(f.deltas, ""), f.streamErr
}

type fakeLimiter struct {
	result   quota.RateLimitResult
	identity string
	calls    int
}

func (f *fakeLimiter) Check(ctx context.Context, identity string) quota.RateLimitResult {
	f.calls++
	f.identity = identity
	return f.result
}

type fakeMeter struct {
	result quota.FreeMessageResult
	calls  int
}

func (f *fakeMeter) Check(ctx context.Context, identity string) quota.FreeMessageResult {
	f.calls++
	return f.result
}

type fakeResolver struct {
	prompt  string
	agentID string
}

func (f *fakeResolver) ResolveSystemPrompt(ctx context.Context, agentName, style, agentID string) string {
	f.agentID = agentID
	return f.prompt
}

type fakeExtractor struct {
	persona      *extract.PersonaExtraction
	notes        []types.MemoryNote
	personaCalls int
	notesCalls   int
	personaInput []types.ChatMessage
}

func (f *fakeExtractor) Persona(ctx context.Context, messages []types.ChatMessage) *extract.PersonaExtraction {
	f.personaCalls++
	f.personaInput = messages
	return f.persona
}

func (f *fakeExtractor) MemoryNotes(ctx context.Context, userMessage, assistantMessage string) []types.MemoryNote {
	f.notesCalls++
	return f.notes
}

type fakeProfiles struct {
	complete    bool
	stateErr    error
	upserted    []types.Persona
	upsertErr   error
	marked      int
	markErr     error
	appended    [][]types.MemoryNote
	appendErr   error
	persona     types.Persona
	notes       []types.MemoryNote
	stateCalls  int
	listedCalls int
}

func (f *fakeProfiles) GetOnboardingState(ctx context.Context, agentID string) (bool, error) {
	f.stateCalls++
	return f.complete, f.stateErr
}

func (f *fakeProfiles) GetPersona(ctx context.Context, agentID string) (types.Persona, error) {
	return f.persona, nil
}

func (f *fakeProfiles) ListMemoryNotes(ctx context.Context, agentID string) ([]types.MemoryNote, error) {
	f.listedCalls++
	return f.notes, nil
}

func (f *fakeProfiles) UpsertPersonaFields(ctx context.Context, agentID string, partial types.Persona) error {
	f.upserted = append(f.upserted, partial)
	return f.upsertErr
}

func (f *fakeProfiles) MarkOnboardingComplete(ctx context.Context, agentID string) error {
	f.marked++
	return f.markErr
}

func (f *fakeProfiles) AppendMemoryNotes(ctx context.Context, agentID string, notes []types.MemoryNote) error {
	f.appended = append(f.appended, notes)
	return f.appendErr
}

type fakeMirror struct {
	wallets    []string
	users      []string
	assistants []string
	err        error
}

func (f *fakeMirror) SaveExchange(ctx context.Context, wallet, agentID, userMessage, assistantMessage string) error {
	f.wallets = append(f.wallets, wallet)
	f.users = append(f.users, userMessage)
	f.assistants = append(f.assistants, assistantMessage)
	return f.err
}

type serviceFixture struct {
	svc       *Service
	chat      *fakeChatClient
	limiter   *fakeLimiter
	meter     *fakeMeter
	resolver  *fakeResolver
	extractor *fakeExtractor
	profiles  *fakeProfiles
	mirror    *fakeMirror
}

func newServiceFixture() *serviceFixture {
	f := &serviceFixture{
		chat:      &fakeChatClient{deltas: []string{"Let's ", "go!"}},
		limiter:   &fakeLimiter{result: quota.RateLimitResult{Allowed: true}},
		meter:     &fakeMeter{result: quota.FreeMessageResult{Allowed: true, Used: 1, Limit: 10}},
		resolver:  &fakeResolver{prompt: "system prompt"},
		extractor: &fakeExtractor{},
		profiles:  &fakeProfiles{},
		mirror:    &fakeMirror{},
	}
	f.svc = NewService(f.chat, f.limiter, f.meter, f.resolver, f.extractor, f.profiles, f.mirror)
	return f
}

func TestCheckAccessWithoutWalletSkipsEnforcement(t *testing.T) {
	f := newServiceFixture()

	d := f.svc.CheckAccess(context.Background(), "", "agent-1")
	if d.Status != AccessAllowed {
		t.Fatalf("anonymous caller should be allowed, got %v", d.Status)
	}
	if f.limiter.calls != 0 || f.meter.calls != 0 {
		t.Fatalf("quota checks must not run without an identity")
	}
}

func TestCheckAccessRateLimitWinsOverPaywall(t *testing.T) {
	f := newServiceFixture()
	f.limiter.result = quota.RateLimitResult{Allowed: false, Limit: 50, Window: "hourly"}
	f.meter.result = quota.FreeMessageResult{Allowed: false, Used: 11, Limit: 10}

	d := f.svc.CheckAccess(context.Background(), "0xabc", "")
	if d.Status != AccessRateLimited {
		t.Fatalf("rate limit should be reported before the paywall, got %v", d.Status)
	}
	if f.meter.calls != 0 {
		t.Fatalf("meter must not run once the rate limit rejects")
	}
}

func TestCheckAccessPaywallsExhaustedFreeTier(t *testing.T) {
	f := newServiceFixture()
	f.profiles.complete = true
	f.meter.result = quota.FreeMessageResult{Allowed: false, Used: 11, Limit: 10}

	d := f.svc.CheckAccess(context.Background(), "0xabc", "agent-1")
	if d.Status != AccessPaywalled {
		t.Fatalf("exhausted free tier should paywall, got %v", d.Status)
	}
	if d.Free.Used != 11 {
		t.Fatalf("decision should carry the meter result, got %+v", d.Free)
	}
}

func TestCheckAccessOnboardingBypassesPaywall(t *testing.T) {
	f := newServiceFixture()
	f.profiles.complete = false
	f.meter.result = quota.FreeMessageResult{Allowed: false, Used: 11, Limit: 10}

	d := f.svc.CheckAccess(context.Background(), "0xabc", "agent-1")
	if d.Status != AccessAllowed {
		t.Fatalf("mid-onboarding agent must bypass the paywall, got %v", d.Status)
	}
	if f.meter.calls != 0 {
		t.Fatalf("meter must not run during the onboarding bypass")
	}
}

func TestCheckAccessUnknownAgentIsMetered(t *testing.T) {
	f := newServiceFixture()
	f.profiles.stateErr = repository.ErrNotFound
	f.meter.result = quota.FreeMessageResult{Allowed: false, Used: 11, Limit: 10}

	d := f.svc.CheckAccess(context.Background(), "0xabc", "agent-1")
	if d.Status != AccessPaywalled {
		t.Fatalf("unknown agent must fall through to the meter, got %v", d.Status)
	}
}

func TestStreamTurnRelaysDeltasAndReturnsFullText(t *testing.T) {
	f := newServiceFixture()

	var received []string
	full, err := f.svc.StreamTurn(context.Background(), Request{
		Messages:  []types.ChatMessage{{Role: types.RoleUser, Content: "hi"}},
		AgentName: "Atlas",
	}, func(delta string) error {
		received = append(received, delta)
		return nil
	})
	f.svc.Drain()

	if err != nil {
		t.Fatalf("StreamTurn: %v", err)
	}
	if full != "Let's go!" {
		t.Fatalf("full text = %q", full)
	}
	if len(received) != 2 {
		t.Fatalf("expected 2 deltas, got %d", len(received))
	}
	if f.chat.system != "system prompt" {
		t.Fatalf("resolved prompt not passed to the model")
	}
}

func TestStreamTurnFailureReturnsPartialAndSkipsPostTurn(t *testing.T) {
	f := newServiceFixture()
	f.chat.streamErr = errors.New("upstream reset")

	full, err := f.svc.StreamTurn(context.Background(), Request{
		Messages:  []types.ChatMessage{{Role: types.RoleUser, Content: "hi"}},
		AgentDBID: "agent-1",
		Wallet:    "0xabc",
	}, func(string) error { return nil })
	f.svc.Drain()

	if err == nil {
		t.Fatalf("expected the stream error to surface")
	}
	if full != "Let's go!" {
		t.Fatalf("partial text should be returned with the error, got %q", full)
	}
	if f.extractor.personaCalls != 0 || f.extractor.notesCalls != 0 {
		t.Fatalf("post-turn work must not run after a failed stream")
	}
	if len(f.mirror.wallets) != 0 {
		t.Fatalf("history must not be mirrored after a failed stream")
	}
}

func TestStreamTurnDispatchesExtractionAndMirror(t *testing.T) {
	f := newServiceFixture()
	f.profiles.complete = true
	f.extractor.notes = []types.MemoryNote{{Content: "fact", Category: types.CategoryGeneral}}

	_, err := f.svc.StreamTurn(context.Background(), Request{
		Messages: []types.ChatMessage{
			{Role: types.RoleAssistant, Content: "earlier reply"},
			{Role: types.RoleUser, Content: "latest question"},
		},
		AgentDBID: "agent-1",
		Wallet:    "0xabc",
	}, func(string) error { return nil })
	if err != nil {
		t.Fatalf("StreamTurn: %v", err)
	}
	f.svc.Drain()

	if f.extractor.notesCalls != 1 {
		t.Fatalf("expected one memory extraction, got %d", f.extractor.notesCalls)
	}
	if len(f.profiles.appended) != 1 {
		t.Fatalf("extracted notes should be appended")
	}
	if len(f.mirror.wallets) != 1 || f.mirror.wallets[0] != "0xabc" {
		t.Fatalf("exchange should be mirrored for the wallet, got %v", f.mirror.wallets)
	}
	if f.mirror.users[0] != "latest question" {
		t.Fatalf("mirror should record the latest user message, got %q", f.mirror.users[0])
	}
	if f.mirror.assistants[0] != "Let's go!" {
		t.Fatalf("mirror should record the assistant reply, got %q", f.mirror.assistants[0])
	}
}

func TestStreamTurnWithoutAgentSkipsExtraction(t *testing.T) {
	f := newServiceFixture()

	_, err := f.svc.StreamTurn(context.Background(), Request{
		Messages: []types.ChatMessage{{Role: types.RoleUser, Content: "hi"}},
		Wallet:   "0xabc",
	}, func(string) error { return nil })
	if err != nil {
		t.Fatalf("StreamTurn: %v", err)
	}
	f.svc.Drain()

	if f.extractor.personaCalls != 0 || f.extractor.notesCalls != 0 {
		t.Fatalf("extraction must not run without a persisted agent")
	}
	if len(f.mirror.wallets) != 0 {
		t.Fatalf("mirroring requires a persisted agent")
	}
}

func TestRunExtractionUnknownAgent(t *testing.T) {
	f := newServiceFixture()
	f.profiles.stateErr = repository.ErrNotFound

	_, err := f.svc.RunExtraction(context.Background(), "missing", nil, "", "")
	if !errors.Is(err, ErrAgentNotFound) {
		t.Fatalf("expected ErrAgentNotFound, got %v", err)
	}
}

func TestRunExtractionOnboardingUpsertsAndCompletes(t *testing.T) {
	f := newServiceFixture()
	f.extractor.persona = &extract.PersonaExtraction{
		Persona: types.Persona{
			FitnessLevel: strPtr("beginner"),
			Goals:        strPtr("get stronger"),
			Schedule:     strPtr("3x per week"),
		},
		OnboardingComplete: true,
	}

	history := []types.ChatMessage{
		{Role: types.RoleUser, Content: "I'm a beginner, want to get stronger, 3x a week"},
	}
	complete, err := f.svc.RunExtraction(context.Background(), "agent-1", history, "u", "a")
	if err != nil {
		t.Fatalf("RunExtraction: %v", err)
	}
	if !complete {
		t.Fatalf("expected onboarding to complete")
	}
	if len(f.profiles.upserted) != 1 {
		t.Fatalf("persona fields should be upserted once, got %d", len(f.profiles.upserted))
	}
	if f.profiles.marked != 1 {
		t.Fatalf("onboarding should be marked complete once, got %d", f.profiles.marked)
	}
	if len(f.extractor.personaInput) != len(history) {
		t.Fatalf("persona extraction should see the full history")
	}
	if f.extractor.notesCalls != 0 {
		t.Fatalf("memory extraction must not run during onboarding")
	}
}

func TestRunExtractionEmptyPersonaWritesNothing(t *testing.T) {
	f := newServiceFixture()
	f.extractor.persona = &extract.PersonaExtraction{Persona: types.Persona{}, OnboardingComplete: false}

	complete, err := f.svc.RunExtraction(context.Background(), "agent-1", nil, "", "")
	if err != nil {
		t.Fatalf("RunExtraction: %v", err)
	}
	if complete {
		t.Fatalf("empty extraction must not complete onboarding")
	}
	if len(f.profiles.upserted) != 0 {
		t.Fatalf("empty persona must not be written")
	}
	if f.profiles.marked != 0 {
		t.Fatalf("onboarding flag must not be touched")
	}
}

func TestRunExtractionFailedModelLeavesStateUntouched(t *testing.T) {
	f := newServiceFixture()
	f.extractor.persona = nil

	complete, err := f.svc.RunExtraction(context.Background(), "agent-1", nil, "", "")
	if err != nil {
		t.Fatalf("a failed extraction is not an error: %v", err)
	}
	if complete || len(f.profiles.upserted) != 0 || f.profiles.marked != 0 {
		t.Fatalf("failed extraction must leave the profile untouched")
	}
}

func TestRunExtractionMemoryModeSkipsEmptyBatch(t *testing.T) {
	f := newServiceFixture()
	f.profiles.complete = true
	f.extractor.notes = nil

	complete, err := f.svc.RunExtraction(context.Background(), "agent-1", nil, "u", "a")
	if err != nil {
		t.Fatalf("RunExtraction: %v", err)
	}
	if !complete {
		t.Fatalf("memory mode reports onboarding complete")
	}
	if len(f.profiles.appended) != 0 {
		t.Fatalf("an empty batch must not hit the store")
	}
	if f.extractor.personaCalls != 0 {
		t.Fatalf("persona extraction must not run after onboarding")
	}
}

func TestRunExtractionStoreFailureSurfaces(t *testing.T) {
	f := newServiceFixture()
	f.profiles.complete = true
	f.extractor.notes = []types.MemoryNote{{Content: "fact", Category: types.CategoryGeneral}}
	f.profiles.appendErr = errors.New("connection refused")

	_, err := f.svc.RunExtraction(context.Background(), "agent-1", nil, "u", "a")
	if err == nil {
		t.Fatalf("store failures must surface")
	}
}

func TestCompleteTurnUsesResolvedPrompt(t *testing.T) {
	f := newServiceFixture()

	text, err := f.svc.CompleteTurn(context.Background(), Request{
		Messages:  []types.ChatMessage{{Role: types.RoleUser, Content: "hi"}},
		AgentName: "Atlas",
		AgentDBID: "agent-1",
	})
	if err != nil {
		t.Fatalf("CompleteTurn: %v", err)
	}
	if text != "Let's go!" {
		t.Fatalf("text = %q", text)
	}
	if f.resolver.agentID != "agent-1" {
		t.Fatalf("resolver should receive the agent id")
	}
}
