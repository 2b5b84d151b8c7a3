// Package prompt assembles system prompts for the coaching model. Assembly is
// pure: identical inputs always produce identical text.
package prompt

import (
	"bytes"
	"text/template"

	"github.com/clawcoach/clawcoach/internal/types"
)

const roleStatementText = `You are {{.AgentName}}, a ClawCoach fitness coaching agent. You are an AI coach with an on-chain identity on Base (ERC-8004). You create personalized workout programs, track progress, and adapt training based on the user's goals, fitness level, available equipment, and recovery data.`

const genericTemplateText = roleStatementText + `

{{.Preamble}}

Keep responses concise and actionable. Use short paragraphs. When programming workouts, use clear formatting with exercise names, sets, reps, weights, and rest periods.

If this is the start of a conversation and you don't know the user's fitness background yet, introduce yourself briefly and ask 2-3 key questions to get started (goal, experience level, available equipment).

{{.Skill}}

{{.Safety}}`

const onboardingTemplateText = roleStatementText + `

{{.Preamble}}

{{.Interview}}
{{- if .Known}}

## What You Already Know

{{- range .Known}}
- {{.Label}}: {{.Value}}
{{- end}}

Do not re-ask about the facts listed above; fill in the gaps.
{{- end}}

{{.Safety}}`

const personaAwareTemplateText = roleStatementText + `

{{.Preamble}}

## User Profile

{{- range .Profile}}
- {{.Label}}: {{.Value}}
{{- end}}
{{- if .Notes}}

## Memory Notes

{{- range .Notes}}
- {{.}}
{{- end}}
{{- end}}

{{.Personalize}}

Keep responses concise and actionable. Use short paragraphs. When programming workouts, use clear formatting with exercise names, sets, reps, weights, and rest periods.

{{.Skill}}

{{.Safety}}`

var (
	genericTemplate      = template.Must(template.New("generic").Parse(genericTemplateText))
	onboardingTemplate   = template.Must(template.New("onboarding").Parse(onboardingTemplateText))
	personaAwareTemplate = template.Must(template.New("persona").Parse(personaAwareTemplateText))
)

type fieldEntry struct {
	Label string
	Value string
}

// personaEntries lists the non-nil persona fields in fixed order.
func personaEntries(p types.Persona) []fieldEntry {
	var entries []fieldEntry
	add := func(label string, value *string) {
		if value != nil && *value != "" {
			entries = append(entries, fieldEntry{Label: label, Value: *value})
		}
	}
	add("Fitness level", p.FitnessLevel)
	add("Goals", p.Goals)
	add("Motivation", p.Motivation)
	add("Schedule", p.Schedule)
	add("Injuries", p.Injuries)
	add("Preferred workout types", p.PreferredWorkoutTypes)
	add("Communication preferences", p.CommunicationPreferences)
	add("Additional context", p.AdditionalContext)
	return entries
}

func preambleFor(style string) string {
	if preamble, ok := stylePreambles[style]; ok {
		return preamble
	}
	return stylePreambles[defaultStyle]
}

// Build produces the generic coaching prompt, used when no persisted agent
// identity is known.
func Build(agentName, style string) string {
	data := struct {
		AgentName string
		Preamble  string
		Skill     string
		Safety    string
	}{
		AgentName: agentName,
		Preamble:  preambleFor(style),
		Skill:     fitnessSkill,
		Safety:    safetyRules,
	}
	var buf bytes.Buffer
	if err := genericTemplate.Execute(&buf, data); err != nil {
		panic(err) // fixed templates over plain structs cannot fail
	}
	return buf.String()
}

// BuildOnboarding produces the interview prompt used while the agent is still
// learning the user's profile. Known facts from a partial persona are listed
// so the model does not re-ask them.
func BuildOnboarding(agentName, style string, partial types.Persona) string {
	data := struct {
		AgentName string
		Preamble  string
		Interview string
		Known     []fieldEntry
		Safety    string
	}{
		AgentName: agentName,
		Preamble:  preambleFor(style),
		Interview: onboardingInstructions,
		Known:     personaEntries(partial),
		Safety:    safetyRules,
	}
	var buf bytes.Buffer
	if err := onboardingTemplate.Execute(&buf, data); err != nil {
		panic(err)
	}
	return buf.String()
}

// BuildPersonaAware produces the coaching prompt for a fully onboarded agent,
// prefixed with the user's profile and memory notes.
func BuildPersonaAware(agentName, style string, persona types.Persona, notes []types.MemoryNote) string {
	noteLines := make([]string, 0, len(notes))
	for _, n := range notes {
		noteLines = append(noteLines, n.Content)
	}
	data := struct {
		AgentName   string
		Preamble    string
		Profile     []fieldEntry
		Notes       []string
		Personalize string
		Skill       string
		Safety      string
	}{
		AgentName:   agentName,
		Preamble:    preambleFor(style),
		Profile:     personaEntries(persona),
		Notes:       noteLines,
		Personalize: personalizeInstruction,
		Skill:       fitnessSkill,
		Safety:      safetyRules,
	}
	var buf bytes.Buffer
	if err := personaAwareTemplate.Execute(&buf, data); err != nil {
		panic(err)
	}
	return buf.String()
}
