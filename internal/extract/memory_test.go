package extract

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/clawcoach/clawcoach/internal/types"
)

func TestMemoryNotesExtractsValidNotes(t *testing.T) {
	model := &fakeExtractionModel{output: `{"notes": [
		{"content": "Hit a new squat PR of 225 lbs", "category": "achievement"},
		{"content": "Prefers training before work", "category": "preference"}
	]}`}
	e := New(model, model)

	notes := e.MemoryNotes(context.Background(), "Just squatted 225!", "That's a PR, amazing work!")
	if len(notes) != 2 {
		t.Fatalf("expected 2 notes, got %d", len(notes))
	}
	if notes[0].Category != types.CategoryAchievement {
		t.Fatalf("category not carried through: %+v", notes[0])
	}
	if !strings.Contains(model.input, "User: Just squatted 225!") {
		t.Fatalf("exchange should be rendered into the extraction input")
	}
}

func TestMemoryNotesEmptyArrayIsValid(t *testing.T) {
	model := &fakeExtractionModel{output: `{"notes": []}`}
	e := New(model, model)

	notes := e.MemoryNotes(context.Background(), "ok", "got it")
	if len(notes) != 0 {
		t.Fatalf("expected no notes, got %d", len(notes))
	}
}

func TestMemoryNotesRejectsOversizedBatch(t *testing.T) {
	model := &fakeExtractionModel{output: `{"notes": [
		{"content": "a", "category": "general"},
		{"content": "b", "category": "general"},
		{"content": "c", "category": "general"},
		{"content": "d", "category": "general"}
	]}`}
	e := New(model, model)

	if notes := e.MemoryNotes(context.Background(), "u", "a"); notes != nil {
		t.Fatalf("more than %d notes must be rejected wholesale, got %d", maxNotesPerExchange, len(notes))
	}
}

func TestMemoryNotesRejectsUnknownCategory(t *testing.T) {
	// An out-of-enum category fails schema validation before filtering runs.
	model := &fakeExtractionModel{output: `{"notes": [
		{"content": "likes pizza", "category": "nutrition"}
	]}`}
	e := New(model, model)

	if notes := e.MemoryNotes(context.Background(), "u", "a"); notes != nil {
		t.Fatalf("unknown category must fail validation, got %+v", notes)
	}
}

func TestMemoryNotesModelErrorReturnsNil(t *testing.T) {
	model := &fakeExtractionModel{err: errors.New("deadline exceeded")}
	e := New(model, model)

	if notes := e.MemoryNotes(context.Background(), "u", "a"); notes != nil {
		t.Fatalf("model failure must yield nil")
	}
}

func TestMemoryNotesNonJSONReturnsNil(t *testing.T) {
	model := &fakeExtractionModel{output: "nothing memorable here"}
	e := New(model, model)

	if notes := e.MemoryNotes(context.Background(), "u", "a"); notes != nil {
		t.Fatalf("prose output must yield nil")
	}
}
