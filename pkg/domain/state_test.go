package domain_test

import (
	"testing"

	"github.com/aretw0/daydream/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func threeSteps() *domain.SessionState {
	return &domain.SessionState{
		Steps: []domain.Step{
			{Prompt: "A", Options: []string{"a1", "a2", "a3", "a4", "a5"}},
			{Prompt: "B", Options: []string{"b1", "b2", "b3", "b4", "b5"}},
			{Prompt: "C", Options: []string{"c1", "c2", "c3", "c4", "c5"}},
		},
		CurrentStepIndex: 2,
	}
}

func TestState_Screen(t *testing.T) {
	state := domain.NewState()
	assert.Equal(t, domain.ScreenInitial, state.Screen())

	state = threeSteps()
	assert.Equal(t, domain.ScreenActive, state.Screen())

	state.IsComplete = true
	state.FinalSummary = ptr("S")
	assert.Equal(t, domain.ScreenFinal, state.Screen())
}

func TestState_Clone_IsDeep(t *testing.T) {
	state := threeSteps()
	state.FinalSummary = ptr("S")

	clone := state.Clone()
	clone.Steps[0].Options[0] = "changed"
	clone.Steps = append(clone.Steps, domain.Step{Prompt: "D"})
	*clone.FinalSummary = "T"

	assert.Equal(t, "a1", state.Steps[0].Options[0])
	assert.Len(t, state.Steps, 3)
	assert.Equal(t, "S", state.Summary())
}

func TestState_Validate(t *testing.T) {
	summary := "S"
	assert.NoError(t, domain.NewState().Validate())
	assert.NoError(t, threeSteps().Validate())

	state := threeSteps()
	state.CurrentStepIndex = 3
	assert.Error(t, state.Validate())

	state = threeSteps()
	state.CurrentStepIndex = -2
	assert.Error(t, state.Validate())

	state = threeSteps()
	state.IsComplete = true
	assert.Error(t, state.Validate(), "complete without summary")

	state = threeSteps()
	state.CurrentStepIndex = -1
	state.IsComplete = true
	state.FinalSummary = &summary
	assert.Error(t, state.Validate(), "complete before the first step")

	state = threeSteps()
	state.Steps[1].Options[2] = " padded "
	assert.Error(t, state.Validate())
}

func TestState_Histories(t *testing.T) {
	state := threeSteps()

	assert.Equal(t, []string{"A", "B", "C"}, state.CompleteHistory())
	assert.Equal(t, []string{"A", "B", "C", "X"}, state.ExpandHistory("X"))

	state.CurrentStepIndex = 0
	assert.Equal(t, []string{"A", "X"}, state.ExpandHistory("X"))

	assert.Equal(t, []string{"X"}, domain.NewState().ExpandHistory("X"))
	assert.Empty(t, domain.NewState().CompleteHistory())
}

func TestNormalizeOptions(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"exact", []string{"a", "b", "c", "d", "e"}, []string{"a", "b", "c", "d", "e"}},
		{"padded", []string{"a", "b"}, []string{"a", "b", "...", "...", "..."}},
		{"truncated", []string{"a", "b", "c", "d", "e", "f", "g"}, []string{"a", "b", "c", "d", "e"}},
		{"blank lines dropped", []string{" a ", "", "  ", "b"}, []string{"a", "b", "...", "...", "..."}},
		{"empty", nil, []string{"...", "...", "...", "...", "..."}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.NormalizeOptions(tt.in))
		})
	}
}

func TestCleanHistory(t *testing.T) {
	got := domain.CleanHistory([]string{"I want to invent...", "a robot... that dreams...", "plain"})
	assert.Equal(t, []string{"I want to invent", "a robot that dreams", "plain"}, got)
}
