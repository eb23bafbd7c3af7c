package domain_test

import (
	"errors"
	"testing"

	"github.com/aretw0/daydream/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestProject_Initial(t *testing.T) {
	view := domain.Project(domain.NewState(), domain.DefaultPolicy(), nil)

	assert.Equal(t, domain.ScreenInitial, view.Screen)
	assert.Equal(t, -1, view.StepIndex)
	assert.Equal(t, 0, view.CycleCount)
	assert.Equal(t, domain.DefaultPrompts, view.DefaultPrompts)
	assert.False(t, view.CanGoBack)
	assert.False(t, view.CanComplete)
	assert.Empty(t, view.Error)
}

func TestProject_Active(t *testing.T) {
	state := threeSteps()
	state.CurrentStepIndex = 1

	view := domain.Project(state, domain.DefaultPolicy(), errors.New("network error"))

	assert.Equal(t, domain.ScreenActive, view.Screen)
	assert.Equal(t, "B", view.Prompt)
	assert.Equal(t, state.Steps[1].Options, view.Options)
	assert.Equal(t, []string{"A"}, view.Breadcrumbs)
	assert.Equal(t, "A → ", view.BreadcrumbTrail())
	assert.True(t, view.CanGoBack)
	assert.False(t, view.CanComplete, "two cycles are below the default threshold")
	assert.Equal(t, "network error", view.Error)
}

func TestProject_CompleteGating(t *testing.T) {
	state := threeSteps()
	assert.True(t, domain.Project(state, domain.DefaultPolicy(), nil).CanComplete)

	policy := domain.Policy{MinCycles: 4}
	assert.False(t, domain.Project(state, policy, nil).CanComplete)

	state.CurrentStepIndex = 0
	assert.True(t, domain.Project(state, domain.Policy{MinCycles: 0}, nil).CanComplete)
}

func TestProject_Final(t *testing.T) {
	state := threeSteps()
	state.IsComplete = true
	state.FinalSummary = ptr("A dream.")

	view := domain.Project(state, domain.DefaultPolicy(), nil)

	assert.Equal(t, domain.ScreenFinal, view.Screen)
	assert.Equal(t, "A dream.", view.Summary)
	assert.Equal(t, "A dream.\n- Created with Daydream", view.ShareText)
	assert.Empty(t, view.Options)
	assert.False(t, view.CanComplete)
}

func TestPickMessage(t *testing.T) {
	last := ""
	for i := 0; i < 50; i++ {
		msg := domain.PickMessage(domain.LoadingMessages, last)
		assert.Contains(t, domain.LoadingMessages, msg)
		assert.NotEqual(t, last, msg)
		last = msg
	}

	assert.Equal(t, "only", domain.PickMessage([]string{"only"}, "only"))
	assert.Empty(t, domain.PickMessage(nil, ""))
}
