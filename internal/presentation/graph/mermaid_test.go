package graph

import (
	"strings"
	"testing"

	"github.com/aretw0/daydream/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestGenerateMermaid_Initial(t *testing.T) {
	out := GenerateMermaid(domain.NewState())

	assert.True(t, strings.HasPrefix(out, "graph TD\n"))
	assert.Contains(t, out, `start(("start"))`)
	assert.Contains(t, out, "class start current;")
	assert.NotContains(t, out, "s0")
}

func TestGenerateMermaid_Path(t *testing.T) {
	s := &domain.SessionState{
		Steps: []domain.Step{
			{Prompt: "a lighthouse", Options: []string{"keeper", "storm", "ship", "gull", "fog"}},
			{Prompt: "the keeper", Options: []string{"letter", "lamp", domain.Placeholder, domain.Placeholder, domain.Placeholder}},
			{Prompt: "old branch", Options: []string{"x", "y", "z", "w", "v"}},
		},
		CurrentStepIndex: 1,
	}

	out := GenerateMermaid(s)

	assert.Contains(t, out, "start --> s0")
	assert.Contains(t, out, "s0 --> s1")
	assert.Contains(t, out, "s1 -.-> s2")
	assert.Contains(t, out, `s1_o0[/"letter"/]`)
	assert.Contains(t, out, "s1 -.- s1_o1")
	assert.NotContains(t, out, "s1_o2", "placeholders are not drawn")
	assert.NotContains(t, out, "s0_o0", "only the cursor step shows options")
	assert.Contains(t, out, "class s0 visited;")
	assert.Contains(t, out, "class s1 current;")
	assert.Contains(t, out, "class s2 stale;")
}

func TestGenerateMermaid_Final(t *testing.T) {
	summary := `a "quiet" story`
	s := &domain.SessionState{
		Steps:            []domain.Step{{Prompt: "rain", Options: []string{"a", "b", "c", "d", "e"}}},
		CurrentStepIndex: 0,
		IsComplete:       true,
		FinalSummary:     &summary,
	}

	out := GenerateMermaid(s)

	assert.Contains(t, out, `summary{{"a #quot;quiet#quot; story"}}`)
	assert.Contains(t, out, "s0 ==> summary")
	assert.NotContains(t, out, "s0_o0")
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "two words", label("  two \n words "))

	long := strings.Repeat("x", MaxLabel+10)
	got := []rune(label(long))
	assert.Len(t, got, MaxLabel)
	assert.Equal(t, '…', got[len(got)-1])
}
