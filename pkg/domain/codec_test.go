package domain_test

import (
	"testing"

	"github.com/aretw0/daydream/pkg/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(s string) *string { return &s }

func TestCodec_RoundTrip(t *testing.T) {
	states := map[string]*domain.SessionState{
		"default": domain.NewState(),
		"active": {
			Steps: []domain.Step{
				{Prompt: "I want to invent...", Options: []string{"a", "b", "c", "d", "e"}},
				{Prompt: "b", Options: []string{"f", "g", "...", "...", "...", "custom"}},
			},
			CurrentStepIndex: 1,
		},
		"rewound": {
			Steps: []domain.Step{
				{Prompt: "A", Options: []string{"a", "b", "c", "d", "e"}},
				{Prompt: "B", Options: []string{"a", "b", "c", "d", "e"}},
			},
			CurrentStepIndex: 0,
		},
		"final": {
			Steps:            []domain.Step{{Prompt: "A", Options: []string{"a", "b", "c", "d", "e"}}},
			CurrentStepIndex: 0,
			IsComplete:       true,
			FinalSummary:     ptr("S"),
		},
	}

	for name, state := range states {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, state.Validate())

			data, err := domain.Encode(state)
			require.NoError(t, err)

			loaded, report, err := domain.Decode(data)
			require.NoError(t, err)
			assert.False(t, report.Repaired(), "well-formed records must not need repair: %v", report.Repairs)

			if diff := cmp.Diff(state, loaded); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecode_RecordShape(t *testing.T) {
	data, err := domain.Encode(domain.NewState())
	require.NoError(t, err)
	assert.JSONEq(t, `{"steps":[],"currentStepIndex":-1,"isComplete":false,"finalSummary":null}`, string(data))
}

func TestDecode_Repairs(t *testing.T) {
	tests := []struct {
		name      string
		record    string
		wantIndex int
		wantSteps int
		wantReset bool
		wantFinal bool
	}{
		{
			name:      "complete without summary and no steps collapses to default",
			record:    `{"steps":[],"currentStepIndex":0,"isComplete":true}`,
			wantIndex: -1,
			wantReset: true,
		},
		{
			name:      "complete with empty summary keeps steps",
			record:    `{"steps":[{"prompt":"A","options":["a"]}],"currentStepIndex":0,"isComplete":true,"finalSummary":"  "}`,
			wantIndex: 0,
			wantSteps: 1,
		},
		{
			name:      "steps not an array",
			record:    `{"steps":"oops","currentStepIndex":3,"isComplete":false}`,
			wantIndex: -1,
		},
		{
			name:      "cursor not numeric",
			record:    `{"steps":[{"prompt":"A","options":["a"]}],"currentStepIndex":"1"}`,
			wantIndex: -1,
			wantSteps: 1,
		},
		{
			name:      "cursor past the end is clamped",
			record:    `{"steps":[{"prompt":"A","options":["a"]},{"prompt":"B","options":["b"]}],"currentStepIndex":7}`,
			wantIndex: 1,
			wantSteps: 2,
		},
		{
			name:      "cursor below -1 is clamped",
			record:    `{"steps":[{"prompt":"A","options":["a"]}],"currentStepIndex":-4}`,
			wantIndex: -1,
			wantSteps: 1,
		},
		{
			name:      "isComplete not boolean",
			record:    `{"steps":[{"prompt":"A","options":["a"]}],"currentStepIndex":0,"isComplete":"yes","finalSummary":"S"}`,
			wantIndex: 0,
			wantSteps: 1,
		},
		{
			name:      "non-object step entries are dropped",
			record:    `{"steps":[42,{"prompt":"A","options":["a"]}],"currentStepIndex":1}`,
			wantIndex: 0,
			wantSteps: 1,
		},
		{
			name:      "complete with summary but no steps collapses to default",
			record:    `{"steps":[],"currentStepIndex":3,"isComplete":true,"finalSummary":"S"}`,
			wantIndex: -1,
			wantReset: true,
		},
		{
			name:      "complete before the first step loses its summary",
			record:    `{"steps":[{"prompt":"A","options":["a"]}],"currentStepIndex":-1,"isComplete":true,"finalSummary":"S"}`,
			wantIndex: -1,
			wantSteps: 1,
		},
		{
			name:      "complete with summary survives",
			record:    `{"steps":[{"prompt":"A","options":["a"]}],"currentStepIndex":0,"isComplete":true,"finalSummary":"S"}`,
			wantIndex: 0,
			wantSteps: 1,
			wantFinal: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state, report, err := domain.Decode([]byte(tt.record))
			require.NoError(t, err)

			assert.Equal(t, tt.wantIndex, state.CurrentStepIndex)
			assert.Len(t, state.Steps, tt.wantSteps)
			assert.Equal(t, tt.wantReset, report.Reset)
			assert.Equal(t, tt.wantFinal, state.IsComplete)
			assert.NoError(t, state.Validate())
			if !state.IsComplete {
				assert.NotEqual(t, domain.ScreenFinal, state.Screen())
			}
		})
	}
}

func TestDecode_MalformedPayloads(t *testing.T) {
	for _, record := range []string{``, `not json`, `null`, `[1,2,3]`, `"text"`} {
		state, report, err := domain.Decode([]byte(record))
		assert.Error(t, err, "record %q", record)
		assert.True(t, report.Reset)
		assert.True(t, state.IsDefault())
	}
}

func TestDecode_OptionsAreTrimmed(t *testing.T) {
	state, _, err := domain.Decode([]byte(`{"steps":[{"prompt":"A","options":[" a ","", "b", 3]}],"currentStepIndex":0}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "3"}, state.Steps[0].Options)
}
