package domain

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// DecodeReport describes what Decode had to do to recover a record.
type DecodeReport struct {
	// Repairs lists every coercion applied, in order.
	Repairs []string

	// Reset is true when the record collapsed to the default state and the
	// persisted copy should be cleared.
	Reset bool
}

// Repaired reports whether any coercion was applied.
func (r DecodeReport) Repaired() bool {
	return len(r.Repairs) > 0 || r.Reset
}

func (r *DecodeReport) note(format string, args ...any) {
	r.Repairs = append(r.Repairs, fmt.Sprintf(format, args...))
}

// Encode serializes the state into the persisted record shape.
func Encode(state *SessionState) ([]byte, error) {
	if state == nil {
		return nil, fmt.Errorf("cannot encode nil state")
	}
	out := *state
	if out.Steps == nil {
		out.Steps = []Step{}
	}
	data, err := json.Marshal(&out)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal state: %w", err)
	}
	return data, nil
}

// Decode parses a persisted record leniently. Fields with the wrong shape are
// coerced to their defaults, a completed session without summary text loses
// its completion, and the cursor is clamped into range. The returned state
// always satisfies Validate.
//
// A record that is not a JSON object yields the default state, a Reset report
// and the parse error.
func Decode(data []byte) (*SessionState, DecodeReport, error) {
	var report DecodeReport

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		report.Reset = true
		return NewState(), report, fmt.Errorf("failed to parse session record: %w", err)
	}
	if raw == nil {
		report.Reset = true
		return NewState(), report, fmt.Errorf("failed to parse session record: not an object")
	}

	state := &SessionState{Steps: []Step{}}

	rawSteps, ok := raw["steps"].([]any)
	if !ok {
		report.note("steps is not an array")
	}
	for i, entry := range rawSteps {
		step, err := decodeStep(entry)
		if err != nil {
			report.note("dropped step %d: %v", i, err)
			continue
		}
		state.Steps = append(state.Steps, step)
	}

	switch idx := raw["currentStepIndex"].(type) {
	case float64:
		state.CurrentStepIndex = int(idx)
	default:
		report.note("currentStepIndex is not a number")
		state.CurrentStepIndex = -1
	}

	if complete, ok := raw["isComplete"].(bool); ok {
		state.IsComplete = complete
	} else {
		report.note("isComplete is not a boolean")
	}

	if summary, ok := raw["finalSummary"].(string); ok {
		state.FinalSummary = &summary
	}

	if state.IsComplete && strings.TrimSpace(state.Summary()) == "" {
		report.note("complete session without summary text")
		state.ClearCompletion()
		if len(state.Steps) == 0 {
			report.Reset = true
			return NewState(), report, nil
		}
	}

	clamped := max(-1, min(state.CurrentStepIndex, len(state.Steps)-1))
	if clamped != state.CurrentStepIndex {
		report.note("cursor %d clamped to %d", state.CurrentStepIndex, clamped)
		state.CurrentStepIndex = clamped
	}

	if state.IsComplete && state.CurrentStepIndex < 0 {
		report.note("complete session without a current step")
		state.ClearCompletion()
		if len(state.Steps) == 0 {
			report.Reset = true
			return NewState(), report, nil
		}
	}

	return state, report, nil
}

func decodeStep(entry any) (Step, error) {
	fields, ok := entry.(map[string]any)
	if !ok {
		return Step{}, fmt.Errorf("not an object")
	}

	var step Step
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &step,
	})
	if err != nil {
		return Step{}, err
	}
	if err := decoder.Decode(fields); err != nil {
		return Step{}, err
	}

	options := make([]string, 0, len(step.Options))
	for _, opt := range step.Options {
		if opt = strings.TrimSpace(opt); opt != "" {
			options = append(options, opt)
		}
	}
	step.Options = options
	return step, nil
}
