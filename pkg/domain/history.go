package domain

import (
	"strings"

	"github.com/samber/lo"
)

const (
	// Placeholder pads option lists the model returned short. It is a padding
	// artifact and never sent back to the model as content.
	Placeholder = "..."

	// OptionCount is the number of continuation options every expansion yields.
	OptionCount = 5
)

// NormalizeOptions trims each option, drops empty ones, then pads with
// Placeholder or truncates so exactly OptionCount entries remain.
func NormalizeOptions(raw []string) []string {
	options := lo.Compact(lo.Map(raw, func(opt string, _ int) string {
		return strings.TrimSpace(opt)
	}))
	for len(options) < OptionCount {
		options = append(options, Placeholder)
	}
	return options[:OptionCount]
}

// CleanPrompt strips every Placeholder occurrence from a historical prompt.
func CleanPrompt(prompt string) string {
	return strings.ReplaceAll(prompt, Placeholder, "")
}

// CleanHistory applies CleanPrompt to every entry.
func CleanHistory(history []string) []string {
	return lo.Map(history, func(p string, _ int) string {
		return CleanPrompt(p)
	})
}

// ExpandHistory is the prompt path sent to the expand collaborator when the
// user picks text: the prompts through the cursor, followed by text.
func (s *SessionState) ExpandHistory(text string) []string {
	return append(s.Prompts(), text)
}

// CompleteHistory is the prompt path sent to the complete collaborator. The
// step at the cursor is already committed, so it is included.
func (s *SessionState) CompleteHistory() []string {
	return s.Prompts()
}
