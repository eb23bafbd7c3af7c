package openai

import (
	"strings"

	"github.com/aretw0/daydream/pkg/domain"
	"github.com/samber/lo"
)

const expandSystemPrompt = `You are a creative assistant helping a user expand their daydreaming thoughts.
Given the preceding daydream sequence, generate exactly 5 very short, simple, distinct and creative continuation prompts.
Make sure to have 1 prompt that provides a wildly different direction than the rest of the prompts.
Provide *only* the 5 prompts, each on a new line, without any numbering, bullets, or introductory text.`

const completeSystemPrompt = `You are a summarization assistant. Synthesize the following sequence of thoughts
into a single, coherent paragraph representing the final 'daydream' or concept.
Capture the essence of the journey.`

// ExpandMessages builds the system and user messages for an expand request.
func ExpandMessages(history []string) []Message {
	return []Message{
		{Role: "system", Content: expandSystemPrompt},
		{Role: "user", Content: "Continue this daydream sequence:\n---\n" + joinHistory(history) + "\n---"},
	}
}

// CompleteMessages builds the system and user messages for a complete request.
func CompleteMessages(history []string) []Message {
	return []Message{
		{Role: "system", Content: completeSystemPrompt},
		{Role: "user", Content: "Summarize this ideation sequence:\n---\n" + joinHistory(history) + "\n---"},
	}
}

// ParseOptions splits a completion into one option per non-empty line and
// normalizes the result to exactly domain.OptionCount entries.
func ParseOptions(text string) []string {
	lines := lo.Map(strings.Split(text, "\n"), func(line string, _ int) string {
		return strings.TrimSpace(line)
	})
	return domain.NormalizeOptions(lo.Compact(lines))
}

func joinHistory(history []string) string {
	return strings.Join(domain.CleanHistory(history), "\n")
}
