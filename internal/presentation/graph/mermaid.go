package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/daydream/pkg/domain"
)

// MaxLabel is the longest label, in runes, drawn inside a node.
const MaxLabel = 48

// GenerateMermaid produces a Mermaid flowchart of a session path.
// Shapes:
// - Start: ((Circle))
// - Step: [Rectangle]
// - Option offered at the cursor: [/Parallelogram/]
// - Summary: {{Hexagon}}
// Steps past the cursor are kept in the session until replaced, and are drawn
// with a dotted edge and the stale class.
func GenerateMermaid(s *domain.SessionState) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	sb.WriteString("    start((\"start\"))\n")

	prev := "start"
	for i, step := range s.Steps {
		id := stepID(i)
		fmt.Fprintf(&sb, "    %s[\"%s\"]\n", id, label(step.Prompt))
		arrow := "-->"
		if i > s.CurrentStepIndex {
			arrow = "-.->"
		}
		fmt.Fprintf(&sb, "    %s %s %s\n", prev, arrow, id)
		prev = id
	}

	if step := s.CurrentStep(); step != nil {
		cur := stepID(s.CurrentStepIndex)
		if s.IsComplete && s.FinalSummary != nil {
			fmt.Fprintf(&sb, "    summary{{\"%s\"}}\n", label(*s.FinalSummary))
			fmt.Fprintf(&sb, "    %s ==> summary\n", cur)
		} else {
			for j, opt := range step.Options {
				if opt == domain.Placeholder {
					continue
				}
				optID := fmt.Sprintf("%s_o%d", cur, j)
				fmt.Fprintf(&sb, "    %s[/\"%s\"/]\n", optID, label(opt))
				fmt.Fprintf(&sb, "    %s -.- %s\n", cur, optID)
			}
		}
	}

	sb.WriteString("\n    %% Path Styles\n")
	sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
	sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
	sb.WriteString("    classDef stale fill:#eeeeee,stroke:#9e9e9e,stroke-dasharray:4 2,color:#555;\n")
	for i := range s.Steps {
		class := "visited"
		switch {
		case i == s.CurrentStepIndex:
			class = "current"
		case i > s.CurrentStepIndex:
			class = "stale"
		}
		fmt.Fprintf(&sb, "    class %s %s;\n", stepID(i), class)
	}
	if s.CurrentStepIndex < 0 {
		sb.WriteString("    class start current;\n")
	}

	return sb.String()
}

func stepID(i int) string {
	return fmt.Sprintf("s%d", i)
}

// label escapes quotes and shortens text for a node.
func label(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if r := []rune(text); len(r) > MaxLabel {
		text = string(r[:MaxLabel-1]) + "…"
	}
	return strings.ReplaceAll(text, "\"", "#quot;")
}
