// Package promptstyle wraps system prompts with the house guidance every
// model call shares.
package promptstyle

import "strings"

const marker = "BUYERDESK_PROMPT_STYLE_V1"

type Mode string

const (
	ModeProse Mode = "prose"
	ModeJSON  Mode = "json"
)

// ApplySystem prepends the house guidance block. It is a no-op on an empty
// prompt and on one that already carries the block.
func ApplySystem(system string, mode Mode) string {
	base := strings.TrimSpace(system)
	if base == "" || strings.Contains(base, marker) {
		return base
	}

	var b strings.Builder
	b.WriteString(marker)
	b.WriteString("\nYou assist a licensed real-estate agent working with home buyers.")
	b.WriteString("\nUse only the facts provided. Never invent prices, addresses, dates or loan terms.")
	b.WriteString("\nDo not give legal, tax or lending advice; refer the buyer to the relevant professional.")
	b.WriteString("\nDo not mention protected characteristics or describe neighborhoods by who lives there.")
	switch mode {
	case ModeJSON:
		b.WriteString("\nReturn a single JSON object matching the requested shape, with no prose and no code fences.")
	default:
		b.WriteString("\nWrite plainly and briefly. No headings unless asked.")
	}
	b.WriteString("\n---\n")
	b.WriteString(base)
	return b.String()
}
