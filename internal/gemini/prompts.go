package gemini

import (
	"fmt"
	"strings"

	"github.com/edgard/socialbot/internal/config"
)

// personaHeader opens every system prompt. It expects the character name twice.
const personaHeader = `You are %s, a social media bot. Reply as %s would, in the first person, to the latest user message. Keep replies short enough for a single post. Do not prefix replies with your name or a role label.
`

// SystemPrompt renders the character as the system-prompt seed.
func SystemPrompt(c config.CharacterConfig) string {
	var b strings.Builder
	fmt.Fprintf(&b, personaHeader, c.Name, c.Name)
	writeSection(&b, "About you", c.Bio)
	writeSection(&b, "Background", c.Lore)
	writeSection(&b, "Style", c.Style)
	return strings.TrimRight(b.String(), "\n")
}

func writeSection(b *strings.Builder, title string, lines []string) {
	var kept []string
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			kept = append(kept, l)
		}
	}
	if len(kept) == 0 {
		return
	}
	fmt.Fprintf(b, "\n## %s\n", title)
	for _, l := range kept {
		fmt.Fprintf(b, "- %s\n", l)
	}
}
