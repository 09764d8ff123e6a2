package llm

import (
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

// Provider constants for LLM provider selection.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Config holds LLM client configuration.
type Config struct {
	Provider string // "openai" or "anthropic"
	APIKey   string // Required: API key for the provider
	BaseURL  string // Optional: custom API endpoint
	Model    string // Model name (e.g., "gpt-4.1", "claude-sonnet-4-5")
}

var (
	codeFenceRegex = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\n?```")
	objectRegex    = regexp.MustCompile(`(?s)\{.*\}`)
)

// ExtractJSON returns the JSON object embedded in a model reply.
// It accepts bare JSON, fenced ```json blocks, and prose around a single object.
// Returns ok=false when no valid JSON object can be found.
func ExtractJSON(text string) (string, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", false
	}
	if gjson.Valid(trimmed) {
		return trimmed, true
	}

	if m := codeFenceRegex.FindStringSubmatch(trimmed); len(m) == 2 {
		inner := strings.TrimSpace(m[1])
		if gjson.Valid(inner) {
			return inner, true
		}
		trimmed = inner
	}

	if obj := objectRegex.FindString(trimmed); obj != "" && gjson.Valid(obj) {
		return obj, true
	}
	return "", false
}
