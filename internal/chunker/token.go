package chunker

import "strings"

// EstimateTokens approximates a model token count from the word count.
// It is used to keep LLM requests inside a provider's context budget.
func EstimateTokens(text string) int {
	words := len(strings.Fields(text))
	if words == 0 {
		return 0
	}
	// Roughly 1.33 tokens per English word.
	tokens := int(float64(words) * 1.33)
	if tokens < 1 {
		tokens = 1
	}
	return tokens
}
