package llm

import (
	"unicode/utf8"
)

// TokenEstimateRatio estimates ~4 characters per token (conservative estimate).
const TokenEstimateRatio = 4

// EstimateTokenCount provides a rough estimate of token count for text.
func EstimateTokenCount(text string) int {
	return utf8.RuneCountInString(text) / TokenEstimateRatio
}

// TruncateRunes cuts text to at most limit runes, appending an ellipsis when cut.
func TruncateRunes(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	if limit <= 3 {
		return string(runes[:limit])
	}
	return string(runes[:limit-3]) + "..."
}
