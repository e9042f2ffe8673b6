package intent

import "strings"

// Rule maps a keyword vocabulary to one intent.
type Rule struct {
	Intent   Intent
	Keywords []string
}

// DefaultRules is evaluated top to bottom and the first match wins, so
// ambiguity is settled by position rather than by how many keywords hit.
var DefaultRules = []Rule{
	{Intent: PDFRequest, Keywords: []string{"pdf", "export", "printable", "print this", "download a report", "download the report"}},
	{Intent: DesignTransformation, Keywords: []string{"transform", "redesign this", "redesign my", "restyle", "make this room look", "make my room look", "edit this photo", "in this photo", "from my photo", "change the style"}},
	{Intent: DesignIdea, Keywords: []string{"show me", "design idea", "inspiration", "visualize", "what would it look like", "mood board", "design"}},
	{Intent: CostEstimate, Keywords: []string{"cost", "budget", "price", "how much", "estimate", "quote", "afford", "expensive"}},
	{Intent: ProductRecommendation, Keywords: []string{"recommend", "product", "which brand", "where can i buy", "where to buy", "will it fit", "fit in my", "buy a", "shopping for"}},
	{Intent: DIYGuide, Keywords: []string{"how do i", "how to", "step by step", "step-by-step", "diy", "instructions", "tutorial", "myself", "guide"}},
	{Intent: SafetyCheck, Keywords: []string{"safe", "hazard", "asbestos", "lead paint", "permit", "building code", "code requirement", "ventilation"}},
	{Intent: Troubleshooting, Keywords: []string{"leak", "broken", "not working", "doesn't work", "won't", "crack", "mold", "repair", "fix", "troubleshoot", "problem", "squeak", "clog"}},
	{Intent: RenovationWorkflow, Keywords: []string{"renovation plan", "plan my renovation", "plan a renovation", "where do i start", "where should i start", "next step", "timeline", "phase", "project plan", "what comes next", "get started"}},
	{Intent: GeneralChat, Keywords: []string{"hello", "hey there", "good morning", "good evening", "thanks", "thank you", "who are you"}},
}

// MatchKeywords applies rules in order and returns the first hit.
func MatchKeywords(rules []Rule, message string) (Intent, string, bool) {
	lower := strings.ToLower(message)
	for _, rule := range rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(lower, kw) {
				return rule.Intent, kw, true
			}
		}
	}
	return "", "", false
}
