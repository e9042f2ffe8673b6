// Package reference rewrites bare pronouns in a follow-up message against the
// topic of earlier turns.
package reference

import (
	"regexp"
	"strings"
)

// Turn is a prior message.
type Turn struct {
	Role    string
	Content string
}

// Result describes a resolution attempt.
type Result struct {
	Original string
	Resolved string
	Referent string
	Pronoun  string
	Changed  bool
}

// topicNouns are the renovation nouns a pronoun can point back to.
var topicNouns = map[string]struct{}{
	"kitchen": {}, "bathroom": {}, "bedroom": {}, "basement": {}, "attic": {}, "garage": {}, "deck": {},
	"patio": {}, "living room": {}, "room": {}, "wall": {}, "ceiling": {}, "floor": {}, "flooring": {},
	"roof": {}, "window": {}, "door": {}, "stairs": {}, "closet": {}, "cabinet": {}, "countertop": {},
	"counter": {}, "backsplash": {}, "island": {}, "sink": {}, "faucet": {}, "toilet": {}, "shower": {},
	"tub": {}, "bathtub": {}, "vanity": {}, "tile": {}, "grout": {}, "paint": {}, "wallpaper": {},
	"drywall": {}, "carpet": {}, "hardwood": {}, "laminate": {}, "sofa": {}, "couch": {}, "bed": {},
	"table": {}, "chair": {}, "desk": {}, "dresser": {}, "bookshelf": {}, "refrigerator": {}, "fridge": {},
	"dishwasher": {}, "oven": {}, "range": {}, "stove": {}, "microwave": {}, "washer": {}, "dryer": {},
	"water heater": {}, "furnace": {}, "fireplace": {}, "light": {}, "fixture": {}, "fan": {},
	"outlet": {}, "insulation": {}, "fence": {}, "siding": {}, "gutter": {}, "estimate": {}, "quote": {},
	"design": {}, "plan": {},
}

// nonModifiers end a noun phrase when walking left from the noun.
var nonModifiers = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "my": {}, "our": {}, "your": {}, "his": {}, "her": {}, "their": {},
	"its": {}, "this": {}, "that": {}, "these": {}, "those": {}, "some": {}, "any": {}, "each": {},
	"to": {}, "for": {}, "in": {}, "on": {}, "of": {}, "with": {}, "at": {}, "from": {}, "about": {},
	"into": {}, "and": {}, "or": {}, "but": {}, "is": {}, "are": {}, "was": {}, "be": {}, "i": {},
	"you": {}, "we": {}, "it": {}, "me": {}, "paint": {}, "repaint": {}, "install": {}, "replace": {},
	"buy": {}, "want": {}, "need": {}, "like": {}, "looking": {}, "get": {}, "fix": {}, "remove": {},
	"add": {}, "change": {}, "update": {}, "redo": {}, "recommend": {}, "cost": {}, "much": {}, "how": {},
	"what": {}, "which": {}, "would": {}, "could": {}, "should": {}, "will": {}, "can": {}, "do": {},
	"does": {}, "new": {}, "bought": {}, "picked": {}, "chose": {}, "use": {}, "using": {}, "have": {},
	"has": {}, "had": {}, "got": {}, "found": {}, "saw": {}, "love": {}, "hate": {}, "considering": {},
	"thinking": {}, "planning": {}, "i'm": {}, "we're": {},
}

// roomNouns may modify another noun, as in "kitchen cabinets".
var roomNouns = map[string]struct{}{
	"kitchen": {}, "bathroom": {}, "bedroom": {}, "basement": {}, "attic": {}, "garage": {}, "patio": {}, "deck": {},
}

// pronounPattern matches the pronouns we resolve. "that" counts only when it
// ends a clause or is followed by a verb-like word.
var pronounPattern = regexp.MustCompile(`(?i)\b(this one|that one|it|that)\b`)

var thatFollowers = map[string]struct{}{
	"": {}, "is": {}, "was": {}, "will": {}, "would": {}, "cost": {}, "costs": {}, "fit": {}, "fits": {},
	"work": {}, "works": {}, "take": {}, "takes": {}, "look": {}, "looks": {}, "be": {}, "need": {}, "needs": {},
}

// An "it" is a placeholder subject rather than a reference when a
// to-infinitive follows it in the clause, as in "would it cost to paint" or
// "is it possible to".
var (
	fillerNext = map[string]struct{}{
		"cost": {}, "costs": {}, "take": {}, "takes": {}, "be": {}, "is": {}, "was": {}, "'s": {},
		"would": {}, "will": {}, "might": {}, "could": {}, "should": {}, "makes": {}, "seems": {},
	}
	fillerPrev = map[string]struct{}{
		"is": {}, "was": {}, "isn't": {}, "wasn't": {}, "does": {}, "did": {}, "would": {}, "will": {},
	}
	infinitivePattern = regexp.MustCompile(`(?i)\bto\b`)
)

var wordPattern = regexp.MustCompile(`[a-zA-Z0-9][a-zA-Z0-9'\-]*`)

const maxModifiers = 2

// Resolve rewrites the first bare pronoun in message using the most recent
// topic from history. User turns are searched first, newest to oldest, then
// assistant turns. Messages that already name a topic before the pronoun, or
// later in the pronoun's clause, are left alone.
func Resolve(message string, history []Turn) Result {
	res := Result{Original: message, Resolved: message}

	loc, pronoun := findPronoun(message)
	if loc == nil {
		return res
	}
	if lastNounPhrase(message[:loc[0]]) != "" || lastNounPhrase(clause(message[loc[1]:])) != "" {
		return res
	}

	referent := referentFrom(history)
	if referent == "" {
		return res
	}

	res.Pronoun = strings.ToLower(pronoun)
	res.Referent = referent
	res.Resolved = message[:loc[0]] + "the " + referent + message[loc[1]:]
	res.Changed = true
	return res
}

func findPronoun(message string) ([]int, string) {
	for _, loc := range pronounPattern.FindAllStringIndex(message, -1) {
		word := message[loc[0]:loc[1]]
		if strings.EqualFold(word, "that") {
			next := strings.ToLower(firstWord(message[loc[1]:]))
			if _, ok := thatFollowers[next]; !ok {
				continue
			}
		}
		if strings.EqualFold(word, "it") && isFiller(message[:loc[0]], message[loc[1]:]) {
			continue
		}
		return loc, word
	}
	return nil, ""
}

func isFiller(before, after string) bool {
	if !infinitivePattern.MatchString(clause(after)) {
		return false
	}
	next := strings.ToLower(firstWord(after))
	if strings.HasPrefix(after, "'s") {
		next = "'s"
	}
	if _, ok := fillerNext[next]; ok {
		return true
	}
	_, ok := fillerPrev[lastWord(before)]
	return ok
}

// clause returns s up to the first clause-ending punctuation mark.
func clause(s string) string {
	if i := strings.IndexAny(s, ".,;:?!"); i >= 0 {
		return s[:i]
	}
	return s
}

func lastWord(s string) string {
	words := wordPattern.FindAllString(strings.ToLower(s), -1)
	if len(words) == 0 {
		return ""
	}
	return words[len(words)-1]
}

func firstWord(s string) string {
	trimmed := strings.TrimLeft(s, " \t")
	if trimmed == "" {
		return ""
	}
	// Punctuation directly after the pronoun ends the clause.
	if !isWordStart(trimmed[0]) {
		return ""
	}
	return wordPattern.FindString(trimmed)
}

func isWordStart(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

func referentFrom(history []Turn) string {
	for _, role := range []string{"user", "assistant"} {
		for i := len(history) - 1; i >= 0; i-- {
			if !strings.EqualFold(history[i].Role, role) {
				continue
			}
			if phrase := lastNounPhrase(history[i].Content); phrase != "" {
				return phrase
			}
		}
	}
	return ""
}

// lastNounPhrase returns the last topic noun in text with up to two
// modifiers before it, or "".
func lastNounPhrase(text string) string {
	words := wordPattern.FindAllString(strings.ToLower(text), -1)
	for i := len(words) - 1; i >= 0; i-- {
		nounStart, nounEnd, ok := matchNoun(words, i)
		if !ok {
			continue
		}
		start := nounStart
		for j := nounStart - 1; j >= 0 && nounStart-j <= maxModifiers; j-- {
			if _, stop := nonModifiers[words[j]]; stop {
				break
			}
			_, isNoun := topicNouns[singular(words[j])]
			_, isRoom := roomNouns[words[j]]
			if isNoun && !isRoom {
				break
			}
			start = j
		}
		return strings.Join(words[start:nounEnd+1], " ")
	}
	return ""
}

// matchNoun reports whether words[end] ends a topic noun, handling two-word
// nouns such as "living room".
func matchNoun(words []string, end int) (int, int, bool) {
	if end > 0 {
		if _, ok := topicNouns[words[end-1]+" "+singular(words[end])]; ok {
			return end - 1, end, true
		}
	}
	if _, ok := topicNouns[words[end]]; ok {
		return end, end, true
	}
	if _, ok := topicNouns[singular(words[end])]; ok {
		return end, end, true
	}
	return 0, 0, false
}

func singular(w string) string {
	switch {
	case strings.HasSuffix(w, "ies") && len(w) > 4:
		return w[:len(w)-3] + "y"
	case strings.HasSuffix(w, "shes"), strings.HasSuffix(w, "ches"), strings.HasSuffix(w, "xes"):
		return w[:len(w)-2]
	case strings.HasSuffix(w, "s") && !strings.HasSuffix(w, "ss") && len(w) > 3:
		return w[:len(w)-1]
	}
	return w
}
