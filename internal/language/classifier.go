package language

import (
	"strings"
	"sync"
	"unicode"
)

// Scoring weights. Arabic script is near-unambiguous so it scores highest
// per token; digits and dictionary hits mark Arabizi; plain Latin tokens
// lean English.
const (
	arabicScriptWeight  = 3.0
	arabiziTokenWeight  = 2.0
	englishTokenWeight  = 1.0
	emojiBonus          = 0.25
	historyTurnWeight   = 1.0
	arabiziHistoryBoost = 1.5
	incumbencyBonus     = 1.0

	historyWindow = 5

	shortInputTokens     = 3
	shortInputConfidence = 0.70
	longInputConfidence  = 0.55
	shortInputMargin     = 2.0
	longInputMargin      = 1.0
)

// Classifier scores free text against the three language buckets.
// It is stateless apart from the out-of-dictionary review list and safe
// for concurrent use.
type Classifier struct {
	mu     sync.Mutex
	review map[string]struct{}
}

// NewClassifier creates a classifier with an empty review list.
func NewClassifier() *Classifier {
	return &Classifier{review: make(map[string]struct{})}
}

// Classify determines the session language for text. lastKnown is the
// sender's most recent stable language (empty if unknown); recent holds
// the per-turn classifications of the sender's last turns, most recent
// last. Ambiguous input falls back to lastKnown; a switch to a new
// language additionally requires the previous two turns to already be
// classified as that language (hysteresis against flapping).
func (c *Classifier) Classify(text string, lastKnown Language, recent []Language) Language {
	top := c.ClassifyTurn(text, lastKnown, recent)

	// Honor a switch away from the incumbent only after two stable turns
	// of the new language.
	fallback := Normalize(lastKnown)
	if top != fallback && !stableTail(recent, top, 2) {
		return fallback
	}
	return top
}

// ClassifyTurn scores a single turn without the switch hysteresis. This
// is what gets recorded per turn; Classify layers the 2-turn stability
// rule over it.
func (c *Classifier) ClassifyTurn(text string, lastKnown Language, recent []Language) Language {
	fallback := Normalize(lastKnown)

	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return fallback
	}

	// Pure punctuation/emoji input carries no lexical signal.
	if !hasLetterOrDigit(text) {
		return fallback
	}

	if len(tokens) == 1 {
		if lang, ok := shortWords[strings.ToLower(tokens[0])]; ok {
			return lang
		}
		return fallback
	}

	scores := map[Language]float64{}

	for _, tok := range tokens {
		lower := strings.ToLower(strings.TrimFunc(tok, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		}))
		if lower == "" {
			if containsEmoji(tok) {
				scores[fallback] += emojiBonus
			}
			continue
		}

		switch {
		case containsArabicScript(lower):
			scores[Arabic] += arabicScriptWeight
		case arabiziKeywords[lower] || containsDigit(lower):
			scores[Arabizi] += arabiziTokenWeight
		case isLatinAlpha(lower):
			scores[English] += englishTokenWeight
			if _, known := shortWords[lower]; !known && !arabiziKeywords[lower] {
				c.recordForReview(lower)
			}
		}
		if containsEmoji(tok) {
			scores[fallback] += emojiBonus
		}
	}

	// History bias: the last few turns pull toward their language.
	hist := recent
	if len(hist) > historyWindow {
		hist = hist[len(hist)-historyWindow:]
	}
	for _, lang := range hist {
		if !Valid(lang) {
			continue
		}
		w := historyTurnWeight
		if lang == Arabizi {
			w *= arabiziHistoryBoost
		}
		scores[lang] += w
	}
	scores[fallback] += incumbencyBonus

	top, second, total := rank(scores)
	if total == 0 {
		return fallback
	}

	minConfidence := longInputConfidence
	margin := longInputMargin
	if len(tokens) < shortInputTokens {
		minConfidence = shortInputConfidence
		margin = shortInputMargin
	}

	if scores[top]/total < minConfidence {
		return fallback
	}
	if scores[top]-scores[second] <= margin {
		return fallback
	}

	return top
}

// ReviewTokens returns a snapshot of Latin tokens seen in neither the
// short-word table nor the Arabizi dictionary, for offline lexicon review.
func (c *Classifier) ReviewTokens() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.review))
	for tok := range c.review {
		out = append(out, tok)
	}
	return out
}

func (c *Classifier) recordForReview(tok string) {
	c.mu.Lock()
	c.review[tok] = struct{}{}
	c.mu.Unlock()
}

// rank returns the best and second-best languages plus the score total.
func rank(scores map[Language]float64) (top, second Language, total float64) {
	for _, lang := range []Language{English, Arabic, Arabizi} {
		s := scores[lang]
		total += s
		if top == "" || s > scores[top] {
			second = top
			top = lang
		} else if second == "" || s > scores[second] {
			second = lang
		}
	}
	return top, second, total
}

// stableTail reports whether the last n entries of recent all equal lang.
func stableTail(recent []Language, lang Language, n int) bool {
	if len(recent) < n {
		return false
	}
	for _, l := range recent[len(recent)-n:] {
		if l != lang {
			return false
		}
	}
	return true
}

func containsArabicScript(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Arabic, r) {
			return true
		}
	}
	return false
}

func containsDigit(s string) bool {
	for _, r := range s {
		if r >= '0' && r <= '9' {
			return true
		}
	}
	return false
}

func isLatinAlpha(s string) bool {
	for _, r := range s {
		if !unicode.Is(unicode.Latin, r) {
			return false
		}
	}
	return s != ""
}

func containsEmoji(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.So, r) || (r >= 0x1F300 && r <= 0x1FAFF) {
			return true
		}
	}
	return false
}

func hasLetterOrDigit(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
