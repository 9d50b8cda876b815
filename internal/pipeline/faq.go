package pipeline

import "github.com/nextlevelbuilder/shopchat/internal/store"

// faqMatchThreshold is the minimum word-overlap score for an FAQ to match.
const faqMatchThreshold = 0.5

// MatchFAQ scores every FAQ question against the message by word overlap:
// |message words ∩ question words| / |question words|. The highest-scoring
// FAQ wins if its score reaches the threshold.
func MatchFAQ(message string, faqs []store.FAQ) (store.FAQ, float64, bool) {
	msgWords := WordSet(Normalize(message))

	var best store.FAQ
	bestScore := 0.0
	for _, f := range faqs {
		qWords := WordSet(Normalize(f.Question))
		if len(qWords) == 0 {
			continue
		}
		overlap := 0
		for w := range qWords {
			if _, ok := msgWords[w]; ok {
				overlap++
			}
		}
		score := float64(overlap) / float64(len(qWords))
		if score > bestScore {
			best = f
			bestScore = score
		}
	}

	if bestScore >= faqMatchThreshold {
		return best, bestScore, true
	}
	return store.FAQ{}, bestScore, false
}
