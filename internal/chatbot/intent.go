package chatbot

import "github.com/Veraticus/spicebot/internal/model"

// Confidence scores reported by Classify.
const (
	ConfidenceStrong   = 0.9
	ConfidenceMatch    = 0.8
	ConfidenceFallback = 0.5
)

// Classify returns the first intent, in registry order, with a pattern that
// matches the message. Confidence is ConfidenceStrong when two or more of that
// intent's patterns match. Messages nothing matches are general queries.
func (p *Parser) Classify(message string) (model.Intent, float64) {
	text := normalize(message)
	if text == "" {
		return model.IntentGeneralQuery, ConfidenceFallback
	}

	for _, ci := range p.intents {
		matches := 0
		for _, re := range ci.patterns {
			if re.MatchString(text) {
				matches++
			}
		}
		switch {
		case matches >= 2:
			return ci.intent, ConfidenceStrong
		case matches == 1:
			return ci.intent, ConfidenceMatch
		}
	}

	return model.IntentGeneralQuery, ConfidenceFallback
}
