package emotion

import "strings"

// Tags is the result of tagging one turn.
type Tags struct {
	// Emotion is the first vocabulary emotion found, or empty.
	Emotion string
	// LinkedTopics are the topics cross-linked to Emotion.
	LinkedTopics []string
	// Topic is the single topic the turn is logged under, or empty.
	Topic string
}

// Tag runs both tagging stages over text.
func Tag(text string) Tags {
	lower := strings.ToLower(text)
	emotion, linked := detectEmotion(lower)
	return Tags{
		Emotion:      emotion,
		LinkedTopics: linked,
		Topic:        detectTopic(lower),
	}
}

// detectEmotion picks the first matching emotion. Topics are only scanned
// once an emotion matched, and every topic found there is linked to it.
func detectEmotion(lower string) (string, []string) {
	for _, e := range Emotions {
		if !strings.Contains(lower, e) {
			continue
		}
		var linked []string
		for _, t := range Topics {
			if strings.Contains(lower, t) {
				linked = append(linked, t)
			}
		}
		return e, linked
	}
	return "", nil
}

// detectTopic is independent of the emotion stage and stops at the first hit.
func detectTopic(lower string) string {
	for _, t := range Topics {
		if strings.Contains(lower, t) {
			return t
		}
	}
	return ""
}
