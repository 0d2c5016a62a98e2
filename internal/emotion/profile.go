package emotion

import "github.com/easeaico/sophos/internal/types"

const (
	ProfileEmpathetic = "empathetic-sensitive"
	ProfileStoic      = "stoic-rational"
	ProfileVisionary  = "visionary-reflective"
	ProfileBalanced   = "balanced"
)

var profileNames = map[string]string{
	ProfileEmpathetic: "sensível empático",
	ProfileStoic:      "estoico racional",
	ProfileVisionary:  "visionário reflexivo",
	ProfileBalanced:   "equilibrado",
}

// DisplayName returns the Portuguese name shown to users.
func DisplayName(label string) string {
	if name, ok := profileNames[label]; ok {
		return name
	}
	if label == "" {
		return "desconhecido"
	}
	return label
}

// Classify derives a profile label. The first matching rule wins.
func Classify(emotions []types.EmotionEntry, byTopic map[string][]types.EmotionEntry) string {
	freq := Count(emotions)
	switch {
	case freq[EmotionSad] > freq[EmotionHappy]:
		return ProfileEmpathetic
	case freq[EmotionFocused] > freq[EmotionTired]:
		return ProfileStoic
	case len(byTopic[TopicSpirituality]) > len(byTopic[TopicWork]):
		return ProfileVisionary
	default:
		return ProfileBalanced
	}
}

// Count returns occurrences per emotion.
func Count(entries []types.EmotionEntry) map[string]int {
	freq := make(map[string]int)
	for _, e := range entries {
		freq[e.Emotion]++
	}
	return freq
}
