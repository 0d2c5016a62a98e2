// Package emotion tags turns with emotions and topics and classifies user profiles.
package emotion

// Emotions is the emotion vocabulary in match priority order.
var Emotions = []string{"ansioso", "animado", "cansado", "focado", "triste", "feliz", "nervoso", "motivado"}

// Topics is the topic vocabulary in match priority order.
var Topics = []string{"investimento", "treino", "relacionamento", "espiritualidade", "saúde", "trabalho"}

const (
	EmotionSad     = "triste"
	EmotionHappy   = "feliz"
	EmotionFocused = "focado"
	EmotionTired   = "cansado"

	TopicSpirituality = "espiritualidade"
	TopicWork         = "trabalho"
)

// IsTopic reports whether topic is in the vocabulary.
func IsTopic(topic string) bool {
	for _, t := range Topics {
		if t == topic {
			return true
		}
	}
	return false
}
