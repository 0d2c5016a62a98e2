package types

import "time"

// Signal is the user's reaction to a generated response.
type Signal string

const (
	SignalApprove    Signal = "approve"
	SignalDisapprove Signal = "disapprove"
)

// ContextEntry is one raw turn kept in the short-term buffer.
type ContextEntry struct {
	// Key is the store key of the entry; insertion order follows key order.
	Key       string    `json:"-"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Digest is the rolling compaction of evicted raw turns.
type Digest struct {
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Fact is the stored value of one remembered key.
type Fact struct {
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EmotionEntry records one detected emotion.
type EmotionEntry struct {
	Emotion   string    `json:"emotion"`
	Timestamp time.Time `json:"timestamp"`
}

// TopicEntry records one message logged under a topic.
type TopicEntry struct {
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// FeedbackEntry is an approval signal attributed to a response.
type FeedbackEntry struct {
	Kind      string    `json:"kind"`
	Signal    Signal    `json:"signal"`
	Response  string    `json:"response"`
	Timestamp time.Time `json:"timestamp"`
}

// Profile is the cached behavioral classification.
type Profile struct {
	Label     string    `json:"label"`
	Timestamp time.Time `json:"timestamp"`
}

// WeeklyPattern is the periodic snapshot of a user's trailing week.
type WeeklyPattern struct {
	WindowStart     time.Time      `json:"window_start"`
	WindowEnd       time.Time      `json:"window_end"`
	EmotionCounts   map[string]int `json:"emotion_counts"`
	TopicCounts     map[string]int `json:"topic_counts"`
	DominantEmotion string         `json:"dominant_emotion,omitempty"`
}

// LastResponse is the most recent generated text, kept for feedback attribution.
type LastResponse struct {
	Kind      string    `json:"kind"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// UserMemoryState is everything remembered about one user.
type UserMemoryState struct {
	UserID         string                    `json:"user_id"`
	CreatedAt      time.Time                 `json:"created_at"`
	RawContext     []ContextEntry            `json:"raw_context"`
	Summary        *Digest                   `json:"summary,omitempty"`
	Facts          map[string]Fact           `json:"facts"`
	EmotionLog     []EmotionEntry            `json:"emotion_log"`
	TopicLog       map[string][]TopicEntry   `json:"topic_log"`
	EmotionByTopic map[string][]EmotionEntry `json:"emotion_by_topic"`
	FeedbackLog    []FeedbackEntry           `json:"feedback_log"`
	Profile        *Profile                  `json:"profile,omitempty"`
	WeeklyPattern  *WeeklyPattern            `json:"weekly_pattern,omitempty"`
	LastResponse   *LastResponse             `json:"last_response,omitempty"`
}

// NewUserMemoryState returns a state with every subsection initialized empty.
func NewUserMemoryState(userID string) *UserMemoryState {
	return &UserMemoryState{
		UserID:         userID,
		RawContext:     []ContextEntry{},
		Facts:          map[string]Fact{},
		EmotionLog:     []EmotionEntry{},
		TopicLog:       map[string][]TopicEntry{},
		EmotionByTopic: map[string][]EmotionEntry{},
		FeedbackLog:    []FeedbackEntry{},
	}
}

// FactValues flattens Facts to key -> value.
func (s *UserMemoryState) FactValues() map[string]string {
	values := make(map[string]string, len(s.Facts))
	for k, f := range s.Facts {
		values[k] = f.Value
	}
	return values
}
