package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/easeaico/sophos/internal/storage"
	"github.com/easeaico/sophos/internal/types"
)

const (
	usersRoot     = "users"
	userIndexPath = "index/users"
)

// ErrInvalidUser is returned for user ids that cannot be used as a path segment.
var ErrInvalidUser = errors.New("invalid user id")

// Repo reads and writes UserMemoryState through a DocumentStore.
// Every decode validates shape; malformed entries are skipped.
type Repo struct {
	store DocumentStore
	now   func() time.Time
}

// NewRepo returns a Repo.
func NewRepo(store DocumentStore) *Repo {
	return &Repo{store: store, now: time.Now}
}

func userPath(userID string, parts ...string) (string, error) {
	if userID == "" || strings.ContainsAny(userID, "/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidUser, userID)
	}
	return strings.Join(append([]string{usersRoot, userID}, parts...), "/"), nil
}

type initRecord struct {
	Timestamp time.Time `json:"timestamp"`
}

// EnsureUser creates the user's root and registers it in the user index.
func (r *Repo) EnsureUser(ctx context.Context, userID string) error {
	path, err := userPath(userID, "init")
	if err != nil {
		return err
	}
	_, err = r.store.Get(ctx, path)
	if err == nil {
		return nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("failed to read user init: %w", err)
	}
	if err := r.store.Set(ctx, path, initRecord{Timestamp: r.now()}); err != nil {
		return fmt.Errorf("failed to init user: %w", err)
	}
	if err := r.store.Set(ctx, userIndexPath+"/"+userID, true); err != nil {
		return fmt.Errorf("failed to index user: %w", err)
	}
	return nil
}

// ListUsers returns every known user id, sorted.
func (r *Repo) ListUsers(ctx context.Context) ([]string, error) {
	raw, err := r.store.Get(ctx, userIndexPath)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	var index map[string]json.RawMessage
	if err := json.Unmarshal(raw, &index); err != nil {
		return nil, fmt.Errorf("failed to decode user index: %w", err)
	}
	users := make([]string, 0, len(index))
	for id := range index {
		users = append(users, id)
	}
	sort.Strings(users)
	return users, nil
}

// userDocument is the raw shape stored under users/<uid>.
type userDocument struct {
	Init           json.RawMessage `json:"init"`
	Context        json.RawMessage `json:"context"`
	Summary        json.RawMessage `json:"summary"`
	Facts          json.RawMessage `json:"facts"`
	Emotions       json.RawMessage `json:"emotions"`
	Topics         json.RawMessage `json:"topics"`
	EmotionByTopic json.RawMessage `json:"emotion_by_topic"`
	Feedback       json.RawMessage `json:"feedback"`
	Profile        json.RawMessage `json:"profile"`
	WeeklyPattern  json.RawMessage `json:"weekly_pattern"`
	LastResponse   json.RawMessage `json:"last_response"`
}

// LoadState reads the whole state of a user. A missing user yields an empty state.
func (r *Repo) LoadState(ctx context.Context, userID string) (*types.UserMemoryState, error) {
	path, err := userPath(userID)
	if err != nil {
		return nil, err
	}
	state := types.NewUserMemoryState(userID)

	raw, err := r.store.Get(ctx, path)
	if errors.Is(err, storage.ErrNotFound) {
		return state, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user state: %w", err)
	}

	var doc userDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		slog.Warn("user state has unexpected shape, using empty state", "user_id", userID, "error", err.Error())
		return state, nil
	}

	if init, ok := decodeValue[initRecord](doc.Init, userID, "init"); ok {
		state.CreatedAt = init.Timestamp
	}
	for _, e := range decodeLog(doc.Context, userID, "context", func(e types.ContextEntry) bool {
		return strings.TrimSpace(e.Text) != ""
	}) {
		e.Value.Key = e.Key
		state.RawContext = append(state.RawContext, e.Value)
	}
	if digest, ok := decodeValue[types.Digest](doc.Summary, userID, "summary"); ok && digest.Text != "" {
		state.Summary = &digest
	}
	state.Facts = decodeFacts(doc.Facts, userID)
	for _, e := range decodeLog(doc.Emotions, userID, "emotions", validEmotion) {
		state.EmotionLog = append(state.EmotionLog, e.Value)
	}
	for escaped, rawLog := range decodeGroups(doc.Topics, userID, "topics") {
		topic := unescapeSegment(escaped)
		for _, e := range decodeLog(rawLog, userID, "topics", func(e types.TopicEntry) bool {
			return e.Text != ""
		}) {
			state.TopicLog[topic] = append(state.TopicLog[topic], e.Value)
		}
	}
	for escaped, rawLog := range decodeGroups(doc.EmotionByTopic, userID, "emotion_by_topic") {
		topic := unescapeSegment(escaped)
		for _, e := range decodeLog(rawLog, userID, "emotion_by_topic", validEmotion) {
			state.EmotionByTopic[topic] = append(state.EmotionByTopic[topic], e.Value)
		}
	}
	for _, e := range decodeLog(doc.Feedback, userID, "feedback", func(e types.FeedbackEntry) bool {
		return e.Signal == types.SignalApprove || e.Signal == types.SignalDisapprove
	}) {
		state.FeedbackLog = append(state.FeedbackLog, e.Value)
	}
	if profile, ok := decodeValue[types.Profile](doc.Profile, userID, "profile"); ok && profile.Label != "" {
		state.Profile = &profile
	}
	if pattern, ok := decodeValue[types.WeeklyPattern](doc.WeeklyPattern, userID, "weekly_pattern"); ok {
		state.WeeklyPattern = &pattern
	}
	if last, ok := decodeValue[types.LastResponse](doc.LastResponse, userID, "last_response"); ok && last.Text != "" {
		state.LastResponse = &last
	}
	return state, nil
}

func validEmotion(e types.EmotionEntry) bool {
	return e.Emotion != ""
}

type keyed[T any] struct {
	Key   string
	Value T
}

// decodeLog decodes a pushed collection in key order, skipping invalid entries.
func decodeLog[T any](raw json.RawMessage, userID, section string, valid func(T) bool) []keyed[T] {
	if len(raw) == 0 {
		return nil
	}
	var entries map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		slog.Warn("section has unexpected shape, treating as empty", "user_id", userID, "section", section, "error", err.Error())
		return nil
	}

	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]keyed[T], 0, len(keys))
	for _, k := range keys {
		var v T
		if err := json.Unmarshal(entries[k], &v); err != nil || !valid(v) {
			slog.Warn("skipping malformed entry", "user_id", userID, "section", section, "key", k)
			continue
		}
		out = append(out, keyed[T]{Key: k, Value: v})
	}
	return out
}

// decodeGroups splits a topic-keyed section into its per-topic logs.
func decodeGroups(raw json.RawMessage, userID, section string) map[string]json.RawMessage {
	if len(raw) == 0 {
		return nil
	}
	var groups map[string]json.RawMessage
	if err := json.Unmarshal(raw, &groups); err != nil {
		slog.Warn("section has unexpected shape, treating as empty", "user_id", userID, "section", section, "error", err.Error())
		return nil
	}
	return groups
}

func decodeValue[T any](raw json.RawMessage, userID, section string) (T, bool) {
	var v T
	if len(raw) == 0 || string(raw) == "null" {
		return v, false
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		slog.Warn("section has unexpected shape, ignoring", "user_id", userID, "section", section, "error", err.Error())
		return v, false
	}
	return v, true
}

func unescapeSegment(s string) string {
	if u, err := url.PathUnescape(s); err == nil {
		return u
	}
	return s
}

// decodeFacts accepts both Fact objects and bare string values.
func decodeFacts(raw json.RawMessage, userID string) map[string]types.Fact {
	facts := map[string]types.Fact{}
	if len(raw) == 0 {
		return facts
	}
	var entries map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		slog.Warn("facts have unexpected shape, treating as empty", "user_id", userID, "error", err.Error())
		return facts
	}
	for escaped, value := range entries {
		key := unescapeSegment(escaped)
		var fact types.Fact
		if err := json.Unmarshal(value, &fact); err == nil && fact.Value != "" {
			facts[key] = fact
			continue
		}
		var plain string
		if err := json.Unmarshal(value, &plain); err == nil && plain != "" {
			facts[key] = types.Fact{Value: plain}
			continue
		}
		slog.Warn("skipping malformed fact", "user_id", userID, "key", key)
	}
	return facts
}

// AppendContext pushes a raw turn and returns its key.
func (r *Repo) AppendContext(ctx context.Context, userID string, entry types.ContextEntry) (string, error) {
	return r.push(ctx, userID, entry, "context")
}

// DeleteContext removes raw turns by key.
func (r *Repo) DeleteContext(ctx context.Context, userID string, keys []string) error {
	for _, key := range keys {
		path, err := userPath(userID, "context", key)
		if err != nil {
			return err
		}
		if err := r.store.Delete(ctx, path); err != nil {
			return fmt.Errorf("failed to delete context entry: %w", err)
		}
	}
	return nil
}

// SetSummary replaces the digest.
func (r *Repo) SetSummary(ctx context.Context, userID string, digest types.Digest) error {
	return r.set(ctx, userID, digest, "summary")
}

// SetFact overwrites one fact.
func (r *Repo) SetFact(ctx context.Context, userID, key string, fact types.Fact) error {
	return r.set(ctx, userID, fact, "facts", url.PathEscape(key))
}

func (r *Repo) PushEmotion(ctx context.Context, userID string, entry types.EmotionEntry) error {
	_, err := r.push(ctx, userID, entry, "emotions")
	return err
}

func (r *Repo) PushTopic(ctx context.Context, userID, topic string, entry types.TopicEntry) error {
	_, err := r.push(ctx, userID, entry, "topics", url.PathEscape(topic))
	return err
}

func (r *Repo) PushEmotionByTopic(ctx context.Context, userID, topic string, entry types.EmotionEntry) error {
	_, err := r.push(ctx, userID, entry, "emotion_by_topic", url.PathEscape(topic))
	return err
}

func (r *Repo) PushFeedback(ctx context.Context, userID string, entry types.FeedbackEntry) error {
	_, err := r.push(ctx, userID, entry, "feedback")
	return err
}

func (r *Repo) SetProfile(ctx context.Context, userID string, profile types.Profile) error {
	return r.set(ctx, userID, profile, "profile")
}

func (r *Repo) SetWeeklyPattern(ctx context.Context, userID string, pattern types.WeeklyPattern) error {
	return r.set(ctx, userID, pattern, "weekly_pattern")
}

func (r *Repo) SetLastResponse(ctx context.Context, userID string, last types.LastResponse) error {
	return r.set(ctx, userID, last, "last_response")
}

// LastResponse returns the saved last response, or nil.
func (r *Repo) LastResponse(ctx context.Context, userID string) (*types.LastResponse, error) {
	path, err := userPath(userID, "last_response")
	if err != nil {
		return nil, err
	}
	raw, err := r.store.Get(ctx, path)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read last response: %w", err)
	}
	last, ok := decodeValue[types.LastResponse](raw, userID, "last_response")
	if !ok {
		return nil, nil
	}
	return &last, nil
}

func (r *Repo) set(ctx context.Context, userID string, value any, parts ...string) error {
	path, err := userPath(userID, parts...)
	if err != nil {
		return err
	}
	if err := r.store.Set(ctx, path, value); err != nil {
		return fmt.Errorf("failed to write %s: %w", parts[0], err)
	}
	return nil
}

func (r *Repo) push(ctx context.Context, userID string, value any, parts ...string) (string, error) {
	path, err := userPath(userID, parts...)
	if err != nil {
		return "", err
	}
	key, err := r.store.Push(ctx, path, value)
	if err != nil {
		return "", fmt.Errorf("failed to append %s: %w", parts[0], err)
	}
	return key, nil
}
