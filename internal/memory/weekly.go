package memory

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/easeaico/sophos/internal/metrics"
	"github.com/easeaico/sophos/internal/types"
)

const weeklyWindowDays = 7

// WeeklyAggregator recomputes every user's weekly pattern snapshot.
type WeeklyAggregator struct {
	repo        *Repo
	loc         *time.Location
	concurrency int
	now         func() time.Time
}

// NewWeeklyAggregator returns a WeeklyAggregator. Windows are computed in loc.
func NewWeeklyAggregator(repo *Repo, loc *time.Location, concurrency int) *WeeklyAggregator {
	if loc == nil {
		loc = time.UTC
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	return &WeeklyAggregator{repo: repo, loc: loc, concurrency: concurrency, now: time.Now}
}

// WeeklyReport summarizes one aggregation run.
type WeeklyReport struct {
	Users  int
	Failed int
}

// Run aggregates all known users. A failing user is logged and does not
// stop the others.
func (a *WeeklyAggregator) Run(ctx context.Context) (WeeklyReport, error) {
	users, err := a.repo.ListUsers(ctx)
	if err != nil {
		return WeeklyReport{}, err
	}

	now := a.now()
	failed := make([]bool, len(users))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i, userID := range users {
		g.Go(func() error {
			if err := a.RunUser(gctx, userID, now); err != nil {
				failed[i] = true
				metrics.WeeklyRuns.WithLabelValues("error").Inc()
				slog.Error("weekly aggregation failed", "user_id", userID, "error", err.Error())
				return nil
			}
			metrics.WeeklyRuns.WithLabelValues("ok").Inc()
			return nil
		})
	}
	_ = g.Wait()

	report := WeeklyReport{Users: len(users)}
	for _, f := range failed {
		if f {
			report.Failed++
		}
	}
	slog.Info("weekly aggregation finished", "users", report.Users, "failed", report.Failed)
	return report, ctx.Err()
}

// RunUser recomputes and replaces one user's snapshot.
func (a *WeeklyAggregator) RunUser(ctx context.Context, userID string, now time.Time) error {
	state, err := a.repo.LoadState(ctx, userID)
	if err != nil {
		return err
	}
	pattern := ComputeWeeklyPattern(state, now, a.loc)
	return a.repo.SetWeeklyPattern(ctx, userID, pattern)
}

// ComputeWeeklyPattern counts emotions and topics from the start of the day
// seven days before now up to now. The dominant emotion is the most frequent
// one; ties go to the emotion seen first.
func ComputeWeeklyPattern(state *types.UserMemoryState, now time.Time, loc *time.Location) types.WeeklyPattern {
	local := now.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, -weeklyWindowDays)

	pattern := types.WeeklyPattern{
		WindowStart:   start,
		WindowEnd:     local,
		EmotionCounts: map[string]int{},
		TopicCounts:   map[string]int{},
	}

	var order []string
	for _, e := range state.EmotionLog {
		if e.Timestamp.Before(start) {
			continue
		}
		if pattern.EmotionCounts[e.Emotion] == 0 {
			order = append(order, e.Emotion)
		}
		pattern.EmotionCounts[e.Emotion]++
	}
	best := 0
	for _, emotion := range order {
		if n := pattern.EmotionCounts[emotion]; n > best {
			best = n
			pattern.DominantEmotion = emotion
		}
	}

	for topic, entries := range state.TopicLog {
		for _, e := range entries {
			if !e.Timestamp.Before(start) {
				pattern.TopicCounts[topic]++
			}
		}
	}
	return pattern
}
