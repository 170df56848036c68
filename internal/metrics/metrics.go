// Package metrics holds the pure derivation functions over the wellness
// ledgers. Nothing here touches storage or the wall clock: callers pass the
// ledgers and the instant of computation, which keeps the derived values
// deterministic and testable.
package metrics

import (
	"math"
	"sort"
	"time"

	"mindkeep/internal/config"
	"mindkeep/internal/domain"
)

// Streaks derives the current and longest consecutive-day streaks from the
// mood ledger. Continuity is keyed by distinct UTC calendar day, so several
// entries on the same day count as one step. priorLongest is the previously
// stored longest streak; the returned longest never falls below it, which
// preserves historical achievement across deletions.
func Streaks(entries []domain.MoodEntry, priorLongest int, now time.Time) (current, longest int) {
	days := distinctDaysDesc(entries)
	if len(days) == 0 {
		return 0, priorLongest
	}

	today := dayOf(now)
	for i, d := range days {
		if daysBetween(d, today) != i {
			break
		}
		current++
	}

	run, maxRun := 1, 1
	for i := 1; i < len(days); i++ {
		if daysBetween(days[i], days[i-1]) == 1 {
			run++
		} else {
			run = 1
		}
		if run > maxRun {
			maxRun = run
		}
	}

	longest = maxRun
	if current > longest {
		longest = current
	}
	if priorLongest > longest {
		longest = priorLongest
	}
	return current, longest
}

// Score composes the bounded wellness score from the three ledgers.
//
// The mood component replaces part of the neutral base: over the most recent
// window of entries it averages mean(mood), mean(energy) and mean(11-stress),
// scales the result to 0-100 and blends it against the base at the configured
// weight. Activity and goal components are additive capped bonuses, so no
// single dimension can dominate. The result is clamped to [0,100] and rounded
// to the nearest integer.
func Score(entries []domain.MoodEntry, activities []domain.Activity, goals []domain.Goal, s config.Scoring, now time.Time) int {
	score := s.Base

	if len(entries) > 0 {
		recent := recentEntries(entries, s.MoodWindowEntries)
		var moodSum, energySum, calmSum float64
		for _, e := range recent {
			moodSum += float64(e.Mood)
			energySum += float64(e.Energy)
			calmSum += float64(11 - e.Stress)
		}
		n := float64(len(recent))
		meanScaled := (moodSum/n + energySum/n + calmSum/n) / 3 * 10
		score = meanScaled*s.MoodWeight + s.Base*(1-s.MoodWeight)
	}

	cutoff := now.AddDate(0, 0, -s.ActivityWindowDays)
	recentActivities := 0
	for _, a := range activities {
		if a.CompletedAt.After(cutoff) {
			recentActivities++
		}
	}
	score += capped(recentActivities*s.ActivityPoints, s.ActivityCap)

	completedGoals := 0
	for _, g := range goals {
		if g.IsCompleted {
			completedGoals++
		}
	}
	score += capped(completedGoals*s.GoalPoints, s.GoalCap)

	rounded := int(math.Round(score))
	if rounded < 0 {
		return 0
	}
	if rounded > 100 {
		return 100
	}
	return rounded
}

// ClampScale clamps v to the inclusive [lo,hi] range. Used for the 1-10 mood
// scales and the 1-5 activity rating.
func ClampScale(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampProgress clamps v to [0, target].
func ClampProgress(v, target float64) float64 {
	if v < 0 {
		return 0
	}
	if v > target {
		return target
	}
	return v
}

func capped(points, limit int) float64 {
	if points > limit {
		points = limit
	}
	return float64(points)
}

func recentEntries(entries []domain.MoodEntry, window int) []domain.MoodEntry {
	sorted := make([]domain.MoodEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Timestamp.After(sorted[j].Timestamp) })
	if window > 0 && len(sorted) > window {
		sorted = sorted[:window]
	}
	return sorted
}

// distinctDaysDesc reduces the ledger to unique UTC calendar days, most
// recent first. De-duplicating before the streak walk keeps a second entry
// on the same day from breaking or inflating the count.
func distinctDaysDesc(entries []domain.MoodEntry) []time.Time {
	seen := map[time.Time]bool{}
	var days []time.Time
	for _, e := range entries {
		d := dayOf(e.Timestamp)
		if !seen[d] {
			seen[d] = true
			days = append(days, d)
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i].After(days[j]) })
	return days
}

func dayOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// daysBetween returns the whole days from a to b; both are day-truncated.
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}
