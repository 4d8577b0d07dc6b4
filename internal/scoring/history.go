package scoring

import (
	"math/rand"
	"time"
)

// History defaults.
const (
	DefaultHistoryPeriods = 12
	historyBaseScore      = 65
	historyStepMin        = -5
	historyStepMax        = 7
)

type HistoryPoint struct {
	Date  time.Time `json:"date"`
	Score int       `json:"score"`
}

// GenerateHistory produces a mock monthly score series: one point per month-end
// for the periods months ending at the last month-end on or before now, as a
// random walk from 65 with steps in [-5, 7], clamped to [0, 100].
// The series is illustrative only and never derived from products.
func GenerateHistory(rng *rand.Rand, now time.Time, periods int) []HistoryPoint {
	if periods <= 0 {
		return nil
	}
	end := lastMonthEnd(now)
	out := make([]HistoryPoint, periods)
	score := historyBaseScore
	for i := 0; i < periods; i++ {
		score = clamp(score+historyStepMin+rng.Intn(historyStepMax-historyStepMin+1), 0, MaxScore)
		out[i] = HistoryPoint{Date: monthEnd(end, i-periods+1), Score: score}
	}
	return out
}

// ScoreChange is the movement between the last two points, 0 when fewer exist.
func ScoreChange(h []HistoryPoint) int {
	if len(h) < 2 {
		return 0
	}
	return h[len(h)-1].Score - h[len(h)-2].Score
}

func lastMonthEnd(now time.Time) time.Time {
	y, m, d := now.Date()
	end := time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC)
	if d < end.Day() {
		end = time.Date(y, m, 0, 0, 0, 0, 0, time.UTC)
	}
	return end
}

// monthEnd shifts a month-end by offset months, staying on month-ends.
func monthEnd(end time.Time, offset int) time.Time {
	y, m, _ := end.Date()
	return time.Date(y, m+time.Month(offset)+1, 0, 0, 0, 0, 0, time.UTC)
}
