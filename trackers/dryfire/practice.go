package dryfire

import (
	"math/rand/v2"
	"slices"
	"time"
)

// ChaosShots is the number of distraction shots played per repetition.
const ChaosShots = 6

const (
	chaosMargin   = 500 * time.Millisecond
	minStartDelay = 5 * time.Second
	maxStartDelay = 10 * time.Second
)

// Source yields uniformly distributed values in [0, 1). *rand.Rand
// satisfies it.
type Source interface {
	Float64() float64
}

type globalSource struct{}

func (globalSource) Float64() float64 { return rand.Float64() }

// Stats summarizes the graded shots of a session.
type Stats struct {
	Total   int     `json:"total"`
	Hit     int     `json:"hit"`
	Slow    int     `json:"slow"`
	Missed  int     `json:"missed"`
	HitRate float64 `json:"hitRate"`
}

// SessionStats counts graded shots. Ungraded shots are left out of the total.
func SessionStats(session Session) Stats {
	var stats Stats
	for _, shot := range session.Shots {
		if shot.Result == nil {
			continue
		}
		stats.Total++
		switch *shot.Result {
		case ResultHit:
			stats.Hit++
		case ResultSlow:
			stats.Slow++
		case ResultMiss:
			stats.Missed++
		}
	}
	if stats.Total > 0 {
		stats.HitRate = float64(stats.Hit) / float64(stats.Total)
	}
	return stats
}

// ChaosSchedule returns when, after the start signal, each distraction shot
// of a repetition fires. Shots land between half a second after the start
// and half a second before the par time; par times too short for that get
// none. The offsets are sorted.
func ChaosSchedule(parTime float64, src Source) []time.Duration {
	end := time.Duration(parTime*float64(time.Second)) - chaosMargin
	window := end - chaosMargin
	if window <= 0 {
		return nil
	}
	if src == nil {
		src = globalSource{}
	}
	offsets := make([]time.Duration, ChaosShots)
	for i := range offsets {
		offsets[i] = chaosMargin + time.Duration(src.Float64()*float64(window))
	}
	slices.Sort(offsets)
	return offsets
}

// StartDelay returns the random wait before the start signal of a
// repetition, between five and ten seconds.
func StartDelay(src Source) time.Duration {
	if src == nil {
		src = globalSource{}
	}
	return minStartDelay + time.Duration(src.Float64()*float64(maxStartDelay-minStartDelay))
}

// FormatSessionDate renders a session date as M/d/yyyy h:mm AM in loc, or
// returns it unchanged when it cannot be parsed. A nil loc means local time.
func FormatSessionDate(value string, loc *time.Location) string {
	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return value
	}
	if loc == nil {
		loc = time.Local
	}
	return parsed.In(loc).Format("1/2/2006 3:04 PM")
}
