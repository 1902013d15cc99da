package dryfire_test

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-versioned/trackers/dryfire"
)

type sequence struct {
	values []float64
	next   int
}

func (s *sequence) Float64() float64 {
	v := s.values[s.next%len(s.values)]
	s.next++
	return v
}

func TestSessionStats(t *testing.T) {
	session := dryfire.Session{Shots: []dryfire.Shot{
		{Result: result(dryfire.ResultHit)},
		{Result: result(dryfire.ResultSlow)},
		{Result: result(dryfire.ResultMiss)},
		{},
		{Result: result(dryfire.ResultHit)},
	}}
	want := dryfire.Stats{Total: 4, Hit: 2, Slow: 1, Missed: 1, HitRate: 0.5}
	if diff := cmp.Diff(want, dryfire.SessionStats(session)); diff != "" {
		t.Fatalf("unexpected stats (-want +got):\n%s", diff)
	}
	if got := dryfire.SessionStats(dryfire.Session{Shots: make([]dryfire.Shot, 3)}); got != (dryfire.Stats{}) {
		t.Fatalf("expected empty stats, got %+v", got)
	}
}

func TestChaosSchedule(t *testing.T) {
	src := &sequence{values: []float64{0.5, 0, 0.25, 0.75, 0.1, 0.9}}
	got := dryfire.ChaosSchedule(2.0, src)
	want := []time.Duration{
		500 * time.Millisecond,
		600 * time.Millisecond,
		750 * time.Millisecond,
		1000 * time.Millisecond,
		1250 * time.Millisecond,
		1400 * time.Millisecond,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected schedule (-want +got):\n%s", diff)
	}

	if got := dryfire.ChaosSchedule(1.0, src); got != nil {
		t.Fatalf("expected no chaos shots for a one second par time, got %v", got)
	}

	for _, offset := range dryfire.ChaosSchedule(3, nil) {
		if offset < 500*time.Millisecond || offset >= 2500*time.Millisecond {
			t.Fatalf("offset %v outside the listening window", offset)
		}
	}
}

func TestStartDelay(t *testing.T) {
	if got := dryfire.StartDelay(&sequence{values: []float64{0}}); got != 5*time.Second {
		t.Fatalf("expected 5s, got %v", got)
	}
	if got := dryfire.StartDelay(&sequence{values: []float64{0.5}}); got != 7500*time.Millisecond {
		t.Fatalf("expected 7.5s, got %v", got)
	}
	for i := 0; i < 20; i++ {
		got := dryfire.StartDelay(nil)
		if got < 5*time.Second || got >= 10*time.Second {
			t.Fatalf("delay %v out of range", got)
		}
	}
}

func TestFormatSessionDate(t *testing.T) {
	if got := dryfire.FormatSessionDate("2024-03-01T13:05:00.000Z", time.UTC); got != "3/1/2024 1:05 PM" {
		t.Fatalf("unexpected date %q", got)
	}
	if got := dryfire.FormatSessionDate("yesterday", time.UTC); got != "yesterday" {
		t.Fatalf("expected unparseable date unchanged, got %q", got)
	}
}
