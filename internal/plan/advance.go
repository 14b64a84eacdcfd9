package plan

import (
	"cmp"
	"math"
	"slices"
)

// FindNextValidStart moves candidate out of the session's paused intervals.
//
// Without pauses a candidate past the limit restarts at 1. With pauses, a
// candidate inside a pause jumps to the position after it, wrapping to 1 when
// the jump passes the limit. Wrapping twice means every position from 1 to
// the limit is paused, reported as ErrUnsatisfiableSession.
//
// A session whose limit is below 1 has nothing to allocate; 1 is returned
// and every drop reports the limit. Positions start at 1, so a smaller
// candidate is raised to 1.
func FindNextValidStart(candidate int, s *Session) (int, error) {
	if s.Limit < 1 {
		return 1, nil
	}
	candidate = max(candidate, 1)
	if len(s.Paused) == 0 {
		if candidate > s.Limit {
			return 1, nil
		}
		return candidate, nil
	}

	paused := sortedByStart(s.Paused)
	wrapped := false
	for jumps := 0; jumps <= 2*len(paused)+1; jumps++ {
		p, found := containing(paused, candidate)
		if !found {
			return candidate, nil
		}
		if p.End < s.Limit {
			candidate = p.End + 1
			continue
		}
		if wrapped {
			return 0, ErrUnsatisfiableSession
		}
		wrapped = true
		candidate = 1
	}
	return 0, ErrUnsatisfiableSession
}

// GenerateSingleInterval decides the outcome of one drop for one session
// starting at start, and returns the cursor for the following drop.
//
// Checks run in a fixed order: limit, pause, history, success.
func GenerateSingleInterval(start int, s *Session) (Outcome, int, error) {
	start, err := FindNextValidStart(start, s)
	if err != nil {
		return Outcome{}, 0, err
	}

	// Compared before computing the end so large steps cannot overflow.
	if s.Step > s.Limit-start+1 {
		next, err := FindNextValidStart(1, s)
		if err != nil {
			return Outcome{}, 0, err
		}
		return Outcome{Kind: KindLimitReached}, next, nil
	}

	proposed := Interval{Start: start, End: start + s.Step - 1}
	next, err := advancePast(proposed.End, s)
	if err != nil {
		return Outcome{}, 0, err
	}

	if overlapsAny(s.Paused, proposed) {
		return Outcome{Kind: KindPaused}, next, nil
	}
	if containedInAny(s.History, proposed) {
		return Outcome{Kind: KindDuplicate}, next, nil
	}
	return Emitted(proposed), next, nil
}

// NextStartPosition is the session's cursor before the first drop: right
// after the last historical interval, or 1 when there is no history or the
// history already reached the limit.
func NextStartPosition(s *Session) (int, error) {
	start := 1
	if n := len(s.History); n > 0 {
		if lastEnd := s.History[n-1].End; lastEnd < s.Limit {
			start = lastEnd + 1
		}
	}
	return FindNextValidStart(start, s)
}

// advancePast is the cursor after an interval ending at end. Nothing follows
// math.MaxInt, so that case restarts from 1.
func advancePast(end int, s *Session) (int, error) {
	if end == math.MaxInt {
		return FindNextValidStart(1, s)
	}
	return FindNextValidStart(end+1, s)
}

func sortedByStart(intervals []Interval) []Interval {
	sorted := slices.Clone(intervals)
	slices.SortStableFunc(sorted, func(a, b Interval) int {
		return cmp.Compare(a.Start, b.Start)
	})
	return sorted
}

func containing(intervals []Interval, v int) (Interval, bool) {
	for _, iv := range intervals {
		if iv.Has(v) {
			return iv, true
		}
	}
	return Interval{}, false
}

func overlapsAny(intervals []Interval, proposed Interval) bool {
	for _, iv := range intervals {
		if iv.Overlaps(proposed) {
			return true
		}
	}
	return false
}

func containedInAny(intervals []Interval, proposed Interval) bool {
	for _, iv := range intervals {
		if iv.Contains(proposed) {
			return true
		}
	}
	return false
}
