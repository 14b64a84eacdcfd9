package plan

import (
	"errors"
	"math"
	"strconv"
	"testing"
)

func TestFindNextValidStart(t *testing.T) {
	tests := []struct {
		name      string
		session   Session
		candidate int
		expected  int
		wantErr   error
	}{
		{
			name:      "no pauses, inside range",
			session:   Session{Step: 10, Limit: 30},
			candidate: 5,
			expected:  5,
		},
		{
			name:      "no pauses, at limit",
			session:   Session{Step: 10, Limit: 30},
			candidate: 30,
			expected:  30,
		},
		{
			name:      "no pauses, past limit wraps",
			session:   Session{Step: 10, Limit: 30},
			candidate: 31,
			expected:  1,
		},
		{
			name:      "inside pause jumps past it",
			session:   Session{Step: 5, Limit: 20, Paused: []Interval{{6, 10}}},
			candidate: 6,
			expected:  11,
		},
		{
			name:      "pause end jumps past it",
			session:   Session{Step: 5, Limit: 20, Paused: []Interval{{6, 10}}},
			candidate: 10,
			expected:  11,
		},
		{
			name:      "outside pause is kept",
			session:   Session{Step: 5, Limit: 20, Paused: []Interval{{6, 10}}},
			candidate: 5,
			expected:  5,
		},
		{
			name:      "with pauses a candidate past the limit is kept",
			session:   Session{Step: 5, Limit: 20, Paused: []Interval{{6, 10}}},
			candidate: 25,
			expected:  25,
		},
		{
			name:      "pause at the bottom of the range",
			session:   Session{Step: 10, Limit: 320, Paused: []Interval{{1, 50}}},
			candidate: 1,
			expected:  51,
		},
		{
			name:      "pause at the top wraps to 1",
			session:   Session{Step: 10, Limit: 320, Paused: []Interval{{300, 320}}},
			candidate: 305,
			expected:  1,
		},
		{
			name:      "wrap lands in a pause at 1",
			session:   Session{Step: 10, Limit: 320, Paused: []Interval{{300, 320}, {1, 5}}},
			candidate: 310,
			expected:  6,
		},
		{
			name:      "adjacent pauses chain",
			session:   Session{Step: 5, Limit: 20, Paused: []Interval{{6, 9}, {3, 5}}},
			candidate: 4,
			expected:  10,
		},
		{
			name:      "pause beyond limit is irrelevant",
			session:   Session{Step: 5, Limit: 30, Paused: []Interval{{40, 50}}},
			candidate: 5,
			expected:  5,
		},
		{
			name:      "zero limit always restarts at 1",
			session:   Session{Step: 5, Limit: 0, Paused: []Interval{{1, 1}}},
			candidate: 7,
			expected:  1,
		},
		{
			name:      "candidate below 1 is raised to 1",
			session:   Session{Step: 5, Limit: 20},
			candidate: -3,
			expected:  1,
		},
		{
			name:      "pause ending at the largest int wraps",
			session:   Session{Step: 5, Limit: math.MaxInt, Paused: []Interval{{5, math.MaxInt}}},
			candidate: 7,
			expected:  1,
		},
		{
			name:      "pause up to the largest int covers the range",
			session:   Session{Step: 5, Limit: 10, Paused: []Interval{{1, math.MaxInt}}},
			candidate: 1,
			wantErr:   ErrUnsatisfiableSession,
		},
		{
			name:      "single pause covering the range",
			session:   Session{Step: 5, Limit: 10, Paused: []Interval{{1, 10}}},
			candidate: 1,
			wantErr:   ErrUnsatisfiableSession,
		},
		{
			name:      "pieces covering the range",
			session:   Session{Step: 5, Limit: 10, Paused: []Interval{{5, 10}, {1, 4}}},
			candidate: 7,
			wantErr:   ErrUnsatisfiableSession,
		},
		{
			name:      "covering pause wider than the range",
			session:   Session{Step: 5, Limit: 10, Paused: []Interval{{0, 15}}},
			candidate: 3,
			wantErr:   ErrUnsatisfiableSession,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FindNextValidStart(tt.candidate, &tt.session)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected error %v, got %v (result %d)", tt.wantErr, err, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("Expected %d, got %d", tt.expected, got)
			}
		})
	}
}

func TestGenerateSingleInterval(t *testing.T) {
	tests := []struct {
		name     string
		session  Session
		start    int
		expected string
		next     int
	}{
		{
			name:     "fresh interval",
			session:  Session{Step: 10, Limit: 30},
			start:    1,
			expected: "1-10",
			next:     11,
		},
		{
			name:     "interval ending on the limit",
			session:  Session{Step: 10, Limit: 30},
			start:    21,
			expected: "21-30",
			next:     1,
		},
		{
			name:     "overshooting the limit",
			session:  Session{Step: 10, Limit: 35},
			start:    31,
			expected: TokenLimit,
			next:     1,
		},
		{
			name:     "overshooting the limit restarts past a pause at 1",
			session:  Session{Step: 10, Limit: 35, Paused: []Interval{{1, 3}}},
			start:    31,
			expected: TokenLimit,
			next:     4,
		},
		{
			name:     "partial overlap with a pause",
			session:  Session{Step: 5, Limit: 20, Paused: []Interval{{8, 9}}},
			start:    6,
			expected: TokenPause,
			next:     11,
		},
		{
			name:     "start inside a pause is normalized first",
			session:  Session{Step: 5, Limit: 20, Paused: []Interval{{6, 10}}},
			start:    6,
			expected: "11-15",
			next:     16,
		},
		{
			name:     "exact historical duplicate",
			session:  Session{Step: 5, Limit: 20, History: []Interval{{1, 5}}},
			start:    1,
			expected: TokenDuplicate,
			next:     6,
		},
		{
			name:     "contained in a wider historical interval",
			session:  Session{Step: 5, Limit: 20, History: []Interval{{1, 10}}},
			start:    6,
			expected: TokenDuplicate,
			next:     11,
		},
		{
			name:     "overlap with history is not a duplicate",
			session:  Session{Step: 5, Limit: 20, History: []Interval{{3, 7}}},
			start:    1,
			expected: "1-5",
			next:     6,
		},
		{
			name:     "limit wins over pause",
			session:  Session{Step: 5, Limit: 8, Paused: []Interval{{7, 7}}},
			start:    6,
			expected: TokenLimit,
			next:     1,
		},
		{
			name:     "pause wins over history",
			session:  Session{Step: 5, Limit: 20, Paused: []Interval{{3, 3}}, History: []Interval{{1, 5}}},
			start:    1,
			expected: TokenPause,
			next:     6,
		},
		{
			name:     "zero limit",
			session:  Session{Step: 5, Limit: 0},
			start:    1,
			expected: TokenLimit,
			next:     1,
		},
		{
			name:     "largest step does not wrap around",
			session:  Session{Step: math.MaxInt, Limit: 10, History: []Interval{{1, 1}}},
			start:    2,
			expected: TokenLimit,
			next:     1,
		},
		{
			name:     "interval ending at the largest int",
			session:  Session{Step: 5, Limit: math.MaxInt},
			start:    math.MaxInt - 4,
			expected: strconv.Itoa(math.MaxInt-4) + "-" + strconv.Itoa(math.MaxInt),
			next:     1,
		},
		{
			name:     "interval past the largest int reports the limit",
			session:  Session{Step: 5, Limit: math.MaxInt},
			start:    math.MaxInt - 3,
			expected: TokenLimit,
			next:     1,
		},
		{
			name:     "step larger than limit",
			session:  Session{Step: 50, Limit: 30},
			start:    1,
			expected: TokenLimit,
			next:     1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome, next, err := GenerateSingleInterval(tt.start, &tt.session)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if outcome.String() != tt.expected {
				t.Errorf("Expected outcome %q, got %q", tt.expected, outcome.String())
			}
			if next != tt.next {
				t.Errorf("Expected next start %d, got %d", tt.next, next)
			}
		})
	}
}

func TestGenerateSingleInterval_Unsatisfiable(t *testing.T) {
	session := Session{Step: 5, Limit: 10, Paused: []Interval{{1, 10}}}

	_, _, err := GenerateSingleInterval(1, &session)
	if !errors.Is(err, ErrUnsatisfiableSession) {
		t.Errorf("expected ErrUnsatisfiableSession, got %v", err)
	}
}

func TestNextStartPosition(t *testing.T) {
	tests := []struct {
		name     string
		session  Session
		expected int
	}{
		{
			name:     "no history",
			session:  Session{Step: 10, Limit: 30},
			expected: 1,
		},
		{
			name:     "continue after last interval",
			session:  Session{Step: 10, Limit: 30, History: []Interval{{1, 10}, {11, 20}}},
			expected: 21,
		},
		{
			name:     "last interval at limit",
			session:  Session{Step: 10, Limit: 30, History: []Interval{{21, 30}}},
			expected: 1,
		},
		{
			name:     "last interval past limit",
			session:  Session{Step: 10, Limit: 30, History: []Interval{{31, 40}}},
			expected: 1,
		},
		{
			name:     "last in input order, not the highest",
			session:  Session{Step: 10, Limit: 30, History: []Interval{{21, 30}, {1, 10}}},
			expected: 11,
		},
		{
			name:     "continuation inside a pause",
			session:  Session{Step: 5, Limit: 20, History: []Interval{{1, 5}}, Paused: []Interval{{6, 10}}},
			expected: 11,
		},
		{
			name:     "restart inside a pause",
			session:  Session{Step: 5, Limit: 20, History: []Interval{{16, 20}}, Paused: []Interval{{1, 2}}},
			expected: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextStartPosition(&tt.session)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("Expected %d, got %d", tt.expected, got)
			}
		})
	}
}

func TestInterval(t *testing.T) {
	iv := Interval{Start: 5, End: 10}

	if !iv.Contains(Interval{5, 10}) || !iv.Contains(Interval{6, 9}) {
		t.Error("Expected interval to contain itself and inner ranges")
	}
	if iv.Contains(Interval{4, 6}) || iv.Contains(Interval{9, 11}) {
		t.Error("Expected partial overlaps not to be contained")
	}
	if !iv.Overlaps(Interval{10, 12}) || !iv.Overlaps(Interval{1, 5}) {
		t.Error("Expected touching ranges to overlap")
	}
	if iv.Overlaps(Interval{11, 12}) || iv.Overlaps(Interval{1, 4}) {
		t.Error("Expected disjoint ranges not to overlap")
	}
	if iv.String() != "5-10" {
		t.Errorf("Expected 5-10, got %s", iv.String())
	}
}
