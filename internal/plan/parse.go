package plan

import (
	"fmt"
	"strconv"
	"strings"
)

// line is a non-blank input line together with its 1-based position in the
// original text.
type line struct {
	num  int
	text string
}

func (l line) fields() []string {
	return strings.Split(l.text, "\t")
}

// headerFields splits the steps or names line. Trailing empty columns carry
// no session there and are dropped.
func (l line) headerFields() []string {
	return strings.Split(strings.TrimRight(l.text, "\t \r"), "\t")
}

// Parse turns a tab-separated plan into validated session data.
//
// Layout:
//   - line 1: one step per session
//   - line 2: session names
//   - history rows of "start-end" cells (optional)
//   - the limits line, located by scanning upward from the bottom
//   - paused rows of "v", "start-end" or "x" cells (optional)
//
// Malformed history cells are skipped. Malformed paused cells are fatal.
func Parse(text string) (*Parsed, error) {
	lines := splitLines(text)
	if len(lines) == 0 {
		return nil, &ParseError{Reason: ErrEmptyInput.Error(), Err: ErrEmptyInput}
	}
	if len(lines) < 3 {
		return nil, &ParseError{
			Reason: fmt.Sprintf("%s (got %d)", ErrTooFewLines, len(lines)),
			Err:    ErrTooFewLines,
		}
	}

	steps, err := parseSteps(lines[0])
	if err != nil {
		return nil, err
	}

	names := lines[1].headerFields()
	for i := range names {
		names[i] = strings.TrimSpace(names[i])
	}
	if len(steps) != len(names) {
		return nil, &ParseError{
			Line:   lines[1].num,
			Reason: fmt.Sprintf("steps count (%d) doesn't match sessions count (%d)", len(steps), len(names)),
			Err:    ErrCountMismatch,
		}
	}

	limitsIdx := findLimitsLine(lines, len(names))
	if limitsIdx < 0 {
		return nil, &ParseError{Reason: ErrNoLimitsLine.Error(), Err: ErrNoLimitsLine}
	}
	limits, err := parseLimits(lines[limitsIdx])
	if err != nil {
		return nil, err
	}

	sessions := make([]Session, len(names))
	for i := range sessions {
		sessions[i] = Session{
			Name:    names[i],
			Step:    steps[i],
			Limit:   limits[i],
			History: []Interval{},
			Paused:  []Interval{},
		}
	}

	for _, l := range lines[2:limitsIdx] {
		for col, cell := range l.fields() {
			if col >= len(sessions) {
				break
			}
			if iv, ok := parseHistoryCell(cell); ok {
				sessions[col].History = append(sessions[col].History, iv)
			}
		}
	}

	for _, l := range lines[limitsIdx+1:] {
		cells := l.fields()
		for col := range sessions {
			if col >= len(cells) {
				break
			}
			iv, ok, err := parsePauseCell(cells[col])
			if err != nil {
				return nil, &ParseError{
					Line:   l.num,
					Column: col + 1,
					Token:  strings.TrimSpace(cells[col]),
					Reason: fmt.Sprintf("%s '%s': %v", ErrInvalidPause, strings.TrimSpace(cells[col]), err),
					Err:    ErrInvalidPause,
				}
			}
			if ok {
				sessions[col].Paused = append(sessions[col].Paused, iv)
			}
		}
	}

	return &Parsed{Sessions: sessions}, nil
}

// IsLimitsLine reports whether fields can serve as the limits line for a plan
// with the given number of sessions: the arity must match and every non-empty
// field must be an integer.
func IsLimitsLine(fields []string, sessions int) bool {
	if len(fields) != sessions {
		return false
	}
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		if _, err := strconv.Atoi(f); err != nil {
			return false
		}
	}
	return true
}

// findLimitsLine returns the index of the bottom-most line after the names
// line that satisfies IsLimitsLine, or -1.
func findLimitsLine(lines []line, sessions int) int {
	for i := len(lines) - 1; i > 1; i-- {
		if IsLimitsLine(lines[i].fields(), sessions) {
			return i
		}
	}
	return -1
}

func splitLines(text string) []line {
	var lines []line
	for i, raw := range strings.Split(text, "\n") {
		raw = strings.TrimRight(raw, "\r")
		if strings.TrimSpace(raw) == "" {
			continue
		}
		lines = append(lines, line{num: i + 1, text: raw})
	}
	return lines
}

func parseSteps(l line) ([]int, error) {
	fields := l.headerFields()
	steps := make([]int, 0, len(fields))
	for col, f := range fields {
		f = strings.TrimSpace(f)
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, &ParseError{
				Line:   l.num,
				Column: col + 1,
				Token:  f,
				Reason: fmt.Sprintf("%s: invalid number: '%s'", ErrInvalidStep, f),
				Err:    ErrInvalidStep,
			}
		}
		if v <= 0 {
			return nil, &ParseError{
				Line:   l.num,
				Column: col + 1,
				Token:  f,
				Reason: fmt.Sprintf("%s: step must be positive, got %d", ErrInvalidStep, v),
				Err:    ErrInvalidStep,
			}
		}
		steps = append(steps, v)
	}
	return steps, nil
}

func parseLimits(l line) ([]int, error) {
	fields := l.fields()
	limits := make([]int, len(fields))
	for col, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		// IsLimitsLine already guaranteed f is an integer.
		v, _ := strconv.Atoi(f)
		if v < 0 {
			return nil, &ParseError{
				Line:   l.num,
				Column: col + 1,
				Token:  f,
				Reason: fmt.Sprintf("%s: limit must not be negative, got %d", ErrInvalidLimit, v),
				Err:    ErrInvalidLimit,
			}
		}
		limits[col] = v
	}
	return limits, nil
}

// parseHistoryCell accepts "start-end". Anything else is reported as absent.
func parseHistoryCell(cell string) (Interval, bool) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return Interval{}, false
	}
	iv, err := parseRange(cell)
	if err != nil {
		return Interval{}, false
	}
	return iv, true
}

// parsePauseCell accepts "", "x", "v" and "start-end". ok is false for the
// cells that pause nothing.
func parsePauseCell(cell string) (iv Interval, ok bool, err error) {
	cell = strings.Join(strings.Fields(cell), "")
	if cell == "" || strings.EqualFold(cell, "x") {
		return Interval{}, false, nil
	}
	if strings.Contains(cell, "-") {
		iv, err = parseRange(cell)
		if err != nil {
			return Interval{}, false, err
		}
		return iv, true, nil
	}
	v, err := strconv.Atoi(cell)
	if err != nil {
		return Interval{}, false, fmt.Errorf("invalid number: %s", cell)
	}
	return Interval{Start: v, End: v}, true, nil
}

func parseRange(s string) (Interval, error) {
	left, right, _ := strings.Cut(s, "-")
	start, err := strconv.Atoi(strings.TrimSpace(left))
	if err != nil {
		return Interval{}, fmt.Errorf("invalid numbers in: %s", s)
	}
	end, err := strconv.Atoi(strings.TrimSpace(right))
	if err != nil {
		return Interval{}, fmt.Errorf("invalid numbers in: %s", s)
	}
	if start > end {
		return Interval{}, fmt.Errorf("start > end: %d-%d", start, end)
	}
	return Interval{Start: start, End: end}, nil
}
