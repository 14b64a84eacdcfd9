package plan

import "strings"

// Result is a generated plan: one row per drop, one outcome per session.
type Result struct {
	Sessions []string
	Rows     [][]Outcome
}

// Generate produces drops rows for every session of p.
//
// Each session keeps its own cursor; sessions never affect each other. Any
// failure aborts the whole plan.
func Generate(p *Parsed, drops int) (*Result, error) {
	if drops <= 0 {
		return nil, ErrInvalidDrops
	}

	cursors := make([]int, len(p.Sessions))
	for i := range p.Sessions {
		start, err := NextStartPosition(&p.Sessions[i])
		if err != nil {
			return nil, &SessionError{Index: i, Name: p.Sessions[i].Name, Err: err}
		}
		cursors[i] = start
	}

	rows := make([][]Outcome, drops)
	for drop := range rows {
		row := make([]Outcome, len(p.Sessions))
		for i := range p.Sessions {
			outcome, next, err := GenerateSingleInterval(cursors[i], &p.Sessions[i])
			if err != nil {
				return nil, &SessionError{Index: i, Name: p.Sessions[i].Name, Err: err}
			}
			row[i] = outcome
			cursors[i] = next
		}
		rows[drop] = row
	}

	return &Result{Sessions: p.Names(), Rows: rows}, nil
}

// GenerateText parses text and generates drops rows in the legacy
// tab-separated form.
func GenerateText(text string, drops int) (string, error) {
	parsed, err := Parse(text)
	if err != nil {
		return "", err
	}
	result, err := Generate(parsed, drops)
	if err != nil {
		return "", err
	}
	return result.String(), nil
}

// Table returns the rows formatted as legacy plan cells.
func (r *Result) Table() [][]string {
	table := make([][]string, len(r.Rows))
	for i, row := range r.Rows {
		cells := make([]string, len(row))
		for j, outcome := range row {
			cells[j] = outcome.String()
		}
		table[i] = cells
	}
	return table
}

// String renders one line per drop with tab-separated cells.
func (r *Result) String() string {
	return FormatTable(r.Table())
}

// FormatTable joins cells with tabs and rows with newlines.
func FormatTable(table [][]string) string {
	lines := make([]string, len(table))
	for i, cells := range table {
		lines[i] = strings.Join(cells, "\t")
	}
	return strings.Join(lines, "\n")
}

// SplitTable is the inverse of FormatTable.
func SplitTable(text string) [][]string {
	if text == "" {
		return [][]string{}
	}
	lines := strings.Split(text, "\n")
	table := make([][]string, len(lines))
	for i, l := range lines {
		table[i] = strings.Split(l, "\t")
	}
	return table
}

// SessionInfo summarizes one parsed session.
type SessionInfo struct {
	Name         string
	Step         int
	Limit        int
	HistoryCount int
	LastIssued   *Interval
	Paused       []Interval
	NextStart    int
}

// Describe summarizes every session of p, including the cursor the first
// drop would start from.
func Describe(p *Parsed) ([]SessionInfo, error) {
	infos := make([]SessionInfo, len(p.Sessions))
	for i := range p.Sessions {
		s := &p.Sessions[i]
		next, err := NextStartPosition(s)
		if err != nil {
			return nil, &SessionError{Index: i, Name: s.Name, Err: err}
		}
		info := SessionInfo{
			Name:         s.Name,
			Step:         s.Step,
			Limit:        s.Limit,
			HistoryCount: len(s.History),
			Paused:       sortedByStart(s.Paused),
			NextStart:    next,
		}
		if n := len(s.History); n > 0 {
			last := s.History[n-1]
			info.LastIssued = &last
		}
		infos[i] = info
	}
	return infos, nil
}
