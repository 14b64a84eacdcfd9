package plan

import "strconv"

// Legacy output tokens for the non-interval outcomes.
const (
	TokenLimit     = "Limite"
	TokenPause     = "pause"
	TokenDuplicate = "X"
)

// Interval is a closed integer range [Start, End].
type Interval struct {
	Start int
	End   int
}

// Contains reports whether other lies entirely inside i.
func (i Interval) Contains(other Interval) bool {
	return i.Start <= other.Start && other.End <= i.End
}

// Overlaps reports whether i and other share at least one position.
func (i Interval) Overlaps(other Interval) bool {
	return i.Start <= other.End && other.Start <= i.End
}

// Has reports whether position v lies inside i.
func (i Interval) Has(v int) bool {
	return i.Start <= v && v <= i.End
}

func (i Interval) String() string {
	return strconv.Itoa(i.Start) + "-" + strconv.Itoa(i.End)
}

// Session is one parallel allocation stream.
type Session struct {
	Name    string
	Step    int
	Limit   int
	History []Interval // previously issued intervals, in input order
	Paused  []Interval // forbidden ranges, in input order
}

// Parsed is the validated result of Parse. Every session carries its own
// history and pause lists, so the per-session arrays always line up.
type Parsed struct {
	Sessions []Session
}

// Steps returns the step of every session in input order.
func (p *Parsed) Steps() []int {
	steps := make([]int, len(p.Sessions))
	for i, s := range p.Sessions {
		steps[i] = s.Step
	}
	return steps
}

// Names returns the session names in input order.
func (p *Parsed) Names() []string {
	names := make([]string, len(p.Sessions))
	for i, s := range p.Sessions {
		names[i] = s.Name
	}
	return names
}

// Limits returns the limit of every session in input order.
func (p *Parsed) Limits() []int {
	limits := make([]int, len(p.Sessions))
	for i, s := range p.Sessions {
		limits[i] = s.Limit
	}
	return limits
}

// Kind tags the outcome of one drop for one session.
type Kind int

const (
	KindEmitted Kind = iota
	KindLimitReached
	KindPaused
	KindDuplicate
)

func (k Kind) String() string {
	switch k {
	case KindEmitted:
		return "emitted"
	case KindLimitReached:
		return "limit_reached"
	case KindPaused:
		return "paused"
	case KindDuplicate:
		return "duplicate"
	default:
		return "unknown"
	}
}

// Outcome is what a single drop produced for a single session.
// Interval is only meaningful when Kind is KindEmitted.
type Outcome struct {
	Kind     Kind
	Interval Interval
}

// Emitted returns an outcome carrying iv.
func Emitted(iv Interval) Outcome {
	return Outcome{Kind: KindEmitted, Interval: iv}
}

// String formats the outcome in the legacy plan form: "start-end",
// "Limite", "pause" or "X".
func (o Outcome) String() string {
	switch o.Kind {
	case KindEmitted:
		return o.Interval.String()
	case KindLimitReached:
		return TokenLimit
	case KindPaused:
		return TokenPause
	case KindDuplicate:
		return TokenDuplicate
	default:
		return ""
	}
}
