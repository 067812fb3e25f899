package normalizer

// Outcome is the fate of one structural unit (a table, a template, a page).
type Outcome int

// Outcomes.
const (
	Converted Outcome = iota
	Dropped
	Skipped
)

func (o Outcome) String() string {
	switch o {
	case Converted:
		return "converted"
	case Dropped:
		return "dropped"
	case Skipped:
		return "skipped"
	default:
		return "unknown"
	}
}
