package status

// Status is the workflow stage of a workspace.
type Status string

const (
	NotStarted     Status = "not-started"
	Active         Status = "active"
	ReadyForReview Status = "ready-for-review"
)

// Valid reports whether s is one of the three lifecycle stages.
func (s Status) Valid() bool {
	switch s {
	case NotStarted, Active, ReadyForReview:
		return true
	}
	return false
}

// Parse returns the Status for raw, or NotStarted when raw is unknown.
// Unknown values come from old or hand-edited rows; treating them as
// not-started keeps reads total.
func Parse(raw string) Status {
	s := Status(raw)
	if !s.Valid() {
		return NotStarted
	}
	return s
}
