package impression

// Status is the impression lifecycle state. Only requested -> impression is
// a one-way, at-most-once gate; completed and clicked layer on top of a
// shown impression and may be recorded in either order.
type Status string

const (
	StatusRequested  Status = "requested"
	StatusImpression Status = "impression"
	StatusCompleted  Status = "completed"
	StatusClicked    Status = "clicked"
)

var transitions = map[Status]map[Status]bool{
	StatusRequested: {
		StatusImpression: true,
	},
	StatusImpression: {
		StatusCompleted: true,
		StatusClicked:   true,
	},
	StatusCompleted: {
		StatusCompleted: true,
		StatusClicked:   true,
	},
	StatusClicked: {
		StatusCompleted: true,
		StatusClicked:   true,
	},
}

// CanTransition is the single authority on legal lifecycle moves; the
// conditional updates in the store enforce the same table against
// concurrent callers.
func CanTransition(from, to Status) bool {
	return transitions[from][to]
}

// Valid reports whether s is a known lifecycle state.
func Valid(s Status) bool {
	switch s {
	case StatusRequested, StatusImpression, StatusCompleted, StatusClicked:
		return true
	}
	return false
}
