package docstatus

// Status is the lifecycle state of an approvable document.
type Status string

const (
	Draft      Status = "draft"
	InProgress Status = "in_progress"
	Completed  Status = "completed"
	Voided     Status = "voided"
)

// Machine enforces document status transitions
type Machine struct {
	allowedTransitions map[Status][]Status
}

// NewMachine creates a new state machine with allowed transitions
func NewMachine() *Machine {
	return &Machine{
		allowedTransitions: map[Status][]Status{
			Draft:      {InProgress},
			InProgress: {Completed, Voided},
			Completed:  {},
			Voided:     {},
		},
	}
}

// CanTransition checks if a status transition is allowed
func (m *Machine) CanTransition(from, to Status) bool {
	allowed, exists := m.allowedTransitions[from]
	if !exists {
		return false
	}
	for _, allowedTo := range allowed {
		if allowedTo == to {
			return true
		}
	}
	return false
}

// AllowedTransitions returns the allowed next statuses for a given status
func (m *Machine) AllowedTransitions(from Status) []Status {
	allowed, exists := m.allowedTransitions[from]
	if !exists {
		return []Status{}
	}
	return allowed
}
