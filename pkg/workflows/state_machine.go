package workflows

// Actor identifies who is driving a report status transition.
type Actor string

const (
	ActorSystem    Actor = "system"
	ActorModerator Actor = "moderator"
)

// StateMachine enforces citizen report status transitions
type StateMachine struct {
	systemTransitions    map[string][]string
	moderatorTransitions map[string][]string
}

// NewReportStateMachine creates the state machine governing a report's
// lifecycle. "verified" and "rejected" are terminal: no automatic transition
// leads out of them, and the moderator table does not permit leaving them
// either.
func NewReportStateMachine() *StateMachine {
	return &StateMachine{
		systemTransitions: map[string][]string{
			"draft":    {"pending", "flagged"},
			"pending":  {},
			"flagged":  {},
			"verified": {},
			"rejected": {},
		},
		moderatorTransitions: map[string][]string{
			"pending":  {"verified", "rejected", "flagged"},
			"flagged":  {"verified", "rejected", "pending"},
			"verified": {},
			"rejected": {},
		},
	}
}

// CanTransition checks if a status transition is allowed for the given actor
func (sm *StateMachine) CanTransition(from, to string, actor Actor) bool {
	table := sm.systemTransitions
	if actor == ActorModerator {
		table = sm.moderatorTransitions
	}
	allowed, exists := table[from]
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

// IsTerminal reports whether no actor may leave the given status
func (sm *StateMachine) IsTerminal(status string) bool {
	return len(sm.systemTransitions[status]) == 0 && len(sm.moderatorTransitions[status]) == 0
}

// GetAllowedTransitions returns the allowed next statuses for a given status and actor
func (sm *StateMachine) GetAllowedTransitions(from string, actor Actor) []string {
	table := sm.systemTransitions
	if actor == ActorModerator {
		table = sm.moderatorTransitions
	}
	allowed, exists := table[from]
	if !exists {
		return []string{}
	}
	return allowed
}
