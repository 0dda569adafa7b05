package game

// Phase is the game view's position in the turn cycle.
type Phase int

const (
	PhaseLoading Phase = iota
	PhasePatientShown
	PhaseDecisionSent
	PhaseGameOver
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhasePatientShown:
		return "patient_shown"
	case PhaseDecisionSent:
		return "decision_sent"
	case PhaseGameOver:
		return "game_over"
	default:
		return "unknown"
	}
}

// AcceptsDecision reports whether a decision may be sent in this phase.
func (p Phase) AcceptsDecision() bool {
	return p == PhasePatientShown
}
