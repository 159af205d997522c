package flows

import "errors"

// ErrIllegalTransition reports an event applied in a state that does not
// accept it.
var ErrIllegalTransition = errors.New("illegal linking state transition")

// State is the lifecycle position of one (action, subject) pair.
type State uint8

const (
	// StateIdle means no pending confirmation exists.
	StateIdle State = iota
	// StatePendingSecret means an action payload has been staged but no
	// confirmation code issued yet.
	StatePendingSecret
	// StatePendingConfirmation means a code is live and awaiting the caller.
	StatePendingConfirmation
	// StateActive means a setup flow completed its mutation.
	StateActive
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePendingSecret:
		return "pending-secret"
	case StatePendingConfirmation:
		return "pending-confirmation"
	case StateActive:
		return "active"
	}
	return "unknown"
}

// Event is a lifecycle trigger.
type Event uint8

const (
	// EventStage records a payload being staged ahead of code issuance.
	EventStage Event = iota
	// EventIssue records a confirmation code being issued.
	EventIssue
	// EventConfirm records a successful validate-and-consume plus mutation.
	EventConfirm
	// EventExpire records passive TTL expiry of a pending state.
	EventExpire
)

func (e Event) String() string {
	switch e {
	case EventStage:
		return "stage"
	case EventIssue:
		return "issue"
	case EventConfirm:
		return "confirm"
	case EventExpire:
		return "expire"
	}
	return "unknown"
}

// Kind selects the transition table.
type Kind uint8

const (
	// KindConfirmOnly covers flows whose Confirm returns the pair to Idle.
	KindConfirmOnly Kind = iota
	// KindSetup covers flows that stage a payload and end Active.
	KindSetup
)

// Machine steps one (action, subject) pair through its legal transitions.
// Zero-value machines start at Idle.
type Machine struct {
	kind  Kind
	state State
}

// NewMachine returns a machine at Idle.
func NewMachine(kind Kind) *Machine {
	return &Machine{kind: kind}
}

// Resume returns a machine positioned at a known state, for confirm paths
// where the pending record already exists.
func Resume(kind Kind, state State) *Machine {
	return &Machine{kind: kind, state: state}
}

// State returns the current position.
func (m *Machine) State() State { return m.state }

// Apply advances the machine or returns ErrIllegalTransition, leaving the
// state untouched on failure.
func (m *Machine) Apply(ev Event) error {
	next, err := m.next(ev)
	if err != nil {
		return err
	}
	m.state = next
	return nil
}

func (m *Machine) next(ev Event) (State, error) {
	switch m.state {
	case StateIdle:
		switch ev {
		case EventStage:
			if m.kind == KindSetup {
				return StatePendingSecret, nil
			}
		case EventIssue:
			if m.kind == KindConfirmOnly {
				return StatePendingConfirmation, nil
			}
		}
	case StatePendingSecret:
		switch ev {
		case EventIssue:
			return StatePendingConfirmation, nil
		case EventExpire:
			return StateIdle, nil
		case EventStage:
			// Re-staging supersedes the previous payload in place.
			return StatePendingSecret, nil
		}
	case StatePendingConfirmation:
		switch ev {
		case EventConfirm:
			if m.kind == KindSetup {
				return StateActive, nil
			}
			return StateIdle, nil
		case EventExpire:
			return StateIdle, nil
		case EventStage:
			if m.kind == KindSetup {
				return StatePendingSecret, nil
			}
		case EventIssue:
			// Superseding issue replaces the live code.
			return StatePendingConfirmation, nil
		}
	case StateActive:
		// Terminal for this pair; a fresh flow starts a fresh machine.
	}
	return m.state, ErrIllegalTransition
}
