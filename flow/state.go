package flow

import "fmt"

// Step is an onboarding stage. Steps are totally ordered; a wallet can only be
// at a step once every earlier step is satisfied.
type Step uint8

const (
	StepConnect Step = iota
	StepRegister
	StepActivate
	StepProfile
	StepComplete
)

var stepNames = [...]string{"connect", "register", "activate", "profile", "complete"}

func (s Step) String() string {
	if int(s) < len(stepNames) {
		return stepNames[s]
	}
	return fmt.Sprintf("step(%d)", uint8(s))
}

// ParseStep returns the Step with the given name.
func ParseStep(name string) (Step, error) {
	for i, n := range stepNames {
		if n == name {
			return Step(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownStep, name)
}

// MarshalText implements encoding.TextMarshaler.
func (s Step) MarshalText() ([]byte, error) {
	if int(s) >= len(stepNames) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownStep, uint8(s))
	}
	return []byte(stepNames[s]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Step) UnmarshalText(text []byte) error {
	step, err := ParseStep(string(text))
	if err != nil {
		return err
	}
	*s = step
	return nil
}

// State is the derived onboarding status of one wallet.
type State struct {
	Address            string `json:"address,omitempty"`
	CurrentStep        Step   `json:"current_step"`
	IsConnected        bool   `json:"is_connected"`
	IsRegistered       bool   `json:"is_registered"`
	IsActivated        bool   `json:"is_activated"`
	IsProfileComplete  bool   `json:"is_profile_complete"`
	CanAccessDashboard bool   `json:"can_access_dashboard"`

	// Auxiliary ledger facts; they do not influence CurrentStep.
	RegistrationID  uint64 `json:"registration_id,omitempty"`
	ActivationLevel uint8  `json:"activation_level,omitempty"`
}

// Disconnected is the fail-closed state used whenever no wallet is usable.
func Disconnected() State {
	return State{CurrentStep: StepConnect}
}

// newState builds a connected wallet's state at step with every flag derived
// from the step, so the result always passes Validate.
func newState(address string, step Step, registrationID uint64, level uint8) State {
	return State{
		Address:            address,
		CurrentStep:        step,
		IsConnected:        true,
		IsRegistered:       step > StepRegister,
		IsActivated:        step > StepActivate,
		IsProfileComplete:  step > StepProfile,
		CanAccessDashboard: step == StepComplete,
		RegistrationID:     registrationID,
		ActivationLevel:    level,
	}
}

// Validate checks that the flags are monotonic and agree with CurrentStep.
func (s State) Validate() error {
	if s.CurrentStep > StepComplete {
		return fmt.Errorf("%w: %w: %d", ErrInconsistentState, ErrUnknownStep, uint8(s.CurrentStep))
	}
	want := Disconnected()
	if s.CurrentStep != StepConnect {
		want = newState(s.Address, s.CurrentStep, s.RegistrationID, s.ActivationLevel)
	}
	switch {
	case s.IsConnected != want.IsConnected:
		return fmt.Errorf("%w: step %s with connected=%t", ErrInconsistentState, s.CurrentStep, s.IsConnected)
	case s.IsRegistered != want.IsRegistered:
		return fmt.Errorf("%w: step %s with registered=%t", ErrInconsistentState, s.CurrentStep, s.IsRegistered)
	case s.IsActivated != want.IsActivated:
		return fmt.Errorf("%w: step %s with activated=%t", ErrInconsistentState, s.CurrentStep, s.IsActivated)
	case s.IsProfileComplete != want.IsProfileComplete:
		return fmt.Errorf("%w: step %s with profile complete=%t", ErrInconsistentState, s.CurrentStep, s.IsProfileComplete)
	case s.CanAccessDashboard != want.CanAccessDashboard:
		return fmt.Errorf("%w: step %s with dashboard access=%t", ErrInconsistentState, s.CurrentStep, s.CanAccessDashboard)
	}
	return nil
}
