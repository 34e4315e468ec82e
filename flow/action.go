package flow

// Action is the next thing a wallet has to do, as a button label and the
// route that performs it.
type Action struct {
	Label  string `json:"label"`
	Target string `json:"target"`
}

var (
	statusMessages = [...]string{
		StepConnect:  "Please connect your wallet",
		StepRegister: "Please register to continue",
		StepActivate: "Please activate your account",
		StepProfile:  "Please complete your profile",
		StepComplete: "Welcome to your dashboard",
	}
	nextActions = [...]Action{
		StepConnect:  {Label: "Connect Wallet", Target: "/"},
		StepRegister: {Label: "Register", Target: "/register"},
		StepActivate: {Label: "Activate", Target: "/activate"},
		StepProfile:  {Label: "Complete Profile", Target: "/profile"},
		StepComplete: {Label: "Go to Dashboard", Target: "/dashboard"},
	}
)

// StatusMessage returns a human-readable description of s.
func StatusMessage(s State) string {
	if int(s.CurrentStep) < len(statusMessages) {
		return statusMessages[s.CurrentStep]
	}
	return statusMessages[StepConnect]
}

// NextAction returns the action that advances s to the next step.
// Unknown steps map to the connect action.
func NextAction(s State) Action {
	if int(s.CurrentStep) < len(nextActions) {
		return nextActions[s.CurrentStep]
	}
	return nextActions[StepConnect]
}
