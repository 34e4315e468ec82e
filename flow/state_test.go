package flow

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepOrder(t *testing.T) {
	assert.Less(t, StepConnect, StepRegister)
	assert.Less(t, StepRegister, StepActivate)
	assert.Less(t, StepActivate, StepProfile)
	assert.Less(t, StepProfile, StepComplete)
}

func TestParseStep(t *testing.T) {
	for _, name := range []string{"connect", "register", "activate", "profile", "complete"} {
		step, err := ParseStep(name)
		require.NoError(t, err)
		assert.Equal(t, name, step.String())
	}

	_, err := ParseStep("dashboard")
	assert.ErrorIs(t, err, ErrUnknownStep)
	assert.Equal(t, "step(9)", Step(9).String())
}

func TestStateJSON(t *testing.T) {
	s := newState("0xDEF", StepActivate, 7, 0)
	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"current_step":"activate"`)
	assert.Contains(t, string(data), `"is_registered":true`)
	assert.Contains(t, string(data), `"can_access_dashboard":false`)

	var back State
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, s, back)

	assert.Error(t, json.Unmarshal([]byte(`{"current_step":"vip"}`), &back))
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Disconnected().Validate())
	for step := StepRegister; step <= StepComplete; step++ {
		assert.NoError(t, newState("0x1", step, 1, 0).Validate(), step.String())
	}

	tests := []struct {
		name  string
		state State
	}{
		{"activate without registration", State{CurrentStep: StepActivate, IsConnected: true}},
		{"activated flag at activate", State{CurrentStep: StepActivate, IsConnected: true, IsRegistered: true, IsActivated: true}},
		{"dashboard before complete", func() State {
			s := newState("0x1", StepProfile, 1, 0)
			s.CanAccessDashboard = true
			return s
		}()},
		{"complete without dashboard", func() State {
			s := newState("0x1", StepComplete, 1, 0)
			s.CanAccessDashboard = false
			return s
		}()},
		{"connected at connect", State{CurrentStep: StepConnect, IsConnected: true}},
		{"unknown step", State{CurrentStep: Step(12)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.state.Validate(), ErrInconsistentState)
		})
	}
}

func TestStatusMessageAndNextAction(t *testing.T) {
	tests := []struct {
		step    Step
		message string
		action  Action
	}{
		{StepConnect, "Please connect your wallet", Action{"Connect Wallet", "/"}},
		{StepRegister, "Please register to continue", Action{"Register", "/register"}},
		{StepActivate, "Please activate your account", Action{"Activate", "/activate"}},
		{StepProfile, "Please complete your profile", Action{"Complete Profile", "/profile"}},
		{StepComplete, "Welcome to your dashboard", Action{"Go to Dashboard", "/dashboard"}},
		{Step(42), "Please connect your wallet", Action{"Connect Wallet", "/"}},
	}
	for _, tt := range tests {
		t.Run(tt.step.String(), func(t *testing.T) {
			s := State{CurrentStep: tt.step}
			assert.Equal(t, tt.message, StatusMessage(s))
			assert.Equal(t, tt.action, NextAction(s))
		})
	}
}

func TestOutcomeText(t *testing.T) {
	text, err := OutcomeFatal.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "fatal_error", string(text))
	assert.Equal(t, "success", OutcomeSuccess.String())
	assert.Equal(t, "transient_error", OutcomeTransient.String())
}
