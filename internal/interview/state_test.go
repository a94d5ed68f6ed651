package interview

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wisefido-intake/internal/models"
)

func mustTransition(t *testing.T, s State, e Event) State {
	t.Helper()
	next, err := Transition(s, e)
	require.NoError(t, err, "event %s in phase %s", e, s.Phase)
	return next
}

func TestTransition_FullInterview(t *testing.T) {
	s := InitialState()
	s.QuestionCount = 2

	s = mustTransition(t, s, EventPatientDetected)
	assert.Equal(t, models.PhaseDialogue, s.Phase)
	assert.True(t, s.Started)

	s = mustTransition(t, s, EventAnswerFailed)
	assert.Equal(t, 0, s.QuestionIndex)
	assert.Equal(t, 1, s.Retries)

	s = mustTransition(t, s, EventAnswerCaptured)
	assert.Equal(t, 1, s.QuestionIndex)
	assert.Zero(t, s.Retries)
	assert.Equal(t, models.PhaseDialogue, s.Phase)

	s = mustTransition(t, s, EventAnswerCaptured)
	assert.Equal(t, models.PhaseHeartbeat, s.Phase)

	s = mustTransition(t, s, EventVitalsDone)
	assert.Equal(t, models.PhaseTemperature, s.Phase)
	s = mustTransition(t, s, EventVitalsDone)
	assert.Equal(t, models.PhasePhoto, s.Phase)

	s = mustTransition(t, s, EventPhotoTaken)
	assert.Equal(t, models.PhaseSubmit, s.Phase)
	assert.True(t, s.PhotoTaken)

	s = mustTransition(t, s, EventSubmitted)
	assert.Equal(t, models.PhaseComplete, s.Phase)
	assert.True(t, s.Submitted)

	s = mustTransition(t, s, EventReset)
	assert.Equal(t, InitialState(), s)
}

func TestTransition_NoQuestionsGoesStraightToVitals(t *testing.T) {
	s := mustTransition(t, InitialState(), EventOperatorStart)
	assert.Equal(t, models.PhaseHeartbeat, s.Phase)
}

func TestTransition_Rejections(t *testing.T) {
	tests := []struct {
		name  string
		state State
		event Event
	}{
		{"start twice", State{Phase: models.PhaseDialogue, Started: true, QuestionCount: 3}, EventOperatorStart},
		{"weight during dialogue", State{Phase: models.PhaseDialogue, Started: true}, EventPatientDetected},
		{"answer outside dialogue", State{Phase: models.PhaseHeartbeat}, EventAnswerCaptured},
		{"vitals in photo", State{Phase: models.PhasePhoto}, EventVitalsDone},
		{"photo twice", State{Phase: models.PhasePhoto, PhotoTaken: true}, EventPhotoTaken},
		{"submit twice", State{Phase: models.PhaseSubmit, Submitted: true}, EventSubmitted},
		{"submit before photo", State{Phase: models.PhasePhoto}, EventSubmitted},
		{"reset mid interview", State{Phase: models.PhaseTemperature}, EventReset},
		{"unknown event", InitialState(), Event("teleport")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, err := Transition(tt.state, tt.event)
			assert.ErrorIs(t, err, ErrInvalidTransition)
			assert.Equal(t, tt.state, next)
		})
	}
}
