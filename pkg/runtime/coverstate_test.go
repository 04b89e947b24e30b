package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func intPtr(v int) *int                   { return &v }
func motorPtr(v MotorStatus) *MotorStatus { return &v }

func TestCoverStateInitialUnknown(t *testing.T) {
	s := NewCoverState()
	assert.Equal(t, CoverUnknown, s.Movement())
}

func TestCoverStateNilThenClosed(t *testing.T) {
	s := NewCoverState()

	assert.Equal(t, CoverUnknown, s.Apply(&PollResult{}))
	assert.Equal(t, CoverClosed, s.Apply(&PollResult{Position: intPtr(0)}))
}

func TestCoverStateTerminalPositions(t *testing.T) {
	s := NewCoverState()
	s.SetTarget(100)

	assert.Equal(t, CoverOpen, s.Apply(&PollResult{Position: intPtr(100)}))
	// terminal reading clears the pending target
	assert.Nil(t, s.Snapshot().TargetPosition)
}

func TestCoverStateRisingPositionIsOpening(t *testing.T) {
	s := NewCoverState()

	// first intermediate reading with no history settles by majority side
	assert.Equal(t, CoverClosed, s.Apply(&PollResult{Position: intPtr(50)}))
	assert.Equal(t, CoverOpening, s.Apply(&PollResult{Position: intPtr(80)}))
}

func TestCoverStateFallingPositionIsClosing(t *testing.T) {
	s := NewCoverState()

	s.Apply(&PollResult{Position: intPtr(80)})
	assert.Equal(t, CoverClosing, s.Apply(&PollResult{Position: intPtr(60)}))
}

func TestCoverStateUnchangedPositionSettles(t *testing.T) {
	s := NewCoverState()

	s.Apply(&PollResult{Position: intPtr(80)})
	assert.Equal(t, CoverOpen, s.Apply(&PollResult{Position: intPtr(80)}))
}

func TestCoverStateTargetWithinToleranceSettles(t *testing.T) {
	s := NewCoverState()
	s.SetTarget(50)

	assert.Equal(t, CoverClosed, s.Apply(&PollResult{Position: intPtr(48)}))
	assert.Nil(t, s.Snapshot().TargetPosition)
}

func TestCoverStateMovingTowardTarget(t *testing.T) {
	s := NewCoverState()
	s.SetTarget(90)

	assert.Equal(t, CoverOpening, s.Apply(&PollResult{Position: intPtr(20)}))

	s = NewCoverState()
	s.SetTarget(10)
	assert.Equal(t, CoverClosing, s.Apply(&PollResult{Position: intPtr(70)}))
}

func TestCoverStateMotorErrorWins(t *testing.T) {
	s := NewCoverState()
	s.SetTarget(100)

	got := s.Apply(&PollResult{Position: intPtr(42), MotorStatus: motorPtr(MotorError)})
	assert.Equal(t, CoverError, got)

	snapshot := s.Snapshot()
	assert.Nil(t, snapshot.TargetPosition)
	assert.Nil(t, snapshot.ReportedPosition)

	// next clean read recovers
	assert.Equal(t, CoverOpening, s.Apply(&PollResult{Position: intPtr(60), MotorStatus: motorPtr(MotorRunning)}))
}

func TestCoverStateUnknownKeepsTarget(t *testing.T) {
	s := NewCoverState()
	s.SetTarget(70)

	assert.Equal(t, CoverUnknown, s.Apply(&PollResult{}))
	assert.NotNil(t, s.Snapshot().TargetPosition)
}

func TestCoverStateLastPositionTracksEveryCycle(t *testing.T) {
	s := NewCoverState()

	s.Apply(&PollResult{Position: intPtr(30)})
	assert.Equal(t, 30, *s.Snapshot().LastPosition)

	s.Apply(&PollResult{})
	assert.Nil(t, s.Snapshot().LastPosition)
}
