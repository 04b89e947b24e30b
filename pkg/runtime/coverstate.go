package runtime

import (
	"sync"
)

type MovementState string

const (
	CoverOpen    MovementState = "open"
	CoverClosed  MovementState = "closed"
	CoverOpening MovementState = "opening"
	CoverClosing MovementState = "closing"
	CoverUnknown MovementState = "unknown"
	CoverError   MovementState = "error"
)

// PositionTolerance 目标位置允许的偏差
const PositionTolerance = 5

// CoverState derives the externally visible movement state from raw polled
// registers plus the last commanded target. It is mutated from two sides,
// the poll callback and the command surface, hence the lock.
type CoverState struct {
	mu sync.Mutex

	reportedPosition *int
	targetPosition   *int
	lastPosition     *int
	movement         MovementState
	raw              *PollResult
}

// CoverStatus is the immutable snapshot handed to the presentation layer.
type CoverStatus struct {
	Movement         MovementState `json:"movement"`
	ReportedPosition *int          `json:"reportedPosition,omitempty"`
	TargetPosition   *int          `json:"targetPosition,omitempty"`
	LastPosition     *int          `json:"lastPosition,omitempty"`
	Raw              *PollResult   `json:"raw,omitempty"`
}

func NewCoverState() *CoverState {
	return &CoverState{movement: CoverUnknown}
}

// SetTarget records a user-commanded target position and the transitional
// movement toward it.
func (s *CoverState) SetTarget(position int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	target := position
	s.targetPosition = &target
	if s.reportedPosition != nil {
		if *s.reportedPosition < target {
			s.movement = CoverOpening
		} else if *s.reportedPosition > target {
			s.movement = CoverClosing
		}
	}
}

// ClearTarget drops a pending target, used on stop.
func (s *CoverState) ClearTarget() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.targetPosition = nil
}

// Apply feeds one polling cycle's readings through the transition rules and
// returns the resulting movement state.
func (s *CoverState) Apply(pr *PollResult) MovementState {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case pr.MotorStatus != nil && *pr.MotorStatus == MotorError:
		// terminal until the next non-error read
		s.movement = CoverError
		s.targetPosition = nil
		s.reportedPosition = nil
	case pr.Position == nil:
		s.movement = CoverUnknown
		s.reportedPosition = nil
	case *pr.Position == 0:
		s.movement = CoverClosed
		s.reportedPosition = pr.Position
		s.targetPosition = nil
	case *pr.Position == 100:
		s.movement = CoverOpen
		s.reportedPosition = pr.Position
		s.targetPosition = nil
	default:
		pos := *pr.Position
		s.reportedPosition = pr.Position
		if s.targetPosition != nil {
			target := *s.targetPosition
			diff := pos - target
			if diff < 0 {
				diff = -diff
			}
			if diff <= PositionTolerance {
				s.movement = settle(pos)
				s.targetPosition = nil
			} else if pos < target {
				s.movement = CoverOpening
			} else {
				s.movement = CoverClosing
			}
		} else if s.lastPosition != nil {
			switch {
			case pos > *s.lastPosition:
				s.movement = CoverOpening
			case pos < *s.lastPosition:
				s.movement = CoverClosing
			default:
				s.movement = settle(pos)
			}
		} else {
			s.movement = settle(pos)
		}
	}

	s.lastPosition = pr.Position
	s.raw = pr
	return s.movement
}

func settle(position int) MovementState {
	if position > 50 {
		return CoverOpen
	}
	return CoverClosed
}

func (s *CoverState) Movement() MovementState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.movement
}

func (s *CoverState) Snapshot() *CoverStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &CoverStatus{
		Movement:         s.movement,
		ReportedPosition: s.reportedPosition,
		TargetPosition:   s.targetPosition,
		LastPosition:     s.lastPosition,
		Raw:              s.raw,
	}
}
