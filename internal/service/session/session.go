package session

import (
	"sync"
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/gate"
)

// Position is the last coordinates the client reported.
type Position struct {
	Latitude  float64
	Longitude float64
}

// Session is one employee's live camera session. It owns the capture
// gate, the prerequisite data the client has reported so far, and the
// most recent frame reading, which the poll loop re-evaluates between
// client posts so the arm delay can elapse without a fresh frame.
type Session struct {
	mu sync.Mutex

	employee employee.Employee
	gate     *gate.Gate

	position      *Position
	address       string
	modelsLoaded  bool
	streamActive  bool
	lastReading   gate.FrameReading
	hasReading    bool
	lastPhotoPath *string
	lastActivity  time.Time

	cancelPoll func()
}

func newSession(emp employee.Employee, g *gate.Gate, now time.Time) *Session {
	return &Session{
		employee:     emp,
		gate:         g,
		lastActivity: now,
	}
}

// prerequisites snapshots the readiness flags under the session lock.
func (s *Session) prerequisites() gate.Prerequisites {
	return gate.Prerequisites{
		Position:     s.position != nil,
		Address:      s.address != "",
		ModelsLoaded: s.modelsLoaded,
		StreamActive: s.streamActive,
	}
}

func (s *Session) touch(now time.Time) {
	s.lastActivity = now
}
