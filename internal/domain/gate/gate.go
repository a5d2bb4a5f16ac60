package gate

import (
	"sync"
	"time"
)

// State is the capture eligibility state of one camera session.
type State string

const (
	StateIdle                State = "idle"
	StateFaceQualifying      State = "face_qualifying"
	StateArmedPendingCapture State = "armed_pending_capture"
	StateCapturing           State = "capturing"
	StateCooldown            State = "cooldown"
)

// Prerequisite names a piece of data a capture cannot proceed without.
type Prerequisite string

const (
	PrereqPosition Prerequisite = "position"
	PrereqAddress  Prerequisite = "address"
	PrereqModels   Prerequisite = "models"
	PrereqStream   Prerequisite = "stream"
)

// Prerequisites reports readiness of the data a capture depends on.
type Prerequisites struct {
	Position     bool
	Address      bool
	ModelsLoaded bool
	StreamActive bool
}

// Missing returns the prerequisites that are not ready.
func (p Prerequisites) Missing() []Prerequisite {
	var missing []Prerequisite
	if !p.Position {
		missing = append(missing, PrereqPosition)
	}
	if !p.Address {
		missing = append(missing, PrereqAddress)
	}
	if !p.ModelsLoaded {
		missing = append(missing, PrereqModels)
	}
	if !p.StreamActive {
		missing = append(missing, PrereqStream)
	}
	return missing
}

// FrameReading is the face detector output for one video frame.
type FrameReading struct {
	FaceFound      bool
	FaceConfidence float64
	SmileScore     float64
}

type Config struct {
	ConfidenceThreshold float64
	SmileThreshold      float64
	ArmDelay            time.Duration
	Cooldown            time.Duration
}

// Decision is the outcome of feeding one frame reading through the gate.
type Decision struct {
	State State
	// FireAuto is true when this frame armed the gate and an automatic
	// capture attempt must start now. The caller owns the capture and
	// must call Complete when it finishes.
	FireAuto bool
	// SkippedMissing lists the prerequisites that silently suppressed an
	// auto capture which would otherwise have fired.
	SkippedMissing []Prerequisite
}

// Snapshot is the gate state exposed to the UI layer.
type Snapshot struct {
	State          State      `json:"state"`
	FaceConfidence float64    `json:"face_confidence"`
	SmileScore     float64    `json:"smile_score"`
	ArmedAt        *time.Time `json:"armed_at,omitempty"`
	CooldownUntil  *time.Time `json:"cooldown_until,omitempty"`
	Processing     bool       `json:"processing"`
	Hint           string     `json:"hint,omitempty"`
}

// Gate decides when a capture may fire for one camera session. The
// qualifying face condition must hold continuously for ArmDelay before
// an automatic capture triggers; any disqualifying frame resets the
// hold. A cooldown follows every capture attempt, success or failure.
type Gate struct {
	mu  sync.Mutex
	cfg Config
	now func() time.Time

	state         State
	armedAt       *time.Time
	cooldownUntil time.Time
	processing    bool
	lastReading   FrameReading
}

func NewGate(cfg Config) *Gate {
	return NewGateWithClock(cfg, time.Now)
}

// NewGateWithClock lets the caller supply the clock the timed
// transitions read from.
func NewGateWithClock(cfg Config, now func() time.Time) *Gate {
	return &Gate{
		cfg:   cfg,
		now:   now,
		state: StateIdle,
	}
}

// Observe feeds one frame reading through the gate and reports whether
// an automatic capture must fire. Safe to call from the poll loop while
// a manual request arrives on another goroutine.
func (g *Gate) Observe(reading FrameReading, prereqs Prerequisites) Decision {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	g.lastReading = reading

	// Poll ticks are ignored outright while a capture is being finalized.
	if g.processing {
		return Decision{State: StateCapturing}
	}
	if g.inCooldown(now) {
		return Decision{State: StateCooldown}
	}
	if g.state == StateCooldown || g.state == StateCapturing {
		g.state = StateIdle
	}

	if !g.qualifies(reading) {
		// Stale arm timers must never fire after the face disqualified.
		g.state = StateIdle
		g.armedAt = nil
		return Decision{State: StateIdle}
	}

	if g.armedAt == nil {
		armed := now
		g.armedAt = &armed
		g.state = StateFaceQualifying
		return Decision{State: StateFaceQualifying}
	}

	if now.Sub(*g.armedAt) < g.cfg.ArmDelay {
		g.state = StateFaceQualifying
		return Decision{State: StateFaceQualifying}
	}

	// Hold elapsed: the gate arms.
	if missing := prereqs.Missing(); len(missing) > 0 {
		// Background trigger, so skip silently and start over.
		g.state = StateIdle
		g.armedAt = nil
		return Decision{State: StateIdle, SkippedMissing: missing}
	}

	g.state = StateArmedPendingCapture
	g.beginCapture()
	return Decision{State: StateCapturing, FireAuto: true}
}

// RequestManual starts a manual capture, bypassing the face hold but
// not the prerequisite or cooldown checks. Accepted from Idle and
// FaceQualifying only.
func (g *Gate) RequestManual(prereqs Prerequisites) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if g.processing {
		return ErrCaptureInProgress
	}
	if g.inCooldown(now) {
		return ErrCooldownActive
	}
	if missing := prereqs.Missing(); len(missing) > 0 {
		return &PrerequisiteError{Missing: missing}
	}

	g.beginCapture()
	return nil
}

// Complete marks the in-flight capture as finished (success or failure)
// and starts the cooldown window.
func (g *Gate) Complete() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.processing = false
	g.armedAt = nil
	g.state = StateCooldown
	g.cooldownUntil = g.now().Add(g.cfg.Cooldown)
}

// Reset returns the gate to its initial state. Used on session teardown.
func (g *Gate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.state = StateIdle
	g.armedAt = nil
	g.cooldownUntil = time.Time{}
	g.processing = false
	g.lastReading = FrameReading{}
}

// Status returns the current gate state for UI feedback.
func (g *Gate) Status() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	state := g.state
	if state == StateCooldown && !g.inCooldown(now) && !g.processing {
		state = StateIdle
	}

	snap := Snapshot{
		State:          state,
		FaceConfidence: g.lastReading.FaceConfidence,
		SmileScore:     g.lastReading.SmileScore,
		Processing:     g.processing,
		Hint:           g.hint(state),
	}
	if g.armedAt != nil {
		armed := *g.armedAt
		snap.ArmedAt = &armed
	}
	if g.inCooldown(now) {
		until := g.cooldownUntil
		snap.CooldownUntil = &until
	}
	return snap
}

func (g *Gate) qualifies(reading FrameReading) bool {
	return reading.FaceFound &&
		reading.FaceConfidence > g.cfg.ConfidenceThreshold &&
		reading.SmileScore > g.cfg.SmileThreshold
}

func (g *Gate) inCooldown(now time.Time) bool {
	return !g.cooldownUntil.IsZero() && now.Before(g.cooldownUntil)
}

// beginCapture is called with the mutex held.
func (g *Gate) beginCapture() {
	g.processing = true
	g.armedAt = nil
	g.state = StateCapturing
}

func (g *Gate) hint(state State) string {
	switch state {
	case StateIdle:
		if !g.lastReading.FaceFound || g.lastReading.FaceConfidence <= g.cfg.ConfidenceThreshold {
			return "face not clear"
		}
		if g.lastReading.SmileScore <= g.cfg.SmileThreshold {
			return "please smile"
		}
		return ""
	case StateFaceQualifying:
		return "hold still"
	case StateCooldown:
		return "captured, please wait"
	default:
		return ""
	}
}
