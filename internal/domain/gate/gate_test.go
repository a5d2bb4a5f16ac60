package gate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testConfig = Config{
	ConfidenceThreshold: 0.72,
	SmileThreshold:      0.58,
	ArmDelay:            2 * time.Second,
	Cooldown:            5 * time.Second,
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func newTestGate() (*Gate, *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)}
	g := NewGate(testConfig)
	g.now = clock.Now
	return g, clock
}

func qualifyingFrame() FrameReading {
	return FrameReading{FaceFound: true, FaceConfidence: 0.85, SmileScore: 0.7}
}

func allReady() Prerequisites {
	return Prerequisites{Position: true, Address: true, ModelsLoaded: true, StreamActive: true}
}

func TestGate_AutoCapture_FiresAfterHold(t *testing.T) {
	g, clock := newTestGate()

	d := g.Observe(qualifyingFrame(), allReady())
	assert.Equal(t, StateFaceQualifying, d.State)
	assert.False(t, d.FireAuto)

	clock.Advance(1 * time.Second)
	d = g.Observe(qualifyingFrame(), allReady())
	assert.Equal(t, StateFaceQualifying, d.State)
	assert.False(t, d.FireAuto)

	clock.Advance(1100 * time.Millisecond)
	d = g.Observe(qualifyingFrame(), allReady())
	assert.True(t, d.FireAuto)
	assert.Equal(t, StateCapturing, d.State)
	assert.True(t, g.Status().Processing)
}

func TestGate_HoldCancel_DisqualifyingFrameResetsArm(t *testing.T) {
	g, clock := newTestGate()

	g.Observe(qualifyingFrame(), allReady())

	// Employee stops smiling before the hold elapses.
	clock.Advance(1 * time.Second)
	d := g.Observe(FrameReading{FaceFound: true, FaceConfidence: 0.85, SmileScore: 0.2}, allReady())
	assert.Equal(t, StateIdle, d.State)

	// Requalifying starts the hold over; the old timer must not fire.
	clock.Advance(200 * time.Millisecond)
	d = g.Observe(qualifyingFrame(), allReady())
	assert.Equal(t, StateFaceQualifying, d.State)
	assert.False(t, d.FireAuto)

	clock.Advance(1900 * time.Millisecond)
	d = g.Observe(qualifyingFrame(), allReady())
	assert.Equal(t, StateFaceQualifying, d.State)
	assert.False(t, d.FireAuto)
}

func TestGate_SmileBelowThreshold_NeverArms(t *testing.T) {
	g, clock := newTestGate()

	// Confidence 0.8, smile 0.5: held for 3s, well past the arm delay.
	frame := FrameReading{FaceFound: true, FaceConfidence: 0.8, SmileScore: 0.5}
	for i := 0; i < 3; i++ {
		d := g.Observe(frame, allReady())
		assert.Equal(t, StateIdle, d.State)
		assert.False(t, d.FireAuto)
		clock.Advance(1 * time.Second)
	}
	assert.Equal(t, "please smile", g.Status().Hint)
}

func TestGate_NoFace_HintsFaceNotClear(t *testing.T) {
	g, _ := newTestGate()

	g.Observe(FrameReading{FaceFound: false}, allReady())
	assert.Equal(t, "face not clear", g.Status().Hint)
}

func TestGate_AutoCapture_MissingPrereq_SilentSkip(t *testing.T) {
	g, clock := newTestGate()

	prereqs := allReady()
	prereqs.Address = false

	g.Observe(qualifyingFrame(), prereqs)
	clock.Advance(2100 * time.Millisecond)
	d := g.Observe(qualifyingFrame(), prereqs)

	assert.False(t, d.FireAuto)
	assert.Equal(t, StateIdle, d.State)
	assert.Equal(t, []Prerequisite{PrereqAddress}, d.SkippedMissing)
	assert.False(t, g.Status().Processing)
}

func TestGate_ManualCapture_MissingPrereq_ReportsReason(t *testing.T) {
	g, _ := newTestGate()

	prereqs := allReady()
	prereqs.Position = false
	prereqs.ModelsLoaded = false

	err := g.RequestManual(prereqs)
	require.Error(t, err)

	var prereqErr *PrerequisiteError
	require.ErrorAs(t, err, &prereqErr)
	assert.ElementsMatch(t, []Prerequisite{PrereqPosition, PrereqModels}, prereqErr.Missing)
}

func TestGate_ManualCapture_AcceptedFromFaceQualifying(t *testing.T) {
	g, _ := newTestGate()

	d := g.Observe(qualifyingFrame(), allReady())
	require.Equal(t, StateFaceQualifying, d.State)

	err := g.RequestManual(allReady())
	assert.NoError(t, err)
	assert.Equal(t, StateCapturing, g.Status().State)
}

func TestGate_ManualCapture_RejectedWhileCapturing(t *testing.T) {
	g, _ := newTestGate()

	require.NoError(t, g.RequestManual(allReady()))
	err := g.RequestManual(allReady())
	assert.ErrorIs(t, err, ErrCaptureInProgress)
}

func TestGate_Cooldown_BlocksAutoAndManual(t *testing.T) {
	g, clock := newTestGate()

	require.NoError(t, g.RequestManual(allReady()))
	g.Complete()

	// Within cooldown: manual rejected, auto never fires.
	clock.Advance(3 * time.Second)
	err := g.RequestManual(allReady())
	assert.ErrorIs(t, err, ErrCooldownActive)

	d := g.Observe(qualifyingFrame(), allReady())
	assert.Equal(t, StateCooldown, d.State)
	assert.False(t, d.FireAuto)

	// After cooldown the hold starts from scratch.
	clock.Advance(2100 * time.Millisecond)
	d = g.Observe(qualifyingFrame(), allReady())
	assert.Equal(t, StateFaceQualifying, d.State)
	assert.False(t, d.FireAuto)

	clock.Advance(2100 * time.Millisecond)
	d = g.Observe(qualifyingFrame(), allReady())
	assert.True(t, d.FireAuto)
}

func TestGate_Cooldown_AppliesAfterFailedCaptureToo(t *testing.T) {
	g, clock := newTestGate()

	require.NoError(t, g.RequestManual(allReady()))
	// The capture fails; Complete is called regardless of outcome.
	g.Complete()

	clock.Advance(1 * time.Second)
	assert.ErrorIs(t, g.RequestManual(allReady()), ErrCooldownActive)

	clock.Advance(4100 * time.Millisecond)
	assert.NoError(t, g.RequestManual(allReady()))
}

func TestGate_PollTicksIgnoredWhileProcessing(t *testing.T) {
	g, clock := newTestGate()

	require.NoError(t, g.RequestManual(allReady()))

	// Overlapping poll evaluations must not start a second capture.
	for i := 0; i < 5; i++ {
		clock.Advance(1100 * time.Millisecond)
		d := g.Observe(qualifyingFrame(), allReady())
		assert.Equal(t, StateCapturing, d.State)
		assert.False(t, d.FireAuto)
	}
}

func TestGate_Reset_ClearsEverything(t *testing.T) {
	g, _ := newTestGate()

	require.NoError(t, g.RequestManual(allReady()))
	g.Complete()
	g.Reset()

	snap := g.Status()
	assert.Equal(t, StateIdle, snap.State)
	assert.False(t, snap.Processing)
	assert.Nil(t, snap.CooldownUntil)

	// A fresh capture is accepted immediately after reset.
	assert.NoError(t, g.RequestManual(allReady()))
}
