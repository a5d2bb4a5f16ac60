package session

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/gate"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/record"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/geocode"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/sse"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/storage"
)

// EventGateStatus is published on every gate state change; EventCapture
// fires once a capture attempt finishes.
const (
	EventGateStatus = "gate_status"
	EventCapture    = "capture_completed"
)

// Manager owns all live camera sessions. Each session runs a poll loop
// that re-feeds the latest frame reading through the gate so the arm
// delay elapses even when the client stops posting for a moment.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	records   record.RecordService
	employees employee.EmployeeRepository
	resolver  geocode.Resolver
	photos    storage.FileStorage
	hub       *sse.Hub

	gateCfg      gate.Config
	pollInterval time.Duration
	idleTimeout  time.Duration
	location     *time.Location
	logger       *slog.Logger
	now          func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
}

func NewManager(
	records record.RecordService,
	employees employee.EmployeeRepository,
	resolver geocode.Resolver,
	photos storage.FileStorage,
	hub *sse.Hub,
	gateCfg gate.Config,
	pollInterval time.Duration,
	idleTimeout time.Duration,
	location *time.Location,
	logger *slog.Logger,
) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		sessions:     make(map[string]*Session),
		records:      records,
		employees:    employees,
		resolver:     resolver,
		photos:       photos,
		hub:          hub,
		gateCfg:      gateCfg,
		pollInterval: pollInterval,
		idleTimeout:  idleTimeout,
		location:     location,
		logger:       logger,
		now:          time.Now,
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Start opens a camera session for the employee, creating the gate and
// the poll loop. Starting an already open session is a no-op returning
// the current status.
func (m *Manager) Start(ctx context.Context, employeeID string) (gate.Snapshot, error) {
	m.mu.Lock()
	if existing, ok := m.sessions[employeeID]; ok {
		m.mu.Unlock()
		return existing.gate.Status(), nil
	}
	m.mu.Unlock()

	emp, err := m.employees.GetByID(ctx, employeeID)
	if err != nil {
		return gate.Snapshot{}, err
	}
	if !emp.Active {
		return gate.Snapshot{}, employee.ErrEmployeeInactive
	}

	s := newSession(emp, gate.NewGateWithClock(m.gateCfg, m.now), m.now())
	pollCtx, cancelPoll := context.WithCancel(m.ctx)
	s.cancelPoll = cancelPoll

	m.mu.Lock()
	if existing, ok := m.sessions[employeeID]; ok {
		// Lost the race to a concurrent Start.
		m.mu.Unlock()
		cancelPoll()
		return existing.gate.Status(), nil
	}
	m.sessions[employeeID] = s
	m.mu.Unlock()

	go m.pollLoop(pollCtx, employeeID, s)

	m.logger.InfoContext(ctx, "camera session started",
		slog.String("employee_id", employeeID))

	return s.gate.Status(), nil
}

// End tears the session down and cancels its poll loop.
func (m *Manager) End(employeeID string) error {
	m.mu.Lock()
	s, ok := m.sessions[employeeID]
	if ok {
		delete(m.sessions, employeeID)
	}
	m.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}

	s.cancelPoll()
	m.logger.Info("camera session ended", slog.String("employee_id", employeeID))
	return nil
}

// UpdatePosition records the client's coordinates and reverse-geocodes
// them. A geocoding failure leaves the address prerequisite unmet; the
// capture stays blocked rather than recording a wrong address.
func (m *Manager) UpdatePosition(ctx context.Context, employeeID string, latitude, longitude float64) (gate.Snapshot, error) {
	s, err := m.get(employeeID)
	if err != nil {
		return gate.Snapshot{}, err
	}

	address, geoErr := m.resolver.Reverse(ctx, latitude, longitude)
	if geoErr != nil {
		m.logger.WarnContext(ctx, "reverse geocoding failed",
			slog.String("employee_id", employeeID),
			slog.Any("error", geoErr))
	}

	s.mu.Lock()
	s.position = &Position{Latitude: latitude, Longitude: longitude}
	s.address = address
	s.touch(m.now())
	s.mu.Unlock()

	return m.publishStatus(employeeID, s), nil
}

// SetReadiness records whether detection models are loaded and the
// camera stream is live on the client.
func (m *Manager) SetReadiness(employeeID string, modelsLoaded, streamActive bool) (gate.Snapshot, error) {
	s, err := m.get(employeeID)
	if err != nil {
		return gate.Snapshot{}, err
	}

	s.mu.Lock()
	s.modelsLoaded = modelsLoaded
	s.streamActive = streamActive
	s.touch(m.now())
	s.mu.Unlock()

	return m.publishStatus(employeeID, s), nil
}

// SubmitFrame feeds a detector reading through the gate. When the frame
// completes the arm delay an automatic capture runs before returning.
// The optional photo becomes the proof shot of that capture.
func (m *Manager) SubmitFrame(ctx context.Context, employeeID string, reading gate.FrameReading, photo []byte) (gate.Snapshot, error) {
	s, err := m.get(employeeID)
	if err != nil {
		return gate.Snapshot{}, err
	}

	s.mu.Lock()
	s.lastReading = reading
	s.hasReading = true
	s.touch(m.now())
	if len(photo) > 0 {
		if path := m.storePhoto(ctx, employeeID, photo); path != nil {
			s.lastPhotoPath = path
		}
	}
	prereqs := s.prerequisites()
	s.mu.Unlock()

	decision := s.gate.Observe(reading, prereqs)
	if len(decision.SkippedMissing) > 0 {
		m.logger.InfoContext(ctx, "auto capture skipped, prerequisites missing",
			slog.String("employee_id", employeeID),
			slog.Any("missing", decision.SkippedMissing))
	}
	if decision.FireAuto {
		m.runCapture(ctx, employeeID, s, record.CaptureMethodAuto)
	}

	return m.publishStatus(employeeID, s), nil
}

// Capture performs a manual capture. The gate enforces cooldown and
// prerequisite checks; missing prerequisites come back named in a
// PrerequisiteError.
func (m *Manager) Capture(ctx context.Context, employeeID string, photo []byte) (record.AttendanceRecord, error) {
	s, err := m.get(employeeID)
	if err != nil {
		return record.AttendanceRecord{}, err
	}

	s.mu.Lock()
	s.touch(m.now())
	if len(photo) > 0 {
		if path := m.storePhoto(ctx, employeeID, photo); path != nil {
			s.lastPhotoPath = path
		}
	}
	prereqs := s.prerequisites()
	s.mu.Unlock()

	if err := s.gate.RequestManual(prereqs); err != nil {
		return record.AttendanceRecord{}, err
	}

	rec, err := m.runCapture(ctx, employeeID, s, record.CaptureMethodManual)
	m.publishStatus(employeeID, s)
	return rec, err
}

// Status returns the current gate snapshot without advancing anything.
func (m *Manager) Status(employeeID string) (gate.Snapshot, error) {
	s, err := m.get(employeeID)
	if err != nil {
		return gate.Snapshot{}, err
	}
	return s.gate.Status(), nil
}

// Reap ends sessions with no client activity for the idle timeout.
// Registered on the cron scheduler.
func (m *Manager) Reap(ctx context.Context) error {
	cutoff := m.now().Add(-m.idleTimeout)

	m.mu.RLock()
	var stale []string
	for id, s := range m.sessions {
		s.mu.Lock()
		idle := s.lastActivity.Before(cutoff)
		s.mu.Unlock()
		if idle {
			stale = append(stale, id)
		}
	}
	m.mu.RUnlock()

	for _, id := range stale {
		if err := m.End(id); err == nil {
			m.logger.InfoContext(ctx, "reaped idle camera session",
				slog.String("employee_id", id))
		}
	}

	return nil
}

// Shutdown cancels every poll loop.
func (m *Manager) Shutdown() {
	m.cancel()

	m.mu.Lock()
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()
}

func (m *Manager) get(employeeID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[employeeID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// pollLoop re-evaluates the latest reading on a fixed period so timed
// transitions (arm delay expiry, cooldown end) happen between posts.
func (m *Manager) pollLoop(ctx context.Context, employeeID string, s *Session) {
	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			if !s.hasReading {
				s.mu.Unlock()
				continue
			}
			reading := s.lastReading
			prereqs := s.prerequisites()
			s.mu.Unlock()

			decision := s.gate.Observe(reading, prereqs)
			if decision.FireAuto {
				m.runCapture(ctx, employeeID, s, record.CaptureMethodAuto)
			}
			m.publishStatus(employeeID, s)
		}
	}
}

// runCapture builds the draft from the session's current state, hands
// it to the record service and releases the gate into cooldown whatever
// the outcome.
func (m *Manager) runCapture(ctx context.Context, employeeID string, s *Session, method record.CaptureMethod) (record.AttendanceRecord, error) {
	defer s.gate.Complete()

	s.mu.Lock()
	draft := record.CaptureDraft{
		EmployeeID:      s.employee.ID,
		Phone:           s.employee.Phone,
		Name:            s.employee.FullName,
		Timestamp:       m.now().In(m.location),
		CaptureMethod:   method,
		ShiftTiming:     s.employee.ShiftTiming,
		WorkingLocation: s.employee.WorkingLocation,
		Address:         s.address,
		PhotoURL:        s.lastPhotoPath,
	}
	if s.position != nil {
		draft.Latitude = s.position.Latitude
		draft.Longitude = s.position.Longitude
	}
	s.lastPhotoPath = nil
	s.mu.Unlock()

	rec, err := m.records.Capture(ctx, draft)
	if err != nil {
		m.logger.ErrorContext(ctx, "capture failed",
			slog.String("employee_id", employeeID),
			slog.String("method", string(method)),
			slog.Any("error", err))
		return record.AttendanceRecord{}, err
	}

	m.hub.Publish(employeeID, sse.Event{
		EmployeeID: employeeID,
		Event:      EventCapture,
		Data: map[string]interface{}{
			"record_id": rec.ID,
			"method":    string(method),
			"in_time":   rec.InTime,
			"out_time":  rec.OutTime,
		},
	})

	return rec, nil
}

// storePhoto uploads a proof shot, best effort. Returns the stored path
// or nil when the upload fails.
func (m *Manager) storePhoto(ctx context.Context, employeeID string, photo []byte) *string {
	name := fmt.Sprintf("captures/%s/%s.jpg", employeeID, uuid.NewString())
	path, err := m.photos.Upload(ctx, bytes.NewReader(photo), name, "image/jpeg")
	if err != nil {
		m.logger.WarnContext(ctx, "photo upload failed",
			slog.String("employee_id", employeeID),
			slog.Any("error", err))
		return nil
	}
	url := m.photos.URL(path)
	return &url
}

func (m *Manager) publishStatus(employeeID string, s *Session) gate.Snapshot {
	snapshot := s.gate.Status()
	m.hub.Publish(employeeID, sse.Event{
		EmployeeID: employeeID,
		Event:      EventGateStatus,
		Data:       snapshot,
	})
	return snapshot
}
