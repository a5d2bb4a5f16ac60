package http

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/auth"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/gate"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/record"
	"github.com/cmlabs-hris/presence-backend-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/presence-backend-go/internal/handler/http/response"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/facedetect"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/sse"
	"github.com/cmlabs-hris/presence-backend-go/internal/service/session"
)

type AttendanceHandler interface {
	StartSession(w http.ResponseWriter, r *http.Request)
	SessionStatus(w http.ResponseWriter, r *http.Request)
	EndSession(w http.ResponseWriter, r *http.Request)
	UpdatePosition(w http.ResponseWriter, r *http.Request)
	SetReadiness(w http.ResponseWriter, r *http.Request)
	SubmitFrame(w http.ResponseWriter, r *http.Request)
	Capture(w http.ResponseWriter, r *http.Request)
	GateEvents(w http.ResponseWriter, r *http.Request)
	MyRecords(w http.ResponseWriter, r *http.Request)
	List(w http.ResponseWriter, r *http.Request)
}

type AttendanceHandlerImpl struct {
	sessions      *session.Manager
	recordService record.RecordService
	jwtService    jwt.Service
	hub           *sse.Hub
	detector      facedetect.Detector
}

// NewAttendanceHandler wires the attendance surface. The detector is
// optional; when present, frames posted without client-side scores get
// evaluated server-side.
func NewAttendanceHandler(sessions *session.Manager, recordService record.RecordService, jwtService jwt.Service, hub *sse.Hub, detector facedetect.Detector) AttendanceHandler {
	return &AttendanceHandlerImpl{
		sessions:      sessions,
		recordService: recordService,
		jwtService:    jwtService,
		hub:           hub,
		detector:      detector,
	}
}

type positionRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type readinessRequest struct {
	ModelsLoaded bool `json:"models_loaded"`
	StreamActive bool `json:"stream_active"`
}

type frameRequest struct {
	FaceFound      bool    `json:"face_found"`
	FaceConfidence float64 `json:"face_confidence"`
	SmileScore     float64 `json:"smile_score"`
	Photo          string  `json:"photo,omitempty"`
}

type captureRequest struct {
	Photo string `json:"photo,omitempty"`
}

// StartSession implements AttendanceHandler.
func (h *AttendanceHandlerImpl) StartSession(w http.ResponseWriter, r *http.Request) {
	employeeID := middleware.EmployeeID(r)

	snapshot, err := h.sessions.Start(r.Context(), employeeID)
	if err != nil {
		slog.Error("StartSession service error", "error", err)
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Camera session started", snapshot)
}

// SessionStatus implements AttendanceHandler. Clients reconnecting to the
// event stream fetch the current gate state here first.
func (h *AttendanceHandlerImpl) SessionStatus(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.sessions.Status(middleware.EmployeeID(r))
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.Success(w, snapshot)
}

// EndSession implements AttendanceHandler.
func (h *AttendanceHandlerImpl) EndSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.End(middleware.EmployeeID(r)); err != nil {
		response.HandleError(w, err)
		return
	}
	response.SuccessWithMessage(w, "Camera session ended", nil)
}

// UpdatePosition implements AttendanceHandler.
func (h *AttendanceHandlerImpl) UpdatePosition(w http.ResponseWriter, r *http.Request) {
	var req positionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	snapshot, err := h.sessions.UpdatePosition(r.Context(), middleware.EmployeeID(r), req.Latitude, req.Longitude)
	if err != nil {
		slog.Error("UpdatePosition service error", "error", err)
		response.HandleError(w, err)
		return
	}

	response.Success(w, snapshot)
}

// SetReadiness implements AttendanceHandler.
func (h *AttendanceHandlerImpl) SetReadiness(w http.ResponseWriter, r *http.Request) {
	var req readinessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	snapshot, err := h.sessions.SetReadiness(middleware.EmployeeID(r), req.ModelsLoaded, req.StreamActive)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, snapshot)
}

// SubmitFrame implements AttendanceHandler.
func (h *AttendanceHandlerImpl) SubmitFrame(w http.ResponseWriter, r *http.Request) {
	var req frameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	photo, err := decodePhoto(req.Photo)
	if err != nil {
		response.BadRequest(w, "Invalid photo encoding", nil)
		return
	}

	reading := gate.FrameReading{
		FaceFound:      req.FaceFound,
		FaceConfidence: req.FaceConfidence,
		SmileScore:     req.SmileScore,
	}

	// Frames carrying only an image are evaluated server-side.
	if !req.FaceFound && len(photo) > 0 && h.detector != nil {
		detections, err := h.detector.Detect(r.Context(), photo)
		if err != nil {
			slog.Error("SubmitFrame detection error", "error", err)
			response.ServiceUnavailable(w, "Face detector unavailable")
			return
		}
		if len(detections) > 0 {
			best := detections[0]
			for _, d := range detections[1:] {
				if d.Confidence > best.Confidence {
					best = d
				}
			}
			reading = gate.FrameReading{
				FaceFound:      true,
				FaceConfidence: best.Confidence,
				SmileScore:     best.Smile(),
			}
		}
	}

	snapshot, err := h.sessions.SubmitFrame(r.Context(), middleware.EmployeeID(r), reading, photo)
	if err != nil {
		slog.Error("SubmitFrame service error", "error", err)
		response.HandleError(w, err)
		return
	}

	response.Success(w, snapshot)
}

// Capture implements AttendanceHandler. Manual trigger.
func (h *AttendanceHandlerImpl) Capture(w http.ResponseWriter, r *http.Request) {
	var req captureRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.BadRequest(w, "Invalid request format", nil)
			return
		}
	}

	photo, err := decodePhoto(req.Photo)
	if err != nil {
		response.BadRequest(w, "Invalid photo encoding", nil)
		return
	}

	rec, err := h.sessions.Capture(r.Context(), middleware.EmployeeID(r), photo)
	if err != nil {
		slog.Error("Capture service error", "error", err)
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Capture recorded", rec)
}

// GateEvents implements AttendanceHandler. Streams gate status changes
// over SSE, authenticated by a short-lived token in the query string.
func (h *AttendanceHandlerImpl) GateEvents(w http.ResponseWriter, r *http.Request) {
	employeeID, err := h.jwtService.ValidateSSEToken(r.URL.Query().Get("token"))
	if err != nil {
		response.HandleError(w, auth.ErrInvalidToken)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		response.InternalServerError(w, "Streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	events, cleanup := h.hub.Subscribe(employeeID)
	defer cleanup()

	fmt.Fprintf(w, "event: connected\ndata: {\"status\":\"connected\",\"employee_id\":\"%s\"}\n\n", employeeID)
	flusher.Flush()

	keepalive := time.NewTicker(30 * time.Second)
	defer keepalive.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(event.Data)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Event, data)
			flusher.Flush()

		case <-keepalive.C:
			fmt.Fprintf(w, "event: ping\ndata: {\"timestamp\":%d}\n\n", time.Now().Unix())
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

// MyRecords implements AttendanceHandler.
func (h *AttendanceHandlerImpl) MyRecords(w http.ResponseWriter, r *http.Request) {
	filter := parseRecordFilter(r)

	resp, err := h.recordService.GetMyRecords(r.Context(), middleware.EmployeeID(r), filter)
	if err != nil {
		slog.Error("MyRecords service error", "error", err)
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, resp.Records, &response.Meta{
		Page:       resp.Page,
		Limit:      resp.Limit,
		TotalItems: resp.TotalCount,
		TotalPages: resp.TotalPages,
	})
}

// List implements AttendanceHandler. Admin browse.
func (h *AttendanceHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	filter := parseRecordFilter(r)

	resp, err := h.recordService.ListRecords(r.Context(), filter)
	if err != nil {
		slog.Error("List records service error", "error", err)
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, resp.Records, &response.Meta{
		Page:       resp.Page,
		Limit:      resp.Limit,
		TotalItems: resp.TotalCount,
		TotalPages: resp.TotalPages,
	})
}

func parseRecordFilter(r *http.Request) record.RecordFilter {
	q := r.URL.Query()

	var filter record.RecordFilter
	if v := q.Get("employee_id"); v != "" {
		filter.EmployeeID = &v
	}
	if v := q.Get("name"); v != "" {
		filter.Name = &v
	}
	if v := q.Get("date"); v != "" {
		filter.Date = &v
	}
	if v := q.Get("start_date"); v != "" {
		filter.StartDate = &v
	}
	if v := q.Get("end_date"); v != "" {
		filter.EndDate = &v
	}
	if v := q.Get("method"); v != "" {
		filter.Method = &v
	}
	filter.SortBy = q.Get("sort_by")
	filter.SortOrder = q.Get("sort_order")
	filter.Page = parseIntOrDefault(q.Get("page"), 0)
	filter.Limit = parseIntOrDefault(q.Get("limit"), 0)

	return filter
}

func parseIntOrDefault(s string, def int) int {
	if s == "" {
		return def
	}
	var n int
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
		return def
	}
	return n
}

func decodePhoto(encoded string) ([]byte, error) {
	if encoded == "" {
		return nil, nil
	}
	return base64.StdEncoding.DecodeString(encoded)
}
