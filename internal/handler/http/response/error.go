package response

import (
	"errors"
	"net/http"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/auth"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/gate"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/record"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/validator"
	"github.com/cmlabs-hris/presence-backend-go/internal/service/session"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	// A manual capture blocked on prerequisites names each missing one.
	var prereqErr *gate.PrerequisiteError
	if errors.As(err, &prereqErr) {
		details := make(map[string]string, len(prereqErr.Missing))
		for _, p := range prereqErr.Missing {
			details[string(p)] = "not ready"
		}
		BadRequest(w, "Capture prerequisites missing", details)
		return
	}

	switch {
	// Auth domain errors
	case errors.Is(err, auth.ErrInvalidCredentials):
		Unauthorized(w, "Invalid credentials")
	case errors.Is(err, auth.ErrTokenExpired):
		Unauthorized(w, "Token expired")
	case errors.Is(err, auth.ErrRefreshTokenRevoked):
		Unauthorized(w, "Refresh token revoked")
	case errors.Is(err, auth.ErrInvalidToken):
		Unauthorized(w, "Invalid or expired token")
	case errors.Is(err, auth.ErrUserNotFound):
		NotFound(w, "User not found")
	case errors.Is(err, user.ErrAdminPrivilegeRequired):
		Forbidden(w, "Admin privilege required")

	// Employee domain errors
	case errors.Is(err, employee.ErrEmployeeNotFound):
		NotFound(w, "Employee not found")
	case errors.Is(err, employee.ErrEmployeeCodeExists):
		Conflict(w, "Employee code already exists")
	case errors.Is(err, employee.ErrPhoneExists):
		Conflict(w, "Phone number already registered")
	case errors.Is(err, employee.ErrEmployeeInactive):
		Forbidden(w, "Employee is inactive")

	// Attendance domain errors
	case errors.Is(err, record.ErrRecordNotFound):
		NotFound(w, "Attendance record not found")
	case errors.Is(err, record.ErrStoreUnavailable):
		ServiceUnavailable(w, "Attendance store unavailable")

	// Capture gate errors
	case errors.Is(err, gate.ErrCooldownActive):
		Conflict(w, "Capture cooldown has not elapsed yet")
	case errors.Is(err, gate.ErrCaptureInProgress):
		Conflict(w, "A capture is already in progress")
	case errors.Is(err, session.ErrSessionNotFound):
		NotFound(w, "No active camera session")

	// Default
	default:
		InternalServerError(w, "An unexpected error occurred")
	}
}
