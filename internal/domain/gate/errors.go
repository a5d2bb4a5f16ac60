package gate

import (
	"errors"
	"fmt"
	"strings"
)

// Capture gate domain errors
var (
	ErrCaptureInProgress = errors.New("a capture is already in progress")
	ErrCooldownActive    = errors.New("capture cooldown has not elapsed yet")
)

// PrerequisiteError reports which prerequisites block a manual capture.
type PrerequisiteError struct {
	Missing []Prerequisite
}

func (e *PrerequisiteError) Error() string {
	names := make([]string, 0, len(e.Missing))
	for _, p := range e.Missing {
		names = append(names, string(p))
	}
	return fmt.Sprintf("capture prerequisites missing: %s", strings.Join(names, ", "))
}
