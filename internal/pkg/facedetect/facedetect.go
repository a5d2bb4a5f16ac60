package facedetect

import (
	"context"
)

// Detection is one face found in a frame.
type Detection struct {
	Confidence  float64            `json:"confidence"`
	Expressions map[string]float64 `json:"expressions"`
}

// Smile returns the smile expression score, zero when absent.
func (d Detection) Smile() float64 {
	return d.Expressions["happy"]
}

// Detector evaluates a camera frame for faces. The browser usually runs
// detection itself and posts scores directly; this interface covers
// deployments that delegate detection to a sidecar instead.
type Detector interface {
	Detect(ctx context.Context, frame []byte) ([]Detection, error)
}
