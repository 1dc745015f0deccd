package synth

import (
	"errors"
	"fmt"
)

const (
	MinSpeed     = 0.5
	MaxSpeed     = 2.0
	DefaultSpeed = 1.0
)

// ErrSpeedOutOfRange is returned for speaking speeds outside
// [MinSpeed, MaxSpeed].
var ErrSpeedOutOfRange = errors.New("speed must be between 0.5 and 2.0")

// SpeedSteps are the speeds offered to users, slowest first.
var SpeedSteps = []float64{0.5, 0.75, 1.0, 1.25, 1.5, 1.75, 2.0}

// ValidateSpeed checks a speaking speed multiplier.
func ValidateSpeed(speed float64) error {
	if speed < MinSpeed || speed > MaxSpeed {
		return fmt.Errorf("%w, got %.2f", ErrSpeedOutOfRange, speed)
	}
	return nil
}
