package drop

import (
	"errors"

	"github.com/RyanBlaney/sonido-drop/track"
)

var (
	// ErrInvalidTrack is returned when analysis is asked of a track with no
	// samples or no sample rate
	ErrInvalidTrack = track.ErrInvalidTrack

	// ErrUnknownBand is returned for band names missing from the registry
	ErrUnknownBand = errors.New("unknown frequency band")

	// ErrInvalidMode is returned for profile modes other than avg and peak
	ErrInvalidMode = errors.New("invalid profile mode")

	// ErrSensitivityRequired is returned when peak mode runs without a sensitivity
	ErrSensitivityRequired = errors.New("sensitivity required for peak mode")

	// ErrInvalidParameter is returned for out-of-range numeric arguments
	ErrInvalidParameter = errors.New("invalid parameter")
)
