package track

import "errors"

var (
	// ErrUnsupportedFormat is returned for container extensions other than mp3 and wav
	ErrUnsupportedFormat = errors.New("unsupported audio format")

	// ErrInvalidTrack is returned when a track has no samples or no sample rate
	ErrInvalidTrack = errors.New("invalid track")
)
