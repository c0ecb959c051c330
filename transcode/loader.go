package transcode

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/RyanBlaney/sonido-drop/logging"
	"github.com/RyanBlaney/sonido-drop/track"
)

// Loader opens audio files as analysis tracks. Wav files are read natively;
// everything else goes through the ffmpeg decoder.
type Loader struct {
	decoder *Decoder
	trim    track.TrimConfig
	logger  logging.Logger
}

// NewLoader creates a loader. A nil decoder uses the default ffmpeg settings.
func NewLoader(decoder *Decoder, trim track.TrimConfig) *Loader {
	if decoder == nil {
		decoder = NewDecoder(nil)
	}
	return &Loader{
		decoder: decoder,
		trim:    trim,
		logger: logging.WithFields(logging.Fields{
			"component": "track_loader",
		}),
	}
}

// Load decodes path into a track. Unsupported extensions fail with
// track.ErrUnsupportedFormat before the file is opened.
func (l *Loader) Load(ctx context.Context, path string) (*track.Track, error) {
	ext := extensionOf(path)
	if !track.IsSupportedExtension(ext) {
		return nil, fmt.Errorf("%w: %s", track.ErrUnsupportedFormat, path)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var decoded track.Decoded
	var err error
	if isWAV(ext) {
		decoded, err = l.loadWAV(path)
	} else {
		decoded, _, err = l.decoder.DecodeFile(ctx, path)
	}
	if err != nil {
		return nil, err
	}

	return l.newTrack(decoded, ext, path)
}

// LoadBytes decodes audio held in memory. ext names the container the
// bytes are in, since there is no file name to take it from.
func (l *Loader) LoadBytes(ctx context.Context, data []byte, ext string) (*track.Track, error) {
	if !track.IsSupportedExtension(ext) {
		return nil, fmt.Errorf("%w: %q", track.ErrUnsupportedFormat, ext)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var decoded track.Decoded
	var err error
	if isWAV(ext) {
		decoded, err = DecodeWAV(bytes.NewReader(data))
	} else {
		decoded, _, err = l.decoder.DecodeBytes(ctx, data)
	}
	if err != nil {
		return nil, err
	}

	return l.newTrack(decoded, ext, "memory")
}

// CheckDecoder verifies ffmpeg is available when any of paths needs it.
// Wav and unsupported files never reach ffmpeg.
func (l *Loader) CheckDecoder(paths []string) error {
	for _, path := range paths {
		ext := extensionOf(path)
		if track.IsSupportedExtension(ext) && !isWAV(ext) {
			return l.decoder.CheckFFmpeg()
		}
	}
	return nil
}

func (l *Loader) newTrack(decoded track.Decoded, ext, source string) (*track.Track, error) {
	l.logger.Debug("Track decoded", logging.Fields{
		"source":      source,
		"samples":     len(decoded.Samples),
		"channels":    decoded.Channels,
		"sample_rate": decoded.SampleRate,
	})

	return track.NewWithConfig(decoded, ext, l.trim)
}

func extensionOf(path string) string {
	return strings.TrimPrefix(filepath.Ext(path), ".")
}

func isWAV(ext string) bool {
	return strings.EqualFold(strings.TrimPrefix(strings.TrimSpace(ext), "."), "wav")
}

func (l *Loader) loadWAV(path string) (track.Decoded, error) {
	file, err := os.Open(path)
	if err != nil {
		return track.Decoded{}, fmt.Errorf("could not open file: %w", err)
	}
	defer file.Close()

	decoded, err := DecodeWAV(file)
	if err != nil {
		return track.Decoded{}, fmt.Errorf("%s: %w", path, err)
	}
	return decoded, nil
}
