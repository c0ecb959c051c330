package transcode

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/RyanBlaney/sonido-drop/track"
)

// ErrInvalidWAV is returned for streams that are not PCM wav
var ErrInvalidWAV = errors.New("invalid WAV file")

// DecodeWAV reads a PCM wav stream without going through ffmpeg
func DecodeWAV(r io.ReadSeeker) (track.Decoded, error) {
	decoder := wav.NewDecoder(r)
	if !decoder.IsValidFile() {
		return track.Decoded{}, ErrInvalidWAV
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return track.Decoded{}, fmt.Errorf("could not read PCM buffer: %w", err)
	}

	width := int(decoder.BitDepth) / 8
	if width < 1 || width > 4 {
		return track.Decoded{}, fmt.Errorf("%w: unsupported bit depth %d", ErrInvalidWAV, decoder.BitDepth)
	}

	// 8-bit wav is unsigned
	if width == 1 {
		for i := range buf.Data {
			buf.Data[i] -= 128
		}
	}

	return track.Decoded{
		Samples:     buf.Data,
		Channels:    buf.Format.NumChannels,
		SampleWidth: width,
		SampleRate:  buf.Format.SampleRate,
	}, nil
}

// EncodeWAV writes decoded PCM as a wav stream
func EncodeWAV(w io.WriteSeeker, decoded track.Decoded) error {
	if decoded.Channels <= 0 || decoded.SampleRate <= 0 || decoded.SampleWidth < 1 || decoded.SampleWidth > 4 {
		return fmt.Errorf("cannot encode %d channels at %d Hz, %d bytes per sample",
			decoded.Channels, decoded.SampleRate, decoded.SampleWidth)
	}

	encoder := wav.NewEncoder(
		w,
		decoded.SampleRate,
		decoded.SampleWidth*8,
		decoded.Channels,
		1, // PCM
	)

	samples := decoded.Samples
	if decoded.SampleWidth == 1 {
		samples = make([]int, len(decoded.Samples))
		for i, v := range decoded.Samples {
			samples[i] = v + 128
		}
	}

	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: decoded.Channels,
			SampleRate:  decoded.SampleRate,
		},
		Data:           samples,
		SourceBitDepth: decoded.SampleWidth * 8,
	}

	if err := encoder.Write(buf); err != nil {
		return fmt.Errorf("data writing error: %w", err)
	}
	return encoder.Close()
}
