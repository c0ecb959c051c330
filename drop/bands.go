package drop

import (
	"fmt"
	"io"
	"math"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// FrequencyBand is a named half-open range [StartHz, StopHz)
type FrequencyBand struct {
	Name    string  `json:"name" yaml:"name"`
	StartHz float64 `json:"start_hz" yaml:"start_hz"`
	StopHz  float64 `json:"stop_hz" yaml:"stop_hz"`
}

// Predefined bands
var (
	BandBass          = FrequencyBand{Name: "bass", StartHz: 50, StopHz: 80}
	BandHeavy         = FrequencyBand{Name: "heavy", StartHz: 101, StopHz: 250}
	BandWholeSpectrum = FrequencyBand{Name: "whole_spectrum", StartHz: 20, StopHz: 12000}
)

// Validate checks that the band has a name and a non-empty positive range
func (b FrequencyBand) Validate() error {
	if b.Name == "" {
		return fmt.Errorf("%w: band name is empty", ErrInvalidParameter)
	}
	if math.IsNaN(b.StartHz) || math.IsNaN(b.StopHz) || b.StartHz < 0 || b.StopHz <= b.StartHz {
		return fmt.Errorf("%w: band %q has invalid range [%v, %v)", ErrInvalidParameter, b.Name, b.StartHz, b.StopHz)
	}
	return nil
}

// BandRegistry maps band names to frequency ranges. It is safe for
// concurrent use.
type BandRegistry struct {
	mu    sync.RWMutex
	bands map[string]FrequencyBand
}

// NewBandRegistry creates a registry holding the predefined bands
func NewBandRegistry() *BandRegistry {
	r := &BandRegistry{bands: make(map[string]FrequencyBand)}
	for _, b := range []FrequencyBand{BandBass, BandHeavy, BandWholeSpectrum} {
		r.bands[b.Name] = b
	}
	return r
}

// DefaultBands is the registry used when none is supplied
var DefaultBands = NewBandRegistry()

// Register adds or replaces a band
func (r *BandRegistry) Register(b FrequencyBand) error {
	if err := b.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.bands[b.Name] = b
	return nil
}

// Lookup resolves a band by name
func (r *BandRegistry) Lookup(name string) (FrequencyBand, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.bands[name]
	if !ok {
		return FrequencyBand{}, fmt.Errorf("%w: %q", ErrUnknownBand, name)
	}
	return b, nil
}

// Bands returns every registered band ordered by start frequency, then name
func (r *BandRegistry) Bands() []FrequencyBand {
	r.mu.RLock()
	bands := make([]FrequencyBand, 0, len(r.bands))
	for _, b := range r.bands {
		bands = append(bands, b)
	}
	r.mu.RUnlock()

	sort.Slice(bands, func(i, j int) bool {
		if bands[i].StartHz != bands[j].StartHz {
			return bands[i].StartHz < bands[j].StartHz
		}
		return bands[i].Name < bands[j].Name
	})
	return bands
}

type bandFile struct {
	Bands []FrequencyBand `yaml:"bands"`
}

// LoadBands reads band definitions from YAML of the form
//
//	bands:
//	  - name: sub
//	    start_hz: 20
//	    stop_hz: 50
//
// and registers them. Nothing is registered if any band is invalid.
func (r *BandRegistry) LoadBands(reader io.Reader) ([]FrequencyBand, error) {
	var file bandFile
	if err := yaml.NewDecoder(reader).Decode(&file); err != nil {
		if err == io.EOF {
			return []FrequencyBand{}, nil
		}
		return nil, fmt.Errorf("failed to decode band file: %w", err)
	}

	for _, b := range file.Bands {
		if err := b.Validate(); err != nil {
			return nil, err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range file.Bands {
		r.bands[b.Name] = b
	}
	return file.Bands, nil
}
