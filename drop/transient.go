package drop

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/sonido-drop/logging"
)

// DetectionEvent is one detected rise in band energy. End is the next
// event's time or the observation window end; Bounded is false for a final
// event when no window end was given.
type DetectionEvent struct {
	Start   float64 `json:"start" yaml:"start"`
	End     float64 `json:"end,omitempty" yaml:"end,omitempty"`
	Bounded bool    `json:"bounded" yaml:"bounded"`
}

// Events are the rising edges of an activity sequence, in ascending order
type Events struct {
	Times     []float64 `json:"times" yaml:"times"`
	WindowEnd *float64  `json:"window_end,omitempty" yaml:"window_end,omitempty"`
}

// LocateEvents emits the timestamp of every 0->1 transition in activity,
// including a run starting at the first element. windowEnd, when given,
// marks the end of the observation window; it is never reported as an event.
func LocateEvents(timestamps []float64, activity []int, windowEnd *float64) (*Events, error) {
	if len(timestamps) != len(activity) {
		return nil, fmt.Errorf("%w: %d timestamps but %d activity values",
			ErrInvalidParameter, len(timestamps), len(activity))
	}

	times := []float64{}
	armed := true
	for i, a := range activity {
		if i > 0 && !(timestamps[i] > timestamps[i-1]) {
			return nil, fmt.Errorf("%w: timestamps not strictly ascending at %d", ErrInvalidParameter, i)
		}

		switch a {
		case 1:
			if armed {
				times = append(times, timestamps[i])
				armed = false
			}
		case 0:
			armed = true
		default:
			return nil, fmt.Errorf("%w: activity[%d] = %d, want 0 or 1", ErrInvalidParameter, i, a)
		}
	}

	if windowEnd != nil {
		end := *windowEnd
		if math.IsNaN(end) || (len(times) > 0 && end < times[len(times)-1]) {
			return nil, fmt.Errorf("%w: window end %v precedes the last event", ErrInvalidParameter, end)
		}
		windowEnd = &end
	}

	return &Events{Times: times, WindowEnd: windowEnd}, nil
}

// Len returns the number of events
func (e *Events) Len() int { return len(e.Times) }

// First returns the earliest event, the drop candidate
func (e *Events) First() (float64, bool) {
	if len(e.Times) == 0 {
		return 0, false
	}
	return e.Times[0], true
}

// Limits returns the event times followed by the window end, if one was
// given. Without events it is empty whatever the window end.
func (e *Events) Limits() []float64 {
	if len(e.Times) == 0 {
		return []float64{}
	}

	limits := make([]float64, 0, len(e.Times)+1)
	limits = append(limits, e.Times...)
	if e.WindowEnd != nil {
		limits = append(limits, *e.WindowEnd)
	}
	return limits
}

// Segments pairs every event with the time the next one starts
func (e *Events) Segments() []DetectionEvent {
	segments := make([]DetectionEvent, len(e.Times))
	for i, start := range e.Times {
		segments[i] = DetectionEvent{Start: start}
		switch {
		case i+1 < len(e.Times):
			segments[i].End = e.Times[i+1]
			segments[i].Bounded = true
		case e.WindowEnd != nil:
			segments[i].End = *e.WindowEnd
			segments[i].Bounded = true
		}
	}
	return segments
}

// TransientLocator extracts drop candidates from activity profiles
type TransientLocator struct {
	logger logging.Logger
}

// NewTransientLocator creates a transient locator
func NewTransientLocator() *TransientLocator {
	return &TransientLocator{
		logger: logging.WithFields(logging.Fields{
			"component": "transient_locator",
		}),
	}
}

// Locate runs LocateEvents over a peak-mode profile
func (tl *TransientLocator) Locate(profile *ActivitySequence, windowEnd *float64) (*Events, error) {
	if profile == nil {
		return nil, fmt.Errorf("%w: nil activity profile", ErrInvalidParameter)
	}

	events, err := LocateEvents(profile.Timestamps, profile.Activity, windowEnd)
	if err != nil {
		return nil, err
	}

	tl.logger.Debug("Events located", logging.Fields{
		"band":   profile.Band.Name,
		"events": events.Len(),
	})
	return events, nil
}
