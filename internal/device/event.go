package device

import (
	"encoding/json"
	"fmt"
)

// EventKind discriminates sensor transitions.
type EventKind int

const (
	// SensorFlexed reports a sensor crossing its trigger threshold.
	SensorFlexed EventKind = iota
	// SensorExtended reports a sensor falling back below its release threshold.
	SensorExtended
)

func (k EventKind) String() string {
	switch k {
	case SensorFlexed:
		return "flexed"
	case SensorExtended:
		return "extended"
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// Event is one raw, timestamp-free sensor transition as reported by the
// device.
type Event struct {
	Kind   EventKind
	Sensor uint8
}

func (e Event) String() string { return fmt.Sprintf("%s(%d)", e.Kind, e.Sensor) }

// The wire form is a single-key object tagging the transition kind:
// {"flexed": 3} or {"extended": 0}. A null line means "no event pending".
func decodeEvent(command string, line []byte) (*Event, error) {
	var tagged map[string]uint8
	if err := json.Unmarshal(line, &tagged); err != nil {
		return nil, &ProtocolError{Command: command, Detail: "malformed event", Err: err}
	}
	if tagged == nil {
		return nil, nil
	}
	if len(tagged) != 1 {
		return nil, &ProtocolError{Command: command, Detail: fmt.Sprintf("event with %d tags", len(tagged))}
	}

	for tag, id := range tagged {
		switch tag {
		case "flexed":
			return &Event{Kind: SensorFlexed, Sensor: id}, nil
		case "extended":
			return &Event{Kind: SensorExtended, Sensor: id}, nil
		default:
			return nil, &ProtocolError{Command: command, Detail: fmt.Sprintf("unknown event tag %q", tag)}
		}
	}
	return nil, nil
}
