package timestamp

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrMalformedTimestamp is returned when a value cannot be read as seconds.
var ErrMalformedTimestamp = errors.New("malformed timestamp")

// Parse converts "HH:MM:SS", "MM:SS" or a plain number into seconds.
// Every component may carry a fractional part ("00:01:02.5").
func Parse(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty string", ErrMalformedTimestamp)
	}

	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("%w: %q", ErrMalformedTimestamp, s)
	}

	values := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("%w: %q", ErrMalformedTimestamp, s)
		}
		if v < 0 {
			return 0, fmt.Errorf("%w: negative component in %q", ErrMalformedTimestamp, s)
		}
		values[i] = v
	}

	switch len(values) {
	case 1:
		return values[0], nil
	case 2:
		return values[0]*60 + values[1], nil
	default:
		return values[0]*3600 + values[1]*60 + values[2], nil
	}
}

// Value is a segment boundary as supplied by the caller: either a JSON number
// of seconds or a colon-delimited string. The raw form is kept so results
// echo exactly what was sent.
type Value struct {
	seconds float64
	raw     json.RawMessage
}

// Seconds builds a numeric Value.
func Seconds(s float64) Value {
	return Value{seconds: s}
}

// Seconds returns the normalized number of seconds.
func (v Value) Seconds() float64 {
	return v.seconds
}

// String returns the caller's original text, or the seconds when there is none.
func (v Value) String() string {
	if len(v.raw) > 0 {
		var s string
		if err := json.Unmarshal(v.raw, &s); err == nil {
			return s
		}
		return string(v.raw)
	}
	return strconv.FormatFloat(v.seconds, 'f', -1, 64)
}

// UnmarshalJSON accepts a JSON number or string.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("%w: empty value", ErrMalformedTimestamp)
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedTimestamp, err)
		}
		secs, err := Parse(s)
		if err != nil {
			return err
		}
		v.seconds = secs
	default:
		var f float64
		if err := json.Unmarshal(data, &f); err != nil {
			return fmt.Errorf("%w: %s", ErrMalformedTimestamp, string(data))
		}
		if f < 0 {
			return fmt.Errorf("%w: negative value %s", ErrMalformedTimestamp, string(data))
		}
		v.seconds = f
	}

	v.raw = append(json.RawMessage(nil), data...)
	return nil
}

// MarshalJSON writes the original form back out.
func (v Value) MarshalJSON() ([]byte, error) {
	if len(v.raw) > 0 {
		return v.raw, nil
	}
	return json.Marshal(v.seconds)
}
