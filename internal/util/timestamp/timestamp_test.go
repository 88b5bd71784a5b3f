package timestamp

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"01:02:03", 3723},
		{"02:05", 125},
		{"42", 42},
		{"42.5", 42.5},
		{"00:00:10", 10},
		{" 00:01:02.5 ", 62.5},
		{"1:00:00", 3600},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseMalformed(t *testing.T) {
	for _, in := range []string{"", "abc", "1:2:3:4", "aa:10", "10:", "-5", "00:-1:00"} {
		t.Run(in, func(t *testing.T) {
			if _, err := Parse(in); !errors.Is(err, ErrMalformedTimestamp) {
				t.Errorf("Parse(%q) error = %v, want ErrMalformedTimestamp", in, err)
			}
		})
	}
}

func TestValueJSON(t *testing.T) {
	var seg struct {
		Start *Value `json:"start"`
		End   *Value `json:"end"`
	}
	if err := json.Unmarshal([]byte(`{"start": 42, "end": "00:01:00"}`), &seg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if seg.Start.Seconds() != 42 {
		t.Errorf("start = %v, want 42", seg.Start.Seconds())
	}
	if seg.End.Seconds() != 60 {
		t.Errorf("end = %v, want 60", seg.End.Seconds())
	}

	out, err := json.Marshal(seg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"start":42,"end":"00:01:00"}` {
		t.Errorf("marshal = %s, original form not preserved", out)
	}
}

func TestValueJSONRejectsOtherKinds(t *testing.T) {
	for _, in := range []string{`true`, `{}`, `[1]`, `"x:y"`, `-3`} {
		var v Value
		if err := json.Unmarshal([]byte(in), &v); !errors.Is(err, ErrMalformedTimestamp) {
			t.Errorf("unmarshal %s error = %v, want ErrMalformedTimestamp", in, err)
		}
	}
}

func TestSecondsValue(t *testing.T) {
	v := Seconds(30)
	out, _ := json.Marshal(v)
	if string(out) != "30" {
		t.Errorf("marshal = %s, want 30", out)
	}
	if v.String() != "30" {
		t.Errorf("String() = %q, want 30", v.String())
	}
}
