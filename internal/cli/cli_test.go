package cli

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"facesplit/internal/core/models"
	"facesplit/internal/core/processor"
	"facesplit/internal/util/timestamp"
)

func TestParseArgs(t *testing.T) {
	path, specs, err := ParseArgs([]string{"/videos/a.mp4", `[{"start":"00:00:00","end":"00:00:10"},{"start":10,"end":20}]`})
	if err != nil {
		t.Fatal(err)
	}
	if path != "/videos/a.mp4" || len(specs) != 2 {
		t.Fatalf("got %q, %d specs", path, len(specs))
	}
	if specs[0].End.Seconds() != 10 || specs[1].Start.Seconds() != 10 {
		t.Errorf("specs = %+v", specs)
	}
}

func TestParseArgsErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code string
	}{
		{"no args", nil, processor.CodeInvalidArguments},
		{"one arg", []string{"/v.mp4"}, processor.CodeInvalidArguments},
		{"three args", []string{"/v.mp4", "[]", "x"}, processor.CodeInvalidArguments},
		{"empty path", []string{"", "[]"}, processor.CodeInvalidArguments},
		{"not json", []string{"/v.mp4", "segments"}, processor.CodeInvalidSegments},
		{"not a list", []string{"/v.mp4", `{"start":0}`}, processor.CodeInvalidSegments},
		{"bad timestamp", []string{"/v.mp4", `[{"start":"aa:bb"}]`}, processor.CodeMalformedTimestamp},
		{"negative", []string{"/v.mp4", `[{"start":-3}]`}, processor.CodeMalformedTimestamp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseArgs(tt.args)
			var inputErr *processor.InputError
			if !errors.As(err, &inputErr) {
				t.Fatalf("err = %v, want InputError", err)
			}
			if inputErr.Code != tt.code {
				t.Errorf("code = %s, want %s", inputErr.Code, tt.code)
			}
		})
	}
}

func TestWriteResults(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteResults(&buf, nil); err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(buf.String()); got != `{"results":[]}` {
		t.Errorf("empty output = %s", got)
	}

	buf.Reset()
	err := WriteResults(&buf, []models.SegmentResult{{
		SegmentIndex: 0, Start: timestamp.Seconds(0), End: timestamp.Seconds(5), FaceCount: 1, Mode: models.ModeCenter,
	}})
	if err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); !strings.Contains(got, `"mode":"CENTER"`) || !strings.Contains(got, `"boxes":[]`) {
		t.Errorf("output = %s", got)
	}
}

func TestWriteError(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteError(&buf, processor.NewInputError(processor.CodeVideoNotFound, errors.New("video file not found: /x.mp4"))); err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(buf.String()); got != `{"error":"[E044] video file not found: /x.mp4"}` {
		t.Errorf("output = %s", got)
	}
}
