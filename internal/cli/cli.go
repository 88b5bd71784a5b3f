package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"facesplit/internal/core/models"
	"facesplit/internal/core/processor"
)

// Usage beschreibt den Aufruf im Analysemodus
const Usage = "usage: facesplit [flags] <video_path> <segments_json>"

// Output is the document written to stdout on success.
type Output struct {
	Results []models.SegmentResult `json:"results"`
}

// ErrorOutput is the document written to stdout on failure.
type ErrorOutput struct {
	Error string `json:"error"`
}

// ParseArgs liest Videopfad und Segmentliste aus den Positionsargumenten
func ParseArgs(args []string) (string, []models.SegmentSpec, error) {
	if len(args) != 2 {
		return "", nil, processor.NewInputError(processor.CodeInvalidArguments,
			fmt.Errorf("expected 2 arguments, got %d: %s", len(args), Usage))
	}
	videoPath := args[0]
	if videoPath == "" {
		return "", nil, processor.NewInputError(processor.CodeInvalidArguments, errors.New("video path is empty"))
	}

	var specs []models.SegmentSpec
	if err := json.Unmarshal([]byte(args[1]), &specs); err != nil {
		return "", nil, processor.SegmentsError(fmt.Errorf("invalid segments JSON: %w", err))
	}
	return videoPath, specs, nil
}

// WriteResults schreibt {"results": [...]}
func WriteResults(w io.Writer, results []models.SegmentResult) error {
	if results == nil {
		results = []models.SegmentResult{}
	}
	return json.NewEncoder(w).Encode(Output{Results: results})
}

// WriteError schreibt {"error": "[Exxx] ..."}. Fehler ohne Code werden
// unverändert ausgegeben.
func WriteError(w io.Writer, err error) error {
	return json.NewEncoder(w).Encode(ErrorOutput{Error: err.Error()})
}
