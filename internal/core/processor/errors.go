package processor

import (
	"errors"
	"fmt"

	"facesplit/internal/util/timestamp"
)

// Fehlercodes an der Prozessgrenze
const (
	CodeVideoOpen          = "E040" // Video kann nicht geöffnet werden
	CodeInvalidArguments   = "E042" // falsche Argumente
	CodeInvalidSegments    = "E043" // Segment-JSON ungültig
	CodeVideoNotFound      = "E044" // Videodatei fehlt
	CodeMalformedTimestamp = "E045" // Zeitstempel nicht lesbar
	CodeDetectorInit       = "E046" // Detektor konnte nicht initialisiert werden
)

var (
	// ErrFrameRead marks a sampled frame that could not be decoded. The frame
	// is left out of the aggregation.
	ErrFrameRead = errors.New("frame read failed")

	// ErrDetection marks a detector failure.
	ErrDetection = errors.New("face detection failed")

	// ErrPoolClosed is returned by a worker pool after Shutdown.
	ErrPoolClosed = errors.New("worker pool is shut down")
)

// InputError is a fatal error found before any segment is processed.
type InputError struct {
	Code string
	Err  error
}

// NewInputError wraps err with a boundary code.
func NewInputError(code string, err error) *InputError {
	return &InputError{Code: code, Err: err}
}

func (e *InputError) Error() string {
	return fmt.Sprintf("[%s] %v", e.Code, e.Err)
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// SegmentsError classifies a failure to decode the segment list. Unreadable
// boundaries are E045, anything else is E043.
func SegmentsError(err error) *InputError {
	if errors.Is(err, timestamp.ErrMalformedTimestamp) {
		return NewInputError(CodeMalformedTimestamp, err)
	}
	return NewInputError(CodeInvalidSegments, err)
}
