package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AnalysisRun repräsentiert einen Analyse-Lauf über ein Video
type AnalysisRun struct {
	gorm.Model
	VideoPath    string          `gorm:"index;not null"`
	Detector     string          `gorm:"index"` // z.B. 'haar', 'dnn', 'pigo'
	SegmentCount int             // Anzahl der Eingabesegmente
	StartedAt    time.Time       `gorm:"index"`
	FinishedAt   time.Time
	Segments     []SegmentRecord `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE;"`
}

// SegmentRecord is a persisted SegmentResult.
type SegmentRecord struct {
	gorm.Model
	RunID        uint           `gorm:"index;not null"`
	SegmentIndex int            `gorm:"index"`
	StartSeconds float64
	EndSeconds   float64
	FaceCount    int
	Mode         string         `gorm:"index"`
	Boxes        datatypes.JSON `gorm:"type:json"` // JSON-Array von RelativeBox
}

// NewSegmentRecord converts a result into its database form.
func NewSegmentRecord(runID uint, r SegmentResult) (SegmentRecord, error) {
	boxes := r.Boxes
	if boxes == nil {
		boxes = []RelativeBox{}
	}
	raw, err := json.Marshal(boxes)
	if err != nil {
		return SegmentRecord{}, err
	}
	return SegmentRecord{
		RunID:        runID,
		SegmentIndex: r.SegmentIndex,
		StartSeconds: r.Start.Seconds(),
		EndSeconds:   r.End.Seconds(),
		FaceCount:    r.FaceCount,
		Mode:         string(r.Mode),
		Boxes:        datatypes.JSON(raw),
	}, nil
}

// DecodeBoxes returns the stored boxes.
func (s SegmentRecord) DecodeBoxes() ([]RelativeBox, error) {
	boxes := []RelativeBox{}
	if len(s.Boxes) == 0 {
		return boxes, nil
	}
	if err := json.Unmarshal(s.Boxes, &boxes); err != nil {
		return nil, err
	}
	return boxes, nil
}
