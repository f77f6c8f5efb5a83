package analysis

import (
	"bytes"
	"encoding/json"
	"fmt"

	"vidtrack/internal/tracking"
)

// FaceObservation is one face region found in a sampled frame.
type FaceObservation struct {
	Frame     int          `json:"frame"`
	FrameName string       `json:"frame_name"`
	Box       tracking.Box `json:"box"`
}

// Result is the immutable analysis outcome of one job. Absent labels encode
// as JSON null.
type Result struct {
	Faces           []FaceObservation      `json:"faces"`
	Objects         []tracking.Observation `json:"objects"`
	Transcript      string                 `json:"transcript"`
	LabelSource     *string                `json:"label_source"`
	LabelTranslated *string                `json:"label_translated"`
}

// Encode renders the result in its persisted form. Empty sequences encode
// as [] rather than null.
func Encode(r Result) ([]byte, error) {
	if r.Faces == nil {
		r.Faces = []FaceObservation{}
	}
	if r.Objects == nil {
		r.Objects = []tracking.Observation{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r); err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Decode parses a persisted result.
func Decode(data []byte) (Result, error) {
	var r Result
	if err := json.Unmarshal(data, &r); err != nil {
		return Result{}, fmt.Errorf("decode result: %w", err)
	}
	return r, nil
}
