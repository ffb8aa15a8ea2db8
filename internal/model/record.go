package model

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
)

// ExtractedRecord is a hierarchical mapping of attribute name to value:
// string, number, nested mapping, or list of mappings. Both the actual and
// the expected side of a section use this shape.
type ExtractedRecord map[string]any

// SectionRecord identifies a classified region of a document and owns one
// actual/expected record pair. A nil Expected marks an absent baseline.
type SectionRecord struct {
	SectionID string          `json:"section_id"`
	Class     string          `json:"class"`
	Actual    ExtractedRecord `json:"actual"`
	Expected  ExtractedRecord `json:"expected"`

	// Confidence values reported by the upstream extractor, keyed by
	// attribute name. Passed through to the evaluation output untouched.
	Confidence          map[string]float64 `json:"confidence,omitempty"`
	ConfidenceThreshold *float64           `json:"confidence_threshold,omitempty"`
}

// DocumentRecord owns an ordered set of section records plus the document
// identifier assigned by the upstream pipeline.
type DocumentRecord struct {
	DocumentID string          `json:"document_id"`
	Sections   []SectionRecord `json:"sections"`
}

// DecodeDocument reads a DocumentRecord from JSON and applies basic
// structural validation. A document that fails here is terminally FAILED;
// it never reaches attribute evaluation.
func DecodeDocument(r io.Reader) (*DocumentRecord, error) {
	var doc DocumentRecord
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, eris.Wrap(err, "model: decode document record")
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate checks the structural invariants of a document record.
func (d *DocumentRecord) Validate() error {
	if d.DocumentID == "" {
		return eris.New("model: document record missing document_id")
	}
	seen := make(map[string]bool, len(d.Sections))
	for i, s := range d.Sections {
		if s.SectionID == "" {
			return eris.Errorf("model: section %d missing section_id", i)
		}
		if seen[s.SectionID] {
			return eris.Errorf("model: duplicate section_id %s", s.SectionID)
		}
		seen[s.SectionID] = true
	}
	return nil
}

// HasBaseline reports whether any section carries an expected record.
func (d *DocumentRecord) HasBaseline() bool {
	for _, s := range d.Sections {
		if s.Expected != nil {
			return true
		}
	}
	return false
}
