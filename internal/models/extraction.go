package models

import "strings"

// ExtractionFields holds the structured fields mined from a radiology
// report. All fields are optional: extraction services differ in what they
// can recover from a given document.
type ExtractionFields struct {
	PatientID       string `json:"patient_id,omitempty"`
	StudyDate       string `json:"study_date,omitempty"`
	StudyType       string `json:"study_type,omitempty"`
	Findings        string `json:"findings,omitempty"`
	Impression      string `json:"impression,omitempty"`
	ClinicalHistory string `json:"clinical_history,omitempty"`
	Technique       string `json:"technique,omitempty"`
}

// ExtractionResult is the outcome of running one document through the
// extraction service. Extra is a side-channel for extractor output that
// does not fit the fixed fields.
type ExtractionResult struct {
	Success bool              `json:"success"`
	Text    string            `json:"text,omitempty"`
	Fields  ExtractionFields  `json:"fields"`
	Extra   map[string]string `json:"extra,omitempty"`
	Error   string            `json:"error,omitempty"`
}

// FindingsText returns the text the classifier scans: the findings section
// followed by the impression section.
func (r *ExtractionResult) FindingsText() string {
	return strings.TrimSpace(r.Fields.Findings + " " + r.Fields.Impression)
}
