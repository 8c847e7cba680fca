package extract

import (
	"regexp"
	"strings"

	"github.com/ishan121028/RadiologyAI/internal/models"
)

// Field mining patterns for plain radiology report text. These mirror the
// structure of typical dictated reports: labeled identifiers followed by
// FINDINGS and IMPRESSION sections.
var (
	patientIDPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Patient ID[:\s]+(\w+)`),
		regexp.MustCompile(`(?i)MRN[:\s]+(\w+)`),
		regexp.MustCompile(`(?i)Medical Record[:\s]+(\w+)`),
	}
	studyDatePattern  = regexp.MustCompile(`(\d{1,2}/\d{1,2}/\d{4}|\d{4}-\d{2}-\d{2})`)
	studyTypePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(CT|MRI|X-RAY|ULTRASOUND|PET|MAMMOGRAPHY)\b`),
		regexp.MustCompile(`(?i)\b(Computed Tomography|Magnetic Resonance|Radiograph)\b`),
	}
	findingsPattern   = regexp.MustCompile(`(?is)FINDINGS?[:\s]+(.*?)(?:IMPRESSION|CONCLUSION|$)`)
	impressionPattern = regexp.MustCompile(`(?is)IMPRESSION[:\s]+(.*?)(?:RECOMMENDATION|$)`)
	historyPattern    = regexp.MustCompile(`(?is)(?:CLINICAL HISTORY|HISTORY|INDICATION)[:\s]+(.*?)(?:TECHNIQUE|COMPARISON|FINDINGS|$)`)
	techniquePattern  = regexp.MustCompile(`(?is)TECHNIQUE[:\s]+(.*?)(?:COMPARISON|FINDINGS|$)`)
)

// MineFields extracts structured medical fields from report text. Fields
// that cannot be located are left empty, except the patient ID, which
// falls back to an UNKNOWN marker derived from the filename.
func MineFields(text, filename string) models.ExtractionFields {
	var fields models.ExtractionFields

	for _, p := range patientIDPatterns {
		if m := p.FindStringSubmatch(text); m != nil {
			fields.PatientID = m[1]
			break
		}
	}
	if m := studyDatePattern.FindStringSubmatch(text); m != nil {
		fields.StudyDate = m[1]
	}
	for _, p := range studyTypePatterns {
		if m := p.FindStringSubmatch(text); m != nil {
			fields.StudyType = m[1]
			break
		}
	}
	if m := findingsPattern.FindStringSubmatch(text); m != nil {
		fields.Findings = strings.TrimSpace(m[1])
	}
	if m := impressionPattern.FindStringSubmatch(text); m != nil {
		fields.Impression = strings.TrimSpace(m[1])
	}
	if m := historyPattern.FindStringSubmatch(text); m != nil {
		fields.ClinicalHistory = strings.TrimSpace(m[1])
	}
	if m := techniquePattern.FindStringSubmatch(text); m != nil {
		fields.Technique = strings.TrimSpace(m[1])
	}

	if fields.PatientID == "" {
		stem := filename
		if i := strings.IndexByte(stem, '.'); i >= 0 {
			stem = stem[:i]
		}
		fields.PatientID = "UNKNOWN_" + stem
	}
	return fields
}
