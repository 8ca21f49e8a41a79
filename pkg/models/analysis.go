package models

// VerdictSource identifies which producer built a verdict
type VerdictSource string

const (
	// SourceRemote marks a verdict returned by the scoring webhook
	SourceRemote VerdictSource = "remote"
	// SourceSynthetic marks a locally generated fallback verdict
	SourceSynthetic VerdictSource = "synthetic"
)

// Verdict is the red-flag assessment shown to the user.
// Remote verdicts may carry Advice; synthetic ones carry a Comment and an
// Illustration instead.
type Verdict struct {
	Score        int           `json:"score"`
	Type         string        `json:"type"`
	Advice       string        `json:"advice,omitempty"`
	Comment      string        `json:"comment,omitempty"`
	Illustration string        `json:"illustration,omitempty"`
	Source       VerdictSource `json:"source"`
}

// InputSource records which input fed the scorer
type InputSource string

const (
	InputImage   InputSource = "image"
	InputMessage InputSource = "message"
)

// ExtractionDiagnostics compares OCR output against the message the user typed.
// Error rates are 0 for a perfect match and may exceed 1.
type ExtractionDiagnostics struct {
	ExtractedText string  `json:"extracted_text"`
	ReferenceText string  `json:"reference_text"`
	WER           float64 `json:"word_error_rate"`
	WordAccuracy  float64 `json:"word_accuracy"`
	CER           float64 `json:"character_error_rate"`
	WordCount     int     `json:"word_count"`
}
