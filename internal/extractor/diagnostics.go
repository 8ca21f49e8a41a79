package extractor

import (
	"strings"
	"unicode/utf8"

	"github.com/arbovm/levenshtein"
	"github.com/codycollier/wer"

	"go-redflag-detector/pkg/models"
)

// Compare scores OCR output against text the user typed for the same chat.
// Returns nil when either side is blank.
func Compare(extracted, reference string) *models.ExtractionDiagnostics {
	hyp := normalize(extracted)
	ref := normalize(reference)
	if hyp == "" || ref == "" {
		return nil
	}

	refWords := strings.Fields(ref)
	wordErrorRate, wordAccuracy := wer.WER(refWords, strings.Fields(hyp))

	return &models.ExtractionDiagnostics{
		ExtractedText: extracted,
		ReferenceText: reference,
		WER:           wordErrorRate,
		WordAccuracy:  wordAccuracy,
		CER:           float64(levenshtein.Distance(ref, hyp)) / float64(utf8.RuneCountInString(ref)),
		WordCount:     len(refWords),
	}
}

// normalize lowercases and collapses whitespace so line breaks from OCR don't count as errors
func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
