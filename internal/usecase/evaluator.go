package usecase

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"mitherapy/internal/domain"
)

var apostrophes = strings.NewReplacer("’", "'", "‘", "'", "ʼ", "'")

// Evaluator decides whether a transcript contains the target phrase.
type Evaluator struct {
	phrase  string
	success domain.HapticPattern
	failure domain.HapticPattern
}

func NewEvaluator(phrase string, success, failure domain.HapticPattern) Evaluator {
	return Evaluator{
		phrase:  normalizeSpeech(phrase),
		success: success,
		failure: failure,
	}
}

// Evaluate reports whether the transcript contains the target phrase,
// ignoring case. Both sides have typographic apostrophes folded to ' and
// runs of whitespace collapsed to one space before matching.
func (e Evaluator) Evaluate(transcript string) domain.FeedbackResult {
	normalized := normalizeSpeech(transcript)
	matched := normalized != "" && e.phrase != "" && strings.Contains(normalized, e.phrase)

	result := domain.FeedbackResult{Transcript: transcript, Matched: matched}
	if matched {
		result.Color = domain.FeedbackSuccess
		result.Haptic = append(domain.HapticPattern(nil), e.success...)
	} else {
		result.Color = domain.FeedbackFailure
		result.Haptic = append(domain.HapticPattern(nil), e.failure...)
	}
	return result
}

// Phrase returns the normalized target phrase.
func (e Evaluator) Phrase() string {
	return e.phrase
}

// normalizeSpeech lowercases, folds typographic apostrophes and collapses whitespace.
func normalizeSpeech(text string) string {
	lowered := cases.Lower(language.Und).String(apostrophes.Replace(text))
	return strings.Join(strings.Fields(lowered), " ")
}
