package usecase

import (
	"strings"

	"mitherapy/internal/domain"
)

// transcriptAggregator joins the final segments of one utterance.
type transcriptAggregator struct {
	finals      []string
	lastPartial string
}

func newTranscriptAggregator() *transcriptAggregator {
	return &transcriptAggregator{}
}

func (a *transcriptAggregator) Add(event domain.TranscriptEvent) {
	text := strings.TrimSpace(event.Text)
	if text == "" {
		return
	}
	switch event.Kind {
	case domain.TranscriptKindFinal:
		a.finals = append(a.finals, text)
		a.lastPartial = ""
	case domain.TranscriptKindPartial:
		a.lastPartial = text
	}
}

func (a *transcriptAggregator) HasFinal() bool {
	return len(a.finals) > 0
}

func (a *transcriptAggregator) Utterance() string {
	return strings.Join(a.finals, " ")
}

// collectUtterance reads provider events until one utterance is complete.
// It reports false when the stream ends without any final text.
func collectUtterance(events <-chan domain.TranscriptEvent, onPartial func(string)) (string, bool) {
	agg := newTranscriptAggregator()
	for event := range events {
		agg.Add(event)
		switch event.Kind {
		case domain.TranscriptKindPartial:
			if text := strings.TrimSpace(event.Text); text != "" && onPartial != nil {
				onPartial(text)
			}
		case domain.TranscriptKindFinal:
			if event.IsSpeechFinal && agg.HasFinal() {
				return agg.Utterance(), true
			}
		case domain.TranscriptKindUtteranceEnd:
			if agg.HasFinal() {
				return agg.Utterance(), true
			}
		}
	}
	if agg.HasFinal() {
		return agg.Utterance(), true
	}
	return "", false
}
