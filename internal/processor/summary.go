package processor

import (
	"context"
	"fmt"
)

// Summarizer condenses text to its main points. Unlike the other
// operations it has no minimum-output check: a long input legitimately
// shrinks to a few sentences.
type Summarizer struct {
	core
}

// NewSummarizer builds a summarization processor.
func NewSummarizer(deps Deps, params Params) *Summarizer {
	return &Summarizer{
		core: newCore(KindSummary, "Text summarizer", "Empty summary response", params, deps),
	}
}

// Summarize condenses the text. Faults are reported in the Result,
// never as an error.
func (s *Summarizer) Summarize(ctx context.Context, text string) Result {
	return s.run(ctx, text, opSpec{
		prompt: func(t string) string { return fmt.Sprintf(summaryPrompt, t) },
		lookup: s.cache.GetSummary,
		store:  s.cache.PutSummary,
	})
}

// Process implements Processor.
func (s *Summarizer) Process(ctx context.Context, text string) Result {
	return s.Summarize(ctx, text)
}

var _ Processor = (*Summarizer)(nil)
