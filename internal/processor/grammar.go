package processor

import (
	"context"
	"fmt"
)

// GrammarCorrector fixes typos, grammar, and punctuation while keeping
// the author's meaning and line structure.
type GrammarCorrector struct {
	core
}

// NewGrammarCorrector builds a grammar processor.
func NewGrammarCorrector(deps Deps, params Params) *GrammarCorrector {
	return &GrammarCorrector{
		core: newCore(KindGrammar, "Grammar corrector", "Invalid response from model", params, deps),
	}
}

// Fix corrects the text. Faults are reported in the Result, never as an
// error.
func (g *GrammarCorrector) Fix(ctx context.Context, text string) Result {
	return g.run(ctx, text, opSpec{
		prompt: func(t string) string { return fmt.Sprintf(grammarPrompt, t) },
		lookup: g.cache.GetGrammar,
		store:  g.cache.PutGrammar,
	})
}

// Process implements Processor.
func (g *GrammarCorrector) Process(ctx context.Context, text string) Result {
	return g.Fix(ctx, text)
}

var _ Processor = (*GrammarCorrector)(nil)
