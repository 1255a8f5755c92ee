package processor

import (
	"context"
	"fmt"
	"strings"
)

// ToneChanger rewrites text toward a requested tone. Only ToneFormal is
// implemented; other targets fail with an unsupported-tone Result.
type ToneChanger struct {
	core
}

// NewToneChanger builds a tone processor.
func NewToneChanger(deps Deps, params Params) *ToneChanger {
	return &ToneChanger{
		core: newCore(KindTone, "Tone changer", "Invalid tone change response", params, deps),
	}
}

// Change rewrites the text toward tone. Tone matching is
// case-insensitive, but the cache key keeps the tone string as given,
// so differently spelled targets occupy separate cache entries.
func (tc *ToneChanger) Change(ctx context.Context, text string, tone Tone) Result {
	return tc.run(ctx, text, opSpec{
		prompt: func(t string) string { return fmt.Sprintf(tonePrompt, t) },
		lookup: func(t string) (string, bool) { return tc.cache.GetTone(t, string(tone)) },
		store:  func(t, out string) { tc.cache.PutTone(t, string(tone), out) },
		gate: func() (FailureKind, string) {
			if !strings.EqualFold(string(tone), string(ToneFormal)) {
				return FailureUnsupportedTone, fmt.Sprintf("Unsupported tone: %s", tone)
			}
			return FailureNone, ""
		},
		decorate: func(r *Result) { r.TargetTone = tone },
	})
}

// Process implements Processor with the formal default.
func (tc *ToneChanger) Process(ctx context.Context, text string) Result {
	return tc.Change(ctx, text, ToneFormal)
}

var _ Processor = (*ToneChanger)(nil)
