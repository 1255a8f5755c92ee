// Package processor implements the three text operations: grammar
// correction, summarization, and tone change.
//
// All three share one request sequence: validate the input, check model
// availability, consult the operation's cache, build a fixed prompt,
// invoke the model, validate the output, and cache it. Every fault is
// converted to a failed Result at this boundary; callers never see
// errors or panics. Requests run synchronously on the caller's
// goroutine with no duplicate suppression, so concurrent misses on one
// key may each reach the model and the last writer wins.
package processor

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/typify/typify/internal/llm"
	"github.com/typify/typify/internal/opcache"
)

// Kind identifies one of the text operations.
type Kind int

const (
	KindGrammar Kind = iota
	KindSummary
	KindTone
)

// String returns the operation name used in logs and metric labels.
func (k Kind) String() string {
	switch k {
	case KindGrammar:
		return "grammar"
	case KindSummary:
		return "summary"
	case KindTone:
		return "tone"
	default:
		return "unknown"
	}
}

// Processor is the surface shared by the three operations.
type Processor interface {
	// Process runs the operation with its default settings.
	Process(ctx context.Context, text string) Result
	// Available reports whether the backing model is loaded.
	Available() bool
	Kind() Kind
}

// Metrics receives request outcomes. Implementations must be safe for
// concurrent use; NoopMetrics is the default.
type Metrics interface {
	// Observe records a successful request. fromCache distinguishes
	// cache hits (d is zero) from model-backed completions.
	Observe(kind Kind, d time.Duration, fromCache bool)
	// Fail records a failed request by failure class.
	Fail(kind Kind, failure FailureKind)
}

// NoopMetrics discards all observations.
type NoopMetrics struct{}

func (NoopMetrics) Observe(Kind, time.Duration, bool) {}
func (NoopMetrics) Fail(Kind, FailureKind)            {}

var _ Metrics = NoopMetrics{}

// Params are the sampling settings and output limits for one operation.
// Values come from config; see internal/config for the defaults.
type Params struct {
	// MinTokens is the floor of the token budget; MaxTokens caps it
	// when positive (0 means uncapped). PerCharTokens scales the
	// budget with the input length in runes.
	MinTokens     int
	MaxTokens     int
	PerCharTokens int

	Temperature   float64
	TopP          float64
	TopK          int
	RepeatPenalty float64

	// MinOutputRatio rejects outputs shorter than this fraction of the
	// input rune count as degenerate. 0 disables the check.
	MinOutputRatio float64

	// Stop tokens passed through to the model.
	Stop []string
}

// budget computes the token allowance for an input of n runes.
func (p Params) budget(n int) int {
	t := n * p.PerCharTokens
	if t < p.MinTokens {
		t = p.MinTokens
	}
	if p.MaxTokens > 0 && t > p.MaxTokens {
		t = p.MaxTokens
	}
	return t
}

// Deps are the collaborators shared by all processors.
type Deps struct {
	Provider llm.Provider
	Cache    *opcache.Service

	// Metrics and Logger are optional; nil gets a no-op.
	Metrics Metrics
	Logger  *zap.Logger
}

// core carries the shared request sequence. The concrete processors
// embed it and supply an opSpec per call.
type core struct {
	kind     Kind
	provider llm.Provider
	cache    *opcache.Service
	metrics  Metrics
	log      *zap.Logger
	params   Params

	// noun names the processor in availability errors ("Grammar
	// corrector not available"); invalidMsg reports rejected output.
	noun       string
	invalidMsg string
}

func newCore(kind Kind, noun, invalidMsg string, params Params, deps Deps) core {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	m := deps.Metrics
	if m == nil {
		m = NoopMetrics{}
	}
	return core{
		kind:       kind,
		provider:   deps.Provider,
		cache:      deps.Cache,
		metrics:    m,
		log:        log.With(zap.String("op", kind.String())),
		params:     params,
		noun:       noun,
		invalidMsg: invalidMsg,
	}
}

// Available reports whether the backing model is loaded.
func (c *core) Available() bool { return c.provider.Loaded() }

// Kind identifies the operation.
func (c *core) Kind() Kind { return c.kind }

// opSpec binds the pieces that differ between operations into the
// shared run sequence.
type opSpec struct {
	prompt func(text string) string
	lookup func(text string) (string, bool)
	store  func(text, result string)

	// gate, when set, runs after a cache miss and before the prompt is
	// built; a non-None kind blocks the model call.
	gate func() (FailureKind, string)

	// decorate, when set, stamps extra fields onto success results.
	decorate func(r *Result)
}

// run executes the shared request sequence.
func (c *core) run(ctx context.Context, text string, op opSpec) Result {
	if strings.TrimSpace(text) == "" {
		return c.fail(text, FailureInvalidInput, "Invalid input text")
	}
	if !c.provider.Loaded() {
		return c.fail(text, FailureUnavailable, c.noun+" not available")
	}

	// Cache is keyed by the raw input; normalization happens inside
	// the cache service.
	if cached, ok := op.lookup(text); ok {
		c.log.Debug("served from cache")
		c.metrics.Observe(c.kind, 0, true)
		r := Result{
			ProcessedText: cached,
			OriginalText:  text,
			Success:       true,
			FromCache:     true,
		}
		if op.decorate != nil {
			op.decorate(&r)
		}
		return r
	}

	if op.gate != nil {
		if kind, msg := op.gate(); kind != FailureNone {
			return c.fail(text, kind, msg)
		}
	}

	start := time.Now()
	reqID := uuid.NewString()

	resp, err := c.provider.Generate(ctx, llm.Request{
		ID:            reqID,
		Prompt:        op.prompt(text),
		MaxTokens:     c.params.budget(utf8.RuneCountInString(text)),
		Temperature:   c.params.Temperature,
		TopP:          c.params.TopP,
		TopK:          c.params.TopK,
		RepeatPenalty: c.params.RepeatPenalty,
		Stop:          c.params.Stop,
	})
	if err != nil {
		c.log.Error("inference failed",
			zap.String("request_id", reqID),
			zap.Error(err))
		return c.fail(text, FailureInference, err.Error())
	}

	out := strings.TrimSpace(resp.Text)
	if out == "" || c.degenerate(out, text) {
		c.log.Warn("model output rejected",
			zap.String("request_id", reqID),
			zap.Int("input_runes", utf8.RuneCountInString(text)),
			zap.Int("output_runes", utf8.RuneCountInString(out)))
		return c.fail(text, FailureInvalidResponse, c.invalidMsg)
	}

	op.store(text, out)
	took := time.Since(start)

	c.log.Info("processing done",
		zap.String("request_id", reqID),
		zap.Duration("took", took))
	c.metrics.Observe(c.kind, took, false)

	r := Result{
		ProcessedText: out,
		OriginalText:  text,
		Duration:      took,
		Success:       true,
	}
	if op.decorate != nil {
		op.decorate(&r)
	}
	return r
}

// degenerate reports whether the output is too short relative to the
// input to be a plausible rewrite.
func (c *core) degenerate(out, in string) bool {
	if c.params.MinOutputRatio <= 0 {
		return false
	}
	return float64(utf8.RuneCountInString(out)) < float64(utf8.RuneCountInString(in))*c.params.MinOutputRatio
}

// fail builds a failure Result. The input is preserved in both text
// fields; Duration stays zero.
func (c *core) fail(text string, kind FailureKind, msg string) Result {
	c.metrics.Fail(c.kind, kind)
	return Result{
		ProcessedText: text,
		OriginalText:  text,
		Success:       false,
		FailureKind:   kind,
		ErrorMessage:  msg,
	}
}
