package processor

import (
	"encoding/json"
	"fmt"
	"time"
)

// FailureKind classifies why a request produced no output. Failures are
// reported through Result values; processors never panic or return
// errors across their public surface.
type FailureKind int

const (
	FailureNone FailureKind = iota
	// FailureInvalidInput: empty or whitespace-only input.
	FailureInvalidInput
	// FailureUnavailable: the backing model is not loaded.
	FailureUnavailable
	// FailureInference: the provider call itself failed.
	FailureInference
	// FailureInvalidResponse: the model answered with empty or degenerate text.
	FailureInvalidResponse
	// FailureUnsupportedTone: the requested tone is not implemented.
	FailureUnsupportedTone
)

// String returns a stable snake_case name, also used as a metric label.
func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailureInvalidInput:
		return "invalid_input"
	case FailureUnavailable:
		return "unavailable"
	case FailureInference:
		return "inference_error"
	case FailureInvalidResponse:
		return "invalid_response"
	case FailureUnsupportedTone:
		return "unsupported_tone"
	default:
		return fmt.Sprintf("failure(%d)", int(k))
	}
}

// Tone names a rewrite target for the tone changer.
type Tone string

// ToneFormal is the only supported rewrite target.
const ToneFormal Tone = "formal"

// Result is the outcome of one processing request. Failed results keep
// the input text in both text fields so callers always have well-formed
// text to fall back on.
type Result struct {
	ProcessedText string
	OriginalText  string

	// Duration is the model wall-clock time; zero for cache hits and
	// failures.
	Duration time.Duration

	Success      bool
	FailureKind  FailureKind
	ErrorMessage string

	FromCache bool

	// TargetTone is set on successful tone results only.
	TargetTone Tone
}

// MarshalJSON renders the result with snake_case keys and the duration
// as seconds, matching the CLI --json output.
func (r Result) MarshalJSON() ([]byte, error) {
	var failure string
	if !r.Success {
		failure = r.FailureKind.String()
	}
	return json.Marshal(struct {
		ProcessedText  string  `json:"processed_text"`
		OriginalText   string  `json:"original_text"`
		ProcessingTime float64 `json:"processing_time"`
		Success        bool    `json:"success"`
		FailureKind    string  `json:"failure_kind,omitempty"`
		ErrorMessage   string  `json:"error_message,omitempty"`
		FromCache      bool    `json:"from_cache"`
		TargetTone     string  `json:"target_tone,omitempty"`
	}{
		ProcessedText:  r.ProcessedText,
		OriginalText:   r.OriginalText,
		ProcessingTime: r.Duration.Seconds(),
		Success:        r.Success,
		FailureKind:    failure,
		ErrorMessage:   r.ErrorMessage,
		FromCache:      r.FromCache,
		TargetTone:     string(r.TargetTone),
	})
}
