// Package opcache routes processed-text lookups to per-operation caches.
//
// Each operation (grammar, summary, tone) owns a cache.Cache partition;
// the grammar partition gets the full configured capacity and the other
// two half of it each. Keys are normalized (trimmed, lowercased) so that
// inputs differing only in surrounding whitespace or letter case share
// one entry. Tone keys additionally carry the requested tone so results
// for different targets never collide.
package opcache

import (
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/typify/typify/cache"
)

// DefaultMaxSize is the grammar partition capacity when Options.MaxSize
// is left unset. Summary and tone get half of it each.
const DefaultMaxSize = 100

// Options configure a Service.
type Options struct {
	// MaxSize is the grammar partition capacity; summary and tone are
	// sized MaxSize/2 (floored, minimum 1). <= 0 => DefaultMaxSize.
	MaxSize int

	// CleanupBatch is shared by all partitions.
	// <= 0 => cache.DefaultCleanupBatch.
	CleanupBatch int

	// Metrics, when non-nil, is called once per partition name
	// ("grammar", "summary", "tone") to obtain that partition's sink.
	Metrics func(partition string) cache.Metrics

	Logger *zap.Logger
}

// Service owns the three operation caches.
type Service struct {
	grammar *cache.Cache[string]
	summary *cache.Cache[string]
	tone    *cache.Cache[string]
	log     *zap.Logger
}

// New builds a Service with three partitions sized from opts.
func New(opts Options) *Service {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	maxSize := opts.MaxSize
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	batch := opts.CleanupBatch
	if batch <= 0 {
		batch = cache.DefaultCleanupBatch
	}

	s := &Service{log: log}
	s.grammar = s.newPartition("grammar", maxSize, batch, opts.Metrics)
	s.summary = s.newPartition("summary", max(maxSize/2, 1), batch, opts.Metrics)
	s.tone = s.newPartition("tone", max(maxSize/2, 1), batch, opts.Metrics)

	log.Debug("operation caches ready",
		zap.Int("grammar_max", s.grammar.MaxSize()),
		zap.Int("summary_max", s.summary.MaxSize()),
		zap.Int("tone_max", s.tone.MaxSize()),
		zap.Int("cleanup_batch", batch))
	return s
}

func (s *Service) newPartition(name string, maxSize, batch int, sink func(string) cache.Metrics) *cache.Cache[string] {
	var m cache.Metrics
	if sink != nil {
		m = sink(name)
	}
	return cache.New(cache.Options[string]{
		MaxSize:      maxSize,
		CleanupBatch: batch,
		Metrics:      evictionLog{name: name, log: s.log, next: m},
		OnEvict: func(key string, _ string) {
			s.log.Debug("cache entry evicted",
				zap.String("cache", name),
				zap.String("key", keyPreview(key)))
		},
	})
}

// normalizeKey folds inputs that differ only in surrounding whitespace or
// letter case onto one cache key.
func normalizeKey(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// toneKey namespaces a normalized key by target tone. The tone string is
// appended as given; distinct spellings address distinct entries.
func toneKey(text, tone string) string {
	return normalizeKey(text) + "_" + tone
}

// GetGrammar returns the cached correction for text, if any.
func (s *Service) GetGrammar(text string) (string, bool) {
	return s.grammar.Get(normalizeKey(text))
}

// PutGrammar stores a correction keyed by the normalized input.
func (s *Service) PutGrammar(text, corrected string) {
	s.grammar.Put(normalizeKey(text), corrected)
}

// GetSummary returns the cached summary for text, if any.
func (s *Service) GetSummary(text string) (string, bool) {
	return s.summary.Get(normalizeKey(text))
}

// PutSummary stores a summary keyed by the normalized input.
func (s *Service) PutSummary(text, summary string) {
	s.summary.Put(normalizeKey(text), summary)
}

// GetTone returns the cached rewrite of text for the given tone, if any.
func (s *Service) GetTone(text, tone string) (string, bool) {
	return s.tone.Get(toneKey(text, tone))
}

// PutTone stores a rewrite keyed by the normalized input and tone.
func (s *Service) PutTone(text, tone, result string) {
	s.tone.Put(toneKey(text, tone), result)
}

// ClearAll empties every partition.
func (s *Service) ClearAll() {
	s.grammar.Clear()
	s.summary.Clear()
	s.tone.Clear()
	s.log.Info("all caches cleared")
}

// PartitionStats describes one cache partition.
type PartitionStats struct {
	Size    int `json:"size"`
	MaxSize int `json:"max_size"`
}

// Stats is a point-in-time view over all partitions. Each partition is
// read under its own lock; the combined snapshot is not atomic, so a
// concurrent writer may be reflected in one partition and not another.
type Stats struct {
	Grammar PartitionStats `json:"grammar"`
	Summary PartitionStats `json:"summary"`
	Tone    PartitionStats `json:"tone"`
}

// Stats reports current sizes and capacities.
func (s *Service) Stats() Stats {
	return Stats{
		Grammar: PartitionStats{Size: s.grammar.Len(), MaxSize: s.grammar.MaxSize()},
		Summary: PartitionStats{Size: s.summary.Len(), MaxSize: s.summary.MaxSize()},
		Tone:    PartitionStats{Size: s.tone.Len(), MaxSize: s.tone.MaxSize()},
	}
}

// evictionLog logs cleanup summaries and forwards every event to an
// optional next sink. Runs under the cache lock; it must stay cheap.
type evictionLog struct {
	name string
	log  *zap.Logger
	next cache.Metrics
}

func (m evictionLog) Hit() {
	if m.next != nil {
		m.next.Hit()
	}
}

func (m evictionLog) Miss() {
	if m.next != nil {
		m.next.Miss()
	}
}

func (m evictionLog) Evict(removed int) {
	m.log.Debug("cache cleanup removed entries",
		zap.String("cache", m.name),
		zap.Int("removed", removed))
	if m.next != nil {
		m.next.Evict(removed)
	}
}

func (m evictionLog) Size(entries int) {
	if m.next != nil {
		m.next.Size(entries)
	}
}

var _ cache.Metrics = evictionLog{}

// keyPreview truncates long keys for log lines; cached keys are whole
// input texts and can run to kilobytes.
func keyPreview(key string) string {
	const maxRunes = 48
	if utf8.RuneCountInString(key) <= maxRunes {
		return key
	}
	runes := []rune(key)
	return string(runes[:maxRunes]) + "..."
}
