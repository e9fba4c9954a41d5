// Package engine composes detectors, the candidate merger, and the
// anonymizer into the document processing pipeline.
package engine

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/piiguard/piiguard/internal/anonymize"
	"github.com/piiguard/piiguard/internal/cache"
	"github.com/piiguard/piiguard/internal/config"
	"github.com/piiguard/piiguard/internal/detect"
	"github.com/piiguard/piiguard/internal/logger"
	"github.com/piiguard/piiguard/internal/ner"
	"github.com/piiguard/piiguard/internal/pii"
)

// Engine owns the detector registry and shared configuration. It is
// safe for concurrent use: detectors, the merger, and the anonymizer
// are pure functions of (text, config), and per-call overrides derive
// a config copy instead of mutating shared state.
type Engine struct {
	cfg        *config.Config
	detectors  []detect.Detector
	anonymizer *anonymize.Anonymizer
	cache      *cache.ResultCache
	logger     *logger.Logger
}

// Option customizes engine construction.
type Option func(*Engine)

// WithDetector appends a detector to the registry. Registration order
// affects diagnostics only; merge order is fully determined by span
// position, type priority, and confidence.
func WithDetector(d detect.Detector) Option {
	return func(e *Engine) { e.detectors = append(e.detectors, d) }
}

// WithCache attaches a result cache.
func WithCache(c *cache.ResultCache) Option {
	return func(e *Engine) { e.cache = c }
}

// WithAnonymizer replaces the default anonymizer, e.g. to register
// custom transform methods before wiring.
func WithAnonymizer(a *anonymize.Anonymizer) Option {
	return func(e *Engine) { e.anonymizer = a }
}

// New creates an engine with the built-in rule detector and, when the
// model is enabled, the model detector. A labeler that fails to
// initialize is still registered so scans surface
// pii.ErrDetectorUnavailable per the configured strictness, rather
// than silently looking like "no PII found".
func New(cfg *config.Config, log *logger.Logger, opts ...Option) (*Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("engine requires a config")
	}

	e := &Engine{
		cfg:        cfg,
		anonymizer: anonymize.New(log.WithComponent("anonymize").Logger),
		logger:     log.WithComponent("engine"),
	}

	e.detectors = append(e.detectors, detect.NewRuleDetector(nil, log.WithComponent("detect").Logger))

	if cfg.Model.Enabled {
		labeler, err := ner.New(cfg.Model, log.WithComponent("ner").Logger)
		if err != nil {
			if cfg.Detection.Strict {
				return nil, fmt.Errorf("strict mode: %w", err)
			}
			e.logger.Warn("Entity labeler unavailable, model detector will report as degraded", zap.Error(err))
		}
		e.detectors = append(e.detectors, detect.NewModelDetector(labeler, log.WithComponent("detect").Logger))
	}

	for _, opt := range opts {
		opt(e)
	}

	names := make([]string, 0, len(e.detectors))
	for _, d := range e.detectors {
		names = append(names, d.Name())
	}
	e.logger.Info("PII engine initialized",
		zap.Strings("detectors", names),
		zap.Strings("methods", e.anonymizer.Methods()),
		zap.Float64("confidence_threshold", cfg.Detection.ConfidenceThreshold))

	return e, nil
}

// Detectors returns the registered detector names.
func (e *Engine) Detectors() []string {
	names := make([]string, 0, len(e.detectors))
	for _, d := range e.detectors {
		names = append(names, d.Name())
	}
	return names
}

// Methods returns the registered anonymization method names.
func (e *Engine) Methods() []string { return e.anonymizer.Methods() }

// ProcessText runs the full pipeline over one document: every
// registered detector, the merge, and optionally the anonymizer.
func (e *Engine) ProcessText(ctx context.Context, text string, opts Options) (*Result, error) {
	cfg, err := e.cfg.WithOverrides(opts.Overrides)
	if err != nil {
		return nil, err
	}

	if max := cfg.Performance.MaxTextLength; max > 0 && len(text) > max {
		return nil, fmt.Errorf("%d bytes (limit %d): %w", len(text), max, pii.ErrTextTooLarge)
	}

	method := opts.Method
	if method == "" {
		method = cfg.Anonymization.DefaultMethod
	}

	var cacheKey string
	if e.cache != nil && cfg.Cache.Enabled {
		cacheKey = cache.Key(text, fingerprint(cfg, opts.Anonymize, method))
		if cached, hit := e.cache.Get(ctx, cacheKey); hit {
			return &Result{
				Matches:        cached.Matches,
				AnonymizedText: cached.AnonymizedText,
				Anonymized:     cached.Anonymized,
				Stats:          computeStats(cached.Matches),
			}, nil
		}
	}

	candidates, degraded, err := e.scan(ctx, text, cfg)
	if err != nil {
		return nil, err
	}

	merger := pii.NewMerger(mergerConfig(cfg), e.logger.Logger)
	matches := merger.Merge(len(text), candidates)

	result := &Result{
		Matches: matches,
		Stats:   computeStats(matches),
	}
	result.Degraded = degraded

	if opts.Anonymize {
		anon, err := e.anonymizer.Apply(text, matches, method, cfg)
		if err != nil {
			return nil, err
		}
		result.AnonymizedText = anon.Text
		result.Anonymized = true
		result.Matches = anon.Matches
		result.OriginalMatches = anon.OriginalMatches
	}

	e.logger.LogDetections(len(text), result.Stats.ByType)

	if cacheKey != "" {
		e.cache.Store(ctx, cacheKey, &cache.CachedResult{
			Matches:        result.Matches,
			AnonymizedText: result.AnonymizedText,
			Anonymized:     result.Anonymized,
		})
	}

	return result, nil
}

// scan runs every detector, isolating failures: in strict mode the
// first failing detector aborts the document; otherwise it is
// recorded as degraded and the remaining detectors still contribute.
func (e *Engine) scan(ctx context.Context, text string, cfg *config.Config) ([]pii.Candidate, []string, error) {
	var candidates []pii.Candidate
	var degraded []string

	for _, d := range e.detectors {
		found, err := d.Scan(ctx, text, cfg)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, nil, ctxErr
			}
			if cfg.Detection.Strict {
				return nil, nil, fmt.Errorf("detector %s: %w", d.Name(), err)
			}
			e.logger.Warn("Detector failed, continuing without it",
				zap.String("detector", d.Name()),
				zap.Error(err))
			degraded = append(degraded, d.Name())
			continue
		}
		candidates = append(candidates, found...)
	}

	return candidates, degraded, nil
}

// ProcessBatch processes documents independently across a worker
// pool. Results are index-aligned with the input. A failing document
// carries its error without aborting the batch; cancellation stops
// dispatching new documents, and never yields a half-transformed one.
func (e *Engine) ProcessBatch(ctx context.Context, texts []string, opts Options) []DocumentResult {
	results := make([]DocumentResult, len(texts))
	if len(texts) == 0 {
		return results
	}

	workers := e.cfg.Performance.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(texts) {
		workers = len(texts)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				res, err := e.ProcessText(ctx, texts[i], opts)
				results[i] = DocumentResult{Index: i, Result: res, Err: err}
			}
		}()
	}

dispatch:
	for i := range texts {
		select {
		case <-ctx.Done():
			break dispatch
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	// Documents never dispatched due to cancellation carry the
	// context error.
	for i := range results {
		if results[i].Result == nil && results[i].Err == nil {
			results[i] = DocumentResult{Index: i, Err: ctx.Err()}
		}
	}

	return results
}

func mergerConfig(cfg *config.Config) pii.MergerConfig {
	mc := pii.MergerConfig{
		ConfidenceThreshold: cfg.Detection.ConfidenceThreshold,
	}
	for _, t := range cfg.Detection.EnabledTypes {
		mc.EnabledTypes = append(mc.EnabledTypes, pii.Type(t))
	}
	for _, t := range cfg.Detection.TypePriority {
		mc.TypePriority = append(mc.TypePriority, pii.Type(t))
	}
	return mc
}

// fingerprint captures every config facet that changes a document's
// result, so cached entries cannot leak across configurations.
func fingerprint(cfg *config.Config, anonymize bool, method string) string {
	return fmt.Sprintf("t=%.4f|types=%v|prio=%v|anon=%t|method=%s|mask=%s|len=%t|fmt=%t|pre=%d|suf=%d|salt=%s",
		cfg.Detection.ConfidenceThreshold,
		cfg.Detection.EnabledTypes,
		cfg.Detection.TypePriority,
		anonymize, method,
		cfg.Anonymization.MaskCharacter,
		cfg.Anonymization.PreserveLength,
		cfg.Anonymization.PreserveFormat,
		cfg.Anonymization.KeepPrefix,
		cfg.Anonymization.KeepSuffix,
		cfg.Anonymization.HashSalt)
}
