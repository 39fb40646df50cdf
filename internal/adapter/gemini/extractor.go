package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/outage-notice-etl/internal/domain"
	"github.com/couchcryptid/outage-notice-etl/internal/observability"
)

// Extractor runs the structured-extraction prompt against a list of
// models in preference order. Overload errors are retried with
// exponential backoff per model before falling back to the next one;
// any other error aborts immediately.
type Extractor struct {
	gen         Generator
	models      []string
	retries     int
	backoffBase time.Duration
	clock       clockwork.Clock
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// NewExtractor builds an extractor over the given models. Zero retries
// and backoffBase default to 3 and one second; a nil clock uses real
// time.
func NewExtractor(gen Generator, models []string, retries int, backoffBase time.Duration, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Extractor {
	if retries <= 0 {
		retries = 3
	}
	if backoffBase <= 0 {
		backoffBase = time.Second
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Extractor{
		gen:         gen,
		models:      models,
		retries:     retries,
		backoffBase: backoffBase,
		clock:       clock,
		logger:      logger,
		metrics:     metrics,
	}
}

// Extract prompts the model with the OCR transcript and the reference
// tree and decodes the schedules from its response. An unparsable
// response degrades to no schedules; exhausting every model returns
// domain.ErrExtractionExhausted.
func (e *Extractor) Extract(ctx context.Context, ocrText string, ref domain.ReferenceTree) ([]domain.RawSchedule, error) {
	prompt, err := BuildPrompt(ocrText, ref)
	if err != nil {
		return nil, err
	}

	text, err := e.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	schedules, ok := DecodeSchedules(text)
	if !ok {
		e.logger.Warn("model response not decodable, dropping", "response_len", len(text))
		return nil, nil
	}

	e.metrics.SchedulesExtracted.Add(float64(len(schedules)))
	return schedules, nil
}

func (e *Extractor) generate(ctx context.Context, prompt string) (string, error) {
	for _, model := range e.models {
		for attempt := 0; attempt < e.retries; attempt++ {
			text, err := e.gen.Generate(ctx, model, prompt)
			if err == nil {
				e.metrics.ModelCalls.WithLabelValues(model, "success").Inc()
				return text, nil
			}

			if !isOverloaded(err) {
				e.metrics.ModelCalls.WithLabelValues(model, "error").Inc()
				return "", fmt.Errorf("model %s: %w", model, err)
			}

			e.metrics.ModelCalls.WithLabelValues(model, "overloaded").Inc()
			e.metrics.ModelRetries.Inc()

			wait := backoffDelay(e.backoffBase, attempt)
			e.logger.Warn("model overloaded, backing off",
				"model", model, "attempt", attempt+1, "retries", e.retries, "wait", wait)
			if err := e.sleep(ctx, wait); err != nil {
				return "", err
			}
		}
		e.logger.Warn("model exhausted retries, falling back", "model", model)
	}

	return "", fmt.Errorf("%w: models %v", domain.ErrExtractionExhausted, e.models)
}

// backoffDelay doubles per attempt: base, 2*base, 4*base, ...
func backoffDelay(base time.Duration, attempt int) time.Duration {
	return base << attempt
}

func (e *Extractor) sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-e.clock.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
