package gemini

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/couchcryptid/outage-notice-etl/internal/domain"
	"github.com/couchcryptid/outage-notice-etl/internal/observability"
)

type stubResponse struct {
	text string
	err  error
}

type stubGenerator struct {
	mu        sync.Mutex
	responses []stubResponse
	models    []string
	prompts   []string
}

// Generate consumes responses in order; the last one repeats.
func (s *stubGenerator) Generate(_ context.Context, model, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.models = append(s.models, model)
	s.prompts = append(s.prompts, prompt)

	i := len(s.models) - 1
	if i >= len(s.responses) {
		i = len(s.responses) - 1
	}
	return s.responses[i].text, s.responses[i].err
}

func (s *stubGenerator) calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.models...)
}

func overloadedErr() error {
	return genai.APIError{Code: 503, Status: "UNAVAILABLE", Message: "The model is overloaded."}
}

var testModels = []string{"flash-a", "flash-b", "pro-c"}

func newTestExtractor(gen Generator, clock clockwork.Clock) *Extractor {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewExtractor(gen, testModels, 3, time.Second, clock, logger, observability.NewMetricsForTesting())
}

func TestExtract_SuccessFirstTry(t *testing.T) {
	stub := &stubGenerator{responses: []stubResponse{
		{text: "```json\n" + `{"notices":[{"dates":["September 5, 2025"],"reason":"Feeder maintenance"}]}` + "\n```"},
	}}
	e := newTestExtractor(stub, clockwork.NewFakeClock())

	ref := domain.ReferenceTree{{Code: "097212000", Name: "POLANCO"}}
	schedules, err := e.Extract(context.Background(), "OCR TEXT HERE", ref)
	require.NoError(t, err)

	require.Len(t, schedules, 1)
	assert.Equal(t, "Feeder maintenance", schedules[0].Reason)
	assert.Equal(t, []string{"flash-a"}, stub.calls())
	assert.Contains(t, stub.prompts[0], "OCR TEXT HERE")
	assert.Contains(t, stub.prompts[0], "POLANCO")
}

func TestExtract_NonOverloadErrorFailsFast(t *testing.T) {
	stub := &stubGenerator{responses: []stubResponse{
		{err: errors.New("API key not valid")},
	}}
	e := newTestExtractor(stub, clockwork.NewFakeClock())

	_, err := e.Extract(context.Background(), "text", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "flash-a")
	assert.Equal(t, []string{"flash-a"}, stub.calls())
}

func TestExtract_UndecodableResponseDegradesToEmpty(t *testing.T) {
	stub := &stubGenerator{responses: []stubResponse{
		{text: "Sorry, I cannot read this image."},
	}}
	e := newTestExtractor(stub, clockwork.NewFakeClock())

	schedules, err := e.Extract(context.Background(), "text", nil)
	require.NoError(t, err)
	assert.Empty(t, schedules)
}

func TestExtract_OverloadRetriesThenSucceeds(t *testing.T) {
	clock := clockwork.NewFakeClock()
	stub := &stubGenerator{responses: []stubResponse{
		{err: overloadedErr()},
		{text: `{"notices":[]}`},
	}}
	e := newTestExtractor(stub, clock)

	type result struct {
		schedules []domain.RawSchedule
		err       error
	}
	done := make(chan result, 1)
	go func() {
		schedules, err := e.Extract(context.Background(), "text", nil)
		done <- result{schedules, err}
	}()

	clock.BlockUntil(1)
	clock.Advance(time.Second)

	res := <-done
	require.NoError(t, res.err)
	assert.Empty(t, res.schedules)
	assert.Equal(t, []string{"flash-a", "flash-a"}, stub.calls())
}

func TestExtract_ExhaustsRetriesAcrossAllModels(t *testing.T) {
	clock := clockwork.NewFakeClock()
	stub := &stubGenerator{responses: []stubResponse{{err: overloadedErr()}}}
	e := newTestExtractor(stub, clock)

	done := make(chan error, 1)
	go func() {
		_, err := e.Extract(context.Background(), "text", nil)
		done <- err
	}()

	// Every overloaded attempt backs off, the third per model included.
	for i := 0; i < 9; i++ {
		clock.BlockUntil(1)
		clock.Advance(4 * time.Second)
	}

	err := <-done
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrExtractionExhausted)
	assert.Equal(t, []string{
		"flash-a", "flash-a", "flash-a",
		"flash-b", "flash-b", "flash-b",
		"pro-c", "pro-c", "pro-c",
	}, stub.calls())
}

func TestExtract_CancelledDuringBackoff(t *testing.T) {
	clock := clockwork.NewFakeClock()
	stub := &stubGenerator{responses: []stubResponse{{err: overloadedErr()}}}
	e := newTestExtractor(stub, clock)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := e.Extract(ctx, "text", nil)
		done <- err
	}()

	clock.BlockUntil(1)
	cancel()

	err := <-done
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"flash-a"}, stub.calls())
}

func TestBackoffDelay(t *testing.T) {
	assert.Equal(t, time.Second, backoffDelay(time.Second, 0))
	assert.Equal(t, 2*time.Second, backoffDelay(time.Second, 1))
	assert.Equal(t, 4*time.Second, backoffDelay(time.Second, 2))
	assert.Equal(t, 8*time.Second, backoffDelay(2*time.Second, 2))
}

func TestIsOverloaded(t *testing.T) {
	assert.True(t, isOverloaded(genai.APIError{Code: 429, Status: "RESOURCE_EXHAUSTED"}))
	assert.True(t, isOverloaded(genai.APIError{Code: 500, Status: "INTERNAL"}))
	assert.True(t, isOverloaded(errors.New("the model is currently Overloaded")))
	assert.False(t, isOverloaded(errors.New("API key not valid")))
	assert.False(t, isOverloaded(genai.APIError{Code: 400, Status: "INVALID_ARGUMENT"}))
}
