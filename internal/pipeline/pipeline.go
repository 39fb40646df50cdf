// Package pipeline orchestrates one refresh of the outage notice feed:
// load the location reference, scrape announcements, then fetch,
// preprocess, OCR, and extract schedules from every notice image.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/outage-notice-etl/internal/domain"
	"github.com/couchcryptid/outage-notice-etl/internal/observability"
)

// ReferenceLoader supplies the administrative geography tree.
type ReferenceLoader interface {
	Load(ctx context.Context, forceRefresh bool) (domain.ReferenceTree, error)
}

// Discoverer scrapes announcements and downloads their images.
type Discoverer interface {
	Discover(ctx context.Context, limit int) ([]domain.Announcement, error)
	FetchImage(ctx context.Context, imageURL string) ([]byte, error)
}

// PreprocessFunc prepares raw image bytes for recognition.
type PreprocessFunc func(raw []byte) (*image.Gray, error)

// Recognizer extracts text from a preprocessed image.
type Recognizer interface {
	Recognize(ctx context.Context, img *image.Gray) (string, error)
}

// Extractor turns an OCR transcript into raw schedules.
type Extractor interface {
	Extract(ctx context.Context, ocrText string, ref domain.ReferenceTree) ([]domain.RawSchedule, error)
}

// Pipeline runs the scrape-OCR-extract-validate flow. Per-image
// failures degrade to an empty result for that image; reference and
// discovery failures abort the run.
type Pipeline struct {
	reference  ReferenceLoader
	site       Discoverer
	preprocess PreprocessFunc
	recognizer Recognizer
	extractor  Extractor
	logger     *slog.Logger
	metrics    *observability.Metrics

	noticeLimit int
	cutoff      time.Time
	ready       atomic.Bool
}

// New creates a Pipeline. A zero cutoff filters schedules against the
// current date at validation time.
func New(ref ReferenceLoader, site Discoverer, preprocess PreprocessFunc, rec Recognizer, ext Extractor, logger *slog.Logger, metrics *observability.Metrics, noticeLimit int, cutoff time.Time) *Pipeline {
	return &Pipeline{
		reference:   ref,
		site:        site,
		preprocess:  preprocess,
		recognizer:  rec,
		extractor:   ext,
		logger:      logger,
		metrics:     metrics,
		noticeLimit: noticeLimit,
		cutoff:      cutoff,
	}
}

// CheckReadiness returns nil once at least one run has completed.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not completed a run yet")
	}
	return nil
}

// Run executes one full refresh and returns a result per announcement,
// zero-image announcements included.
func (p *Pipeline) Run(ctx context.Context) ([]domain.NoticeResult, error) {
	start := time.Now()
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	ref, err := p.reference.Load(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("load reference: %w", err)
	}

	announcements, err := p.site.Discover(ctx, p.noticeLimit)
	if err != nil {
		return nil, fmt.Errorf("discover announcements: %w", err)
	}

	results := make([]domain.NoticeResult, 0, len(announcements))
	for _, ann := range announcements {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		results = append(results, p.processAnnouncement(ctx, ann, ref))
	}

	p.ready.Store(true)
	p.metrics.RunDuration.Observe(time.Since(start).Seconds())
	p.logger.Info("pipeline run complete",
		"announcements", len(results), "duration", time.Since(start))
	return results, nil
}

func (p *Pipeline) processAnnouncement(ctx context.Context, ann domain.Announcement, ref domain.ReferenceTree) domain.NoticeResult {
	result := domain.NoticeResult{
		Title:           ann.Title,
		URL:             ann.URL,
		PublishDate:     ann.PublishDate,
		ProcessedImages: make([]domain.ProcessedImage, 0, len(ann.ImageURLs)),
	}

	for _, imageURL := range ann.ImageURLs {
		result.ProcessedImages = append(result.ProcessedImages, p.processImage(ctx, imageURL, ref))
	}
	return result
}

// processImage never fails the run: each stage failure is logged,
// counted, and yields whatever was produced so far. The OCR transcript
// survives an extraction failure.
func (p *Pipeline) processImage(ctx context.Context, imageURL string, ref domain.ReferenceTree) domain.ProcessedImage {
	out := domain.ProcessedImage{
		ImageURL:   imageURL,
		Structured: []domain.ScheduleCandidate{},
	}

	raw, err := p.site.FetchImage(ctx, imageURL)
	if err != nil {
		p.skipImage(imageURL, "fetch", err)
		return out
	}

	img, err := p.preprocess(raw)
	if err != nil {
		p.skipImage(imageURL, "decode", err)
		return out
	}

	text, err := p.recognizer.Recognize(ctx, img)
	if err != nil {
		p.skipImage(imageURL, "ocr", err)
		return out
	}
	out.OCRText = text

	schedules, err := p.extractor.Extract(ctx, text, ref)
	if err != nil {
		p.skipImage(imageURL, "extract", err)
		return out
	}

	out.Structured = domain.ValidateSchedules(schedules, ref, p.cutoff)
	p.metrics.ImagesProcessed.Inc()
	return out
}

func (p *Pipeline) skipImage(imageURL, stage string, err error) {
	p.logger.Warn("image skipped", "stage", stage, "image_url", imageURL, "error", err)
	p.metrics.ImageFailures.WithLabelValues(stage).Inc()
}
