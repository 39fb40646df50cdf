package ocr

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/couchcryptid/outage-notice-etl/internal/observability"
)

// Recognizer extracts text from preprocessed images with the tesseract
// binary.
type Recognizer struct {
	binary  string
	lang    string
	runner  Runner
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewRecognizer creates a tesseract-backed recognizer. Empty binary and
// lang default to "tesseract" and "eng".
func NewRecognizer(binary, lang string, logger *slog.Logger, metrics *observability.Metrics) *Recognizer {
	if binary == "" {
		binary = "tesseract"
	}
	if lang == "" {
		lang = "eng"
	}
	return &Recognizer{
		binary:  binary,
		lang:    lang,
		runner:  execRunner{logger: logger},
		logger:  logger,
		metrics: metrics,
	}
}

// Recognize runs tesseract over the image and returns the transcript
// with runs of whitespace collapsed to single spaces.
func (r *Recognizer) Recognize(ctx context.Context, img *image.Gray) (string, error) {
	start := time.Now()

	path, err := writeTempPNG(img)
	if err != nil {
		return "", err
	}
	defer func() {
		if rmErr := os.Remove(path); rmErr != nil {
			r.logger.Warn("remove temp image", "path", path, "error", rmErr)
		}
	}()

	// tesseract <file> stdout -l <lang>
	out, errb, err := r.runner.Run(ctx, r.binary, path, "stdout", "-l", r.lang)
	if err != nil {
		return "", fmt.Errorf("tesseract: %w: %s", err, truncate(string(errb), 512))
	}

	r.metrics.OCRDuration.Observe(time.Since(start).Seconds())
	return strings.Join(strings.Fields(string(out)), " "), nil
}

func writeTempPNG(img *image.Gray) (string, error) {
	f, err := os.CreateTemp("", "notice-*.png")
	if err != nil {
		return "", fmt.Errorf("create temp image: %w", err)
	}

	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("encode temp image: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("close temp image: %w", err)
	}
	return f.Name(), nil
}
