package extractor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/sirupsen/logrus"

	"go-redflag-detector/internal/logger"
	"go-redflag-detector/internal/storage"
)

// AcceptedTypes are the screenshot formats the pipeline reads
var AcceptedTypes = []string{"image/png", "image/jpeg"}

// Image is a screenshot given either inline or by URL. Data wins when both are set.
type Image struct {
	Data []byte
	URL  string
}

// Empty reports whether no image was supplied
func (i Image) Empty() bool {
	return len(i.Data) == 0 && i.URL == ""
}

// DetectType sniffs data and reports whether it is an accepted screenshot format
func DetectType(data []byte) (string, bool) {
	mtype := mimetype.Detect(data)
	return mtype.String(), mimetype.EqualsAny(mtype.String(), AcceptedTypes...)
}

// Extractor converts screenshots into text. It never reports failure:
// anything that goes wrong yields the empty string.
type Extractor struct {
	engine       Engine
	source       storage.ImageSource
	fetchTimeout time.Duration
}

// New creates an extractor; source may be nil when URL images are not supported
func New(engine Engine, source storage.ImageSource, fetchTimeout time.Duration) *Extractor {
	if engine == nil {
		engine = NoopEngine{}
	}
	return &Extractor{engine: engine, source: source, fetchTimeout: fetchTimeout}
}

// Extract returns the trimmed recognized text, or "" if nothing usable was found
func (x *Extractor) Extract(ctx context.Context, img Image) string {
	data := img.Data
	if len(data) == 0 && img.URL != "" {
		data = x.fetch(ctx, img.URL)
	}
	if len(data) == 0 {
		return ""
	}

	if mtype, ok := DetectType(data); !ok {
		logger.WithField("mime_type", mtype).Warn("Skipping OCR for unsupported image type")
		return ""
	}

	text, err := x.recognize(ctx, data)
	if err != nil {
		logger.WithError(err).WithFields(logrus.Fields{
			"engine": x.engine.Name(),
			"bytes":  len(data),
		}).Warn("Text extraction failed, treating as no text")
		return ""
	}
	return strings.TrimSpace(text)
}

func (x *Extractor) fetch(ctx context.Context, imageURL string) []byte {
	if x.source == nil {
		logger.WithField("url", imageURL).Warn("No image source configured for URL screenshots")
		return nil
	}
	if x.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, x.fetchTimeout)
		defer cancel()
	}
	data, err := x.source.FetchImage(ctx, imageURL)
	if err != nil {
		logger.WithError(err).WithField("url", imageURL).Warn("Failed to fetch screenshot")
		return nil
	}
	return data
}

// recognize runs the engine off the caller's goroutine so a cancelled
// context stops the wait even if the engine itself ignores it.
func (x *Extractor) recognize(ctx context.Context, data []byte) (string, error) {
	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("ocr engine panicked: %v", r)}
			}
		}()
		text, err := x.engine.Recognize(ctx, data)
		done <- result{text: text, err: err}
	}()

	select {
	case r := <-done:
		return r.text, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
