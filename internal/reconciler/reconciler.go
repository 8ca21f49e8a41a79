package reconciler

import (
	"context"

	"github.com/sirupsen/logrus"

	apperrors "go-redflag-detector/internal/errors"
	"go-redflag-detector/internal/logger"
	"go-redflag-detector/internal/scorer"
	"go-redflag-detector/pkg/models"
)

// Generator produces fallback verdicts
type Generator interface {
	Generate() models.Verdict
}

// Reconciler is the single place that decides between the webhook's verdict
// and a synthetic one. Resolve always returns a verdict.
type Reconciler struct {
	scorer    scorer.Scorer
	generator Generator
}

// New builds a reconciler. A nil scorer means no webhook is configured and
// every verdict is synthetic.
func New(s scorer.Scorer, g Generator) *Reconciler {
	return &Reconciler{scorer: s, generator: g}
}

func (r *Reconciler) Resolve(ctx context.Context, text string) models.Verdict {
	if r.scorer == nil {
		logger.Debug("No scoring webhook configured, using synthetic verdict")
		return r.generator.Generate()
	}

	verdict, err := r.scorer.Score(ctx, text)
	if err != nil {
		logger.WithError(err).WithFields(logrus.Fields{
			"reason":     apperrors.TypeOf(err),
			"text_chars": len(text),
		}).Warn("Scoring webhook unavailable, using synthetic verdict")
		return r.generator.Generate()
	}
	return verdict
}
