package scorer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	apperrors "go-redflag-detector/internal/errors"
	"go-redflag-detector/pkg/models"
)

// maxResponseBytes caps how much of the webhook reply is read
const maxResponseBytes = 1 << 20

// scores are conventionally 0-100; anything past int32 is garbage, not a verdict
const (
	minScore = math.MinInt32
	maxScore = math.MaxInt32
)

// Scorer posts chat text to the scoring webhook. Every failure is reported as
// an *errors.AppError; callers decide what to do about it.
type Scorer interface {
	Score(ctx context.Context, text string) (models.Verdict, error)
}

// WebhookScorer makes exactly one attempt per call
type WebhookScorer struct {
	url     string
	client  *http.Client
	timeout time.Duration
}

type scoreRequest struct {
	Input string `json:"input"`
}

// scoreResponse keeps absent fields distinguishable from zero values
type scoreResponse struct {
	Score  json.RawMessage `json:"score"`
	Type   *string         `json:"type"`
	Advice *string         `json:"advice"`
	Meme   *string         `json:"meme"`
}

// NewWebhookScorer creates a scorer for url bounded by timeout per call
func NewWebhookScorer(url string, timeout time.Duration) *WebhookScorer {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookScorer{
		url:     url,
		timeout: timeout,
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     30 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
	}
}

// URL returns the configured webhook endpoint
func (s *WebhookScorer) URL() string {
	return s.url
}

func (s *WebhookScorer) Score(ctx context.Context, text string) (models.Verdict, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	payload, err := json.Marshal(scoreRequest{Input: text})
	if err != nil {
		return models.Verdict{}, apperrors.NewInternalError("encode scoring request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return models.Verdict{}, apperrors.NewInternalError("build scoring request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return models.Verdict{}, apperrors.NewTimeoutError("scoring webhook timed out", err)
		}
		return models.Verdict{}, apperrors.NewNetworkError("scoring webhook unreachable", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return models.Verdict{}, apperrors.NewTimeoutError("scoring webhook timed out", err)
		}
		return models.Verdict{}, apperrors.NewNetworkError("read scoring response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return models.Verdict{}, apperrors.NewNetworkError(
			fmt.Sprintf("scoring webhook returned status %d", resp.StatusCode), nil)
	}

	return ParseVerdict(raw)
}

// ParseVerdict accepts a body only if it is a JSON object with a numeric
// "score" and a non-empty string "type". "advice" and "meme" pass through.
func ParseVerdict(raw []byte) (models.Verdict, error) {
	var body scoreResponse
	if err := json.Unmarshal(raw, &body); err != nil {
		return models.Verdict{}, apperrors.NewProcessingError("scoring response is not a verdict object", err)
	}

	if len(body.Score) == 0 || string(body.Score) == "null" {
		return models.Verdict{}, apperrors.NewProcessingError("scoring response missing score", nil)
	}
	// float64 rejects quoted numbers, booleans and objects
	var score float64
	if err := json.Unmarshal(body.Score, &score); err != nil {
		return models.Verdict{}, apperrors.NewProcessingError("scoring response score is not numeric", err)
	}
	if score < minScore || score > maxScore {
		return models.Verdict{}, apperrors.NewProcessingError(
			fmt.Sprintf("scoring response score %g out of range", score), nil)
	}
	if body.Type == nil || strings.TrimSpace(*body.Type) == "" {
		return models.Verdict{}, apperrors.NewProcessingError("scoring response missing type", nil)
	}

	verdict := models.Verdict{
		Score:  int(math.Round(score)),
		Type:   *body.Type,
		Source: models.SourceRemote,
	}
	if body.Advice != nil {
		verdict.Advice = *body.Advice
	}
	if body.Meme != nil {
		verdict.Illustration = *body.Meme
	}
	return verdict, nil
}
