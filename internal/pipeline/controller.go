package pipeline

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	apperrors "go-redflag-detector/internal/errors"
	"go-redflag-detector/internal/extractor"
	"go-redflag-detector/internal/logger"
	"go-redflag-detector/internal/observer"
	"go-redflag-detector/pkg/models"
)

// DefaultRevealDelay is the pause between scoring and showing the verdict
const DefaultRevealDelay = 1200 * time.Millisecond

var (
	// ErrBusy is returned when a run is already in flight
	ErrBusy = apperrors.NewBusyError("an analysis is already in progress", nil)
	// ErrAbandoned is returned by a run that was cancelled before presenting
	ErrAbandoned = apperrors.NewCanceledError("analysis was abandoned", nil)
)

// TextExtractor turns a screenshot into text, returning "" on any failure
type TextExtractor interface {
	Extract(ctx context.Context, img extractor.Image) string
}

// VerdictResolver always produces a verdict for the given text
type VerdictResolver interface {
	Resolve(ctx context.Context, text string) models.Verdict
}

// Request is one user submission
type Request struct {
	Image   extractor.Image
	Message string
}

// Outcome is what a finished run produced
type Outcome struct {
	RunID       uint64
	Phase       Phase
	Verdict     *models.Verdict
	InputSource models.InputSource
	Diagnostics *models.ExtractionDiagnostics
	Elapsed     time.Duration
}

// Options tunes a controller
type Options struct {
	RevealDelay time.Duration
	// After replaces time.After in tests
	After     func(d time.Duration) <-chan time.Time
	Events    observer.Subject
	SessionID string
}

func DefaultOptions() Options {
	return Options{RevealDelay: DefaultRevealDelay}
}

// Controller owns the pipeline state for one session. At most one run is in
// flight; the state only changes through transition.
type Controller struct {
	extractor TextExtractor
	resolver  VerdictResolver
	opts      Options

	mu     sync.Mutex
	state  State
	busy   bool
	runID  uint64
	cancel context.CancelFunc
}

func New(x TextExtractor, r VerdictResolver, opts Options) *Controller {
	if opts.RevealDelay < 0 {
		opts.RevealDelay = 0
	}
	return &Controller{
		extractor: x,
		resolver:  r,
		opts:      opts,
		state:     State{Phase: PhaseIdle},
	}
}

// State returns a snapshot of the current state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Busy reports whether a run is in flight
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// Run drives one submission through extraction, scoring and the reveal
// delay. It blocks until the run reaches a terminal phase or is abandoned.
func (c *Controller) Run(ctx context.Context, req Request) (Outcome, error) {
	message := strings.TrimSpace(req.Message)

	c.mu.Lock()
	if c.busy {
		id := c.runID
		c.mu.Unlock()
		c.publish(ctx, observer.PipelineEvent{EventType: observer.RunBusy, RunID: id, Phase: c.State().Phase.String()})
		return Outcome{}, ErrBusy
	}
	if req.Image.Empty() && message == "" {
		c.mu.Unlock()
		return Outcome{Phase: PhaseRejected}, nil
	}

	c.runID++
	id := c.runID
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.busy = true
	c.cancel = cancel
	if c.state.Phase.Terminal() {
		c.transition(PhaseIdle, nil)
	}
	c.transition(PhaseExtracting, nil)
	c.mu.Unlock()

	start := time.Now()
	c.publish(ctx, observer.PipelineEvent{EventType: observer.RunStarted, RunID: id, Phase: PhaseExtracting.String()})

	out := Outcome{RunID: id, InputSource: models.InputImage}
	var text string
	if !req.Image.Empty() {
		text = c.extractor.Extract(runCtx, req.Image)
	}
	if runCtx.Err() != nil {
		return c.abandon(ctx, id, start)
	}
	switch {
	case text == "":
		text = message
		out.InputSource = models.InputMessage
	case message != "":
		out.Diagnostics = extractor.Compare(text, message)
	}

	if text == "" {
		if !c.advance(ctx, id, PhaseRejected, nil) {
			return c.abandon(ctx, id, start)
		}
		out.Phase = PhaseRejected
		out.InputSource = ""
		out.Elapsed = time.Since(start)
		c.publish(ctx, observer.PipelineEvent{
			EventType:      observer.RunRejected,
			RunID:          id,
			Phase:          PhaseRejected.String(),
			ProcessingTime: out.Elapsed,
		})
		return out, nil
	}

	if !c.advance(ctx, id, PhaseScoring, nil) {
		return c.abandon(ctx, id, start)
	}
	verdict := c.resolver.Resolve(runCtx, text)
	if runCtx.Err() != nil {
		return c.abandon(ctx, id, start)
	}

	if err := c.wait(runCtx, c.opts.RevealDelay); err != nil {
		return c.abandon(ctx, id, start)
	}

	if !c.advance(ctx, id, PhasePresenting, &verdict) {
		return c.abandon(ctx, id, start)
	}
	out.Phase = PhasePresenting
	out.Verdict = &verdict
	out.Elapsed = time.Since(start)
	c.publish(ctx, observer.PipelineEvent{
		EventType:      observer.RunPresented,
		RunID:          id,
		Phase:          PhasePresenting.String(),
		InputSource:    string(out.InputSource),
		VerdictSource:  string(verdict.Source),
		ProcessingTime: out.Elapsed,
	})
	return out, nil
}

// Reset abandons any in-flight run and returns to Idle
func (c *Controller) Reset() {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	// bumping the sequence invalidates the running goroutine's id
	c.runID++
	c.busy = false
	c.transition(PhaseIdle, nil)
	c.mu.Unlock()
}

// advance moves run id to phase. It fails once the run has been superseded.
// Terminal phases release the busy guard.
func (c *Controller) advance(ctx context.Context, id uint64, to Phase, verdict *models.Verdict) bool {
	c.mu.Lock()
	if id != c.runID {
		c.mu.Unlock()
		return false
	}
	if !c.transition(to, verdict) {
		c.mu.Unlock()
		return false
	}
	if to.Terminal() {
		c.busy = false
		c.cancel = nil
	}
	c.mu.Unlock()

	c.publish(ctx, observer.PipelineEvent{EventType: observer.PhaseChanged, RunID: id, Phase: to.String()})
	return true
}

// abandon ends run id. If the run is still current (its caller's context was
// cancelled rather than a Reset) the controller goes back to Idle.
func (c *Controller) abandon(ctx context.Context, id uint64, start time.Time) (Outcome, error) {
	c.mu.Lock()
	if id == c.runID {
		c.busy = false
		c.cancel = nil
		c.transition(PhaseIdle, nil)
	}
	c.mu.Unlock()

	c.publish(ctx, observer.PipelineEvent{
		EventType:      observer.RunAbandoned,
		RunID:          id,
		Phase:          PhaseIdle.String(),
		ProcessingTime: time.Since(start),
	})
	return Outcome{RunID: id, Phase: PhaseIdle}, ErrAbandoned
}

// transition is the only writer of c.state. Callers hold c.mu.
func (c *Controller) transition(to Phase, verdict *models.Verdict) bool {
	from := c.state.Phase
	s, ok := next(c.state, to, verdict)
	if !ok {
		logger.WithFields(logrus.Fields{
			"session_id": c.opts.SessionID,
			"run_id":     c.runID,
			"from":       from.String(),
			"to":         to.String(),
		}).Error("Rejected invalid pipeline transition")
		return false
	}
	c.state = s
	return true
}

func (c *Controller) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	var ch <-chan time.Time
	if c.opts.After != nil {
		ch = c.opts.After(d)
	} else {
		timer := time.NewTimer(d)
		defer timer.Stop()
		ch = timer.C
	}

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) publish(ctx context.Context, event observer.PipelineEvent) {
	if c.opts.Events == nil {
		return
	}
	event.SessionID = c.opts.SessionID
	c.opts.Events.NotifyObservers(ctx, event)
}
