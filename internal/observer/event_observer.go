package observer

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"go-redflag-detector/internal/logger"
)

// PipelineEvent describes one step of a session's pipeline run
type PipelineEvent struct {
	EventType      EventType     `json:"event_type"`
	Timestamp      time.Time     `json:"timestamp"`
	SessionID      string        `json:"session_id,omitempty"`
	RunID          uint64        `json:"run_id"`
	Phase          string        `json:"phase"`
	InputSource    string        `json:"input_source,omitempty"`
	VerdictSource  string        `json:"verdict_source,omitempty"`
	ProcessingTime time.Duration `json:"processing_time"`
}

// EventType represents the type of pipeline event
type EventType string

const (
	// RunStarted when a run is accepted and leaves Idle
	RunStarted EventType = "run_started"
	// PhaseChanged on every state transition inside a run
	PhaseChanged EventType = "phase_changed"
	// RunPresented when a verdict is revealed
	RunPresented EventType = "run_presented"
	// RunRejected when no usable text was found
	RunRejected EventType = "run_rejected"
	// RunAbandoned when a reset cancelled the run
	RunAbandoned EventType = "run_abandoned"
	// RunBusy when a run was refused by the single-flight guard
	RunBusy EventType = "run_busy"
)

// Observer defines the interface for event observers
type Observer interface {
	OnEvent(ctx context.Context, event PipelineEvent)
	GetObserverName() string
}

// Subject defines the interface for event publishers
type Subject interface {
	Subscribe(observer Observer)
	Unsubscribe(observer Observer)
	NotifyObservers(ctx context.Context, event PipelineEvent)
}

// LoggingObserver logs pipeline events
type LoggingObserver struct {
	logger *logrus.Logger
}

func NewLoggingObserver(logger *logrus.Logger) Observer {
	return &LoggingObserver{
		logger: logger,
	}
}

func (o *LoggingObserver) OnEvent(ctx context.Context, event PipelineEvent) {
	fields := logrus.Fields{
		"event_type":         event.EventType,
		"session_id":         event.SessionID,
		"run_id":             event.RunID,
		"phase":              event.Phase,
		"processing_time_ms": event.ProcessingTime.Milliseconds(),
	}
	if event.InputSource != "" {
		fields["input_source"] = event.InputSource
	}
	if event.VerdictSource != "" {
		fields["source"] = event.VerdictSource
	}

	entry := o.logger.WithFields(fields)
	switch event.EventType {
	case RunStarted:
		entry.Info("Pipeline run started")
	case PhaseChanged:
		entry.Debug("Pipeline phase changed")
	case RunPresented:
		entry.Info("Verdict presented")
	case RunRejected:
		entry.Info("Pipeline run rejected, no usable text")
	case RunAbandoned:
		entry.Warn("Pipeline run abandoned by reset")
	case RunBusy:
		entry.Warn("Pipeline busy, run refused")
	default:
		entry.Info("Pipeline event occurred")
	}
}

func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}

// MetricsObserver collects counters from pipeline events
type MetricsObserver struct {
	mu                  sync.RWMutex
	totalRuns           int64
	presentedRuns       int64
	rejectedRuns        int64
	abandonedRuns       int64
	busyRefusals        int64
	remoteVerdicts      int64
	syntheticVerdicts   int64
	totalProcessingTime time.Duration
}

// NewMetricsObserver returns the concrete type so callers can read GetMetrics
func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{}
}

func (o *MetricsObserver) OnEvent(ctx context.Context, event PipelineEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch event.EventType {
	case RunStarted:
		o.totalRuns++
	case RunPresented:
		o.presentedRuns++
		o.totalProcessingTime += event.ProcessingTime
		switch event.VerdictSource {
		case "remote":
			o.remoteVerdicts++
		case "synthetic":
			o.syntheticVerdicts++
		}
	case RunRejected:
		o.rejectedRuns++
	case RunAbandoned:
		o.abandonedRuns++
	case RunBusy:
		o.busyRefusals++
	}
}

func (o *MetricsObserver) GetObserverName() string {
	return "metrics_observer"
}

// GetMetrics returns a snapshot of the counters
func (o *MetricsObserver) GetMetrics() map[string]interface{} {
	o.mu.RLock()
	defer o.mu.RUnlock()

	avgProcessingTime := time.Duration(0)
	if o.presentedRuns > 0 {
		avgProcessingTime = o.totalProcessingTime / time.Duration(o.presentedRuns)
	}

	return map[string]interface{}{
		"total_runs":             o.totalRuns,
		"presented_runs":         o.presentedRuns,
		"rejected_runs":          o.rejectedRuns,
		"abandoned_runs":         o.abandonedRuns,
		"busy_refusals":          o.busyRefusals,
		"remote_verdicts":        o.remoteVerdicts,
		"synthetic_verdicts":     o.syntheticVerdicts,
		"avg_processing_time_ms": avgProcessingTime.Milliseconds(),
	}
}

// EventPublisher implements the Subject interface
type EventPublisher struct {
	mu        sync.RWMutex
	wg        sync.WaitGroup
	observers []Observer
}

func NewEventPublisher() *EventPublisher {
	return &EventPublisher{
		observers: make([]Observer, 0),
	}
}

func (p *EventPublisher) Subscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, observer)
}

func (p *EventPublisher) Unsubscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, obs := range p.observers {
		if obs.GetObserverName() == observer.GetObserverName() {
			p.observers = append(p.observers[:i], p.observers[i+1:]...)
			break
		}
	}
}

// NotifyObservers fans the event out to every observer on its own goroutine.
// The run's context is detached so a reset does not cut off the abandon event.
func (p *EventPublisher) NotifyObservers(ctx context.Context, event PipelineEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	p.mu.RLock()
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	p.mu.RUnlock()

	ctx = context.WithoutCancel(ctx)
	for _, observer := range observers {
		p.wg.Add(1)
		go func(obs Observer) {
			defer p.wg.Done()
			defer func() {
				if r := recover(); r != nil {
					logger.WithFields(logrus.Fields{
						"observer": obs.GetObserverName(),
						"panic":    r,
					}).Error("Observer panicked while handling event")
				}
			}()
			obs.OnEvent(ctx, event)
		}(observer)
	}
}

// Wait blocks until every dispatched notification has been handled
func (p *EventPublisher) Wait() {
	p.wg.Wait()
}
