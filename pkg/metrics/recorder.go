// Package metrics records engine activity: sends, generations, workflow steps, mode switches and triggers.
package metrics

import "time"

// Recorder defines the interface for recording engine metrics.
type Recorder interface {
	// ObserveSend records the outcome of one send attempt.
	ObserveSend(mode, outcome string)

	// ObserveGeneration records one finished collaborator call.
	ObserveGeneration(mode, status string, duration time.Duration)

	// IncWorkflowEvent counts workflow transitions (started, answered, reprompted, completed, cancelled).
	IncWorkflowEvent(kind, event string)

	// IncModeSwitch counts active mode changes.
	IncModeSwitch(from, to string)

	// IncTrigger counts launch and mount triggers by source.
	IncTrigger(source string)
}

// NoopRecorder implements Recorder with no-op behavior for when metrics are disabled.
type NoopRecorder struct{}

// Nop returns a no-op metrics recorder that discards all metrics.
func Nop() Recorder {
	return &NoopRecorder{}
}

func (n *NoopRecorder) ObserveSend(_, _ string)                          {}
func (n *NoopRecorder) ObserveGeneration(_, _ string, _ time.Duration) {}
func (n *NoopRecorder) IncWorkflowEvent(_, _ string)                     {}
func (n *NoopRecorder) IncModeSwitch(_, _ string)                        {}
func (n *NoopRecorder) IncTrigger(_ string)                              {}
