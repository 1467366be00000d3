package models

import "time"

// Activity is one exchange processed by a deployed integration.
type Activity struct {
	ID      string           `json:"id"`
	Version string           `json:"ver,omitempty"`
	Pod     string           `json:"pod,omitempty"`
	At      int64            `json:"at"`
	Status  string           `json:"status,omitempty"`
	Failed  bool             `json:"failed"`
	Steps   []*StepExecution `json:"steps,omitempty"`
}

// StepExecution records how a single step behaved within an exchange.
// Duration is expressed in nanoseconds.
type StepExecution struct {
	ID       string   `json:"id"`
	Name     string   `json:"name,omitempty"`
	At       int64    `json:"at"`
	Duration int64    `json:"duration"`
	Failure  string   `json:"failure,omitempty"`
	Message  []string `json:"message,omitempty"`
	Output   string   `json:"output,omitempty"`
}

// Time returns the activity timestamp, stored as Unix milliseconds.
func (a *Activity) Time() time.Time {
	return time.UnixMilli(a.At)
}

// Time returns the step timestamp, stored as Unix milliseconds.
func (s *StepExecution) Time() time.Time {
	return time.UnixMilli(s.At)
}
