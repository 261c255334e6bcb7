package warmup

import (
	"sync/atomic"
	"time"
)

// ReadinessState reports ready once warmup finishes or the timeout passes,
// whichever comes first, so a slow source cannot keep the service out of
// rotation forever.
type ReadinessState struct {
	ready   atomic.Bool
	started time.Time
	timeout time.Duration
	now     func() time.Time
}

// ReadinessStatus is the /readyz body.
type ReadinessStatus struct {
	Ready          bool   `json:"ready"`
	Reason         string `json:"reason,omitempty"`
	ElapsedSeconds int    `json:"elapsed_seconds"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// NewReadinessState starts the timeout clock now.
func NewReadinessState(timeout time.Duration) *ReadinessState {
	return newReadinessState(timeout, time.Now)
}

func newReadinessState(timeout time.Duration, now func() time.Time) *ReadinessState {
	return &ReadinessState{started: now(), timeout: timeout, now: now}
}

// IsReady reports whether traffic should be accepted.
func (s *ReadinessState) IsReady() bool {
	return s.ready.Load() || s.now().Sub(s.started) >= s.timeout
}

// MarkReady records that warmup finished.
func (s *ReadinessState) MarkReady() {
	s.ready.Store(true)
}

// WarmupCompleted reports whether MarkReady was called, ignoring the timeout.
func (s *ReadinessState) WarmupCompleted() bool {
	return s.ready.Load()
}

// Status describes the current state.
func (s *ReadinessState) Status() ReadinessStatus {
	elapsed := s.now().Sub(s.started)
	st := ReadinessStatus{
		Ready:          s.IsReady(),
		ElapsedSeconds: int(elapsed.Seconds()),
		TimeoutSeconds: int(s.timeout.Seconds()),
	}
	switch {
	case !st.Ready:
		st.Reason = "warmup in progress"
	case !s.ready.Load():
		st.Reason = "warmup timeout reached, tables may still be loading"
	}
	return st
}
