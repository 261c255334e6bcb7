// Package availability decides whether a faculty member is free right now.
//
// Evaluate is a pure function over the current instant, the operating
// rules and the day's scheduled intervals. Evaluator wraps it with a
// calendar Source, a reference timezone and a fetch deadline.
package availability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	domerrors "github.com/garyellow/campus-assist-go/internal/errors"
)

// DefaultFetchTimeout bounds a single Source call.
const DefaultFetchTimeout = 10 * time.Second

// Interval is one scheduled busy block.
type Interval struct {
	Identity string // bare person name; derived from Title when empty
	Title    string
	Start    time.Time
	End      time.Time
}

// Contains reports whether t falls within [Start, End], both ends inclusive.
func (iv Interval) Contains(t time.Time) bool {
	return !t.Before(iv.Start) && !t.After(iv.End)
}

func (iv Interval) identity() string {
	if iv.Identity != "" {
		return iv.Identity
	}
	return ExtractIdentity(iv.Title)
}

// Feed is the outcome of reading a calendar source: either intervals or
// the error that prevented reading them.
type Feed struct {
	Intervals []Interval
	Err       error
}

// Evaluate returns the availability of identity at now. Checks run in a
// fixed order and the first that applies decides the result:
//
//  1. holiday weekday
//  2. outside operating hours
//  3. feed failure
//  4. an interval for identity containing now
//  5. available
//
// rules may be nil, in which case only the feed is consulted.
func Evaluate(now time.Time, identity string, feed Feed, rules *OperatingRules) Result {
	if res, closed := rules.gate(now); closed {
		return res
	}

	if feed.Err != nil {
		err := feed.Err
		if !errors.Is(err, domerrors.ErrFetchFailure) {
			err = fmt.Errorf("%w: %w", domerrors.ErrFetchFailure, err)
		}
		return Result{Status: FetchError, Err: err}
	}

	for _, iv := range feed.Intervals {
		if identityMatches(iv.identity(), identity) && iv.Contains(now) {
			return Result{Status: InSession, Start: iv.Start, End: iv.End, Title: iv.Title}
		}
	}

	return Result{Available: true, Status: Available}
}

// Source lists the scheduled intervals of the calendar day containing day.
type Source interface {
	Intervals(ctx context.Context, day time.Time) ([]Interval, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context, day time.Time) ([]Interval, error)

// Intervals calls f(ctx, day).
func (f SourceFunc) Intervals(ctx context.Context, day time.Time) ([]Interval, error) {
	return f(ctx, day)
}

// MetricsRecorder receives one call per evaluation.
type MetricsRecorder interface {
	RecordAvailability(status string, duration time.Duration)
}

// Evaluator binds the operating rules, reference timezone and calendar
// source of one deployment.
type Evaluator struct {
	Rules    *OperatingRules
	Location *time.Location
	Source   Source // nil means no calendar: every open-hours check is Available
	Timeout  time.Duration
	Metrics  MetricsRecorder
}

// Check evaluates identity at now. The source is not consulted when the
// operating rules already close the campus.
func (e *Evaluator) Check(ctx context.Context, identity string, now time.Time) Result {
	start := time.Now()
	if e.Location != nil {
		now = now.In(e.Location)
	}

	res, closed := e.Rules.gate(now)
	if !closed {
		res = Evaluate(now, identity, e.fetch(ctx, now), e.Rules)
	}

	if res.Status == FetchError {
		slog.WarnContext(ctx, "Calendar fetch failed", "identity", identity, "error", res.Err)
	}
	if e.Metrics != nil {
		e.Metrics.RecordAvailability(res.Status.String(), time.Since(start))
	}
	return res
}

func (e *Evaluator) fetch(ctx context.Context, day time.Time) Feed {
	if e.Source == nil {
		return Feed{}
	}

	timeout := e.Timeout
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	intervals, err := e.Source.Intervals(fetchCtx, day)
	if err != nil {
		return Feed{Err: err}
	}
	return Feed{Intervals: intervals}
}
