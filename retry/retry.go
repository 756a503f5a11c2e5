// Package retry re-invokes fallible operations according to a declarative
// strategy: bounded tries, bounded elapsed time, a jittered wait schedule
// between attempts, and lifecycle handlers on start, success, backoff and
// give-up.
//
// The executor holds no state across calls. Each invocation gets a fresh
// attempt context and a fresh wait schedule, so concurrent independent
// invocations through one shared Executor are safe without locking.
package retry

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Strategy is the per-call retry budget. It belongs to the entity performing
// the operation (a sink, a fetcher), so one executor can honor different
// budgets per backend.
//
// A nil *Strategy is an explicit opt-out: Do runs the operation once and the
// error propagates as if unwrapped, with no lifecycle events. A non-nil
// Strategy with zero limits retries without bound — combined with the
// default never-give-up predicate that loops forever, so unbounded
// strategies should only wrap operations that eventually succeed.
type Strategy struct {
	// MaxTries is the total attempt budget. 0 means unlimited.
	MaxTries int
	// MaxTime bounds elapsed wall-clock time, sleeps included. 0 means
	// unlimited.
	MaxTime time.Duration

	// MaxTriesFunc and MaxTimeFunc, when set, override the literals. Each
	// is resolved exactly once per Do invocation, not once per attempt, so
	// a strategy reading its budget from elsewhere stays stable for the
	// duration of one retried call.
	MaxTriesFunc func() int
	MaxTimeFunc  func() time.Duration
}

func (s *Strategy) limits() (tries int, budget time.Duration) {
	tries, budget = s.MaxTries, s.MaxTime
	if s.MaxTriesFunc != nil {
		tries = s.MaxTriesFunc()
	}
	if s.MaxTimeFunc != nil {
		budget = s.MaxTimeFunc()
	}
	return tries, budget
}

// Attempt is the context handed to lifecycle handlers.
type Attempt struct {
	// Target labels the operation for logs and handlers.
	Target string
	// Tries is the attempt count, starting at 1. 0 on the start event.
	Tries int
	// Elapsed is wall-clock time since the invocation began, prior sleeps
	// included.
	Elapsed time.Duration
	// Wait is the upcoming sleep. Set on backoff events only.
	Wait time.Duration
	// Err is the causing error. Set on backoff and give-up events.
	Err error
}

// Handler observes one lifecycle event.
type Handler func(Attempt)

// Executor drives the retry loop. Configure once with New, share freely.
type Executor struct {
	wait     Wait
	jitter   Jitter
	retryIf  func(error) bool
	giveUpIf func(error) bool
	swallow  bool

	onStart   []Handler
	onSuccess []Handler
	onBackoff []Handler
	onGiveUp  []Handler

	logger   *slog.Logger
	logLevel slog.Level

	sleep func(context.Context, time.Duration) error
}

// Option configures an Executor.
type Option func(*Executor)

// WithWait sets the backoff schedule. Default: Expo(500ms, 30s).
func WithWait(w Wait) Option { return func(e *Executor) { e.wait = w } }

// WithJitter sets the jitter applied to each computed wait. Default:
// FullJitter. Pass NoJitter to disable.
func WithJitter(j Jitter) Option { return func(e *Executor) { e.jitter = j } }

// RetryIf narrows which errors the executor intercepts. Errors the predicate
// rejects propagate immediately, uncounted. Default: every non-nil error.
func RetryIf(p func(error) bool) Option { return func(e *Executor) { e.retryIf = p } }

// GiveUpIf makes the executor stop retrying as soon as the predicate matches
// the caught error, regardless of remaining budget. Default: never.
func GiveUpIf(p func(error) bool) Option { return func(e *Executor) { e.giveUpIf = p } }

// SwallowGiveUp makes Do return the zero value and a nil error on terminal
// give-up instead of the causing error, for callers that treat exhaustion as
// skip-and-continue. An exhausted finite wait schedule still surfaces the
// error: continuing silently would require fabricating a wait.
func SwallowGiveUp() Option { return func(e *Executor) { e.swallow = true } }

// OnStart adds a handler fired once before the first attempt.
func OnStart(h ...Handler) Option { return func(e *Executor) { e.onStart = append(e.onStart, h...) } }

// OnSuccess adds a handler fired when an attempt returns without error.
func OnSuccess(h ...Handler) Option {
	return func(e *Executor) { e.onSuccess = append(e.onSuccess, h...) }
}

// OnBackoff adds a handler fired before each sleep between attempts.
func OnBackoff(h ...Handler) Option {
	return func(e *Executor) { e.onBackoff = append(e.onBackoff, h...) }
}

// OnGiveUp adds a handler fired on terminal failure.
func OnGiveUp(h ...Handler) Option { return func(e *Executor) { e.onGiveUp = append(e.onGiveUp, h...) } }

// WithLogger sets the logger used by the default backoff/give-up handlers.
func WithLogger(l *slog.Logger) Option { return func(e *Executor) { e.logger = l } }

// WithLogLevel sets the severity of the default handlers. Default: Warn.
func WithLogLevel(lvl slog.Level) Option { return func(e *Executor) { e.logLevel = lvl } }

// New creates an Executor. With no options it retries every error on an
// exponential jittered schedule and logs each backoff and give-up via slog.
func New(opts ...Option) *Executor {
	e := &Executor{
		wait:     Expo(500*time.Millisecond, 30*time.Second),
		jitter:   FullJitter,
		retryIf:  func(error) bool { return true },
		giveUpIf: func(error) bool { return false },
		logger:   slog.Default(),
		logLevel: slog.LevelWarn,
		sleep:    sleepCtx,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Run retries an operation without a result value.
func (e *Executor) Run(ctx context.Context, s *Strategy, target string, op func(context.Context) error) error {
	_, err := Do(ctx, e, s, target, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// Do invokes op until it succeeds, the strategy's budget runs out, the
// give-up predicate matches, or the wait schedule is exhausted. The success
// value of the final attempt is returned unchanged.
//
// The elapsed budget is measured from loop start and includes sleeps, so a
// MaxTime of 10s bounds the whole retried call, not just attempt time.
func Do[T any](ctx context.Context, e *Executor, s *Strategy, target string, op func(context.Context) (T, error)) (T, error) {
	var zero T
	if e == nil {
		e = defaultExecutor
	}
	if s == nil {
		// No strategy configured: do not intercept.
		return op(ctx)
	}

	maxTries, maxTime := s.limits()
	next := e.wait()
	start := time.Now()

	e.fire(e.onStart, Attempt{Target: target}, eventStart)

	tries := 0
	for {
		tries++
		result, err := op(ctx)
		elapsed := time.Since(start)
		if err == nil {
			e.fire(e.onSuccess, Attempt{Target: target, Tries: tries, Elapsed: elapsed}, eventSuccess)
			return result, nil
		}
		if !e.retryIf(err) {
			return zero, err
		}

		a := Attempt{Target: target, Tries: tries, Elapsed: elapsed, Err: err}

		exhausted := (maxTries > 0 && tries >= maxTries) || (maxTime > 0 && elapsed >= maxTime)
		if exhausted || e.giveUpIf(err) {
			e.fire(e.onGiveUp, a, eventGiveUp)
			if e.swallow {
				return zero, nil
			}
			return zero, err
		}

		wait, ok := next()
		if !ok {
			// Finite schedule ran dry before the budget did. Always
			// surface the error, swallow mode included.
			e.fire(e.onGiveUp, a, eventGiveUp)
			return zero, err
		}
		a.Wait = e.jitter(wait)
		e.fire(e.onBackoff, a, eventBackoff)

		if serr := e.sleep(ctx, a.Wait); serr != nil {
			return zero, fmt.Errorf("%s: cancelled during backoff: %w", target, err)
		}
	}
}

var defaultExecutor = New()

type event int

const (
	eventStart event = iota
	eventSuccess
	eventBackoff
	eventGiveUp
)

// fire runs the registered handlers in registration order. Backoff and
// give-up fall back to a human-readable log line when no handler is set.
func (e *Executor) fire(handlers []Handler, a Attempt, ev event) {
	if len(handlers) == 0 {
		switch ev {
		case eventBackoff:
			e.logger.Log(context.Background(), e.logLevel, "retrying",
				"target", a.Target, "tries", a.Tries,
				"elapsed", a.Elapsed, "wait", a.Wait, "error", a.Err)
		case eventGiveUp:
			e.logger.Log(context.Background(), e.logLevel, "giving up",
				"target", a.Target, "tries", a.Tries,
				"elapsed", a.Elapsed, "error", a.Err)
		}
		return
	}
	for _, h := range handlers {
		h(a)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
