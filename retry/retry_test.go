package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

// quiet returns an executor with no real sleeping and no jitter, counting
// lifecycle events into the given recorder.
func quiet(rec *recorder, opts ...Option) *Executor {
	base := []Option{
		WithWait(Constant(time.Millisecond)),
		WithJitter(NoJitter),
	}
	if rec != nil {
		base = append(base,
			OnStart(rec.handler("start")),
			OnSuccess(rec.handler("success")),
			OnBackoff(rec.handler("backoff")),
			OnGiveUp(rec.handler("giveup")),
		)
	}
	e := New(append(base, opts...)...)
	e.sleep = func(context.Context, time.Duration) error { return nil }
	return e
}

type recorder struct {
	events   []string
	attempts []Attempt
}

func (r *recorder) handler(name string) Handler {
	return func(a Attempt) {
		r.events = append(r.events, name)
		r.attempts = append(r.attempts, a)
	}
}

func (r *recorder) count(name string) int {
	n := 0
	for _, e := range r.events {
		if e == name {
			n++
		}
	}
	return n
}

// failNTimes fails the first n attempts, then succeeds.
func failNTimes(n int) func(context.Context) (string, error) {
	calls := 0
	return func(context.Context) (string, error) {
		calls++
		if calls <= n {
			return "", fmt.Errorf("attempt %d: %w", calls, errBoom)
		}
		return "ok", nil
	}
}

func TestEventualSuccess(t *testing.T) {
	rec := &recorder{}
	e := quiet(rec)

	got, err := Do(context.Background(), e, &Strategy{MaxTries: 10}, "op", failNTimes(3))
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if got != "ok" {
		t.Errorf("result = %q, want ok", got)
	}
	if n := rec.count("backoff"); n != 3 {
		t.Errorf("backoff events = %d, want 3", n)
	}
	if n := rec.count("success"); n != 1 {
		t.Errorf("success events = %d, want 1", n)
	}
	if n := rec.count("start"); n != 1 {
		t.Errorf("start events = %d, want 1", n)
	}
	last := rec.attempts[len(rec.attempts)-1]
	if last.Tries != 4 || last.Target != "op" {
		t.Errorf("success attempt = %+v, want tries 4 target op", last)
	}
}

func TestTriesExhausted(t *testing.T) {
	rec := &recorder{}
	e := quiet(rec)

	calls := 0
	_, err := Do(context.Background(), e, &Strategy{MaxTries: 4}, "op",
		func(context.Context) (int, error) {
			calls++
			return 0, errBoom
		})
	if !errors.Is(err, errBoom) {
		t.Fatalf("err = %v, want errBoom", err)
	}
	if calls != 4 {
		t.Errorf("attempts = %d, want 4", calls)
	}
	if n := rec.count("backoff"); n != 3 {
		t.Errorf("backoff events = %d, want 3", n)
	}
	if n := rec.count("giveup"); n != 1 {
		t.Errorf("giveup events = %d, want 1", n)
	}
}

func TestSwallowGiveUp(t *testing.T) {
	e := quiet(nil, SwallowGiveUp())

	got, err := Do(context.Background(), e, &Strategy{MaxTries: 2}, "op",
		func(context.Context) (string, error) { return "partial", errBoom })
	if err != nil {
		t.Fatalf("swallow mode returned error: %v", err)
	}
	if got != "" {
		t.Errorf("result = %q, want zero value", got)
	}
}

func TestNoStrategyPassthrough(t *testing.T) {
	rec := &recorder{}
	e := quiet(rec)

	calls := 0
	_, err := Do(context.Background(), e, nil, "op", func(context.Context) (int, error) {
		calls++
		return 0, errBoom
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("err = %v, want errBoom", err)
	}
	if calls != 1 {
		t.Errorf("attempts = %d, want 1", calls)
	}
	if len(rec.events) != 0 {
		t.Errorf("lifecycle events fired without a strategy: %v", rec.events)
	}
}

func TestMaxTimeExhausted(t *testing.T) {
	rec := &recorder{}
	e := quiet(rec)

	calls := 0
	_, err := Do(context.Background(), e, &Strategy{MaxTime: time.Nanosecond}, "op",
		func(context.Context) (int, error) {
			calls++
			time.Sleep(time.Millisecond)
			return 0, errBoom
		})
	if !errors.Is(err, errBoom) {
		t.Fatalf("err = %v, want errBoom", err)
	}
	if calls != 1 {
		t.Errorf("attempts = %d, want 1 (time budget spent)", calls)
	}
	if n := rec.count("giveup"); n != 1 {
		t.Errorf("giveup events = %d, want 1", n)
	}
}

func TestGiveUpPredicate(t *testing.T) {
	fatal := errors.New("fatal")
	rec := &recorder{}
	e := quiet(rec, GiveUpIf(func(err error) bool { return errors.Is(err, fatal) }))

	calls := 0
	_, err := Do(context.Background(), e, &Strategy{MaxTries: 10}, "op",
		func(context.Context) (int, error) {
			calls++
			if calls < 3 {
				return 0, errBoom
			}
			return 0, fatal
		})
	if !errors.Is(err, fatal) {
		t.Fatalf("err = %v, want fatal", err)
	}
	if calls != 3 {
		t.Errorf("attempts = %d, want 3", calls)
	}
}

func TestRetryIfFiltersErrors(t *testing.T) {
	rec := &recorder{}
	e := quiet(rec, RetryIf(func(err error) bool { return errors.Is(err, errBoom) }))

	other := errors.New("not transient")
	calls := 0
	_, err := Do(context.Background(), e, &Strategy{MaxTries: 10}, "op",
		func(context.Context) (int, error) {
			calls++
			return 0, other
		})
	if !errors.Is(err, other) {
		t.Fatalf("err = %v, want the non-transient error", err)
	}
	if calls != 1 {
		t.Errorf("attempts = %d, want 1", calls)
	}
	if n := rec.count("backoff") + rec.count("giveup"); n != 0 {
		t.Errorf("lifecycle events fired for a non-intercepted error: %v", rec.events)
	}
}

func TestSequenceExhaustionAlwaysSurfaces(t *testing.T) {
	// Swallow mode must not mask an exhausted finite schedule.
	e := quiet(nil, SwallowGiveUp(), WithWait(Sequence(time.Millisecond, time.Millisecond)))

	calls := 0
	_, err := Do(context.Background(), e, &Strategy{MaxTries: 100}, "op",
		func(context.Context) (int, error) {
			calls++
			return 0, errBoom
		})
	if !errors.Is(err, errBoom) {
		t.Fatalf("err = %v, want errBoom despite swallow mode", err)
	}
	if calls != 3 {
		t.Errorf("attempts = %d, want 3 (two waits, then dry)", calls)
	}
}

func TestCallableLimitsResolvedOncePerInvocation(t *testing.T) {
	resolved := 0
	s := &Strategy{
		MaxTriesFunc: func() int {
			resolved++
			return 5
		},
	}
	e := quiet(nil)

	_, err := Do(context.Background(), e, s, "op", failNTimes(3))
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if resolved != 1 {
		t.Errorf("MaxTriesFunc resolved %d times, want once", resolved)
	}

	// A second invocation resolves again.
	if _, err := Do(context.Background(), e, s, "op", failNTimes(0)); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if resolved != 2 {
		t.Errorf("MaxTriesFunc resolved %d times across two calls, want 2", resolved)
	}
}

func TestHandlersFireInRegistrationOrder(t *testing.T) {
	var order []string
	mk := func(name string) Handler {
		return func(Attempt) { order = append(order, name) }
	}
	e := quiet(nil, OnBackoff(mk("first"), mk("second")), OnBackoff(mk("third")))

	_, _ = Do(context.Background(), e, &Strategy{MaxTries: 2}, "op", failNTimes(1))
	want := []string{"first", "second", "third"}
	if len(order) != 3 {
		t.Fatalf("backoff handlers fired %d times, want 3: %v", len(order), order)
	}
	for i, w := range want {
		if order[i] != w {
			t.Errorf("order[%d] = %q, want %q", i, order[i], w)
		}
	}
}

func TestRun(t *testing.T) {
	e := quiet(nil)
	calls := 0
	err := e.Run(context.Background(), &Strategy{MaxTries: 3}, "op", func(context.Context) error {
		calls++
		if calls < 2 {
			return errBoom
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if calls != 2 {
		t.Errorf("attempts = %d, want 2", calls)
	}
}

func TestExpoSchedule(t *testing.T) {
	next := Expo(time.Second, 8*time.Second)()
	want := []time.Duration{
		time.Second, 2 * time.Second, 4 * time.Second,
		8 * time.Second, 8 * time.Second,
	}
	for i, w := range want {
		got, ok := next()
		if !ok {
			t.Fatalf("schedule exhausted at %d", i)
		}
		if got != w {
			t.Errorf("wait[%d] = %v, want %v", i, got, w)
		}
	}
}

func TestFullJitterNeverExceedsBase(t *testing.T) {
	base := 250 * time.Millisecond
	for range 1000 {
		if j := FullJitter(base); j < 0 || j > base {
			t.Fatalf("jitter %v outside [0, %v]", j, base)
		}
	}
	if FullJitter(0) != 0 {
		t.Error("jitter of zero wait should be zero")
	}
}

func TestBackoffWaitIsJittered(t *testing.T) {
	var waits []time.Duration
	e := quiet(nil,
		WithWait(Constant(time.Second)),
		WithJitter(func(d time.Duration) time.Duration { return d / 2 }),
		OnBackoff(func(a Attempt) { waits = append(waits, a.Wait) }),
	)

	_, _ = Do(context.Background(), e, &Strategy{MaxTries: 3}, "op", failNTimes(2))
	if len(waits) != 2 {
		t.Fatalf("backoff events = %d, want 2", len(waits))
	}
	for _, w := range waits {
		if w != 500*time.Millisecond {
			t.Errorf("handler saw wait %v, want jittered 500ms", w)
		}
	}
}
