package app

import (
	"context"
	"math/rand"
	"time"
)

// Inter-message pacing keeps outbound traffic inside the delivery API's
// abuse/rate-limit heuristics. Single-target resends use a short fixed delay;
// bulk runs add a random jitter redrawn before every pause.
const (
	singleTargetDelay = 1000 * time.Millisecond
	bulkBaseDelay     = 3000 * time.Millisecond
	bulkJitterMax     = 2000 * time.Millisecond
)

// Sleeper suspends for d or until ctx is done. Injectable so tests run
// without real waiting.
type Sleeper func(ctx context.Context, d time.Duration) error

// JitterFunc returns a duration in [0, max). Injectable so tests can use a
// deterministic source.
type JitterFunc func(max time.Duration) time.Duration

func defaultSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func defaultJitter(max time.Duration) time.Duration {
	return time.Duration(rand.Int63n(int64(max)))
}

type pacer struct {
	sleep  Sleeper
	jitter JitterFunc
}

func newPacer(sleep Sleeper, jitter JitterFunc) *pacer {
	if sleep == nil {
		sleep = defaultSleep
	}
	if jitter == nil {
		jitter = defaultJitter
	}
	return &pacer{sleep: sleep, jitter: jitter}
}

// delayFor picks the pacing delay for the next pause.
func (p *pacer) delayFor(singleTarget bool) time.Duration {
	if singleTarget {
		return singleTargetDelay
	}
	return bulkBaseDelay + p.jitter(bulkJitterMax)
}

// wait suspends for one pacing delay. Returns the context error if the run
// was cancelled during the pause.
func (p *pacer) wait(ctx context.Context, singleTarget bool) error {
	d := p.delayFor(singleTarget)
	pacingDelaySecondsHist.Observe(d.Seconds())
	return p.sleep(ctx, d)
}
