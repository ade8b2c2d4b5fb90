package queue

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// DefaultRetrySchedule is the delay before each retry of a failed task. The
// initial attempt is free, so a task is tried at most once more per entry.
var DefaultRetrySchedule = []time.Duration{
	5 * time.Second,
	30 * time.Second,
	60 * time.Second,
}

// Permanent marks an error as terminal so Retry gives up immediately.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Retry runs op, retrying failures after each delay in schedule until the
// schedule is exhausted, op succeeds, op returns a Permanent error, or the
// context is cancelled. The last error is returned on exhaustion.
func Retry(ctx context.Context, schedule []time.Duration, op func(ctx context.Context) error) error {
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, op(ctx)
	}, backoff.WithBackOff(&scheduleBackOff{delays: schedule}))
	return err
}

// scheduleBackOff replays a fixed list of delays, then stops.
type scheduleBackOff struct {
	delays []time.Duration
	next   int
}

func (s *scheduleBackOff) NextBackOff() time.Duration {
	if s.next >= len(s.delays) {
		return backoff.Stop
	}
	d := s.delays[s.next]
	s.next++
	return d
}

func (s *scheduleBackOff) Reset() {
	s.next = 0
}
