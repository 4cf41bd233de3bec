package browser

import (
	"context"
	"errors"
	"time"
)

// ErrPollTimeout is returned by Poll when the condition never became true
var ErrPollTimeout = errors.New("polling timed out")

// PollOptions configures Poll
type PollOptions struct {
	Interval time.Duration
	Timeout  time.Duration

	// OnProgress, when set, is called every ProgressEvery unsuccessful attempts
	ProgressEvery int
	OnProgress    func(attempts int, elapsed time.Duration)
}

// Poll calls check every Interval until it reports done, returns an error,
// the timeout passes or ctx is cancelled. The first check happens after one
// interval, giving the page time to react to whatever preceded the call.
func Poll(ctx context.Context, opts PollOptions, check func(ctx context.Context) (bool, error)) error {
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}

	start := time.Now()
	var deadline <-chan time.Time
	if opts.Timeout > 0 {
		timer := time.NewTimer(opts.Timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()

	attempts := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			return ErrPollTimeout
		case <-ticker.C:
			done, err := check(ctx)
			if err != nil {
				return err
			}
			if done {
				return nil
			}
			attempts++
			if opts.OnProgress != nil && opts.ProgressEvery > 0 && attempts%opts.ProgressEvery == 0 {
				opts.OnProgress(attempts, time.Since(start))
			}
		}
	}
}

// Sleep waits for d or until ctx is done
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
