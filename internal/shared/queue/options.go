package queue

import "time"

type Retention struct {
	Count int
	Age   time.Duration
}

type Options struct {
	// Attempts is the per-job retry ceiling, counting the first run.
	Attempts int

	// InitialBackoff is the delay before the second attempt; every
	// further attempt doubles it.
	InitialBackoff time.Duration

	// JobTimeout bounds one handler invocation. Zero means no bound.
	JobTimeout time.Duration

	// StallTimeout is the heartbeat window: an active job with no
	// heartbeat for this long is considered crashed and re-queued.
	StallTimeout time.Duration

	// Concurrency is the number of worker goroutines pulling jobs.
	Concurrency int

	// KeepFailed should be larger than KeepCompleted: failed jobs are
	// kept around for postmortem inspection.
	KeepCompleted Retention
	KeepFailed    Retention
}

func (o Options) withDefaults() Options {
	if o.Attempts <= 0 {
		o.Attempts = 1
	}
	if o.InitialBackoff <= 0 {
		o.InitialBackoff = time.Second
	}
	if o.StallTimeout <= 0 {
		o.StallTimeout = 30 * time.Second
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 2
	}
	if o.KeepCompleted.Count <= 0 {
		o.KeepCompleted.Count = 100
	}
	if o.KeepCompleted.Age <= 0 {
		o.KeepCompleted.Age = 24 * time.Hour
	}
	if o.KeepFailed.Count <= 0 {
		o.KeepFailed.Count = 1000
	}
	if o.KeepFailed.Age <= 0 {
		o.KeepFailed.Age = 7 * 24 * time.Hour
	}
	return o
}

type EnqueueOptions struct {
	// JobID overrides the generated job id. Enqueueing an id that
	// already exists is a no-op returning the existing id, which makes
	// repeating jobs safe to re-arm on every process start.
	JobID string

	// RepeatEvery re-enqueues the job this long after each finish.
	RepeatEvery time.Duration
}

// backoffDelay returns the delay before the next attempt after
// attemptsMade failed ones: initial, 2*initial, 4*initial, ...
func backoffDelay(initial time.Duration, attemptsMade int) time.Duration {
	d := initial
	for i := 1; i < attemptsMade; i++ {
		d *= 2
	}
	return d
}
