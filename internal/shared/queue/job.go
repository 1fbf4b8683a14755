package queue

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/garyburd/redigo/redis"
	"github.com/pkg/errors"
)

type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusDelayed   Status = "delayed"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

type Job struct {
	ID      string
	Task    string
	Payload json.RawMessage
	Status  Status

	// Attempts is the retry ceiling snapshotted from queue options at
	// enqueue time, AttemptsMade counts started attempts.
	Attempts     int
	AttemptsMade int
	StalledCount int

	RepeatEvery time.Duration

	CreatedAt  time.Time
	FinishedAt time.Time

	Error string
}

func (j *Job) redisArgs(key string) redis.Args {
	args := redis.Args{key,
		"task", j.Task,
		"payload", []byte(j.Payload),
		"status", string(j.Status),
		"attempts", j.Attempts,
		"attempts_made", j.AttemptsMade,
		"stalled_count", j.StalledCount,
		"repeat_every_ms", int64(j.RepeatEvery / time.Millisecond),
		"created_at", j.CreatedAt.UnixNano(),
		"finished_at", j.FinishedAt.UnixNano(),
		"error", j.Error,
	}
	return args
}

func jobFromMap(id string, m map[string]string) (*Job, error) {
	if len(m) == 0 {
		return nil, nil
	}

	j := &Job{
		ID:      id,
		Task:    m["task"],
		Payload: json.RawMessage(m["payload"]),
		Status:  Status(m["status"]),
		Error:   m["error"],
	}

	var err error
	if j.Attempts, err = strconv.Atoi(m["attempts"]); err != nil {
		return nil, errors.Wrapf(err, "invalid attempts %q of job %s", m["attempts"], id)
	}
	if j.AttemptsMade, err = strconv.Atoi(m["attempts_made"]); err != nil {
		return nil, errors.Wrapf(err, "invalid attempts_made %q of job %s", m["attempts_made"], id)
	}
	if j.StalledCount, err = strconv.Atoi(m["stalled_count"]); err != nil {
		return nil, errors.Wrapf(err, "invalid stalled_count %q of job %s", m["stalled_count"], id)
	}

	repeatMS, err := strconv.ParseInt(m["repeat_every_ms"], 10, 64)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid repeat_every_ms %q of job %s", m["repeat_every_ms"], id)
	}
	j.RepeatEvery = time.Duration(repeatMS) * time.Millisecond

	createdAt, err := strconv.ParseInt(m["created_at"], 10, 64)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid created_at %q of job %s", m["created_at"], id)
	}
	j.CreatedAt = time.Unix(0, createdAt)

	finishedAt, err := strconv.ParseInt(m["finished_at"], 10, 64)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid finished_at %q of job %s", m["finished_at"], id)
	}
	j.FinishedAt = time.Unix(0, finishedAt)

	return j, nil
}
