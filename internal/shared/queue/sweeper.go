package queue

import (
	"time"

	"github.com/garyburd/redigo/redis"
	"github.com/pkg/errors"
)

const promoteInterval = 500 * time.Millisecond

// promoteLoop moves delayed jobs whose backoff or repeat delay elapsed
// back onto the wait list.
func (q *Queue) promoteLoop() {
	t := time.NewTicker(promoteInterval)
	defer t.Stop()

	for {
		select {
		case <-q.stopCh:
			return
		case <-t.C:
			if _, err := q.PromoteDue(); err != nil {
				q.log.Errorf("Can't promote delayed jobs: %s", err)
			}
		}
	}
}

func (q *Queue) PromoteDue() (int, error) {
	conn := q.pool.Get()
	defer conn.Close()

	now := time.Now().UnixNano()
	ids, err := redis.Strings(conn.Do("ZRANGEBYSCORE", q.key("delayed"), "-inf", now, "LIMIT", 0, 100))
	if err != nil {
		return 0, errors.Wrap(err, "can't list due delayed jobs")
	}

	promoted := 0
	for _, id := range ids {
		removed, zremErr := redis.Int(conn.Do("ZREM", q.key("delayed"), id))
		if zremErr != nil {
			return promoted, errors.Wrapf(zremErr, "can't remove job %s from delayed set", id)
		}
		if removed == 0 { // another promoter won the race
			continue
		}

		j, loadErr := q.loadJob(conn, id)
		if loadErr != nil {
			return promoted, loadErr
		}
		if j == nil {
			continue
		}

		j.Status = StatusWaiting
		if err = q.saveJob(conn, j); err != nil {
			return promoted, err
		}
		if _, err = conn.Do("RPUSH", q.key("wait"), id); err != nil {
			return promoted, errors.Wrapf(err, "can't push promoted job %s to wait list", id)
		}
		promoted++
	}

	return promoted, nil
}

// sweepLoop recovers stalled jobs and enforces retention limits.
func (q *Queue) sweepLoop() {
	stallTick := time.NewTicker(q.opts.StallTimeout / 2)
	retentionTick := time.NewTicker(time.Minute)
	defer stallTick.Stop()
	defer retentionTick.Stop()

	for {
		select {
		case <-q.stopCh:
			return
		case <-stallTick.C:
			if _, err := q.RecoverStalled(); err != nil {
				q.log.Errorf("Can't recover stalled jobs: %s", err)
			}
		case <-retentionTick.C:
			if err := q.enforceRetention(); err != nil {
				q.log.Errorf("Can't enforce retention: %s", err)
			}
		}
	}
}

// RecoverStalled re-queues active jobs whose worker stopped sending
// heartbeats, i.e. crashed. The recovered attempt was already counted
// when it started, so the attempts ceiling still applies.
func (q *Queue) RecoverStalled() (int, error) {
	conn := q.pool.Get()
	defer conn.Close()

	ids, err := redis.Strings(conn.Do("LRANGE", q.key("active"), 0, -1))
	if err != nil {
		return 0, errors.Wrap(err, "can't list active jobs")
	}

	recovered := 0
	for _, id := range ids {
		alive, existsErr := redis.Bool(conn.Do("EXISTS", q.beatKey(id)))
		if existsErr != nil {
			return recovered, errors.Wrapf(existsErr, "can't check heartbeat of job %s", id)
		}
		if alive {
			continue
		}

		j, loadErr := q.loadJob(conn, id)
		if loadErr != nil {
			return recovered, loadErr
		}
		if j == nil || j.Status != StatusActive {
			q.removeActive(conn, id)
			continue
		}

		q.log.Warnf("Job %s of task %q stalled on attempt %d/%d", id, j.Task, j.AttemptsMade, j.Attempts)
		q.removeActive(conn, id)
		j.StalledCount++

		if j.AttemptsMade < j.Attempts {
			j.Status = StatusWaiting
			if err = q.saveJob(conn, j); err != nil {
				return recovered, err
			}
			if _, err = conn.Do("RPUSH", q.key("wait"), id); err != nil {
				return recovered, errors.Wrapf(err, "can't re-queue stalled job %s", id)
			}
		} else {
			j.Status = StatusFailed
			j.FinishedAt = time.Now()
			j.Error = "job stalled and exhausted attempts"
			if err = q.saveJob(conn, j); err != nil {
				return recovered, err
			}
			if _, err = conn.Do("ZADD", q.key("failed"), j.FinishedAt.UnixNano(), id); err != nil {
				return recovered, errors.Wrapf(err, "can't record failure of stalled job %s", id)
			}
		}
		recovered++
	}

	return recovered, nil
}

func (q *Queue) enforceRetention() error {
	conn := q.pool.Get()
	defer conn.Close()

	if _, err := q.trimByAge(conn, q.key("completed"), q.opts.KeepCompleted.Age); err != nil {
		return err
	}
	if _, err := q.trimByCount(conn, q.key("completed"), q.opts.KeepCompleted.Count); err != nil {
		return err
	}
	if _, err := q.trimByAge(conn, q.key("failed"), q.opts.KeepFailed.Age); err != nil {
		return err
	}
	if _, err := q.trimByCount(conn, q.key("failed"), q.opts.KeepFailed.Count); err != nil {
		return err
	}

	return nil
}
