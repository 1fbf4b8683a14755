package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/garyburd/redigo/redis"
	"github.com/pkg/errors"
	uuid "github.com/satori/go.uuid"
	redsync "gopkg.in/redsync.v1"

	"github.com/solguard/solguard-api/internal/shared/logutil"
)

// Queue is a durable FIFO work queue on redis: jobs wait in a list, run
// under a per-job redsync lock with heartbeats, retry with exponential
// backoff through a delayed zset and end up in completed/failed
// retention zsets.
type Queue struct {
	name  string
	pool  *redis.Pool
	locks *redsync.Redsync
	log   logutil.Log
	opts  Options

	handlers map[string]*reflectHandler

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func New(name string, pool *redis.Pool, locks *redsync.Redsync, log logutil.Log, opts Options) *Queue {
	return &Queue{
		name:     name,
		pool:     pool,
		locks:    locks,
		log:      log.Child("queue/" + name),
		opts:     opts.withDefaults(),
		handlers: map[string]*reflectHandler{},
		stopCh:   make(chan struct{}),
	}
}

func (q *Queue) Name() string {
	return q.name
}

func (q *Queue) key(parts ...string) string {
	k := "jobs:" + q.name
	for _, p := range parts {
		k += ":" + p
	}
	return k
}

func (q *Queue) jobKey(id string) string {
	return q.key("job", id)
}

func (q *Queue) beatKey(id string) string {
	return q.key("beat", id)
}

// Enqueue persists a job and pushes it onto the wait list. The
// connection deadlines of the pool bound the call: on a redis outage it
// fails fast and the job never existed.
func (q *Queue) Enqueue(ctx context.Context, task string, message interface{}, eo *EnqueueOptions) (string, error) {
	if eo == nil {
		eo = &EnqueueOptions{}
	}

	payload, err := json.Marshal(message)
	if err != nil {
		return "", errors.Wrap(err, "can't json marshal job payload")
	}

	id := eo.JobID
	if id == "" {
		id = uuid.NewV4().String()
	}

	conn, err := q.conn(ctx)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	if eo.JobID != "" {
		exists, existsErr := redis.Bool(conn.Do("EXISTS", q.jobKey(id)))
		if existsErr != nil {
			return "", errors.Wrapf(existsErr, "can't check existence of job %s", id)
		}
		if exists {
			q.log.Debugf("enqueue", "Job %s already exists, not enqueueing again", id)
			return id, nil
		}
	}

	j := &Job{
		ID:          id,
		Task:        task,
		Payload:     payload,
		Status:      StatusWaiting,
		Attempts:    q.opts.Attempts,
		RepeatEvery: eo.RepeatEvery,
		CreatedAt:   time.Now(),
	}

	if err = conn.Send("HMSET", j.redisArgs(q.jobKey(id))...); err != nil {
		return "", errors.Wrapf(err, "can't store job %s", id)
	}
	if err = conn.Send("RPUSH", q.key("wait"), id); err != nil {
		return "", errors.Wrapf(err, "can't push job %s to wait list", id)
	}
	if err = conn.Flush(); err != nil {
		return "", errors.Wrapf(err, "can't flush enqueue of job %s", id)
	}
	if _, err = conn.Receive(); err != nil {
		return "", errors.Wrapf(err, "can't enqueue job %s", id)
	}

	q.log.Infof("Enqueued job %s of task %q", id, task)
	return id, nil
}

func (q *Queue) conn(ctx context.Context) (redis.Conn, error) {
	select {
	case <-ctx.Done():
		return nil, errors.Wrap(ctx.Err(), "queue context expired")
	default:
	}

	conn := q.pool.Get()
	if err := conn.Err(); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "can't get redis connection")
	}

	return conn, nil
}

// Job fetches a job snapshot, nil if it doesn't exist (e.g. purged).
func (q *Queue) Job(id string) (*Job, error) {
	conn := q.pool.Get()
	defer conn.Close()

	return q.loadJob(conn, id)
}

func (q *Queue) loadJob(conn redis.Conn, id string) (*Job, error) {
	m, err := redis.StringMap(conn.Do("HGETALL", q.jobKey(id)))
	if err != nil {
		return nil, errors.Wrapf(err, "can't fetch job %s", id)
	}

	return jobFromMap(id, m)
}

func (q *Queue) saveJob(conn redis.Conn, j *Job) error {
	if _, err := conn.Do("HMSET", j.redisArgs(q.jobKey(j.ID))...); err != nil {
		return errors.Wrapf(err, "can't save job %s", j.ID)
	}
	return nil
}

type Counts struct {
	Waiting   int `json:"waiting"`
	Delayed   int `json:"delayed"`
	Active    int `json:"active"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

func (q *Queue) Counts() (*Counts, error) {
	conn := q.pool.Get()
	defer conn.Close()

	var c Counts
	var err error
	if c.Waiting, err = redis.Int(conn.Do("LLEN", q.key("wait"))); err != nil {
		return nil, errors.Wrap(err, "can't count waiting jobs")
	}
	if c.Active, err = redis.Int(conn.Do("LLEN", q.key("active"))); err != nil {
		return nil, errors.Wrap(err, "can't count active jobs")
	}
	if c.Delayed, err = redis.Int(conn.Do("ZCARD", q.key("delayed"))); err != nil {
		return nil, errors.Wrap(err, "can't count delayed jobs")
	}
	if c.Completed, err = redis.Int(conn.Do("ZCARD", q.key("completed"))); err != nil {
		return nil, errors.Wrap(err, "can't count completed jobs")
	}
	if c.Failed, err = redis.Int(conn.Do("ZCARD", q.key("failed"))); err != nil {
		return nil, errors.Wrap(err, "can't count failed jobs")
	}

	return &c, nil
}

// ForceWait moves a delayed or terminally failed job back onto the wait
// list for another attempt. Admin operation.
func (q *Queue) ForceWait(id string) error {
	conn := q.pool.Get()
	defer conn.Close()

	j, err := q.loadJob(conn, id)
	if err != nil {
		return err
	}
	if j == nil {
		return fmt.Errorf("no job %s in queue %s", id, q.name)
	}

	switch j.Status {
	case StatusDelayed, StatusFailed:
	default:
		return fmt.Errorf("job %s is %s, only delayed or failed jobs can be forced to wait", id, j.Status)
	}

	if _, err = conn.Do("ZREM", q.key("delayed"), id); err != nil {
		return errors.Wrapf(err, "can't remove job %s from delayed set", id)
	}
	if _, err = conn.Do("ZREM", q.key("failed"), id); err != nil {
		return errors.Wrapf(err, "can't remove job %s from failed set", id)
	}

	j.Status = StatusWaiting
	j.AttemptsMade = 0
	j.Error = ""
	if err = q.saveJob(conn, j); err != nil {
		return err
	}
	if _, err = conn.Do("RPUSH", q.key("wait"), id); err != nil {
		return errors.Wrapf(err, "can't push job %s to wait list", id)
	}

	q.log.Infof("Forced job %s back to waiting", id)
	return nil
}

// Purge deletes finished jobs older than the given age, returning how
// many were removed. Only terminal statuses can be purged.
func (q *Queue) Purge(st Status, olderThan time.Duration) (int, error) {
	if !st.IsTerminal() {
		return 0, fmt.Errorf("can't purge non-terminal status %s", st)
	}

	conn := q.pool.Get()
	defer conn.Close()

	return q.trimByAge(conn, q.key(string(st)), olderThan)
}

func (q *Queue) trimByAge(conn redis.Conn, zsetKey string, age time.Duration) (int, error) {
	maxScore := time.Now().Add(-age).UnixNano()

	ids, err := redis.Strings(conn.Do("ZRANGEBYSCORE", zsetKey, "-inf", maxScore))
	if err != nil {
		return 0, errors.Wrapf(err, "can't list old jobs of %s", zsetKey)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	for _, id := range ids {
		if _, err = conn.Do("DEL", q.jobKey(id)); err != nil {
			return 0, errors.Wrapf(err, "can't delete job %s", id)
		}
	}
	if _, err = conn.Do("ZREMRANGEBYSCORE", zsetKey, "-inf", maxScore); err != nil {
		return 0, errors.Wrapf(err, "can't trim %s by age", zsetKey)
	}

	return len(ids), nil
}

func (q *Queue) trimByCount(conn redis.Conn, zsetKey string, keep int) (int, error) {
	total, err := redis.Int(conn.Do("ZCARD", zsetKey))
	if err != nil {
		return 0, errors.Wrapf(err, "can't count jobs of %s", zsetKey)
	}
	if total <= keep {
		return 0, nil
	}

	n := total - keep
	ids, err := redis.Strings(conn.Do("ZRANGE", zsetKey, 0, n-1))
	if err != nil {
		return 0, errors.Wrapf(err, "can't list excess jobs of %s", zsetKey)
	}

	for _, id := range ids {
		if _, err = conn.Do("DEL", q.jobKey(id)); err != nil {
			return 0, errors.Wrapf(err, "can't delete job %s", id)
		}
	}
	if _, err = conn.Do("ZREMRANGEBYRANK", zsetKey, 0, n-1); err != nil {
		return 0, errors.Wrapf(err, "can't trim %s by count", zsetKey)
	}

	return len(ids), nil
}
