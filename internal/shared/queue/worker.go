package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/garyburd/redigo/redis"
	"github.com/pkg/errors"
	redsync "gopkg.in/redsync.v1"
)

// reflectHandler wraps a `func(ctx context.Context, m *Msg) error` so
// task registration stays typed without per-task unmarshal boilerplate.
type reflectHandler struct {
	fn reflect.Value
}

func newReflectHandler(handler interface{}) (*reflectHandler, error) {
	handlerType := reflect.TypeOf(handler)
	if handlerType.Kind() != reflect.Func {
		return nil, fmt.Errorf("handler kind %s is not %s", handlerType.Kind(), reflect.Func)
	}

	if handlerType.NumIn() != 2 {
		return nil, fmt.Errorf("args count %d must be two", handlerType.NumIn())
	}

	contextType := reflect.TypeOf((*context.Context)(nil)).Elem()
	firstArgType := handlerType.In(0)
	if !firstArgType.Implements(contextType) {
		return nil, fmt.Errorf("handler's first arg is not Context, it's %s", firstArgType.Kind())
	}

	secondArgType := handlerType.In(1)
	if secondArgType.Kind() != reflect.Ptr {
		return nil, fmt.Errorf("handler's second arg is not pointer, it's %s", secondArgType.Kind())
	}
	if secondArgType.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("handler's second arg points not to struct but to %s", secondArgType.Elem().Kind())
	}

	if handlerType.NumOut() != 1 {
		return nil, fmt.Errorf("invalid output values count %d != 1", handlerType.NumOut())
	}
	errType := reflect.TypeOf((*error)(nil)).Elem()
	if !handlerType.Out(0).Implements(errType) {
		return nil, fmt.Errorf("return type is not error, it's %s", handlerType.Out(0).Kind())
	}

	return &reflectHandler{fn: reflect.ValueOf(handler)}, nil
}

func (h reflectHandler) call(ctx context.Context, payload json.RawMessage) error {
	argValue := reflect.New(h.fn.Type().In(1).Elem())
	if err := json.Unmarshal(payload, argValue.Interface()); err != nil {
		return errors.Wrap(err, "json unmarshal of job payload failed")
	}

	retValues := h.fn.Call([]reflect.Value{reflect.ValueOf(ctx), argValue})
	if ret := retValues[0].Interface(); ret != nil {
		return ret.(error)
	}

	return nil
}

// Process registers exactly one handler per task name.
func (q *Queue) Process(task string, handler interface{}) error {
	if q.handlers[task] != nil {
		return fmt.Errorf("handler for task %q is already registered in queue %s", task, q.name)
	}

	h, err := newReflectHandler(handler)
	if err != nil {
		return errors.Wrapf(err, "can't make handler for task %q", task)
	}

	q.handlers[task] = h
	return nil
}

// Run starts the worker goroutines, the delayed-job promoter and the
// stall/retention sweeper. It returns immediately; Stop shuts down.
func (q *Queue) Run() {
	for i := 0; i < q.opts.Concurrency; i++ {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			q.workLoop()
		}()
	}

	q.wg.Add(2)
	go func() {
		defer q.wg.Done()
		q.promoteLoop()
	}()
	go func() {
		defer q.wg.Done()
		q.sweepLoop()
	}()
}

func (q *Queue) Stop() {
	q.stopOnce.Do(func() {
		close(q.stopCh)
	})
	q.wg.Wait()
}

func (q *Queue) workLoop() {
	for {
		select {
		case <-q.stopCh:
			return
		default:
		}

		id, err := q.pullJob()
		if err != nil {
			q.log.Errorf("Polling failed: %s", err)
			time.Sleep(time.Second)
			continue
		}
		if id == "" {
			continue
		}

		q.runJob(id)
	}
}

func (q *Queue) pullJob() (string, error) {
	conn := q.pool.Get()
	defer conn.Close()

	id, err := redis.String(conn.Do("BRPOPLPUSH", q.key("wait"), q.key("active"), 1))
	if err == redis.ErrNil {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrap(err, "can't pull job from wait list")
	}

	return id, nil
}

func (q *Queue) runJob(id string) {
	// At-most-one concurrent execution per job id: a stalled-and-requeued
	// job whose original attempt is still alive must not run twice.
	mutex := q.locks.NewMutex(q.key("lock", id),
		redsync.SetExpiry(q.opts.StallTimeout*4),
		redsync.SetTries(1))
	if err := mutex.Lock(); err != nil {
		q.log.Warnf("Job %s is locked by another worker, returning it to wait list: %s", id, err)
		q.requeueActive(id)
		return
	}
	defer mutex.Unlock()

	conn := q.pool.Get()
	defer conn.Close()

	j, err := q.loadJob(conn, id)
	if err != nil {
		q.log.Errorf("Can't load job %s: %s", id, err)
		return
	}
	if j == nil || j.Status.IsTerminal() {
		q.removeActive(conn, id)
		return
	}

	handler := q.handlers[j.Task]
	if handler == nil {
		q.log.Errorf("No handler for task %q, failing job %s", j.Task, id)
		q.finishJob(conn, j, fmt.Errorf("no handler for task %q", j.Task))
		return
	}

	j.AttemptsMade++
	j.Status = StatusActive
	if err = q.saveJob(conn, j); err != nil {
		q.log.Errorf("Can't mark job %s active: %s", id, err)
		return
	}

	stopBeat := q.startHeartbeat(id)
	defer stopBeat()

	ctx := context.Background()
	if q.opts.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.opts.JobTimeout)
		defer cancel()
	}

	startedAt := time.Now()
	handlerErr := handler.call(ctx, j.Payload)
	q.log.Infof("Processed job %s of task %q on attempt %d/%d for %s",
		id, j.Task, j.AttemptsMade, j.Attempts, time.Since(startedAt))

	q.finishJob(conn, j, handlerErr)
}

func (q *Queue) startHeartbeat(id string) func() {
	stop := make(chan struct{})
	interval := q.opts.StallTimeout / 3

	beat := func() {
		conn := q.pool.Get()
		defer conn.Close()
		if _, err := conn.Do("PSETEX", q.beatKey(id), int64(q.opts.StallTimeout/time.Millisecond), 1); err != nil {
			q.log.Warnf("Can't send heartbeat for job %s: %s", id, err)
		}
	}
	beat()

	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				beat()
			}
		}
	}()

	return func() {
		close(stop)
		conn := q.pool.Get()
		defer conn.Close()
		if _, err := conn.Do("DEL", q.beatKey(id)); err != nil {
			q.log.Warnf("Can't delete heartbeat of job %s: %s", id, err)
		}
	}
}

func (q *Queue) finishJob(conn redis.Conn, j *Job, handlerErr error) {
	q.removeActive(conn, j.ID)

	if handlerErr == nil {
		j.Status = StatusCompleted
		j.FinishedAt = time.Now()
		j.Error = ""
		if err := q.saveJob(conn, j); err != nil {
			q.log.Errorf("Can't save completed job %s: %s", j.ID, err)
			return
		}
		if _, err := conn.Do("ZADD", q.key("completed"), j.FinishedAt.UnixNano(), j.ID); err != nil {
			q.log.Errorf("Can't record completion of job %s: %s", j.ID, err)
		}
		q.rearmRepeat(conn, j)
		return
	}

	j.Error = handlerErr.Error()

	if j.AttemptsMade < j.Attempts {
		delay := backoffDelay(q.opts.InitialBackoff, j.AttemptsMade)
		j.Status = StatusDelayed
		if err := q.saveJob(conn, j); err != nil {
			q.log.Errorf("Can't save delayed job %s: %s", j.ID, err)
			return
		}
		readyAt := time.Now().Add(delay).UnixNano()
		if _, err := conn.Do("ZADD", q.key("delayed"), readyAt, j.ID); err != nil {
			q.log.Errorf("Can't delay job %s: %s", j.ID, err)
			return
		}
		q.log.Warnf("Job %s of task %q failed on attempt %d/%d, retrying in %s: %s",
			j.ID, j.Task, j.AttemptsMade, j.Attempts, delay, handlerErr)
		return
	}

	j.Status = StatusFailed
	j.FinishedAt = time.Now()
	if err := q.saveJob(conn, j); err != nil {
		q.log.Errorf("Can't save failed job %s: %s", j.ID, err)
		return
	}
	if _, err := conn.Do("ZADD", q.key("failed"), j.FinishedAt.UnixNano(), j.ID); err != nil {
		q.log.Errorf("Can't record failure of job %s: %s", j.ID, err)
	}
	q.log.Errorf("Job %s of task %q failed terminally after %d attempts: %s",
		j.ID, j.Task, j.AttemptsMade, handlerErr)
	q.rearmRepeat(conn, j)
}

// rearmRepeat schedules the next run of a repeating job: same id, fresh
// attempt budget, delayed by RepeatEvery.
func (q *Queue) rearmRepeat(conn redis.Conn, j *Job) {
	if j.RepeatEvery <= 0 {
		return
	}

	next := *j
	next.Status = StatusDelayed
	next.AttemptsMade = 0
	next.FinishedAt = time.Time{}
	next.Error = ""

	if _, err := conn.Do("ZREM", q.key("completed"), j.ID); err != nil {
		q.log.Errorf("Can't unrecord repeating job %s: %s", j.ID, err)
		return
	}
	if _, err := conn.Do("ZREM", q.key("failed"), j.ID); err != nil {
		q.log.Errorf("Can't unrecord repeating job %s: %s", j.ID, err)
		return
	}
	if err := q.saveJob(conn, &next); err != nil {
		q.log.Errorf("Can't re-arm repeating job %s: %s", j.ID, err)
		return
	}
	readyAt := time.Now().Add(j.RepeatEvery).UnixNano()
	if _, err := conn.Do("ZADD", q.key("delayed"), readyAt, j.ID); err != nil {
		q.log.Errorf("Can't schedule repeating job %s: %s", j.ID, err)
		return
	}

	q.log.Infof("Re-armed repeating job %s of task %q in %s", j.ID, j.Task, j.RepeatEvery)
}

func (q *Queue) removeActive(conn redis.Conn, id string) {
	if _, err := conn.Do("LREM", q.key("active"), 1, id); err != nil {
		q.log.Errorf("Can't remove job %s from active list: %s", id, err)
	}
}

func (q *Queue) requeueActive(id string) {
	conn := q.pool.Get()
	defer conn.Close()

	q.removeActive(conn, id)
	if _, err := conn.Do("RPUSH", q.key("wait"), id); err != nil {
		q.log.Errorf("Can't return job %s to wait list: %s", id, err)
	}
}
