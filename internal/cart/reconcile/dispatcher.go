package reconcile

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// dispatcher runs remote commands in the background. Commands are queued
// per (user, compositeKey) and carry a monotonic sequence number; a queued
// command superseded by a newer one for the same key is skipped, so an
// older write can never land after a newer one. Whole-cart replaces form
// their own queue per user: they supersede every earlier queued per-key
// command, wait for in-flight ones, and hold back per-key commands enqueued
// after them until they finish.
type dispatcher struct {
	logger  *zap.Logger
	timeout time.Duration
	ctx     context.Context
	cancel  context.CancelFunc

	mu     sync.Mutex
	seq    uint64
	lanes  map[string]*lane
	closed bool
	wg     sync.WaitGroup
}

// lane holds the queues of one user. The empty key is the replace queue.
type lane struct {
	idle    chan struct{}
	gate    sync.RWMutex
	barrier chan struct{}
	latest  map[string]uint64
	queues  map[string][]*job
}

type job struct {
	seq     uint64
	kind    CommandKind
	key     string
	wait    <-chan struct{}
	barrier chan struct{}
	run     func(ctx context.Context) error
}

const replaceKey = ""

func newDispatcher(logger *zap.Logger, timeout time.Duration) *dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &dispatcher{
		logger:  logger,
		timeout: timeout,
		ctx:     ctx,
		cancel:  cancel,
		lanes:   make(map[string]*lane),
	}
}

// enqueue schedules run for userID. key is the compositeKey of the line,
// ignored for ReplaceRemote.
func (d *dispatcher) enqueue(userID string, kind CommandKind, key string, run func(ctx context.Context) error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		d.logger.Warn("remote command dropped after close",
			zap.String("user_id", userID), zap.Stringer("command", kind), zap.String("key", key))
		return
	}

	l, ok := d.lanes[userID]
	if !ok {
		l = &lane{idle: make(chan struct{}), latest: make(map[string]uint64), queues: make(map[string][]*job)}
		d.lanes[userID] = l
	}

	d.seq++
	j := &job{seq: d.seq, kind: kind, key: key, run: run}
	if kind == ReplaceRemote {
		j.key = replaceKey
		j.barrier = make(chan struct{})
		for k := range l.latest {
			l.latest[k] = j.seq
		}
		l.barrier = j.barrier
	} else {
		j.wait = l.barrier
	}
	l.latest[j.key] = j.seq

	pending, running := l.queues[j.key]
	l.queues[j.key] = append(pending, j)
	if !running {
		d.wg.Add(1)
		go d.drain(userID, l, j.key)
	}
}

// idle returns a channel closed once userID has no queued or running
// command, or nil when it has none now.
func (d *dispatcher) idle(userID string) <-chan struct{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	if l, ok := d.lanes[userID]; ok {
		return l.idle
	}
	return nil
}

func (d *dispatcher) drain(userID string, l *lane, key string) {
	defer d.wg.Done()
	for {
		d.mu.Lock()
		q := l.queues[key]
		if len(q) == 0 {
			delete(l.queues, key)
			if len(l.queues) == 0 && d.lanes[userID] == l {
				delete(d.lanes, userID)
				close(l.idle)
			}
			d.mu.Unlock()
			return
		}
		j := q[0]
		l.queues[key] = q[1:]
		d.mu.Unlock()

		d.runJob(userID, l, j)
	}
}

func (d *dispatcher) runJob(userID string, l *lane, j *job) {
	if j.barrier != nil {
		defer close(j.barrier)
		l.gate.Lock()
		defer l.gate.Unlock()
	} else {
		if j.wait != nil {
			<-j.wait
		}
		l.gate.RLock()
		defer l.gate.RUnlock()
	}

	d.mu.Lock()
	superseded := l.latest[j.key] != j.seq
	d.mu.Unlock()
	if superseded {
		d.logger.Debug("remote command superseded",
			zap.String("user_id", userID), zap.Stringer("command", j.kind),
			zap.String("key", j.key), zap.Uint64("seq", j.seq))
		return
	}
	if d.ctx.Err() != nil {
		d.logger.Warn("remote command cancelled",
			zap.String("user_id", userID), zap.Stringer("command", j.kind), zap.String("key", j.key))
		return
	}

	ctx, cancel := context.WithTimeout(d.ctx, d.timeout)
	defer cancel()
	if err := j.run(ctx); err != nil {
		d.logger.Warn("remote cart sync failed",
			zap.String("user_id", userID), zap.Stringer("command", j.kind),
			zap.String("key", j.key), zap.Uint64("seq", j.seq), zap.Error(err))
	}
}

// close stops accepting commands and waits for queued ones. When ctx ends
// first, in-flight commands are cancelled.
func (d *dispatcher) close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		<-done
		return ctx.Err()
	}
}
