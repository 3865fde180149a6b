package session

import (
	"context"
	"sync"
	"time"
)

// DefaultTickInterval is the period of the elapsed-time counter.
const DefaultTickInterval = time.Second

// Loop owns a Session and runs every operation on it from a single goroutine.
// Timer ticks and posted results are handled between commands, never during one.
type Loop struct {
	sess  *Session
	cmds  chan func(*Session)
	ticks <-chan time.Time

	stopTicker func()
	done       chan struct{}
	exited     chan struct{}
	stopOnce   sync.Once

	// persistMu keeps saves of this session in order so a draft is inserted only once.
	persistMu sync.Mutex
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithTickInterval sets the period of the elapsed-time ticker.
func WithTickInterval(d time.Duration) LoopOption {
	return func(l *Loop) {
		if d <= 0 {
			d = DefaultTickInterval
		}
		t := time.NewTicker(d)
		l.ticks = t.C
		l.stopTicker = t.Stop
	}
}

// WithTicks drives the elapsed-time counter from ch instead of a real ticker.
// A nil channel never ticks.
func WithTicks(ch <-chan time.Time) LoopOption {
	return func(l *Loop) {
		l.ticks = ch
		l.stopTicker = func() {}
	}
}

// NewLoop starts the goroutine that owns s.
func NewLoop(s *Session, opts ...LoopOption) *Loop {
	l := &Loop{
		sess:   s,
		cmds:   make(chan func(*Session)),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.stopTicker == nil {
		WithTickInterval(DefaultTickInterval)(l)
	}
	go l.run()
	return l
}

func (l *Loop) run() {
	defer close(l.exited)
	defer l.stopTicker()
	for {
		select {
		case <-l.done:
			return
		case fn := <-l.cmds:
			fn(l.sess)
		case <-l.ticks:
			l.sess.Tick()
		}
	}
}

// Do runs fn on the loop goroutine and waits for it.
// It returns ErrSessionClosed when the loop has been stopped.
func (l *Loop) Do(ctx context.Context, fn func(*Session) error) error {
	errc := make(chan error, 1)
	cmd := func(s *Session) { errc <- fn(s) }
	select {
	case l.cmds <- cmd:
		return <-errc
	case <-l.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns a deep copy of the session.
func (l *Loop) Snapshot(ctx context.Context) (*Session, error) {
	var snap *Session
	err := l.Do(ctx, func(s *Session) error {
		snap = s.Clone()
		return nil
	})
	return snap, err
}

// Post applies the result of asynchronous work if the session is still active.
// It reports false, without running fn, once the loop has stopped.
func (l *Loop) Post(ctx context.Context, fn func(*Session)) bool {
	err := l.Do(ctx, func(s *Session) error {
		fn(s)
		return nil
	})
	return err == nil
}

// Persist runs fn while holding the session's save lock.
func (l *Loop) Persist(fn func() error) error {
	l.persistMu.Lock()
	defer l.persistMu.Unlock()
	return fn()
}

// Stop ends the loop and waits for its goroutine to exit. Safe to call more than once.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() { close(l.done) })
	<-l.exited
}

// Done is closed once Stop has been called.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}
