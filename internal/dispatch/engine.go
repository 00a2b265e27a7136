// Package dispatch sends one message to a list of groups, strictly one at a
// time, with interruptible pauses between targets and between loops.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/danhigham/groupcast/internal/domain"
	"github.com/danhigham/groupcast/internal/session"
)

// ErrNoTargets is returned when a run is started without target groups.
var ErrNoTargets = errors.New("no target groups selected")

type State int

const (
	StateIdle State = iota
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "idle"
	}
}

// Sessions yields the active session.
type Sessions interface {
	Active() (string, session.Conn, bool)
}

// Delays between sends. Message is kept for settings; the send loop waits
// Group between targets and Loop between passes.
type Delays struct {
	Message time.Duration
	Group   time.Duration
	Loop    time.Duration
}

type Request struct {
	Targets    []domain.Group
	Message    string
	Attachment string
	Loop       bool
}

type Counters struct {
	Success int
	Failed  int
	Total   int
	Loops   int
}

type EventKind int

const (
	// EventLoopStarted, EventWaiting and EventStopped are informational.
	EventLoopStarted EventKind = iota
	EventSending
	EventSent
	EventFailed
	EventWaiting
	// EventStopped closes a send that was cut short by cancellation.
	EventStopped
)

type Event struct {
	Kind    EventKind
	Loop    int
	GroupID int64
	Target  string
	Failure FailureKind
	Message string
}

// Succeeded reports the outcome of a per-target event. ok is false for
// informational events.
func (e Event) Succeeded() (success, ok bool) {
	switch e.Kind {
	case EventSent:
		return true, true
	case EventFailed:
		return false, true
	default:
		return false, false
	}
}

type Engine struct {
	sessions Sessions
	logger   *zap.Logger

	mu      sync.Mutex
	state   State
	delays  Delays
	cancel  context.CancelFunc
	stopped bool
}

func New(sessions Sessions, delays Delays, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		sessions: sessions,
		logger:   logger.Named("dispatch"),
	}
	e.SetDelays(delays)
	return e
}

func (e *Engine) Delays() Delays {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.delays
}

// SetDelays replaces the delays; negative values become zero. A running
// loop keeps the delays it started with.
func (e *Engine) SetDelays(d Delays) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.delays = Delays{
		Message: max(d.Message, 0),
		Group:   max(d.Group, 0),
		Loop:    max(d.Loop, 0),
	}
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Stop asks a running loop to finish. The send in flight completes; no new
// send starts and any pause ends immediately.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateRunning {
		return
	}
	e.stopped = true
	e.cancel()
}

// Run sends req.Message to every target in order, once or until stopped.
// Per-target failures are counted and reported through onEvent, never
// returned. Cancelling ctx ends the run like Stop does and the counters
// gathered so far are returned.
func (e *Engine) Run(ctx context.Context, req Request, onEvent func(Event)) (Counters, error) {
	var c Counters
	if len(req.Targets) == 0 {
		return c, ErrNoTargets
	}
	phone, conn, ok := e.sessions.Active()
	if !ok {
		return c, domain.ErrNoActiveSession
	}

	e.mu.Lock()
	if e.state == StateRunning {
		e.mu.Unlock()
		return c, domain.ErrAlreadyRunning
	}
	runCtx, cancel := context.WithCancel(ctx)
	e.state = StateRunning
	e.cancel = cancel
	e.stopped = false
	delays := e.delays
	e.mu.Unlock()

	defer func() {
		cancel()
		e.mu.Lock()
		if e.stopped || ctx.Err() != nil {
			e.state = StateStopped
		} else {
			e.state = StateIdle
		}
		e.cancel = nil
		e.mu.Unlock()
		e.logger.Info("dispatch finished",
			zap.Int("success", c.Success), zap.Int("failed", c.Failed),
			zap.Int("total", c.Total), zap.Int("loops", c.Loops))
	}()

	emit := func(ev Event) {
		if onEvent != nil {
			onEvent(ev)
		}
	}

	for runCtx.Err() == nil {
		c.Loops++
		emit(Event{Kind: EventLoopStarted, Loop: c.Loops, Message: fmt.Sprintf("Loop #%d starting...", c.Loops)})

		for i, g := range req.Targets {
			if runCtx.Err() != nil {
				break
			}
			emit(Event{Kind: EventSending, Loop: c.Loops, GroupID: g.ID, Target: g.Title,
				Message: "Sending: " + g.Title})

			err := e.deliver(ctx, phone, conn, g, req.Message, req.Attachment)
			if err != nil && ctx.Err() != nil {
				// Aborted by the caller mid-send; not an attempt.
				emit(Event{Kind: EventStopped, Loop: c.Loops, GroupID: g.ID, Target: g.Title,
					Message: g.Title + ": stopped before the send completed"})
				return c, nil
			}

			c.Total++
			if err == nil {
				c.Success++
				emit(Event{Kind: EventSent, Loop: c.Loops, GroupID: g.ID, Target: g.Title,
					Message: g.Title + ": " + sentMessage})
			} else {
				c.Failed++
				f := Classify(err)
				e.logger.Debug("send failed", zap.Int64("group", g.ID), zap.Stringer("kind", f.Kind), zap.Error(err))
				emit(Event{Kind: EventFailed, Loop: c.Loops, GroupID: g.ID, Target: g.Title,
					Failure: f.Kind, Message: g.Title + ": " + f.Message})
			}

			if i < len(req.Targets)-1 || req.Loop {
				if !sleep(runCtx, delays.Group) {
					break
				}
			}
		}

		if !req.Loop || runCtx.Err() != nil {
			break
		}
		emit(Event{Kind: EventWaiting, Loop: c.Loops,
			Message: fmt.Sprintf("Waiting %s before the next loop...", delays.Loop)})
		if !sleep(runCtx, delays.Loop) {
			break
		}
	}
	return c, nil
}

// SendOne delivers a single message outside of a run. The returned error,
// if any, is a *SendError carrying the classified failure.
func (e *Engine) SendOne(ctx context.Context, g domain.Group, text, attachment string) (string, error) {
	phone, conn, ok := e.sessions.Active()
	if !ok {
		return "", domain.ErrNoActiveSession
	}
	if err := e.deliver(ctx, phone, conn, g, text, attachment); err != nil {
		return "", err
	}
	return sentMessage, nil
}

func (e *Engine) deliver(ctx context.Context, phone string, conn session.Conn, g domain.Group, text, attachment string) error {
	if g.Peer == nil {
		return &SendError{Failure: Failure{FailureInvalidGroup, invalidGroupMessage}}
	}
	if g.Account != "" && g.Account != phone {
		return &SendError{Failure: Failure{FailureInvalidGroup, foreignGroupMessage}}
	}

	var err error
	if attachment != "" {
		if _, statErr := os.Stat(attachment); statErr != nil {
			return &SendError{
				Failure: Failure{FailureFileNotFound, "File not found: " + attachment},
				Err:     fmt.Errorf("%w: %s", domain.ErrFileNotFound, attachment),
			}
		}
		err = conn.SendFile(ctx, g.Peer, attachment, text)
	} else {
		err = conn.SendText(ctx, g.Peer, text)
	}
	if err != nil {
		return classified(err)
	}
	return nil
}

// sleep waits for d or until ctx is done. It reports whether the wait ran
// to completion.
func sleep(ctx context.Context, d time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
