package dispatch_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danhigham/groupcast/internal/dispatch"
	"github.com/danhigham/groupcast/internal/domain"
	"github.com/danhigham/groupcast/internal/session/sessiontest"
)

func targets(n int) []domain.Group {
	out := make([]domain.Group, n)
	for i := range out {
		id := int64(i + 1)
		out[i] = domain.Group{ID: id, Title: fmt.Sprintf("group-%d", id), Account: "100", Peer: id}
	}
	return out
}

func newEngine(conn *sessiontest.Conn, d dispatch.Delays) *dispatch.Engine {
	return dispatch.New(sessiontest.Registry{Phone: "100", Conn: conn}, d, nil)
}

func TestRun_AllSucceed(t *testing.T) {
	conn := &sessiontest.Conn{}
	e := newEngine(conn, dispatch.Delays{})

	var events []dispatch.Event
	got, err := e.Run(context.Background(), dispatch.Request{Targets: targets(3), Message: "hi"},
		func(ev dispatch.Event) { events = append(events, ev) })
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	want := dispatch.Counters{Success: 3, Failed: 0, Total: 3, Loops: 1}
	if got != want {
		t.Errorf("Counters = %+v, want %+v", got, want)
	}
	if conn.SentCount() != 3 {
		t.Errorf("sent = %d, want 3", conn.SentCount())
	}
	for i, s := range conn.Sent {
		if s.Peer != int64(i+1) || s.Text != "hi" {
			t.Errorf("sent[%d] = %+v", i, s)
		}
	}
	if e.State() != dispatch.StateIdle {
		t.Errorf("State = %v, want idle", e.State())
	}

	// loop start, then sending+sent per target, in order
	if len(events) != 7 || events[0].Kind != dispatch.EventLoopStarted {
		t.Fatalf("events = %+v", events)
	}
	for i := 0; i < 3; i++ {
		sending, sent := events[1+2*i], events[2+2*i]
		if sending.Kind != dispatch.EventSending || sent.Kind != dispatch.EventSent {
			t.Errorf("events[%d..] kinds = %v, %v", 1+2*i, sending.Kind, sent.Kind)
		}
		if sent.GroupID != int64(i+1) {
			t.Errorf("event order: got group %d, want %d", sent.GroupID, i+1)
		}
		if ok, final := sent.Succeeded(); !ok || !final {
			t.Errorf("Succeeded() = %v, %v", ok, final)
		}
	}
	if _, final := events[0].Succeeded(); final {
		t.Error("loop start must be informational")
	}
}

func TestRun_FloodWaitClassified(t *testing.T) {
	raw := fmt.Errorf("rpc error code 420: FLOOD_WAIT (30): %w", domain.ErrFloodWait)
	conn := &sessiontest.Conn{SendHook: func(ctx context.Context, peer domain.Peer) error {
		if peer == int64(1) {
			return raw
		}
		return nil
	}}
	e := newEngine(conn, dispatch.Delays{})

	var failed []dispatch.Event
	got, err := e.Run(context.Background(), dispatch.Request{Targets: targets(2), Message: "hi"},
		func(ev dispatch.Event) {
			if ev.Kind == dispatch.EventFailed {
				failed = append(failed, ev)
			}
		})
	if err != nil {
		t.Fatal(err)
	}
	want := dispatch.Counters{Success: 1, Failed: 1, Total: 2, Loops: 1}
	if got != want {
		t.Errorf("Counters = %+v, want %+v", got, want)
	}
	if len(failed) != 1 {
		t.Fatalf("failed events = %d, want 1", len(failed))
	}
	if failed[0].Failure != dispatch.FailureRateLimited {
		t.Errorf("Failure = %v, want rate-limited", failed[0].Failure)
	}
	if strings.Contains(failed[0].Message, "420") {
		t.Errorf("message leaks raw error: %q", failed[0].Message)
	}
	if !strings.Contains(failed[0].Message, "Rate limited") {
		t.Errorf("message = %q, want rate-limit category", failed[0].Message)
	}
}

func TestRun_StopAfterFirstTarget(t *testing.T) {
	conn := &sessiontest.Conn{}
	e := newEngine(conn, dispatch.Delays{})

	got, err := e.Run(context.Background(), dispatch.Request{Targets: targets(5), Message: "hi", Loop: true},
		func(ev dispatch.Event) {
			if ev.Kind == dispatch.EventSent && ev.GroupID == 1 {
				e.Stop()
			}
		})
	if err != nil {
		t.Fatal(err)
	}
	want := dispatch.Counters{Success: 1, Total: 1, Loops: 1}
	if got != want {
		t.Errorf("Counters = %+v, want %+v", got, want)
	}
	if conn.SentCount() != 1 {
		t.Errorf("sent = %d, want 1", conn.SentCount())
	}
	if e.State() != dispatch.StateStopped {
		t.Errorf("State = %v, want stopped", e.State())
	}
}

func TestRun_StopInterruptsSleep(t *testing.T) {
	conn := &sessiontest.Conn{}
	e := newEngine(conn, dispatch.Delays{Group: time.Hour, Loop: time.Hour})

	done := make(chan dispatch.Counters, 1)
	sent := make(chan struct{}, 1)
	go func() {
		c, _ := e.Run(context.Background(), dispatch.Request{Targets: targets(3), Message: "hi", Loop: true},
			func(ev dispatch.Event) {
				if ev.Kind == dispatch.EventSent {
					sent <- struct{}{}
				}
			})
		done <- c
	}()

	<-sent
	e.Stop()

	select {
	case c := <-done:
		if c.Total != 1 {
			t.Errorf("Total = %d, want 1", c.Total)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after Stop")
	}
}

func TestRun_ContextCancelAbsorbed(t *testing.T) {
	conn := &sessiontest.Conn{}
	e := newEngine(conn, dispatch.Delays{Group: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())

	got, err := e.Run(ctx, dispatch.Request{Targets: targets(2), Message: "hi"},
		func(ev dispatch.Event) {
			if ev.Kind == dispatch.EventSent {
				cancel()
			}
		})
	if err != nil {
		t.Fatalf("cancellation must be absorbed, got %v", err)
	}
	want := dispatch.Counters{Success: 1, Total: 1, Loops: 1}
	if got != want {
		t.Errorf("Counters = %+v, want %+v", got, want)
	}
	if e.State() != dispatch.StateStopped {
		t.Errorf("State = %v, want stopped", e.State())
	}
}

func TestRun_AbortMidSendNotCounted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	conn := &sessiontest.Conn{SendHook: func(c context.Context, peer domain.Peer) error {
		if peer == int64(2) {
			cancel()
			return c.Err()
		}
		return nil
	}}
	e := newEngine(conn, dispatch.Delays{})

	var events []dispatch.Event
	got, err := e.Run(ctx, dispatch.Request{Targets: targets(3), Message: "hi"}, func(ev dispatch.Event) {
		events = append(events, ev)
	})
	if err != nil {
		t.Fatal(err)
	}
	want := dispatch.Counters{Success: 1, Total: 1, Loops: 1}
	if got != want {
		t.Errorf("Counters = %+v, want %+v", got, want)
	}

	last := events[len(events)-1]
	if last.Kind != dispatch.EventStopped || last.GroupID != 2 {
		t.Errorf("last event = %+v, want EventStopped for group 2", last)
	}
	if _, ok := last.Succeeded(); ok {
		t.Error("EventStopped should be informational")
	}
}

func TestRun_Looping(t *testing.T) {
	conn := &sessiontest.Conn{}
	e := newEngine(conn, dispatch.Delays{})

	var waiting int
	got, err := e.Run(context.Background(), dispatch.Request{Targets: targets(2), Message: "hi", Loop: true},
		func(ev dispatch.Event) {
			if ev.Kind == dispatch.EventWaiting {
				waiting++
			}
			if ev.Kind == dispatch.EventLoopStarted && ev.Loop == 3 {
				e.Stop()
			}
		})
	if err != nil {
		t.Fatal(err)
	}
	want := dispatch.Counters{Success: 4, Total: 4, Loops: 3}
	if got != want {
		t.Errorf("Counters = %+v, want %+v", got, want)
	}
	if waiting != 2 {
		t.Errorf("waiting events = %d, want 2", waiting)
	}
}

func TestRun_MissingAttachment(t *testing.T) {
	conn := &sessiontest.Conn{}
	e := newEngine(conn, dispatch.Delays{})
	path := filepath.Join(t.TempDir(), "nope.png")

	var failed []dispatch.Event
	got, err := e.Run(context.Background(),
		dispatch.Request{Targets: targets(1), Message: "hi", Attachment: path},
		func(ev dispatch.Event) {
			if ev.Kind == dispatch.EventFailed {
				failed = append(failed, ev)
			}
		})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if got.Failed != 1 || got.Total != 1 {
		t.Errorf("Counters = %+v", got)
	}
	if len(failed) != 1 || failed[0].Failure != dispatch.FailureFileNotFound {
		t.Fatalf("failed = %+v", failed)
	}
	if !strings.Contains(failed[0].Message, "File not found") {
		t.Errorf("message = %q", failed[0].Message)
	}
}

func TestRun_Attachment(t *testing.T) {
	conn := &sessiontest.Conn{}
	e := newEngine(conn, dispatch.Delays{})
	path := filepath.Join(t.TempDir(), "pic.png")
	if err := os.WriteFile(path, []byte("png"), 0600); err != nil {
		t.Fatal(err)
	}

	got, err := e.Run(context.Background(),
		dispatch.Request{Targets: targets(1), Message: "caption", Attachment: path}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got.Success != 1 {
		t.Errorf("Counters = %+v", got)
	}
	if conn.Sent[0].File != path || conn.Sent[0].Caption != "caption" {
		t.Errorf("sent = %+v", conn.Sent[0])
	}
}

func TestRun_Preconditions(t *testing.T) {
	e := newEngine(&sessiontest.Conn{}, dispatch.Delays{})
	if _, err := e.Run(context.Background(), dispatch.Request{}, nil); !errors.Is(err, dispatch.ErrNoTargets) {
		t.Errorf("err = %v, want ErrNoTargets", err)
	}

	none := dispatch.New(sessiontest.Registry{}, dispatch.Delays{}, nil)
	if _, err := none.Run(context.Background(), dispatch.Request{Targets: targets(1)}, nil); !errors.Is(err, domain.ErrNoActiveSession) {
		t.Errorf("err = %v, want ErrNoActiveSession", err)
	}
}

func TestRun_RejectsConcurrentRun(t *testing.T) {
	e := newEngine(&sessiontest.Conn{}, dispatch.Delays{Group: time.Hour})

	started := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		e.Run(context.Background(), dispatch.Request{Targets: targets(2), Message: "a"},
			func(ev dispatch.Event) {
				if ev.Kind == dispatch.EventSent {
					close(started)
				}
			})
	}()
	<-started

	if _, err := e.Run(context.Background(), dispatch.Request{Targets: targets(1)}, nil); !errors.Is(err, domain.ErrAlreadyRunning) {
		t.Errorf("err = %v, want ErrAlreadyRunning", err)
	}
	e.Stop()
	<-done
}

func TestRun_ForeignGroup(t *testing.T) {
	conn := &sessiontest.Conn{}
	e := newEngine(conn, dispatch.Delays{})
	g := targets(1)
	g[0].Account = "999"

	got, _ := e.Run(context.Background(), dispatch.Request{Targets: g, Message: "hi"}, nil)
	if got.Failed != 1 || conn.SentCount() != 0 {
		t.Errorf("Counters = %+v, sent = %d", got, conn.SentCount())
	}
}

func TestSendOne(t *testing.T) {
	conn := &sessiontest.Conn{SendHook: func(ctx context.Context, peer domain.Peer) error {
		if peer == int64(2) {
			return errors.New("rpc error code 403: CHAT_WRITE_FORBIDDEN")
		}
		return nil
	}}
	e := newEngine(conn, dispatch.Delays{})
	g := targets(2)

	msg, err := e.SendOne(context.Background(), g[0], "hi", "")
	if err != nil || msg != "Message sent!" {
		t.Errorf("SendOne = %q, %v", msg, err)
	}

	_, err = e.SendOne(context.Background(), g[1], "hi", "")
	var se *dispatch.SendError
	if !errors.As(err, &se) || se.Failure.Kind != dispatch.FailureWriteForbidden {
		t.Errorf("err = %v, want write-forbidden SendError", err)
	}

	_, err = e.SendOne(context.Background(), domain.Group{ID: 9, Title: "x"}, "hi", "")
	if !errors.As(err, &se) || se.Failure.Kind != dispatch.FailureInvalidGroup {
		t.Errorf("err = %v, want invalid-group SendError", err)
	}
}

func TestDelays(t *testing.T) {
	e := newEngine(&sessiontest.Conn{}, dispatch.Delays{Message: time.Minute, Group: -time.Second, Loop: 5 * time.Minute})
	d := e.Delays()
	if d.Group != 0 {
		t.Errorf("Group = %v, want 0", d.Group)
	}
	e.SetDelays(dispatch.Delays{Group: 2 * time.Second})
	if e.Delays().Group != 2*time.Second || e.Delays().Loop != 0 {
		t.Errorf("Delays = %+v", e.Delays())
	}
}

func TestStopWhenIdle(t *testing.T) {
	e := newEngine(&sessiontest.Conn{}, dispatch.Delays{})
	e.Stop()
	if e.State() != dispatch.StateIdle {
		t.Errorf("State = %v, want idle", e.State())
	}
}
