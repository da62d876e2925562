/*
 * Copyright (c) 2024-2025, NVIDIA CORPORATION. All rights reserved.
 */
package skal_test

import (
	"os"
	"sync"
	"testing"
	"time"

	"github.com/skal-io/skal"
	"github.com/skal-io/skal/cmn"
	"github.com/skal-io/skal/executor"
	"github.com/skal-io/skal/group"
	"github.com/skal-io/skal/msg"
	"github.com/skal-io/skal/sched"
	"github.com/skal-io/skal/worker"
)

func TestMain(m *testing.M) {
	if err := skal.Init(nil); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func waitFor(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(500 * time.Microsecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// recorder collects actions seen by a handler, skipping framework ticks
type recorder struct {
	mu      sync.Mutex
	actions []string
	rcpts   []string
}

func (r *recorder) handler(m *msg.Msg) error {
	if cmn.IsReservedAction(m.Action()) {
		return nil
	}
	r.mu.Lock()
	r.actions = append(r.actions, m.Action())
	r.rcpts = append(r.rcpts, m.Recipient())
	r.mu.Unlock()
	return nil
}

func (r *recorder) got() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.actions...)
}

func (r *recorder) recipients() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.rcpts...)
}

// scenario: ping/pong within one executor
func TestPingPong(t *testing.T) {
	mug := &recorder{}
	_, err := skal.NewWorker("boss", func(m *msg.Msg) error {
		if m.Action() == "work!" {
			skal.Send(msg.New("mug", "you work!", 0))
		}
		return nil
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := skal.NewWorker("mug", mug.handler, nil); err != nil {
		t.Fatal(err)
	}

	skal.Send(msg.NewFrom("external", "boss", "work!", 0))

	waitFor(t, 2*time.Second, "mug to receive the forwarded work", func() bool {
		return len(mug.got()) == 1
	})
	time.Sleep(20 * time.Millisecond)
	if got := mug.got(); len(got) != 1 || got[0] != "you work!" {
		t.Fatalf("mug saw %v, want exactly one you work!", got)
	}
}

// scenario: a slow worker with threshold 1 throttles its sender, then
// releases it once drained
func TestThrottling(t *testing.T) {
	var (
		empSeen = make(chan string, 8)
		boss    *worker.Worker
		err     error
	)
	boss, err = skal.NewWorker("t-boss", func(m *msg.Msg) error {
		if m.Action() == "go!" {
			skal.Send(msg.New("t-emp", "work!", 0))
			skal.Send(msg.New("t-emp", "work more!", 0))
		}
		return nil
	}, &skal.Opts{XoffTimeout: 5 * time.Second})
	if err != nil {
		t.Fatal(err)
	}
	_, err = skal.NewWorker("t-emp", func(m *msg.Msg) error {
		switch m.Action() {
		case cmn.ActInit:
			// deliberately slow first tick: both work messages pile up
			// behind it, making the threshold-1 queue full
			time.Sleep(100 * time.Millisecond)
		default:
			time.Sleep(20 * time.Millisecond)
			empSeen <- m.Action()
		}
		return nil
	}, &skal.Opts{Threshold: 1})
	if err != nil {
		t.Fatal(err)
	}

	skal.Send(msg.NewFrom("external", "t-boss", "go!", 0))

	waitFor(t, 2*time.Second, "boss to be throttled by skal-xoff", boss.Blocked)
	waitFor(t, 5*time.Second, "emp to process both messages", func() bool {
		return len(empSeen) == 2
	})
	waitFor(t, 2*time.Second, "boss to receive skal-xon", func() bool {
		return !boss.Blocked()
	})
	if a := <-empSeen; a != "work!" {
		t.Fatalf("first = %q", a)
	}
	if a := <-empSeen; a != "work more!" {
		t.Fatalf("second = %q", a)
	}
}

// scenario: explicit group fan-out with an empty (match-all) filter
func TestGroupFanout(t *testing.T) {
	e := executor.New(sched.Fair, 2)
	if err := group.Create("test-group", e); err != nil {
		t.Fatal(err)
	}
	emp := &recorder{}
	if _, err := skal.NewWorker("employee", emp.handler, nil); err != nil {
		t.Fatal(err)
	}
	if err := group.Subscribe("test-group", "employee", ""); err != nil {
		t.Fatal(err)
	}

	skal.Send(msg.NewFrom("external", "test-group", "test-msg", 0))

	waitFor(t, 2*time.Second, "employee to receive the multicast", func() bool {
		return len(emp.got()) == 1
	})
	time.Sleep(20 * time.Millisecond)
	if got := emp.got(); len(got) != 1 || got[0] != "test-msg" {
		t.Fatalf("employee saw %v", got)
	}
	if rcpts := emp.recipients(); rcpts[0] != "employee@"+cmn.Domain() {
		t.Fatalf("recipient = %q, want employee@%s", rcpts[0], cmn.Domain())
	}
}

// scenario: regex filters select matching actions only, in order
func TestGroupFilterRegex(t *testing.T) {
	rec := &recorder{}
	if _, err := skal.NewWorker("filter-sub", rec.handler, nil); err != nil {
		t.Fatal(err)
	}
	// implicit group creation on first subscribe
	if err := group.Subscribe("filter-group", "filter-sub", "^data-[0-9]+$"); err != nil {
		t.Fatal(err)
	}

	for _, action := range []string{"data-1", "data-x", "data-42"} {
		skal.Send(msg.NewFrom("external", "filter-group", action, 0))
	}

	waitFor(t, 2*time.Second, "both matching actions", func() bool {
		return len(rec.got()) == 2
	})
	time.Sleep(20 * time.Millisecond)
	got := rec.got()
	if len(got) != 2 || got[0] != "data-1" || got[1] != "data-42" {
		t.Fatalf("subscriber saw %v, want [data-1 data-42]", got)
	}

	// removing the last subscription destroys the implicit group
	group.Unsubscribe("filter-group", "filter-sub", "")
	waitFor(t, 2*time.Second, "implicit group teardown", func() bool {
		return worker.Lookup("filter-group") == nil
	})
}

func TestGroupRejectsBadFilter(t *testing.T) {
	if _, err := skal.NewWorker("bad-filter-sub", nop, nil); err != nil {
		t.Fatal(err)
	}
	if err := group.Subscribe("bad-filter-group", "bad-filter-sub", "["); err == nil {
		t.Fatal("an unparseable filter must be refused")
	}
}

func nop(*msg.Msg) error { return nil }

// keep last: terminates every live worker and waits them out
func TestZShutdown(t *testing.T) {
	if worker.NumWorkers() == 0 {
		t.Fatal("expected live workers from earlier scenarios")
	}
	skal.Terminate()
	done := make(chan struct{})
	go func() {
		skal.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("wait did not return after terminate")
	}
	skal.Fini()
}
