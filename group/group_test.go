/*
 * Copyright (c) 2024-2025, NVIDIA CORPORATION. All rights reserved.
 */
package group_test

import (
	"testing"
	"time"

	"github.com/skal-io/skal/cmn"
	"github.com/skal-io/skal/executor"
	"github.com/skal-io/skal/group"
	"github.com/skal-io/skal/msg"
	"github.com/skal-io/skal/sched"
	"github.com/skal-io/skal/worker"
)

func nop(*msg.Msg) error { return nil }

func waitFor(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestExplicitCreateIsExclusive(t *testing.T) {
	e := executor.New(sched.Fair, 2)
	defer e.Close()

	if err := group.Create("dup-group", e); err != nil {
		t.Fatal(err)
	}
	if err := group.Create("dup-group", e); !cmn.IsErrDuplicateName(err) {
		t.Fatalf("err = %v, want duplicate-name", err)
	}
	group.Destroy("dup-group")
	waitFor(t, 2*time.Second, "group worker teardown", func() bool {
		return worker.Lookup("dup-group") == nil
	})
}

func TestExplicitGroupSurvivesLastUnsubscribe(t *testing.T) {
	e := executor.New(sched.Fair, 2)
	defer e.Close()

	if err := group.Create("sticky-group", e); err != nil {
		t.Fatal(err)
	}
	w, err := worker.New("sticky-sub", nop, nil)
	if err != nil {
		t.Fatal(err)
	}
	e.AddWorker(w)

	if err := group.Subscribe("sticky-group", "sticky-sub", ""); err != nil {
		t.Fatal(err)
	}
	group.Unsubscribe("sticky-group", "sticky-sub", "")

	time.Sleep(50 * time.Millisecond)
	if worker.Lookup("sticky-group") == nil {
		t.Fatal("an explicitly created group must persist until explicit destruction")
	}
	group.Destroy("sticky-group")
}

func TestFilterSpecificUnsubscribe(t *testing.T) {
	e := executor.New(sched.Fair, 2)
	defer e.Close()

	if err := group.Create("multi-filter", e); err != nil {
		t.Fatal(err)
	}
	w, err := worker.New("mf-sub", nop, nil)
	if err != nil {
		t.Fatal(err)
	}
	e.AddWorker(w)

	if err := group.Subscribe("multi-filter", "mf-sub", "^a-"); err != nil {
		t.Fatal(err)
	}
	if err := group.Subscribe("multi-filter", "mf-sub", "^b-"); err != nil {
		t.Fatal(err)
	}
	// removing one filter leaves the other subscription intact
	group.Unsubscribe("multi-filter", "mf-sub", "^a-")
	if worker.Lookup("multi-filter") == nil {
		t.Fatal("group must survive while subscriptions remain")
	}
	group.Destroy("multi-filter")
}

func TestSubscribeDuplicateFilterIsIdempotent(t *testing.T) {
	e := executor.New(sched.Fair, 2)
	defer e.Close()

	w, err := worker.New("idem-sub", nop, nil)
	if err != nil {
		t.Fatal(err)
	}
	e.AddWorker(w)

	if err := group.Subscribe("idem-group", "idem-sub", "^x$"); err != nil {
		t.Fatal(err)
	}
	if err := group.Subscribe("idem-group", "idem-sub", "^x$"); err != nil {
		t.Fatal(err)
	}
	group.Unsubscribe("idem-group", "idem-sub", "")
	waitFor(t, 2*time.Second, "implicit group teardown", func() bool {
		return worker.Lookup("idem-group") == nil
	})
}
