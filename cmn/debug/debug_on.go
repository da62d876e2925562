//go:build debug

// Package debug provides assertions and supporting debug utilities
// that compile to no-ops unless the `debug` build tag is set.
/*
 * Copyright (c) 2024-2025, NVIDIA CORPORATION. All rights reserved.
 */
package debug

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/skal-io/skal/cmn/nlog"
)

func ON() bool { return true }

func Infof(format string, a ...any) {
	nlog.InfoDepth(1, fmt.Sprintf("[DEBUG] "+format, a...))
}

func Func(f func()) { f() }

func Assert(cond bool, a ...any) {
	if !cond {
		msg := "DEBUG PANIC"
		if len(a) > 0 {
			msg += ": " + fmt.Sprint(a...)
		}
		nlog.Errorln(msg)
		nlog.Flush(true)
		panic(msg)
	}
}

func AssertFunc(f func() bool, a ...any) { Assert(f(), a...) }

func AssertNoErr(err error) {
	if err != nil {
		Assert(false, err)
	}
}

func Assertf(cond bool, format string, a ...any) {
	if !cond {
		Assert(false, fmt.Sprintf(format, a...))
	}
}

func AssertMutexLocked(m *sync.Mutex) {
	state := reflect.ValueOf(m).Elem().FieldByName("state")
	Assert(state.Int()&1 == 1, "Mutex not locked")
}

func AssertRWMutexLocked(m *sync.RWMutex) {
	state := reflect.ValueOf(m).Elem().FieldByName("w").FieldByName("state")
	Assert(state.Int()&1 == 1, "RWMutex not locked")
}
