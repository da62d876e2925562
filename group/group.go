// Package group implements named multicast endpoints: a group is a
// worker whose handler fans incoming messages out to subscribers
// through per-subscriber action filters.
/*
 * Copyright (c) 2024-2025, NVIDIA CORPORATION. All rights reserved.
 */
package group

import (
	"regexp"
	"sync"

	"github.com/pkg/errors"
	"github.com/skal-io/skal/cmn"
	"github.com/skal-io/skal/cmn/nlog"
	"github.com/skal-io/skal/executor"
	"github.com/skal-io/skal/msg"
	"github.com/skal-io/skal/worker"
)

// Group holds the subscription table; the lock protects table mutations
// and the fan-out iteration only.
type Group struct {
	name     string
	explicit bool
	mu       sync.Mutex
	// subscriber full name => filter string => compiled regex
	// (nil for the match-everything empty filter)
	subscribers map[string]map[string]*regexp.Regexp
}

var (
	groups = make(map[string]*Group, 8)
	gmu    sync.Mutex
)

// Create explicitly creates a group bound to the chosen executor; such a
// group persists until explicit destruction.
func Create(name string, e *executor.Executor) error {
	gmu.Lock()
	defer gmu.Unlock()
	name = cmn.FullName(name)
	if _, ok := groups[name]; ok {
		return cmn.NewErrDuplicateName("group", name)
	}
	g, err := create(name, e, true)
	if err != nil {
		return err
	}
	groups[name] = g
	return nil
}

// create instantiates the group's worker; caller holds gmu.
func create(name string, e *executor.Executor, explicit bool) (*Group, error) {
	if e == nil {
		e = executor.Any()
	}
	if e == nil {
		return nil, errors.New("no live executor to host the group")
	}
	g := &Group{
		name:        name,
		explicit:    explicit,
		subscribers: make(map[string]map[string]*regexp.Regexp, 4),
	}
	w, err := worker.New(name, g.forward, nil)
	if err != nil {
		return nil, err
	}
	e.AddWorker(w)
	nlog.Infof("created group %q (explicit=%t)", name, explicit)
	notifySkald(cmn.ActCreateGroup, name, "", "")
	return g, nil
}

// Destroy explicitly destroys a group; no action if absent.
func Destroy(name string) {
	gmu.Lock()
	name = cmn.FullName(name)
	g, ok := groups[name]
	if ok {
		delete(groups, name)
	}
	gmu.Unlock()
	if ok {
		g.teardown()
	}
}

func (g *Group) teardown() {
	g.mu.Lock()
	clear(g.subscribers)
	g.mu.Unlock()
	worker.Post(msg.NewInternal("skal", g.name, cmn.ActTerminate))
	nlog.Infof("destroyed group %q", g.name)
	notifySkald(cmn.ActDestroyGroup, g.name, "", "")
}

// Subscribe adds a subscription (subscriber, filter) to the group,
// creating the group implicitly when absent. The empty filter matches
// every action; a filter that fails to compile raises an alarm and is
// refused.
func Subscribe(groupName, subscriber, filter string) error {
	gmu.Lock()
	groupName = cmn.FullName(groupName)
	g, ok := groups[groupName]
	if !ok {
		var err error
		if g, err = create(groupName, nil, false); err != nil {
			gmu.Unlock()
			return err
		}
		groups[groupName] = g
	}
	gmu.Unlock()

	subscriber = cmn.FullName(subscriber)
	var (
		re  *regexp.Regexp
		err error
	)
	if filter != "" {
		if re, err = regexp.Compile(filter); err != nil {
			nlog.Errorf("group %q: invalid filter %q for %q: %v",
				groupName, filter, subscriber, err)
			worker.RaiseAlarm(msg.NewAlarm("skal-bad-filter",
				msg.SeverityWarning, true, true, err.Error()))
			return err
		}
	}

	g.mu.Lock()
	subs, ok := g.subscribers[subscriber]
	if !ok {
		subs = make(map[string]*regexp.Regexp, 2)
		g.subscribers[subscriber] = subs
	}
	if _, ok := subs[filter]; ok {
		g.mu.Unlock()
		return nil // already subscribed with this filter
	}
	subs[filter] = re
	g.mu.Unlock()

	nlog.Infof("group %q: subscribed %q (filter %q)", groupName, subscriber, filter)
	notifySkald(cmn.ActSubscribe, groupName, subscriber, filter)
	return nil
}

// Unsubscribe removes a subscription; the empty filter removes all of
// the subscriber's subscriptions. A group created implicitly is
// destroyed when its last subscription goes.
func Unsubscribe(groupName, subscriber, filter string) {
	gmu.Lock()
	groupName = cmn.FullName(groupName)
	g, ok := groups[groupName]
	gmu.Unlock()
	if !ok {
		return
	}

	subscriber = cmn.FullName(subscriber)
	g.mu.Lock()
	if filter == "" {
		delete(g.subscribers, subscriber)
	} else if subs, ok := g.subscribers[subscriber]; ok {
		delete(subs, filter)
		if len(subs) == 0 {
			delete(g.subscribers, subscriber)
		}
	}
	empty := len(g.subscribers) == 0
	g.mu.Unlock()

	notifySkald(cmn.ActUnsubscribe, groupName, subscriber, filter)

	if empty && !g.explicit {
		gmu.Lock()
		// re-check: a new subscriber may have raced in
		g.mu.Lock()
		still := len(g.subscribers) == 0
		g.mu.Unlock()
		if still {
			delete(groups, groupName)
		}
		gmu.Unlock()
		if still {
			g.teardown()
		}
	}
}

// forward is the group worker's handler: fan a copy out to every
// subscriber with a matching filter. Framework control messages are not
// forwarded.
func (g *Group) forward(m *msg.Msg) error {
	defer m.Close()
	if cmn.IsReservedAction(m.Action()) {
		return nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	for subscriber, subs := range g.subscribers {
		for filter, re := range subs {
			if filter != "" && !re.MatchString(m.Action()) {
				continue
			}
			c := m.Copy()
			c.SetRecipient(subscriber)
			worker.Send(c)
			break // one copy per subscriber
		}
	}
	return nil
}

// notifySkald tells the router about group topology changes.
func notifySkald(action, groupName, subscriber, filter string) {
	m := msg.NewInternal(groupName, cmn.RouterName, action)
	m.AddStr("name", groupName)
	if subscriber != "" {
		m.AddStr("subscriber", subscriber)
	}
	if filter != "" || action == cmn.ActSubscribe || action == cmn.ActUnsubscribe {
		m.AddStr("filter", filter)
	}
	worker.Send(m)
}
