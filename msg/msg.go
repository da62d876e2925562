// Package msg implements the skal message: an immutable-after-send
// envelope with typed fields, attached alarms and blob proxies, and a
// versioned wire codec.
/*
 * Copyright (c) 2024-2025, NVIDIA CORPORATION. All rights reserved.
 */
package msg

import (
	"fmt"
	"time"

	"github.com/skal-io/skal/blob"
	"github.com/skal-io/skal/cmn"
	"github.com/skal-io/skal/cmn/debug"
)

// Flag bits (wire-visible).
type Flag uint32

const (
	FlagUrgent       Flag = 1 << iota // jump the regular lane
	FlagOutOfOrderOK                  // router may reorder
	FlagDropOK                        // may be silently dropped under pressure
	FlagNtfDrop                       // sender wants to be told if dropped
	FlagMulticast                     // informational: recipient is a group
)

// IFlag bits (framework-private).
type IFlag uint32

const (
	IFlagInternal IFlag = 1 << iota // bypasses throttling, highest queue priority
)

// Msg is the unit of communication between workers. Once handed to
// send() the producer no longer owns it.
type Msg struct {
	timestamp time.Time
	sender    string
	recipient string
	action    string
	flags     Flag
	iflags    IFlag
	ttl       int8
	alarms    []Alarm
	ints      map[string]int64
	doubles   map[string]float64
	strs      map[string]string
	miniblobs map[string][]byte
	blobs     map[string]*blob.Proxy
}

// New creates a message; the sender is the current worker's name, or a
// stable per-goroutine identifier outside any worker.
func New(recipient, action string, flags Flag) *Msg {
	return NewFrom(cmn.Me(), recipient, action, flags)
}

func NewFrom(sender, recipient, action string, flags Flag) *Msg {
	debug.Assert(action != "")
	return &Msg{
		timestamp: time.Now().UTC(),
		sender:    cmn.FullName(sender),
		recipient: cmn.FullName(recipient),
		action:    action,
		flags:     flags,
		ttl:       cmn.DfltTTL,
	}
}

// NewInternal creates a framework-private message.
func NewInternal(sender, recipient, action string) *Msg {
	m := NewFrom(sender, recipient, action, 0)
	m.iflags |= IFlagInternal
	return m
}

func (m *Msg) Timestamp() time.Time { return m.timestamp }
func (m *Msg) Sender() string       { return m.sender }
func (m *Msg) Recipient() string    { return m.recipient }
func (m *Msg) Action() string       { return m.action }
func (m *Msg) Flags() Flag          { return m.flags }
func (m *Msg) IFlags() IFlag        { return m.iflags }
func (m *Msg) TTL() int8            { return m.ttl }

func (m *Msg) Internal() bool { return m.iflags&IFlagInternal != 0 }
func (m *Msg) Urgent() bool   { return m.flags&FlagUrgent != 0 }

func (m *Msg) SetTTL(ttl int8)          { m.ttl = ttl }
func (m *Msg) SetSender(sender string)  { m.sender = cmn.FullName(sender) }
func (m *Msg) SetRecipient(name string) { m.recipient = cmn.FullName(name) }

func (m *Msg) String() string {
	return fmt.Sprintf("msg[%s: %s => %s]", m.action, m.sender, m.recipient)
}

//
// named fields: insertion order irrelevant, duplicate name overwrites
//

func (m *Msg) AddInt(name string, v int64) {
	if m.ints == nil {
		m.ints = make(map[string]int64, 4)
	}
	m.ints[name] = v
}

func (m *Msg) AddDouble(name string, v float64) {
	if m.doubles == nil {
		m.doubles = make(map[string]float64, 4)
	}
	m.doubles[name] = v
}

func (m *Msg) AddStr(name, v string) {
	if m.strs == nil {
		m.strs = make(map[string]string, 4)
	}
	m.strs[name] = v
}

func (m *Msg) AddMiniblob(name string, v []byte) {
	if m.miniblobs == nil {
		m.miniblobs = make(map[string][]byte, 4)
	}
	m.miniblobs[name] = v
}

// AddBlob attaches a blob proxy; the message takes ownership of the
// proxy's reference.
func (m *Msg) AddBlob(name string, p *blob.Proxy) {
	if m.blobs == nil {
		m.blobs = make(map[string]*blob.Proxy, 2)
	}
	if prev, ok := m.blobs[name]; ok {
		prev.Close()
	}
	m.blobs[name] = p
}

func (m *Msg) Int(name string) (int64, error) {
	v, ok := m.ints[name]
	if !ok {
		return 0, cmn.NewErrNoSuchField(name)
	}
	return v, nil
}

func (m *Msg) Double(name string) (float64, error) {
	v, ok := m.doubles[name]
	if !ok {
		return 0, cmn.NewErrNoSuchField(name)
	}
	return v, nil
}

func (m *Msg) Str(name string) (string, error) {
	v, ok := m.strs[name]
	if !ok {
		return "", cmn.NewErrNoSuchField(name)
	}
	return v, nil
}

func (m *Msg) Miniblob(name string) ([]byte, error) {
	v, ok := m.miniblobs[name]
	if !ok {
		return nil, cmn.NewErrNoSuchField(name)
	}
	return v, nil
}

func (m *Msg) Blob(name string) (*blob.Proxy, error) {
	p, ok := m.blobs[name]
	if !ok {
		return nil, cmn.NewErrNoSuchField(name)
	}
	return p, nil
}

// DetachBlob transfers the proxy out of the message and removes the
// entry; a second call with the same name fails.
func (m *Msg) DetachBlob(name string) (*blob.Proxy, error) {
	p, ok := m.blobs[name]
	if !ok {
		return nil, cmn.NewErrNoSuchField(name)
	}
	delete(m.blobs, name)
	return p, nil
}

//
// alarms: detach order is LIFO
//

func (m *Msg) AttachAlarm(a Alarm) { m.alarms = append(m.alarms, a) }

func (m *Msg) DetachAlarm() (Alarm, bool) {
	if len(m.alarms) == 0 {
		return Alarm{}, false
	}
	a := m.alarms[len(m.alarms)-1]
	m.alarms = m.alarms[:len(m.alarms)-1]
	return a, true
}

func (m *Msg) NumAlarms() int { return len(m.alarms) }

// Copy duplicates the message, incrementing all contained blob
// references. Copying while the caller holds any of the message's
// mappings is disallowed.
func (m *Msg) Copy() *Msg {
	c := &Msg{
		timestamp: m.timestamp,
		sender:    m.sender,
		recipient: m.recipient,
		action:    m.action,
		flags:     m.flags,
		iflags:    m.iflags,
		ttl:       m.ttl,
	}
	if len(m.alarms) > 0 {
		c.alarms = append([]Alarm(nil), m.alarms...)
	}
	if len(m.ints) > 0 {
		c.ints = make(map[string]int64, len(m.ints))
		for k, v := range m.ints {
			c.ints[k] = v
		}
	}
	if len(m.doubles) > 0 {
		c.doubles = make(map[string]float64, len(m.doubles))
		for k, v := range m.doubles {
			c.doubles[k] = v
		}
	}
	if len(m.strs) > 0 {
		c.strs = make(map[string]string, len(m.strs))
		for k, v := range m.strs {
			c.strs[k] = v
		}
	}
	if len(m.miniblobs) > 0 {
		c.miniblobs = make(map[string][]byte, len(m.miniblobs))
		for k, v := range m.miniblobs {
			c.miniblobs[k] = append([]byte(nil), v...)
		}
	}
	if len(m.blobs) > 0 {
		c.blobs = make(map[string]*blob.Proxy, len(m.blobs))
		for k, p := range m.blobs {
			c.blobs[k] = p.Clone()
		}
	}
	return c
}

// Close releases all blob references still attached; called by the
// runtime when a message is dropped.
func (m *Msg) Close() {
	for k, p := range m.blobs {
		p.Close()
		delete(m.blobs, k)
	}
}
