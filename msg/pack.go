/*
 * Copyright (c) 2024-2025, NVIDIA CORPORATION. All rights reserved.
 */
package msg

import (
	"github.com/pkg/errors"
	"github.com/skal-io/skal/blob"
	"github.com/skal-io/skal/cmn"
	"github.com/tinylib/msgp/msgp"
)

// hand-written msgpack (de)serialization via the low-level msgp API

func appendMsg(b []byte, m *Msg) []byte {
	b = msgp.AppendMapHeader(b, 13)

	b = msgp.AppendString(b, keyTimestamp)
	b = msgp.AppendInt64(b, m.timestamp.UnixNano())
	b = msgp.AppendString(b, keySender)
	b = msgp.AppendString(b, m.sender)
	b = msgp.AppendString(b, keyRecipient)
	b = msgp.AppendString(b, m.recipient)
	b = msgp.AppendString(b, keyAction)
	b = msgp.AppendString(b, m.action)
	b = msgp.AppendString(b, keyFlags)
	b = msgp.AppendUint32(b, uint32(m.flags))
	b = msgp.AppendString(b, keyIFlags)
	b = msgp.AppendUint32(b, uint32(m.iflags))
	b = msgp.AppendString(b, keyTTL)
	b = msgp.AppendInt8(b, m.ttl)

	b = msgp.AppendString(b, keyAlarms)
	b = msgp.AppendArrayHeader(b, uint32(len(m.alarms)))
	for i := range m.alarms {
		b = appendAlarm(b, &m.alarms[i])
	}

	b = msgp.AppendString(b, keyInts)
	b = msgp.AppendMapHeader(b, uint32(len(m.ints)))
	for k, v := range m.ints {
		b = msgp.AppendString(b, k)
		b = msgp.AppendInt64(b, v)
	}

	b = msgp.AppendString(b, keyDoubles)
	b = msgp.AppendMapHeader(b, uint32(len(m.doubles)))
	for k, v := range m.doubles {
		b = msgp.AppendString(b, k)
		b = msgp.AppendFloat64(b, v)
	}

	b = msgp.AppendString(b, keyStrs)
	b = msgp.AppendMapHeader(b, uint32(len(m.strs)))
	for k, v := range m.strs {
		b = msgp.AppendString(b, k)
		b = msgp.AppendString(b, v)
	}

	b = msgp.AppendString(b, keyMiniblobs)
	b = msgp.AppendMapHeader(b, uint32(len(m.miniblobs)))
	for k, v := range m.miniblobs {
		b = msgp.AppendString(b, k)
		b = msgp.AppendBytes(b, v)
	}

	b = msgp.AppendString(b, keyBlobs)
	b = msgp.AppendMapHeader(b, uint32(len(m.blobs)))
	for k, p := range m.blobs {
		b = msgp.AppendString(b, k)
		b = msgp.AppendArrayHeader(b, 3)
		b = msgp.AppendString(b, p.AllocatorName())
		b = msgp.AppendString(b, p.ID())
		b = msgp.AppendInt64(b, p.Size())
	}
	return b
}

func appendAlarm(b []byte, a *Alarm) []byte {
	b = msgp.AppendMapHeader(b, 7)
	b = msgp.AppendString(b, akName)
	b = msgp.AppendString(b, a.Name)
	b = msgp.AppendString(b, akSeverity)
	b = msgp.AppendInt8(b, int8(a.Severity))
	b = msgp.AppendString(b, akOn)
	b = msgp.AppendBool(b, a.On)
	b = msgp.AppendString(b, akAutoOff)
	b = msgp.AppendBool(b, a.AutoOff)
	b = msgp.AppendString(b, akNote)
	b = msgp.AppendString(b, a.Note)
	b = msgp.AppendString(b, akOrigin)
	b = msgp.AppendString(b, a.Origin)
	b = msgp.AppendString(b, akStamp)
	b = msgp.AppendInt64(b, a.Timestamp.UnixNano())
	return b
}

const (
	seenTimestamp = 1 << iota
	seenSender
	seenRecipient
	seenAction
	seenTTL
)

const seenRequired = seenTimestamp | seenSender | seenRecipient | seenAction | seenTTL

func readMsg(b []byte) (_ *Msg, err error) {
	var (
		sz                uint32
		seen              int
		ts                int64
		sender, recipient string
	)
	m := &Msg{}
	defer func() {
		if err != nil {
			m.Close() // release any blob refs taken so far
		}
	}()
	if sz, b, err = msgp.ReadMapHeaderBytes(b); err != nil {
		return nil, err
	}
	for range sz {
		var key string
		if key, b, err = msgp.ReadStringBytes(b); err != nil {
			return nil, err
		}
		switch key {
		case keyTimestamp:
			ts, b, err = msgp.ReadInt64Bytes(b)
			seen |= seenTimestamp
		case keySender:
			sender, b, err = msgp.ReadStringBytes(b)
			seen |= seenSender
		case keyRecipient:
			recipient, b, err = msgp.ReadStringBytes(b)
			seen |= seenRecipient
		case keyAction:
			m.action, b, err = msgp.ReadStringBytes(b)
			seen |= seenAction
		case keyFlags:
			var u uint32
			u, b, err = msgp.ReadUint32Bytes(b)
			m.flags = Flag(u)
		case keyIFlags:
			var u uint32
			u, b, err = msgp.ReadUint32Bytes(b)
			m.iflags = IFlag(u)
		case keyTTL:
			m.ttl, b, err = msgp.ReadInt8Bytes(b)
			seen |= seenTTL
		case keyAlarms:
			b, err = readAlarms(b, m)
		case keyInts:
			b, err = readIntFields(b, m)
		case keyDoubles:
			b, err = readDoubleFields(b, m)
		case keyStrs:
			b, err = readStrFields(b, m)
		case keyMiniblobs:
			b, err = readMiniblobFields(b, m)
		case keyBlobs:
			b, err = readBlobFields(b, m)
		default:
			b, err = msgp.Skip(b)
		}
		if err != nil {
			return nil, err
		}
	}
	if seen&seenRequired != seenRequired || m.action == "" {
		return nil, errors.Wrap(cmn.ErrFormat, "missing required field(s)")
	}
	fromWire(m, ts, sender, recipient)
	return m, nil
}

func readAlarms(b []byte, m *Msg) (o []byte, err error) {
	var n uint32
	if n, b, err = msgp.ReadArrayHeaderBytes(b); err != nil {
		return b, err
	}
	for range n {
		var a Alarm
		if b, err = readAlarm(b, &a); err != nil {
			return b, err
		}
		m.alarms = append(m.alarms, a)
	}
	return b, nil
}

func readAlarm(b []byte, a *Alarm) (o []byte, err error) {
	var (
		sz   uint32
		seen int
	)
	const (
		aName = 1 << iota
		aSev
		aOn
		aAof
		aOrg
		aTs
		aRequired = aName | aSev | aOn | aAof | aOrg | aTs
	)
	if sz, b, err = msgp.ReadMapHeaderBytes(b); err != nil {
		return b, err
	}
	var ts int64
	for range sz {
		var key string
		if key, b, err = msgp.ReadStringBytes(b); err != nil {
			return b, err
		}
		switch key {
		case akName:
			a.Name, b, err = msgp.ReadStringBytes(b)
			seen |= aName
		case akSeverity:
			var s int8
			s, b, err = msgp.ReadInt8Bytes(b)
			if err == nil && (s < int8(SeverityNotice) || s > int8(SeverityError)) {
				return b, errors.Wrapf(cmn.ErrFormat, "invalid alarm severity %d", s)
			}
			a.Severity = Severity(s)
			seen |= aSev
		case akOn:
			a.On, b, err = msgp.ReadBoolBytes(b)
			seen |= aOn
		case akAutoOff:
			a.AutoOff, b, err = msgp.ReadBoolBytes(b)
			seen |= aAof
		case akNote:
			a.Note, b, err = msgp.ReadStringBytes(b)
		case akOrigin:
			a.Origin, b, err = msgp.ReadStringBytes(b)
			seen |= aOrg
		case akStamp:
			ts, b, err = msgp.ReadInt64Bytes(b)
			seen |= aTs
		default:
			b, err = msgp.Skip(b)
		}
		if err != nil {
			return b, err
		}
	}
	if seen&aRequired != aRequired {
		return b, errors.Wrap(cmn.ErrFormat, "alarm missing required field(s)")
	}
	a.Timestamp = timeFromNano(ts)
	return b, nil
}

func readIntFields(b []byte, m *Msg) (o []byte, err error) {
	var n uint32
	if n, b, err = msgp.ReadMapHeaderBytes(b); err != nil {
		return b, err
	}
	for range n {
		var (
			k string
			v int64
		)
		if k, b, err = msgp.ReadStringBytes(b); err != nil {
			return b, err
		}
		if v, b, err = msgp.ReadInt64Bytes(b); err != nil {
			return b, err
		}
		m.AddInt(k, v)
	}
	return b, nil
}

func readDoubleFields(b []byte, m *Msg) (o []byte, err error) {
	var n uint32
	if n, b, err = msgp.ReadMapHeaderBytes(b); err != nil {
		return b, err
	}
	for range n {
		var (
			k string
			v float64
		)
		if k, b, err = msgp.ReadStringBytes(b); err != nil {
			return b, err
		}
		if v, b, err = msgp.ReadFloat64Bytes(b); err != nil {
			return b, err
		}
		m.AddDouble(k, v)
	}
	return b, nil
}

func readStrFields(b []byte, m *Msg) (o []byte, err error) {
	var n uint32
	if n, b, err = msgp.ReadMapHeaderBytes(b); err != nil {
		return b, err
	}
	for range n {
		var k, v string
		if k, b, err = msgp.ReadStringBytes(b); err != nil {
			return b, err
		}
		if v, b, err = msgp.ReadStringBytes(b); err != nil {
			return b, err
		}
		m.AddStr(k, v)
	}
	return b, nil
}

func readMiniblobFields(b []byte, m *Msg) (o []byte, err error) {
	var n uint32
	if n, b, err = msgp.ReadMapHeaderBytes(b); err != nil {
		return b, err
	}
	for range n {
		var (
			k string
			v []byte
		)
		if k, b, err = msgp.ReadStringBytes(b); err != nil {
			return b, err
		}
		if v, b, err = msgp.ReadBytesBytes(b, nil); err != nil {
			return b, err
		}
		m.AddMiniblob(k, v)
	}
	return b, nil
}

// blob fields are reopened through the named allocator; a missing
// allocator on an otherwise valid frame means the process is
// misconfigured beyond recovery.
func readBlobFields(b []byte, m *Msg) (o []byte, err error) {
	var n uint32
	if n, b, err = msgp.ReadMapHeaderBytes(b); err != nil {
		return b, err
	}
	for range n {
		var (
			k, allocName, id string
			asz              uint32
		)
		if k, b, err = msgp.ReadStringBytes(b); err != nil {
			return b, err
		}
		if asz, b, err = msgp.ReadArrayHeaderBytes(b); err != nil {
			return b, err
		}
		if asz != 3 {
			return b, errors.Wrapf(cmn.ErrFormat, "bad blob field %q", k)
		}
		if allocName, b, err = msgp.ReadStringBytes(b); err != nil {
			return b, err
		}
		if id, b, err = msgp.ReadStringBytes(b); err != nil {
			return b, err
		}
		if _, b, err = msgp.ReadInt64Bytes(b); err != nil {
			return b, err
		}
		p, err := blob.Open(allocName, id)
		if err != nil {
			if cmn.IsErrNoSuchAllocator(err) {
				cmn.Exitf("cannot deserialize blob field %q: %v", k, err)
			}
			return b, err
		}
		m.AddBlob(k, p)
	}
	return b, nil
}
