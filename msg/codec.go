/*
 * Copyright (c) 2024-2025, NVIDIA CORPORATION. All rights reserved.
 */
package msg

import (
	"encoding/binary"
	"time"

	"github.com/OneOfOne/xxhash"
	"github.com/pkg/errors"
	"github.com/skal-io/skal/cmn"
)

// Wire format: one version byte, a self-describing msgpack map, and a
// trailing xxhash64 digest of the map bytes. Both peers of a deployment
// must use the same version.
const CodecVersion = byte(1)

const digestLen = 8

// payload map keys
const (
	keyTimestamp = "ts"
	keySender    = "snd"
	keyRecipient = "rcp"
	keyAction    = "act"
	keyFlags     = "flg"
	keyIFlags    = "ifl"
	keyTTL       = "ttl"
	keyAlarms    = "alm"
	keyInts      = "int"
	keyDoubles   = "dbl"
	keyStrs      = "str"
	keyMiniblobs = "mnb"
	keyBlobs     = "blb"
)

// alarm map keys
const (
	akName     = "nam"
	akSeverity = "sev"
	akOn       = "on"
	akAutoOff  = "aof"
	akNote     = "not"
	akOrigin   = "org"
	akStamp    = "ts"
)

// Encode serializes the message; lossless for all fields. Blob fields
// serialize by (allocator-name, blob-id, size).
func Encode(m *Msg) []byte {
	payload := appendMsg(nil, m)
	out := make([]byte, 0, 1+len(payload)+digestLen)
	out = append(out, CodecVersion)
	out = append(out, payload...)
	var digest [digestLen]byte
	binary.BigEndian.PutUint64(digest[:], xxhash.Checksum64(payload))
	return append(out, digest[:]...)
}

// Decode is the inverse of Encode. It rejects unknown versions
// (version-mismatch) and frames missing any of version, timestamp,
// sender, recipient, action, ttl (format-error). Attached blobs are
// reopened through their named allocator.
func Decode(b []byte) (*Msg, error) {
	if len(b) < 1+digestLen {
		return nil, errors.Wrap(cmn.ErrFormat, "frame too short")
	}
	if b[0] != CodecVersion {
		return nil, cmn.NewErrVersionMismatch(b[0], CodecVersion)
	}
	payload := b[1 : len(b)-digestLen]
	want := binary.BigEndian.Uint64(b[len(b)-digestLen:])
	if xxhash.Checksum64(payload) != want {
		return nil, errors.Wrap(cmn.ErrFormat, "digest mismatch")
	}
	m, err := readMsg(payload)
	if err != nil {
		if cmn.IsErrBadBlob(err) || cmn.IsErrVersionMismatch(err) {
			return nil, err
		}
		if !errors.Is(err, cmn.ErrFormat) {
			err = errors.Wrap(cmn.ErrFormat, err.Error())
		}
		return nil, err
	}
	return m, nil
}

func timeFromNano(ns int64) time.Time { return time.Unix(0, ns).UTC() }

func fromWire(m *Msg, ts int64, sender, recipient string) {
	m.timestamp = timeFromNano(ts)
	m.sender = cmn.FullName(sender)
	m.recipient = cmn.FullName(recipient)
}
