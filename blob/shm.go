/*
 * Copyright (c) 2024-2025, NVIDIA CORPORATION. All rights reserved.
 */
package blob

import (
	"encoding/binary"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/skal-io/skal/cmn"
	"github.com/skal-io/skal/cmn/nlog"
	"golang.org/x/sys/unix"
)

// shmAllocator backs blobs with OS-visible shared memory files, so that
// cooperating processes on the same computer can pass them by id.
//
// Segment layout: [ magic 8B | shared refcount 8B | payload size 8B | payload ].
// The shared refcount counts process-level attachments (create/open);
// the last detaching process unlinks the segment. Mapping exclusion is a
// flock(2) held for the duration of the mapping window, on top of the
// in-process FIFO lock.
type shmAllocator struct{}

const (
	shmMagic   = uint64(0x6c61_6b73_626f_6c62) // "blobskal"
	shmHdrSize = 24
	shmPrefix  = "skal-"
)

type shmBacking struct {
	path string
	id   string
	fd   int
	size int64
	mem  []byte // whole-file mapping while the window is active
}

func newShmAllocator() *shmAllocator { return &shmAllocator{} }

func (*shmAllocator) Name() string { return ShmName }
func (*shmAllocator) Scope() Scope { return ScopeComputer }

func shmPath(id string) string { return filepath.Join(shmDir(), shmPrefix+id) }

func (*shmAllocator) Create(id string, size int64) (*Blob, error) {
	if id == "" {
		return nil, cmn.NewErrBadBlob("create", id, "shared-memory blobs require an id")
	}
	if size <= 0 {
		return nil, cmn.NewErrBadBlob("create", id, "size must be > 0")
	}
	path := shmPath(id)
	fd, err := unix.Open(path, unix.O_CREAT|unix.O_EXCL|unix.O_RDWR, 0o600)
	if err != nil {
		if err == unix.EEXIST {
			return nil, cmn.NewErrBadBlob("create", id, "already exists")
		}
		return nil, errors.Wrapf(err, "failed to create shm segment %q", path)
	}
	if err := unix.Ftruncate(fd, shmHdrSize+size); err != nil {
		unix.Close(fd)
		unix.Unlink(path)
		return nil, errors.Wrapf(err, "failed to size shm segment %q", path)
	}
	var hdr [shmHdrSize]byte
	binary.LittleEndian.PutUint64(hdr[0:], shmMagic)
	binary.LittleEndian.PutUint64(hdr[8:], 1) // this process attaches
	binary.LittleEndian.PutUint64(hdr[16:], uint64(size))
	if _, err := unix.Pwrite(fd, hdr[:], 0); err != nil {
		unix.Close(fd)
		unix.Unlink(path)
		return nil, errors.Wrapf(err, "failed to init shm segment %q", path)
	}
	impl := &shmBacking{path: path, id: id, fd: fd, size: size}
	return newBlob(ShmName, id, size, impl), nil
}

func (*shmAllocator) Open(id string) (*Blob, error) {
	path := shmPath(id)
	fd, err := unix.Open(path, unix.O_RDWR, 0o600)
	if err != nil {
		return nil, cmn.NewErrBadBlob("open", id, "no such shm segment")
	}
	var hdr [shmHdrSize]byte
	if _, err := unix.Pread(fd, hdr[:], 0); err != nil {
		unix.Close(fd)
		return nil, cmn.NewErrBadBlob("open", id, "unreadable shm header")
	}
	if binary.LittleEndian.Uint64(hdr[0:]) != shmMagic {
		unix.Close(fd)
		return nil, cmn.NewErrBadBlob("open", id, "bad magic")
	}
	size := int64(binary.LittleEndian.Uint64(hdr[16:]))
	impl := &shmBacking{path: path, id: id, fd: fd, size: size}
	if err := impl.addAttach(1); err != nil {
		unix.Close(fd)
		return nil, err
	}
	return newBlob(ShmName, id, size, impl), nil
}

// addAttach adjusts the shared refcount under flock; at zero the segment
// is unlinked.
func (sb *shmBacking) addAttach(delta int64) error {
	if err := unix.Flock(sb.fd, unix.LOCK_EX); err != nil {
		return errors.Wrapf(err, "failed to lock shm segment %q", sb.path)
	}
	defer unix.Flock(sb.fd, unix.LOCK_UN)
	var cnt [8]byte
	if _, err := unix.Pread(sb.fd, cnt[:], 8); err != nil {
		return errors.Wrapf(err, "failed to read shm refcount %q", sb.path)
	}
	n := int64(binary.LittleEndian.Uint64(cnt[:])) + delta
	binary.LittleEndian.PutUint64(cnt[:], uint64(n))
	if _, err := unix.Pwrite(sb.fd, cnt[:], 8); err != nil {
		return errors.Wrapf(err, "failed to write shm refcount %q", sb.path)
	}
	if n <= 0 {
		unix.Unlink(sb.path)
	}
	return nil
}

func (sb *shmBacking) mapBytes() ([]byte, error) {
	if err := unix.Flock(sb.fd, unix.LOCK_EX); err != nil {
		return nil, err
	}
	mem, err := unix.Mmap(sb.fd, 0, int(shmHdrSize+sb.size),
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Flock(sb.fd, unix.LOCK_UN)
		return nil, err
	}
	if binary.LittleEndian.Uint64(mem[0:8]) != shmMagic {
		unix.Munmap(mem)
		unix.Flock(sb.fd, unix.LOCK_UN)
		return nil, errors.New("corrupted segment")
	}
	sb.mem = mem
	return mem[shmHdrSize : shmHdrSize+sb.size], nil
}

func (sb *shmBacking) unmapBytes() error {
	err := unix.Munmap(sb.mem)
	sb.mem = nil
	unix.Flock(sb.fd, unix.LOCK_UN)
	return err
}

func (sb *shmBacking) free() {
	if err := sb.addAttach(-1); err != nil {
		nlog.Errorln(err)
	}
	unix.Close(sb.fd)
}
