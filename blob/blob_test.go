/*
 * Copyright (c) 2024-2025, NVIDIA CORPORATION. All rights reserved.
 */
package blob_test

import (
	"sync"
	"testing"
	"time"

	"github.com/skal-io/skal/blob"
	"github.com/skal-io/skal/cmn"
)

func TestInProcCreateAndMap(t *testing.T) {
	p, err := blob.Create(blob.InProcName, "", 1000)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()
	if p.Size() != 1000 {
		t.Fatalf("size = %d, want 1000", p.Size())
	}
	if p.ID() == "" {
		t.Fatal("in-process blob must be assigned an id")
	}
	err = p.ScopedMap(func(b []byte) error {
		if len(b) != 1000 {
			t.Fatalf("mapped %d bytes, want 1000", len(b))
		}
		copy(b, "hello")
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestInProcOpenWithinProcess(t *testing.T) {
	p, err := blob.Create(blob.InProcName, "", 64)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	q, err := blob.Open(blob.InProcName, p.ID())
	if err != nil {
		t.Fatal(err)
	}
	defer q.Close()

	if err := p.ScopedMap(func(b []byte) error { copy(b, "shared"); return nil }); err != nil {
		t.Fatal(err)
	}
	if err := q.ScopedMap(func(b []byte) error {
		if string(b[:6]) != "shared" {
			t.Fatalf("got %q", b[:6])
		}
		return nil
	}); err != nil {
		t.Fatal(err)
	}
}

func TestInProcOpenMiss(t *testing.T) {
	_, err := blob.Open(blob.InProcName, "no-such-id")
	if !cmn.IsErrBadBlob(err) {
		t.Fatalf("err = %v, want bad-blob", err)
	}
}

func TestInProcBadSize(t *testing.T) {
	if _, err := blob.Create(blob.InProcName, "", 0); !cmn.IsErrBadBlob(err) {
		t.Fatalf("err = %v, want bad-blob", err)
	}
}

func TestNoSuchAllocator(t *testing.T) {
	if _, err := blob.Create("bogus", "x", 10); !cmn.IsErrNoSuchAllocator(err) {
		t.Fatalf("err = %v, want no-such-allocator", err)
	}
}

func TestRegisterDuplicateAllocator(t *testing.T) {
	type fake struct{ blob.Allocator }
	a, err := blob.GetAllocator(blob.InProcName)
	if err != nil {
		t.Fatal(err)
	}
	if err := blob.RegisterAllocator(fake{a}); !cmn.IsErrDuplicateName(err) {
		t.Fatalf("err = %v, want duplicate-name", err)
	}
}

func TestBlobFreedOnLastUnref(t *testing.T) {
	p, err := blob.Create(blob.InProcName, "", 32)
	if err != nil {
		t.Fatal(err)
	}
	id := p.ID()
	q := p.Clone()
	p.Close()
	r, err := blob.Open(blob.InProcName, id)
	if err != nil {
		t.Fatalf("blob gone while a proxy still exists: %v", err)
	}
	r.Close()
	q.Close()
	if _, err := blob.Open(blob.InProcName, id); !cmn.IsErrBadBlob(err) {
		t.Fatalf("blob not freed on last unref: %v", err)
	}
}

// Two goroutines map proxies of the same blob; the second blocks until
// the first window ends, then observes its writes.
func TestScopedMapMutualExclusion(t *testing.T) {
	p, err := blob.Create(blob.InProcName, "", 100)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()
	q := p.Clone()
	defer q.Close()

	var (
		wg      sync.WaitGroup
		aInside = make(chan struct{})
		bWaited time.Duration
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		err := p.ScopedMap(func(b []byte) error {
			close(aInside)
			time.Sleep(10 * time.Millisecond)
			copy(b, "Hello, World!")
			return nil
		})
		if err != nil {
			t.Error(err)
		}
	}()
	go func() {
		defer wg.Done()
		<-aInside
		started := time.Now()
		err := q.ScopedMap(func(b []byte) error {
			bWaited = time.Since(started)
			if string(b[:13]) != "Hello, World!" {
				t.Errorf("got %q", b[:13])
			}
			copy(b, "How are you??")
			return nil
		})
		if err != nil {
			t.Error(err)
		}
	}()
	wg.Wait()

	if bWaited < 2*time.Millisecond {
		t.Fatalf("second mapper did not block (waited %v)", bWaited)
	}
	err = p.ScopedMap(func(b []byte) error {
		if string(b[:13]) != "How are you??" {
			t.Errorf("got %q", b[:13])
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestShmCreateOpenRoundtrip(t *testing.T) {
	id := "skal-test-" + t.Name()
	p, err := blob.Create(blob.ShmName, id, 256)
	if err != nil {
		t.Skipf("shared memory unavailable: %v", err)
	}
	defer p.Close()

	if err := p.ScopedMap(func(b []byte) error { copy(b, "across"); return nil }); err != nil {
		t.Fatal(err)
	}

	q, err := blob.Open(blob.ShmName, id)
	if err != nil {
		t.Fatal(err)
	}
	defer q.Close()
	if q.Size() != 256 {
		t.Fatalf("size = %d, want 256", q.Size())
	}
	if err := q.ScopedMap(func(b []byte) error {
		if string(b[:6]) != "across" {
			t.Fatalf("got %q", b[:6])
		}
		return nil
	}); err != nil {
		t.Fatal(err)
	}
}

func TestShmCreateCollision(t *testing.T) {
	id := "skal-test-" + t.Name()
	p, err := blob.Create(blob.ShmName, id, 64)
	if err != nil {
		t.Skipf("shared memory unavailable: %v", err)
	}
	defer p.Close()
	if _, err := blob.Create(blob.ShmName, id, 64); !cmn.IsErrBadBlob(err) {
		t.Fatalf("err = %v, want bad-blob", err)
	}
}

func TestShmOpenMiss(t *testing.T) {
	if _, err := blob.Open(blob.ShmName, "skal-test-never-created"); !cmn.IsErrBadBlob(err) {
		t.Fatalf("err = %v, want bad-blob", err)
	}
}

func TestShmRequiresID(t *testing.T) {
	if _, err := blob.Create(blob.ShmName, "", 64); !cmn.IsErrBadBlob(err) {
		t.Fatalf("err = %v, want bad-blob", err)
	}
}
