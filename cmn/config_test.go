/*
 * Copyright (c) 2024-2025, NVIDIA CORPORATION. All rights reserved.
 */
package cmn_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/skal-io/skal/cmn"
)

func TestConfigDefaults(t *testing.T) {
	c := cmn.Config{Standalone: true}
	if err := c.Validate(); err != nil {
		t.Fatal(err)
	}
	if c.PoolSize != cmn.DfltPoolSize || c.QueueThreshold != cmn.DfltQueueThreshold ||
		c.XoffTimeout != cmn.DfltXoffTimeout || c.TTL != cmn.DfltTTL {
		t.Fatalf("defaults not applied: %+v", c)
	}
}

func TestConfigBadURL(t *testing.T) {
	c := cmn.Config{RouterURL: "::not-a-url::"}
	if err := c.Validate(); !errors.Is(err, cmn.ErrBadURL) {
		t.Fatalf("err = %v, want bad-url", err)
	}
}

func TestConfigStandaloneIgnoresURL(t *testing.T) {
	c := cmn.Config{Standalone: true, RouterURL: "::not-a-url::"}
	if err := c.Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "skal.json")
	body := `{"standalone": true, "domain": "test-domain", "pool_size": 8, "xoff_timeout": 1000000}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := cmn.LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if !c.Standalone || c.Domain != "test-domain" || c.PoolSize != 8 {
		t.Fatalf("loaded %+v", c)
	}
	if c.XoffTimeout != time.Millisecond {
		t.Fatalf("xoff_timeout = %v", c.XoffTimeout)
	}
}

func TestLoadConfigMissing(t *testing.T) {
	if _, err := cmn.LoadConfig("/no/such/file.json"); err == nil {
		t.Fatal("expected an error")
	}
}
