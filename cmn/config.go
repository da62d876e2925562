/*
 * Copyright (c) 2024-2025, NVIDIA CORPORATION. All rights reserved.
 */
package cmn

import (
	"net/url"
	"os"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

// Compile-time defaults.
const (
	DfltTTL            = 4
	DfltXoffTimeout    = 50 * time.Millisecond
	DfltQueueThreshold = 100
	DfltPoolSize       = 4
	DfltRouterURL      = "http://127.0.0.1:7474"
)

// Config enumerates the framework parameters. The zero value is usable:
// Validate fills in the defaults.
type Config struct {
	Standalone     bool          `json:"standalone"`
	RouterURL      string        `json:"router_url"`
	Domain         string        `json:"domain"`
	PoolSize       int           `json:"pool_size"`
	QueueThreshold int64         `json:"queue_threshold"`
	XoffTimeout    time.Duration `json:"xoff_timeout"`
	TTL            int8          `json:"ttl"`
	LogDir         string        `json:"log_dir"`
}

func (c *Config) Validate() error {
	if c.PoolSize <= 0 {
		c.PoolSize = DfltPoolSize
	}
	if c.QueueThreshold <= 0 {
		c.QueueThreshold = DfltQueueThreshold
	}
	if c.XoffTimeout <= 0 {
		c.XoffTimeout = DfltXoffTimeout
	}
	if c.TTL <= 0 {
		c.TTL = DfltTTL
	}
	if c.Standalone {
		return nil
	}
	if c.RouterURL == "" {
		c.RouterURL = DfltRouterURL
	}
	u, err := url.Parse(c.RouterURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.Wrapf(ErrBadURL, "%q", c.RouterURL)
	}
	return nil
}

// LoadConfig reads a JSON config file.
func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config %q", path)
	}
	var c Config
	if err := jsoniter.Unmarshal(b, &c); err != nil {
		return nil, errors.Wrapf(err, "failed to parse config %q", path)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}
