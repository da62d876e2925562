//go:build !linux

/*
 * Copyright (c) 2024-2025, NVIDIA CORPORATION. All rights reserved.
 */
package blob

import "os"

func shmDir() string { return os.TempDir() }
