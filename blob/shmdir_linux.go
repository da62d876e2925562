//go:build linux

/*
 * Copyright (c) 2024-2025, NVIDIA CORPORATION. All rights reserved.
 */
package blob

func shmDir() string { return "/dev/shm" }
