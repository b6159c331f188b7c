//go:build mono

// Package mono provides low-level monotonic time used by nlog.
/*
 * Copyright (c) 2018-2021, NVIDIA CORPORATION. All rights reserved.
 */
package mono

import (
	_ "unsafe" // for go:linkname
)

// https://pkg.go.dev/runtime#pkg-overview
//
//go:linkname NanoTime runtime.nanotime
func NanoTime() int64
