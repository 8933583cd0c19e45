// Copyright 2024 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !arm64 && !windows

package alloc

// invalidateICache is a no-op: these machines keep their instruction
// caches coherent with stores.
func invalidateICache(b []byte) {}
