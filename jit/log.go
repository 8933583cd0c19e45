// Copyright 2024 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package jit

import (
	"io"
	"log"
	"os"

	"github.com/xyproto/env/v2"
)

var logger *log.Logger

func init() {
	w := io.Discard

	if env.Bool("SPLICE_JIT_DEBUG") {
		w = os.Stderr
	}

	logger = log.New(w, "jit: ", log.Lshortfile)
}
