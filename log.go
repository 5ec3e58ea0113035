// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package psched

import (
	"github.com/intuitivelabs/slog"
)

// Log is the package-level logger, following the same pattern used across
// the intuitivelabs packages: a level-gated slog.Log instance with thin
// package-level wrappers so call sites don't need to carry the Log value
// around.
var Log slog.Log = slog.Log{L: slog.LWARN, Prefix: NAME + ": "}

// SetLogLevel changes the minimum logged level at runtime.
func SetLogLevel(l slog.LogLevel) {
	Log.L = l
}

func DBGon() bool  { return Log.DBGon() }
func ERRon() bool  { return Log.ERRon() }
func WARNon() bool { return Log.WARNon() }

func DBG(f string, a ...interface{})  { Log.DBG(f, a...) }
func ERR(f string, a ...interface{})  { Log.ERR(f, a...) }
func WARN(f string, a ...interface{}) { Log.WARN(f, a...) }
func BUG(f string, a ...interface{})  { Log.BUG(f, a...) }

// PANIC logs at the highest level and then aborts the process. psched uses
// it for the invariant failures that leave a Scheduler in the fatal state
// (two consecutive update_armed failures).
func PANIC(f string, a ...interface{}) { Log.PANIC(f, a...) }
