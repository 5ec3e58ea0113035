// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

// Package psched provides a process-internal scheduler for time-triggered
// callbacks, modeled after the POSIX per-process timer (timer_create(2) /
// timer_settime(2)) family.
//
// Clients register a routine keyed to an absolute wall-clock instant,
// optionally with a recurring step and an optional hard expiration, and get
// back a stable opaque EntryID. The scheduler keeps exactly one underlying
// timer armed per handle, picking the earliest-trigger live entry, and
// drives callback dispatch either from a dedicated worker goroutine
// ("thread" mode) or from a realtime-signal handler ("signal" mode, Linux
// only).
package psched

const NAME = "psched"

// BuildTags lists the optional platform features this build was compiled
// with. It is populated by whichever signalmode_*.go file the build
// selected (component 4.G), so callers can introspect at runtime whether
// signal mode is available without calling InitSignal first.
var BuildTags []string
