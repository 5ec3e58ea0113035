// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package psched

// EntryID is the stable opaque handle returned by Arm*. It is never zero
// for a live entry (spec invariant I5/I1 of the data model).
type EntryID uintptr

// HandlerFunc is the callback invoked when an entry's trigger elapses. arg
// is the opaque value passed at arm time; psched never copies or
// dereferences it.
type HandlerFunc func(arg interface{})

const (
	entryToRemove flags = 1 << iota
	entryInProgress
	entryExpired
)

// entry is a single scheduler registration (spec "scheduler entry").
type entry struct {
	id      EntryID
	trigger Instant // next absolute instant the routine must run at
	step    Instant // recurrence period; zero means one-shot
	expire  Instant // absolute deadline; zero means never

	routine HandlerFunc
	arg     interface{}

	f flags
}

func (e *entry) inProgress() bool { return e.f.has(entryInProgress) }
func (e *entry) toRemove() bool   { return e.f.has(entryToRemove) }
func (e *entry) expired() bool    { return e.f.has(entryExpired) }
