// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package psched

// flags is a small bitmask shared by entry state and userland-timer worker
// state. The teacher (tinfo.go) packs equivalent state into a single
// atomically-accessed uint32 because its wheel timer mutates entry state
// from many goroutines without a single owning lock. Here every mutation is
// already serialized by the owning mutex (the Scheduler's for entry state,
// the ulTimer's for worker state, per spec §5), so a plain bitmask
// read/written under that lock is enough; no atomic encoding is needed.
type flags uint16

func (f flags) has(mask flags) bool { return f&mask != 0 }
func (f *flags) set(mask flags)     { *f |= mask }
func (f *flags) clear(mask flags)   { *f &^= mask }
