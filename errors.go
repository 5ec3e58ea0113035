// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package psched

import (
	"errors"
)

// ErrInvalidArgument is returned for null/zero routines, unknown clock
// domains, unknown notification kinds or an unknown EntryID.
var ErrInvalidArgument = errors.New("invalid argument")

// ErrCancelled is returned by every Scheduler API except Destroy/
// HandlerDestroy once Destroy has been called on the handle, or once the
// handle has hit the unrecoverable fatal state (Scheduler.Fatal() ==
// true); a clean re-init is required in the latter case.
var ErrCancelled = errors.New("scheduler destroyed")

// ErrOutOfMemory mirrors the C mm_alloc failure path from the original
// psched_create/psched_add_entry: kept for interface fidelity even though
// nothing in this package can realistically exhaust Go's heap and return
// a recoverable error for it, so no call site ever produces it.
var ErrOutOfMemory = errors.New("out of memory")

// ErrNotConfigured is returned by InitSignal when realtime-signal
// notification was compiled out for this platform (GOOS != linux).
var ErrNotConfigured = errors.New("not configured")

// ErrNotFound is returned by Search when the id is not a live entry.
var ErrNotFound = errors.New("entry not found")
