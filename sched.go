// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package psched

import (
	"sync"
	"sync/atomic"
)

// Mode selects how a Scheduler is driven: a dedicated worker goroutine
// (ModeThread) or a realtime-signal handler (ModeSignal, Linux only),
// unified through the same processEvent (spec component 4.E).
type Mode int

const (
	ModeThread Mode = iota
	ModeSignal
)

var entryIDSeq uint64

func nextEntryID() EntryID {
	// atomic counter rather than uintptr(unsafe.Pointer(e)): spec allows
	// "any non-zero stable value", and a counter avoids pinning entries or
	// reasoning about the GC moving things under unsafe.Pointer.
	return EntryID(atomic.AddUint64(&entryIDSeq, 1))
}

// Scheduler is the scheduler engine (spec component 4.D): it owns a
// registration store and exactly one underlying userland timer, always
// armed for the earliest live trigger across all registered entries.
type Scheduler struct {
	mu    sync.Mutex
	store *entryStore

	timerID TimerID
	armed   *entry

	mode       Mode
	sig        int
	sigPending int32

	destroy bool
	fatal   bool

	handlerWG sync.WaitGroup
}

// InitThread creates a Scheduler driven by a dedicated worker goroutine:
// the underlying userland timer's notification runs processEvent directly.
func InitThread() (*Scheduler, error) {
	return newScheduler(ModeThread, 0)
}

// InitSignal creates a Scheduler driven by realtime signal sig. Delivery of
// sig invokes processEvent from the signal-handling goroutine (component
// 4.G). Only supported on Linux; elsewhere it returns ErrNotConfigured.
func InitSignal(sig int) (*Scheduler, error) {
	if !signalModeSupported() {
		return nil, ErrNotConfigured
	}
	return newScheduler(ModeSignal, sig)
}

func newScheduler(mode Mode, sig int) (*Scheduler, error) {
	s := &Scheduler{
		store: newEntryStore(),
		mode:  mode,
		sig:   sig,
	}

	var notify HandlerFunc = s.onTimerFire
	id, err := defaultTimers.create(ClockRealtime, notify)
	if err != nil {
		return nil, err
	}
	s.timerID = id

	if mode == ModeSignal {
		if err := registerSignalHandler(sig, s); err != nil {
			defaultTimers.delete(id)
			return nil, err
		}
	}

	DBG("%s: scheduler initialized (mode=%d)\n", NAME, mode)
	return s, nil
}

// onTimerFire is the userland timer's notification callback. In thread
// mode it runs processEvent directly, on the timer's own detached
// goroutine (matching the original's "call straight from the notifying
// thread" path). In signal mode this is where the kernel would have
// delivered SIGEV_SIGNAL in the C original: since the underlying timer is
// a userland emulation rather than a real timer_create(2) object, nothing
// else raises sig on our behalf, so this callback raises it itself
// (raiseSignal) and lets the registered signal.Notify handler (component
// 4.G) pick it up and drain it from there, same as a genuine
// kernel-delivered realtime signal would.
//
// sigPending is bumped before raiseSignal rather than relying solely on
// the OS signal arriving: os/signal's notify channel coalesces deliveries
// under backpressure (a buffered channel drops a signal if the previous
// one hasn't been read yet), so a raw "one channel receive == one
// processEvent" mapping can lose firings permanently. drainSignalPending
// processes every pending increment once woken, so a coalesced signal
// still catches up all the work it stood for instead of stalling the
// scheduler.
func (s *Scheduler) onTimerFire(arg interface{}) {
	if s.mode == ModeSignal {
		atomic.AddInt32(&s.sigPending, 1)
		if err := raiseSignal(s.sig); err != nil {
			ERR("%s: raising signal %d failed: %v\n", NAME, s.sig, err)
		}
		return
	}
	s.processEvent()
}

// drainSignalPending runs processEvent once per firing recorded since the
// last drain. Called from the signal-handling goroutine on wakeup.
func (s *Scheduler) drainSignalPending() {
	for {
		n := atomic.SwapInt32(&s.sigPending, 0)
		if n == 0 {
			return
		}
		for i := int32(0); i < n; i++ {
			s.processEvent()
		}
	}
}

// Fatal reports whether the scheduler hit an unrecoverable internal error
// (spec: "a second consecutive update_armed failure is unrecoverable").
// Once true, every further Arm/Disarm/Search call returns ErrCancelled;
// the caller must Destroy and stop using the handle.
func (s *Scheduler) Fatal() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fatal
}

// ArmTimespec registers routine to run at the absolute instant trigger,
// optionally recurring every step (step.IsZero() means one-shot) and
// optionally expiring at expire (expire.IsZero() means never), at
// nanosecond precision. It returns the entry's stable id.
func (s *Scheduler) ArmTimespec(trigger, step, expire Instant, routine HandlerFunc, arg interface{}) (EntryID, error) {
	if routine == nil || trigger.IsZero() {
		return 0, ErrInvalidArgument
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.destroy || s.fatal {
		return 0, ErrCancelled
	}

	e := &entry{
		id:      nextEntryID(),
		trigger: trigger,
		step:    step,
		expire:  expire,
		routine: routine,
		arg:     arg,
	}
	s.store.insert(e)

	if !s.updateArmedLocked() {
		// one retry, matching the original's "retry once, then treat as
		// fatal" handling of a failed re-arm
		if !s.updateArmedLocked() {
			s.fatal = true
			s.store.remove(e)
			PANIC("%s: update_armed failed twice, marking scheduler fatal\n", NAME)
			return 0, ErrCancelled
		}
	}

	return e.id, nil
}

// ArmTimestamp is ArmTimespec at whole-second granularity: triggerSec,
// stepSec and expireSec are Unix epoch seconds (stepSec is a duration in
// seconds; 0 means one-shot; expireSec == 0 means never).
func (s *Scheduler) ArmTimestamp(triggerSec, stepSec, expireSec int64, routine HandlerFunc, arg interface{}) (EntryID, error) {
	trigger := NewInstant(triggerSec, 0)
	step := NewInstant(stepSec, 0)
	var expire Instant
	if expireSec != 0 {
		expire = NewInstant(expireSec, 0)
	}
	return s.ArmTimespec(trigger, step, expire, routine, arg)
}

// Disarm cancels the entry identified by id. It is safe to call while the
// entry's routine is executing; removal is deferred until the routine
// returns (spec: "in-progress entries are marked, not removed, until the
// callback returns").
func (s *Scheduler) Disarm(id EntryID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.destroy || s.fatal {
		return ErrCancelled
	}

	e := s.store.lookup(id)
	if e == nil {
		return ErrInvalidArgument
	}
	if e.inProgress() {
		e.f.set(entryToRemove)
		return nil
	}

	s.store.remove(e)
	if s.armed == e {
		s.armed = nil
	}

	if !s.updateArmedLocked() {
		if !s.updateArmedLocked() {
			s.fatal = true
			PANIC("%s: update_armed failed twice during disarm, marking scheduler fatal\n", NAME)
			return ErrCancelled
		}
	}
	return nil
}

// Search looks up id and, if it still identifies a live entry not already
// marked for removal, returns its current (trigger, step, expire). A
// recurring entry's trigger advances on each dispatch, so the returned
// value matches the arming call only until the first fire.
func (s *Scheduler) Search(id EntryID) (trigger, step, expire Instant, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.destroy || s.fatal {
		return Instant{}, Instant{}, Instant{}, ErrCancelled
	}

	e := s.store.lookup(id)
	if e == nil || e.toRemove() {
		return Instant{}, Instant{}, Instant{}, ErrNotFound
	}
	return e.trigger, e.step, e.expire, nil
}

// updateArmedLocked re-selects the earliest-trigger live entry (skipping
// in-progress ones) and, if it differs from the currently armed entry,
// re-arms the underlying userland timer for it. Called with s.mu held.
// Grounded on the corrected psched_update_timers: the original shipped
// with an off-by-one that could arm an already-expired entry; this
// reselects strictly by trigger ordering every time instead of trusting a
// cached "next" pointer.
func (s *Scheduler) updateArmedLocked() bool {
	var next *entry
	s.store.forEach(func(e *entry) {
		if e.inProgress() || e.toRemove() {
			return
		}
		if next == nil || e.trigger.Before(next.trigger) {
			next = e
		}
	})

	if next == s.armed {
		return true
	}
	s.armed = next

	if next == nil {
		_, err := defaultTimers.settime(s.timerID, ItimerSpec{})
		return err == nil
	}

	spec := ItimerSpec{
		Absolute:     true,
		ValueInstant: next.trigger,
	}
	_, err := defaultTimers.settime(s.timerID, spec)
	return err == nil
}

// Destroy stops the scheduler: disarms the underlying timer, prevents any
// further Arm/Disarm, and waits for any in-flight callback to return.
// It must not be called from within a callback of the same scheduler: the
// wait includes the calling callback itself, so such a call never returns.
func (s *Scheduler) Destroy() error {
	s.mu.Lock()
	if s.destroy {
		s.mu.Unlock()
		return nil
	}
	s.destroy = true
	s.mu.Unlock()

	if s.mode == ModeSignal {
		unregisterSignalHandler(s.sig)
	}

	defaultTimers.delete(s.timerID)

	s.handlerWG.Wait()

	DBG("%s: scheduler destroyed\n", NAME)
	return nil
}

// HandlerDestroy blocks until any callback currently executing on this
// scheduler has returned, without destroying the scheduler itself. It
// exists for callers that need to guarantee "no callback is running" at a
// synchronization point distinct from final teardown.
func (s *Scheduler) HandlerDestroy() {
	s.handlerWG.Wait()
}
