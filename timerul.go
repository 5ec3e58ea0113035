// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package psched

import (
	"sync"
	"time"

	"github.com/intuitivelabs/timestamp"
)

// ClockDomain identifies the clock a userland timer is bound to, mirroring
// the clockid_t values accepted by POSIX timer_create(2).
type ClockDomain int

const (
	ClockRealtime ClockDomain = iota
	ClockMonotonic
	ClockProcessCPUTime
	ClockThreadCPUTime
)

// ItimerSpec mirrors struct itimerspec: an initial expiration plus a
// recurrence interval. When Absolute is true the expiration is the
// absolute instant ValueInstant; otherwise it is the relative delay
// ValueRel. A zero expiration (ValueInstant.IsZero() / ValueRel == 0,
// whichever applies) disarms the timer. Interval == 0 means one-shot.
type ItimerSpec struct {
	Absolute     bool
	ValueInstant Instant
	ValueRel     time.Duration
	Interval     time.Duration
}

func (s ItimerSpec) isDisarm() bool {
	if s.Absolute {
		return s.ValueInstant.IsZero()
	}
	return s.ValueRel == 0
}

// TimerID addresses a userland timer control block. Slot index+1 is used
// as the id so that 0 is never valid, matching timer_create_ul's
// "(slot + 1)" cast.
type TimerID uintptr

const (
	tInit flags = 1 << iota
	tArmed
	tIntr
	tRead
	tTerm
)

// ulTimer is the userland per-process-timer control block (spec component
// 4.B): a single-shot/periodic sleep-then-notify timer with settime/
// gettime/delete semantics matching timer_create(2)/timer_settime(2).
type ulTimer struct {
	id     TimerID
	clock  ClockDomain
	notify HandlerFunc

	mu       sync.Mutex
	pCond    *sync.Cond // producer side: settime signals the worker to re-check armed/term
	hCond    *sync.Cond // consumer side: worker signals settime/gettime/delete handshakes done
	f        flags
	abs      bool
	value    Instant       // absolute trigger, when abs
	valRel   time.Duration // relative delay, when !abs
	interval time.Duration
	rem      time.Duration

	notifying bool
	overrun   int

	intr    chan struct{} // interrupt "pipe": one slot, write wakes the sleeper
	doneAck chan struct{}
}

func newULTimer(id TimerID, clock ClockDomain, notify HandlerFunc) *ulTimer {
	t := &ulTimer{
		id:      id,
		clock:   clock,
		notify:  notify,
		intr:    make(chan struct{}, 1),
		doneAck: make(chan struct{}),
	}
	t.pCond = sync.NewCond(&t.mu)
	t.hCond = sync.NewCond(&t.mu)
	return t
}

// interrupt performs a non-blocking "write" to the interrupt pipe: at most
// one pending interrupt is ever meaningful since the worker drains it on
// every wake.
func (t *ulTimer) interrupt() {
	select {
	case t.intr <- struct{}{}:
	default:
	}
}

// worker is the per-timer thread (spec: "a per-timer thread that sleeps on
// an interruptible wait until a deadline and then calls a notification
// callback"). States: CREATED -> INIT -> WAITING_ARM <-> COUNTING ->
// NOTIFYING -> WAITING_ARM (or TERMINATING), per spec §4.B.
func (t *ulTimer) worker() {
	t.mu.Lock()
	t.f.set(tInit)
	t.hCond.Signal()

	for {
		for !t.f.has(tArmed) && !t.f.has(tTerm) {
			t.pCond.Wait()
		}
		if t.f.has(tTerm) {
			t.mu.Unlock()
			close(t.doneAck)
			return
		}

		t.f.clear(tInit)
		t.hCond.Signal()

		var tsleep time.Duration
		if t.rem > 0 {
			tsleep = t.rem
		} else if t.abs {
			tsleep = t.value.Sub(instantNow()).Duration()
		} else {
			tsleep = t.valRel
		}
		if tsleep < 0 {
			tsleep = 0
		}

		t.mu.Unlock()

		// elapsed-time bookkeeping around the interruptible wait, same
		// "now := timestamp.Now(); ...; now.Sub(ref)" shape as the
		// teacher's ticker().
		start := timestamp.Now()
		var timedOut bool
		select {
		case <-t.intr:
		case <-time.After(tsleep):
			timedOut = true
		}
		stop := timestamp.Now()

		t.mu.Lock()

		if !timedOut {
			elapsed := stop.Sub(start)
			t.rem = tsleep - elapsed
			if t.rem < 0 {
				t.rem = 0
			}
		} else {
			t.rem = 0
		}

		if t.f.has(tIntr) {
			t.f.clear(tIntr)
			t.hCond.Signal()
			continue
		}
		if t.f.has(tRead) {
			t.f.clear(tRead)
			t.hCond.Signal()
			continue
		}
		if t.rem > 0 {
			continue
		}

		// NOTIFYING: spawn a detached goroutine per fire, with the
		// argument and callback copied by value before the goroutine
		// starts. This mirrors _notify_routine's memcpy of the sigevent:
		// replacing it with a shared reference would race with a
		// concurrent settime() mutating the control block.
		//
		// t.mu stays held across the spawn, same as _timer_process holds
		// t_mutex continuously across pthread_create plus the interval
		// bookkeeping that follows: a settime/gettime/delete racing this
		// same timer id only blocks briefly until the worker reaches its
		// own next wait point below, instead of setting tIntr/tRead after
		// the drain has already happened and hanging forever.
		fn := t.notify
		if t.notifying {
			t.overrun++
		}
		t.notifying = true
		go func(fn HandlerFunc, tm *ulTimer) {
			defer func() {
				tm.mu.Lock()
				tm.notifying = false
				tm.mu.Unlock()
			}()
			fn(nil)
		}(fn, t)

		if t.interval == 0 {
			t.f.clear(tArmed)
			continue
		}
		if t.abs {
			t.value = t.value.AddDuration(t.interval)
		} else {
			t.valRel = t.interval
		}
	}
}

// timerTable is the process-wide registry of userland timer control
// blocks. The original keeps this as implicit global mutable state
// (_timers/_nr_timers/_mutex_timers); spec §9 asks for that to become "a
// single owned module-level object with explicit init/teardown" instead of
// hidden globals, so it is encapsulated here as one documented package
// variable rather than scattered package-level state.
type timerTable struct {
	mu     sync.Mutex
	timers []*ulTimer
}

var defaultTimers = &timerTable{}

func (tt *timerTable) create(clock ClockDomain, notify HandlerFunc) (TimerID, error) {
	switch clock {
	case ClockRealtime, ClockMonotonic, ClockProcessCPUTime:
	case ClockThreadCPUTime:
		return 0, ErrInvalidArgument // no portable per-thread clock in Go
	default:
		return 0, ErrInvalidArgument
	}
	if notify == nil {
		return 0, ErrInvalidArgument
	}

	tt.mu.Lock()
	defer tt.mu.Unlock()

	slot := -1
	for i, v := range tt.timers {
		if v == nil {
			slot = i
			break
		}
	}
	if slot == -1 {
		tt.timers = append(tt.timers, nil)
		slot = len(tt.timers) - 1
	}

	id := TimerID(slot + 1)
	t := newULTimer(id, clock, notify)
	tt.timers[slot] = t

	t.mu.Lock()
	go t.worker()
	for !t.f.has(tInit) {
		t.hCond.Wait()
	}
	t.mu.Unlock()

	return id, nil
}

func (tt *timerTable) get(id TimerID) *ulTimer {
	tt.mu.Lock()
	defer tt.mu.Unlock()
	slot := int(id) - 1
	if slot < 0 || slot >= len(tt.timers) {
		return nil
	}
	return tt.timers[slot]
}

func (tt *timerTable) settime(id TimerID, spec ItimerSpec) (ItimerSpec, error) {
	t := tt.get(id)
	if t == nil {
		return ItimerSpec{}, ErrInvalidArgument
	}

	t.mu.Lock()

	var old ItimerSpec
	if t.f.has(tArmed) {
		old.Absolute = t.abs
		old.ValueInstant = t.value
		old.ValueRel = t.rem
		old.Interval = t.interval

		t.f.clear(tArmed)
		t.interrupt()
		t.f.set(tIntr)
		for t.f.has(tIntr) {
			t.hCond.Wait()
		}
	}

	if spec.isDisarm() {
		t.mu.Unlock()
		return old, nil
	}

	t.rem = 0
	t.abs = spec.Absolute
	t.value = spec.ValueInstant
	t.valRel = spec.ValueRel
	t.interval = spec.Interval

	t.f.set(tInit)
	t.f.set(tArmed)
	t.pCond.Signal()
	for t.f.has(tInit) {
		t.hCond.Wait()
	}
	t.mu.Unlock()

	return old, nil
}

func (tt *timerTable) gettime(id TimerID) (ItimerSpec, error) {
	t := tt.get(id)
	if t == nil {
		return ItimerSpec{}, ErrInvalidArgument
	}

	t.mu.Lock()
	if !t.f.has(tArmed) {
		t.mu.Unlock()
		return ItimerSpec{}, ErrInvalidArgument
	}

	t.f.set(tRead)
	t.interrupt()
	for t.f.has(tRead) {
		t.hCond.Wait()
	}

	cur := ItimerSpec{
		Absolute: t.abs,
		Interval: t.interval,
		ValueRel: t.rem,
	}
	t.mu.Unlock()

	return cur, nil
}

func (tt *timerTable) getoverrun(id TimerID) (int, error) {
	t := tt.get(id)
	if t == nil {
		return 0, ErrInvalidArgument
	}
	t.mu.Lock()
	n := t.overrun
	t.overrun = 0
	t.mu.Unlock()
	return n, nil
}

func (tt *timerTable) delete(id TimerID) error {
	t := tt.get(id)
	if t == nil {
		return ErrInvalidArgument
	}

	if _, err := tt.settime(id, ItimerSpec{}); err != nil {
		return err
	}

	t.mu.Lock()
	t.f.set(tTerm)
	t.pCond.Signal()
	t.mu.Unlock()

	<-t.doneAck

	tt.mu.Lock()
	slot := int(id) - 1
	if slot >= 0 && slot < len(tt.timers) {
		tt.timers[slot] = nil
	}
	used := false
	for _, v := range tt.timers {
		if v != nil {
			used = true
			break
		}
	}
	if !used {
		tt.timers = nil
	}
	tt.mu.Unlock()

	return nil
}
