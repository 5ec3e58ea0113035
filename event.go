// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package psched

// processEvent is the unified event processor (spec component 4.E): both
// thread mode and signal mode funnel into this single function, so the
// dispatch semantics never drift between the two notification paths.
//
// Per firing it: takes the currently armed entry, checks it against
// expire before running it (an entry that reached its hard expiration is
// dropped silently, never invoked one "last time"), runs the routine with
// the engine mutex released, then either reschedules (step > 0) or removes
// the entry, before recomputing what should be armed next.
func (s *Scheduler) processEvent() {
	s.mu.Lock()
	if s.destroy {
		s.mu.Unlock()
		return
	}

	e := s.armed
	if e == nil {
		s.mu.Unlock()
		return
	}
	s.armed = nil

	now := instantNow()

	if !e.expire.IsZero() && e.expire.LE(now) {
		e.f.set(entryExpired)
		s.store.remove(e)
		s.rearmAfterRemoval()
		s.mu.Unlock()
		return
	}

	e.f.set(entryInProgress)
	routine := e.routine
	arg := e.arg

	s.handlerWG.Add(1)
	s.mu.Unlock()

	func() {
		defer s.handlerWG.Done()
		routine(arg)
	}()

	s.mu.Lock()

	switch {
	case e.toRemove():
		// Disarm was requested while the routine was running.
		s.store.remove(e)

	case e.step.IsZero():
		// one-shot: done after a single firing.
		s.store.remove(e)

	default:
		// recurring: catch up missed periods instead of busy-firing once
		// per missed period, matching the wheel timer's "skip to
		// now-or-later" rearm behavior for routines slower than their own
		// period.
		next := e.trigger.Add(e.step)
		now = instantNow()
		for next.LE(now) {
			next = next.Add(e.step)
		}
		if !e.expire.IsZero() && next.GE(e.expire) {
			e.f.set(entryExpired)
			s.store.remove(e)
		} else {
			e.trigger = next
		}
	}
	e.f.clear(entryInProgress)

	if s.destroy {
		s.mu.Unlock()
		return
	}

	if !s.updateArmedLocked() {
		if !s.updateArmedLocked() {
			s.fatal = true
			s.mu.Unlock()
			PANIC("%s: update_armed failed twice after event dispatch, marking scheduler fatal\n", NAME)
			return
		}
	}
	s.mu.Unlock()
}

// rearmAfterRemoval re-selects the next timer to arm after an entry was
// dropped without running its routine (the expire-before-trigger path).
func (s *Scheduler) rearmAfterRemoval() {
	if !s.updateArmedLocked() {
		if !s.updateArmedLocked() {
			s.fatal = true
			PANIC("%s: update_armed failed twice after expiry removal, marking scheduler fatal\n", NAME)
		}
	}
}
