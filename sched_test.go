// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package psched

import (
	"testing"
	"time"
)

// in returns the absolute Instant d from now, for arming tests against
// ArmTimespec's absolute-trigger contract.
func in(d time.Duration) Instant {
	return instantNow().AddDuration(d)
}

func TestSchedulerArmTimespecFires(t *testing.T) {
	s, err := InitThread()
	if err != nil {
		t.Fatalf("InitThread: %v\n", err)
	}
	defer s.Destroy()

	fired := make(chan interface{}, 1)
	_, err = s.ArmTimespec(in(20*time.Millisecond), Zero, Zero,
		func(arg interface{}) { fired <- arg }, "hello")
	if err != nil {
		t.Fatalf("ArmTimespec: %v\n", err)
	}

	select {
	case arg := <-fired:
		if arg != "hello" {
			t.Fatalf("callback arg = %v, want \"hello\"\n", arg)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("entry never fired\n")
	}
}

func TestSchedulerArmTimestampSecondGranularity(t *testing.T) {
	s, err := InitThread()
	if err != nil {
		t.Fatalf("InitThread: %v\n", err)
	}
	defer s.Destroy()

	fired := make(chan struct{}, 1)
	now := instantNow()
	_, err = s.ArmTimestamp(now.Sec+1, 0, 0, func(interface{}) { fired <- struct{}{} }, nil)
	if err != nil {
		t.Fatalf("ArmTimestamp: %v\n", err)
	}

	select {
	case <-fired:
	case <-time.After(3 * time.Second):
		t.Fatalf("entry armed via ArmTimestamp never fired\n")
	}
}

func TestSchedulerEarliestTriggerWins(t *testing.T) {
	s, err := InitThread()
	if err != nil {
		t.Fatalf("InitThread: %v\n", err)
	}
	defer s.Destroy()

	var order []string
	done := make(chan struct{}, 2)

	record := func(name string) HandlerFunc {
		return func(arg interface{}) {
			order = append(order, name)
			done <- struct{}{}
		}
	}

	if _, err := s.ArmTimespec(in(60*time.Millisecond), Zero, Zero, record("late"), nil); err != nil {
		t.Fatalf("arm late: %v\n", err)
	}
	if _, err := s.ArmTimespec(in(20*time.Millisecond), Zero, Zero, record("early"), nil); err != nil {
		t.Fatalf("arm early: %v\n", err)
	}

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatalf("only %d/2 entries fired\n", i)
		}
	}

	if len(order) != 2 || order[0] != "early" || order[1] != "late" {
		t.Fatalf("fire order = %v, want [early late]\n", order)
	}
}

func TestSchedulerDisarmPreventsFiring(t *testing.T) {
	s, err := InitThread()
	if err != nil {
		t.Fatalf("InitThread: %v\n", err)
	}
	defer s.Destroy()

	fired := make(chan struct{}, 1)
	id, err := s.ArmTimespec(in(30*time.Millisecond), Zero, Zero,
		func(interface{}) { fired <- struct{}{} }, nil)
	if err != nil {
		t.Fatalf("ArmTimespec: %v\n", err)
	}

	if err := s.Disarm(id); err != nil {
		t.Fatalf("Disarm: %v\n", err)
	}
	if _, _, _, err := s.Search(id); err != ErrNotFound {
		t.Fatalf("Search found a disarmed entry (err=%v)\n", err)
	}

	select {
	case <-fired:
		t.Fatalf("disarmed entry fired anyway\n")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSchedulerRecurringEntry(t *testing.T) {
	s, err := InitThread()
	if err != nil {
		t.Fatalf("InitThread: %v\n", err)
	}
	defer s.Destroy()

	fired := make(chan struct{}, 8)
	_, err = s.ArmTimespec(in(15*time.Millisecond), FromDuration(15*time.Millisecond), Zero,
		func(interface{}) { fired <- struct{}{} }, nil)
	if err != nil {
		t.Fatalf("ArmTimespec: %v\n", err)
	}

	for i := 0; i < 3; i++ {
		select {
		case <-fired:
		case <-time.After(2 * time.Second):
			t.Fatalf("recurring entry fired only %d/3 times\n", i)
		}
	}
}

func TestSchedulerExpireDropsEntryBeforeItFires(t *testing.T) {
	s, err := InitThread()
	if err != nil {
		t.Fatalf("InitThread: %v\n", err)
	}
	defer s.Destroy()

	fired := make(chan struct{}, 1)
	id, err := s.ArmTimespec(in(200*time.Millisecond), Zero, in(20*time.Millisecond),
		func(interface{}) { fired <- struct{}{} }, nil)
	if err != nil {
		t.Fatalf("ArmTimespec: %v\n", err)
	}

	select {
	case <-fired:
		t.Fatalf("entry fired despite expiring first\n")
	case <-time.After(300 * time.Millisecond):
	}

	if _, _, _, err := s.Search(id); err != ErrNotFound {
		t.Fatalf("expired entry should have been removed (err=%v)\n", err)
	}
}

func TestSchedulerSearchUnknownID(t *testing.T) {
	s, err := InitThread()
	if err != nil {
		t.Fatalf("InitThread: %v\n", err)
	}
	defer s.Destroy()

	if _, _, _, err := s.Search(EntryID(999999)); err != ErrNotFound {
		t.Fatalf("Search should report ErrNotFound for an unknown id, got %v\n", err)
	}
	if err := s.Disarm(EntryID(999999)); err != ErrInvalidArgument {
		t.Fatalf("Disarm unknown id: got %v, want ErrInvalidArgument\n", err)
	}
}

func TestSchedulerDestroyIsIdempotentAndStopsArming(t *testing.T) {
	s, err := InitThread()
	if err != nil {
		t.Fatalf("InitThread: %v\n", err)
	}

	if err := s.Destroy(); err != nil {
		t.Fatalf("Destroy: %v\n", err)
	}
	if err := s.Destroy(); err != nil {
		t.Fatalf("second Destroy: %v\n", err)
	}

	if _, err := s.ArmTimespec(in(10*time.Millisecond), Zero, Zero, func(interface{}) {}, nil); err != ErrCancelled {
		t.Fatalf("ArmTimespec after Destroy: got %v, want ErrCancelled\n", err)
	}
}
