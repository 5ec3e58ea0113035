// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

//go:build linux

package psched

import (
	"os"
	"os/signal"
	"sync"

	"golang.org/x/sys/unix"
)

// signalRegistry is the process-local lookup the original smuggles through
// a raw pointer in sigevent.sigev_value.sival_ptr. Spec design note 9 flags
// that as unsafe to carry over as-is; POSIX already scopes one sigaction
// per (signal number, process), so keying a registry by the signal number
// itself is a safe reformulation that needs no pointer smuggling at all.
var signalRegistry struct {
	mu   sync.Mutex
	byID map[int]*Scheduler
	stop map[int]chan struct{}
}

func init() {
	signalRegistry.byID = make(map[int]*Scheduler)
	signalRegistry.stop = make(map[int]chan struct{})
	BuildTags = append(BuildTags, "signal")
}

func signalModeSupported() bool { return true }

// raiseSignal delivers sig to the current process. The userland timer has
// no kernel object to raise it for us the way a real timer_create(...,
// SIGEV_SIGNAL, ...) would, so the timer's own notification callback
// (Scheduler.onTimerFire) calls this directly; the goroutine started by
// registerSignalHandler picks the signal back up via signal.Notify and
// runs processEvent from there, same as a genuine kernel delivery would.
func raiseSignal(sig int) error {
	return unix.Kill(unix.Getpid(), unix.Signal(sig))
}

// linuxSIGRTMIN/linuxSIGRTMAX bound the realtime signals accepted here
// (signal(7)): the kernel range is 32..64, and 32 and 33 are left out
// because the C library reserves them for internal use.
const (
	linuxSIGRTMIN = 34
	linuxSIGRTMAX = 64
)

func registerSignalHandler(sig int, s *Scheduler) error {
	if sig < linuxSIGRTMIN || sig > linuxSIGRTMAX {
		return ErrInvalidArgument
	}

	signalRegistry.mu.Lock()
	if _, exists := signalRegistry.byID[sig]; exists {
		signalRegistry.mu.Unlock()
		return ErrInvalidArgument
	}
	stop := make(chan struct{})
	signalRegistry.byID[sig] = s
	signalRegistry.stop[sig] = stop
	signalRegistry.mu.Unlock()

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, unix.Signal(sig))

	go func() {
		for {
			select {
			case <-ch:
				signalRegistry.mu.Lock()
				sched := signalRegistry.byID[sig]
				signalRegistry.mu.Unlock()
				if sched != nil {
					sched.drainSignalPending()
				}
			case <-stop:
				signal.Stop(ch)
				return
			}
		}
	}()

	return nil
}

func unregisterSignalHandler(sig int) {
	signalRegistry.mu.Lock()
	stop, ok := signalRegistry.stop[sig]
	delete(signalRegistry.byID, sig)
	delete(signalRegistry.stop, sig)
	signalRegistry.mu.Unlock()

	if ok {
		close(stop)
	}
}
