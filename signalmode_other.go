// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

//go:build !linux

package psched

// Realtime-signal notification is Linux-specific (sigev_notify ==
// SIGEV_THREAD_ID in the original, backed by rt_tgsigqueueinfo). Elsewhere
// InitSignal reports ErrNotConfigured; ModeThread remains fully available
// on every platform.

func signalModeSupported() bool { return false }

func registerSignalHandler(sig int, s *Scheduler) error {
	return ErrNotConfigured
}

func unregisterSignalHandler(sig int) {}

// raiseSignal is never reached: onTimerFire only calls it in ModeSignal,
// and InitSignal (the only way to construct a ModeSignal Scheduler)
// already refuses with ErrNotConfigured on this platform.
func raiseSignal(sig int) error { return ErrNotConfigured }
