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

func TestInstantNormalize(t *testing.T) {
	cases := []struct {
		sec, nsec int64
		wantSec   int64
		wantNsec  int32
	}{
		{0, 0, 0, 0},
		{0, int64(time.Second) + 1, 1, 1},
		{5, -1, 4, int32(time.Second) - 1},
		{0, 2*int64(time.Second) + 500, 2, 500},
		{-1, int64(time.Second), 0, 0},
	}

	for _, c := range cases {
		got := NewInstant(c.sec, c.nsec)
		if got.Sec != c.wantSec || got.Nsec != c.wantNsec {
			t.Errorf("NewInstant(%d, %d) = {%d %d}, want {%d %d}\n",
				c.sec, c.nsec, got.Sec, got.Nsec, c.wantSec, c.wantNsec)
		}
	}
}

func TestInstantCmp(t *testing.T) {
	a := NewInstant(1, 0)
	b := NewInstant(1, 1)
	c := NewInstant(2, 0)

	if !a.Before(b) || !b.After(a) {
		t.Fatalf("a should be before b\n")
	}
	if !b.Before(c) {
		t.Fatalf("b should be before c\n")
	}
	if !a.Equal(a) {
		t.Fatalf("a should equal itself\n")
	}
	if !a.LE(a) || !a.GE(a) {
		t.Fatalf("LE/GE should hold for equal instants\n")
	}
}

func TestInstantAddSub(t *testing.T) {
	a := NewInstant(10, 500)
	d := 2*time.Second + 600

	sum := a.AddDuration(d)
	if sum.Sec != 12 || sum.Nsec != 1100 {
		t.Fatalf("AddDuration mismatch: got {%d %d}\n", sum.Sec, sum.Nsec)
	}

	back := sum.SubDuration(d)
	if !back.Equal(a) {
		t.Fatalf("SubDuration did not invert AddDuration: got %v, want %v\n", back, a)
	}

	diff := sum.Sub(a)
	if diff.Duration() != d {
		t.Fatalf("Sub/Duration mismatch: got %v, want %v\n", diff.Duration(), d)
	}
}

func TestInstantIsZero(t *testing.T) {
	if !Zero.IsZero() {
		t.Fatalf("Zero should report IsZero\n")
	}
	if NewInstant(0, 1).IsZero() {
		t.Fatalf("non-zero instant reported as zero\n")
	}
}
