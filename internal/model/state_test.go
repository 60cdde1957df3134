package model

import (
	"errors"
	"testing"
)

func TestCanTransition_AllowsExpectedPaths(t *testing.T) {
	cases := []struct {
		from PatchState
		to   PatchState
	}{
		{StateUnknown, StateClean},
		{StateClean, StateInstalled},
		{StateInstalled, StateInstalled},
		{StateInstalled, StateClean},
		{StateStaleBackup, StateClean},
		{StateStaleBackup, StateInstalled},
		{StateCorrupt, StateCorrupt},
	}

	for _, tc := range cases {
		if !CanTransition(tc.from, tc.to) {
			t.Fatalf("expected transition %q -> %q to be allowed", tc.from, tc.to)
		}
	}
}

func TestCanTransition_RejectsInvalidPaths(t *testing.T) {
	cases := []struct {
		from PatchState
		to   PatchState
	}{
		{StateCorrupt, StateInstalled},
		{StateCorrupt, StateClean},
		{StateClean, StateStaleBackup},
		{"not_a_state", StateClean},
	}

	for _, tc := range cases {
		if CanTransition(tc.from, tc.to) {
			t.Fatalf("expected transition %q -> %q to be rejected", tc.from, tc.to)
		}
	}
}

func TestClassifyState(t *testing.T) {
	cases := []struct {
		marker, backup bool
		want           PatchState
	}{
		{false, false, StateClean},
		{true, true, StateInstalled},
		{true, false, StateCorrupt},
		{false, true, StateStaleBackup},
	}
	for _, tc := range cases {
		if got := ClassifyState(tc.marker, tc.backup); got != tc.want {
			t.Fatalf("ClassifyState(%v, %v) = %q, want %q", tc.marker, tc.backup, got, tc.want)
		}
	}
}

func TestCheckTransition_CorruptWrapsSentinel(t *testing.T) {
	err := CheckTransition("/tmp/x.js", StateCorrupt, StateInstalled)
	if !errors.Is(err, ErrCorruptState) {
		t.Fatalf("expected ErrCorruptState, got %v", err)
	}
}

func TestKind_LabelsWrappedErrors(t *testing.T) {
	err := NewPathError("inject", "/tmp/x.js", ErrAnchorNotFound)
	if got := Kind(err); got != "anchor-not-found" {
		t.Fatalf("unexpected kind %q", got)
	}
	if got := Kind(errors.New("boom")); got != "error" {
		t.Fatalf("unexpected kind %q", got)
	}
	if !errors.Is(err, ErrAnchorNotFound) {
		t.Fatal("expected errors.Is to see through PathError")
	}
}
