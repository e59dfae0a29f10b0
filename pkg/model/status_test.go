package model

import "testing"

func TestStatusIsTerminal(t *testing.T) {
	cases := []struct {
		status Status
		want   bool
	}{
		{StatusReady, false},
		{StatusRunning, false},
		{StatusSleeping, false},
		{StatusFinished, true},
	}
	for _, tc := range cases {
		if got := tc.status.IsTerminal(); got != tc.want {
			t.Errorf("%s.IsTerminal() = %v, want %v", tc.status, got, tc.want)
		}
	}
}

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusReady, StatusRunning, true},
		{StatusReady, StatusFinished, false},
		{StatusRunning, StatusSleeping, true},
		{StatusRunning, StatusReady, true},
		{StatusRunning, StatusFinished, true},
		{StatusSleeping, StatusRunning, true},
		{StatusSleeping, StatusReady, true},
		{StatusFinished, StatusReady, false},
		{StatusFinished, StatusRunning, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.want {
			t.Errorf("CanTransitionTo(%s -> %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}
