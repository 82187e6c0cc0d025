package db

import "testing"

func TestStateCountsApply(t *testing.T) {
	t.Parallel()

	var counts StateCounts
	counts.apply(0, 3)
	counts.apply(-1, 2)

	if counts.Working != 3 {
		t.Errorf("working = %d, want 3", counts.Working)
	}
	if counts.Done != 0 {
		t.Errorf("done = %d, want 0 for an absent state", counts.Done)
	}
	if counts.Aborted != 2 {
		t.Errorf("aborted = %d, want 2", counts.Aborted)
	}
}

func TestStateCountsApplyIgnoresUnknownStates(t *testing.T) {
	t.Parallel()

	var counts StateCounts
	counts.apply(5, 7)
	counts.apply(-2, 7)

	if counts != (StateCounts{}) {
		t.Fatalf("counts = %+v, want all zero", counts)
	}
}

func TestStateCountsApplyMapsEachState(t *testing.T) {
	t.Parallel()

	cases := []struct {
		state int
		want  StateCounts
	}{
		{state: 0, want: StateCounts{Working: 9}},
		{state: 1, want: StateCounts{Done: 9}},
		{state: -1, want: StateCounts{Aborted: 9}},
	}
	for _, tc := range cases {
		var counts StateCounts
		counts.apply(tc.state, 9)
		if counts != tc.want {
			t.Errorf("apply(%d) = %+v, want %+v", tc.state, counts, tc.want)
		}
	}
}
