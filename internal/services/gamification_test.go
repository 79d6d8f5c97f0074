package services

import "testing"

func TestLevel(t *testing.T) {
	tests := []struct {
		total    int
		expected int
	}{
		{0, 1},
		{50, 1},
		{99, 1},
		{100, 2},
		{199, 2},
		{200, 3},
		{999, 10},
		{1000, 11},
	}

	for _, tc := range tests {
		if got := Level(tc.total); got != tc.expected {
			t.Errorf("Level(%d) = %d, want %d", tc.total, got, tc.expected)
		}
	}
}

func TestLevel_NegativeClampsToOne(t *testing.T) {
	if got := Level(-10); got != 1 {
		t.Errorf("Level(-10) = %d, want 1", got)
	}
}

func TestLevel_Monotonic(t *testing.T) {
	prev := Level(0)
	for total := 1; total <= 2000; total++ {
		cur := Level(total)
		if cur < prev {
			t.Fatalf("Level decreased from %d to %d at total=%d", prev, cur, total)
		}
		prev = cur
	}
}

func TestPointsToNextLevel(t *testing.T) {
	tests := []struct {
		total    int
		expected int
	}{
		{0, 100},
		{40, 60},
		{99, 1},
		{100, 100},
		{250, 50},
	}

	for _, tc := range tests {
		if got := PointsToNextLevel(tc.total); got != tc.expected {
			t.Errorf("PointsToNextLevel(%d) = %d, want %d", tc.total, got, tc.expected)
		}
	}
}

func TestPointsToNextLevel_ReachesNextLevel(t *testing.T) {
	for _, total := range []int{0, 10, 99, 100, 555} {
		after := total + PointsToNextLevel(total)
		if Level(after) != Level(total)+1 {
			t.Errorf("total=%d: adding PointsToNextLevel should land exactly one level up, got level %d -> %d",
				total, Level(total), Level(after))
		}
	}
}

// A full guided run (start, one feedback, final save) stays inside level 1.
func TestAwardConstants_GuidedRunWithinFirstLevel(t *testing.T) {
	total := PointsStartSession + PointsAIFeedback + PointsSaveSession
	if total != 60 {
		t.Errorf("start+feedback+save = %d, want 60", total)
	}
	if Level(total) != 1 {
		t.Errorf("one guided run should stay at level 1, got %d", Level(total))
	}
}
