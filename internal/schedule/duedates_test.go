package schedule

import (
	"testing"
	"time"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDueDatesRoundTrip(t *testing.T) {
	dates := DueDates(day(2024, time.January, 1), []int{30, 60})
	if len(dates) != 2 {
		t.Fatalf("expected 2 dates, got %d", len(dates))
	}
	if !dates[0].Equal(day(2024, time.January, 31)) {
		t.Fatalf("unexpected first date %s", dates[0])
	}
	if !dates[1].Equal(day(2024, time.March, 1)) {
		t.Fatalf("unexpected second date %s", dates[1])
	}
}

func TestDueDatesIgnoresAnchorClock(t *testing.T) {
	anchor := time.Date(2024, time.January, 1, 23, 45, 0, 0, time.UTC)
	dates := DueDates(anchor, []int{1})
	if !dates[0].Equal(day(2024, time.January, 2)) {
		t.Fatalf("unexpected date %s", dates[0])
	}
}

func TestDueDatesEmpty(t *testing.T) {
	dates := DueDates(day(2024, time.January, 1), nil)
	if dates == nil || len(dates) != 0 {
		t.Fatalf("expected empty non-nil result, got %#v", dates)
	}
}

func TestZeroOffsetIsAnchorAndHidden(t *testing.T) {
	anchor := day(2024, time.May, 10)
	dates := DueDates(anchor, []int{0, 15})
	if !dates[0].Equal(anchor) {
		t.Fatalf("offset 0 should land on the anchor, got %s", dates[0])
	}
	visible := Visible(anchor, []int{0, 15})
	if len(visible) != 1 || !visible[0].Equal(day(2024, time.May, 25)) {
		t.Fatalf("unexpected visible dates %v", visible)
	}
}

func TestResizeResetsOffsets(t *testing.T) {
	got := Resize([]int{30, 60, 90}, 1)
	if len(got) != 1 || got[0] != 0 {
		t.Fatalf("expected [0], got %v", got)
	}

	grown := Resize([]int{30}, 3)
	for i, v := range grown {
		if v != 0 {
			t.Fatalf("offset %d not reset: %v", i, grown)
		}
	}

	same := []int{10, 20}
	kept := Resize(same, 2)
	kept[0] = 99
	if same[0] != 10 {
		t.Fatal("resize must not alias the input slice")
	}
	if len(Resize(same, -4)) != 0 {
		t.Fatal("negative counts resize to empty")
	}
}

func TestPlanDescribe(t *testing.T) {
	plan := Plan{Count: 3, Offsets: []int{30, 0, 60}}
	got := plan.Describe(day(2024, time.January, 1))
	if got != "31/01/2024, 01/03/2024" {
		t.Fatalf("unexpected description %q", got)
	}

	resized := plan.Resized(1)
	if resized.Count != 1 || len(resized.Offsets) != 1 || resized.Offsets[0] != 0 {
		t.Fatalf("unexpected resized plan %+v", resized)
	}
}
