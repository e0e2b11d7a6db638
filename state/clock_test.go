package state

import (
	"testing"

	"pgregory.net/rapid"
)

func TestClockTransitions(t *testing.T) {
	c := NewClock(300, 12)
	if c.Status() != StatusLobby {
		t.Fatalf("expected lobby, got %s", c.Status())
	}
	if _, ok := c.Advance(); ok {
		t.Error("lobby clock must not advance")
	}
	if c.Pause() || c.Resume() {
		t.Error("pause/resume must be no-ops in lobby")
	}
	if !c.Start() || c.Status() != StatusActive {
		t.Fatalf("expected active after start, got %s", c.Status())
	}
	if c.Start() {
		t.Error("start on an active clock should not report a change")
	}
	if !c.Pause() || c.Status() != StatusPaused {
		t.Fatalf("expected paused, got %s", c.Status())
	}
	if _, ok := c.Advance(); ok || c.Tick() != 0 {
		t.Error("paused clock must not advance")
	}
	if !c.Resume() || c.Status() != StatusActive {
		t.Fatalf("expected active after resume, got %s", c.Status())
	}
}

func TestClockDayChangeAndEnd(t *testing.T) {
	c := NewClock(300, 12)
	c.Start()

	var changes []int
	var last Step
	for c.Status() == StatusActive {
		step, ok := c.Advance()
		if !ok {
			t.Fatal("active clock refused to advance")
		}
		if step.DayChanged {
			changes = append(changes, step.Tick)
		}
		last = step
	}

	if last.Tick != 3600 || !last.Ended {
		t.Fatalf("expected the game to end on tick 3600, got %+v", last)
	}
	if last.Day != 13 {
		t.Errorf("expected day 13 on the final tick, got %d", last.Day)
	}
	if len(changes) != 12 || changes[0] != 300 {
		t.Errorf("expected 12 day changes starting at tick 300, got %v", changes)
	}
	if c.Start() || c.Resume() || c.Pause() {
		t.Error("ended clock must not change status")
	}
	if _, ok := c.Advance(); ok {
		t.Error("ended clock must not advance")
	}
}

func TestClockDayProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		tpd := rapid.IntRange(1, 50).Draw(t, "ticksPerDay")
		final := rapid.IntRange(1, 10).Draw(t, "finalDay")
		n := rapid.IntRange(0, 600).Draw(t, "ticks")

		c := NewClock(tpd, final)
		c.Start()
		for i := 0; i < n && c.Status() == StatusActive; i++ {
			c.Advance()
		}
		s := c.State()
		if s.Day != 1+s.Tick/tpd {
			t.Fatalf("day %d does not match tick %d", s.Day, s.Tick)
		}
		if s.DayTick != s.Tick%tpd {
			t.Fatalf("dayTick %d does not match tick %d", s.DayTick, s.Tick)
		}
		if s.Status == StatusEnded && s.Tick != tpd*final {
			t.Fatalf("ended at tick %d, expected %d", s.Tick, tpd*final)
		}
	})
}
