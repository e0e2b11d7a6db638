package state

// Status is the game lifecycle phase.
type Status string

const (
	StatusLobby  Status = "lobby"
	StatusActive Status = "active"
	StatusPaused Status = "paused"
	StatusEnded  Status = "ended"
)

// Clock tracks ticks, trading days and the game status. Day and
// ticks-into-day are always derived from the tick counter.
type Clock struct {
	tick        int
	status      Status
	ticksPerDay int
	finalDay    int
}

// ClockState is a read-only copy of the clock.
type ClockState struct {
	Tick    int    `json:"tick"`
	Day     int    `json:"day"`
	DayTick int    `json:"dayTick"`
	Status  Status `json:"status"`
}

// Step describes what one Advance did.
type Step struct {
	Tick       int
	Day        int
	DayChanged bool
	Ended      bool
}

func NewClock(ticksPerDay, finalDay int) *Clock {
	if ticksPerDay < 1 {
		ticksPerDay = 1
	}
	return &Clock{status: StatusLobby, ticksPerDay: ticksPerDay, finalDay: finalDay}
}

func (c *Clock) Status() Status { return c.status }
func (c *Clock) Tick() int      { return c.tick }
func (c *Clock) Day() int       { return 1 + c.tick/c.ticksPerDay }
func (c *Clock) DayTick() int   { return c.tick % c.ticksPerDay }

func (c *Clock) State() ClockState {
	return ClockState{Tick: c.tick, Day: c.Day(), DayTick: c.DayTick(), Status: c.status}
}

// Start moves lobby or paused to active. It reports whether the status changed.
func (c *Clock) Start() bool {
	if c.status == StatusLobby || c.status == StatusPaused {
		c.status = StatusActive
		return true
	}
	return false
}

// Pause moves active to paused.
func (c *Clock) Pause() bool {
	if c.status == StatusActive {
		c.status = StatusPaused
		return true
	}
	return false
}

// Resume moves paused to active.
func (c *Clock) Resume() bool {
	if c.status == StatusPaused {
		c.status = StatusActive
		return true
	}
	return false
}

// Advance moves the clock one tick while active. Crossing a day boundary
// past the final day ends the game on that same tick.
func (c *Clock) Advance() (Step, bool) {
	if c.status != StatusActive {
		return Step{}, false
	}
	c.tick++
	step := Step{Tick: c.tick, Day: c.Day()}
	if c.DayTick() == 0 {
		step.DayChanged = true
		if step.Day > c.finalDay {
			c.status = StatusEnded
			step.Ended = true
		}
	}
	return step, true
}
