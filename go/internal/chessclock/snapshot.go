package chessclock

// Snapshot is the serializable form of a Clock.
// Timestamps are process-local, so only the running flag survives; pending time must be
// committed (see Clock.Snapshot) before a snapshot leaves the process.
type Snapshot struct {
	Config  Config         `json:"config"`
	Color   Color          `json:"color"`
	Players [2]PlayerState `json:"players"`
	Running bool           `json:"running"`
}

// Snapshot commits the pending time at now and returns the serializable record.
func (c Clock) Snapshot(now Timestamp) Snapshot {
	committed := c.Stop(now)
	return Snapshot{
		Config:  c.config,
		Color:   c.color,
		Players: committed.players,
		Running: c.run.running,
	}
}

// FromSnapshot rebuilds a Clock; a running snapshot resumes ticking from now.
func FromSnapshot(s Snapshot, now Timestamp) Clock {
	c := Clock{
		config:  s.Config,
		color:   s.Color,
		players: s.Players,
	}
	if s.Running {
		c = c.Start(now)
	}
	return c
}
