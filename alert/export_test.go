package alert

import "time"

// SetClock replaces the time source of c.
func (c *Cooldown) SetClock(now func() time.Time) {
	c.now = now
}

// Tracked returns the number of keys c currently remembers.
func (c *Cooldown) Tracked() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.state)
}
