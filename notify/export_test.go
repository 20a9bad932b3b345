package notify

// PendingTimers is the number of success notices still waiting to expire.
func (c *Center) PendingTimers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}
